package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"authcore/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{"/auth/me", "/auth/me"},
		{"/auth/refresh?refresh_token=abc.def.ghi", "/auth/refresh?refresh_token=REDACTED"},
		{"/x?access_token=t&page=2", "/x?access_token=REDACTED&page=2"},
		{"/x?page=2&sort=name", "/x?page=2&sort=name"},
		{"/x?password=hunter2&password=again", "/x?password=REDACTED"},
	}
	for _, tc := range tests {
		u, err := url.Parse(tc.raw)
		require.NoError(t, err)
		assert.Equal(t, tc.want, redactURL(u), tc.raw)
	}
}

func TestRefreshTokenNeverLogged(t *testing.T) {
	var appLog, accessLog bytes.Buffer
	h := AccessLog(&accessLog, NewHandler(newTestAuth(t), logging.NewWriter(&appLog, true, true), Options{}))

	do := func(req *http.Request) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/register",
		strings.NewReader(`{"email":"alice@example.com","password":"pw123","name":"Alice"}`))
	req.Header.Set("Content-Type", "application/json")
	require.Equal(t, http.StatusCreated, do(req).Code)

	req = httptest.NewRequest(http.MethodPost, "/auth/token",
		strings.NewReader(url.Values{"username": {"alice@example.com"}, "password": {"pw123"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	var tokens map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&tokens))
	refresh := tokens["refresh_token"]
	require.NotEmpty(t, refresh)

	rec = do(httptest.NewRequest(http.MethodPost, "/auth/refresh?refresh_token="+url.QueryEscape(refresh), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	// The rejected case goes through the service error path too.
	rec = do(httptest.NewRequest(http.MethodPost, "/auth/refresh?refresh_token="+url.QueryEscape(refresh+"x"), nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	for name, out := range map[string]string{"app": appLog.String(), "access": accessLog.String()} {
		assert.NotContains(t, out, refresh, name)
		assert.NotContains(t, out, "pw123", name)
		assert.Contains(t, out, "refresh_token=REDACTED", name)
	}
	assert.Contains(t, accessLog.String(), `"POST /auth/refresh?refresh_token=REDACTED HTTP/1.1" 200`)
}

func TestUnhandledErrorLogIsRedacted(t *testing.T) {
	var appLog bytes.Buffer
	h := NewHandler(brokenAuth{}, logging.NewWriter(&appLog, false, false), Options{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/refresh?refresh_token=secret-value", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	out := appLog.String()
	assert.Contains(t, out, "unhandled error")
	assert.NotContains(t, out, "secret-value")
	assert.Contains(t, out, "REDACTED")
}

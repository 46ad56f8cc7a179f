package token

import (
	"testing"
	"time"

	"authcore/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	accessSecret  = []byte("access-secret-access-secret-0001")
	refreshSecret = []byte("refresh-secret-refresh-secret-01")
)

func testUser() *models.User {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &models.User{
		ID:        primitive.NewObjectID(),
		Email:     "alice@example.com",
		Name:      "Alice",
		IsStaff:   true,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	u := testUser()
	exp := time.Now().Add(time.Hour)
	tok, err := Sign(ForUser(u, exp, AudienceAPI), accessSecret, jwt.SigningMethodHS256)
	require.NoError(t, err)

	got := Verify(tok, accessSecret, jwt.SigningMethodHS256, AudienceAPI)
	require.NotNil(t, got)
	assert.Equal(t, u.ID.Hex(), got.Subject)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, "Alice", got.Name)
	assert.True(t, got.IsStaff)
	assert.False(t, got.IsSuperuser)
	assert.True(t, got.IsActive)
	assert.False(t, got.IsLocked)
	assert.Equal(t, "2024-03-01T12:00:00Z", got.CreatedAt)
	assert.Equal(t, jwt.ClaimStrings{AudienceAPI}, got.Audience)
	assert.Equal(t, exp.Unix(), got.ExpiresAt.Unix())
}

func TestVerifyRejects(t *testing.T) {
	t.Parallel()

	u := testUser()
	exp := time.Now().Add(time.Hour)
	access, err := Sign(ForUser(u, exp, AudienceAPI), accessSecret, jwt.SigningMethodHS256)
	require.NoError(t, err)
	refresh, err := Sign(ForUser(u, exp, "").WithID(), refreshSecret, jwt.SigningMethodHS256)
	require.NoError(t, err)
	expired, err := Sign(ForUser(u, time.Now().Add(-time.Minute), AudienceAPI), accessSecret, jwt.SigningMethodHS256)
	require.NoError(t, err)
	hs512, err := Sign(ForUser(u, exp, AudienceAPI), accessSecret, jwt.SigningMethodHS512)
	require.NoError(t, err)

	tests := []struct {
		name     string
		token    string
		secret   []byte
		audience string
	}{
		{"wrong secret", access, []byte("another-secret"), AudienceAPI},
		{"wrong audience", access, accessSecret, "admin"},
		{"refresh token used as access token", refresh, accessSecret, AudienceAPI},
		{"access secret on refresh token", refresh, accessSecret, ""},
		{"expired", expired, accessSecret, AudienceAPI},
		{"algorithm mismatch", hs512, accessSecret, AudienceAPI},
		{"garbage", "garbage", accessSecret, AudienceAPI},
		{"malformed", "not.a.jwt", accessSecret, AudienceAPI},
		{"empty", "", accessSecret, AudienceAPI},
		{"empty secret", access, nil, AudienceAPI},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Nil(t, Verify(tc.token, tc.secret, jwt.SigningMethodHS256, tc.audience))
		})
	}
}

func TestVerifyRefreshWithoutAudienceCheck(t *testing.T) {
	t.Parallel()

	u := testUser()
	refresh, err := Sign(ForUser(u, time.Now().Add(time.Hour), "").WithID(), refreshSecret, jwt.SigningMethodHS256)
	require.NoError(t, err)

	got := Verify(refresh, refreshSecret, jwt.SigningMethodHS256, "")
	require.NotNil(t, got)
	assert.NotEmpty(t, got.ID)
	assert.Empty(t, got.Audience)
}

func TestVerifyHonoursClock(t *testing.T) {
	t.Parallel()

	exp := time.Now().Add(time.Hour)
	tok, err := Sign(ForUser(testUser(), exp, AudienceAPI), accessSecret, jwt.SigningMethodHS256)
	require.NoError(t, err)

	before := func() time.Time { return exp.Add(-time.Minute) }
	after := func() time.Time { return exp.Add(time.Minute) }
	assert.NotNil(t, verify(tok, accessSecret, jwt.SigningMethodHS256, AudienceAPI, before))
	assert.Nil(t, verify(tok, accessSecret, jwt.SigningMethodHS256, AudienceAPI, after))
}

func TestWithIDIsUnique(t *testing.T) {
	t.Parallel()

	c := ForUser(testUser(), time.Now().Add(time.Hour), "")
	assert.NotEqual(t, c.WithID().ID, c.WithID().ID)
	assert.Empty(t, c.ID)
}

func TestSignRequiresExpiryAndSecret(t *testing.T) {
	t.Parallel()

	c := ForUser(testUser(), time.Now().Add(time.Hour), "")
	_, err := Sign(c, nil, jwt.SigningMethodHS256)
	require.Error(t, err)

	c.ExpiresAt = nil
	_, err = Sign(c, accessSecret, jwt.SigningMethodHS256)
	require.Error(t, err)
}

func TestMethod(t *testing.T) {
	t.Parallel()

	for _, alg := range []string{"HS256", "HS384", "HS512"} {
		m, err := Method(alg)
		require.NoError(t, err)
		assert.Equal(t, alg, m.Alg())
	}
	_, err := Method("RS256")
	require.Error(t, err)
	_, err = Method("none")
	require.Error(t, err)
	_, err = Method("XX999")
	require.Error(t, err)
}

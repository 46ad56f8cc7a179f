package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"authcore/internal/models"

	"github.com/felixge/httpsnoop"
)

type ctxKey int

const userKey ctxKey = iota

// UserFromContext returns the user resolved by RequireUser.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userKey).(*models.User)
	return u, ok
}

// RequireUser resolves the bearer access token to a user and stores it in
// the request context. Missing or invalid tokens get a 401.
func RequireUser(a Authenticator, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				unauthorized(w, "Not authenticated")
				return
			}
			u, err := a.Authenticate(r.Context(), raw)
			if err != nil {
				writeServiceError(r.Context(), log, w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), userKey, u)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, raw, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

// logRequests logs each request on arrival and on completion.
func logRequests(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.InfoContext(r.Context(), "incoming request", "method", r.Method, "url", redactURL(r.URL))
		m := httpsnoop.CaptureMetrics(next, w, r)
		log.InfoContext(r.Context(), "request processed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", m.Code,
			"duration", m.Duration,
		)
	})
}

// recoverPanics turns a panicking handler into a 500 and logs the stack.
func recoverPanics(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.ErrorContext(r.Context(), "unhandled panic",
					"error", rec,
					"method", r.Method,
					"url", redactURL(r.URL),
					"traceback", string(debug.Stack()),
				)
				writeInternalError(w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

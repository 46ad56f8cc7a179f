package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"authcore/internal/auth"
)

type errorBody struct {
	Error  string `json:"error"`
	Detail any    `json:"detail,omitempty"`
}

// writeJSON writes v with the given status. Responses carrying tokens or
// user records must not be cached.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes an error response in JSON.
func writeJSONError(w http.ResponseWriter, status int, message string, detail any) {
	writeJSON(w, status, errorBody{Error: message, Detail: detail})
}

func writeInternalError(w http.ResponseWriter) {
	writeJSONError(w, http.StatusInternalServerError, "Internal Server Error", nil)
}

// writeServiceError maps an auth.Service error to its HTTP response. Unknown
// errors are logged in full and reported as a bare 500.
func writeServiceError(ctx context.Context, log *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrEmailAlreadyRegistered):
		writeJSONError(w, http.StatusBadRequest, "Email already registered", nil)
	case errors.Is(err, auth.ErrInvalidInput):
		writeJSONError(w, http.StatusBadRequest, "Invalid request payload", err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		unauthorized(w, "Invalid email or password")
	case errors.Is(err, auth.ErrInvalidRefreshToken):
		unauthorized(w, "Invalid refresh token")
	case errors.Is(err, auth.ErrUserNotFound):
		unauthorized(w, "User not found")
	case errors.Is(err, auth.ErrUnauthenticated):
		unauthorized(w, "Invalid authentication credentials")
	default:
		log.ErrorContext(ctx, "unhandled error",
			"error", err,
			"method", r.Method,
			"url", redactURL(r.URL),
		)
		writeInternalError(w)
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeJSONError(w, http.StatusUnauthorized, message, nil)
}

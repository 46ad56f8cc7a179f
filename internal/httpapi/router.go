// Package httpapi exposes the authentication core over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"

	"authcore/internal/auth"
	"authcore/internal/models"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// Authenticator is the slice of auth.Service the HTTP layer calls.
type Authenticator interface {
	Register(ctx context.Context, in models.UserCreate) (*models.User, error)
	Login(ctx context.Context, email, password string) (*auth.Tokens, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.Tokens, error)
	Revoke(ctx context.Context, userID string) error
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
}

var _ Authenticator = (*auth.Service)(nil)

// maxBodyBytes caps every request body the handlers decode.
const maxBodyBytes = 1 << 20

// Options tunes the handler stack.
type Options struct {
	// CORSOrigins enables CORS for the listed origins when non-empty.
	CORSOrigins []string
}

// API holds the handlers.
type API struct {
	auth Authenticator
	log  *slog.Logger
}

// NewHandler builds the full handler: routes, 404/405 bodies, optional CORS,
// request logging and panic recovery.
func NewHandler(a Authenticator, log *slog.Logger, opts Options) http.Handler {
	api := &API{auth: a, log: log}

	router := mux.NewRouter()
	router.HandleFunc("/healthcheck", api.healthcheck).Methods(http.MethodGet)

	// Routes stay on the root router: a method mismatch inside a subrouter
	// reaches the root's NotFoundHandler instead of MethodNotAllowedHandler.
	router.HandleFunc("/auth/register", api.register).Methods(http.MethodPost)
	router.HandleFunc("/auth/token", api.token).Methods(http.MethodPost)
	router.HandleFunc("/auth/refresh", api.refresh).Methods(http.MethodPost)

	guard := RequireUser(a, log)
	router.Handle("/auth/me", guard(http.HandlerFunc(api.me))).Methods(http.MethodGet)
	router.Handle("/auth/logout", guard(http.HandlerFunc(api.logout))).Methods(http.MethodPost)

	router.NotFoundHandler = http.HandlerFunc(notFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	var h http.Handler = router
	if len(opts.CORSOrigins) > 0 {
		h = handlers.CORS(
			handlers.AllowedOrigins(opts.CORSOrigins),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
			handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
		)(h)
	}
	return recoverPanics(log, logRequests(log, h))
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	writeJSONError(w, http.StatusNotFound, "Not Found", "The requested resource was not found.")
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeJSONError(w, http.StatusMethodNotAllowed, "Method Not Allowed", nil)
}

func (api *API) healthcheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": http.StatusOK, "message": "I am alive."})
}

func (api *API) register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req models.UserCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request payload", nil)
		return
	}
	u, err := api.auth.Register(r.Context(), req)
	if err != nil {
		writeServiceError(r.Context(), api.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u.View())
}

// token is the OAuth2 password-grant style login: form fields username
// (the email) and password.
func (api *API) token(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request payload", nil)
		return
	}
	username, pw := r.PostForm.Get("username"), r.PostForm.Get("password")
	if username == "" || pw == "" {
		writeJSONError(w, http.StatusBadRequest, "Missing fields", nil)
		return
	}
	tokens, err := api.auth.Login(r.Context(), username, pw)
	if err != nil {
		writeServiceError(r.Context(), api.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

// refresh accepts refresh_token as a query parameter, a form field or a
// JSON body field.
func (api *API) refresh(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	raw := r.URL.Query().Get("refresh_token")
	if raw == "" {
		ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		switch ct {
		case "application/json":
			var req struct {
				RefreshToken string `json:"refresh_token"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeJSONError(w, http.StatusBadRequest, "Invalid request payload", nil)
				return
			}
			raw = req.RefreshToken
		case "application/x-www-form-urlencoded":
			if err := r.ParseForm(); err != nil {
				writeJSONError(w, http.StatusBadRequest, "Invalid request payload", nil)
				return
			}
			raw = r.PostForm.Get("refresh_token")
		}
	}
	if raw == "" {
		writeJSONError(w, http.StatusBadRequest, "Missing fields", nil)
		return
	}
	tokens, err := api.auth.Refresh(r.Context(), raw)
	if err != nil {
		writeServiceError(r.Context(), api.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

func (api *API) me(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromContext(r.Context())
	if !ok {
		writeInternalError(w)
		return
	}
	writeJSON(w, http.StatusOK, u.View())
}

func (api *API) logout(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromContext(r.Context())
	if !ok {
		writeInternalError(w)
		return
	}
	if err := api.auth.Revoke(r.Context(), u.ID.Hex()); err != nil {
		writeServiceError(r.Context(), api.log, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

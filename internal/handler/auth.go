package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"quizhub/internal/model"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// handleLogin verifies form-encoded credentials and issues a bearer
// token. Bad username and bad password produce the same response.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid form body")
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "username and password are required")
		return
	}

	user, err := h.store.GetUserByUsername(username)
	if err != nil {
		slog.Error("login lookup", "error", err)
		writeDetail(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		writeDetail(w, http.StatusUnauthorized, "incorrect username or password")
		return
	}

	token, err := h.store.CreateAuthToken(user.ID)
	if err != nil {
		slog.Error("create auth token", "error", err)
		writeDetail(w, http.StatusInternalServerError, "internal server error")
		return
	}

	slog.Info("user logged in", "username", user.Username, "role", user.Role)
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token != "" {
		if err := h.store.DeleteAuthToken(token); err != nil {
			slog.Error("delete auth token", "error", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.UserFromContext(r.Context()))
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return auth[len(prefix):]
	}
	return ""
}

// requireAuth resolves the bearer token to a user and stores it in the
// request context. Expired and unknown tokens are rejected alike.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeDetail(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		sess, err := h.store.GetAuthSession(token)
		if err != nil {
			slog.Error("auth session lookup", "error", err)
			writeDetail(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if sess == nil {
			writeDetail(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		user, err := h.store.GetUserByID(sess.UserID)
		if err != nil || user == nil {
			slog.Error("auth user lookup", "user_id", sess.UserID, "error", err)
			writeDetail(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(model.ContextWithUser(r.Context(), user)))
	})
}

// requireRole gates a route on the authenticated user's role.
func (h *Handler) requireRole(role model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := model.UserFromContext(r.Context())
			if user == nil || user.Role != role {
				writeDetail(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

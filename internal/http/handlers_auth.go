package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"goalfin/internal/auth"
	"goalfin/internal/core"
)

type contextKey string

const userIDKey contextKey = "user_id"

// userID returns the authenticated user behind the request. Empty only
// when the handler was not wrapped with withAuth.
func userID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

// withAuth requires a valid bearer token and stashes the user id in the
// request context.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondError(w, http.StatusUnauthorized, "Missing or malformed Authorization header")
			return
		}

		claims, err := s.auth.Verify(token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		next(w, r.WithContext(ctx))
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := s.auth.Register(r.Context(), req.Name, req.Email, req.Password)
	if errors.Is(err, auth.ErrEmailTaken) {
		respondError(w, http.StatusConflict, "Email already registered")
		return
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondSuccess(w, http.StatusCreated, "User registered", session)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Remember bool   `json:"rememberMe"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := s.auth.Login(r.Context(), req.Email, req.Password, req.Remember)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		respondError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Login failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	respondSuccess(w, http.StatusOK, "Logged in", session)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	user, err := s.auth.Profile(r.Context(), userID(r))
	if errors.Is(err, core.ErrNotFound) {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Profile lookup failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Could not load profile")
		return
	}

	respondSuccess(w, http.StatusOK, "", user)
}

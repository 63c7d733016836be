package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/hongminglow/bank-ledger-be/internal/auth"
	"github.com/hongminglow/bank-ledger-be/internal/config"
	"github.com/hongminglow/bank-ledger-be/internal/http/respond"
	"github.com/hongminglow/bank-ledger-be/internal/models/dto"
)

// AuthHandler owns login, logout and session lookup.
type AuthHandler struct {
	auth *auth.Service
	cfg  *config.Config
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(svc *auth.Service, cfg *config.Config) *AuthHandler {
	return &AuthHandler{auth: svc, cfg: cfg}
}

// Register attaches auth routes to the mux. authed guards /auth/me.
func (h *AuthHandler) Register(mux *http.ServeMux, authed Wrap) {
	mux.HandleFunc("POST /auth/login", h.handleLogin)
	mux.HandleFunc("POST /auth/logout", h.handleLogout)
	mux.Handle("GET /auth/me", authed(http.HandlerFunc(h.handleMe)))
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	identifier, err := firstIdentifier(req.Identifier, req.CPF)
	if err != nil || identifier == "" || strings.TrimSpace(req.Password) == "" {
		respond.Error(w, http.StatusBadRequest, "identifier and password are required")
		return
	}

	token, user, err := h.auth.Login(r.Context(), identifier, req.Password)
	if err != nil {
		writeError(w, "login", "invalid identifier or password", err)
		return
	}

	// Admin sessions ride on an HTTP-only cookie; other clients keep the bearer token.
	if user.IsAdmin() {
		h.setSessionCookie(w, token, h.auth.Tokens().TTL())
		respond.JSON(w, http.StatusOK, respond.Fields{"message": "login successful", "user": user})
		return
	}
	respond.JSON(w, http.StatusOK, respond.Fields{"message": "login successful", "token": token, "user": user})
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.setSessionCookie(w, "", -1)
	respond.JSON(w, http.StatusOK, respond.Fields{"message": "logged out"})
}

func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, "me", "", auth.ErrUnauthorized)
		return
	}
	respond.JSON(w, http.StatusOK, respond.Fields{"user": principal})
}

// setSessionCookie writes the session cookie. A negative ttl clears it.
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	cookie := &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
	if ttl < 0 {
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0)
	} else {
		cookie.MaxAge = int(ttl.Seconds())
		cookie.Expires = time.Now().Add(ttl)
	}
	http.SetCookie(w, cookie)
}

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/irgordon/locker/api/internal/api/middleware"
	"github.com/irgordon/locker/api/internal/core/domain"
)

const (
	refreshTokenCookie = "locker_refresh_token"
	refreshCookiePath  = "/api/v1/auth/refresh"
)

type CredentialsRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type AuthHandler struct {
	Service       domain.AuthService
	Logger        *slog.Logger
	SecureCookies bool
}

func NewAuthHandler(service domain.AuthService, logger *slog.Logger, secureCookies bool) *AuthHandler {
	return &AuthHandler{Service: service, Logger: logger, SecureCookies: secureCookies}
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}

	user, err := h.Service.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		HandleError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// Login handles POST /api/v1/auth/login. The session body serves CLI clients;
// browsers get the same tokens as HttpOnly cookies.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}

	session, err := h.Service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		HandleError(w, r, h.Logger, err)
		return
	}

	h.setAuthCookies(w, session)
	writeJSON(w, http.StatusOK, session)
}

// Refresh handles the Silent Refresh flow. The token comes from the body or
// the path-scoped refresh cookie.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
	}
	if req.RefreshToken == "" {
		if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
			req.RefreshToken = cookie.Value
		}
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusUnauthorized, "No refresh token provided")
		return
	}

	session, err := h.Service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		// If the refresh token is expired or tampered with, clear the dead cookies
		h.clearCookies(w)
		if errors.Is(err, domain.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Session expired, please log in again")
			return
		}
		HandleError(w, r, h.Logger, err)
		return
	}

	h.setAuthCookies(w, session)
	writeJSON(w, http.StatusOK, session)
}

func (h *AuthHandler) decodeCredentials(w http.ResponseWriter, r *http.Request) (CredentialsRequest, bool) {
	var req CredentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return req, false
	}
	if err := validate.Struct(req); err != nil {
		HandleError(w, r, h.Logger, err)
		return req, false
	}
	return req, true
}

// 🛡️ Helper: Apply Zero-Trust cookie policies
func (h *AuthHandler) setAuthCookies(w http.ResponseWriter, session *domain.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    session.AccessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int((15 * time.Minute).Seconds()),
	})

	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    session.RefreshToken,
		Path:     refreshCookiePath, // 🛡️ Only send this cookie to the refresh endpoint
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int((7 * 24 * time.Hour).Seconds()),
	})
}

func (h *AuthHandler) clearCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    "",
		Path:     refreshCookiePath,
		HttpOnly: true,
		MaxAge:   -1,
	})
}

package api

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/atelierhq/atelier-api/internal/api/shared"
	"github.com/atelierhq/atelier-api/internal/service/auth"
)

// AuthHandler exchanges the operator access password for a bearer token.
type AuthHandler struct {
	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier
	passwordHash     string
	tokenLifetime    time.Duration
	validator        *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(
	jwtService auth.JWTService,
	passwordVerifier auth.PasswordVerifier,
	passwordHash string,
	tokenLifetime time.Duration,
) *AuthHandler {
	return &AuthHandler{
		jwtService:       jwtService,
		passwordVerifier: passwordVerifier,
		passwordHash:     passwordHash,
		tokenLifetime:    tokenLifetime,
		validator:        validator.New(),
	}
}

// Token handles POST /api/auth/token requests.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Password is required")
		return
	}

	if err := h.passwordVerifier.Compare(h.passwordHash, req.Password); err != nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid password")
		return
	}

	token, err := h.jwtService.GenerateToken(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to issue token", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(h.tokenLifetime.Seconds()),
	})
}

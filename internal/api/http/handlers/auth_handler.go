package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/fault-ticket-service/internal/api/dto"
	"github.com/fieldops/fault-ticket-service/internal/auth"
	"github.com/fieldops/fault-ticket-service/internal/config"
	"github.com/fieldops/fault-ticket-service/pkg/errorutil"
)

// AuthHandler exchanges the shared operator key for bearer tokens.
type AuthHandler struct {
	tokens *TokenIssuer
}

// TokenIssuer bundles the token manager with the stored operator key hash.
type TokenIssuer struct {
	Manager *auth.TokenManager
	Cfg     config.AuthConfig
}

// NewAuthHandler constructs handler.
func NewAuthHandler(manager *auth.TokenManager, cfg config.AuthConfig) *AuthHandler {
	return &AuthHandler{tokens: &TokenIssuer{Manager: manager, Cfg: cfg}}
}

// Token POST /auth/token.
func (h *AuthHandler) Token(c *fiber.Ctx) error {
	if strings.TrimSpace(h.tokens.Cfg.OperatorKeyHash) == "" {
		return errorutil.NewUnauthorized("operator token exchange disabled")
	}

	var req dto.TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.OperatorID) == "" || req.OperatorKey == "" {
		return errorutil.NewValidationError("operator_id and operator_key required", nil)
	}

	if err := auth.VerifyOperatorKey(h.tokens.Cfg.OperatorKeyHash, req.OperatorKey); err != nil {
		return errorutil.NewUnauthorized("invalid operator key")
	}

	token, expiresAt, err := h.tokens.Manager.GenerateToken(req.OperatorID, req.Name)
	if err != nil {
		return errorutil.NewInternalError(err)
	}

	return c.JSON(fiber.Map{"data": dto.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
	}})
}

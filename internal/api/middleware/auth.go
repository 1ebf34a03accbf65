/**
 * @description
 * Authentication middleware for the admin endpoints.
 * Validates Bearer tokens signed with the shared admin secret (HS256).
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2: HTTP Context
 * - github.com/golang-jwt/jwt/v5: JWT parsing
 *
 * @notes
 * - Requires ADMIN_JWT_SECRET to be set in configuration.
 * - There is no external IdP here; the sync trigger is an operator surface,
 *   so a shared-secret token is sufficient.
 */

package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pricescout-project/backend/internal/config"
	"github.com/pricescout-project/backend/internal/logger"
)

// AuthMiddlewareConfig holds the shared signing secret
type AuthMiddlewareConfig struct {
	Secret []byte
}

var mwConfig *AuthMiddlewareConfig

// InitAuthMiddleware stores the admin secret. Should be called at startup.
func InitAuthMiddleware(cfg *config.Config) error {
	if cfg.Admin.JWTSecret == "" {
		// In dev/test we might not have this, but protected routes will reject everything
		logger.Info("⚠️ Warning: ADMIN_JWT_SECRET is empty. Admin endpoints will reject all requests.")
		return nil
	}

	mwConfig = &AuthMiddlewareConfig{
		Secret: []byte(cfg.Admin.JWTSecret),
	}
	logger.Info("✅ Auth Middleware Initialized")
	return nil
}

// Protected protects routes requiring the admin token
func Protected() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if mwConfig == nil || len(mwConfig.Secret) == 0 {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Auth configuration not initialized",
			})
		}

		// 1. Get Token from Header
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing authorization header"})
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token format"})
		}

		// 2. Parse and Validate Token
		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return mwConfig.Secret, nil
		})
		if err != nil || !token.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
		}

		return c.Next()
	}
}

package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/showtix/auth_service/internal/apperr"
	"github.com/showtix/auth_service/internal/helper"
	"github.com/showtix/auth_service/internal/helper/utils"
)

const LocalsToken = "token"

// AuthMiddleware rejects requests whose Authorization header is missing or
// doesn't carry a parseable bearer token, and stashes the raw token for the
// handlers behind it. The deletion flow takes the bearer token as its input,
// so the token itself is passed through rather than the parsed claims.
func AuthMiddleware(auth helper.Auth) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		tokenStr := strings.TrimSpace(ctx.Get("Authorization"))

		if _, err := auth.VerifyToken(tokenStr); err != nil {
			return utils.RespondError(ctx, apperr.Unauthorized("invalid or expired token"))
		}

		ctx.Locals(LocalsToken, tokenStr)
		return ctx.Next()
	}
}

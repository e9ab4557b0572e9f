package utils

import (
	"github.com/gofiber/fiber/v2"
	"github.com/showtix/auth_service/internal/apperr"
)

func ResponseSuccess(ctx *fiber.Ctx, status int, data interface{}) error {
	return ctx.Status(status).JSON(fiber.Map{"data": data})
}

// RespondError is the single place flow errors become HTTP responses.
func RespondError(ctx *fiber.Ctx, err error) error {
	e := apperr.From(err)
	return ctx.Status(e.Kind.HTTPStatus()).JSON(fiber.Map{
		"error": e.Message,
		"code":  e.Code,
	})
}

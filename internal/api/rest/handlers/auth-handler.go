package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/showtix/auth_service/internal/api/rest/middleware"
	"github.com/showtix/auth_service/internal/apperr"
	"github.com/showtix/auth_service/internal/dto"
	"github.com/showtix/auth_service/internal/helper"
	"github.com/showtix/auth_service/internal/helper/utils"
	"github.com/showtix/auth_service/internal/services"
)

type AuthHandler struct {
	svc  services.AuthService
	auth helper.Auth
}

func NewAuthHandler(svc services.AuthService, auth helper.Auth) *AuthHandler {
	return &AuthHandler{svc: svc, auth: auth}
}

func (h *AuthHandler) SetupRoutes(app *fiber.App) {
	auth := app.Group("/api/auth")

	auth.Post("/signup", h.SignUp)
	auth.Post("/login", h.Login)
	auth.Post("/verify-email", h.VerifyEmail)
	auth.Post("/verify-email/resend", h.ResendVerificationCode)
	auth.Post("/forgot-password", h.ForgotPassword)
	auth.Post("/forgot-password/verify", h.VerifyResetCode)
	auth.Post("/reset-password", h.ResetPassword)

	auth.Delete("/account", middleware.AuthMiddleware(h.auth), h.DeleteAccount)
}

func (h *AuthHandler) SignUp(ctx *fiber.Ctx) error {
	var requestBody dto.SignUpRequest

	if err := ctx.BodyParser(&requestBody); err != nil {
		return utils.RespondError(ctx, apperr.Validation("INVALID_INPUT", "please provide valid inputs"))
	}
	if requestBody.Email == "" || requestBody.Password == "" {
		return utils.RespondError(ctx, apperr.Validation("INVALID_INPUT", "email and password are required"))
	}

	if err := h.svc.SignUp(requestBody); err != nil {
		return utils.RespondError(ctx, err)
	}
	return utils.ResponseSuccess(ctx, fiber.StatusCreated,
		"Account created successfully. Please check your email for verification code.")
}

func (h *AuthHandler) Login(ctx *fiber.Ctx) error {
	var requestBody dto.LoginRequest

	if err := ctx.BodyParser(&requestBody); err != nil {
		return utils.RespondError(ctx, apperr.Validation("INVALID_INPUT", "email and password are required"))
	}

	resp, err := h.svc.Login(requestBody)
	if err != nil {
		return utils.RespondError(ctx, err)
	}
	return utils.ResponseSuccess(ctx, fiber.StatusOK, resp)
}

func (h *AuthHandler) VerifyEmail(ctx *fiber.Ctx) error {
	var requestBody dto.VerifyEmailRequest

	if err := ctx.BodyParser(&requestBody); err != nil {
		return utils.RespondError(ctx, apperr.Validation("INVALID_INPUT", "please provide valid inputs"))
	}
	if requestBody.Email == "" || requestBody.Code == "" {
		return utils.RespondError(ctx, apperr.Validation("INVALID_INPUT", "email and code are required"))
	}

	if err := h.svc.VerifyEmail(requestBody); err != nil {
		return utils.RespondError(ctx, err)
	}
	return utils.ResponseSuccess(ctx, fiber.StatusOK,
		"Email verified successfully. Your account is now active!")
}

func (h *AuthHandler) ResendVerificationCode(ctx *fiber.Ctx) error {
	var requestBody dto.ResendCodeRequest

	if err := ctx.BodyParser(&requestBody); err != nil || requestBody.Email == "" {
		return utils.RespondError(ctx, apperr.Validation("INVALID_INPUT", "please provide a valid email"))
	}

	if err := h.svc.ResendVerificationCode(requestBody.Email); err != nil {
		return utils.RespondError(ctx, err)
	}
	return utils.ResponseSuccess(ctx, fiber.StatusOK, "Verification code sent to your email")
}

func (h *AuthHandler) ForgotPassword(ctx *fiber.Ctx) error {
	var requestBody dto.ForgotPasswordRequest

	if err := ctx.BodyParser(&requestBody); err != nil || requestBody.Email == "" {
		return utils.RespondError(ctx, apperr.Validation("INVALID_INPUT", "please provide a valid email"))
	}

	if err := h.svc.ForgotPassword(requestBody.Email); err != nil {
		return utils.RespondError(ctx, err)
	}
	return utils.ResponseSuccess(ctx, fiber.StatusOK, "Verification code sent to your email")
}

func (h *AuthHandler) VerifyResetCode(ctx *fiber.Ctx) error {
	var requestBody dto.VerifyCodeRequest

	if err := ctx.BodyParser(&requestBody); err != nil {
		return utils.RespondError(ctx, apperr.Validation("INVALID_INPUT", "please provide valid inputs"))
	}
	if requestBody.Email == "" || requestBody.Code == "" {
		return utils.RespondError(ctx, apperr.Validation("INVALID_INPUT", "email and code are required"))
	}

	if err := h.svc.VerifyResetCode(requestBody); err != nil {
		return utils.RespondError(ctx, err)
	}
	return utils.ResponseSuccess(ctx, fiber.StatusOK, "Code verified successfully")
}

func (h *AuthHandler) ResetPassword(ctx *fiber.Ctx) error {
	var requestBody dto.ResetPasswordRequest

	if err := ctx.BodyParser(&requestBody); err != nil {
		return utils.RespondError(ctx, apperr.Validation("INVALID_INPUT", "please provide valid inputs"))
	}
	if requestBody.Email == "" || requestBody.Code == "" || requestBody.NewPassword == "" {
		return utils.RespondError(ctx, apperr.Validation("INVALID_INPUT", "email, code and new password are required"))
	}

	if err := h.svc.ResetPassword(requestBody); err != nil {
		return utils.RespondError(ctx, err)
	}
	return utils.ResponseSuccess(ctx, fiber.StatusOK, "Password reset successfully")
}

func (h *AuthHandler) DeleteAccount(ctx *fiber.Ctx) error {
	token, ok := ctx.Locals(middleware.LocalsToken).(string)
	if !ok || token == "" {
		return utils.RespondError(ctx, apperr.Unauthorized("missing bearer token"))
	}

	if err := h.svc.DeleteAccount(token); err != nil {
		return utils.RespondError(ctx, err)
	}
	return utils.ResponseSuccess(ctx, fiber.StatusOK, "Account deleted successfully")
}

package services

import (
	"errors"
	"strings"
	"time"

	"github.com/showtix/auth_service/internal/apperr"
	"github.com/showtix/auth_service/internal/domain"
	"github.com/showtix/auth_service/internal/dto"
	"github.com/showtix/auth_service/internal/helper"
	"github.com/showtix/auth_service/internal/mailer"
	"github.com/showtix/auth_service/internal/repository"
	"github.com/showtix/auth_service/internal/verification"
)

type AuthService interface {
	SignUp(input dto.SignUpRequest) error
	Login(input dto.LoginRequest) (*dto.LoginResponse, error)
	VerifyEmail(input dto.VerifyEmailRequest) error
	ResendVerificationCode(email string) error
	ForgotPassword(email string) error
	VerifyResetCode(input dto.VerifyCodeRequest) error
	ResetPassword(input dto.ResetPasswordRequest) error
	DeleteAccount(token string) error
}

type authService struct {
	repo   repository.UserRepository
	codes  verification.CodeStore
	auth   helper.Auth
	hasher helper.Hasher
	mail   mailer.Sender
}

func NewAuthService(
	repo repository.UserRepository,
	codes verification.CodeStore,
	auth helper.Auth,
	mail mailer.Sender,
) AuthService {
	return &authService{
		repo:  repo,
		codes: codes,
		auth:  auth,
		mail:  mail,
	}
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func (s *authService) SignUp(input dto.SignUpRequest) error {
	email := normalizeEmail(input.Email)
	if email == "" || strings.TrimSpace(input.Password) == "" {
		return apperr.Validation("INVALID_INPUT", "email and password are required")
	}

	existing, err := s.repo.FindUserByEmail(email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return apperr.Internal("failed to check existing account")
	}
	if existing != nil && existing.ID != 0 {
		return apperr.Conflict("EMAIL_CONFLICT", "email is already registered")
	}

	newUser := &domain.User{
		Email:        email,
		PasswordHash: s.hasher.Hash(input.Password),
		Verified:     false,
	}

	if _, err := s.repo.CreateUser(newUser); err != nil {
		// unique index on email catches a signup that raced past the check
		if repository.IsDuplicateEmail(err) {
			return apperr.Conflict("EMAIL_CONFLICT", "email is already registered")
		}
		return apperr.Internal("failed to create account")
	}

	if err := s.issueCode(verification.NamespaceEmailVerify, email, mailer.KindVerifyEmail); err != nil {
		return err
	}

	return nil
}

// issueCode generates a fresh code, stores it (replacing any prior one for
// the same email and namespace) and dispatches the matching mail.
func (s *authService) issueCode(ns verification.Namespace, email string, kind mailer.Kind) error {
	code, err := verification.GenerateCode()
	if err != nil {
		return apperr.Internal("failed to generate verification code")
	}

	expiresAt := time.Now().Add(verification.CodeTTL)
	s.codes.Store(ns, email, code, expiresAt)

	s.mail.Send(email, kind, dto.MailEvent{
		Code:      code,
		ExpiresAt: expiresAt.Format(time.RFC3339),
	})
	return nil
}

func (s *authService) Login(input dto.LoginRequest) (*dto.LoginResponse, error) {
	email := normalizeEmail(input.Email)
	password := input.Password

	// one message for both unknown email and wrong password, on purpose
	unauthorized := apperr.Unauthorized("invalid email or password")

	if email == "" || password == "" {
		return nil, unauthorized
	}

	user, err := s.repo.FindUserByEmail(email)
	if err != nil || user == nil || user.ID == 0 {
		return nil, unauthorized
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, unauthorized
	}

	token, expiresAt, err := s.auth.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, apperr.Internal("could not generate token")
	}

	return &dto.LoginResponse{
		Token:       token,
		ExpiryEpoch: expiresAt.UnixMilli(),
	}, nil
}

func (s *authService) VerifyEmail(input dto.VerifyEmailRequest) error {
	email := normalizeEmail(input.Email)

	user, err := s.repo.FindUserByEmail(email)
	if err != nil || user == nil {
		return apperr.NotFound("USER_NOT_FOUND", "no account found for this email")
	}

	if user.Verified {
		return apperr.Conflict("ALREADY_VERIFIED", "email is already verified")
	}

	if err := verification.Check(s.codes, verification.NamespaceEmailVerify, email, input.Code); err != nil {
		return err
	}

	user.Verified = true
	if err := s.repo.SaveUser(user); err != nil {
		return apperr.Internal("failed to verify account")
	}
	s.codes.Remove(verification.NamespaceEmailVerify, email)

	s.mail.Send(email, mailer.KindWelcome, dto.MailEvent{})
	return nil
}

func (s *authService) ResendVerificationCode(email string) error {
	email = normalizeEmail(email)

	user, err := s.repo.FindUserByEmail(email)
	if err != nil || user == nil {
		return apperr.NotFound("USER_NOT_FOUND", "no account found for this email")
	}

	if user.Verified {
		return apperr.Conflict("ALREADY_VERIFIED", "email is already verified")
	}

	return s.issueCode(verification.NamespaceEmailVerify, email, mailer.KindVerifyEmail)
}

func (s *authService) ForgotPassword(email string) error {
	email = normalizeEmail(email)

	user, err := s.repo.FindUserByEmail(email)
	if err != nil || user == nil {
		return apperr.NotFound("USER_NOT_FOUND", "no account found for this email")
	}

	return s.issueCode(verification.NamespacePasswordReset, email, mailer.KindPasswordReset)
}

// VerifyResetCode checks the code without consuming it; only the reset step
// removes it.
func (s *authService) VerifyResetCode(input dto.VerifyCodeRequest) error {
	email := normalizeEmail(input.Email)
	return verification.Check(s.codes, verification.NamespacePasswordReset, email, input.Code)
}

func (s *authService) ResetPassword(input dto.ResetPasswordRequest) error {
	email := normalizeEmail(input.Email)

	if strings.TrimSpace(input.NewPassword) == "" {
		return apperr.Validation("INVALID_INPUT", "new password is required")
	}

	if err := verification.Check(s.codes, verification.NamespacePasswordReset, email, input.Code); err != nil {
		return err
	}

	user, err := s.repo.FindUserByEmail(email)
	if err != nil || user == nil {
		return apperr.NotFound("USER_NOT_FOUND", "no account found for this email")
	}

	// hash the password exactly as typed: signup and login don't trim either
	user.PasswordHash = s.hasher.Hash(input.NewPassword)
	if err := s.repo.SaveUser(user); err != nil {
		return apperr.Internal("failed to reset password")
	}
	// update first, then remove: a failed removal just leaves a code that
	// expires on its own, a failed update after removal would strand the user
	s.codes.Remove(verification.NamespacePasswordReset, email)

	return nil
}

func (s *authService) DeleteAccount(token string) error {
	claims, err := s.auth.VerifyToken(token)
	if err != nil {
		return apperr.Unauthorized("invalid or expired token")
	}

	user, err := s.repo.FindUserByEmail(claims.Email)
	if err != nil || user == nil {
		return apperr.NotFound("USER_NOT_FOUND", "no account found for this email")
	}

	// both claims must point at the same account
	if user.ID != claims.UserID {
		return apperr.Forbidden("token does not match user account")
	}

	s.mail.Send(user.Email, mailer.KindAccountDeleted, dto.MailEvent{})

	if err := s.repo.DeleteUser(user); err != nil {
		return apperr.Internal("failed to delete account")
	}

	return nil
}

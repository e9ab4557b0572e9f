package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showtix/auth_service/internal/apperr"
	"github.com/showtix/auth_service/internal/domain"
	"github.com/showtix/auth_service/internal/dto"
	"github.com/showtix/auth_service/internal/helper"
	"github.com/showtix/auth_service/internal/mailer"
	"github.com/showtix/auth_service/internal/repository"
	"github.com/showtix/auth_service/internal/verification"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeRepo struct {
	mu     sync.Mutex
	nextID uint
	users  map[string]domain.User
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: map[string]domain.User{}}
}

func (r *fakeRepo) CreateUser(user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.Email]; ok {
		return nil, errors.New("duplicate key value violates unique constraint")
	}
	r.nextID++
	user.ID = r.nextID
	r.users[user.Email] = *user
	return user, nil
}

func (r *fakeRepo) FindUserByEmail(email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := u
	return &cp, nil
}

func (r *fakeRepo) SaveUser(user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.Email] = *user
	return nil
}

func (r *fakeRepo) DeleteUser(user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, user.Email)
	return nil
}

type sentMail struct {
	To    string
	Kind  mailer.Kind
	Event dto.MailEvent
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *fakeMailer) Send(to string, kind mailer.Kind, event dto.MailEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	event.Email = to
	m.sent = append(m.sent, sentMail{To: to, Kind: kind, Event: event})
}

func (m *fakeMailer) last() sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentMail{}
	}
	return m.sent[len(m.sent)-1]
}

type testEnv struct {
	svc   AuthService
	repo  *fakeRepo
	codes *verification.MemoryStore
	auth  helper.Auth
	mail  *fakeMailer
}

func newTestEnv() *testEnv {
	repo := newFakeRepo()
	codes := verification.NewMemoryStore()
	auth := helper.SetupAuth(testSecret)
	mail := &fakeMailer{}
	return &testEnv{
		svc:   NewAuthService(repo, codes, auth, mail),
		repo:  repo,
		codes: codes,
		auth:  auth,
		mail:  mail,
	}
}

func kindOf(err error) apperr.Kind {
	return apperr.From(err).Kind
}

func TestSignUp_CreatesUnverifiedUserWithCode(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	err := env.svc.SignUp(dto.SignUpRequest{Email: "A@X.com", Password: "pw1234"})
	require.NoError(t, err)

	user, err := env.repo.FindUserByEmail("a@x.com")
	require.NoError(t, err)
	assert.False(t, user.Verified)
	assert.NotEqual(t, "pw1234", user.PasswordHash)

	entry, ok := env.codes.Get(verification.NamespaceEmailVerify, "a@x.com")
	require.True(t, ok)
	assert.Len(t, entry.Code, 6)
	assert.WithinDuration(t, time.Now().Add(verification.CodeTTL), entry.ExpiresAt, 5*time.Second)

	_, ok = env.codes.Get(verification.NamespacePasswordReset, "a@x.com")
	assert.False(t, ok)

	sent := env.mail.last()
	assert.Equal(t, mailer.KindVerifyEmail, sent.Kind)
	assert.Equal(t, "a@x.com", sent.To)
	assert.Equal(t, entry.Code, sent.Event.Code)
}

func TestSignUp_DuplicateEmailConflict(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	require.NoError(t, env.svc.SignUp(dto.SignUpRequest{Email: "a@x.com", Password: "pw1234"}))

	err := env.svc.SignUp(dto.SignUpRequest{Email: "a@x.com", Password: "other"})
	assert.Equal(t, apperr.KindConflict, kindOf(err))
}

func TestSignUp_MissingInputs(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	err := env.svc.SignUp(dto.SignUpRequest{Email: "", Password: "pw"})
	assert.Equal(t, apperr.KindValidation, kindOf(err))

	err = env.svc.SignUp(dto.SignUpRequest{Email: "a@x.com", Password: "  "})
	assert.Equal(t, apperr.KindValidation, kindOf(err))
}

func TestVerifyEmail_EndToEnd(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	require.NoError(t, env.svc.SignUp(dto.SignUpRequest{Email: "a@x.com", Password: "pw1234"}))

	entry, ok := env.codes.Get(verification.NamespaceEmailVerify, "a@x.com")
	require.True(t, ok)
	wrong := "000000"
	if entry.Code == wrong {
		wrong = "000001"
	}

	// wrong code: validation failure, stored code survives
	err := env.svc.VerifyEmail(dto.VerifyEmailRequest{Email: "a@x.com", Code: wrong})
	assert.Equal(t, apperr.KindValidation, kindOf(err))
	_, ok = env.codes.Get(verification.NamespaceEmailVerify, "a@x.com")
	assert.True(t, ok)

	// right code: user verified, code consumed, welcome mail sent
	require.NoError(t, env.svc.VerifyEmail(dto.VerifyEmailRequest{Email: "a@x.com", Code: entry.Code}))

	user, err := env.repo.FindUserByEmail("a@x.com")
	require.NoError(t, err)
	assert.True(t, user.Verified)

	_, ok = env.codes.Get(verification.NamespaceEmailVerify, "a@x.com")
	assert.False(t, ok)
	assert.Equal(t, mailer.KindWelcome, env.mail.last().Kind)

	// replaying the code: already verified wins
	err = env.svc.VerifyEmail(dto.VerifyEmailRequest{Email: "a@x.com", Code: entry.Code})
	assert.Equal(t, apperr.KindConflict, kindOf(err))
}

func TestVerifyEmail_UnknownUser(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	err := env.svc.VerifyEmail(dto.VerifyEmailRequest{Email: "ghost@x.com", Code: "123456"})
	assert.Equal(t, apperr.KindNotFound, kindOf(err))
}

func TestResendVerificationCode(t *testing.T) {
	t.Parallel()

	env := newTestEnv()

	err := env.svc.ResendVerificationCode("ghost@x.com")
	assert.Equal(t, apperr.KindNotFound, kindOf(err))

	require.NoError(t, env.svc.SignUp(dto.SignUpRequest{Email: "a@x.com", Password: "pw1234"}))

	require.NoError(t, env.svc.ResendVerificationCode("a@x.com"))
	second, ok := env.codes.Get(verification.NamespaceEmailVerify, "a@x.com")
	require.True(t, ok)

	sent := env.mail.last()
	assert.Equal(t, mailer.KindVerifyEmail, sent.Kind)
	assert.Equal(t, second.Code, sent.Event.Code, "mail must carry the code now in the store")

	require.NoError(t, env.svc.VerifyEmail(dto.VerifyEmailRequest{Email: "a@x.com", Code: second.Code}))

	err = env.svc.ResendVerificationCode("a@x.com")
	assert.Equal(t, apperr.KindConflict, kindOf(err))
}

func TestLogin_Success(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	require.NoError(t, env.svc.SignUp(dto.SignUpRequest{Email: "a@x.com", Password: "pw1234"}))

	resp, err := env.svc.Login(dto.LoginRequest{Email: "a@x.com", Password: "pw1234"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	assert.Greater(t, resp.ExpiryEpoch, time.Now().UnixMilli())

	claims, err := env.auth.VerifyToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", claims.Email)

	user, err := env.repo.FindUserByEmail("a@x.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestLogin_UnverifiedUserMayLogIn(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	require.NoError(t, env.svc.SignUp(dto.SignUpRequest{Email: "a@x.com", Password: "pw1234"}))

	// no verification gate on login
	_, err := env.svc.Login(dto.LoginRequest{Email: "a@x.com", Password: "pw1234"})
	assert.NoError(t, err)
}

func TestLogin_BadCredentialsIndistinguishable(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	require.NoError(t, env.svc.SignUp(dto.SignUpRequest{Email: "a@x.com", Password: "pw1234"}))

	_, errWrongPassword := env.svc.Login(dto.LoginRequest{Email: "a@x.com", Password: "nope"})
	_, errUnknownEmail := env.svc.Login(dto.LoginRequest{Email: "ghost@x.com", Password: "pw1234"})

	require.Error(t, errWrongPassword)
	require.Error(t, errUnknownEmail)
	assert.Equal(t, apperr.KindUnauthorized, kindOf(errWrongPassword))
	assert.Equal(t, apperr.KindUnauthorized, kindOf(errUnknownEmail))
	assert.Equal(t, errWrongPassword.Error(), errUnknownEmail.Error())
}

func TestForgotPassword_UnknownEmail(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	err := env.svc.ForgotPassword("b@x.com")
	assert.Equal(t, apperr.KindNotFound, kindOf(err))
}

func TestForgotPassword_StoresCodeInResetNamespaceOnly(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	require.NoError(t, env.svc.SignUp(dto.SignUpRequest{Email: "b@x.com", Password: "pw1234"}))
	signupCode, _ := env.codes.Get(verification.NamespaceEmailVerify, "b@x.com")

	require.NoError(t, env.svc.ForgotPassword("b@x.com"))

	entry, ok := env.codes.Get(verification.NamespacePasswordReset, "b@x.com")
	require.True(t, ok)
	assert.Len(t, entry.Code, 6)

	// the email-verification namespace is untouched
	still, ok := env.codes.Get(verification.NamespaceEmailVerify, "b@x.com")
	require.True(t, ok)
	assert.Equal(t, signupCode.Code, still.Code)

	sent := env.mail.last()
	assert.Equal(t, mailer.KindPasswordReset, sent.Kind)
	assert.Equal(t, entry.Code, sent.Event.Code)
}

func TestVerifyResetCode_DoesNotConsume(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	require.NoError(t, env.svc.SignUp(dto.SignUpRequest{Email: "b@x.com", Password: "pw1234"}))
	require.NoError(t, env.svc.ForgotPassword("b@x.com"))

	entry, _ := env.codes.Get(verification.NamespacePasswordReset, "b@x.com")

	require.NoError(t, env.svc.VerifyResetCode(dto.VerifyCodeRequest{Email: "b@x.com", Code: entry.Code}))

	// the reset step still needs the code
	_, ok := env.codes.Get(verification.NamespacePasswordReset, "b@x.com")
	assert.True(t, ok)
}

func TestResetPassword_UpdatesDigestAndConsumesCode(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	require.NoError(t, env.svc.SignUp(dto.SignUpRequest{Email: "b@x.com", Password: "old-pw"}))
	require.NoError(t, env.svc.ForgotPassword("b@x.com"))

	entry, _ := env.codes.Get(verification.NamespacePasswordReset, "b@x.com")

	require.NoError(t, env.svc.ResetPassword(dto.ResetPasswordRequest{
		Email:       "b@x.com",
		Code:        entry.Code,
		NewPassword: "new-pw",
	}))

	_, err := env.svc.Login(dto.LoginRequest{Email: "b@x.com", Password: "old-pw"})
	assert.Equal(t, apperr.KindUnauthorized, kindOf(err))

	_, err = env.svc.Login(dto.LoginRequest{Email: "b@x.com", Password: "new-pw"})
	assert.NoError(t, err)

	// the code was consumed by the reset
	_, ok := env.codes.Get(verification.NamespacePasswordReset, "b@x.com")
	assert.False(t, ok)

	err = env.svc.ResetPassword(dto.ResetPasswordRequest{
		Email:       "b@x.com",
		Code:        entry.Code,
		NewPassword: "another",
	})
	assert.Equal(t, apperr.KindValidation, kindOf(err))
}

func TestResetPassword_KeepsPasswordExactlyAsTyped(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	require.NoError(t, env.svc.SignUp(dto.SignUpRequest{Email: "b@x.com", Password: " padded "}))

	// signup stores the password as typed, whitespace included
	_, err := env.svc.Login(dto.LoginRequest{Email: "b@x.com", Password: " padded "})
	require.NoError(t, err)

	require.NoError(t, env.svc.ForgotPassword("b@x.com"))
	entry, _ := env.codes.Get(verification.NamespacePasswordReset, "b@x.com")

	require.NoError(t, env.svc.ResetPassword(dto.ResetPasswordRequest{
		Email:       "b@x.com",
		Code:        entry.Code,
		NewPassword: " newpw ",
	}))

	_, err = env.svc.Login(dto.LoginRequest{Email: "b@x.com", Password: " newpw "})
	assert.NoError(t, err, "login must accept the new password exactly as the user typed it")

	_, err = env.svc.Login(dto.LoginRequest{Email: "b@x.com", Password: "newpw"})
	assert.Equal(t, apperr.KindUnauthorized, kindOf(err))
}

func TestResetPassword_ExpiredCode(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	require.NoError(t, env.svc.SignUp(dto.SignUpRequest{Email: "b@x.com", Password: "pw1234"}))

	env.codes.Store(verification.NamespacePasswordReset, "b@x.com", "123456", time.Now().Add(-time.Minute))

	err := env.svc.ResetPassword(dto.ResetPasswordRequest{
		Email:       "b@x.com",
		Code:        "123456",
		NewPassword: "new-pw",
	})
	assert.ErrorIs(t, err, verification.ErrCodeExpired)

	_, ok := env.codes.Get(verification.NamespacePasswordReset, "b@x.com")
	assert.False(t, ok, "expired code must be removed")

	// password unchanged
	_, err = env.svc.Login(dto.LoginRequest{Email: "b@x.com", Password: "pw1234"})
	assert.NoError(t, err)
}

func TestDeleteAccount_Success(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	require.NoError(t, env.svc.SignUp(dto.SignUpRequest{Email: "a@x.com", Password: "pw1234"}))

	resp, err := env.svc.Login(dto.LoginRequest{Email: "a@x.com", Password: "pw1234"})
	require.NoError(t, err)

	require.NoError(t, env.svc.DeleteAccount(resp.Token))

	_, err = env.repo.FindUserByEmail("a@x.com")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
	assert.Equal(t, mailer.KindAccountDeleted, env.mail.last().Kind)
}

func TestDeleteAccount_InvalidToken(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	err := env.svc.DeleteAccount("not.a.jwt")
	assert.Equal(t, apperr.KindUnauthorized, kindOf(err))
}

func TestDeleteAccount_UnknownUser(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	token, _, err := env.auth.GenerateToken(99, "ghost@x.com")
	require.NoError(t, err)

	err = env.svc.DeleteAccount(token)
	assert.Equal(t, apperr.KindNotFound, kindOf(err))
}

func TestDeleteAccount_MismatchedClaimsForbidden(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	require.NoError(t, env.svc.SignUp(dto.SignUpRequest{Email: "a@x.com", Password: "pw1234"}))
	require.NoError(t, env.svc.SignUp(dto.SignUpRequest{Email: "b@x.com", Password: "pw1234"}))

	userA, err := env.repo.FindUserByEmail("a@x.com")
	require.NoError(t, err)

	// email claim resolves user A but the id claim belongs to someone else
	token, _, err := env.auth.GenerateToken(userA.ID+1, "a@x.com")
	require.NoError(t, err)

	err = env.svc.DeleteAccount(token)
	assert.Equal(t, apperr.KindForbidden, kindOf(err))

	// the account survives
	_, err = env.repo.FindUserByEmail("a@x.com")
	assert.NoError(t, err)
}

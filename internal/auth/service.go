package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/calderahq/storefront-backend/internal/users"
	pkgAuth "github.com/calderahq/storefront-backend/pkg/auth"
	"github.com/calderahq/storefront-backend/pkg/config"
	"github.com/calderahq/storefront-backend/pkg/db"
	"github.com/calderahq/storefront-backend/pkg/db/models"
	pkgerrors "github.com/calderahq/storefront-backend/pkg/errors"
	"github.com/calderahq/storefront-backend/pkg/logger"
	"github.com/calderahq/storefront-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	invalidCodeMessage        = "invalid or expired code"
	deliveryFailedMessage     = "verification email delivery failed"

	verifySubject = "Your verification code"
	resetSubject  = "Your password reset code"

	// forgotPasswordAck is returned whether or not the account exists.
	forgotPasswordAck = "If an account exists for that address, a reset code has been sent."
)

// Service drives the account state machine: unregistered accounts become
// unverified at signup and verified once an emailed code is confirmed.
//
// Repeated code or login attempts are not rate limited or locked out; the
// only window on a code is its expiry. Known security gap, kept deliberately.
type Service interface {
	Signup(ctx context.Context, req SignupRequest) (*SignupResponse, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	VerifyEmail(ctx context.Context, req VerifyEmailRequest) (*VerifyEmailResponse, error)
	ForgotPassword(ctx context.Context, req ForgotPasswordRequest) *ForgotPasswordResponse
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
	Profile(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error)
}

type userRepository interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetOTP(ctx context.Context, id uuid.UUID, code string, expiresAt time.Time) error
	MarkVerified(ctx context.Context, id uuid.UUID) error
	ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type mailSender interface {
	Send(ctx context.Context, toAddress, subject, body string) error
}

type service struct {
	users       userRepository
	mail        mailSender
	logg        *logger.Logger
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	otpTTL      time.Duration
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo       userRepository
	Mail           mailSender
	Logger         *logger.Logger
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	OTPConfig      config.OTPConfig
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Mail == nil {
		return nil, fmt.Errorf("mail sender is required")
	}
	ttl := params.OTPConfig.TTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &service{
		users:       params.UserRepo,
		mail:        params.Mail,
		logg:        params.Logger,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
		otpTTL:      ttl,
	}, nil
}

// Signup creates an unverified account and emails it a fresh code. The user
// row is the durability point; if the email cannot be delivered the row is
// deleted again so the caller can retry signup from scratch.
func (s *service) Signup(ctx context.Context, req SignupRequest) (*SignupResponse, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	code, err := security.GenerateOTP()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate otp")
	}
	expiresAt := time.Now().UTC().Add(s.otpTTL)

	// No existence pre-check: the unique index on email is the only backstop
	// against two concurrent signups for the same address.
	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Email:        email,
		PasswordHash: passwordHash,
		Name:         strings.TrimSpace(req.Name),
		OTPCode:      &code,
		OTPExpiresAt: &expiresAt,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "idx_users_email") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}

	if err := s.mail.Send(ctx, email, verifySubject, s.verificationBody(code)); err != nil {
		if delErr := s.users.Delete(ctx, user.ID); delErr != nil && s.logg != nil {
			s.logg.Error(s.logg.WithUserID(ctx, user.ID.String()), "signup compensation delete failed", delErr)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, deliveryFailedMessage)
	}

	return &SignupResponse{
		User:                 users.FromModel(user),
		VerificationRequired: true,
	}, nil
}

// Login authenticates the credentials. Unverified accounts never receive a
// token; instead a fresh code is persisted and emailed, invalidating any
// earlier one.
func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	if !user.IsVerified {
		code, err := security.GenerateOTP()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate otp")
		}
		expiresAt := time.Now().UTC().Add(s.otpTTL)
		if err := s.users.SetOTP(ctx, user.ID, code, expiresAt); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store otp")
		}
		if err := s.mail.Send(ctx, user.Email, verifySubject, s.verificationBody(code)); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, deliveryFailedMessage)
		}
		return &LoginResponse{
			VerificationRequired: true,
			User:                 users.FromModel(user),
		}, nil
	}

	now := time.Now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now

	token, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	return &LoginResponse{
		AccessToken: token,
		User:        users.FromModel(user),
	}, nil
}

// VerifyEmail confirms the emailed code, transitions the account to verified,
// clears the code columns, and issues a session token.
func (s *service) VerifyEmail(ctx context.Context, req VerifyEmailRequest) (*VerifyEmailResponse, error) {
	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	if !security.OTPMatches(user.OTPCode, req.Code.String(), user.OTPExpiresAt, time.Now().UTC()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, invalidCodeMessage)
	}

	if err := s.users.MarkVerified(ctx, user.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark verified")
	}
	user.IsVerified = true
	user.OTPCode = nil
	user.OTPExpiresAt = nil

	token, err := pkgAuth.MintAccessToken(s.jwtCfg, time.Now().UTC(), pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	return &VerifyEmailResponse{
		AccessToken: token,
		User:        users.FromModel(user),
	}, nil
}

// ForgotPassword emails a reset code when the account exists. The response is
// identical either way so the endpoint cannot be used to probe for accounts;
// delivery runs in the background and failures are only logged.
func (s *service) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) *ForgotPasswordResponse {
	ack := &ForgotPasswordResponse{Message: forgotPasswordAck}

	email := strings.TrimSpace(req.Email)
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) && s.logg != nil {
			s.logg.Error(ctx, "forgot-password lookup failed", err)
		}
		return ack
	}

	code, err := security.GenerateOTP()
	if err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "forgot-password otp generation failed", err)
		}
		return ack
	}
	expiresAt := time.Now().UTC().Add(s.otpTTL)
	if err := s.users.SetOTP(ctx, user.ID, code, expiresAt); err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "forgot-password otp store failed", err)
		}
		return ack
	}

	// Best-effort side channel: the caller has already been acknowledged.
	sendCtx := context.WithoutCancel(ctx)
	go func() {
		if err := s.mail.Send(sendCtx, user.Email, resetSubject, s.resetBody(code)); err != nil && s.logg != nil {
			s.logg.Error(s.logg.WithUserID(sendCtx, user.ID.String()), "forgot-password delivery failed", err)
		}
	}()

	return ack
}

// ResetPassword completes a reset: code validity is checked before any write,
// then the hash is replaced, codes are cleared, and the account is marked
// verified in a single update.
func (s *service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, invalidCodeMessage)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	if !security.OTPMatches(user.OTPCode, req.Code.String(), user.OTPExpiresAt, time.Now().UTC()) {
		return pkgerrors.New(pkgerrors.CodeValidation, invalidCodeMessage)
	}

	passwordHash, err := security.HashPassword(req.NewPassword, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	if err := s.users.ResetPassword(ctx, user.ID, passwordHash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reset password")
	}
	return nil
}

// Profile returns the sanitized payload for the authenticated user.
func (s *service) Profile(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	return users.FromModel(user), nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	input := strings.TrimSpace(email)
	if input == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByEmail(ctx, input)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	if user.PasswordHash == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

func (s *service) verificationBody(code string) string {
	return fmt.Sprintf("Your verification code is %s. It expires in %s.", code, ttlWording(s.otpTTL))
}

func (s *service) resetBody(code string) string {
	return fmt.Sprintf("Your password reset code is %s. It expires in %s.", code, ttlWording(s.otpTTL))
}

func ttlWording(ttl time.Duration) string {
	minutes := int(ttl.Minutes())
	if minutes < 1 || ttl != time.Duration(minutes)*time.Minute {
		return ttl.String()
	}
	if minutes == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}

package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/quillchat/quill-api/internal/model"
	"github.com/quillchat/quill-api/internal/notify"
	"github.com/quillchat/quill-api/internal/store"
	"github.com/quillchat/quill-api/pkg/logger"
)

const bcryptCost = 12

// AuthService handles registration, verification and authentication.
type AuthService struct {
	store     *store.Store
	notifier  notify.Notifier
	logger    *logger.Logger
	jwtSecret []byte
	jwtTTL    time.Duration
	codeTTL   time.Duration
}

// NewAuthService creates a new auth service.
func NewAuthService(st *store.Store, notifier notify.Notifier, log *logger.Logger, jwtSecret string, jwtTTL, codeTTL time.Duration) *AuthService {
	return &AuthService{
		store:     st,
		notifier:  notifier,
		logger:    log,
		jwtSecret: []byte(jwtSecret),
		jwtTTL:    jwtTTL,
		codeTTL:   codeTTL,
	}
}

// RegisterResult reports the outcome of a registration attempt.
type RegisterResult struct {
	User              *model.User `json:"user"`
	NeedsVerification bool        `json:"needs_verification"`
}

// Register creates an unverified account and sends a verification code.
// Registering an existing unverified email re-issues the code instead of
// failing; a verified duplicate is rejected.
func (s *AuthService) Register(ctx context.Context, req *model.RegisterRequest) (*RegisterResult, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if name == "" {
		return nil, invalidField("name", "name is required")
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	existing, err := s.store.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	if existing != nil {
		if existing.IsVerified {
			return nil, ErrEmailExists
		}
		// Unverified re-registration: issue a fresh code.
		if err := s.issueVerificationCode(ctx, existing); err != nil {
			return nil, err
		}
		return &RegisterResult{User: existing, NeedsVerification: true}, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	code, err := generateCode()
	if err != nil {
		return nil, err
	}

	user, err := s.store.CreateUser(ctx, name, email, string(hash), code, time.Now().UTC().Add(s.codeTTL))
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))

	if err := s.notifier.VerificationCode(ctx, email, name, code); err != nil {
		// Registration already succeeded; the user can request a resend.
		s.logger.Warn("failed to send verification email", zap.Error(err))
	}

	return &RegisterResult{User: user, NeedsVerification: true}, nil
}

// Verify consumes a verification code and marks the account verified.
func (s *AuthService) Verify(ctx context.Context, req *model.VerifyRequest) error {
	if err := validateCode(req.Code); err != nil {
		return err
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return err
	}

	if user.IsVerified {
		return ErrAlreadyVerified
	}
	if user.VerificationCode == "" || user.CodeExpiry == nil {
		return ErrInvalidCode
	}
	if time.Now().After(*user.CodeExpiry) {
		return ErrCodeExpired
	}
	if user.VerificationCode != req.Code {
		return ErrInvalidCode
	}

	if err := s.store.MarkVerified(ctx, user.ID); err != nil {
		return err
	}

	s.logger.Info("user verified", zap.String("user_id", user.ID))

	if err := s.notifier.Welcome(ctx, user.Email, user.Name); err != nil {
		s.logger.Warn("failed to send welcome email", zap.Error(err))
	}

	return nil
}

// ResendCode issues a fresh verification code for an unverified account.
func (s *AuthService) ResendCode(ctx context.Context, email string) error {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.IsVerified {
		return ErrAlreadyVerified
	}

	return s.issueVerificationCode(ctx, user)
}

// Login authenticates a verified user and issues a signed token.
func (s *AuthService) Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !user.IsVerified {
		return nil, ErrNotVerified
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(s.jwtTTL).Unix(),
	})

	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &model.LoginResponse{User: *user, Token: signed}, nil
}

// ForgotPassword issues a reset code. The response never reveals whether the
// account exists.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	code, err := generateCode()
	if err != nil {
		return err
	}
	if err := s.store.SetResetCode(ctx, user.ID, code, time.Now().UTC().Add(s.codeTTL)); err != nil {
		return err
	}

	if err := s.notifier.PasswordReset(ctx, user.Email, user.Name, code); err != nil {
		s.logger.Warn("failed to send password reset email", zap.Error(err))
	}

	return nil
}

// ResetPassword consumes a reset code and replaces the password.
func (s *AuthService) ResetPassword(ctx context.Context, req *model.ResetPasswordRequest) error {
	if err := validateCode(req.Code); err != nil {
		return err
	}
	if err := validatePassword(req.NewPassword); err != nil {
		return err
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidCode
	}
	if err != nil {
		return err
	}

	if user.ResetPasswordCode == "" || user.ResetPasswordUntil == nil {
		return ErrInvalidCode
	}
	if user.ResetPasswordCode != req.Code {
		return ErrInvalidCode
	}
	if time.Now().After(*user.ResetPasswordUntil) {
		return ErrCodeExpired
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.store.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return err
	}

	s.logger.Info("password reset", zap.String("user_id", user.ID))

	return nil
}

func (s *AuthService) issueVerificationCode(ctx context.Context, user *model.User) error {
	code, err := generateCode()
	if err != nil {
		return err
	}
	if err := s.store.SetVerificationCode(ctx, user.ID, code, time.Now().UTC().Add(s.codeTTL)); err != nil {
		return err
	}

	if err := s.notifier.VerificationCode(ctx, user.Email, user.Name, code); err != nil {
		s.logger.Warn("failed to send verification email", zap.Error(err))
	}

	return nil
}

// generateCode returns a random 6-digit numeric code.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func validateEmail(email string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return invalidField("email", "invalid email format")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return invalidField("password", "password must be at least 8 characters")
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return invalidField("password", "password must contain an uppercase letter, a lowercase letter and a number")
	}
	return nil
}

func validateCode(code string) error {
	if len(code) != 6 {
		return invalidField("code", "verification code must be 6 digits")
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return invalidField("code", "verification code must contain only numbers")
		}
	}
	return nil
}

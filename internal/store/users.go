package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quillchat/quill-api/internal/model"
)

// CreateUser inserts a new unverified user record.
func (s *Store) CreateUser(ctx context.Context, name, email, passwordHash, verificationCode string, codeExpiry time.Time) (*model.User, error) {
	user := &model.User{
		ID:               uuid.Must(uuid.NewV7()).String(),
		Name:             name,
		Email:            strings.ToLower(email),
		PasswordHash:     passwordHash,
		IsVerified:       false,
		VerificationCode: verificationCode,
		CodeExpiry:       &codeExpiry,
		CreatedAt:        time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, is_verified, verification_code, code_expiry, created_at)
		 VALUES (?, ?, ?, ?, 0, ?, ?, ?)`,
		user.ID, user.Name, user.Email, user.PasswordHash, user.VerificationCode, nanos(codeExpiry), nanos(user.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	return user, nil
}

// GetUserByEmail looks up a user by email, case-insensitively.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getUser(ctx, `email = ?`, strings.ToLower(email))
}

// GetUserByID looks up a user by id.
func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.getUser(ctx, `id = ?`, id)
}

func (s *Store) getUser(ctx context.Context, where string, arg any) (*model.User, error) {
	var user model.User
	var verified int
	var createdAt int64
	var code, resetCode sql.NullString
	var codeExpiry, resetExpiry sql.NullInt64

	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, is_verified, verification_code, code_expiry, reset_code, reset_expiry, created_at
		 FROM users WHERE `+where,
		arg,
	).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &verified,
		&code, &codeExpiry, &resetCode, &resetExpiry, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	user.IsVerified = verified != 0
	user.CreatedAt = fromNanos(createdAt)
	user.VerificationCode = code.String
	if codeExpiry.Valid {
		t := fromNanos(codeExpiry.Int64)
		user.CodeExpiry = &t
	}
	user.ResetPasswordCode = resetCode.String
	if resetExpiry.Valid {
		t := fromNanos(resetExpiry.Int64)
		user.ResetPasswordUntil = &t
	}

	return &user, nil
}

// SetVerificationCode stores a fresh verification code with its expiry.
func (s *Store) SetVerificationCode(ctx context.Context, userID, code string, expiry time.Time) error {
	return s.updateUser(ctx,
		`UPDATE users SET verification_code = ?, code_expiry = ? WHERE id = ?`,
		code, nanos(expiry), userID,
	)
}

// MarkVerified flags the user as verified and clears the pending code.
func (s *Store) MarkVerified(ctx context.Context, userID string) error {
	return s.updateUser(ctx,
		`UPDATE users SET is_verified = 1, verification_code = NULL, code_expiry = NULL WHERE id = ?`,
		userID,
	)
}

// SetResetCode stores a fresh password reset code with its expiry.
func (s *Store) SetResetCode(ctx context.Context, userID, code string, expiry time.Time) error {
	return s.updateUser(ctx,
		`UPDATE users SET reset_code = ?, reset_expiry = ? WHERE id = ?`,
		code, nanos(expiry), userID,
	)
}

// UpdatePassword replaces the password hash and consumes any reset code.
func (s *Store) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return s.updateUser(ctx,
		`UPDATE users SET password_hash = ?, reset_code = NULL, reset_expiry = NULL WHERE id = ?`,
		passwordHash, userID,
	)
}

func (s *Store) updateUser(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Package service provides business logic for the chat backend.
package service

import (
	"errors"
	"fmt"
)

// Sentinel errors mapped to HTTP statuses at the handler boundary.
var (
	// ErrForbidden means the chat does not exist or belongs to another user.
	// The two cases are indistinguishable on purpose.
	ErrForbidden = errors.New("not authorized for this chat")

	// ErrProviderFailure means the LLM call failed or returned unusable
	// output. The user message persisted before the call stays in place;
	// the caller retries by resubmitting.
	ErrProviderFailure = errors.New("AI provider request failed")

	// ErrEmailExists means a verified account already uses the email.
	ErrEmailExists = errors.New("user with this email already exists")

	// ErrInvalidCredentials covers unknown email and wrong password alike.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrNotVerified means the account has not completed email verification.
	ErrNotVerified = errors.New("email not verified")

	// ErrAlreadyVerified means the account does not need verification.
	ErrAlreadyVerified = errors.New("email is already verified")

	// ErrInvalidCode means the supplied verification or reset code is wrong
	// or was never issued.
	ErrInvalidCode = errors.New("invalid code")

	// ErrCodeExpired means the code's validity window has passed.
	ErrCodeExpired = errors.New("code has expired")
)

// ValidationError reports a field-level input problem.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalidField(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// Package model defines data structures for the chat service.
package model

import (
	"time"
)

// User represents a registered account.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsVerified   bool      `json:"is_verified"`
	CreatedAt    time.Time `json:"created_at"`

	// Pending verification state, cleared once the code is consumed.
	VerificationCode   string     `json:"-"`
	CodeExpiry         *time.Time `json:"-"`
	ResetPasswordCode  string     `json:"-"`
	ResetPasswordUntil *time.Time `json:"-"`
}

// RegisterRequest is the request to create a new account.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerifyRequest is the request to verify an email address.
type VerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// ResendCodeRequest is the request to re-issue a verification code.
type ResendCodeRequest struct {
	Email string `json:"email"`
}

// LoginRequest is the request to authenticate.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ForgotPasswordRequest starts a password reset.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest completes a password reset.
type ResetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// LoginResponse is returned on successful authentication.
type LoginResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

package auth

import (
	"encoding/json"
	"strings"

	"github.com/calderahq/storefront-backend/internal/users"
)

// OTPCode accepts both string and numeric JSON encodings so a client sending
// 482913 and one sending "482913" validate identically.
type OTPCode string

func (c *OTPCode) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		var value string
		if err := json.Unmarshal(data, &value); err != nil {
			return err
		}
		*c = OTPCode(value)
		return nil
	}
	var value json.Number
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	*c = OTPCode(value.String())
	return nil
}

func (c OTPCode) String() string {
	return string(c)
}

// SignupRequest captures the payload for creating a new account.
type SignupRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// SignupResponse reports the pending-verification account. No token is issued
// until the emailed code is confirmed.
type SignupResponse struct {
	User                 *users.UserDTO `json:"user"`
	VerificationRequired bool           `json:"verification_required"`
}

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries either an access token (verified accounts) or a
// verification-required signal (a fresh code was just emailed).
type LoginResponse struct {
	AccessToken          string         `json:"access_token,omitempty"`
	VerificationRequired bool           `json:"verification_required"`
	User                 *users.UserDTO `json:"user"`
}

// VerifyEmailRequest carries the emailed one-time code back to the server.
type VerifyEmailRequest struct {
	Email string  `json:"email" validate:"required,email"`
	Code  OTPCode `json:"code" validate:"required"`
}

// VerifyEmailResponse returns the freshly minted session after verification.
type VerifyEmailResponse struct {
	AccessToken string         `json:"access_token"`
	User        *users.UserDTO `json:"user"`
}

// ForgotPasswordRequest asks for a reset code to be emailed.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ForgotPasswordResponse is identical whether or not the account exists.
type ForgotPasswordResponse struct {
	Message string `json:"message"`
}

// ResetPasswordRequest completes a password reset with the emailed code.
type ResetPasswordRequest struct {
	Email       string  `json:"email" validate:"required,email"`
	Code        OTPCode `json:"code" validate:"required"`
	NewPassword string  `json:"new_password" validate:"required,min=6"`
}

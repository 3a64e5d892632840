package model

import "github.com/google/uuid"

type TokenClaims struct {
	SubjectID  uuid.UUID  `json:"subject_id"`
	Email      string     `json:"email"`
	Role       string     `json:"role"`
	Department Department `json:"department,omitempty"`
}

const (
	RolePatient = "patient"
	RoleAdmin   = "admin"
	RoleSuper   = "super"
)

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AdminLoginRequest starts the two-step admin login; the response tells the
// caller to verify the emailed OTP.
type AdminLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

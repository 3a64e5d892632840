package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/cityclinic/booking-api/internal/email"
	"github.com/cityclinic/booking-api/internal/model"
	"github.com/cityclinic/booking-api/internal/repository"
	"github.com/cityclinic/booking-api/pkg/auth"
	"github.com/cityclinic/booking-api/pkg/logger"
	"github.com/cityclinic/booking-api/pkg/security"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrOTPNotFound        = errors.New("verification code is invalid or expired")
	ErrOTPMismatch        = errors.New("verification code does not match")
)

const (
	otpPurposeLogin = "admin_login"
	otpPurposeReset = "password_reset"
)

// Service owns authentication: patient signup and login, the two-step admin
// login (password then emailed OTP) and the OTP-backed password reset.
type Service struct {
	patients repository.PatientRepository
	admins   repository.AdminRepository
	hasher   security.PasswordHasher
	tokens   auth.JWTService
	otp      OTPStore
	sender   email.Sender
	logger   *logger.Logger
}

func NewService(
	patients repository.PatientRepository,
	admins repository.AdminRepository,
	hasher security.PasswordHasher,
	tokens auth.JWTService,
	otp OTPStore,
	sender email.Sender,
	l *logger.Logger,
) *Service {
	return &Service{
		patients: patients,
		admins:   admins,
		hasher:   hasher,
		tokens:   tokens,
		otp:      otp,
		sender:   sender,
		logger:   l,
	}
}

// Signup registers a patient account and returns it with a token.
func (s *Service) Signup(ctx context.Context, req *model.SignupRequest) (*model.Patient, *model.TokenResponse, error) {
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, nil, err
	}

	patient := &model.Patient{
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Phone:        req.Phone,
		Gender:       req.Gender,
		Address:      req.Address,
	}
	if req.DateOfBirth != "" {
		dob, err := time.Parse(model.DateFormat, req.DateOfBirth)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid date_of_birth: %w", err)
		}
		patient.DateOfBirth = &dob
	}

	if err := s.patients.Create(ctx, patient); err != nil {
		if isUniqueViolation(err) {
			return nil, nil, ErrEmailTaken
		}
		return nil, nil, fmt.Errorf("failed to create patient: %w", err)
	}

	token, err := s.issueToken(patient.ID, patient.Email, model.RolePatient, "")
	if err != nil {
		return nil, nil, err
	}
	return patient, token, nil
}

// Login authenticates a patient and returns a token.
func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.Patient, *model.TokenResponse, error) {
	patient, err := s.patients.GetByEmail(ctx, req.Email)
	if err == repository.ErrNotFound {
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}
	if err := s.hasher.Compare(patient.PasswordHash, req.Password); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	token, err := s.issueToken(patient.ID, patient.Email, model.RolePatient, "")
	if err != nil {
		return nil, nil, err
	}
	return patient, token, nil
}

// AdminLogin verifies the password and emails a one-time code. No token is
// issued until VerifyAdminOTP succeeds.
func (s *Service) AdminLogin(ctx context.Context, req *model.AdminLoginRequest) error {
	admin, err := s.admins.GetByEmail(ctx, req.Email)
	if err == repository.ErrNotFound {
		return ErrInvalidCredentials
	}
	if err != nil {
		return err
	}
	if err := s.hasher.Compare(admin.PasswordHash, req.Password); err != nil {
		return ErrInvalidCredentials
	}

	return s.sendOTP(ctx, otpPurposeLogin, admin.Email, admin.Name)
}

// VerifyAdminOTP consumes the login code and issues the admin token.
func (s *Service) VerifyAdminOTP(ctx context.Context, req *model.VerifyOTPRequest) (*model.Admin, *model.TokenResponse, error) {
	admin, err := s.admins.GetByEmail(ctx, req.Email)
	if err == repository.ErrNotFound {
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}

	if err := s.consumeOTP(ctx, otpPurposeLogin, admin.Email, req.Code); err != nil {
		return nil, nil, err
	}

	role := model.RoleAdmin
	if admin.Role == model.AdminRoleSuper {
		role = model.RoleSuper
	}
	token, err := s.issueToken(admin.ID, admin.Email, role, admin.Department)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	admin.LastLoginAt = &now
	if err := s.admins.Update(ctx, admin); err != nil {
		s.logger.Warn("failed to record admin login time",
			"admin_id", admin.ID.String(), "error", fmt.Sprint(err))
	}
	return admin, token, nil
}

// RequestPasswordReset emails a reset code to the patient. An unknown email
// is reported as success so the endpoint cannot be used to probe accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	patient, err := s.patients.GetByEmail(ctx, emailAddr)
	if err == repository.ErrNotFound {
		s.logger.Info("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return err
	}
	return s.sendOTP(ctx, otpPurposeReset, patient.Email, patient.FullName())
}

// ResetPassword consumes the reset code and sets the new password.
func (s *Service) ResetPassword(ctx context.Context, req *model.ResetPasswordRequest) error {
	patient, err := s.patients.GetByEmail(ctx, req.Email)
	if err == repository.ErrNotFound {
		return ErrOTPNotFound
	}
	if err != nil {
		return err
	}

	if err := s.consumeOTP(ctx, otpPurposeReset, patient.Email, req.Code); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return err
	}
	patient.PasswordHash = hash
	if err := s.patients.Update(ctx, patient); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

func (s *Service) sendOTP(ctx context.Context, purpose, emailAddr, name string) error {
	code, err := generateOTP()
	if err != nil {
		return err
	}
	if err := s.otp.Put(ctx, purpose, emailAddr, code); err != nil {
		return err
	}
	if err := s.sender.SendOTP(ctx, emailAddr, name, code); err != nil {
		return fmt.Errorf("failed to send verification code: %w", err)
	}
	return nil
}

func (s *Service) consumeOTP(ctx context.Context, purpose, emailAddr, code string) error {
	stored, err := s.otp.Consume(ctx, purpose, emailAddr)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return ErrOTPMismatch
	}
	return nil
}

func (s *Service) issueToken(subjectID uuid.UUID, emailAddr, role string, dept model.Department) (*model.TokenResponse, error) {
	claims := &model.TokenClaims{
		SubjectID:  subjectID,
		Email:      emailAddr,
		Role:       role,
		Department: dept,
	}

	signed, expiresAt, err := s.tokens.GenerateToken(claims)
	if err != nil {
		return nil, err
	}
	return &model.TokenResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(time.Until(expiresAt).Seconds()),
	}, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

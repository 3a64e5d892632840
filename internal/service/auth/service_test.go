package auth

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cityclinic/booking-api/internal/model"
	"github.com/cityclinic/booking-api/internal/repository"
	"github.com/cityclinic/booking-api/pkg/auth"
	"github.com/cityclinic/booking-api/pkg/logger"
	"github.com/cityclinic/booking-api/pkg/security"
)

type fakePatientRepo struct {
	byEmail map[string]*model.Patient
}

func newFakePatientRepo() *fakePatientRepo {
	return &fakePatientRepo{byEmail: make(map[string]*model.Patient)}
}

func (r *fakePatientRepo) Create(ctx context.Context, p *model.Patient) error {
	if _, ok := r.byEmail[p.Email]; ok {
		return &pq.Error{Code: "23505"}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.byEmail[p.Email] = p
	return nil
}

func (r *fakePatientRepo) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	for _, p := range r.byEmail {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakePatientRepo) GetByEmail(ctx context.Context, email string) (*model.Patient, error) {
	p, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (r *fakePatientRepo) Update(ctx context.Context, p *model.Patient) error {
	r.byEmail[p.Email] = p
	return nil
}

func (r *fakePatientRepo) List(ctx context.Context, search string, limit, offset int) ([]*model.Patient, error) {
	return nil, nil
}

type fakeAdminRepo struct {
	byEmail map[string]*model.Admin
}

func (r *fakeAdminRepo) GetByEmail(ctx context.Context, email string) (*model.Admin, error) {
	a, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return a, nil
}

func (r *fakeAdminRepo) Get(ctx context.Context, id uuid.UUID) (*model.Admin, error) {
	for _, a := range r.byEmail {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeAdminRepo) Update(ctx context.Context, a *model.Admin) error { return nil }

type fakeOTPStore struct {
	codes map[string]string
}

func newFakeOTPStore() *fakeOTPStore {
	return &fakeOTPStore{codes: make(map[string]string)}
}

func (s *fakeOTPStore) Put(ctx context.Context, purpose, email, code string) error {
	s.codes[purpose+":"+email] = code
	return nil
}

func (s *fakeOTPStore) Consume(ctx context.Context, purpose, email string) (string, error) {
	code, ok := s.codes[purpose+":"+email]
	if !ok {
		return "", ErrOTPNotFound
	}
	delete(s.codes, purpose+":"+email)
	return code, nil
}

type fakeSender struct {
	otps map[string]string
}

func newFakeSender() *fakeSender {
	return &fakeSender{otps: make(map[string]string)}
}

func (s *fakeSender) SendAppointmentUpdate(ctx context.Context, to, name, subject, message, date, slotTime string) error {
	return nil
}

func (s *fakeSender) SendOTP(ctx context.Context, to, name, code string) error {
	s.otps[to] = code
	return nil
}

type fixture struct {
	svc      *Service
	patients *fakePatientRepo
	admins   *fakeAdminRepo
	otp      *fakeOTPStore
	sender   *fakeSender
	hasher   security.PasswordHasher
}

func newFixture() *fixture {
	f := &fixture{
		patients: newFakePatientRepo(),
		admins:   &fakeAdminRepo{byEmail: make(map[string]*model.Admin)},
		otp:      newFakeOTPStore(),
		sender:   newFakeSender(),
		hasher:   security.NewBcryptHasher(4),
	}
	tokens := auth.NewJWTService("test-secret", time.Hour)
	l := logger.New(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	f.svc = NewService(f.patients, f.admins, f.hasher, tokens, f.otp, f.sender, l)
	return f
}

func (f *fixture) addAdmin(email string, dept model.Department) *model.Admin {
	hash, _ := f.hasher.Hash("admin-password")
	a := &model.Admin{
		ID:           uuid.New(),
		Name:         "Dr. Admin",
		Email:        email,
		PasswordHash: hash,
		Role:         model.AdminRoleDepartment,
		Department:   dept,
		Active:       true,
	}
	f.admins.byEmail[email] = a
	return a
}

func signupRequest() *model.SignupRequest {
	return &model.SignupRequest{
		FirstName: "Aster",
		LastName:  "Bekele",
		Email:     "Aster@Example.com",
		Password:  "secret-password",
	}
}

func TestSignupNormalizesEmailAndIssuesToken(t *testing.T) {
	f := newFixture()

	patient, token, err := f.svc.Signup(context.Background(), signupRequest())
	require.NoError(t, err)

	assert.Equal(t, "aster@example.com", patient.Email)
	assert.NotEqual(t, "secret-password", patient.PasswordHash)
	require.NotNil(t, token)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.NotEmpty(t, token.AccessToken)
}

func TestSignupDuplicateEmail(t *testing.T) {
	f := newFixture()

	_, _, err := f.svc.Signup(context.Background(), signupRequest())
	require.NoError(t, err)

	_, _, err = f.svc.Signup(context.Background(), signupRequest())
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLogin(t *testing.T) {
	f := newFixture()
	_, _, err := f.svc.Signup(context.Background(), signupRequest())
	require.NoError(t, err)

	_, token, err := f.svc.Login(context.Background(), &model.LoginRequest{
		Email:    "aster@example.com",
		Password: "secret-password",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, token.AccessToken)

	_, _, err = f.svc.Login(context.Background(), &model.LoginRequest{
		Email:    "aster@example.com",
		Password: "wrong",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = f.svc.Login(context.Background(), &model.LoginRequest{
		Email:    "nobody@example.com",
		Password: "secret-password",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAdminLoginSendsOTPWithoutToken(t *testing.T) {
	f := newFixture()
	f.addAdmin("dental@clinic.example", model.DepartmentDental)

	err := f.svc.AdminLogin(context.Background(), &model.AdminLoginRequest{
		Email:    "dental@clinic.example",
		Password: "admin-password",
	})
	require.NoError(t, err)

	code := f.sender.otps["dental@clinic.example"]
	require.Len(t, code, 6)
}

func TestAdminLoginWrongPasswordSendsNothing(t *testing.T) {
	f := newFixture()
	f.addAdmin("dental@clinic.example", model.DepartmentDental)

	err := f.svc.AdminLogin(context.Background(), &model.AdminLoginRequest{
		Email:    "dental@clinic.example",
		Password: "wrong",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Empty(t, f.sender.otps)
}

func TestVerifyAdminOTPIssuesScopedToken(t *testing.T) {
	f := newFixture()
	admin := f.addAdmin("dental@clinic.example", model.DepartmentDental)

	require.NoError(t, f.svc.AdminLogin(context.Background(), &model.AdminLoginRequest{
		Email:    "dental@clinic.example",
		Password: "admin-password",
	}))
	code := f.sender.otps["dental@clinic.example"]

	got, token, err := f.svc.VerifyAdminOTP(context.Background(), &model.VerifyOTPRequest{
		Email: "dental@clinic.example",
		Code:  code,
	})
	require.NoError(t, err)
	assert.Equal(t, admin.ID, got.ID)

	tokens := auth.NewJWTService("test-secret", time.Hour)
	claims, err := tokens.ValidateToken(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, claims.Role)
	assert.Equal(t, model.DepartmentDental, claims.Department)
}

func TestVerifyAdminOTPSingleUse(t *testing.T) {
	f := newFixture()
	f.addAdmin("dental@clinic.example", model.DepartmentDental)

	require.NoError(t, f.svc.AdminLogin(context.Background(), &model.AdminLoginRequest{
		Email:    "dental@clinic.example",
		Password: "admin-password",
	}))
	code := f.sender.otps["dental@clinic.example"]

	req := &model.VerifyOTPRequest{Email: "dental@clinic.example", Code: code}
	_, _, err := f.svc.VerifyAdminOTP(context.Background(), req)
	require.NoError(t, err)

	_, _, err = f.svc.VerifyAdminOTP(context.Background(), req)
	assert.ErrorIs(t, err, ErrOTPNotFound)
}

func TestVerifyAdminOTPWrongCode(t *testing.T) {
	f := newFixture()
	f.addAdmin("dental@clinic.example", model.DepartmentDental)

	require.NoError(t, f.svc.AdminLogin(context.Background(), &model.AdminLoginRequest{
		Email:    "dental@clinic.example",
		Password: "admin-password",
	}))

	_, _, err := f.svc.VerifyAdminOTP(context.Background(), &model.VerifyOTPRequest{
		Email: "dental@clinic.example",
		Code:  "000000",
	})
	assert.ErrorIs(t, err, ErrOTPMismatch)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture()
	_, _, err := f.svc.Signup(context.Background(), signupRequest())
	require.NoError(t, err)

	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "aster@example.com"))
	code := f.sender.otps["aster@example.com"]
	require.Len(t, code, 6)

	require.NoError(t, f.svc.ResetPassword(context.Background(), &model.ResetPasswordRequest{
		Email:       "aster@example.com",
		Code:        code,
		NewPassword: "brand-new-password",
	}))

	_, _, err = f.svc.Login(context.Background(), &model.LoginRequest{
		Email:    "aster@example.com",
		Password: "brand-new-password",
	})
	assert.NoError(t, err)

	_, _, err = f.svc.Login(context.Background(), &model.LoginRequest{
		Email:    "aster@example.com",
		Password: "secret-password",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestPasswordResetUnknownEmailIsSilent(t *testing.T) {
	f := newFixture()

	err := f.svc.RequestPasswordReset(context.Background(), "ghost@example.com")
	assert.NoError(t, err)
	assert.Empty(t, f.sender.otps)
}

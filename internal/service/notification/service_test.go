package notification

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cityclinic/booking-api/internal/model"
	"github.com/cityclinic/booking-api/internal/repository"
	"github.com/cityclinic/booking-api/pkg/logger"
	"github.com/cityclinic/booking-api/pkg/metrics"
)

var testMetrics = metrics.New("notification_test")

type fakePatientRepo struct {
	patients map[uuid.UUID]*model.Patient
}

func (r *fakePatientRepo) Create(ctx context.Context, p *model.Patient) error { return nil }
func (r *fakePatientRepo) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	p, ok := r.patients[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}
func (r *fakePatientRepo) GetByEmail(ctx context.Context, email string) (*model.Patient, error) {
	return nil, repository.ErrNotFound
}
func (r *fakePatientRepo) Update(ctx context.Context, p *model.Patient) error { return nil }
func (r *fakePatientRepo) List(ctx context.Context, search string, limit, offset int) ([]*model.Patient, error) {
	return nil, nil
}

type fakeNotificationRepo struct {
	created []*model.Notification
}

func (r *fakeNotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	r.created = append(r.created, n)
	return nil
}
func (r *fakeNotificationRepo) ListByPatient(ctx context.Context, patientID uuid.UUID, unreadOnly bool) ([]*model.Notification, error) {
	return r.created, nil
}
func (r *fakeNotificationRepo) MarkRead(ctx context.Context, patientID, id uuid.UUID) error {
	return nil
}
func (r *fakeNotificationRepo) MarkAllRead(ctx context.Context, patientID uuid.UUID) error {
	return nil
}

type fakeAdminNotificationRepo struct {
	created []*model.AdminNotification
}

func (r *fakeAdminNotificationRepo) Create(ctx context.Context, n *model.AdminNotification) error {
	r.created = append(r.created, n)
	return nil
}
func (r *fakeAdminNotificationRepo) ListByDepartment(ctx context.Context, dept model.Department, unreadOnly bool) ([]*model.AdminNotification, error) {
	return r.created, nil
}
func (r *fakeAdminNotificationRepo) MarkRead(ctx context.Context, dept model.Department, id uuid.UUID) error {
	return nil
}
func (r *fakeAdminNotificationRepo) MarkAllRead(ctx context.Context, dept model.Department) error {
	return nil
}
func (r *fakeAdminNotificationRepo) Delete(ctx context.Context, dept model.Department, id uuid.UUID) error {
	return nil
}

type sentEmail struct {
	to, subject, message string
}

type fakeSender struct {
	sent []sentEmail
	err  error
}

func (s *fakeSender) SendAppointmentUpdate(ctx context.Context, to, name, subject, message, date, slotTime string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentEmail{to: to, subject: subject, message: message})
	return nil
}

func (s *fakeSender) SendOTP(ctx context.Context, to, name, code string) error { return nil }

type published struct {
	channel string
	message interface{}
}

type fakeBroker struct {
	published []published
}

func (b *fakeBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	b.published = append(b.published, published{channel: channel, message: message})
	return nil
}
func (b *fakeBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return nil, nil
}
func (b *fakeBroker) Close() error { return nil }

type fixture struct {
	svc        *Service
	patients   *fakePatientRepo
	inApp      *fakeNotificationRepo
	adminInbox *fakeAdminNotificationRepo
	sender     *fakeSender
	broker     *fakeBroker
}

func newFixture() *fixture {
	f := &fixture{
		patients:   &fakePatientRepo{patients: make(map[uuid.UUID]*model.Patient)},
		inApp:      &fakeNotificationRepo{},
		adminInbox: &fakeAdminNotificationRepo{},
		sender:     &fakeSender{},
		broker:     &fakeBroker{},
	}
	l := logger.New(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	f.svc = NewService(f.patients, f.inApp, f.adminInbox, f.sender, f.broker, l, testMetrics)
	return f
}

func (f *fixture) addPatient(email string) *model.Patient {
	p := &model.Patient{
		ID:        uuid.New(),
		FirstName: "Aster",
		LastName:  "Bekele",
		Email:     email,
	}
	f.patients.patients[p.ID] = p
	return p
}

func makeEvent(t *testing.T, eventType string, patientID uuid.UUID, reason string) *model.OutboxEvent {
	t.Helper()
	apt := &model.Appointment{
		ID:         uuid.New(),
		Number:     "DEN-2026-000042",
		PatientID:  patientID,
		Department: model.DepartmentDental,
		Date:       "2026-09-10",
		SlotTime:   "09:00",
		Status:     model.AppointmentStatusPending,
	}
	evt, err := model.NewAppointmentOutboxEvent(eventType, apt, reason)
	require.NoError(t, err)
	return evt
}

func TestDispatchCreatedEvent(t *testing.T) {
	f := newFixture()
	p := f.addPatient("aster@example.com")

	err := f.svc.Dispatch(context.Background(), makeEvent(t, model.EventAppointmentCreated, p.ID, ""))
	require.NoError(t, err)

	require.Len(t, f.inApp.created, 1)
	assert.Equal(t, p.ID, f.inApp.created[0].PatientID)
	assert.False(t, f.inApp.created[0].Read)

	require.Len(t, f.adminInbox.created, 1)
	assert.Equal(t, model.AdminNotificationNewBooking, f.adminInbox.created[0].Kind)
	assert.Equal(t, model.DepartmentDental, f.adminInbox.created[0].Department)

	require.Len(t, f.broker.published, 1)
	assert.Equal(t, "admin:notifications:dental", f.broker.published[0].channel)

	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "aster@example.com", f.sender.sent[0].to)
}

func TestDispatchSkipsEmailForInvalidAddress(t *testing.T) {
	f := newFixture()
	p := f.addPatient("not-an-address")

	err := f.svc.Dispatch(context.Background(), makeEvent(t, model.EventAppointmentApproved, p.ID, ""))
	require.NoError(t, err)

	assert.Empty(t, f.sender.sent)
	// The in-app notification still lands.
	require.Len(t, f.inApp.created, 1)
}

func TestDispatchSkipsEmailForMissingAddress(t *testing.T) {
	f := newFixture()
	p := f.addPatient("")

	err := f.svc.Dispatch(context.Background(), makeEvent(t, model.EventAppointmentRejected, p.ID, "out of capacity"))
	require.NoError(t, err)

	assert.Empty(t, f.sender.sent)
	require.Len(t, f.inApp.created, 1)
	assert.Contains(t, f.inApp.created[0].Body, "out of capacity")
}

func TestDispatchEmailFailureDoesNotFailEvent(t *testing.T) {
	f := newFixture()
	f.sender.err = assert.AnError
	p := f.addPatient("aster@example.com")

	err := f.svc.Dispatch(context.Background(), makeEvent(t, model.EventAppointmentApproved, p.ID, ""))
	assert.NoError(t, err)
	require.Len(t, f.inApp.created, 1)
}

func TestDispatchApprovedSkipsAdminInbox(t *testing.T) {
	f := newFixture()
	p := f.addPatient("aster@example.com")

	err := f.svc.Dispatch(context.Background(), makeEvent(t, model.EventAppointmentApproved, p.ID, ""))
	require.NoError(t, err)

	assert.Empty(t, f.adminInbox.created)
	assert.Empty(t, f.broker.published)
}

func TestDispatchCancelledNotifiesAdmins(t *testing.T) {
	f := newFixture()
	p := f.addPatient("aster@example.com")

	err := f.svc.Dispatch(context.Background(), makeEvent(t, model.EventAppointmentCancelled, p.ID, ""))
	require.NoError(t, err)

	require.Len(t, f.adminInbox.created, 1)
	assert.Equal(t, model.AdminNotificationCancellation, f.adminInbox.created[0].Kind)
}

func TestDispatchUnknownPatientFailsForRetry(t *testing.T) {
	f := newFixture()

	err := f.svc.Dispatch(context.Background(), makeEvent(t, model.EventAppointmentCreated, uuid.New(), ""))
	assert.Error(t, err)
	assert.Empty(t, f.inApp.created)
}

func TestDispatchMalformedPayload(t *testing.T) {
	f := newFixture()

	err := f.svc.Dispatch(context.Background(), &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: model.EventAppointmentCreated,
		Payload:   []byte("{not json"),
	})
	assert.Error(t, err)
}

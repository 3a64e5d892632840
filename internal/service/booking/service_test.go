package booking

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cityclinic/booking-api/internal/model"
	"github.com/cityclinic/booking-api/internal/repository"
	"github.com/cityclinic/booking-api/internal/service/slot"
	"github.com/cityclinic/booking-api/pkg/logger"
	"github.com/cityclinic/booking-api/pkg/metrics"
)

var testMetrics = metrics.New("booking_test")

type fakeStore struct {
	days         map[string]*model.SlotDay
	appointments map[uuid.UUID]*model.Appointment
	outbox       []*model.OutboxEvent
	counters     map[string]int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		days:         make(map[string]*model.SlotDay),
		appointments: make(map[uuid.UUID]*model.Appointment),
		counters:     make(map[string]int64),
	}
}

func dayKey(dept model.Department, date string) string {
	return string(dept) + "|" + date
}

func (s *fakeStore) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	return fn(&fakeTx{store: s})
}

type fakeTx struct {
	store *fakeStore
}

func (t *fakeTx) GetSlotDayForUpdate(ctx context.Context, dept model.Department, date string) (*model.SlotDay, error) {
	day, ok := t.store.days[dayKey(dept, date)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return day, nil
}

func (t *fakeTx) SaveSlotDay(ctx context.Context, day *model.SlotDay) error {
	t.store.days[dayKey(day.Department, day.Date)] = day
	return nil
}

func (t *fakeTx) GetAppointmentForUpdate(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, ok := t.store.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return apt, nil
}

func (t *fakeTx) InsertAppointment(ctx context.Context, apt *model.Appointment) error {
	t.store.appointments[apt.ID] = apt
	return nil
}

func (t *fakeTx) UpdateAppointment(ctx context.Context, apt *model.Appointment) error {
	t.store.appointments[apt.ID] = apt
	return nil
}

func (t *fakeTx) NextAppointmentNumber(ctx context.Context, dept model.Department, year int) (int64, error) {
	key := fmt.Sprintf("%s-%d", dept, year)
	t.store.counters[key]++
	return t.store.counters[key], nil
}

func (t *fakeTx) InsertOutboxEvent(ctx context.Context, event *model.OutboxEvent) error {
	t.store.outbox = append(t.store.outbox, event)
	return nil
}

type fakeAppointmentRepo struct {
	store *fakeStore
}

func (r *fakeAppointmentRepo) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, ok := r.store.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return apt, nil
}

func (r *fakeAppointmentRepo) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, apt := range r.store.appointments {
		if filters.PatientID != uuid.Nil && apt.PatientID != filters.PatientID {
			continue
		}
		if filters.Status != "" && apt.Status != filters.Status {
			continue
		}
		out = append(out, apt)
	}
	return out, nil
}

type fakeSlotDayRepo struct {
	store *fakeStore
}

func (r *fakeSlotDayRepo) Get(ctx context.Context, dept model.Department, date string) (*model.SlotDay, error) {
	day, ok := r.store.days[dayKey(dept, date)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return day, nil
}

func (r *fakeSlotDayRepo) ListRange(ctx context.Context, dept model.Department, from, to string) ([]*model.SlotDay, error) {
	return nil, nil
}

func newTestService(store *fakeStore) *Service {
	l := logger.New(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	slots := slot.NewService(store, &fakeSlotDayRepo{store: store}, testMetrics)
	svc := NewService(store, &fakeAppointmentRepo{store: store}, slots, l, testMetrics)
	svc.now = func() time.Time {
		return time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	}
	return svc
}

func seedDay(store *fakeStore, dept model.Department, date string, counts map[string]int) *model.SlotDay {
	day := model.NewSlotDay(dept, date)
	day.Reconcile(counts)
	store.days[dayKey(dept, date)] = day
	return day
}

func TestBookReservesUnitAndWritesOutbox(t *testing.T) {
	store := newFakeStore()
	day := seedDay(store, model.DepartmentRadiology, "2026-09-10", map[string]int{"09:00": 2})
	svc := newTestService(store)
	patientID := uuid.New()

	apt, err := svc.Book(context.Background(), patientID, &model.CreateAppointmentRequest{
		Department: "radiology",
		Date:       "2026-09-10",
		SlotID:     day.Slots[0].SlotID.String(),
		Services:   []string{"X-Ray"},
	})
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusPending, apt.Status)
	assert.Equal(t, "RAD-2026-000001", apt.Number)
	assert.Equal(t, patientID, apt.PatientID)
	assert.Equal(t, 1, day.TotalSlots)

	require.Len(t, store.outbox, 1)
	assert.Equal(t, model.EventAppointmentCreated, store.outbox[0].EventType)
}

func TestBookByTimeLabel(t *testing.T) {
	store := newFakeStore()
	seedDay(store, model.DepartmentMedical, "2026-09-10", map[string]int{"09:00": 1})
	svc := newTestService(store)

	apt, err := svc.Book(context.Background(), uuid.New(), &model.CreateAppointmentRequest{
		Department: "medical",
		Date:       "2026-09-10",
		SlotTime:   "09:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "09:00", apt.SlotTime)
	assert.Equal(t, "MED-2026-000001", apt.Number)
}

func TestBookLastUnitHasOneWinner(t *testing.T) {
	store := newFakeStore()
	day := seedDay(store, model.DepartmentDental, "2026-09-10", map[string]int{"09:00": 1})
	svc := newTestService(store)

	req := &model.CreateAppointmentRequest{
		Department: "dental",
		Date:       "2026-09-10",
		SlotID:     day.Slots[0].SlotID.String(),
	}

	_, err := svc.Book(context.Background(), uuid.New(), req)
	require.NoError(t, err)

	_, err = svc.Book(context.Background(), uuid.New(), req)
	assert.ErrorIs(t, err, model.ErrSlotUnavailable)
	assert.Equal(t, 0, day.TotalSlots)
}

func TestBookRejectsPastDate(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	_, err := svc.Book(context.Background(), uuid.New(), &model.CreateAppointmentRequest{
		Department: "dental",
		Date:       "2026-08-31",
		SlotTime:   "09:00",
	})
	assert.ErrorIs(t, err, ErrPastDate)
}

func TestBookUnconfiguredDayIsUnavailable(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	_, err := svc.Book(context.Background(), uuid.New(), &model.CreateAppointmentRequest{
		Department: "dental",
		Date:       "2026-09-10",
		SlotTime:   "09:00",
	})
	assert.ErrorIs(t, err, model.ErrSlotUnavailable)
}

func TestBookSequentialNumbers(t *testing.T) {
	store := newFakeStore()
	seedDay(store, model.DepartmentClinicalLab, "2026-09-10", map[string]int{"09:00": 3})
	svc := newTestService(store)

	req := &model.CreateAppointmentRequest{
		Department: "clinical_lab",
		Date:       "2026-09-10",
		SlotTime:   "09:00",
	}

	first, err := svc.Book(context.Background(), uuid.New(), req)
	require.NoError(t, err)
	second, err := svc.Book(context.Background(), uuid.New(), req)
	require.NoError(t, err)

	assert.Equal(t, "LAB-2026-000001", first.Number)
	assert.Equal(t, "LAB-2026-000002", second.Number)
}

func TestCancelReleasesUnit(t *testing.T) {
	store := newFakeStore()
	day := seedDay(store, model.DepartmentDental, "2026-09-10", map[string]int{"09:00": 1})
	svc := newTestService(store)
	patientID := uuid.New()

	apt, err := svc.Book(context.Background(), patientID, &model.CreateAppointmentRequest{
		Department: "dental",
		Date:       "2026-09-10",
		SlotID:     day.Slots[0].SlotID.String(),
	})
	require.NoError(t, err)
	require.Equal(t, 0, day.TotalSlots)

	cancelled, err := svc.Cancel(context.Background(), patientID, apt.ID)
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusCancelled, cancelled.Status)
	assert.Equal(t, 1, day.TotalSlots)

	require.Len(t, store.outbox, 2)
	assert.Equal(t, model.EventAppointmentCancelled, store.outbox[1].EventType)
}

func TestCancelTwiceReleasesOnlyOnce(t *testing.T) {
	store := newFakeStore()
	day := seedDay(store, model.DepartmentDental, "2026-09-10", map[string]int{"09:00": 1})
	svc := newTestService(store)
	patientID := uuid.New()

	apt, err := svc.Book(context.Background(), patientID, &model.CreateAppointmentRequest{
		Department: "dental",
		Date:       "2026-09-10",
		SlotID:     day.Slots[0].SlotID.String(),
	})
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), patientID, apt.ID)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), patientID, apt.ID)
	assert.ErrorIs(t, err, ErrAlreadyCancelled)
	assert.Equal(t, 1, day.TotalSlots)
}

func TestCancelToleratesMissingDay(t *testing.T) {
	store := newFakeStore()
	day := seedDay(store, model.DepartmentDental, "2026-09-10", map[string]int{"09:00": 1})
	svc := newTestService(store)
	patientID := uuid.New()

	apt, err := svc.Book(context.Background(), patientID, &model.CreateAppointmentRequest{
		Department: "dental",
		Date:       "2026-09-10",
		SlotID:     day.Slots[0].SlotID.String(),
	})
	require.NoError(t, err)

	delete(store.days, dayKey(model.DepartmentDental, "2026-09-10"))

	cancelled, err := svc.Cancel(context.Background(), patientID, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, cancelled.Status)
}

func TestCancelEnforcesOwnership(t *testing.T) {
	store := newFakeStore()
	day := seedDay(store, model.DepartmentDental, "2026-09-10", map[string]int{"09:00": 1})
	svc := newTestService(store)

	apt, err := svc.Book(context.Background(), uuid.New(), &model.CreateAppointmentRequest{
		Department: "dental",
		Date:       "2026-09-10",
		SlotID:     day.Slots[0].SlotID.String(),
	})
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), uuid.New(), apt.ID)
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.Equal(t, model.AppointmentStatusPending, store.appointments[apt.ID].Status)
}

func TestCancelCompletedIsRejected(t *testing.T) {
	store := newFakeStore()
	day := seedDay(store, model.DepartmentDental, "2026-09-10", map[string]int{"09:00": 1})
	svc := newTestService(store)
	patientID := uuid.New()

	apt, err := svc.Book(context.Background(), patientID, &model.CreateAppointmentRequest{
		Department: "dental",
		Date:       "2026-09-10",
		SlotID:     day.Slots[0].SlotID.String(),
	})
	require.NoError(t, err)

	store.appointments[apt.ID].Status = model.AppointmentStatusCompleted

	_, err = svc.Cancel(context.Background(), patientID, apt.ID)
	assert.ErrorIs(t, err, ErrNotCancellable)
}

func TestGetEnforcesOwnership(t *testing.T) {
	store := newFakeStore()
	day := seedDay(store, model.DepartmentDental, "2026-09-10", map[string]int{"09:00": 1})
	svc := newTestService(store)
	patientID := uuid.New()

	apt, err := svc.Book(context.Background(), patientID, &model.CreateAppointmentRequest{
		Department: "dental",
		Date:       "2026-09-10",
		SlotID:     day.Slots[0].SlotID.String(),
	})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), uuid.New(), apt.ID)
	assert.ErrorIs(t, err, ErrNotOwner)

	got, err := svc.Get(context.Background(), patientID, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, apt.ID, got.ID)
}

package slot

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cityclinic/booking-api/internal/model"
	"github.com/cityclinic/booking-api/internal/repository"
	"github.com/cityclinic/booking-api/pkg/metrics"
)

var testMetrics = metrics.New("slot_test")

type fakeStore struct {
	days map[string]*model.SlotDay
}

func newFakeStore() *fakeStore {
	return &fakeStore{days: make(map[string]*model.SlotDay)}
}

func key(dept model.Department, date string) string {
	return string(dept) + "|" + date
}

func (s *fakeStore) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	return fn(&fakeTx{store: s})
}

type fakeTx struct {
	store *fakeStore
}

func (t *fakeTx) GetSlotDayForUpdate(ctx context.Context, dept model.Department, date string) (*model.SlotDay, error) {
	day, ok := t.store.days[key(dept, date)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return day, nil
}

func (t *fakeTx) SaveSlotDay(ctx context.Context, day *model.SlotDay) error {
	t.store.days[key(day.Department, day.Date)] = day
	return nil
}

func (t *fakeTx) GetAppointmentForUpdate(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return nil, repository.ErrNotFound
}

func (t *fakeTx) InsertAppointment(ctx context.Context, apt *model.Appointment) error  { return nil }
func (t *fakeTx) UpdateAppointment(ctx context.Context, apt *model.Appointment) error  { return nil }
func (t *fakeTx) InsertOutboxEvent(ctx context.Context, e *model.OutboxEvent) error    { return nil }
func (t *fakeTx) NextAppointmentNumber(ctx context.Context, d model.Department, y int) (int64, error) {
	return 0, nil
}

type fakeRepo struct {
	store *fakeStore
	gets  int
}

func (r *fakeRepo) Get(ctx context.Context, dept model.Department, date string) (*model.SlotDay, error) {
	r.gets++
	day, ok := r.store.days[key(dept, date)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return day, nil
}

func (r *fakeRepo) ListRange(ctx context.Context, dept model.Department, from, to string) ([]*model.SlotDay, error) {
	var out []*model.SlotDay
	for _, day := range r.store.days {
		if day.Department == dept && day.Date >= from && day.Date <= to {
			out = append(out, day)
		}
	}
	return out, nil
}

func TestSetCapacityCreatesDay(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeRepo{store: store}, testMetrics)

	day, err := svc.SetCapacity(context.Background(), model.DepartmentDental, "2026-09-10",
		map[string]int{"09:00": 3})
	require.NoError(t, err)

	assert.Equal(t, 3, day.TotalSlots)
	assert.False(t, day.Closed)
	assert.NotNil(t, store.days[key(model.DepartmentDental, "2026-09-10")])
}

func TestSetCapacityValidatesInput(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeRepo{store: store}, testMetrics)

	_, err := svc.SetCapacity(context.Background(), model.Department("cardiology"), "2026-09-10",
		map[string]int{"09:00": 3})
	assert.Error(t, err)

	_, err = svc.SetCapacity(context.Background(), model.DepartmentDental, "10/09/2026",
		map[string]int{"09:00": 3})
	assert.Error(t, err)

	_, err = svc.SetCapacity(context.Background(), model.DepartmentDental, "2026-09-10",
		map[string]int{"09:00": -1})
	assert.Error(t, err)
}

func TestSetCapacityReopensClosedDay(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeRepo{store: store}, testMetrics)

	_, err := svc.CloseDay(context.Background(), model.DepartmentDental, "2026-09-10")
	require.NoError(t, err)

	day, err := svc.SetCapacity(context.Background(), model.DepartmentDental, "2026-09-10",
		map[string]int{"09:00": 2})
	require.NoError(t, err)

	assert.False(t, day.Closed)
	assert.Equal(t, 2, day.TotalSlots)
}

func TestCloseDayPersistsClosedState(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeRepo{store: store}, testMetrics)

	_, err := svc.SetCapacity(context.Background(), model.DepartmentMedical, "2026-09-10",
		map[string]int{"09:00": 2})
	require.NoError(t, err)

	day, err := svc.CloseDay(context.Background(), model.DepartmentMedical, "2026-09-10")
	require.NoError(t, err)

	assert.True(t, day.Closed)
	assert.Equal(t, 0, day.TotalSlots)
	assert.Empty(t, day.Slots)
}

func TestGetDayServesFromCacheUntilInvalidated(t *testing.T) {
	store := newFakeStore()
	repo := &fakeRepo{store: store}
	svc := NewService(store, repo, testMetrics)

	_, err := svc.SetCapacity(context.Background(), model.DepartmentDental, "2026-09-10",
		map[string]int{"09:00": 2})
	require.NoError(t, err)

	_, err = svc.GetDay(context.Background(), model.DepartmentDental, "2026-09-10")
	require.NoError(t, err)
	_, err = svc.GetDay(context.Background(), model.DepartmentDental, "2026-09-10")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.gets)

	svc.InvalidateDay(model.DepartmentDental, "2026-09-10")

	_, err = svc.GetDay(context.Background(), model.DepartmentDental, "2026-09-10")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.gets)
}

func TestGetDayUnconfiguredBehavesClosed(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeRepo{store: store}, testMetrics)

	day, err := svc.GetDay(context.Background(), model.DepartmentDDE, "2026-09-10")
	require.NoError(t, err)

	assert.True(t, day.Closed)
	assert.Empty(t, day.Available())
}

func TestListRange(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeRepo{store: store}, testMetrics)

	for _, date := range []string{"2026-09-10", "2026-09-11", "2026-09-20"} {
		_, err := svc.SetCapacity(context.Background(), model.DepartmentDental, date,
			map[string]int{"09:00": 1})
		require.NoError(t, err)
	}

	days, err := svc.ListRange(context.Background(), model.DepartmentDental, "2026-09-10", "2026-09-15")
	require.NoError(t, err)
	assert.Len(t, days, 2)
}

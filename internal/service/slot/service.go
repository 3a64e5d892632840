package slot

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/cityclinic/booking-api/internal/model"
	"github.com/cityclinic/booking-api/internal/repository"
	"github.com/cityclinic/booking-api/pkg/metrics"
)

const (
	availabilityTTL = 30 * time.Second
	cacheCleanup    = 5 * time.Minute
)

// Service owns slot-day capacity: admin edits and patient-facing
// availability reads. Availability goes through a short-TTL cache that is
// invalidated on every capacity mutation, so the cache is only ever a stale
// read projection, never a source of truth.
type Service struct {
	store   repository.Store
	repo    repository.SlotDayRepository
	cache   *gocache.Cache
	metrics *metrics.Metrics
}

func NewService(store repository.Store, repo repository.SlotDayRepository, m *metrics.Metrics) *Service {
	return &Service{
		store:   store,
		repo:    repo,
		cache:   gocache.New(availabilityTTL, cacheCleanup),
		metrics: m,
	}
}

func cacheKey(dept model.Department, date string) string {
	return string(dept) + "|" + date
}

// InvalidateDay drops the cached availability projection for a day. The
// booking service calls this after every capacity change it commits.
func (s *Service) InvalidateDay(dept model.Department, date string) {
	s.cache.Delete(cacheKey(dept, date))
}

func validDate(date string) error {
	if _, err := time.Parse(model.DateFormat, date); err != nil {
		return fmt.Errorf("invalid date %q: %w", date, err)
	}
	return nil
}

// SetCapacity reconciles a day's slots against the submitted per-label
// counts. Booked units survive the edit; only free units are added or
// removed.
func (s *Service) SetCapacity(ctx context.Context, dept model.Department, date string, counts map[string]int) (*model.SlotDay, error) {
	if !dept.Valid() {
		return nil, fmt.Errorf("unknown department: %q", dept)
	}
	if err := validDate(date); err != nil {
		return nil, err
	}
	for label, count := range counts {
		if label == "" {
			return nil, fmt.Errorf("empty time label")
		}
		if count < 0 {
			return nil, fmt.Errorf("negative capacity for %q", label)
		}
	}

	var day *model.SlotDay
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		existing, err := tx.GetSlotDayForUpdate(ctx, dept, date)
		if err == repository.ErrNotFound {
			existing = model.NewSlotDay(dept, date)
		} else if err != nil {
			return err
		}
		existing.Reconcile(counts)
		if err := tx.SaveSlotDay(ctx, existing); err != nil {
			return err
		}
		day = existing
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set capacity: %w", err)
	}

	s.InvalidateDay(dept, date)
	s.metrics.SlotCapacityEdits.WithLabelValues(string(dept), "set").Inc()
	return day, nil
}

// CloseDay marks a day unbookable and drops its remaining capacity.
func (s *Service) CloseDay(ctx context.Context, dept model.Department, date string) (*model.SlotDay, error) {
	if !dept.Valid() {
		return nil, fmt.Errorf("unknown department: %q", dept)
	}
	if err := validDate(date); err != nil {
		return nil, err
	}

	var day *model.SlotDay
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		existing, err := tx.GetSlotDayForUpdate(ctx, dept, date)
		if err == repository.ErrNotFound {
			existing = model.NewSlotDay(dept, date)
		} else if err != nil {
			return err
		}
		existing.Close()
		if err := tx.SaveSlotDay(ctx, existing); err != nil {
			return err
		}
		day = existing
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to close day: %w", err)
	}

	s.InvalidateDay(dept, date)
	s.metrics.SlotCapacityEdits.WithLabelValues(string(dept), "close").Inc()
	return day, nil
}

// GetDay returns the day's slot state, served from cache when fresh.
func (s *Service) GetDay(ctx context.Context, dept model.Department, date string) (*model.SlotDay, error) {
	if !dept.Valid() {
		return nil, fmt.Errorf("unknown department: %q", dept)
	}
	if err := validDate(date); err != nil {
		return nil, err
	}

	key := cacheKey(dept, date)
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*model.SlotDay), nil
	}

	day, err := s.repo.Get(ctx, dept, date)
	if err == repository.ErrNotFound {
		// No day configured: behave like a closed day.
		day = model.NewSlotDay(dept, date)
		day.Close()
	} else if err != nil {
		return nil, err
	}

	s.cache.Set(key, day, availabilityTTL)
	return day, nil
}

// ListRange returns the configured days in [from, to] for an admin calendar.
func (s *Service) ListRange(ctx context.Context, dept model.Department, from, to string) ([]*model.SlotDay, error) {
	if !dept.Valid() {
		return nil, fmt.Errorf("unknown department: %q", dept)
	}
	if err := validDate(from); err != nil {
		return nil, err
	}
	if err := validDate(to); err != nil {
		return nil, err
	}
	return s.repo.ListRange(ctx, dept, from, to)
}

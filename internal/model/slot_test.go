package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sumRemaining(d *SlotDay) int {
	total := 0
	for _, e := range d.Slots {
		total += e.Remaining
	}
	return total
}

func TestReconcileCountersCreatesLabels(t *testing.T) {
	day := NewSlotDay(DepartmentDental, "2026-09-01")
	day.Reconcile(map[string]int{"09:00": 3, "10:00": 2})

	require.Len(t, day.Slots, 2)
	assert.Equal(t, 5, day.TotalSlots)
	assert.Equal(t, sumRemaining(day), day.TotalSlots)
	assert.False(t, day.Closed)
}

func TestReconcileCountersPreservesBookedUnits(t *testing.T) {
	day := NewSlotDay(DepartmentDental, "2026-09-01")
	day.Reconcile(map[string]int{"09:00": 3})

	slotID := day.Slots[0].SlotID
	_, err := day.Book(slotID)
	require.NoError(t, err)
	_, err = day.Book(slotID)
	require.NoError(t, err)

	// Admin lowers capacity below the booked count; booked units survive.
	day.Reconcile(map[string]int{"09:00": 1})

	require.Len(t, day.Slots, 1)
	assert.Equal(t, 2, day.Slots[0].Capacity)
	assert.Equal(t, 0, day.Slots[0].Remaining)
	assert.Equal(t, 0, day.TotalSlots)
}

func TestReconcileCountersDropsOmittedFreeLabels(t *testing.T) {
	day := NewSlotDay(DepartmentRadiology, "2026-09-01")
	day.Reconcile(map[string]int{"09:00": 2, "10:00": 2})

	var booked uuid.UUID
	for _, e := range day.Slots {
		if e.Time == "09:00" {
			booked = e.SlotID
		}
	}
	_, err := day.Book(booked)
	require.NoError(t, err)

	// Resubmit with only 10:00: the free 09:00 capacity goes away but the
	// booked unit stays accounted for.
	day.Reconcile(map[string]int{"10:00": 2})

	require.Len(t, day.Slots, 2)
	for _, e := range day.Slots {
		if e.Time == "09:00" {
			assert.Equal(t, 1, e.Capacity)
			assert.Equal(t, 0, e.Remaining)
		}
	}
	assert.Equal(t, 2, day.TotalSlots)
}

func TestReconcileCountersMergesDuplicateLabels(t *testing.T) {
	day := NewSlotDay(DepartmentRadiology, "2026-09-01")
	day.Reconcile(map[string]int{"09:00": 3})

	counterID := day.Slots[0].SlotID
	_, err := day.Book(counterID)
	require.NoError(t, err)
	_, err = day.Book(counterID)
	require.NoError(t, err)

	// A rescheduled booking lands as an extra entry under the same label.
	day.Slots = append(day.Slots, SlotEntry{
		SlotID:    uuid.New(),
		Time:      "09:00",
		Remaining: 0,
		Capacity:  1,
	})

	// Resubmitting the same count must not apply it to each entry separately.
	day.Reconcile(map[string]int{"09:00": 3})

	totalCapacity := 0
	for _, e := range day.Slots {
		totalCapacity += e.Capacity
	}
	assert.Equal(t, 3, totalCapacity)
	assert.Equal(t, 0, day.TotalSlots)
	assert.Equal(t, sumRemaining(day), day.TotalSlots)

	// Raising the count frees exactly the difference over the booked total.
	day.Reconcile(map[string]int{"09:00": 5})

	totalCapacity = 0
	for _, e := range day.Slots {
		totalCapacity += e.Capacity
	}
	assert.Equal(t, 5, totalCapacity)
	assert.Equal(t, 2, day.TotalSlots)
	assert.Equal(t, sumRemaining(day), day.TotalSlots)
}

func TestReconcileCountersDropsExplicitZeroLabels(t *testing.T) {
	day := NewSlotDay(DepartmentDental, "2026-09-01")
	day.Reconcile(map[string]int{"09:00": 2, "10:00": 2})

	day.Reconcile(map[string]int{"09:00": 0, "10:00": 2})

	require.Len(t, day.Slots, 1)
	assert.Equal(t, "10:00", day.Slots[0].Time)
	assert.Equal(t, 2, day.TotalSlots)
}

func TestReconcileUnitsAddsAndRemovesFreeUnits(t *testing.T) {
	day := NewSlotDay(DepartmentMedical, "2026-09-01")
	day.Reconcile(map[string]int{"09:00": 3})
	require.Len(t, day.Slots, 3)

	_, err := day.BookByTime("09:00")
	require.NoError(t, err)

	day.Reconcile(map[string]int{"09:00": 1})

	// One booked unit plus zero free units would violate want=1 only if the
	// booked unit were dropped; it must survive as the single kept unit.
	booked := 0
	free := 0
	for _, e := range day.Slots {
		if e.Remaining == 0 {
			booked++
		} else {
			free++
		}
	}
	assert.Equal(t, 1, booked)
	assert.Equal(t, 0, free)
	assert.Equal(t, 0, day.TotalSlots)
}

func TestReconcileUnitsGrowsCapacity(t *testing.T) {
	day := NewSlotDay(DepartmentDDE, "2026-09-01")
	day.Reconcile(map[string]int{"morning": 1})
	_, err := day.BookByTime("morning")
	require.NoError(t, err)

	day.Reconcile(map[string]int{"morning": 3})

	assert.Len(t, day.Slots, 3)
	assert.Equal(t, 2, day.TotalSlots)
	assert.Equal(t, sumRemaining(day), day.TotalSlots)
}

func TestCloseDropsCapacity(t *testing.T) {
	day := NewSlotDay(DepartmentClinicalLab, "2026-09-01")
	day.Reconcile(map[string]int{"08:00": 4})

	day.Close()

	assert.True(t, day.Closed)
	assert.Empty(t, day.Slots)
	assert.Equal(t, 0, day.TotalSlots)

	_, err := day.Book(uuid.New())
	assert.ErrorIs(t, err, ErrDayClosed)
}

func TestBookExhaustsAndRejects(t *testing.T) {
	day := NewSlotDay(DepartmentDental, "2026-09-01")
	day.Reconcile(map[string]int{"09:00": 1})
	slotID := day.Slots[0].SlotID

	_, err := day.Book(slotID)
	require.NoError(t, err)

	_, err = day.Book(slotID)
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	_, err = day.Book(uuid.New())
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestBookByTimeDistinguishesMissingFromFull(t *testing.T) {
	day := NewSlotDay(DepartmentMedical, "2026-09-01")
	day.Reconcile(map[string]int{"09:00": 1})

	_, err := day.BookByTime("10:00")
	assert.ErrorIs(t, err, ErrSlotNotFound)

	_, err = day.BookByTime("09:00")
	require.NoError(t, err)

	_, err = day.BookByTime("09:00")
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestReleaseIsCappedAtCapacity(t *testing.T) {
	day := NewSlotDay(DepartmentDental, "2026-09-01")
	day.Reconcile(map[string]int{"09:00": 2})
	slotID := day.Slots[0].SlotID

	_, err := day.Book(slotID)
	require.NoError(t, err)

	require.NoError(t, day.Release(slotID))
	assert.Equal(t, 2, day.Slots[0].Remaining)

	// A duplicate release must not overfill the entry.
	require.NoError(t, day.Release(slotID))
	assert.Equal(t, 2, day.Slots[0].Remaining)
	assert.Equal(t, 2, day.TotalSlots)

	assert.ErrorIs(t, day.Release(uuid.New()), ErrSlotNotFound)
}

func TestAvailableFiltersExhaustedEntries(t *testing.T) {
	day := NewSlotDay(DepartmentMedical, "2026-09-01")
	day.Reconcile(map[string]int{"09:00": 2})

	_, err := day.BookByTime("09:00")
	require.NoError(t, err)

	available := day.Available()
	require.Len(t, available, 1)
	assert.Equal(t, 1, available[0].Remaining)
}

package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDayClosed       = errors.New("booking day is closed")
	ErrSlotNotFound    = errors.New("slot not found")
	ErrSlotUnavailable = errors.New("slot is no longer available")
)

// DateFormat is the canonical calendar-date key for slot days.
const DateFormat = "2006-01-02"

// SlotEntry is one bookable unit (single-capacity departments) or one time
// label with a remaining counter (multi-capacity departments).
type SlotEntry struct {
	SlotID    uuid.UUID `json:"slot_id"`
	Time      string    `json:"time"`
	Remaining int       `json:"remaining"`
	Capacity  int       `json:"capacity"`
}

// SlotEntries is stored as a JSONB column on the slot_days row.
type SlotEntries []SlotEntry

func (s SlotEntries) Value() (driver.Value, error) {
	if s == nil {
		s = SlotEntries{}
	}
	return json.Marshal(s)
}

func (s *SlotEntries) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*s = SlotEntries{}
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("unsupported slot entries type %T", src)
	}
}

// SlotDay is the per-department, per-date record of bookable capacity.
// Invariants: TotalSlots == sum of Remaining across Slots; a closed day
// carries no slots.
type SlotDay struct {
	ID         uuid.UUID   `db:"id" json:"id"`
	Department Department  `db:"department" json:"department"`
	Date       string      `db:"slot_date" json:"date"`
	Closed     bool        `db:"closed" json:"closed"`
	Slots      SlotEntries `db:"slots" json:"slots"`
	TotalSlots int         `db:"total_slots" json:"total_slots"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at" json:"updated_at"`
}

func NewSlotDay(dept Department, date string) *SlotDay {
	return &SlotDay{
		ID:         uuid.New(),
		Department: dept,
		Date:       date,
		Slots:      SlotEntries{},
	}
}

func (d *SlotDay) recompute() {
	total := 0
	for i := range d.Slots {
		total += d.Slots[i].Remaining
	}
	d.TotalSlots = total
}

// Close marks the day unbookable and drops all capacity. Appointments that
// already reference a slot on this day are untouched.
func (d *SlotDay) Close() {
	d.Closed = true
	d.Slots = SlotEntries{}
	d.TotalSlots = 0
}

// Reconcile applies an admin capacity submission without disturbing booked
// units. Raising a label's capacity adds free units, lowering it removes only
// free units, and labels omitted from the submission are dropped unless they
// still carry bookings. Entries sharing a time label (rescheduled bookings
// land as extra entries) are accounted as one label.
func (d *SlotDay) Reconcile(counts map[string]int) {
	d.Closed = false
	if d.Department.MultiCapacity() {
		d.reconcileCounters(counts)
	} else {
		d.reconcileUnits(counts)
	}
	d.recompute()
}

func (d *SlotDay) reconcileCounters(counts map[string]int) {
	type labelState struct {
		booked     int
		keep       SlotEntries
		carrier    SlotEntry
		hasCarrier bool
	}

	order := make([]string, 0, len(d.Slots))
	byLabel := make(map[string]*labelState, len(d.Slots))
	for _, entry := range d.Slots {
		st, ok := byLabel[entry.Time]
		if !ok {
			st = &labelState{}
			byLabel[entry.Time] = st
			order = append(order, entry.Time)
		}
		booked := entry.Capacity - entry.Remaining
		st.booked += booked
		if booked > 0 {
			// Booked units keep their identity; their entry shrinks to
			// exactly what is booked.
			entry.Capacity = booked
			entry.Remaining = 0
			st.keep = append(st.keep, entry)
		} else if !st.hasCarrier {
			// First fully-free entry per label is reused for the free pool so
			// its slot id stays stable across edits.
			st.carrier = entry
			st.hasCarrier = true
		}
	}

	kept := make(SlotEntries, 0, len(d.Slots))
	for _, label := range order {
		st := byLabel[label]
		want, ok := counts[label]
		if !ok || want < st.booked {
			want = st.booked
		}
		if free := want - st.booked; free > 0 {
			if len(st.keep) > 0 {
				st.keep[0].Capacity += free
				st.keep[0].Remaining += free
			} else {
				st.carrier.Capacity = free
				st.carrier.Remaining = free
				st.keep = append(st.keep, st.carrier)
			}
		}
		kept = append(kept, st.keep...)
	}

	for label, want := range counts {
		if _, ok := byLabel[label]; ok || want <= 0 {
			continue
		}
		kept = append(kept, SlotEntry{
			SlotID:    uuid.New(),
			Time:      label,
			Remaining: want,
			Capacity:  want,
		})
	}

	d.Slots = kept
}

func (d *SlotDay) reconcileUnits(counts map[string]int) {
	byLabel := make(map[string][]SlotEntry)
	for _, entry := range d.Slots {
		byLabel[entry.Time] = append(byLabel[entry.Time], entry)
	}

	kept := make(SlotEntries, 0, len(d.Slots))
	for label, units := range byLabel {
		want := counts[label]
		booked := 0
		for _, u := range units {
			if u.Remaining == 0 {
				booked++
			}
		}
		if want < booked {
			want = booked
		}
		removable := len(units) - want
		have := 0
		for _, u := range units {
			if removable > 0 && u.Remaining > 0 {
				removable--
				continue
			}
			kept = append(kept, u)
			have++
		}
		for ; have < want; have++ {
			kept = append(kept, SlotEntry{SlotID: uuid.New(), Time: label, Remaining: 1, Capacity: 1})
		}
	}

	for label, want := range counts {
		if _, ok := byLabel[label]; ok {
			continue
		}
		for i := 0; i < want; i++ {
			kept = append(kept, SlotEntry{SlotID: uuid.New(), Time: label, Remaining: 1, Capacity: 1})
		}
	}

	d.Slots = kept
}

// Book decrements the remaining count of the entry identified by slotID.
func (d *SlotDay) Book(slotID uuid.UUID) (*SlotEntry, error) {
	if d.Closed {
		return nil, ErrDayClosed
	}
	for i := range d.Slots {
		if d.Slots[i].SlotID != slotID {
			continue
		}
		if d.Slots[i].Remaining <= 0 {
			return nil, ErrSlotUnavailable
		}
		d.Slots[i].Remaining--
		d.recompute()
		return &d.Slots[i], nil
	}
	return nil, ErrSlotNotFound
}

// BookByTime books the first available unit for a time label.
func (d *SlotDay) BookByTime(label string) (*SlotEntry, error) {
	if d.Closed {
		return nil, ErrDayClosed
	}
	found := false
	for i := range d.Slots {
		if d.Slots[i].Time != label {
			continue
		}
		found = true
		if d.Slots[i].Remaining > 0 {
			d.Slots[i].Remaining--
			d.recompute()
			return &d.Slots[i], nil
		}
	}
	if !found {
		return nil, ErrSlotNotFound
	}
	return nil, ErrSlotUnavailable
}

// Release returns one unit to the entry identified by slotID, capped at the
// entry's configured capacity so a duplicate release cannot overfill it.
func (d *SlotDay) Release(slotID uuid.UUID) error {
	for i := range d.Slots {
		if d.Slots[i].SlotID != slotID {
			continue
		}
		if d.Slots[i].Remaining < d.Slots[i].Capacity {
			d.Slots[i].Remaining++
		}
		d.recompute()
		return nil
	}
	return ErrSlotNotFound
}

// Available lists entries that still have capacity left.
func (d *SlotDay) Available() []SlotEntry {
	out := make([]SlotEntry, 0, len(d.Slots))
	for _, e := range d.Slots {
		if e.Remaining > 0 {
			out = append(out, e)
		}
	}
	return out
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// Notification is an in-app notification addressed to a patient, written by
// the dispatch worker whenever an appointment changes status.
type Notification struct {
	ID            uuid.UUID `db:"id" json:"id"`
	PatientID     uuid.UUID `db:"patient_id" json:"patient_id"`
	AppointmentID uuid.UUID `db:"appointment_id" json:"appointment_id"`
	Title         string    `db:"title" json:"title"`
	Body          string    `db:"body" json:"body"`
	Read          bool      `db:"read" json:"read"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// AdminNotification fans a new or cancelled booking out to the admins of the
// matching department.
type AdminNotification struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	Department    Department `db:"department" json:"department"`
	AppointmentID uuid.UUID  `db:"appointment_id" json:"appointment_id"`
	Kind          string     `db:"kind" json:"kind"`
	Body          string     `db:"body" json:"body"`
	Read          bool       `db:"read" json:"read"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

const (
	AdminNotificationNewBooking   = "new_booking"
	AdminNotificationCancellation = "cancellation"
)

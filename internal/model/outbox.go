package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusRetry      OutboxStatus = "retry"
	OutboxStatusProcessed  OutboxStatus = "processed"
	OutboxStatusDeadLetter OutboxStatus = "dead_letter"
)

// Event types carried through the outbox.
const (
	EventAppointmentCreated   = "appointment_created"
	EventAppointmentApproved  = "appointment_approved"
	EventAppointmentRejected  = "appointment_rejected"
	EventAppointmentCancelled = "appointment_cancelled"
)

// OutboxEvent is written in the same transaction as the appointment mutation
// it describes, then delivered at-least-once by the dispatch worker.
type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	RetryAt      *time.Time      `db:"retry_at" json:"retry_at,omitempty"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// AppointmentEvent is the outbox payload for every appointment status change.
type AppointmentEvent struct {
	AppointmentID uuid.UUID  `json:"appointment_id"`
	Number        string     `json:"number"`
	PatientID     uuid.UUID  `json:"patient_id"`
	Department    Department `json:"department"`
	Date          string     `json:"date"`
	SlotTime      string     `json:"slot_time"`
	Status        string     `json:"status"`
	Reason        string     `json:"reason,omitempty"`
}

func NewAppointmentOutboxEvent(eventType string, apt *Appointment, reason string) (*OutboxEvent, error) {
	payload, err := json.Marshal(AppointmentEvent{
		AppointmentID: apt.ID,
		Number:        apt.Number,
		PatientID:     apt.PatientID,
		Department:    apt.Department,
		Date:          apt.EffectiveDate(),
		SlotTime:      apt.EffectiveTime(),
		Status:        string(apt.Status),
		Reason:        reason,
	})
	if err != nil {
		return nil, err
	}
	return &OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   payload,
		Status:    OutboxStatusPending,
	}, nil
}

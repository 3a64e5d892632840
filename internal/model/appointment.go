package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusApproved  AppointmentStatus = "approved"
	AppointmentStatusRejected  AppointmentStatus = "rejected"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
)

// ServiceList is the set of services the patient selected, stored as JSONB.
type ServiceList []string

func (s ServiceList) Value() (driver.Value, error) {
	if s == nil {
		s = ServiceList{}
	}
	return json.Marshal(s)
}

func (s *ServiceList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*s = ServiceList{}
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("unsupported service list type %T", src)
	}
}

// Appointment is the booking record tracked through its whole lifecycle.
// Records are never hard-deleted; cancellation and rejection are status
// transitions so the trail stays auditable.
type Appointment struct {
	ID         uuid.UUID         `db:"id" json:"id"`
	Number     string            `db:"number" json:"number"`
	PatientID  uuid.UUID         `db:"patient_id" json:"patient_id"`
	Department Department        `db:"department" json:"department"`
	Date       string            `db:"slot_date" json:"date"`
	SlotID     uuid.UUID         `db:"slot_id" json:"slot_id"`
	SlotTime   string            `db:"slot_time" json:"slot_time"`
	Services   ServiceList       `db:"services" json:"services"`
	Status     AppointmentStatus `db:"status" json:"status"`

	// Set by the admin review flow.
	RejectReason    *string    `db:"reject_reason" json:"reject_reason,omitempty"`
	RescheduledDate *string    `db:"rescheduled_date" json:"rescheduled_date,omitempty"`
	RescheduledSlot *uuid.UUID `db:"rescheduled_slot" json:"rescheduled_slot,omitempty"`
	RescheduledTime *string    `db:"rescheduled_time" json:"rescheduled_time,omitempty"`
	ReviewedBy      *uuid.UUID `db:"reviewed_by" json:"reviewed_by,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// EffectiveDate is the date the patient should show up on, accounting for an
// approved reschedule.
func (a *Appointment) EffectiveDate() string {
	if a.RescheduledDate != nil {
		return *a.RescheduledDate
	}
	return a.Date
}

func (a *Appointment) EffectiveTime() string {
	if a.RescheduledTime != nil {
		return *a.RescheduledTime
	}
	return a.SlotTime
}

type CreateAppointmentRequest struct {
	Department string   `json:"department" validate:"required"`
	Date       string   `json:"date" validate:"required,datetime=2006-01-02"`
	SlotID     string   `json:"slot_id" validate:"omitempty,uuid"`
	SlotTime   string   `json:"slot_time" validate:"omitempty,max=64"`
	Services   []string `json:"services" validate:"omitempty,dive,max=128"`
}

type RejectAppointmentRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

type ApproveAppointmentRequest struct {
	// Optional reschedule. When Date is set, SlotTime must be set too.
	Date     string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	SlotTime string `json:"slot_time" validate:"omitempty,max=64"`
}

type AppointmentFilters struct {
	PatientID  uuid.UUID
	Department Department
	Status     AppointmentStatus
	Date       string
}

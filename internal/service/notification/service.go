package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/cityclinic/booking-api/internal/email"
	"github.com/cityclinic/booking-api/internal/model"
	"github.com/cityclinic/booking-api/internal/repository"
	"github.com/cityclinic/booking-api/pkg/logger"
	"github.com/cityclinic/booking-api/pkg/messaging"
	"github.com/cityclinic/booking-api/pkg/metrics"
)

// Service turns outbox events into deliveries: an in-app notification for the
// patient, an admin notification plus a live pub/sub publish for bookings and
// cancellations, and an email when the patient has a usable address. A
// missing or malformed address skips the email leg only; it never fails the
// event.
type Service struct {
	patients   repository.PatientRepository
	inApp      repository.NotificationRepository
	adminInbox repository.AdminNotificationRepository
	sender     email.Sender
	broker     messaging.Broker
	logger     *logger.Logger
	metrics    *metrics.Metrics
	validate   *validator.Validate
}

func NewService(
	patients repository.PatientRepository,
	inApp repository.NotificationRepository,
	adminInbox repository.AdminNotificationRepository,
	sender email.Sender,
	broker messaging.Broker,
	l *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		patients:   patients,
		inApp:      inApp,
		adminInbox: adminInbox,
		sender:     sender,
		broker:     broker,
		logger:     l,
		metrics:    m,
		validate:   validator.New(),
	}
}

// Dispatch handles one outbox event. Returning an error requeues the event
// for retry, so only failures worth retrying (database writes) propagate.
func (s *Service) Dispatch(ctx context.Context, evt *model.OutboxEvent) error {
	var payload model.AppointmentEvent
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		return fmt.Errorf("failed to decode payload for event %s: %w", evt.ID, err)
	}

	patient, err := s.patients.Get(ctx, payload.PatientID)
	if err != nil {
		return fmt.Errorf("failed to load patient %s: %w", payload.PatientID, err)
	}

	title, message := composeMessage(evt.EventType, &payload)

	if err := s.inApp.Create(ctx, &model.Notification{
		ID:            uuid.New(),
		PatientID:     patient.ID,
		AppointmentID: payload.AppointmentID,
		Title:         title,
		Body:          message,
	}); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	s.metrics.NotificationsSent.WithLabelValues("in_app", "ok").Inc()

	if err := s.notifyAdmins(ctx, evt.EventType, &payload, patient); err != nil {
		return err
	}

	s.sendEmail(ctx, patient, title, message, &payload)
	return nil
}

// notifyAdmins records the department-inbox entry and publishes it for live
// feeds. Only patient-initiated events reach admins; status changes the
// admins made themselves do not.
func (s *Service) notifyAdmins(ctx context.Context, eventType string, payload *model.AppointmentEvent, patient *model.Patient) error {
	var kind string
	switch eventType {
	case model.EventAppointmentCreated:
		kind = model.AdminNotificationNewBooking
	case model.EventAppointmentCancelled:
		kind = model.AdminNotificationCancellation
	default:
		return nil
	}

	note := &model.AdminNotification{
		ID:            uuid.New(),
		Department:    payload.Department,
		AppointmentID: payload.AppointmentID,
		Kind:          kind,
		Body: fmt.Sprintf("%s: %s, %s on %s at %s",
			kindLabel(kind), patient.FullName(), payload.Number, payload.Date, payload.SlotTime),
	}
	if err := s.adminInbox.Create(ctx, note); err != nil {
		return fmt.Errorf("failed to create admin notification: %w", err)
	}

	topic := fmt.Sprintf("admin:notifications:%s", payload.Department)
	if err := s.broker.Publish(ctx, topic, note); err != nil {
		// Live feed is best effort, the inbox row is already durable.
		s.logger.Warn("failed to publish admin notification",
			"topic", topic, "error", fmt.Sprint(err))
	}
	return nil
}

// sendEmail delivers the status email when the patient has a valid address.
// Delivery failures are logged, not retried through the outbox: the durable
// in-app notification already happened and the original system treated email
// the same way.
func (s *Service) sendEmail(ctx context.Context, patient *model.Patient, subject, message string, payload *model.AppointmentEvent) {
	if patient.Email == "" || s.validate.Var(patient.Email, "email") != nil {
		s.logger.Warn("skipping email, patient has no usable address",
			"patient_id", patient.ID.String(), "appointment", payload.Number)
		s.metrics.NotificationsSent.WithLabelValues("email", "skipped").Inc()
		return
	}

	err := s.sender.SendAppointmentUpdate(ctx, patient.Email, patient.FullName(),
		subject, message, payload.Date, payload.SlotTime)
	if err != nil {
		s.logger.Error(err, "failed to send appointment email",
			"patient_id", patient.ID.String(), "appointment", payload.Number)
		s.metrics.NotificationsSent.WithLabelValues("email", "failed").Inc()
		return
	}
	s.metrics.NotificationsSent.WithLabelValues("email", "ok").Inc()
}

func composeMessage(eventType string, payload *model.AppointmentEvent) (title, message string) {
	dept := payload.Department.DisplayName()
	switch eventType {
	case model.EventAppointmentCreated:
		return "Appointment received",
			fmt.Sprintf("Your %s appointment %s has been received and is awaiting review.", dept, payload.Number)
	case model.EventAppointmentApproved:
		return "Appointment approved",
			fmt.Sprintf("Your %s appointment %s has been approved.", dept, payload.Number)
	case model.EventAppointmentRejected:
		msg := fmt.Sprintf("Your %s appointment %s has been rejected.", dept, payload.Number)
		if payload.Reason != "" {
			msg = fmt.Sprintf("%s Reason: %s", msg, payload.Reason)
		}
		return "Appointment rejected", msg
	case model.EventAppointmentCancelled:
		return "Appointment cancelled",
			fmt.Sprintf("Your %s appointment %s has been cancelled.", dept, payload.Number)
	default:
		return "Appointment update",
			fmt.Sprintf("Your %s appointment %s has been updated.", dept, payload.Number)
	}
}

func kindLabel(kind string) string {
	if kind == model.AdminNotificationCancellation {
		return "Cancellation"
	}
	return "New booking"
}

// ListForPatient returns the patient's in-app feed, newest first.
func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID, unreadOnly bool) ([]*model.Notification, error) {
	return s.inApp.ListByPatient(ctx, patientID, unreadOnly)
}

func (s *Service) MarkRead(ctx context.Context, patientID, notificationID uuid.UUID) error {
	return s.inApp.MarkRead(ctx, patientID, notificationID)
}

func (s *Service) MarkAllRead(ctx context.Context, patientID uuid.UUID) error {
	return s.inApp.MarkAllRead(ctx, patientID)
}

// ListForAdmin returns the department inbox, newest first.
func (s *Service) ListForAdmin(ctx context.Context, dept model.Department, unreadOnly bool) ([]*model.AdminNotification, error) {
	return s.adminInbox.ListByDepartment(ctx, dept, unreadOnly)
}

func (s *Service) MarkAdminRead(ctx context.Context, dept model.Department, notificationID uuid.UUID) error {
	return s.adminInbox.MarkRead(ctx, dept, notificationID)
}

func (s *Service) MarkAllAdminRead(ctx context.Context, dept model.Department) error {
	return s.adminInbox.MarkAllRead(ctx, dept)
}

func (s *Service) DeleteAdminNotification(ctx context.Context, dept model.Department, notificationID uuid.UUID) error {
	return s.adminInbox.Delete(ctx, dept, notificationID)
}

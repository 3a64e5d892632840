package email

import "context"

// Sender delivers transactional email. Delivery is fire-and-forget from the
// caller's perspective; the dispatch worker owns retries.
type Sender interface {
	SendAppointmentUpdate(ctx context.Context, to, name, subject, message, date, slotTime string) error
	SendOTP(ctx context.Context, to, name, code string) error
}

package email

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/cityclinic/booking-api/pkg/circuitbreaker"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

type smtpSender struct {
	dialer *gomail.Dialer
	from   string
	cb     *circuitbreaker.CircuitBreaker
}

func NewSMTPSender(cfg SMTPConfig) Sender {
	return &smtpSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   fmt.Sprintf("%s <%s>", cfg.FromName, cfg.From),
		cb: circuitbreaker.New(circuitbreaker.Settings{
			Name:        "smtp",
			MaxFailures: 5,
			Timeout:     time.Minute,
		}),
	}
}

func (s *smtpSender) SendAppointmentUpdate(ctx context.Context, to, name, subject, message, date, slotTime string) error {
	body := fmt.Sprintf(
		"Dear %s,\n\n%s\n\nDate: %s\nTime: %s\n\nCity Clinic",
		name, message, date, slotTime,
	)
	return s.send(ctx, to, subject, body)
}

func (s *smtpSender) SendOTP(ctx context.Context, to, name, code string) error {
	body := fmt.Sprintf(
		"Dear %s,\n\nYour verification code is %s. It expires in 5 minutes.\n\nCity Clinic",
		name, code,
	)
	return s.send(ctx, to, "Your verification code", body)
}

func (s *smtpSender) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	err := s.cb.Execute(func() error {
		return s.dialer.DialAndSend(m)
	})
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

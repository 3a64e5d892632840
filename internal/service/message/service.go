package message

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/cityclinic/booking-api/internal/model"
	"github.com/cityclinic/booking-api/internal/repository"
)

// Service handles contact-form submissions and the admin inbox over them.
type Service struct {
	repo repository.MessageRepository
}

func NewService(repo repository.MessageRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Submit(ctx context.Context, req *model.CreateMessageRequest) (*model.Message, error) {
	msg := &model.Message{
		ID:      uuid.New(),
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.ToLower(strings.TrimSpace(req.Email)),
		Subject: strings.TrimSpace(req.Subject),
		Body:    req.Body,
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *Service) List(ctx context.Context, unreadOnly bool, limit, offset int) ([]*model.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, unreadOnly, limit, offset)
}

func (s *Service) MarkRead(ctx context.Context, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, id)
}

package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cityclinic/booking-api/internal/model"
	"github.com/cityclinic/booking-api/internal/repository"
	"github.com/cityclinic/booking-api/pkg/logger"
	"github.com/cityclinic/booking-api/pkg/metrics"
)

// Dispatcher handles one outbox event end to end. A returned error requeues
// the event for another attempt.
type Dispatcher interface {
	Dispatch(ctx context.Context, event *model.OutboxEvent) error
}

type OutboxProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	// MaxAttempts counts total delivery tries before dead-lettering.
	MaxAttempts int
	RetryDelay  time.Duration
}

// OutboxProcessor polls pending outbox events and hands them to the
// dispatcher. Events are claimed with FOR UPDATE SKIP LOCKED so multiple
// worker instances can run side by side; failed events back off linearly and
// dead-letter after MaxAttempts.
type OutboxProcessor struct {
	repo       repository.OutboxRepository
	dispatcher Dispatcher
	config     OutboxProcessorConfig
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	dispatcher Dispatcher,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *OutboxProcessor {
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.MaxAttempts <= 0 {
		panic("MaxAttempts must be greater than 0")
	}
	if config.RetryDelay <= 0 {
		panic("RetryDelay must be greater than 0")
	}

	return &OutboxProcessor{
		repo:       repo,
		dispatcher: dispatcher,
		config:     config,
		logger:     logger,
		metrics:    metrics,
	}
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("Starting outbox processor")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down outbox processor")
			return
		case <-ticker.C:
			if err := p.ProcessBatch(ctx); err != nil {
				p.logger.Error(err, "Failed to process events")
			}
		}
	}
}

// ProcessBatch claims and dispatches up to BatchSize due events.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) error {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	events, err := p.repo.GetPendingWithLock(ctx, p.config.BatchSize)
	if err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("get_pending_events", "error").Inc()
		return fmt.Errorf("failed to get pending events: %w", err)
	}
	p.metrics.DatabaseOperations.WithLabelValues("get_pending_events", "success").Inc()

	for _, event := range events {
		p.processEvent(ctx, event)
	}
	return nil
}

func (p *OutboxProcessor) processEvent(ctx context.Context, event *model.OutboxEvent) {
	err := p.dispatcher.Dispatch(ctx, event)
	if err == nil {
		if markErr := p.repo.MarkProcessed(ctx, event.ID); markErr != nil {
			p.logger.Error(markErr, "Failed to mark event processed",
				"event_id", event.ID.String())
			return
		}
		p.metrics.OutboxEventsProcessed.Inc()
		return
	}

	p.logger.Error(err, "Failed to dispatch event",
		"event_id", event.ID.String(),
		"event_type", event.EventType,
		"attempt", event.RetryCount+1)

	attempts := event.RetryCount + 1
	if attempts >= p.config.MaxAttempts {
		p.metrics.OutboxEventsDeadLetter.Inc()
		if markErr := p.repo.MarkDeadLetter(ctx, event.ID, err.Error()); markErr != nil {
			p.logger.Error(markErr, "Failed to dead-letter event",
				"event_id", event.ID.String())
		}
		return
	}

	p.metrics.OutboxEventsFailed.Inc()
	retryAt := time.Now().Add(time.Duration(attempts) * p.config.RetryDelay)
	if markErr := p.repo.MarkRetry(ctx, event.ID, err.Error(), retryAt); markErr != nil {
		p.logger.Error(markErr, "Failed to schedule event retry",
			"event_id", event.ID.String())
	}
}

package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// WorkerEnv lets deployments tune the dispatch worker through WORKER_*
// environment variables without touching the shared config file.
type WorkerEnv struct {
	BatchSize     int `envconfig:"BATCH_SIZE" default:"0"`
	PollSeconds   int `envconfig:"POLL_SECONDS" default:"0"`
	MaxAttempts   int `envconfig:"MAX_ATTEMPTS" default:"0"`
	MetricsPort   int `envconfig:"METRICS_PORT" default:"8081"`
	RetentionDays int `envconfig:"RETENTION_DAYS" default:"0"`
}

// LoadWorkerEnv reads the overrides and applies the non-zero ones to cfg.
func LoadWorkerEnv(cfg *Config) (*WorkerEnv, error) {
	var env WorkerEnv
	if err := envconfig.Process("WORKER", &env); err != nil {
		return nil, fmt.Errorf("failed to read worker environment: %w", err)
	}

	if env.BatchSize > 0 {
		cfg.Outbox.BatchSize = env.BatchSize
	}
	if env.PollSeconds > 0 {
		cfg.Outbox.PollIntervalSeconds = env.PollSeconds
	}
	if env.MaxAttempts > 0 {
		cfg.Outbox.MaxAttempts = env.MaxAttempts
	}
	if env.RetentionDays > 0 {
		cfg.Outbox.RetentionDays = env.RetentionDays
	}
	return &env, nil
}

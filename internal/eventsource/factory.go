package eventsource

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/yield-engine/internal/config"
	"github.com/yourusername/yield-engine/internal/repository"
)

// NewSource creates the configured Source implementation. Mode "postgres"
// reads the events table through the repository; mode "http" talks to the
// ingestion service's read API.
func NewSource(cfg config.EventSourceConfig, repos *repository.Repositories, logger *logrus.Logger) (Source, error) {
	switch cfg.Mode {
	case "postgres":
		if repos == nil {
			return nil, fmt.Errorf("postgres event source requires repositories")
		}
		return repos.Event, nil

	case "http":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("http event source requires a base URL")
		}
		clientCfg := DefaultHTTPClientConfig()
		clientCfg.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
		clientCfg.MaxRetries = cfg.MaxRetries
		clientCfg.RateLimit = cfg.RequestsPerSecond
		clientCfg.CircuitBreakerMax = cfg.CircuitBreakerMax

		httpClient := NewRateLimitedHTTPClient(clientCfg, logger)
		return NewRemoteSource(httpClient, cfg.BaseURL, cfg.APIKey), nil

	default:
		return nil, fmt.Errorf("unknown event source mode: %s", cfg.Mode)
	}
}

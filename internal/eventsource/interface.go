// Package eventsource provides read access to the bid-lifecycle event records
// produced by the ingestion pipeline. The engine only ever reads bounded
// windows of events; ingestion itself is an external collaborator.
package eventsource

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/yield-engine/internal/models"
)

// Source defines the event source collaborator contract
type Source interface {
	// GetByKind retrieves events of one kind for a publisher within a time
	// window, in ingestion order
	GetByKind(ctx context.Context, publisherID uuid.UUID, kind models.EventKind, start, end time.Time) ([]*models.Event, error)

	// GetByKindForBidder retrieves events of one kind for a single bidder
	GetByKindForBidder(ctx context.Context, publisherID uuid.UUID, kind models.EventKind, start, end time.Time, bidderCode string) ([]*models.Event, error)
}

// Error codes for source failures
const (
	ErrCodeNetworkError         = "network_error"
	ErrCodeAuthenticationFailed = "authentication_failed"
	ErrCodeRateLimitExceeded    = "rate_limit_exceeded"
	ErrCodeServerError          = "server_error"
	ErrCodeInvalidResponse      = "invalid_response"
)

// SourceError represents errors from event source operations
type SourceError struct {
	Source  string
	Code    string
	Message string
	Err     error
}

func (e *SourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("event source %s [%s]: %s: %v", e.Source, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("event source %s [%s]: %s", e.Source, e.Code, e.Message)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// NewSourceError creates a new source error
func NewSourceError(source, code, message string, err error) *SourceError {
	return &SourceError{Source: source, Code: code, Message: message, Err: err}
}

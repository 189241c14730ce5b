package eventsource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/yield-engine/internal/models"
)

const remoteSourceName = "event-api"

// RemoteSource implements Source against the ingestion service's read API.
// Used when the engine is deployed without direct access to the events table.
type RemoteSource struct {
	httpClient *RateLimitedHTTPClient
	baseURL    string
	apiKey     string
}

// remoteEvent mirrors the event API's wire representation
type remoteEvent struct {
	ID          string    `json:"id"`
	PublisherID string    `json:"publisherId"`
	Kind        string    `json:"kind"`
	BidderCode  string    `json:"bidderCode"`
	CPM         *float64  `json:"cpm"`
	LatencyMS   *float64  `json:"latencyMs"`
	Timeout     bool      `json:"timeout"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewRemoteSource creates a new remote event source client
func NewRemoteSource(httpClient *RateLimitedHTTPClient, baseURL, apiKey string) *RemoteSource {
	return &RemoteSource{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

// GetByKind retrieves events of one kind for a publisher within a time window
func (s *RemoteSource) GetByKind(ctx context.Context, publisherID uuid.UUID, kind models.EventKind, start, end time.Time) ([]*models.Event, error) {
	return s.fetch(ctx, publisherID, kind, start, end, "")
}

// GetByKindForBidder retrieves events of one kind for a single bidder
func (s *RemoteSource) GetByKindForBidder(ctx context.Context, publisherID uuid.UUID, kind models.EventKind, start, end time.Time, bidderCode string) ([]*models.Event, error) {
	return s.fetch(ctx, publisherID, kind, start, end, bidderCode)
}

func (s *RemoteSource) fetch(ctx context.Context, publisherID uuid.UUID, kind models.EventKind, start, end time.Time, bidderCode string) ([]*models.Event, error) {
	params := url.Values{}
	params.Set("publisherId", publisherID.String())
	params.Set("kind", string(kind))
	params.Set("start", start.Format(time.RFC3339))
	params.Set("end", end.Format(time.RFC3339))
	if bidderCode != "" {
		params.Set("bidderCode", bidderCode)
	}

	endpoint := fmt.Sprintf("%s/v1/events?%s", s.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, NewSourceError(remoteSourceName, ErrCodeNetworkError, "failed to create request", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.apiKey))
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(ctx, req)
	if err != nil {
		return nil, NewSourceError(remoteSourceName, ErrCodeNetworkError, "failed to fetch events", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, NewSourceError(remoteSourceName, ErrCodeAuthenticationFailed, "invalid API key", nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, NewSourceError(remoteSourceName, ErrCodeRateLimitExceeded, "rate limit exceeded", nil)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(resp.Body)
		return nil, NewSourceError(remoteSourceName, ErrCodeServerError,
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body)), nil)
	}

	var payload struct {
		Events []remoteEvent `json:"events"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, NewSourceError(remoteSourceName, ErrCodeInvalidResponse, "failed to decode response", err)
	}

	events := make([]*models.Event, 0, len(payload.Events))
	for _, re := range payload.Events {
		event, err := re.toModel()
		if err != nil {
			return nil, NewSourceError(remoteSourceName, ErrCodeInvalidResponse, "malformed event record", err)
		}
		events = append(events, event)
	}

	return events, nil
}

func (re remoteEvent) toModel() (*models.Event, error) {
	id, err := uuid.Parse(re.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid event id %q: %w", re.ID, err)
	}
	publisherID, err := uuid.Parse(re.PublisherID)
	if err != nil {
		return nil, fmt.Errorf("invalid publisher id %q: %w", re.PublisherID, err)
	}

	return &models.Event{
		ID:          id,
		PublisherID: publisherID,
		Kind:        models.EventKind(re.Kind),
		BidderCode:  re.BidderCode,
		CPM:         re.CPM,
		LatencyMS:   re.LatencyMS,
		Timeout:     re.Timeout,
		Timestamp:   re.Timestamp,
	}, nil
}

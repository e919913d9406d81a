package sentry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hellocounsel/reports-backend/internal/platform/apierr"
	"github.com/hellocounsel/reports-backend/internal/platform/logger"
)

// Config for the error-tracking source.
type Config struct {
	BaseURL      string
	AuthToken    string
	Organization string
	Project      string
}

// Event is one discrete error event tagged with a correlation id.
type Event struct {
	EventID       string `json:"eventId"`
	CorrelationID string `json:"correlationId"`
	Level         string `json:"level"`
	Title         string `json:"title"`
	Timestamp     string `json:"timestamp"`
}

type page struct {
	Events []Event `json:"events"`
	Next   *string `json:"next"`
}

// Client fetches error events for an environment's logical name over a
// fixed lookback window.
type Client interface {
	ListEvents(ctx context.Context, environment string, lookback time.Duration) ([]Event, error)
}

type client struct {
	cfg        Config
	log        *logger.Logger
	httpClient *http.Client
}

func NewClient(cfg Config, baseLog *logger.Logger) (Client, error) {
	if cfg.AuthToken == "" {
		return nil, apierr.Config("error-tracking auth token is not configured")
	}
	if cfg.Organization == "" || cfg.Project == "" {
		return nil, apierr.Config("error-tracking organization/project is not configured")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://sentry.io/api/0"
	}
	return &client{
		cfg:        cfg,
		log:        baseLog.With("client", "SentryClient"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (c *client) ListEvents(ctx context.Context, environment string, lookback time.Duration) ([]Event, error) {
	var (
		all    []Event
		cursor string
	)
	for {
		p, err := c.fetchPage(ctx, environment, lookback, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, p.Events...)
		if p.Next == nil || *p.Next == "" {
			break
		}
		cursor = *p.Next
	}
	c.log.Debug("Fetched error events", "environment", environment, "count", len(all))
	return all, nil
}

func (c *client) fetchPage(ctx context.Context, environment string, lookback time.Duration, cursor string) (*page, error) {
	q := url.Values{}
	q.Set("environment", environment)
	q.Set("statsPeriod", fmt.Sprintf("%dd", int(lookback.Hours()/24)))
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	endpoint := fmt.Sprintf("%s/projects/%s/%s/events/?%s",
		c.cfg.BaseURL, c.cfg.Organization, c.cfg.Project, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AuthToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apierr.Upstream("error-tracking fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierr.Upstream("error-tracking read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apierr.Upstream("error-tracking returned %d", resp.StatusCode)
	}

	var p page
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, apierr.Upstream("error-tracking decode: %w", err)
	}
	return &p, nil
}

package vapi

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
	"github.com/hellocounsel/reports-backend/internal/types"
)

// Config for the call-evaluation source. APIKey and AgentID are required;
// a missing credential is a fatal configuration error, not a degrade.
type Config struct {
	BaseURL string
	APIKey  string
	AgentID string
}

// Result is the wire shape of one call evaluation. The verbose payload
// fields arrive but are never carried past the correlator's filter.
type Result struct {
	ID               int64           `json:"id"`
	CorrelationID    string          `json:"correlationId"`
	Status           string          `json:"status"`
	Success          bool            `json:"success"`
	DurationSeconds  float64         `json:"durationSeconds"`
	MessagesTaken    int             `json:"messagesTaken"`
	EndedReason      string          `json:"endedReason"`
	Disconnected     bool            `json:"disconnected"`
	CSEscalation     bool            `json:"csEscalation"`
	EscalationReason string          `json:"escalationReason"`
	TimeSavedSeconds float64         `json:"timeSavedSeconds"`
	Transfer         *types.Transfer `json:"transfer"`

	// Verbose fields, dropped by the filtered view.
	Transcript    json.RawMessage `json:"transcript"`
	Messages      json.RawMessage `json:"messages"`
	CostBreakdown json.RawMessage `json:"costBreakdown"`
}

type page struct {
	Results []Result `json:"results"`
	Next    *string  `json:"next"`
	Total   int      `json:"total"`
}

// Client fetches call evaluations for a UTC time window, following the
// next-page cursor until exhausted.
type Client interface {
	ListEvaluations(ctx context.Context, since, until time.Time) ([]Result, int, error)
}

type client struct {
	cfg        Config
	log        *logger.Logger
	httpClient *http.Client
}

func NewClient(cfg Config, baseLog *logger.Logger) (Client, error) {
	if cfg.APIKey == "" {
		return nil, apierr.Config("call-evaluation API key is not configured")
	}
	if cfg.AgentID == "" {
		return nil, apierr.Config("call-evaluation agent id is not configured")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.vapi.ai"
	}
	return &client{
		cfg:        cfg,
		log:        baseLog.With("client", "VapiClient"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (c *client) ListEvaluations(ctx context.Context, since, until time.Time) ([]Result, int, error) {
	var (
		all    []Result
		total  int
		cursor string
	)
	for {
		p, err := c.fetchPage(ctx, since, until, cursor)
		if err != nil {
			return nil, 0, err
		}
		all = append(all, p.Results...)
		if p.Total > 0 {
			total = p.Total
		}
		if p.Next == nil || *p.Next == "" {
			break
		}
		cursor = *p.Next
	}
	if total == 0 {
		total = len(all)
	}
	c.log.Debug("Fetched call evaluations", "count", len(all), "total", total)
	return all, total, nil
}

func (c *client) fetchPage(ctx context.Context, since, until time.Time, cursor string) (*page, error) {
	q := url.Values{}
	q.Set("agentId", c.cfg.AgentID)
	q.Set("createdAtGe", since.UTC().Format(time.RFC3339))
	q.Set("createdAtLt", until.UTC().Format(time.RFC3339))
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	endpoint := fmt.Sprintf("%s/call/evaluations?%s", c.cfg.BaseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apierr.Upstream("call-evaluation fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierr.Upstream("call-evaluation read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apierr.Upstream("call-evaluation returned %d: %s", resp.StatusCode, truncate(body, 300))
	}

	var p page
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, apierr.Upstream("call-evaluation decode: %w", err)
	}
	return &p, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

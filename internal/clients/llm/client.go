package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hellocounsel/reports-backend/internal/platform/apierr"
	"github.com/hellocounsel/reports-backend/internal/platform/logger"
)

const (
	// ResponseFormatJSON asks the model for a JSON object response. The
	// post-processor still repairs malformed output; the hint only lowers
	// the failure rate, it does not eliminate it.
	ResponseFormatJSON = "json"
	ResponseFormatText = "text"
)

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
}

// Client is the narrative-generation collaborator: one prompt in, raw
// text out. No streaming, no partial results.
type Client interface {
	Generate(ctx context.Context, prompt string, responseFormat string) (string, error)
}

type client struct {
	cfg        Config
	log        *logger.Logger
	httpClient *http.Client
}

func NewClient(cfg Config, baseLog *logger.Logger) (Client, error) {
	if cfg.APIKey == "" {
		return nil, apierr.Config("narrative API key is not configured")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	return &client{
		cfg:        cfg,
		log:        baseLog.With("client", "NarrativeClient"),
		httpClient: &http.Client{Timeout: 180 * time.Second},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *client) Generate(ctx context.Context, prompt string, responseFormat string) (string, error) {
	reqBody := chatRequest{
		Model:    c.cfg.Model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	}
	if responseFormat == ResponseFormatJSON {
		reqBody.ResponseFormat = &struct {
			Type string `json:"type"`
		}{Type: "json_object"}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	endpoint := c.cfg.BaseURL + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apierr.Upstream("narrative generation: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apierr.Upstream("narrative read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", apierr.Upstream("narrative generation returned %d", resp.StatusCode)
	}

	var decoded chatResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", apierr.Upstream("narrative decode: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", apierr.Upstream("narrative response has no choices")
	}

	c.log.Debug("Narrative generated", "model", c.cfg.Model, "elapsed", fmt.Sprintf("%.1fs", time.Since(start).Seconds()))
	return decoded.Choices[0].Message.Content, nil
}

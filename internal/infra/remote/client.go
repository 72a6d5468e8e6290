package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultTimeout bounds a single call when Config.Timeout is unset.
const DefaultTimeout = 30 * time.Second

// Config holds settings for the HTTP analysis API.
type Config struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

// Client implements Caller for a JSON API over HTTP.
// Every call is a POST of the JSON-encoded payload to BaseURL+endpoint.
type Client struct {
	http *resty.Client
	log  *slog.Logger
}

// NewClient creates a new HTTP client for the analysis API.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetTimeout(cfg.Timeout)
	client.SetHeader("Accept", "application/json")
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}

	c := &Client{http: client, log: logger}
	client.OnAfterResponse(c.onAfterResponse)
	return c
}

// Call posts payload to endpoint and decodes the JSON response.
func (c *Client) Call(ctx context.Context, endpoint string, payload any) (any, error) {
	req := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json")
	if payload != nil {
		req.SetBody(payload)
	}

	res, err := req.Post(endpoint)
	if err != nil {
		// The caller gave up; report its reason rather than a transport failure.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, TransportError(endpoint, err)
	}

	body := res.Body()
	if res.StatusCode() >= http.StatusBadRequest {
		return nil, StatusError(endpoint, res.StatusCode(), decodeBody(body))
	}

	if len(body) == 0 {
		return nil, nil
	}

	var result any
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &Error{
			Endpoint:    endpoint,
			HadResponse: true,
			Status:      res.StatusCode(),
			Body:        string(body),
			Err:         fmt.Errorf("decode response: %w", err),
		}
	}
	return result, nil
}

func (c *Client) onAfterResponse(_ *resty.Client, res *resty.Response) error {
	c.log.Debug("remote call finished",
		"method", res.Request.Method,
		"url", res.Request.URL,
		"status", res.StatusCode(),
		"latency", res.Time(),
	)
	return nil
}

// decodeBody returns the JSON document in body, the raw text when it is not
// JSON, or nil when it is empty.
func decodeBody(body []byte) any {
	if len(body) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return string(body)
	}
	return v
}

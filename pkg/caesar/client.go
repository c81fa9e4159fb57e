// Package caesar talks to the external research provider: submit a query,
// then poll the job it returns.
package caesar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/gregtusar/predictdesk/pkg/models"
)

const DefaultBaseURL = "https://api.caesar.xyz"

type Config struct {
	BaseURL   string
	APIKey    string
	AuthType  string
	KeyID     string
	JWTSecret string
	Timeout   time.Duration
	// RateLimit caps outbound requests per second; zero disables limiting.
	RateLimit float64
	Burst     int
}

// APIError is returned for any non-2xx provider response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("caesar api returned %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	baseURL    string
	auth       Authenticator
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logrus.Logger
}

func NewClient(cfg Config, logger *logrus.Logger) (*Client, error) {
	auth, err := NewAuthenticator(cfg)
	if err != nil {
		return nil, err
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		baseURL:    baseURL,
		auth:       auth,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		logger:     logger,
	}, nil
}

type submitRequest struct {
	Query        string `json:"query"`
	ComputeUnits int    `json:"compute_units"`
}

type submitResponse struct {
	JobID string `json:"job_id"`
	ID    string `json:"id"`
}

type statusResponse struct {
	Status    string            `json:"status"`
	Result    string            `json:"result"`
	Citations []models.Citation `json:"citations"`
	Error     string            `json:"error"`
}

// Submit starts a research job and returns the provider's job reference.
// The reference is empty if the provider accepted the request without one.
func (c *Client) Submit(ctx context.Context, query string, computeUnits int) (string, error) {
	body, err := json.Marshal(submitRequest{Query: query, ComputeUnits: computeUnits})
	if err != nil {
		return "", err
	}

	var resp submitResponse
	if err := c.do(ctx, http.MethodPost, "/research", body, &resp); err != nil {
		return "", fmt.Errorf("submit research: %w", err)
	}

	if resp.JobID != "" {
		return resp.JobID, nil
	}
	return resp.ID, nil
}

// Status fetches the provider's view of a job.
func (c *Client) Status(ctx context.Context, ref string) (*models.ResearchUpdate, error) {
	var resp statusResponse
	if err := c.do(ctx, http.MethodGet, "/research/"+url.PathEscape(ref), nil, &resp); err != nil {
		return nil, fmt.Errorf("research status %s: %w", ref, err)
	}

	status, err := models.ParseJobStatus(resp.Status)
	if err != nil {
		return nil, err
	}

	return &models.ResearchUpdate{
		Status:    status,
		Result:    resp.Result,
		Citations: resp.Citations,
		Error:     resp.Error,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	if err := c.auth.AddAuthHeaders(req); err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"method": method,
		"path":   path,
		"status": resp.StatusCode,
	}).Debug("Caesar API call")
	return nil
}

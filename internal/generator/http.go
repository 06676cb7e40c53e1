package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/awaistahir/powershare/internal/resolve"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// maxResponseBytes bounds how much of a generation response is read
const maxResponseBytes = 1 << 20

// HTTPConfig describes a remote generation service
type HTTPConfig struct {
	URL       string
	APIKey    string
	Timeout   time.Duration
	RateLimit float64 // requests per second; 0 disables throttling
	Burst     int
}

// HTTPGenerator posts generation requests to a remote service as JSON
type HTTPGenerator struct {
	httpClient *http.Client
	url        string
	apiKey     string
	limiter    *rate.Limiter
	logger     *logrus.Logger
}

// NewHTTPGenerator creates a client for the generation service at cfg.URL
func NewHTTPGenerator(cfg HTTPConfig, logger *logrus.Logger) *HTTPGenerator {
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

	return &HTTPGenerator{
		httpClient: &http.Client{Timeout: timeout},
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		limiter:    limiter,
		logger:     logger,
	}
}

// Generate sends req and returns the raw response body. The body is not
// interpreted here; resolve.ParseReport owns validation.
func (g *HTTPGenerator) Generate(ctx context.Context, req resolve.Request) ([]byte, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	start := time.Now()
	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling generation service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	g.logger.WithFields(logrus.Fields{
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
		"bytes":    len(body),
	}).Debug("generation service responded")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generation service returned status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// Package external holds clients for services outside the engine's control.
package external

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/clindx-engine/internal/domain"
)

const (
	defaultPredictorTimeout = 60 * time.Second
	maxPredictorBodyBytes   = 1 << 20
)

// ErrPredictorUnavailable wraps failures where no request reached the
// predictor because its circuit breaker is open.
var ErrPredictorUnavailable = errors.New("predictor unavailable")

// StatusError is returned when the predictor answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("predictor responded with status %d: %s", e.StatusCode, e.Body)
}

// PredictorClient calls the external diagnosis predictor over HTTP. Each
// Predict issues at most one request; it never retries.
type PredictorClient struct {
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger
}

// NewPredictorClient creates a predictor client from configuration
func NewPredictorClient(config domain.PredictorConfig, logger *logrus.Logger) *PredictorClient {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultPredictorTimeout
	}

	client := &PredictorClient{
		endpoint: config.URL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}

	if config.RateLimit > 0 {
		client.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), config.RateLimit)
	}
	if config.CircuitBreaker.Enabled {
		client.breaker = newCircuitBreaker("predictor", config.CircuitBreaker, logger)
	}

	return client
}

// Predict sends req to the predictor and decodes its diagnosis.
func (c *PredictorClient) Predict(ctx context.Context, req domain.PredictionRequest) (*domain.Diagnosis, error) {
	if c.breaker == nil {
		return c.predict(ctx, req)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.predict(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit breaker %s", ErrPredictorUnavailable, c.breaker.State())
		}
		return nil, err
	}

	return result.(*domain.Diagnosis), nil
}

// Health fails while the breaker is open and calls are being refused.
func (c *PredictorClient) Health(context.Context) error {
	if c.breaker != nil && c.breaker.State() == gobreaker.StateOpen {
		return ErrPredictorUnavailable
	}
	return nil
}

// BreakerState reports the breaker state, or "disabled".
func (c *PredictorClient) BreakerState() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.State().String()
}

func (c *PredictorClient) predict(ctx context.Context, req domain.PredictionRequest) (*domain.Diagnosis, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for predictor rate limit: %w", err)
		}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding prediction request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building prediction request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling predictor: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPredictorBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading predictor response: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Predictor responded")

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 256)}
	}

	return ParseDiagnosis(body)
}

// ParseDiagnosis decodes a predictor response body. The body must carry
// primary_diagnosis and high_risk with the right types, and the decoded
// diagnosis must validate.
func ParseDiagnosis(body []byte) (*domain.Diagnosis, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("decoding predictor response: %w", err)
	}
	for _, required := range []string{"primary_diagnosis", "high_risk"} {
		raw, ok := fields[required]
		if !ok || string(raw) == "null" {
			return nil, fmt.Errorf("predictor response missing %s", required)
		}
	}

	var diagnosis domain.Diagnosis
	if err := json.Unmarshal(body, &diagnosis); err != nil {
		return nil, fmt.Errorf("decoding predictor diagnosis: %w", err)
	}
	if err := diagnosis.Validate(); err != nil {
		return nil, fmt.Errorf("invalid predictor diagnosis: %w", err)
	}

	return &diagnosis, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

package external

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/clindx-engine/internal/domain"
)

// Breaker defaults, used when the configuration leaves a field zero.
const (
	defaultBreakerMaxRequests  = 5
	defaultBreakerInterval     = 30 * time.Second
	defaultBreakerTimeout      = 60 * time.Second
	defaultBreakerMinRequests  = 3
	defaultBreakerFailureRatio = 0.6
)

// newCircuitBreaker builds the breaker guarding an external service. It
// trips once MinRequests have been seen within Interval and the failure
// ratio reaches FailureRatio.
func newCircuitBreaker(name string, config domain.CircuitBreakerConfig, logger *logrus.Logger) *gobreaker.CircuitBreaker {
	if config.MaxRequests == 0 {
		config.MaxRequests = defaultBreakerMaxRequests
	}
	if config.Interval == 0 {
		config.Interval = defaultBreakerInterval
	}
	if config.Timeout == 0 {
		config.Timeout = defaultBreakerTimeout
	}
	if config.MinRequests == 0 {
		config.MinRequests = defaultBreakerMinRequests
	}
	if config.FailureRatio == 0 {
		config.FailureRatio = defaultBreakerFailureRatio
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= config.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})
}

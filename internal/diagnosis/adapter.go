package diagnosis

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/clindx-engine/internal/domain"
)

// DefaultTimeout bounds one predictor call.
const DefaultTimeout = 60 * time.Second

// Adapter decorates a predictor so that callers always receive a valid
// diagnosis. Any failure of the primary predictor, including timeouts and
// invalid results, is logged and replaced by the fallback.
type Adapter struct {
	primary  domain.Predictor
	fallback domain.Predictor
	timeout  time.Duration
	logger   *logrus.Logger
}

// NewAdapter wraps primary. A nil primary means no predictor is
// configured and every diagnosis comes from the fallback.
func NewAdapter(primary domain.Predictor, timeout time.Duration, logger *logrus.Logger) *Adapter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Adapter{
		primary:  primary,
		fallback: FallbackPredictor{},
		timeout:  timeout,
		logger:   logger,
	}
}

// Diagnose calls the primary predictor once. The call is detached from the
// caller's cancellation and bounded only by the adapter timeout.
func (a *Adapter) Diagnose(ctx context.Context, req domain.PredictionRequest) *domain.Diagnosis {
	a.logger.WithFields(logrus.Fields{
		"symptoms": req.Symptoms,
		"vitals":   floats(req.Vitals[:]),
		"labs":     floats(req.Labs[:]),
	}).Info("Sending evaluation to predictor")

	diagnosis, err := a.predict(ctx, req)
	if err == nil {
		return diagnosis
	}

	a.logger.WithError(err).Warn("Predictor failed, using fallback diagnosis")

	diagnosis, err = a.fallback.Predict(ctx, req)
	if err != nil || diagnosis == nil {
		return Fallback()
	}
	return diagnosis
}

func (a *Adapter) predict(ctx context.Context, req domain.PredictionRequest) (*domain.Diagnosis, error) {
	if a.primary == nil {
		return nil, errors.New("no predictor configured")
	}

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
	defer cancel()

	diagnosis, err := a.primary.Predict(callCtx, req)
	if err != nil {
		return nil, err
	}
	if err := diagnosis.Validate(); err != nil {
		return nil, err
	}
	return diagnosis, nil
}

// floats renders optional readings for logging, keeping nulls visible.
func floats(values []*float64) []any {
	out := make([]any, len(values))
	for i, v := range values {
		if v != nil {
			out[i] = *v
		}
	}
	return out
}

package modelflag

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/redflag-advisory-server/internal/domain"
)

// ResilientProvider wraps a Provider with a circuit breaker so a flapping
// model endpoint cannot slow down every check. When the breaker is open the
// call fails fast; callers degrade the result.
type ResilientProvider struct {
	inner   Provider
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Logger
}

// NewResilientProvider wraps the given provider with a circuit breaker.
func NewResilientProvider(inner Provider, logger *logrus.Logger) *ResilientProvider {
	if logger == nil {
		logger = logrus.New()
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ModelFlags",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &ResilientProvider{inner: inner, breaker: breaker, logger: logger}
}

// ProposeFlags delegates to the wrapped provider through the breaker.
func (r *ResilientProvider) ProposeFlags(ctx context.Context, fields domain.NoteFields) ([]domain.ModelFlag, error) {
	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.inner.ProposeFlags(ctx, fields)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState {
			return nil, fmt.Errorf("model provider unavailable (circuit breaker open)")
		}
		return nil, fmt.Errorf("model flag request failed: %w", err)
	}
	return result.([]domain.ModelFlag), nil
}

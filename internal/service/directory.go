package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/sajuwooju/sajuwooju/internal/config"
	"github.com/sajuwooju/sajuwooju/internal/metrics"
	"github.com/sajuwooju/sajuwooju/internal/model"
)

// DefaultLookupTimeout bounds a single directory lookup.
const DefaultLookupTimeout = 3 * time.Second

// Directory is the admin account store the gates consult on every request.
// Lookups of unknown ids return config.ErrNotFound. *config.Store
// implements it.
type Directory interface {
	GetAdmin(ctx context.Context, id string) (*model.Admin, error)
	GetAdminByEmail(ctx context.Context, email string) (*model.Admin, error)
	UpdateAdminLastLogin(ctx context.Context, id string) error
}

// BreakerSettings tunes the circuit breaker in front of the directory.
type BreakerSettings struct {
	// ConsecutiveFailures opens the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
}

// DefaultBreakerSettings returns the production breaker tuning.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{ConsecutiveFailures: 5, OpenTimeout: 10 * time.Second}
}

func newDirectoryBreaker(bs BreakerSettings, logger *slog.Logger) *gobreaker.CircuitBreaker[*model.Admin] {
	const name = "admin-directory"
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[*model.Admin](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     bs.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= bs.ConsecutiveFailures
		},
		// An unknown admin or a caller that went away says nothing about
		// the directory's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, config.ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})
}

// lookup runs one directory point lookup under the lookup timeout and the
// breaker. Not-found comes back as config.ErrNotFound; every other failure
// wraps ErrDirectoryUnavailable. No retries.
func (s *AuthService) lookup(ctx context.Context, op string, fn func(context.Context) (*model.Admin, error)) (*model.Admin, error) {
	ctx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()

	start := time.Now()
	admin, err := s.breaker.Execute(func() (*model.Admin, error) {
		return fn(ctx)
	})
	notFound := errors.Is(err, config.ErrNotFound)

	var metricErr error
	if err != nil && !notFound {
		metricErr = err
	}
	metrics.RecordDirectoryLookup(op, time.Since(start), err == nil, metricErr)

	switch {
	case err == nil:
		return admin, nil
	case notFound:
		return nil, config.ErrNotFound
	default:
		return nil, fmt.Errorf("%w: %s: %w", ErrDirectoryUnavailable, op, err)
	}
}

// FindActive fetches the current directory record for id. Unknown and
// inactive accounts both return ErrAccountUnavailable. Results are never
// cached: every call is a fresh lookup.
func (s *AuthService) FindActive(ctx context.Context, id string) (*model.Admin, error) {
	admin, err := s.lookup(ctx, "get_admin", func(ctx context.Context) (*model.Admin, error) {
		return s.dir.GetAdmin(ctx, id)
	})
	if errors.Is(err, config.ErrNotFound) {
		return nil, ErrAccountUnavailable
	}
	if err != nil {
		return nil, err
	}
	if !admin.IsActive {
		return nil, ErrAccountUnavailable
	}
	return admin, nil
}

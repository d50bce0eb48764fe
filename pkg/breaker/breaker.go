// Package breaker wraps sony/gobreaker with metrics, logging and a mapping of
// rejected calls onto the storefront's SERVICE_UNAVAILABLE error.
package breaker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"

	apperrors "github.com/motoforge/storefront/pkg/errors"
)

// Config holds circuit breaker configuration.
type Config struct {
	// Name identifies the breaker in metrics and logs.
	Name string

	// MaxRequests is the number of trial calls allowed while half-open.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state for clearing counts.
	// 0 never clears them.
	Interval time.Duration

	// Timeout is how long the breaker stays open before going half-open.
	Timeout time.Duration

	// FailureRatio trips the breaker once failures/requests reaches it.
	FailureRatio float64

	// MinRequests is the number of calls needed before FailureRatio applies.
	MinRequests uint32
}

// DefaultConfig returns defaults suited to a storage backend.
func DefaultConfig(name string) Config {
	return Config{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// ErrOpen is returned (wrapped) when the breaker rejects a call.
var ErrOpen = gobreaker.ErrOpenState

// Metrics holds breaker collectors shared by every breaker on one registry.
type Metrics struct {
	state    *prometheus.GaugeVec
	rejected *prometheus.CounterVec
}

// NewMetrics registers the breaker collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		state: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current state of the circuit breaker (0=closed, 1=half-open, 2=open)",
		}, []string{"name"}),
		rejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "circuit_breaker_rejected_total",
			Help: "Total number of calls rejected by an open circuit breaker",
		}, []string{"name"}),
	}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// Breaker guards calls returning T.
type Breaker[T any] struct {
	cb      *gobreaker.CircuitBreaker[T]
	name    string
	metrics *Metrics
	logger  *slog.Logger
}

// New creates a breaker. isSuccessful decides which errors count as
// failures; nil counts every non-nil error. metrics may be nil.
func New[T any](cfg Config, metrics *Metrics, logger *slog.Logger, isSuccessful func(error) bool) *Breaker[T] {
	b := &Breaker[T]{name: cfg.Name, metrics: metrics, logger: logger}

	settings := gobreaker.Settings{
		Name:         cfg.Name,
		MaxRequests:  cfg.MaxRequests,
		Interval:     cfg.Interval,
		Timeout:      cfg.Timeout,
		IsSuccessful: isSuccessful,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			if metrics != nil {
				metrics.state.WithLabelValues(name).Set(stateToFloat(to))
			}
		},
	}

	b.cb = gobreaker.NewCircuitBreaker[T](settings)
	if metrics != nil {
		metrics.state.WithLabelValues(cfg.Name).Set(0)
	}
	return b
}

// Execute runs fn through the breaker. Rejections come back as a
// SERVICE_UNAVAILABLE AppError wrapping ErrOpen.
func (b *Breaker[T]) Execute(ctx context.Context, fn func() (T, error)) (T, error) {
	v, err := b.cb.Execute(fn)
	if err != nil && (errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)) {
		if b.metrics != nil {
			b.metrics.rejected.WithLabelValues(b.name).Inc()
		}
		b.logger.WarnContext(ctx, "circuit breaker rejected call", slog.String("breaker", b.name))
		var zero T
		return zero, apperrors.Unavailable(b.name, err)
	}
	return v, err
}

// State returns the breaker's current state.
func (b *Breaker[T]) State() gobreaker.State {
	return b.cb.State()
}

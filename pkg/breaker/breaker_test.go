package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/motoforge/storefront/pkg/errors"
	"github.com/motoforge/storefront/pkg/logger"
)

var errBackend = errors.New("backend down")

func testConfig() Config {
	cfg := DefaultConfig("wishlist-redis")
	cfg.MinRequests = 2
	cfg.Timeout = time.Hour
	return cfg
}

func fail() (int, error) { return 0, errBackend }

func TestBreaker_PassesThroughWhileClosed(t *testing.T) {
	b := New[int](testConfig(), nil, logger.Discard(), nil)

	v, err := b.Execute(context.Background(), func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	_, err = b.Execute(context.Background(), fail)
	assert.ErrorIs(t, err, errBackend)
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreaker_OpensAndRejects(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	b := New[int](testConfig(), metrics, logger.Discard(), nil)

	for i := 0; i < 2; i++ {
		_, _ = b.Execute(context.Background(), fail)
	}
	require.Equal(t, gobreaker.StateOpen, b.State())

	called := false
	_, err := b.Execute(context.Background(), func() (int, error) {
		called = true
		return 1, nil
	})

	require.Error(t, err)
	assert.False(t, called)
	assert.ErrorIs(t, err, ErrOpen)
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
	assert.Equal(t, 503, apperrors.HTTPStatus(err))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.state.WithLabelValues("wishlist-redis")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.rejected.WithLabelValues("wishlist-redis")))
}

func TestBreaker_IsSuccessfulExcludesExpectedErrors(t *testing.T) {
	b := New[int](testConfig(), nil, logger.Discard(), func(err error) bool {
		return err == nil || errors.Is(err, apperrors.ErrNotFound)
	})

	for i := 0; i < 5; i++ {
		_, err := b.Execute(context.Background(), func() (int, error) { return 0, apperrors.ErrNotFound })
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestStateToFloat(t *testing.T) {
	assert.Equal(t, float64(0), stateToFloat(gobreaker.StateClosed))
	assert.Equal(t, float64(1), stateToFloat(gobreaker.StateHalfOpen))
	assert.Equal(t, float64(2), stateToFloat(gobreaker.StateOpen))
}

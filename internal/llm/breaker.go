package llm

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/gmsas95/playground/internal/errors"
)

// breakerProvider wraps a Provider in a circuit breaker so a backend that is
// hard down fails fast instead of eating the caller's timeout on every
// request. This is not a retry layer; requests are still attempted at most
// once.
type breakerProvider struct {
	inner  Provider
	cb     *gobreaker.CircuitBreaker[*GenerateResponse]
	logger *zap.Logger
}

// WithBreaker returns p guarded by a circuit breaker that opens after five
// consecutive failures and probes again after 30 seconds.
func WithBreaker(p Provider, logger *zap.Logger) Provider {
	settings := gobreaker.Settings{
		Name:        p.Name(),
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Provider breaker state change",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &breakerProvider{
		inner:  p,
		cb:     gobreaker.NewCircuitBreaker[*GenerateResponse](settings),
		logger: logger,
	}
}

func (b *breakerProvider) Name() string { return b.inner.Name() }

func (b *breakerProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	resp, err := b.cb.Execute(func() (*GenerateResponse, error) {
		return b.inner.Generate(ctx, req)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, errors.Wrap(err, errors.ErrProviderUnavailable.Code, b.inner.Name()+" circuit open")
	}
	return resp, err
}

func (b *breakerProvider) GenerateStream(ctx context.Context, req GenerateRequest, onChunk StreamHandler) (*GenerateResponse, error) {
	resp, err := b.cb.Execute(func() (*GenerateResponse, error) {
		return b.inner.GenerateStream(ctx, req, onChunk)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, errors.Wrap(err, errors.ErrProviderUnavailable.Code, b.inner.Name()+" circuit open")
	}
	return resp, err
}

func (b *breakerProvider) Models(ctx context.Context) (map[string]string, error) {
	return b.inner.Models(ctx)
}

package resilience

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/errors"
)

// WithTimeout runs fn under a context that expires after timeout. An expired
// deadline is reported as apperrors.ErrTimeout; cancellation of the parent
// context is passed through unchanged.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(tctx) }()

	select {
	case err := <-done:
		return err
	case <-tctx.Done():
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return fmt.Errorf("%s: %w after %v", name, apperrors.ErrTimeout, timeout)
	}
}

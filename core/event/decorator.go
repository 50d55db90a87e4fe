package event

import (
	"context"
	"log/slog"
	"time"
)

// Decorator wraps a handler function to add cross-cutting functionality.
// It follows the same pattern as HTTP middleware.
type Decorator[T any] func(HandlerFunc[T]) HandlerFunc[T]

// ApplyDecorators applies a series of decorators to a handler function.
// The first decorator in the list becomes the outermost wrapper (executes first).
func ApplyDecorators[T any](fn HandlerFunc[T], decorators ...Decorator[T]) HandlerFunc[T] {
	for i := len(decorators) - 1; i >= 0; i-- {
		fn = decorators[i](fn)
	}
	return fn
}

// WithLogging logs every handled event and its outcome at debug level.
func WithLogging[T any](logger *slog.Logger) Decorator[T] {
	return func(next HandlerFunc[T]) HandlerFunc[T] {
		return func(ctx context.Context, payload T) error {
			start := time.Now()
			err := next(ctx, payload)
			if err != nil {
				logger.DebugContext(ctx, "event handler failed",
					slog.String("event", NameOf(payload)),
					slog.Duration("elapsed", time.Since(start)),
					slog.Any("error", err))
				return err
			}
			logger.DebugContext(ctx, "event handled",
				slog.String("event", NameOf(payload)),
				slog.Duration("elapsed", time.Since(start)))
			return nil
		}
	}
}

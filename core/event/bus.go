package event

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Bus delivers events synchronously to subscribed handlers, in subscription order.
// Publishing returns after every handler has run, so handlers may mutate
// pointer payloads (for example by calling Prevent) and the publisher observes it.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]*subscription
	logger   *slog.Logger
}

type subscription struct {
	handler Handler
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithBusLogger sets the logger used to report handler failures.
func WithBusLogger(logger *slog.Logger) BusOption {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBus creates an empty bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		handlers: make(map[string][]*subscription),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers handlers and returns a function that removes them again.
func (b *Bus) Subscribe(handlers ...Handler) (func(), error) {
	subs := make([]*subscription, 0, len(handlers))
	for _, h := range handlers {
		if h == nil {
			return nil, ErrNilHandler
		}
		subs = append(subs, &subscription{handler: h})
	}

	b.mu.Lock()
	for _, s := range subs {
		name := s.handler.EventName()
		b.handlers[name] = append(b.handlers[name], s)
	}
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for _, s := range subs {
				name := s.handler.EventName()
				list := b.handlers[name]
				for i, cur := range list {
					if cur == s {
						b.handlers[name] = append(list[:i:i], list[i+1:]...)
						break
					}
				}
			}
		})
	}, nil
}

// Publish delivers payload to every handler subscribed to its type name.
// Handler errors and panics do not stop delivery; they are joined and returned.
// It reports whether the payload was prevented by a handler, when the payload embeds Cancelable.
func (b *Bus) Publish(ctx context.Context, payload any) (bool, error) {
	evt := NewEvent(payload)

	b.mu.RLock()
	subs := append([]*subscription(nil), b.handlers[evt.Name]...)
	b.mu.RUnlock()

	var errs []error
	for _, s := range subs {
		if err := b.safeHandle(ctx, s.handler, payload); err != nil {
			b.logger.ErrorContext(ctx, "event handler failed",
				slog.String("event", evt.Name),
				slog.String("event_id", evt.ID),
				slog.Any("error", err))
			errs = append(errs, err)
		}
	}

	prevented := false
	if p, ok := payload.(preventable); ok {
		prevented = p.Prevented()
	}
	return prevented, errors.Join(errs...)
}

// HasHandlers reports whether any handler observes events with the given name.
func (b *Bus) HasHandlers(name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[name]) > 0
}

func (b *Bus) safeHandle(ctx context.Context, h Handler, payload any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return h.Handle(ctx, payload)
}

package location

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sync"

	"github.com/dmitrymomot/staterouter/core/logger"
)

// Memory keeps the location and its history in memory.
// Set is used by the application; Navigate simulates the user changing the URL.
type Memory struct {
	mu        sync.Mutex
	current   *url.URL
	history   []string
	listeners []*listener
	logger    *slog.Logger
}

type listener struct {
	fn func(*ChangeEvent)
}

// Option configures a location.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used to trace URL changes.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func newOptions(opts []Option) options {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewMemory creates a location starting at initial, or "/" when it is empty.
func NewMemory(initial string, opts ...Option) (*Memory, error) {
	o := newOptions(opts)
	u, err := parse(initial)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidURL, initial, err)
	}
	return &Memory{
		current: u,
		history: []string{Format(u)},
		logger:  o.logger.With(logger.Component("location")),
	}, nil
}

// Current returns a copy of the current URL.
func (m *Memory) Current() *url.URL {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.current
	return &cp
}

// URL returns the current URL as path?query#fragment.
func (m *Memory) URL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Format(m.current)
}

// Set changes the current URL and notifies listeners. Setting the current URL again is a no-op.
func (m *Memory) Set(rawURL string, replace bool) error {
	old, next, changed, err := m.update(rawURL, replace)
	if err != nil || !changed {
		return err
	}
	m.notify(old, next)
	return nil
}

// Navigate changes the URL as a user typing into the address bar would.
func (m *Memory) Navigate(rawURL string) error {
	return m.Set(rawURL, false)
}

// Back returns to the previous history entry.
func (m *Memory) Back() error {
	m.mu.Lock()
	if len(m.history) < 2 {
		m.mu.Unlock()
		return ErrNoHistory
	}
	old := Format(m.current)
	m.history = m.history[:len(m.history)-1]
	next := m.history[len(m.history)-1]
	u, err := parse(next)
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("%w: %q: %w", ErrInvalidURL, next, err)
	}
	m.current = u
	m.mu.Unlock()

	m.notify(old, next)
	return nil
}

// History returns the history entries, oldest first.
func (m *Memory) History() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.history...)
}

// OnChange registers fn and returns a function removing it.
func (m *Memory) OnChange(fn func(*ChangeEvent)) func() {
	l := &listener{fn: fn}
	m.mu.Lock()
	m.listeners = append(m.listeners, l)
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			for i, cur := range m.listeners {
				if cur == l {
					m.listeners = append(m.listeners[:i:i], m.listeners[i+1:]...)
					break
				}
			}
		})
	}
}

func (m *Memory) update(rawURL string, replace bool) (old, next string, changed bool, err error) {
	u, err := parse(rawURL)
	if err != nil {
		return "", "", false, fmt.Errorf("%w: %q: %w", ErrInvalidURL, rawURL, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	old, next = Format(m.current), Format(u)
	if old == next {
		return old, next, false, nil
	}
	m.current = u
	if replace {
		m.history[len(m.history)-1] = next
	} else {
		m.history = append(m.history, next)
	}
	return old, next, true, nil
}

// notify runs listeners outside the lock so they may change the URL again.
func (m *Memory) notify(old, next string) {
	m.mu.Lock()
	listeners := append([]*listener(nil), m.listeners...)
	m.mu.Unlock()

	m.logger.Debug("location changed", slog.String("from", old), logger.URL(next))

	evt := &ChangeEvent{OldURL: old, NewURL: next}
	for _, l := range listeners {
		l.fn(evt)
	}
}

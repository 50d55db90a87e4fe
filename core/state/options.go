package state

import (
	"io"
	"log/slog"

	"github.com/dmitrymomot/staterouter/core/event"
)

// Option configures a Manager.
type Option func(*Manager)

// WithBus sets the bus transition events are published on.
func WithBus(bus *event.Bus) Option {
	return func(m *Manager) {
		if bus != nil {
			m.bus = bus
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// LocationMode controls whether a transition writes its URL.
type LocationMode int

const (
	// LocationPush adds a history entry.
	LocationPush LocationMode = iota
	// LocationReplace overwrites the current history entry.
	LocationReplace
	// LocationNone leaves the URL untouched.
	LocationNone
)

// TransitionOptions are read by TransitionTo, Go, Href, Is and Includes.
// Each operation starts from its own defaults.
type TransitionOptions struct {
	Location LocationMode
	// Inherit fills missing params from the current params of shared ancestors.
	Inherit bool
	// Relative is the base state for references starting with "." or "^".
	Relative any
	// Notify publishes StateChangeStart, StateChangeSuccess and view events.
	Notify bool
	// Reload re-resolves every level, or the levels from ReloadState down.
	Reload      bool
	ReloadState any
	// Lossy makes Href use the nearest navigable state.
	Lossy bool
	// Absolute makes Href include scheme and host.
	Absolute bool

	retry bool
	// replaces is the transition a restart takes over from.
	replaces *Transition
}

// TransitionOption modifies TransitionOptions.
type TransitionOption func(*TransitionOptions)

// WithLocation sets how the URL is updated.
func WithLocation(mode LocationMode) TransitionOption {
	return func(o *TransitionOptions) {
		o.Location = mode
	}
}

// WithInherit controls param inheritance.
func WithInherit(inherit bool) TransitionOption {
	return func(o *TransitionOptions) {
		o.Inherit = inherit
	}
}

// WithRelative sets the base of relative references.
func WithRelative(ref any) TransitionOption {
	return func(o *TransitionOptions) {
		o.Relative = ref
	}
}

// WithNotify controls event publishing.
func WithNotify(notify bool) TransitionOption {
	return func(o *TransitionOptions) {
		o.Notify = notify
	}
}

// WithReload forces re-resolution. target is true for every level, or a state
// reference to reload that state and its descendants.
func WithReload(target any) TransitionOption {
	return func(o *TransitionOptions) {
		switch t := target.(type) {
		case nil:
			o.Reload, o.ReloadState = false, nil
		case bool:
			o.Reload, o.ReloadState = t, nil
		case string:
			o.Reload, o.ReloadState = true, nil
			if t != "" {
				o.ReloadState = t
			}
		default:
			o.Reload, o.ReloadState = true, target
		}
	}
}

// WithLossy controls whether Href falls back to the nearest navigable state.
func WithLossy(lossy bool) TransitionOption {
	return func(o *TransitionOptions) {
		o.Lossy = lossy
	}
}

// WithAbsolute makes Href return absolute URLs.
func WithAbsolute(absolute bool) TransitionOption {
	return func(o *TransitionOptions) {
		o.Absolute = absolute
	}
}

func withOptions(opts TransitionOptions) TransitionOption {
	return func(o *TransitionOptions) {
		*o = opts
	}
}

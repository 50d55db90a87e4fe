package location

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/staterouter/core/logger"
)

// Frame types exchanged with the client.
const (
	MessageNavigate = "navigate"
	MessageBack     = "back"
	MessagePush     = "push"
	MessageReplace  = "replace"
)

// Message is a JSON frame of the location protocol.
type Message struct {
	Type string `json:"type"`
	URL  string `json:"url,omitempty"`
}

// WebSocket is a location driven by a remote client. Navigation frames from
// the client change the URL; URL changes made by the application are sent to
// the client as push or replace frames.
type WebSocket struct {
	*Memory

	conn    *websocket.Conn
	writeMu sync.Mutex
	logger  *slog.Logger
}

// NewWebSocket wraps an established connection.
func NewWebSocket(conn *websocket.Conn, initial string, opts ...Option) (*WebSocket, error) {
	mem, err := NewMemory(initial, opts...)
	if err != nil {
		return nil, err
	}
	o := newOptions(opts)
	return &WebSocket{
		Memory: mem,
		conn:   conn,
		logger: o.logger.With(logger.Component("location.websocket")),
	}, nil
}

// Accept upgrades an HTTP request and returns a location bound to the connection.
// A nil upgrader uses 1 KiB buffers and the default origin check.
func Accept(w http.ResponseWriter, r *http.Request, upgrader *websocket.Upgrader, initial string, opts ...Option) (*WebSocket, error) {
	if upgrader == nil {
		upgrader = &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		}
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	ws, err := NewWebSocket(conn, initial, opts...)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return ws, nil
}

// Set changes the URL, tells the client and notifies listeners.
func (w *WebSocket) Set(rawURL string, replace bool) error {
	old, next, changed, err := w.update(rawURL, replace)
	if err != nil || !changed {
		return err
	}

	kind := MessagePush
	if replace {
		kind = MessageReplace
	}
	if err := w.write(Message{Type: kind, URL: next}); err != nil {
		w.logger.Error("failed to send location", logger.URL(next), logger.Error(err))
	}

	w.notify(old, next)
	return nil
}

// Serve reads client frames until the connection closes or ctx is done.
// Navigation frames update the URL without echoing it back.
func (w *WebSocket) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		_ = w.conn.Close()
	})
	defer stop()

	for {
		var msg Message
		if err := w.conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}

		if err := w.handle(msg); err != nil {
			w.logger.Warn("rejected location frame", slog.String("type", msg.Type), logger.Error(err))
		}
	}
}

// Close closes the underlying connection.
func (w *WebSocket) Close() error {
	return w.conn.Close()
}

func (w *WebSocket) handle(msg Message) error {
	switch msg.Type {
	case MessageNavigate:
		return w.Memory.Set(msg.URL, false)
	case MessageBack:
		err := w.Memory.Back()
		if errors.Is(err, ErrNoHistory) {
			return nil
		}
		return err
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
}

func (w *WebSocket) write(msg Message) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	return w.conn.WriteJSON(msg)
}

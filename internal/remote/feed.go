// Package remote connects the embedded engine to a backend sync endpoint
// over a websocket. Inbound envelopes are applied to the local store
// through the engine's idempotent ingest path; outbound message creations
// are delivered through the same connection by the outbox flusher.
// Without a configured endpoint the application runs fully local.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/dalmofelipe/zapzap/internal/bus"
	"github.com/dalmofelipe/zapzap/internal/engine"
	"github.com/dalmofelipe/zapzap/internal/engine/local"
	"github.com/dalmofelipe/zapzap/internal/model"
)

// Envelope is the wire frame exchanged with the sync endpoint. Exactly one
// entity field is set, chosen by Kind.
type Envelope struct {
	Kind       string            `json:"kind"`
	Op         bus.Op            `json:"op"`
	User       *model.User       `json:"user,omitempty"`
	Room       *model.ChatRoom   `json:"room,omitempty"`
	Membership *model.Membership `json:"membership,omitempty"`
	Message    *model.Message    `json:"message,omitempty"`
}

// Feed is the websocket link to the backend.
type Feed struct {
	url    string
	eng    *local.Engine
	logger *zap.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
}

// NewFeed creates a feed for the given websocket URL.
func NewFeed(url string, eng *local.Engine, logger *zap.Logger) *Feed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feed{url: url, eng: eng, logger: logger}
}

// Start runs the connect/read loop with backoff until Stop or ctx cancel.
func (f *Feed) Start(ctx context.Context) {
	ctx, f.cancel = context.WithCancel(ctx)
	go f.loop(ctx)
}

// Stop tears the connection down.
func (f *Feed) Stop() {
	if f.cancel != nil {
		f.cancel()
	}
	f.mu.Lock()
	if f.conn != nil {
		_ = f.conn.Close()
		f.conn = nil
	}
	f.mu.Unlock()
}

func (f *Feed) loop(ctx context.Context) {
	backoff := time.Second
	for ctx.Err() == nil {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
		if err != nil {
			f.logger.Warn("sync endpoint dial failed", zap.Error(err), zap.String("url", f.url))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		f.mu.Lock()
		f.conn = conn
		f.mu.Unlock()
		f.logger.Info("sync endpoint connected", zap.String("url", f.url))

		f.readLoop(ctx, conn)

		f.mu.Lock()
		if f.conn == conn {
			f.conn = nil
		}
		f.mu.Unlock()
		_ = conn.Close()
	}
}

func (f *Feed) readLoop(ctx context.Context, conn *websocket.Conn) {
	for ctx.Err() == nil {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if ctx.Err() == nil {
				f.logger.Warn("sync endpoint read failed", zap.Error(err))
			}
			return
		}
		if err := f.Apply(env); err != nil {
			f.logger.Warn("apply remote event", zap.Error(err), zap.String("kind", env.Kind))
		}
	}
}

// Apply folds one inbound envelope into the local engine.
func (f *Feed) Apply(env Envelope) error {
	switch env.Kind {
	case engine.KindUser:
		if env.User == nil {
			return fmt.Errorf("remote: user envelope without user")
		}
		return f.eng.IngestUser(*env.User)
	case engine.KindRoom:
		if env.Room == nil {
			return fmt.Errorf("remote: room envelope without room")
		}
		return f.eng.IngestRoom(*env.Room)
	case engine.KindMembership:
		if env.Membership == nil {
			return fmt.Errorf("remote: membership envelope without membership")
		}
		return f.eng.IngestMembership(env.Op, *env.Membership)
	case engine.KindMessage:
		if env.Message == nil {
			return fmt.Errorf("remote: message envelope without message")
		}
		return f.eng.IngestMessage(env.Op, *env.Message)
	default:
		return fmt.Errorf("remote: unknown envelope kind %q", env.Kind)
	}
}

// Deliver implements local.Transport: it ships an outbound message
// creation to the backend. Not connected means not delivered; the outbox
// retries on the next flush pass.
func (f *Feed) Deliver(_ context.Context, msg *model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn == nil {
		return fmt.Errorf("remote: not connected")
	}

	env := Envelope{Kind: engine.KindMessage, Op: bus.OpInsert, Message: msg}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("remote: encode envelope: %w", err)
	}
	if err := f.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("remote: write envelope: %w", err)
	}
	return nil
}

// Package local is the embedded reference implementation of the sync
// engine: SQLite persistence, push events on the bus, file-backed blob
// storage and an outbox flusher for outbound message creations.
package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dalmofelipe/zapzap/internal/bus"
	"github.com/dalmofelipe/zapzap/internal/engine"
	"github.com/dalmofelipe/zapzap/internal/model"
	"github.com/dalmofelipe/zapzap/internal/store"
)

// Options configures an embedded engine instance.
type Options struct {
	// UserID is the authenticated local user. Empty means unauthenticated;
	// CurrentUserID then fails with engine.ErrNoIdentity.
	UserID string
	// BlobDir is where uploaded media lands.
	BlobDir string
}

// Engine is the embedded sync engine. All mutations go through it; every
// confirmed mutation is published as a push event on the bus.
type Engine struct {
	db     *store.DB
	bus    *bus.Bus
	logger *zap.Logger
	opts   Options
}

var _ engine.Engine = (*Engine)(nil)

// New creates an embedded engine over the given store.
func New(db *store.DB, b *bus.Bus, logger *zap.Logger, opts Options) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{db: db, bus: b, logger: logger, opts: opts}
}

func (e *Engine) publish(kind, scope string, op bus.Op, entity any) {
	e.bus.Publish(bus.Event{
		Topic:     bus.Topic(kind, scope),
		Op:        op,
		Entity:    entity,
		Timestamp: time.Now(),
	})
}

// CurrentUserID implements engine.Identity.
func (e *Engine) CurrentUserID(_ context.Context) (string, error) {
	if e.opts.UserID == "" {
		return "", engine.ErrNoIdentity
	}
	return e.opts.UserID, nil
}

// Observe implements engine.Observer.
func (e *Engine) Observe(topicPrefix string, bufSize int) (<-chan bus.Event, func()) {
	return e.bus.Subscribe(topicPrefix, bufSize)
}

// User implements engine.Querier.
func (e *Engine) User(_ context.Context, id string) (*model.User, error) {
	return e.db.GetUser(id)
}

// Contacts returns every user except the authenticated one.
func (e *Engine) Contacts(ctx context.Context) ([]model.User, error) {
	me, err := e.CurrentUserID(ctx)
	if err != nil {
		return nil, err
	}
	return e.db.ListUsers(me)
}

// Room implements engine.Querier.
func (e *Engine) Room(_ context.Context, id string) (*model.ChatRoom, error) {
	return e.db.GetRoom(id)
}

// Rooms implements engine.Querier.
func (e *Engine) Rooms(_ context.Context) ([]model.ChatRoom, error) {
	return e.db.ListRooms()
}

// Memberships implements engine.Querier.
func (e *Engine) Memberships(_ context.Context) ([]model.Membership, error) {
	return e.db.ListMemberships()
}

// RoomMembers implements engine.Querier.
func (e *Engine) RoomMembers(_ context.Context, roomID string) ([]model.User, error) {
	return e.db.RoomMembers(roomID)
}

// RoomMessages implements engine.Querier.
func (e *Engine) RoomMessages(_ context.Context, roomID string) ([]model.Message, error) {
	return e.db.ListRoomMessages(roomID)
}

// Message implements engine.Querier.
func (e *Engine) Message(_ context.Context, id string) (*model.Message, error) {
	return e.db.GetMessage(id)
}

// SaveUser upserts a user record and pushes the change.
func (e *Engine) SaveUser(_ context.Context, u *model.User) (*model.User, error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if err := e.db.UpsertUser(u); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}
	e.publish(engine.KindUser, u.ID, bus.OpUpdate, *u)
	return u, nil
}

// CreateRoom creates a chat room and pushes the insert.
func (e *Engine) CreateRoom(_ context.Context, room *model.ChatRoom) (*model.ChatRoom, error) {
	if room.ID == "" {
		room.ID = uuid.New().String()
	}
	if err := e.db.UpsertRoom(room); err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}
	e.publish(engine.KindRoom, room.ID, bus.OpInsert, *room)
	return room, nil
}

// AddMember attaches a user to a room. Re-adding an existing member is a
// no-op that returns the pair without a push event.
func (e *Engine) AddMember(_ context.Context, roomID, userID string) (*model.Membership, error) {
	m := &model.Membership{ID: uuid.New().String(), RoomID: roomID, UserID: userID}
	inserted, err := e.db.InsertMembership(m)
	if err != nil {
		return nil, fmt.Errorf("add member: %w", err)
	}
	if inserted {
		e.publish(engine.KindMembership, roomID, bus.OpInsert, *m)
	}
	return m, nil
}

// RemoveMember detaches a user from a room.
func (e *Engine) RemoveMember(_ context.Context, roomID, userID string) error {
	removed, err := e.db.DeleteMembership(roomID, userID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	if removed != nil {
		e.publish(engine.KindMembership, roomID, bus.OpDelete, *removed)
	}
	return nil
}

// CreateMessage stores a new message, queues it for backend delivery,
// bumps the room's last-message reference and pushes both changes.
func (e *Engine) CreateMessage(_ context.Context, msg *model.Message) (*model.Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt == 0 {
		msg.CreatedAt = time.Now().UnixMilli()
	}
	if !msg.Status.Valid() {
		msg.Status = model.StatusSent
	}
	if msg.ReplyToID != "" {
		// A reply may only target a message that already exists. With ids
		// assigned here this is automatic; callers supplying their own ids
		// could otherwise forward-reference and close a reply cycle.
		if msg.ReplyToID == msg.ID {
			return nil, fmt.Errorf("create message: reply target is the message itself")
		}
		target, err := e.db.GetMessage(msg.ReplyToID)
		if err != nil {
			return nil, fmt.Errorf("create message: %w", err)
		}
		if target == nil {
			return nil, fmt.Errorf("create message: reply target %q not found", msg.ReplyToID)
		}
	}

	if err := e.db.UpsertMessage(msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	if err := e.db.QueueOutbox(msg.ID, msg.RoomID); err != nil {
		return nil, fmt.Errorf("queue outbox: %w", err)
	}
	if err := e.db.SetRoomLastMessage(msg.RoomID, msg.ID, msg.CreatedAt); err != nil {
		e.logger.Warn("update room last message", zap.Error(err), zap.String("room_id", msg.RoomID))
	}

	e.publish(engine.KindMessage, msg.RoomID, bus.OpInsert, *msg)
	if room, err := e.db.GetRoom(msg.RoomID); err == nil && room != nil {
		e.publish(engine.KindRoom, room.ID, bus.OpUpdate, *room)
	}
	return msg, nil
}

// AdvanceStatus moves a message's delivery status forward. Transitions
// that do not strictly increase the lattice rank are silently dropped,
// which makes retries and out-of-order proposals idempotent.
func (e *Engine) AdvanceStatus(_ context.Context, messageID string, to model.Status) error {
	msg, err := e.db.GetMessage(messageID)
	if err != nil {
		return fmt.Errorf("advance status: %w", err)
	}
	if msg == nil {
		return engine.ErrNotFound
	}
	if !msg.Status.Advances(to) {
		return nil
	}
	if err := e.db.SetMessageStatus(messageID, to); err != nil {
		return fmt.Errorf("advance status: %w", err)
	}
	msg.Status = to
	e.publish(engine.KindMessage, msg.RoomID, bus.OpUpdate, *msg)
	return nil
}

// DeleteMessage tombstones a message. The row keeps its slot in history;
// viewers render a placeholder instead of the content.
func (e *Engine) DeleteMessage(_ context.Context, messageID string) error {
	msg, err := e.db.GetMessage(messageID)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if msg == nil {
		return engine.ErrNotFound
	}
	if err := e.db.TombstoneMessage(messageID); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	msg.Deleted = true
	e.publish(engine.KindMessage, msg.RoomID, bus.OpDelete, *msg)
	return nil
}

// TouchPresence bumps a user's last-online timestamp.
func (e *Engine) TouchPresence(_ context.Context, userID string, at time.Time) error {
	if err := e.db.TouchUserLastOnline(userID, at.UnixMilli()); err != nil {
		return fmt.Errorf("touch presence: %w", err)
	}
	if u, err := e.db.GetUser(userID); err == nil && u != nil {
		e.publish(engine.KindUser, u.ID, bus.OpUpdate, *u)
	}
	return nil
}

// UploadBlob stores media bytes under key in the blob directory.
func (e *Engine) UploadBlob(_ context.Context, key string, r io.Reader) (string, error) {
	if e.opts.BlobDir == "" {
		return "", fmt.Errorf("upload blob: no blob directory configured")
	}
	if err := os.MkdirAll(e.opts.BlobDir, 0700); err != nil {
		return "", fmt.Errorf("upload blob: %w", err)
	}
	path := filepath.Join(e.opts.BlobDir, key)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return "", fmt.Errorf("upload blob: %w", err)
	}
	_, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if copyErr != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("upload blob: %w", copyErr)
	}
	if closeErr != nil {
		return "", fmt.Errorf("upload blob: %w", closeErr)
	}
	return key, nil
}

// BlobURL resolves a storage key to a local path.
func (e *Engine) BlobURL(key string) (string, error) {
	path := filepath.Join(e.opts.BlobDir, key)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("resolve blob %q: %w", key, err)
	}
	return path, nil
}

package local

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/dalmofelipe/zapzap/internal/bus"
	"github.com/dalmofelipe/zapzap/internal/engine"
	"github.com/dalmofelipe/zapzap/internal/model"
)

// Ingest methods apply entity state received from the remote backend.
// They are idempotent per entity id so the remote feed can replay events
// freely; the corresponding push event is republished locally so open
// view-models pick the change up.

// IngestUser applies a remote user snapshot.
func (e *Engine) IngestUser(u model.User) error {
	if err := e.db.UpsertUser(&u); err != nil {
		return fmt.Errorf("ingest user: %w", err)
	}
	e.publish(engine.KindUser, u.ID, bus.OpUpdate, u)
	return nil
}

// IngestRoom applies a remote room snapshot.
func (e *Engine) IngestRoom(room model.ChatRoom) error {
	if err := e.db.UpsertRoom(&room); err != nil {
		return fmt.Errorf("ingest room: %w", err)
	}
	e.publish(engine.KindRoom, room.ID, bus.OpUpdate, room)
	return nil
}

// IngestMembership applies a remote membership change.
func (e *Engine) IngestMembership(op bus.Op, m model.Membership) error {
	switch op {
	case bus.OpDelete:
		removed, err := e.db.DeleteMembership(m.RoomID, m.UserID)
		if err != nil {
			return fmt.Errorf("ingest membership: %w", err)
		}
		if removed != nil {
			e.publish(engine.KindMembership, m.RoomID, bus.OpDelete, *removed)
		}
	default:
		inserted, err := e.db.InsertMembership(&m)
		if err != nil {
			return fmt.Errorf("ingest membership: %w", err)
		}
		if inserted {
			e.publish(engine.KindMembership, m.RoomID, bus.OpInsert, m)
		}
	}
	return nil
}

// IngestMessage applies a remote message change. Status never regresses:
// a stale snapshot arriving after a newer local state keeps the newer
// status. Deletes tombstone instead of removing. Unlike CreateMessage,
// reply targets are not checked here: the feed can replay a reply before
// the message it quotes, and the preview resolves once the target lands.
func (e *Engine) IngestMessage(op bus.Op, msg model.Message) error {
	existing, err := e.db.GetMessage(msg.ID)
	if err != nil {
		return fmt.Errorf("ingest message: %w", err)
	}

	if op == bus.OpDelete {
		if existing == nil {
			return nil
		}
		if err := e.db.TombstoneMessage(msg.ID); err != nil {
			return fmt.Errorf("ingest message: %w", err)
		}
		existing.Deleted = true
		e.publish(engine.KindMessage, existing.RoomID, bus.OpDelete, *existing)
		return nil
	}

	isNew := existing == nil
	if existing != nil {
		if !existing.Status.Advances(msg.Status) {
			msg.Status = existing.Status
		}
		msg.Deleted = msg.Deleted || existing.Deleted
	}
	if err := e.db.UpsertMessage(&msg); err != nil {
		return fmt.Errorf("ingest message: %w", err)
	}

	if isNew {
		if err := e.db.SetRoomLastMessage(msg.RoomID, msg.ID, msg.CreatedAt); err != nil {
			e.logger.Warn("update room last message", zap.Error(err), zap.String("room_id", msg.RoomID))
		}
		e.publish(engine.KindMessage, msg.RoomID, bus.OpInsert, msg)
		if room, err := e.db.GetRoom(msg.RoomID); err == nil && room != nil {
			e.publish(engine.KindRoom, room.ID, bus.OpUpdate, *room)
		}
	} else {
		e.publish(engine.KindMessage, msg.RoomID, bus.OpUpdate, msg)
	}
	return nil
}

package rooms

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalmofelipe/zapzap/internal/engine"
	"github.com/dalmofelipe/zapzap/internal/model"
)

// ErrNotAdmin is returned when a non-admin tries to manage group members.
var ErrNotAdmin = errors.New("rooms: only the group admin can remove members")

// ErrAdminRemoval is returned when the admin tries to remove themselves.
var ErrAdminRemoval = errors.New("rooms: the admin cannot be removed from the group")

// GroupSource is the slice of the engine group management needs.
type GroupSource interface {
	CurrentUserID(ctx context.Context) (string, error)
	Room(ctx context.Context, id string) (*model.ChatRoom, error)
	RoomMembers(ctx context.Context, roomID string) ([]model.User, error)
	RemoveMember(ctx context.Context, roomID, userID string) error
}

// Group manages membership of one group room.
type Group struct {
	src GroupSource
}

// NewGroup creates a group manager.
func NewGroup(src GroupSource) *Group {
	return &Group{src: src}
}

// Members returns the room's member records.
func (g *Group) Members(ctx context.Context, roomID string) ([]model.User, error) {
	return g.src.RoomMembers(ctx, roomID)
}

// Remove detaches userID from the group. Only the admin may remove
// members, and never themselves.
func (g *Group) Remove(ctx context.Context, roomID, userID string) error {
	me, err := g.src.CurrentUserID(ctx)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}

	room, err := g.src.Room(ctx, roomID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	if room == nil {
		return engine.ErrNotFound
	}
	if room.AdminID != me {
		return ErrNotAdmin
	}
	if userID == room.AdminID {
		return ErrAdminRemoval
	}
	return g.src.RemoveMember(ctx, roomID, userID)
}

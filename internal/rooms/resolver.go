// Package rooms resolves and creates conversations: find the existing 1:1
// room for a pair of users, or create a new direct or group room.
package rooms

import (
	"context"
	"fmt"

	"github.com/dalmofelipe/zapzap/internal/model"
)

// DefaultGroupName is the placeholder name a new group starts with.
const DefaultGroupName = "New group"

// Source is the slice of the engine the resolver needs.
type Source interface {
	CurrentUserID(ctx context.Context) (string, error)
	Rooms(ctx context.Context) ([]model.ChatRoom, error)
	RoomMembers(ctx context.Context, roomID string) ([]model.User, error)
	CreateRoom(ctx context.Context, room *model.ChatRoom) (*model.ChatRoom, error)
	AddMember(ctx context.Context, roomID, userID string) (*model.Membership, error)
}

// Resolver finds or creates chat rooms.
type Resolver struct {
	src Source
}

// NewResolver creates a resolver over the given engine slice.
func NewResolver(src Source) *Resolver {
	return &Resolver{src: src}
}

// FindDirect returns the existing 1:1 room between the current user and
// otherID, or nil when none exists. A room qualifies only when its
// membership set has exactly two members and they are exactly that pair;
// a group containing both users never qualifies.
func (r *Resolver) FindDirect(ctx context.Context, otherID string) (*model.ChatRoom, error) {
	me, err := r.src.CurrentUserID(ctx)
	if err != nil {
		return nil, fmt.Errorf("find direct room: %w", err)
	}

	candidates, err := r.src.Rooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("find direct room: %w", err)
	}

	for i := range candidates {
		members, err := r.src.RoomMembers(ctx, candidates[i].ID)
		if err != nil {
			return nil, fmt.Errorf("find direct room: %w", err)
		}
		if len(members) != 2 {
			continue
		}
		hasMe := members[0].ID == me || members[1].ID == me
		hasOther := members[0].ID == otherID || members[1].ID == otherID
		if hasMe && hasOther {
			return &candidates[i], nil
		}
	}
	return nil, nil
}

// StartDirect returns the room to open for a 1:1 conversation with
// otherID, creating it when no existing room qualifies. New direct rooms
// carry no name and no admin.
func (r *Resolver) StartDirect(ctx context.Context, otherID string) (*model.ChatRoom, error) {
	if existing, err := r.FindDirect(ctx, otherID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	me, err := r.src.CurrentUserID(ctx)
	if err != nil {
		return nil, fmt.Errorf("start direct room: %w", err)
	}

	room, err := r.src.CreateRoom(ctx, &model.ChatRoom{})
	if err != nil {
		return nil, fmt.Errorf("start direct room: %w", err)
	}
	for _, id := range []string{me, otherID} {
		if _, err := r.src.AddMember(ctx, room.ID, id); err != nil {
			return nil, fmt.Errorf("start direct room: %w", err)
		}
	}
	return room, nil
}

// CreateGroup always creates a new room, bypassing the resolver, with the
// current user as admin, a placeholder name, and every selected user plus
// the creator as members.
func (r *Resolver) CreateGroup(ctx context.Context, userIDs []string) (*model.ChatRoom, error) {
	if len(userIDs) == 0 {
		return nil, fmt.Errorf("create group: no users selected")
	}

	me, err := r.src.CurrentUserID(ctx)
	if err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}

	room, err := r.src.CreateRoom(ctx, &model.ChatRoom{
		Name:    DefaultGroupName,
		AdminID: me,
	})
	if err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}

	if _, err := r.src.AddMember(ctx, room.ID, me); err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	for _, id := range userIDs {
		if id == me {
			continue
		}
		if _, err := r.src.AddMember(ctx, room.ID, id); err != nil {
			return nil, fmt.Errorf("create group: %w", err)
		}
	}
	return room, nil
}

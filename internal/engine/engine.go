// Package engine defines the boundary to the sync engine: typed queries,
// propose-style mutations, push-event observation, identity resolution and
// blob storage. View-models depend on (subsets of) this contract and are
// handed an implementation explicitly, never a global.
package engine

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/dalmofelipe/zapzap/internal/bus"
	"github.com/dalmofelipe/zapzap/internal/model"
)

// Topic kinds used with bus.Topic for push-event scoping.
const (
	KindUser       = "user"
	KindRoom       = "chatroom"
	KindMembership = "membership"
	KindMessage    = "message"
)

// ErrNoIdentity is returned when no authenticated user is available.
var ErrNoIdentity = errors.New("engine: no authenticated identity")

// ErrNotFound is returned by proposals that target a missing entity.
// Queries return nil instead; absence is not an error when reading.
var ErrNotFound = errors.New("engine: entity not found")

// Identity resolves the authenticated local user.
type Identity interface {
	CurrentUserID(ctx context.Context) (string, error)
}

// Querier reads current entity state. A nil entity with a nil error means
// not found.
type Querier interface {
	User(ctx context.Context, id string) (*model.User, error)
	Contacts(ctx context.Context) ([]model.User, error)
	Room(ctx context.Context, id string) (*model.ChatRoom, error)
	Rooms(ctx context.Context) ([]model.ChatRoom, error)
	Memberships(ctx context.Context) ([]model.Membership, error)
	RoomMembers(ctx context.Context, roomID string) ([]model.User, error)
	RoomMessages(ctx context.Context, roomID string) ([]model.Message, error)
	Message(ctx context.Context, id string) (*model.Message, error)
}

// Proposer submits mutations. The engine is the sole writer; callers get
// the confirmed entity back and the same change arrives as a push event.
type Proposer interface {
	SaveUser(ctx context.Context, u *model.User) (*model.User, error)
	CreateRoom(ctx context.Context, room *model.ChatRoom) (*model.ChatRoom, error)
	AddMember(ctx context.Context, roomID, userID string) (*model.Membership, error)
	RemoveMember(ctx context.Context, roomID, userID string) error
	CreateMessage(ctx context.Context, msg *model.Message) (*model.Message, error)
	AdvanceStatus(ctx context.Context, messageID string, to model.Status) error
	DeleteMessage(ctx context.Context, messageID string) error
	TouchPresence(ctx context.Context, userID string, at time.Time) error
}

// Observer exposes the live push stream. The release func must be called
// on teardown or when the observed scope changes.
type Observer interface {
	Observe(topicPrefix string, bufSize int) (<-chan bus.Event, func())
}

// Blobs is the media storage boundary.
type Blobs interface {
	UploadBlob(ctx context.Context, key string, r io.Reader) (string, error)
	BlobURL(key string) (string, error)
}

// Engine is the full sync-engine contract.
type Engine interface {
	Identity
	Querier
	Proposer
	Observer
	Blobs
}

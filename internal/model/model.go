// Package model holds the entity types mirrored from the sync engine.
// The application never mutates these in place; every change is proposed
// to the engine and comes back as a push event.
package model

// User is a chat participant.
type User struct {
	ID           string
	Name         string
	ImageURI     string
	LastOnlineAt int64 // unix millis, zero if never seen
}

// ChatRoom is a conversation. Name, ImageURI and AdminID are set only for
// group rooms; a direct room has exactly two members and none of them.
type ChatRoom struct {
	ID            string
	Name          string
	ImageURI      string
	AdminID       string
	LastMessageID string
	LastMessageAt int64
	Unread        int
}

// IsGroup reports whether the room record carries group attributes.
// Membership cardinality is the authoritative check; this is the cheap
// display-side one.
func (c *ChatRoom) IsGroup() bool {
	return c.AdminID != ""
}

// Membership links one user to one chat room. (user, room) pairs are unique.
type Membership struct {
	ID     string
	RoomID string
	UserID string
}

// Message is a single chat message. At most one of ImageKey, AudioKey and
// DocumentKey is set; keys reference blobs in the engine's media storage.
// Deleted messages keep their slot in history as a tombstone.
type Message struct {
	ID          string
	RoomID      string
	AuthorID    string
	Content     string
	ImageKey    string
	AudioKey    string
	DocumentKey string
	ReplyToID   string
	Status      Status
	Deleted     bool
	CreatedAt   int64 // unix millis
}

// HasMedia reports whether the message carries any blob reference.
func (m *Message) HasMedia() bool {
	return m.ImageKey != "" || m.AudioKey != "" || m.DocumentKey != ""
}

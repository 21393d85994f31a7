package bus

import "time"

// Op is the kind of mutation a push event describes.
type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// Event is a push notification emitted by the sync engine after a
// confirmed mutation. Entity carries the post-mutation entity value
// (for OpDelete, the tombstoned entity).
type Event struct {
	Topic     string
	Op        Op
	Entity    any
	Timestamp time.Time
}

// Topic builds a scoped topic string, e.g. Topic("message", roomID).
// Subscribers match by prefix, so Subscribe("message.") observes every
// room and Subscribe(Topic("message", id)) observes a single one.
func Topic(kind, scope string) string {
	if scope == "" {
		return kind + "."
	}
	return kind + "." + scope
}

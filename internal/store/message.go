package store

import (
	"database/sql"
	"time"

	"github.com/dalmofelipe/zapzap/internal/model"
)

// UpsertMessage inserts or updates a message (idempotent on id). Status
// monotonicity is enforced one level up, at the engine boundary; the store
// writes whatever it is handed.
func (db *DB) UpsertMessage(m *model.Message) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO messages (id, room_id, author_id, content, image_key, audio_key, document_key, reply_to_id, status, deleted, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			status = excluded.status,
			deleted = excluded.deleted`,
		m.ID, m.RoomID, m.AuthorID, m.Content, m.ImageKey, m.AudioKey, m.DocumentKey,
		m.ReplyToID, string(m.Status), m.Deleted, nonZero(m.CreatedAt, now))
	return err
}

func nonZero(v, fallback int64) int64 {
	if v != 0 {
		return v
	}
	return fallback
}

// SetMessageStatus overwrites a message's delivery status.
func (db *DB) SetMessageStatus(id string, status model.Status) error {
	_, err := db.Exec(`UPDATE messages SET status = ? WHERE id = ?`, string(status), id)
	return err
}

// TombstoneMessage soft-removes a message: content stays hidden behind the
// deleted flag and the row keeps its place in history.
func (db *DB) TombstoneMessage(id string) error {
	_, err := db.Exec(`UPDATE messages SET deleted = 1 WHERE id = ?`, id)
	return err
}

// GetMessage returns a message by id, or nil when not found.
func (db *DB) GetMessage(id string) (*model.Message, error) {
	row := db.QueryRow(`
		SELECT id, room_id, author_id, content, image_key, audio_key, document_key, reply_to_id, status, deleted, created_at
		FROM messages WHERE id = ?`, id)
	m, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ListRoomMessages returns a room's messages newest first.
func (db *DB) ListRoomMessages(roomID string) ([]model.Message, error) {
	rows, err := db.Query(`
		SELECT id, room_id, author_id, content, image_key, audio_key, document_key, reply_to_id, status, deleted, created_at
		FROM messages WHERE room_id = ? ORDER BY created_at DESC`, roomID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []model.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	return msgs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(r rowScanner) (*model.Message, error) {
	var m model.Message
	var status string
	if err := r.Scan(&m.ID, &m.RoomID, &m.AuthorID, &m.Content, &m.ImageKey, &m.AudioKey,
		&m.DocumentKey, &m.ReplyToID, &status, &m.Deleted, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Status = model.Status(status)
	return &m, nil
}

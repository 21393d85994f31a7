package store

import (
	"database/sql"
	"time"

	"github.com/dalmofelipe/zapzap/internal/model"
)

// UpsertRoom inserts or updates a chat room record.
func (db *DB) UpsertRoom(c *model.ChatRoom) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO chat_rooms (id, name, image_uri, admin_id, last_message_id, last_message_at, unread, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			image_uri = excluded.image_uri,
			admin_id = excluded.admin_id,
			last_message_id = excluded.last_message_id,
			last_message_at = excluded.last_message_at,
			unread = excluded.unread,
			updated_at = excluded.updated_at`,
		c.ID, c.Name, c.ImageURI, c.AdminID, c.LastMessageID, c.LastMessageAt, c.Unread, now)
	return err
}

// SetRoomLastMessage points the room at its most recent message and bumps
// the activity timestamp used for list ordering.
func (db *DB) SetRoomLastMessage(roomID, messageID string, at int64) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		UPDATE chat_rooms SET last_message_id = ?, last_message_at = ?, updated_at = ?
		WHERE id = ?`, messageID, at, now, roomID)
	return err
}

// SetRoomUnread overwrites the display-only unread counter.
func (db *DB) SetRoomUnread(roomID string, unread int) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`UPDATE chat_rooms SET unread = ?, updated_at = ? WHERE id = ?`, unread, now, roomID)
	return err
}

// GetRoom returns a room by id, or nil when not found.
func (db *DB) GetRoom(id string) (*model.ChatRoom, error) {
	var c model.ChatRoom
	err := db.QueryRow(`
		SELECT id, name, image_uri, admin_id, last_message_id, last_message_at, unread
		FROM chat_rooms WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.ImageURI, &c.AdminID, &c.LastMessageID, &c.LastMessageAt, &c.Unread)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListRooms returns every room ordered by last activity descending.
func (db *DB) ListRooms() ([]model.ChatRoom, error) {
	rows, err := db.Query(`
		SELECT id, name, image_uri, admin_id, last_message_id, last_message_at, unread
		FROM chat_rooms ORDER BY last_message_at DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var rooms []model.ChatRoom
	for rows.Next() {
		var c model.ChatRoom
		if err := rows.Scan(&c.ID, &c.Name, &c.ImageURI, &c.AdminID, &c.LastMessageID, &c.LastMessageAt, &c.Unread); err != nil {
			return nil, err
		}
		rooms = append(rooms, c)
	}
	return rooms, rows.Err()
}

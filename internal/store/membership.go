package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/dalmofelipe/zapzap/internal/model"
)

// InsertMembership attaches a user to a room. The (room, user) pair is
// unique; re-inserting an existing pair is a no-op and reports false.
func (db *DB) InsertMembership(m *model.Membership) (bool, error) {
	now := time.Now().UnixMilli()
	res, err := db.Exec(`
		INSERT INTO memberships (id, room_id, user_id, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(room_id, user_id) DO NOTHING`,
		m.ID, m.RoomID, m.UserID, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteMembership removes a user from a room. Returns the removed
// membership or nil when the pair did not exist.
func (db *DB) DeleteMembership(roomID, userID string) (*model.Membership, error) {
	var m model.Membership
	err := db.QueryRow(`
		DELETE FROM memberships WHERE room_id = ? AND user_id = ?
		RETURNING id, room_id, user_id`, roomID, userID).
		Scan(&m.ID, &m.RoomID, &m.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// ListMemberships returns every membership record.
func (db *DB) ListMemberships() ([]model.Membership, error) {
	rows, err := db.Query(`SELECT id, room_id, user_id FROM memberships ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.Membership
	for rows.Next() {
		var m model.Membership
		if err := rows.Scan(&m.ID, &m.RoomID, &m.UserID); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// RoomMembers returns the full user records attached to a room.
func (db *DB) RoomMembers(roomID string) ([]model.User, error) {
	rows, err := db.Query(`
		SELECT u.id, u.name, u.image_uri, u.last_online_at
		FROM memberships m JOIN users u ON u.id = m.user_id
		WHERE m.room_id = ? ORDER BY m.created_at ASC`, roomID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.ImageURI, &u.LastOnlineAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

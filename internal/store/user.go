package store

import (
	"database/sql"
	"time"

	"github.com/dalmofelipe/zapzap/internal/model"
)

// UpsertUser inserts or updates a user record.
func (db *DB) UpsertUser(u *model.User) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO users (id, name, image_uri, last_online_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			image_uri = excluded.image_uri,
			last_online_at = excluded.last_online_at,
			updated_at = excluded.updated_at`,
		u.ID, u.Name, u.ImageURI, u.LastOnlineAt, now)
	return err
}

// TouchUserLastOnline bumps a user's last_online_at without rewriting
// the rest of the record. Missing users are ignored.
func (db *DB) TouchUserLastOnline(id string, at int64) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`UPDATE users SET last_online_at = ?, updated_at = ? WHERE id = ?`, at, now, id)
	return err
}

// GetUser returns a user by id, or nil when not found.
func (db *DB) GetUser(id string) (*model.User, error) {
	var u model.User
	err := db.QueryRow(`
		SELECT id, name, image_uri, last_online_at FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &u.ImageURI, &u.LastOnlineAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers returns all users except the one with excludeID, name order.
func (db *DB) ListUsers(excludeID string) ([]model.User, error) {
	rows, err := db.Query(`
		SELECT id, name, image_uri, last_online_at
		FROM users WHERE id != ? ORDER BY name ASC`, excludeID)
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

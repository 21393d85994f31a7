package store

import "time"

// OutboxEntry is a message creation waiting for backend acknowledgment.
type OutboxEntry struct {
	ID        int64
	MessageID string
	RoomID    string
	Status    string // queued, flushing, acked, failed
	Error     string
}

// QueueOutbox records a proposed message creation for the flusher.
func (db *DB) QueueOutbox(messageID, roomID string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO outbox (message_id, room_id, status, created_at, updated_at)
		VALUES (?, ?, 'queued', ?, ?)`,
		messageID, roomID, now, now)
	return err
}

// MarkOutboxFlushing moves an entry to 'flushing'.
func (db *DB) MarkOutboxFlushing(messageID string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`UPDATE outbox SET status = 'flushing', updated_at = ? WHERE message_id = ?`, now, messageID)
	return err
}

// MarkOutboxAcked moves an entry to 'acked'.
func (db *DB) MarkOutboxAcked(messageID string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`UPDATE outbox SET status = 'acked', updated_at = ? WHERE message_id = ?`, now, messageID)
	return err
}

// MarkOutboxFailed moves an entry back to 'queued' with the error recorded,
// so the next flush pass retries it.
func (db *DB) MarkOutboxFailed(messageID, errMsg string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`UPDATE outbox SET status = 'queued', error = ?, updated_at = ? WHERE message_id = ?`, errMsg, now, messageID)
	return err
}

// RequeueStaleOutbox moves 'flushing' entries back to 'queued'. Only one
// flusher runs per profile, so at startup any entry still in 'flushing'
// was abandoned by a process that died mid-flush.
func (db *DB) RequeueStaleOutbox() (int64, error) {
	now := time.Now().UnixMilli()
	res, err := db.Exec(`UPDATE outbox SET status = 'queued', updated_at = ? WHERE status = 'flushing'`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PendingOutbox returns entries still waiting to be flushed, oldest first.
func (db *DB) PendingOutbox() ([]OutboxEntry, error) {
	rows, err := db.Query(`
		SELECT id, message_id, room_id, status, error
		FROM outbox WHERE status = 'queued' ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []OutboxEntry
	for rows.Next() {
		var e OutboxEntry
		if err := rows.Scan(&e.ID, &e.MessageID, &e.RoomID, &e.Status, &e.Error); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

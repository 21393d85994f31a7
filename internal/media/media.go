// Package media coordinates the two-step media send: upload the blob,
// then propose the message carrying the storage key. Upload failure is a
// send failure surfaced to the caller; no message is created for a blob
// that never landed.
package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/dalmofelipe/zapzap/internal/model"
)

// Kind selects which attachment slot a send fills.
type Kind int

const (
	KindImage Kind = iota
	KindAudio
	KindDocument
)

// Source is the slice of the engine the sender needs.
type Source interface {
	CurrentUserID(ctx context.Context) (string, error)
	UploadBlob(ctx context.Context, key string, r io.Reader) (string, error)
	CreateMessage(ctx context.Context, msg *model.Message) (*model.Message, error)
}

// Sender sends media messages.
type Sender struct {
	src Source
}

// NewSender creates a media sender.
func NewSender(src Source) *Sender {
	return &Sender{src: src}
}

// SendFile uploads the file at path and proposes a message of the given
// kind in roomID. Caption and replyToID are optional. The blob is stored
// under a fresh uuid key that keeps the file's extension.
func (s *Sender) SendFile(ctx context.Context, roomID, path string, kind Kind, caption, replyToID string) (*model.Message, error) {
	me, err := s.src.CurrentUserID(ctx)
	if err != nil {
		return nil, fmt.Errorf("send media: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("send media: %w", err)
	}
	defer func() { _ = f.Close() }()

	key := uuid.New().String() + filepath.Ext(path)
	key, err = s.src.UploadBlob(ctx, key, f)
	if err != nil {
		return nil, fmt.Errorf("send media: upload failed: %w", err)
	}

	msg := &model.Message{
		RoomID:    roomID,
		AuthorID:  me,
		Content:   caption,
		ReplyToID: replyToID,
	}
	switch kind {
	case KindImage:
		msg.ImageKey = key
	case KindAudio:
		msg.AudioKey = key
	case KindDocument:
		msg.DocumentKey = key
	default:
		return nil, fmt.Errorf("send media: unknown kind %d", kind)
	}

	confirmed, err := s.src.CreateMessage(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("send media: %w", err)
	}
	return confirmed, nil
}

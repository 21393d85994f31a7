package media

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dalmofelipe/zapzap/internal/model"
)

type fakeSource struct {
	uploadErr error
	uploaded  map[string]string
	created   []model.Message
}

func newFakeSource() *fakeSource {
	return &fakeSource{uploaded: make(map[string]string)}
}

func (f *fakeSource) CurrentUserID(context.Context) (string, error) { return "me", nil }

func (f *fakeSource) UploadBlob(_ context.Context, key string, r io.Reader) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.uploaded[key] = string(data)
	return key, nil
}

func (f *fakeSource) CreateMessage(_ context.Context, msg *model.Message) (*model.Message, error) {
	msg.ID = "m1"
	f.created = append(f.created, *msg)
	return msg, nil
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSendFileImage(t *testing.T) {
	src := newFakeSource()
	s := NewSender(src)

	path := writeTemp(t, "photo.png", "pixels")
	msg, err := s.SendFile(context.Background(), "r1", path, KindImage, "look", "m0")
	if err != nil {
		t.Fatal(err)
	}

	if msg.ImageKey == "" || msg.AudioKey != "" || msg.DocumentKey != "" {
		t.Errorf("wrong slot filled: %+v", msg)
	}
	if !strings.HasSuffix(msg.ImageKey, ".png") {
		t.Errorf("key should keep the extension: %q", msg.ImageKey)
	}
	if msg.Content != "look" || msg.ReplyToID != "m0" || msg.AuthorID != "me" || msg.RoomID != "r1" {
		t.Errorf("message fields: %+v", msg)
	}
	if src.uploaded[msg.ImageKey] != "pixels" {
		t.Error("blob content not uploaded")
	}
}

func TestSendFileSlots(t *testing.T) {
	cases := []struct {
		kind Kind
		file string
		pick func(m *model.Message) string
	}{
		{KindAudio, "note.ogg", func(m *model.Message) string { return m.AudioKey }},
		{KindDocument, "paper.pdf", func(m *model.Message) string { return m.DocumentKey }},
	}
	for _, c := range cases {
		src := newFakeSource()
		s := NewSender(src)
		path := writeTemp(t, c.file, "data")
		msg, err := s.SendFile(context.Background(), "r1", path, c.kind, "", "")
		if err != nil {
			t.Fatal(err)
		}
		if c.pick(msg) == "" {
			t.Errorf("%s: slot not filled: %+v", c.file, msg)
		}
	}
}

func TestSendFileUploadFailureCreatesNoMessage(t *testing.T) {
	src := newFakeSource()
	src.uploadErr = errors.New("storage down")
	s := NewSender(src)

	path := writeTemp(t, "photo.png", "pixels")
	_, err := s.SendFile(context.Background(), "r1", path, KindImage, "", "")
	if err == nil {
		t.Fatal("upload failure must surface as a send failure")
	}
	if len(src.created) != 0 {
		t.Error("no message may exist for a blob that never landed")
	}
}

func TestSendFileMissingFile(t *testing.T) {
	s := NewSender(newFakeSource())
	if _, err := s.SendFile(context.Background(), "r1", "/does/not/exist.png", KindImage, "", ""); err == nil {
		t.Fatal("missing file should fail")
	}
}

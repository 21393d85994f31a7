package tui

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dalmofelipe/zapzap/internal/bus"
	"github.com/dalmofelipe/zapzap/internal/engine/local"
	"github.com/dalmofelipe/zapzap/internal/model"
	"github.com/dalmofelipe/zapzap/internal/roomlist"
	"github.com/dalmofelipe/zapzap/internal/store"
)

func testApp(t *testing.T) *App {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	eng := local.New(db, bus.New(), nil, local.Options{
		UserID:  "me",
		BlobDir: filepath.Join(t.TempDir(), "blobs"),
	})
	a := NewApp(eng, "main", roomlist.PolicyNotify, zap.NewNop())
	t.Cleanup(a.cancel)
	return a
}

// The user watcher folds pushed user records into the name cache without
// touching any widget on its own goroutine; repaints go through the
// application's update queue.
func TestUserWatcherUpdatesNameCache(t *testing.T) {
	a := testApp(t)
	a.watchUsers()

	if _, err := a.eng.SaveUser(context.Background(), &model.User{ID: "u1", Name: "Bob"}); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if a.displayName("u1") == "Bob" {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("name cache not updated: %q", a.displayName("u1"))
}

package thread

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dalmofelipe/zapzap/internal/bus"
	"github.com/dalmofelipe/zapzap/internal/engine"
	"github.com/dalmofelipe/zapzap/internal/model"
)

type fakeSource struct {
	mu      sync.Mutex
	me      string
	room    model.ChatRoom
	msgs    map[string]model.Message
	history []model.Message // newest first, as the engine returns it
	bus     *bus.Bus
	created []model.Message
}

func newFakeSource(me, roomID string) *fakeSource {
	return &fakeSource{
		me:   me,
		room: model.ChatRoom{ID: roomID},
		msgs: make(map[string]model.Message),
		bus:  bus.New(),
	}
}

func (f *fakeSource) CurrentUserID(context.Context) (string, error) { return f.me, nil }

func (f *fakeSource) Room(_ context.Context, id string) (*model.ChatRoom, error) {
	if id != f.room.ID {
		return nil, nil
	}
	cp := f.room
	return &cp, nil
}

func (f *fakeSource) RoomMessages(_ context.Context, roomID string) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if roomID != f.room.ID {
		return nil, nil
	}
	return append([]model.Message(nil), f.history...), nil
}

func (f *fakeSource) Message(_ context.Context, id string) (*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.msgs[id]; ok {
		cp := m
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeSource) CreateMessage(_ context.Context, msg *model.Message) (*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg.ID == "" {
		msg.ID = fmt.Sprintf("gen-%d", len(f.created)+1)
	}
	msg.Status = model.StatusSent
	msg.CreatedAt = time.Now().UnixMilli()
	f.created = append(f.created, *msg)
	f.msgs[msg.ID] = *msg
	return msg, nil
}

func (f *fakeSource) Observe(prefix string, bufSize int) (<-chan bus.Event, func()) {
	return f.bus.Subscribe(prefix, bufSize)
}

func (f *fakeSource) seed(msgs ...model.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = append([]model.Message(nil), msgs...)
	for _, m := range msgs {
		f.msgs[m.ID] = m
	}
}

func (f *fakeSource) push(op bus.Op, msg model.Message) {
	f.mu.Lock()
	f.msgs[msg.ID] = msg
	f.mu.Unlock()
	f.bus.Publish(bus.Event{
		Topic:  bus.Topic(engine.KindMessage, msg.RoomID),
		Op:     op,
		Entity: msg,
	})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never met")
}

func msg(id string, at int64) model.Message {
	return model.Message{ID: id, RoomID: "r1", AuthorID: "me", Content: id, Status: model.StatusSent, CreatedAt: at}
}

func openVM(t *testing.T, src *fakeSource) *ViewModel {
	t.Helper()
	vm := New(src, nil, nil, nil)
	if err := vm.Open(context.Background(), "r1"); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(vm.Close)
	waitFor(t, vm.Loaded)
	return vm
}

func TestOpenLoadsHistoryNewestFirst(t *testing.T) {
	src := newFakeSource("me", "r1")
	src.seed(msg("m3", 300), msg("m2", 200), msg("m1", 100))

	vm := openVM(t, src)
	got := vm.Messages()
	want := []string{"m3", "m2", "m1"}
	if len(got) != len(want) {
		t.Fatalf("got %d messages, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d: got %q, want %q", i, got[i].ID, id)
		}
	}
}

func TestLiveInsertLandsAtHead(t *testing.T) {
	src := newFakeSource("me", "r1")
	src.seed(msg("m1", 100))
	vm := openVM(t, src)

	src.push(bus.OpInsert, msg("m2", 200))
	waitFor(t, func() bool {
		got := vm.Messages()
		return len(got) == 2 && got[0].ID == "m2"
	})
}

func TestDuplicatePushCollapses(t *testing.T) {
	src := newFakeSource("me", "r1")
	src.seed(msg("m1", 100))
	vm := openVM(t, src)

	// The same entity can arrive twice: once buffered during the initial
	// load, once as a plain update. Both collapse onto the same slot.
	updated := msg("m1", 100)
	updated.Status = model.StatusRead
	src.push(bus.OpInsert, updated)
	src.push(bus.OpUpdate, updated)

	waitFor(t, func() bool {
		got := vm.Messages()
		return len(got) == 1 && got[0].Status == model.StatusRead
	})
}

func TestDeleteTombstonesInPlace(t *testing.T) {
	src := newFakeSource("me", "r1")
	src.seed(msg("m2", 200), msg("m1", 100))
	vm := openVM(t, src)

	dead := msg("m1", 100)
	dead.Deleted = true
	src.push(bus.OpDelete, dead)

	waitFor(t, func() bool {
		got := vm.Messages()
		return len(got) == 2 && got[1].Deleted
	})
	got := vm.Messages()
	if got[1].ID != "m1" {
		t.Errorf("tombstone moved: %+v", got)
	}
}

func TestOutOfOrderInsertKeepsChronology(t *testing.T) {
	src := newFakeSource("me", "r1")
	src.seed(msg("m3", 300), msg("m1", 100))
	vm := openVM(t, src)

	// A backfilled message older than the head slots into the middle.
	src.push(bus.OpInsert, msg("m2", 200))
	waitFor(t, func() bool { return len(vm.Messages()) == 3 })

	got := vm.Messages()
	want := []string{"m3", "m2", "m1"}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: got %q, want %q", i, got[i].ID, id)
		}
	}
}

func TestReplyPreviewResolves(t *testing.T) {
	src := newFakeSource("me", "r1")
	original := msg("m1", 100)
	reply := msg("m2", 200)
	reply.ReplyToID = "m1"
	src.seed(reply, original)

	vm := openVM(t, src)
	waitFor(t, func() bool {
		_, ok := vm.ReplyPreview("m1")
		return ok
	})
	preview, _ := vm.ReplyPreview("m1")
	if preview.Content != "m1" {
		t.Errorf("preview = %+v", preview)
	}
}

func TestReplyPreviewUnknownTarget(t *testing.T) {
	src := newFakeSource("me", "r1")
	reply := msg("m2", 200)
	reply.ReplyToID = "ghost"
	src.seed(reply)

	vm := openVM(t, src)
	time.Sleep(50 * time.Millisecond)
	if _, ok := vm.ReplyPreview("ghost"); ok {
		t.Error("unresolvable target should stay absent")
	}
}

func TestSendCarriesAndClearsReplyTo(t *testing.T) {
	src := newFakeSource("me", "r1")
	target := msg("m1", 100)
	src.seed(target)
	vm := openVM(t, src)

	vm.SetReplyTo(target)
	sent, err := vm.Send(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if sent.ReplyToID != "m1" {
		t.Errorf("reply id = %q, want m1", sent.ReplyToID)
	}
	if vm.ReplyTo() != nil {
		t.Error("selection should clear after a confirmed send")
	}

	// Next send goes out without the stale selection.
	next, _ := vm.Send(context.Background(), "again")
	if next.ReplyToID != "" {
		t.Errorf("stale reply id carried: %q", next.ReplyToID)
	}
}

// slowSource serves two rooms and holds r1's history query on a gate, so a
// room switch can land while the first load is still in flight.
type slowSource struct {
	gate chan struct{}
	bus  *bus.Bus
}

func (s *slowSource) CurrentUserID(context.Context) (string, error) { return "me", nil }

func (s *slowSource) Room(_ context.Context, id string) (*model.ChatRoom, error) {
	return &model.ChatRoom{ID: id}, nil
}

func (s *slowSource) RoomMessages(_ context.Context, roomID string) ([]model.Message, error) {
	if roomID == "r1" {
		<-s.gate
		return []model.Message{{ID: "old-1", RoomID: "r1", AuthorID: "me", Status: model.StatusSent, CreatedAt: 100}}, nil
	}
	return []model.Message{{ID: "new-1", RoomID: "r2", AuthorID: "me", Status: model.StatusSent, CreatedAt: 200}}, nil
}

func (s *slowSource) Message(context.Context, string) (*model.Message, error) { return nil, nil }

func (s *slowSource) CreateMessage(_ context.Context, msg *model.Message) (*model.Message, error) {
	return msg, nil
}

func (s *slowSource) Observe(prefix string, bufSize int) (<-chan bus.Event, func()) {
	return s.bus.Subscribe(prefix, bufSize)
}

func TestRoomSwitchDiscardsStaleHistory(t *testing.T) {
	src := &slowSource{gate: make(chan struct{}), bus: bus.New()}
	vm := New(src, nil, nil, nil)

	// r1's history query hangs on the gate while the user switches away.
	if err := vm.Open(context.Background(), "r1"); err != nil {
		t.Fatal(err)
	}
	vm.Close()
	if err := vm.Open(context.Background(), "r2"); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(vm.Close)
	waitFor(t, func() bool {
		got := vm.Messages()
		return vm.Loaded() && len(got) == 1 && got[0].ID == "new-1"
	})

	// r1's query finally returns; its result must not replace r2's history.
	close(src.gate)
	time.Sleep(50 * time.Millisecond)

	got := vm.Messages()
	if len(got) != 1 || got[0].ID != "new-1" {
		t.Fatalf("stale history replaced the open room: %+v", got)
	}
	if vm.RoomID() != "r2" {
		t.Errorf("room id = %q, want r2", vm.RoomID())
	}
}

func TestOpenUnknownRoom(t *testing.T) {
	src := newFakeSource("me", "r1")
	vm := New(src, nil, nil, nil)
	if err := vm.Open(context.Background(), "nope"); err == nil {
		t.Fatal("opening a missing room should fail")
	}
}

package roomlist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dalmofelipe/zapzap/internal/bus"
	"github.com/dalmofelipe/zapzap/internal/engine"
	"github.com/dalmofelipe/zapzap/internal/model"
)

type fakeSource struct {
	mu          sync.Mutex
	me          string
	meErr       error
	memberships []model.Membership
	rooms       []model.ChatRoom
	bus         *bus.Bus
}

func newFakeSource(me string) *fakeSource {
	return &fakeSource{me: me, bus: bus.New()}
}

func (f *fakeSource) CurrentUserID(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.meErr != nil {
		return "", f.meErr
	}
	return f.me, nil
}

func (f *fakeSource) Memberships(context.Context) ([]model.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Membership(nil), f.memberships...), nil
}

func (f *fakeSource) Rooms(context.Context) ([]model.ChatRoom, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.ChatRoom(nil), f.rooms...), nil
}

func (f *fakeSource) Observe(prefix string, bufSize int) (<-chan bus.Event, func()) {
	return f.bus.Subscribe(prefix, bufSize)
}

func (f *fakeSource) setRoom(room model.ChatRoom, mine bool) {
	f.mu.Lock()
	for i := range f.rooms {
		if f.rooms[i].ID == room.ID {
			f.rooms[i] = room
			f.mu.Unlock()
			return
		}
	}
	f.rooms = append(f.rooms, room)
	if mine {
		f.memberships = append(f.memberships, model.Membership{
			ID: "mb-" + room.ID, RoomID: room.ID, UserID: f.me,
		})
	}
	f.mu.Unlock()
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

func TestRecencyOrder(t *testing.T) {
	src := newFakeSource("me")
	src.setRoom(model.ChatRoom{ID: "r1", LastMessageAt: 10}, true)
	src.setRoom(model.ChatRoom{ID: "r2", LastMessageAt: 30}, true)
	src.setRoom(model.ChatRoom{ID: "r3", LastMessageAt: 20}, true)

	vm := New(src, nil)
	vm.Refresh(context.Background())

	got := vm.Rooms()
	want := []string{"r2", "r3", "r1"}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: got %q, want %q", i, got[i].ID, id)
		}
	}
}

func TestNewMessageReordersList(t *testing.T) {
	src := newFakeSource("me")
	src.setRoom(model.ChatRoom{ID: "r1", LastMessageAt: 10}, true)
	src.setRoom(model.ChatRoom{ID: "r2", LastMessageAt: 30}, true)

	vm := New(src, nil)
	vm.Start(context.Background())
	defer vm.Stop()

	waitFor(t, func() bool { return len(vm.Rooms()) == 2 })

	// A message lands in the older room; its update pushes it to the top.
	src.setRoom(model.ChatRoom{ID: "r1", LastMessageAt: 40}, false)
	src.bus.Publish(bus.Event{
		Topic:  bus.Topic(engine.KindRoom, "r1"),
		Op:     bus.OpUpdate,
		Entity: model.ChatRoom{ID: "r1", LastMessageAt: 40},
	})

	waitFor(t, func() bool {
		rooms := vm.Rooms()
		return len(rooms) == 2 && rooms[0].ID == "r1"
	})
}

func TestFiltersToOwnMemberships(t *testing.T) {
	src := newFakeSource("me")
	src.setRoom(model.ChatRoom{ID: "mine", LastMessageAt: 10}, true)
	src.setRoom(model.ChatRoom{ID: "other", LastMessageAt: 20}, false)

	vm := New(src, nil)
	vm.Refresh(context.Background())

	got := vm.Rooms()
	if len(got) != 1 || got[0].ID != "mine" {
		t.Fatalf("got %+v, want only the joined room", got)
	}
}

func TestIdentityFailureNotify(t *testing.T) {
	src := newFakeSource("me")
	src.setRoom(model.ChatRoom{ID: "r1", LastMessageAt: 10}, true)
	src.meErr = errors.New("token expired")

	var notified error
	vm := New(src, nil,
		WithIdentityPolicy(PolicyNotify),
		WithOnError(func(err error) { notified = err }),
	)
	vm.Refresh(context.Background())

	if notified == nil {
		t.Error("error callback should fire under the notify policy")
	}
	if len(vm.Rooms()) != 0 {
		t.Error("failed refresh should not change the list")
	}
}

func TestIdentityFailureIgnore(t *testing.T) {
	src := newFakeSource("me")
	src.meErr = errors.New("token expired")

	called := false
	vm := New(src, nil,
		WithIdentityPolicy(PolicyIgnore),
		WithOnError(func(error) { called = true }),
	)
	vm.Refresh(context.Background())

	if called {
		t.Error("ignore policy should not invoke the error callback")
	}
}

func TestMembershipEventTriggersRefresh(t *testing.T) {
	src := newFakeSource("me")
	vm := New(src, nil)
	vm.Start(context.Background())
	defer vm.Stop()

	src.setRoom(model.ChatRoom{ID: "r1", LastMessageAt: 10}, true)
	src.bus.Publish(bus.Event{
		Topic:  bus.Topic(engine.KindMembership, "r1"),
		Op:     bus.OpInsert,
		Entity: model.Membership{ID: "mb1", RoomID: "r1", UserID: "me"},
	})

	waitFor(t, func() bool { return len(vm.Rooms()) == 1 })
}

package remote

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/dalmofelipe/zapzap/internal/bus"
	"github.com/dalmofelipe/zapzap/internal/engine"
	"github.com/dalmofelipe/zapzap/internal/engine/local"
	"github.com/dalmofelipe/zapzap/internal/model"
	"github.com/dalmofelipe/zapzap/internal/store"
)

func testFeed(t *testing.T) (*Feed, *local.Engine) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := store.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	eng := local.New(db, bus.New(), nil, local.Options{UserID: "me"})
	return NewFeed("ws://unused", eng, nil), eng
}

func TestApplyRoutesByKind(t *testing.T) {
	f, eng := testFeed(t)
	ctx := context.Background()

	if err := f.Apply(Envelope{Kind: engine.KindUser, Op: bus.OpUpdate, User: &model.User{ID: "u1", Name: "Bob"}}); err != nil {
		t.Fatal(err)
	}
	if err := f.Apply(Envelope{Kind: engine.KindRoom, Op: bus.OpInsert, Room: &model.ChatRoom{ID: "r1"}}); err != nil {
		t.Fatal(err)
	}
	if err := f.Apply(Envelope{Kind: engine.KindMembership, Op: bus.OpInsert, Membership: &model.Membership{ID: "mb1", RoomID: "r1", UserID: "u1"}}); err != nil {
		t.Fatal(err)
	}
	if err := f.Apply(Envelope{Kind: engine.KindMessage, Op: bus.OpInsert, Message: &model.Message{ID: "m1", RoomID: "r1", AuthorID: "u1", Content: "hi", Status: model.StatusSent, CreatedAt: 100}}); err != nil {
		t.Fatal(err)
	}

	if u, _ := eng.User(ctx, "u1"); u == nil || u.Name != "Bob" {
		t.Errorf("user not applied: %+v", u)
	}
	if r, _ := eng.Room(ctx, "r1"); r == nil {
		t.Error("room not applied")
	}
	if members, _ := eng.RoomMembers(ctx, "r1"); len(members) != 1 {
		t.Errorf("membership not applied: %+v", members)
	}
	if m, _ := eng.Message(ctx, "m1"); m == nil || m.Content != "hi" {
		t.Errorf("message not applied: %+v", m)
	}
}

func TestApplyMembershipDelete(t *testing.T) {
	f, eng := testFeed(t)
	ctx := context.Background()

	_ = f.Apply(Envelope{Kind: engine.KindUser, Op: bus.OpUpdate, User: &model.User{ID: "u1"}})
	_ = f.Apply(Envelope{Kind: engine.KindRoom, Op: bus.OpInsert, Room: &model.ChatRoom{ID: "r1"}})
	_ = f.Apply(Envelope{Kind: engine.KindMembership, Op: bus.OpInsert, Membership: &model.Membership{ID: "mb1", RoomID: "r1", UserID: "u1"}})

	if err := f.Apply(Envelope{Kind: engine.KindMembership, Op: bus.OpDelete, Membership: &model.Membership{RoomID: "r1", UserID: "u1"}}); err != nil {
		t.Fatal(err)
	}
	if members, _ := eng.RoomMembers(ctx, "r1"); len(members) != 0 {
		t.Errorf("membership not removed: %+v", members)
	}
}

func TestApplyRejectsMalformed(t *testing.T) {
	f, _ := testFeed(t)

	cases := []Envelope{
		{Kind: "unknown"},
		{Kind: engine.KindUser},
		{Kind: engine.KindRoom},
		{Kind: engine.KindMembership},
		{Kind: engine.KindMessage},
	}
	for _, env := range cases {
		if err := f.Apply(env); err == nil {
			t.Errorf("envelope %+v should be rejected", env)
		}
	}
}

func TestDeliverNotConnected(t *testing.T) {
	f, _ := testFeed(t)
	err := f.Deliver(context.Background(), &model.Message{ID: "m1"})
	if err == nil {
		t.Fatal("delivery without a connection must fail so the outbox retries")
	}
}

func TestEnvelopeWireShape(t *testing.T) {
	env := Envelope{
		Kind:    engine.KindMessage,
		Op:      bus.OpInsert,
		Message: &model.Message{ID: "m1", RoomID: "r1", AuthorID: "u1", Content: "hi", Status: model.StatusSent, CreatedAt: 100},
	}
	data, err := json.Marshal(env)
	if err != nil {
		t.Fatal(err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"kind", "op", "message"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing %q field: %s", key, data)
		}
	}
	// Unset entity slots stay off the wire.
	for _, key := range []string{"user", "room", "membership"} {
		if _, ok := raw[key]; ok {
			t.Errorf("unexpected %q field: %s", key, data)
		}
	}
}

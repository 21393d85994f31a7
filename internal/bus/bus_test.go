package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, release := b.Subscribe("message.", 10)
	defer release()

	b.Publish(Event{Topic: Topic("message", "room-1"), Op: OpInsert, Timestamp: time.Now()})

	select {
	case evt := <-ch:
		if evt.Topic != "message.room-1" {
			t.Errorf("got topic %q, want message.room-1", evt.Topic)
		}
		if evt.Op != OpInsert {
			t.Errorf("got op %q, want INSERT", evt.Op)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestPrefixScoping(t *testing.T) {
	b := New()
	ch, release := b.Subscribe(Topic("message", "room-1"), 10)
	defer release()

	b.Publish(Event{Topic: Topic("message", "room-2"), Op: OpInsert})
	b.Publish(Event{Topic: Topic("chatroom", "room-1"), Op: OpUpdate})
	b.Publish(Event{Topic: Topic("message", "room-1"), Op: OpUpdate})

	select {
	case evt := <-ch:
		if evt.Topic != "message.room-1" || evt.Op != OpUpdate {
			t.Errorf("got %q/%q, want message.room-1/UPDATE", evt.Topic, evt.Op)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	// Nothing else should have matched the room-1 scope.
	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRelease(t *testing.T) {
	b := New()
	ch, release := b.Subscribe("membership.", 10)
	release()

	b.Publish(Event{Topic: Topic("membership", "room-1"), Op: OpInsert})

	select {
	case evt := <-ch:
		t.Errorf("received event after release: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, release := b.Subscribe("user.", 1)
	defer release()

	b.Publish(Event{Topic: Topic("user", "a"), Op: OpUpdate})
	// Buffer is full; this one is dropped instead of blocking.
	b.Publish(Event{Topic: Topic("user", "b"), Op: OpUpdate})

	evt := <-ch
	if evt.Topic != "user.a" {
		t.Errorf("got %q, want user.a", evt.Topic)
	}
}

func TestTopicHelper(t *testing.T) {
	if got := Topic("message", ""); got != "message." {
		t.Errorf("Topic(message, ) = %q, want message.", got)
	}
	if got := Topic("message", "r1"); got != "message.r1" {
		t.Errorf("Topic(message, r1) = %q, want message.r1", got)
	}
}

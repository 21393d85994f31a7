package model

import "testing"

func TestStatusRankOrdering(t *testing.T) {
	if !(StatusSent.Rank() < StatusDelivered.Rank() && StatusDelivered.Rank() < StatusRead.Rank()) {
		t.Fatalf("rank ordering broken: sent=%d delivered=%d read=%d",
			StatusSent.Rank(), StatusDelivered.Rank(), StatusRead.Rank())
	}
}

func TestStatusAdvances(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusSent, StatusDelivered, true},
		{StatusSent, StatusRead, true}, // skipping DELIVERED is allowed
		{StatusDelivered, StatusRead, true},
		{StatusDelivered, StatusSent, false},
		{StatusRead, StatusDelivered, false},
		{StatusRead, StatusSent, false},
		{StatusSent, StatusSent, false},
		{StatusDelivered, StatusDelivered, false},
		{StatusRead, StatusRead, false},
		{StatusSent, Status("BOGUS"), false},
		{Status(""), StatusSent, true},
	}
	for _, c := range cases {
		if got := c.from.Advances(c.to); got != c.want {
			t.Errorf("%q -> %q: got %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusSent, StatusDelivered, StatusRead} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	for _, s := range []Status{"", "bogus", "SEEN"} {
		if Status(s).Valid() {
			t.Errorf("%q should not be valid", s)
		}
	}
}

func TestChatRoomIsGroup(t *testing.T) {
	direct := ChatRoom{}
	if direct.IsGroup() {
		t.Error("room without admin should not be a group")
	}
	group := ChatRoom{AdminID: "u1"}
	if !group.IsGroup() {
		t.Error("room with admin should be a group")
	}
}

func TestMessageHasMedia(t *testing.T) {
	text := Message{Content: "hi"}
	if text.HasMedia() {
		t.Error("text-only message should not have media")
	}
	for _, m := range []Message{
		{ImageKey: "k"},
		{AudioKey: "k"},
		{DocumentKey: "k"},
	} {
		if !m.HasMedia() {
			t.Errorf("%+v should have media", m)
		}
	}
}

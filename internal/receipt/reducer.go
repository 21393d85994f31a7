// Package receipt advances message delivery status from the viewer's side.
// Status is a monotonic lattice SENT < DELIVERED < READ; every proposal is
// guarded here and again at the engine boundary, so duplicated or
// out-of-order proposals collapse to no-ops.
package receipt

import (
	"context"

	"github.com/dalmofelipe/zapzap/internal/model"
)

// Proposer is the slice of the engine the reducer needs.
type Proposer interface {
	AdvanceStatus(ctx context.Context, messageID string, to model.Status) error
}

// Reducer proposes delivery-status transitions for one local viewer.
type Reducer struct {
	proposer Proposer
	viewerID string
}

// New creates a reducer acting as the given viewer.
func New(p Proposer, viewerID string) *Reducer {
	return &Reducer{proposer: p, viewerID: viewerID}
}

// OnView handles a message becoming visible to the viewer. Messages
// authored by someone else move SENT -> DELIVERED; anything already
// delivered or read is left alone, as are the viewer's own messages.
func (r *Reducer) OnView(ctx context.Context, msg *model.Message) error {
	if msg == nil || msg.AuthorID == r.viewerID {
		return nil
	}
	if msg.Status != model.StatusSent {
		return nil
	}
	return r.proposer.AdvanceStatus(ctx, msg.ID, model.StatusDelivered)
}

// OnSendAck handles backend confirmation of the viewer's own send. The
// author's copy moves to DELIVERED unless a reader already pushed it
// further.
func (r *Reducer) OnSendAck(ctx context.Context, msg *model.Message) error {
	if msg == nil || msg.AuthorID != r.viewerID {
		return nil
	}
	if msg.Status == model.StatusDelivered || msg.Status == model.StatusRead {
		return nil
	}
	return r.proposer.AdvanceStatus(ctx, msg.ID, model.StatusDelivered)
}

// OnRead handles a message entering the active viewport. READ is terminal;
// skipping DELIVERED is permitted. The viewer never marks their own
// messages read.
func (r *Reducer) OnRead(ctx context.Context, msg *model.Message) error {
	if msg == nil || msg.AuthorID == r.viewerID {
		return nil
	}
	if !msg.Status.Advances(model.StatusRead) {
		return nil
	}
	return r.proposer.AdvanceStatus(ctx, msg.ID, model.StatusRead)
}

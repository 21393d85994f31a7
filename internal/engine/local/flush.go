package local

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dalmofelipe/zapzap/internal/model"
)

// Transport delivers a confirmed message creation to the remote backend.
type Transport interface {
	Deliver(ctx context.Context, msg *model.Message) error
}

// Flusher drains the outbox. A nil transport runs in loopback mode where
// every entry is acknowledged immediately; either way an acknowledgment
// advances the author's copy to DELIVERED. Failed deliveries go back to
// the queue and are retried on the next pass; the application above never
// implements its own retry.
type Flusher struct {
	eng       *Engine
	transport Transport
	logger    *zap.Logger
	interval  time.Duration
	cancel    context.CancelFunc
}

// NewFlusher creates an outbox flusher.
func NewFlusher(eng *Engine, transport Transport, logger *zap.Logger, interval time.Duration) *Flusher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Flusher{eng: eng, transport: transport, logger: logger, interval: interval}
}

// Start begins polling the outbox. Entries a previous process left in
// 'flushing' are put back in the queue first, so a crash between marking
// and acknowledging never strands a message.
func (f *Flusher) Start(ctx context.Context) {
	if n, err := f.eng.db.RequeueStaleOutbox(); err != nil {
		f.logger.Error("requeue stale outbox", zap.Error(err))
	} else if n > 0 {
		f.logger.Info("requeued interrupted outbox entries", zap.Int64("count", n))
	}
	ctx, f.cancel = context.WithCancel(ctx)
	go f.loop(ctx)
}

// Stop stops the flusher loop.
func (f *Flusher) Stop() {
	if f.cancel != nil {
		f.cancel()
	}
}

func (f *Flusher) loop(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			f.Flush(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Flush processes every queued outbox entry once.
func (f *Flusher) Flush(ctx context.Context) {
	pending, err := f.eng.db.PendingOutbox()
	if err != nil {
		f.logger.Error("read outbox", zap.Error(err))
		return
	}

	for _, entry := range pending {
		msg, err := f.eng.db.GetMessage(entry.MessageID)
		if err != nil || msg == nil {
			f.logger.Warn("outbox entry without message", zap.String("message_id", entry.MessageID))
			_ = f.eng.db.MarkOutboxAcked(entry.MessageID)
			continue
		}

		if err := f.eng.db.MarkOutboxFlushing(entry.MessageID); err != nil {
			f.logger.Error("mark flushing", zap.Error(err), zap.String("message_id", entry.MessageID))
			continue
		}

		if f.transport != nil {
			if err := f.transport.Deliver(ctx, msg); err != nil {
				f.logger.Warn("deliver message", zap.Error(err), zap.String("message_id", entry.MessageID))
				_ = f.eng.db.MarkOutboxFailed(entry.MessageID, err.Error())
				continue
			}
		}

		if err := f.eng.db.MarkOutboxAcked(entry.MessageID); err != nil {
			f.logger.Error("mark acked", zap.Error(err), zap.String("message_id", entry.MessageID))
		}

		// Acknowledgment-of-send: the author's copy moves to DELIVERED
		// unless a reader already pushed it further.
		if err := f.eng.AdvanceStatus(ctx, entry.MessageID, model.StatusDelivered); err != nil {
			f.logger.Warn("ack status", zap.Error(err), zap.String("message_id", entry.MessageID))
		}
	}
}

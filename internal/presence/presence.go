// Package presence keeps the authenticated user's last-online timestamp
// fresh and derives "last seen" display text.
package presence

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// OnlineWindow is how recent a heartbeat must be for a user to count as
// online.
const OnlineWindow = 5 * time.Minute

// Toucher is the slice of the engine the heartbeat needs.
type Toucher interface {
	CurrentUserID(ctx context.Context) (string, error)
	TouchPresence(ctx context.Context, userID string, at time.Time) error
}

// Heartbeat periodically bumps the local user's last-online timestamp.
// Its lifetime is tied to the authenticated session; Stop must be called
// on logout or shutdown.
type Heartbeat struct {
	toucher  Toucher
	logger   *zap.Logger
	interval time.Duration
	cancel   context.CancelFunc
}

// NewHeartbeat creates a heartbeat with the given interval.
func NewHeartbeat(t Toucher, logger *zap.Logger, interval time.Duration) *Heartbeat {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Heartbeat{toucher: t, logger: logger, interval: interval}
}

// Start touches presence once immediately and then on every tick.
func (h *Heartbeat) Start(ctx context.Context) {
	ctx, h.cancel = context.WithCancel(ctx)

	go func() {
		h.touch(ctx)
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				h.touch(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop cancels the heartbeat loop.
func (h *Heartbeat) Stop() {
	if h.cancel != nil {
		h.cancel()
	}
}

func (h *Heartbeat) touch(ctx context.Context) {
	me, err := h.toucher.CurrentUserID(ctx)
	if err != nil {
		h.logger.Debug("presence heartbeat skipped", zap.Error(err))
		return
	}
	if err := h.toucher.TouchPresence(ctx, me, time.Now()); err != nil {
		h.logger.Warn("presence heartbeat failed", zap.Error(err))
	}
}

// LastSeenText renders a peer's presence: "online" within OnlineWindow,
// a relative "last seen" string after that, empty when never seen.
func LastSeenText(lastOnlineAt int64, now time.Time) string {
	if lastOnlineAt == 0 {
		return ""
	}
	last := time.UnixMilli(lastOnlineAt)
	diff := now.Sub(last)
	if diff < OnlineWindow {
		return "online"
	}
	return "last seen " + relative(diff)
}

func relative(d time.Duration) string {
	switch {
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

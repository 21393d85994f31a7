// Package roomlist derives the authenticated user's conversation list and
// keeps it live against the engine's push stream.
package roomlist

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/dalmofelipe/zapzap/internal/bus"
	"github.com/dalmofelipe/zapzap/internal/engine"
	"github.com/dalmofelipe/zapzap/internal/model"
)

// Source is the slice of the engine the list needs.
type Source interface {
	CurrentUserID(ctx context.Context) (string, error)
	Memberships(ctx context.Context) ([]model.Membership, error)
	Rooms(ctx context.Context) ([]model.ChatRoom, error)
	Observe(topicPrefix string, bufSize int) (<-chan bus.Event, func())
}

// IdentityPolicy controls what a refresh does when identity resolution
// fails mid-session.
type IdentityPolicy int

const (
	// PolicyNotify invokes the error callback and skips the refresh.
	PolicyNotify IdentityPolicy = iota
	// PolicyIgnore skips the refresh silently.
	PolicyIgnore
)

// ViewModel is the conversation-list view-model. A single goroutine
// consumes push events and re-derives the list; readers get snapshots.
type ViewModel struct {
	mu    sync.RWMutex
	rooms []model.ChatRoom

	src      Source
	logger   *zap.Logger
	policy   IdentityPolicy
	onError  func(error)
	onChange func()

	cancel  context.CancelFunc
	release []func()
}

// Option configures the view-model.
type Option func(*ViewModel)

// WithIdentityPolicy sets the identity-failure policy.
func WithIdentityPolicy(p IdentityPolicy) Option {
	return func(vm *ViewModel) { vm.policy = p }
}

// WithOnError sets the callback invoked under PolicyNotify.
func WithOnError(fn func(error)) Option {
	return func(vm *ViewModel) { vm.onError = fn }
}

// WithOnChange sets the callback invoked after the list changes.
func WithOnChange(fn func()) Option {
	return func(vm *ViewModel) { vm.onChange = fn }
}

// New creates a conversation-list view-model.
func New(src Source, logger *zap.Logger, opts ...Option) *ViewModel {
	if logger == nil {
		logger = zap.NewNop()
	}
	vm := &ViewModel{src: src, logger: logger}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// Start performs the initial derivation and begins consuming room and
// membership push events. Call Stop on teardown.
func (vm *ViewModel) Start(ctx context.Context) {
	ctx, vm.cancel = context.WithCancel(ctx)

	roomCh, releaseRooms := vm.src.Observe(bus.Topic(engine.KindRoom, ""), 64)
	memberCh, releaseMembers := vm.src.Observe(bus.Topic(engine.KindMembership, ""), 64)
	vm.release = []func(){releaseRooms, releaseMembers}

	vm.refresh(ctx)

	go func() {
		for {
			select {
			case <-roomCh:
				vm.refresh(ctx)
			case <-memberCh:
				vm.refresh(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop releases the subscriptions and halts the reducer.
func (vm *ViewModel) Stop() {
	if vm.cancel != nil {
		vm.cancel()
	}
	for _, r := range vm.release {
		r()
	}
	vm.release = nil
}

// Refresh re-derives the list once, outside the push loop. Used by screens
// that want an eager reload on focus.
func (vm *ViewModel) Refresh(ctx context.Context) {
	vm.refresh(ctx)
}

// refresh re-runs the full derivation: identity -> memberships -> filter
// to the current user -> project rooms -> recency sort. The whole set is
// reloaded every time; there is no pagination.
func (vm *ViewModel) refresh(ctx context.Context) {
	me, err := vm.src.CurrentUserID(ctx)
	if err != nil {
		switch vm.policy {
		case PolicyIgnore:
			vm.logger.Debug("room list refresh skipped", zap.Error(err))
		default:
			vm.logger.Warn("room list identity resolution failed", zap.Error(err))
			if vm.onError != nil {
				vm.onError(err)
			}
		}
		return
	}

	memberships, err := vm.src.Memberships(ctx)
	if err != nil {
		vm.logger.Warn("room list membership query failed", zap.Error(err))
		return
	}
	mine := make(map[string]bool)
	for _, m := range memberships {
		if m.UserID == me {
			mine[m.RoomID] = true
		}
	}

	all, err := vm.src.Rooms(ctx)
	if err != nil {
		vm.logger.Warn("room list room query failed", zap.Error(err))
		return
	}

	rooms := make([]model.ChatRoom, 0, len(mine))
	for _, room := range all {
		if mine[room.ID] {
			rooms = append(rooms, room)
		}
	}
	// Stable: equal timestamps keep arrival order.
	sort.SliceStable(rooms, func(i, j int) bool {
		return rooms[i].LastMessageAt > rooms[j].LastMessageAt
	})

	vm.mu.Lock()
	vm.rooms = rooms
	vm.mu.Unlock()

	if vm.onChange != nil {
		vm.onChange()
	}
}

// Rooms returns a snapshot of the current list, most recent first.
func (vm *ViewModel) Rooms() []model.ChatRoom {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	out := make([]model.ChatRoom, len(vm.rooms))
	copy(out, vm.rooms)
	return out
}

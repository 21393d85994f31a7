// Package thread is the conversation-detail view-model: one room's ordered
// message history, kept live against the push stream, plus the reply-to
// selection. A single goroutine owns every mutation of the list; screens
// read snapshots and are poked through the change callback.
package thread

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/dalmofelipe/zapzap/internal/bus"
	"github.com/dalmofelipe/zapzap/internal/engine"
	"github.com/dalmofelipe/zapzap/internal/model"
	"github.com/dalmofelipe/zapzap/internal/receipt"
)

// Source is the slice of the engine the thread needs.
type Source interface {
	CurrentUserID(ctx context.Context) (string, error)
	Room(ctx context.Context, id string) (*model.ChatRoom, error)
	RoomMessages(ctx context.Context, roomID string) ([]model.Message, error)
	Message(ctx context.Context, id string) (*model.Message, error)
	CreateMessage(ctx context.Context, msg *model.Message) (*model.Message, error)
	Observe(topicPrefix string, bufSize int) (<-chan bus.Event, func())
}

// ViewModel is the live message history for one open room.
type ViewModel struct {
	mu      sync.RWMutex
	msgs    []model.Message // newest first
	index   map[string]int  // message id -> position in msgs
	replies map[string]model.Message
	replyTo *model.Message
	room    *model.ChatRoom
	loaded  bool
	roomID  string
	me      string
	gen     int // bumped on every Open/Close; stale runs check it before writing
	cancel  context.CancelFunc
	release func()

	src      Source
	reducer  *receipt.Reducer
	logger   *zap.Logger
	onChange func()
}

// New creates a thread view-model. The reducer may be nil when the caller
// does not want viewport-driven status transitions (tests, previews).
func New(src Source, reducer *receipt.Reducer, logger *zap.Logger, onChange func()) *ViewModel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewModel{
		src:      src,
		reducer:  reducer,
		logger:   logger,
		onChange: onChange,
		index:    make(map[string]int),
		replies:  make(map[string]model.Message),
	}
}

// Open binds the view-model to a room, subscribes to its push events and
// loads the history. The subscription starts before the bulk query so a
// push racing the load is buffered and collapsed by id afterwards. Any
// previous binding is torn down first; a history load still in flight for
// the old room is discarded when it lands.
func (vm *ViewModel) Open(ctx context.Context, roomID string) error {
	room, err := vm.src.Room(ctx, roomID)
	if err != nil {
		return fmt.Errorf("open thread: %w", err)
	}
	if room == nil {
		return engine.ErrNotFound
	}

	me := ""
	if id, err := vm.src.CurrentUserID(ctx); err == nil {
		me = id
	}

	ctx, cancel := context.WithCancel(ctx)
	ch, release := vm.src.Observe(bus.Topic(engine.KindMessage, roomID), 128)

	vm.mu.Lock()
	vm.stopLocked()
	vm.gen++
	gen := vm.gen
	vm.roomID = roomID
	vm.room = room
	vm.me = me
	vm.msgs = nil
	vm.index = make(map[string]int)
	vm.replies = make(map[string]model.Message)
	vm.replyTo = nil
	vm.loaded = false
	vm.cancel = cancel
	vm.release = release
	vm.mu.Unlock()

	go vm.run(ctx, gen, roomID, ch)
	return nil
}

// Close releases the subscription and stops the reducer goroutine. Must be
// called when the screen is torn down or before opening another room.
func (vm *ViewModel) Close() {
	vm.mu.Lock()
	vm.stopLocked()
	vm.gen++
	vm.mu.Unlock()
}

// stopLocked cancels the active run and releases its subscription.
// Caller holds vm.mu.
func (vm *ViewModel) stopLocked() {
	if vm.cancel != nil {
		vm.cancel()
		vm.cancel = nil
	}
	if vm.release != nil {
		vm.release()
		vm.release = nil
	}
}

// run is the single mutation path: initial load first, then the push
// stream. Events that arrived while the load ran are applied afterwards
// and collapse last-write-wins by id. Every write re-checks the
// generation, so a run outlived by a room switch can never clobber the
// newer room's state.
func (vm *ViewModel) run(ctx context.Context, gen int, roomID string, ch <-chan bus.Event) {
	history, err := vm.src.RoomMessages(ctx, roomID)
	if err != nil {
		vm.logger.Warn("thread history load failed", zap.Error(err), zap.String("room_id", roomID))
		history = nil
	}

	vm.mu.Lock()
	if vm.gen != gen || ctx.Err() != nil {
		// The room changed while the query was in flight; this result
		// belongs to a thread that is no longer open.
		vm.mu.Unlock()
		return
	}
	vm.msgs = history
	vm.index = make(map[string]int, len(history))
	for i, m := range history {
		vm.index[m.ID] = i
	}
	vm.loaded = true
	vm.mu.Unlock()

	for _, m := range history {
		vm.afterApply(ctx, gen, m)
	}
	vm.notify()

	for {
		select {
		case evt := <-ch:
			msg, ok := evt.Entity.(model.Message)
			if !ok || msg.RoomID != roomID {
				continue
			}
			if !vm.apply(gen, evt.Op, msg) {
				return
			}
			vm.afterApply(ctx, gen, msg)
			vm.notify()
		case <-ctx.Done():
			return
		}
	}
}

// apply folds one push event into the ordered list. Returns false when
// the run has been superseded.
func (vm *ViewModel) apply(gen int, op bus.Op, msg model.Message) bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.gen != gen {
		return false
	}

	pos, known := vm.index[msg.ID]
	switch op {
	case bus.OpDelete:
		// Tombstone in place; the slot is kept so replies stay anchored.
		if known {
			vm.msgs[pos] = msg
			vm.msgs[pos].Deleted = true
		}
	default:
		if known {
			// Duplicate or update: last write wins, position preserved.
			vm.msgs[pos] = msg
			return true
		}
		// New entry: keep creation-time descending order. Live inserts are
		// chronologically newest and land at the head.
		at := len(vm.msgs)
		for i, m := range vm.msgs {
			if m.CreatedAt <= msg.CreatedAt {
				at = i
				break
			}
		}
		vm.msgs = append(vm.msgs, model.Message{})
		copy(vm.msgs[at+1:], vm.msgs[at:])
		vm.msgs[at] = msg
		for i := at; i < len(vm.msgs); i++ {
			vm.index[vm.msgs[i].ID] = i
		}
	}
	return true
}

// afterApply handles the side effects of seeing a message: resolving its
// reply preview and proposing viewport status transitions.
func (vm *ViewModel) afterApply(ctx context.Context, gen int, msg model.Message) {
	vm.mu.RLock()
	me := vm.me
	_, haveReply := vm.replies[msg.ReplyToID]
	vm.mu.RUnlock()

	if msg.ReplyToID != "" && !haveReply {
		go vm.resolveReply(ctx, gen, msg.ReplyToID)
	}

	if vm.reducer != nil && msg.AuthorID != me && !msg.Deleted {
		go func(m model.Message) {
			if err := vm.reducer.OnView(ctx, &m); err != nil {
				vm.logger.Warn("mark delivered", zap.Error(err), zap.String("message_id", m.ID))
			}
			if err := vm.reducer.OnRead(ctx, &m); err != nil {
				vm.logger.Warn("mark read", zap.Error(err), zap.String("message_id", m.ID))
			}
		}(msg)
	}
}

// resolveReply fetches a quoted message independently of the main list.
// The lookup may race the history load; until it lands the preview simply
// renders nothing.
func (vm *ViewModel) resolveReply(ctx context.Context, gen int, id string) {
	target, err := vm.src.Message(ctx, id)
	if err != nil || target == nil {
		return
	}
	vm.mu.Lock()
	if vm.gen != gen {
		vm.mu.Unlock()
		return
	}
	vm.replies[id] = *target
	vm.mu.Unlock()
	vm.notify()
}

func (vm *ViewModel) notify() {
	if vm.onChange != nil {
		vm.onChange()
	}
}

// Send proposes a text message in the open room, carrying the current
// reply-to selection, and clears that selection once the engine confirms.
func (vm *ViewModel) Send(ctx context.Context, content string) (*model.Message, error) {
	me, err := vm.src.CurrentUserID(ctx)
	if err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}

	vm.mu.RLock()
	msg := &model.Message{
		RoomID:   vm.roomID,
		AuthorID: me,
		Content:  content,
	}
	if vm.replyTo != nil {
		msg.ReplyToID = vm.replyTo.ID
	}
	vm.mu.RUnlock()

	confirmed, err := vm.src.CreateMessage(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}
	vm.ClearReplyTo()
	return confirmed, nil
}

// SetReplyTo selects the message the next send replies to.
func (vm *ViewModel) SetReplyTo(msg model.Message) {
	vm.mu.Lock()
	vm.replyTo = &msg
	vm.mu.Unlock()
	vm.notify()
}

// ClearReplyTo drops the reply-to selection.
func (vm *ViewModel) ClearReplyTo() {
	vm.mu.Lock()
	vm.replyTo = nil
	vm.mu.Unlock()
	vm.notify()
}

// ReplyTo returns the current reply-to selection, or nil.
func (vm *ViewModel) ReplyTo() *model.Message {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	if vm.replyTo == nil {
		return nil
	}
	cp := *vm.replyTo
	return &cp
}

// Messages returns a snapshot of the history, newest first.
func (vm *ViewModel) Messages() []model.Message {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	out := make([]model.Message, len(vm.msgs))
	copy(out, vm.msgs)
	return out
}

// ReplyPreview returns the resolved quoted message for id, if the lookup
// has landed.
func (vm *ViewModel) ReplyPreview(id string) (model.Message, bool) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	m, ok := vm.replies[id]
	return m, ok
}

// Room returns the open room record.
func (vm *ViewModel) Room() *model.ChatRoom {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	if vm.room == nil {
		return nil
	}
	cp := *vm.room
	return &cp
}

// RoomID returns the open room id.
func (vm *ViewModel) RoomID() string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.roomID
}

// Loaded reports whether the initial history query has completed.
func (vm *ViewModel) Loaded() bool {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.loaded
}

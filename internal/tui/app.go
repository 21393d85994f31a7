// Package tui is the terminal user interface: the screen shell, key
// bindings and the glue between view-model snapshots and tview widgets.
package tui

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/dalmofelipe/zapzap/internal/bus"
	"github.com/dalmofelipe/zapzap/internal/engine"
	"github.com/dalmofelipe/zapzap/internal/media"
	"github.com/dalmofelipe/zapzap/internal/model"
	"github.com/dalmofelipe/zapzap/internal/presence"
	"github.com/dalmofelipe/zapzap/internal/receipt"
	"github.com/dalmofelipe/zapzap/internal/roomlist"
	"github.com/dalmofelipe/zapzap/internal/rooms"
	"github.com/dalmofelipe/zapzap/internal/thread"
	"github.com/dalmofelipe/zapzap/internal/tui/ui"
	"github.com/dalmofelipe/zapzap/internal/tui/views"
)

const (
	pageRooms     = "rooms"
	pageThread    = "thread"
	pagePeople    = "people"
	pageGroupInfo = "groupinfo"
)

// App is the main TUI application shell.
type App struct {
	app   *tview.Application
	pages *tview.Pages
	theme *ui.Theme

	eng      engine.Engine
	list     *roomlist.ViewModel
	thread   *thread.ViewModel
	resolver *rooms.Resolver
	group    *rooms.Group
	sender   *media.Sender
	logger   *zap.Logger

	roomList  *views.RoomList
	threadV   *views.Thread
	peopleV   *views.People
	groupV    *views.GroupInfo
	statusBar *views.StatusBar

	mu    sync.RWMutex
	me    string
	names map[string]string // user id -> display name
	peer  model.User        // other side of the open direct room

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI application over an already-started engine.
func NewApp(eng engine.Engine, profile string, policy roomlist.IdentityPolicy, logger *zap.Logger) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:       tview.NewApplication(),
		pages:     tview.NewPages(),
		theme:     theme,
		eng:       eng,
		logger:    logger,
		roomList:  views.NewRoomList(theme),
		threadV:   views.NewThread(theme),
		groupV:    views.NewGroupInfo(theme),
		statusBar: views.NewStatusBar(theme, profile),
		names:     make(map[string]string),
		ctx:       ctx,
		cancel:    cancel,
	}
	a.peopleV = views.NewPeople(theme, time.Now)

	a.list = roomlist.New(eng, logger.Named("roomlist"),
		roomlist.WithIdentityPolicy(policy),
		roomlist.WithOnChange(func() { a.refreshRoomList() }),
		roomlist.WithOnError(func(err error) {
			a.app.QueueUpdateDraw(func() { a.statusBar.Flash("Sign-in problem: " + err.Error()) })
		}),
	)
	if me, err := eng.CurrentUserID(ctx); err == nil {
		a.me = me
	} else {
		logger.Warn("identity resolution failed at startup", zap.Error(err))
	}
	a.thread = thread.New(eng, receipt.New(eng, a.me), logger.Named("thread"), func() { a.refreshThread() })
	a.resolver = rooms.NewResolver(eng)
	a.group = rooms.NewGroup(eng)
	a.sender = media.NewSender(eng)

	a.setupCallbacks()
	a.setupLayout()
	return a
}

func (a *App) setupCallbacks() {
	a.roomList.SetSelectedFunc(func(row, col int) {
		if id := a.roomList.SelectedRoom(); id != "" {
			a.openThread(id)
		}
	})

	a.peopleV.SetSelectedFunc(func(row, col int) {
		if a.peopleV.GroupMode() {
			a.peopleV.ToggleSelected()
			return
		}
		u, ok := a.peopleV.SelectedUser()
		if !ok {
			return
		}
		go func() {
			room, err := a.resolver.StartDirect(a.ctx, u.ID)
			if err != nil {
				a.flash("Chat failed: " + err.Error())
				return
			}
			a.openThread(room.ID)
		}()
	})

	a.threadV.SetOnSubmit(func(text string) {
		if strings.HasPrefix(text, ":") {
			a.runCommand(ParseCommand(text[1:]))
			return
		}
		go func() {
			if _, err := a.thread.Send(a.ctx, text); err != nil {
				a.flash("Send failed: " + err.Error())
			}
		}()
	})
}

func (a *App) setupLayout() {
	a.pages.AddPage(pageRooms, a.roomList, true, true)
	a.pages.AddPage(pageThread, a.threadV, true, false)
	a.pages.AddPage(pagePeople, a.peopleV, true, false)
	a.pages.AddPage(pageGroupInfo, a.groupV, true, false)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)
	a.app.SetRoot(root, true)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		page, _ := a.pages.GetFrontPage()

		if event.Key() == tcell.KeyEscape {
			switch page {
			case pageThread:
				if a.thread.ReplyTo() != nil {
					a.thread.ClearReplyTo()
					return nil
				}
				a.thread.Close()
				a.showRooms()
				return nil
			case pagePeople:
				if a.peopleV.GroupMode() {
					a.peopleV.SetGroupMode(false)
					return nil
				}
				a.showRooms()
				return nil
			case pageGroupInfo:
				a.showThreadPage()
				return nil
			}
			return event
		}

		// Text input keeps every key.
		if _, ok := a.app.GetFocus().(*tview.InputField); ok {
			return event
		}

		if event.Key() != tcell.KeyRune {
			return event
		}
		switch page {
		case pageRooms:
			switch event.Rune() {
			case 'q':
				a.app.Stop()
				return nil
			case 'p':
				a.showPeople()
				return nil
			}
		case pagePeople:
			switch event.Rune() {
			case 'g':
				a.peopleV.SetGroupMode(true)
				return nil
			case ' ':
				a.peopleV.ToggleSelected()
				return nil
			case 's':
				if a.peopleV.GroupMode() {
					a.saveGroup()
					return nil
				}
			}
		case pageGroupInfo:
			if event.Rune() == 'd' {
				a.removeSelectedMember()
				return nil
			}
		}
		return event
	})
}

// runCommand dispatches a composer command typed in the thread screen.
func (a *App) runCommand(cmd Command) {
	switch cmd.Name {
	case "reply":
		if msg, ok := a.messageByOrdinal(cmd.Args); ok {
			a.thread.SetReplyTo(msg)
		} else {
			a.flash("Usage: :reply <n>")
		}
	case "unreply":
		a.thread.ClearReplyTo()
	case "del", "delete":
		msg, ok := a.messageByOrdinal(cmd.Args)
		if !ok {
			a.flash("Usage: :del <n>")
			return
		}
		go func() {
			if err := a.eng.DeleteMessage(a.ctx, msg.ID); err != nil {
				a.flash("Delete failed: " + err.Error())
			}
		}()
	case "image":
		a.sendMedia(cmd.Args, media.KindImage)
	case "audio":
		a.sendMedia(cmd.Args, media.KindAudio)
	case "doc", "document":
		a.sendMedia(cmd.Args, media.KindDocument)
	case "info":
		a.showGroupInfo()
	default:
		a.flash("Unknown command :" + cmd.Name)
	}
}

// messageByOrdinal maps a newest-first ordinal, as rendered in the
// transcript, back to its message.
func (a *App) messageByOrdinal(arg string) (model.Message, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n < 1 {
		return model.Message{}, false
	}
	msgs := a.thread.Messages()
	if n > len(msgs) {
		return model.Message{}, false
	}
	return msgs[n-1], true
}

// sendMedia sends the file named by the first argument with the rest as
// caption.
func (a *App) sendMedia(args string, kind media.Kind) {
	path, caption, _ := strings.Cut(args, " ")
	if path == "" {
		a.flash("Usage: :image <path> [caption]")
		return
	}
	roomID := a.thread.RoomID()
	replyTo := ""
	if sel := a.thread.ReplyTo(); sel != nil {
		replyTo = sel.ID
	}
	go func() {
		if _, err := a.sender.SendFile(a.ctx, roomID, path, kind, strings.TrimSpace(caption), replyTo); err != nil {
			a.flash("Send failed: " + err.Error())
			return
		}
		a.thread.ClearReplyTo()
	}()
}

func (a *App) saveGroup() {
	ids := a.peopleV.Selection()
	if len(ids) == 0 {
		a.statusBar.Flash("Select at least one contact")
		return
	}
	go func() {
		room, err := a.resolver.CreateGroup(a.ctx, ids)
		if err != nil {
			a.flash("Group failed: " + err.Error())
			return
		}
		a.app.QueueUpdateDraw(func() { a.peopleV.SetGroupMode(false) })
		a.openThread(room.ID)
	}()
}

func (a *App) removeSelectedMember() {
	member, ok := a.groupV.SelectedMember()
	if !ok {
		return
	}
	roomID := a.groupV.Room().ID
	go func() {
		if err := a.group.Remove(a.ctx, roomID, member.ID); err != nil {
			a.flash("Remove failed: " + err.Error())
			return
		}
		a.refreshGroupInfo(roomID)
	}()
}

func (a *App) showRooms() {
	a.pages.SwitchToPage(pageRooms)
	a.app.SetFocus(a.roomList)
	a.statusBar.SetHints("enter:open  p:contacts  q:quit")
	go a.list.Refresh(a.ctx)
}

func (a *App) showPeople() {
	go func() {
		users, err := a.eng.Contacts(a.ctx)
		if err != nil {
			a.flash("Contacts failed: " + err.Error())
			return
		}
		a.cacheNames(users)
		a.app.QueueUpdateDraw(func() {
			a.peopleV.Update(users)
			a.pages.SwitchToPage(pagePeople)
			a.app.SetFocus(a.peopleV)
			a.statusBar.SetHints("enter:chat  g:new group  esc:back")
		})
	}()
}

func (a *App) showThreadPage() {
	a.pages.SwitchToPage(pageThread)
	a.app.SetFocus(a.threadV.Composer())
	a.statusBar.SetHints(":reply n  :del n  :image path  :info  esc:back")
}

func (a *App) openThread(roomID string) {
	go func() {
		a.thread.Close()
		if err := a.thread.Open(a.ctx, roomID); err != nil {
			a.flash("Open failed: " + err.Error())
			return
		}
		members, err := a.eng.RoomMembers(a.ctx, roomID)
		if err == nil {
			a.cacheNames(members)
			a.mu.Lock()
			a.peer = model.User{}
			if room := a.thread.Room(); room != nil && !room.IsGroup() {
				for _, m := range members {
					if m.ID != a.me {
						a.peer = m
						break
					}
				}
			}
			a.mu.Unlock()
		}
		a.app.QueueUpdateDraw(func() {
			a.renderThread()
			a.showThreadPage()
		})
	}()
}

func (a *App) showGroupInfo() {
	room := a.thread.Room()
	if room == nil || !room.IsGroup() {
		a.flash("Not a group chat")
		return
	}
	a.refreshGroupInfo(room.ID)
}

func (a *App) refreshGroupInfo(roomID string) {
	go func() {
		room, err := a.eng.Room(a.ctx, roomID)
		if err != nil || room == nil {
			a.flash("Group info failed")
			return
		}
		members, err := a.group.Members(a.ctx, roomID)
		if err != nil {
			a.flash("Group info failed: " + err.Error())
			return
		}
		a.cacheNames(members)
		a.app.QueueUpdateDraw(func() {
			a.groupV.Update(*room, members)
			a.pages.SwitchToPage(pageGroupInfo)
			a.app.SetFocus(a.groupV)
			a.statusBar.SetHints("d:remove member  esc:back")
		})
	}()
}

// refreshRoomList projects the list snapshot into display rows. Titles
// and previews need extra queries, so the projection runs off the UI
// goroutine.
func (a *App) refreshRoomList() {
	go func() {
		snapshot := a.list.Rooms()
		rows := make([]views.RoomRow, 0, len(snapshot))
		for _, room := range snapshot {
			rows = append(rows, views.RoomRow{
				Room:    room,
				Title:   a.roomTitle(room),
				Preview: a.roomPreview(room),
			})
		}
		a.app.QueueUpdateDraw(func() { a.roomList.Update(rows) })
	}()
}

func (a *App) roomTitle(room model.ChatRoom) string {
	if room.Name != "" {
		return room.Name
	}
	members, err := a.eng.RoomMembers(a.ctx, room.ID)
	if err != nil {
		return room.ID
	}
	a.cacheNames(members)
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, m := range members {
		if m.ID != a.me {
			return m.Name
		}
	}
	return room.ID
}

func (a *App) roomPreview(room model.ChatRoom) string {
	if room.LastMessageID == "" {
		return ""
	}
	msg, err := a.eng.Message(a.ctx, room.LastMessageID)
	if err != nil || msg == nil {
		return ""
	}
	return views.PreviewText(*msg)
}

func (a *App) refreshThread() {
	a.app.QueueUpdateDraw(func() { a.renderThread() })
}

// renderThread repaints the transcript, header and reply bar from the
// current view-model snapshot. Must run on the UI goroutine.
func (a *App) renderThread() {
	a.mu.RLock()
	me := a.me
	peer := a.peer
	a.mu.RUnlock()

	a.threadV.Update(a.thread.Messages(), me, a.displayName, a.thread.ReplyPreview)

	if room := a.thread.Room(); room != nil {
		if room.IsGroup() {
			a.threadV.SetHeader(room.Name, "group")
		} else {
			a.threadV.SetHeader(peer.Name, presence.LastSeenText(peer.LastOnlineAt, time.Now()))
		}
	}

	if sel := a.thread.ReplyTo(); sel != nil {
		a.threadV.SetReplyPreview(views.PreviewText(*sel))
	} else {
		a.threadV.SetReplyPreview("")
	}
}

func (a *App) displayName(userID string) string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.names[userID]
}

func (a *App) cacheNames(users []model.User) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, u := range users {
		a.names[u.ID] = u.Name
	}
}

func (a *App) flash(msg string) {
	a.app.QueueUpdateDraw(func() { a.statusBar.Flash(msg) })
}

// watchUsers refreshes presence-sensitive widgets when user records
// change (heartbeats from peers arriving over the feed).
func (a *App) watchUsers() {
	ch, release := a.eng.Observe(bus.Topic(engine.KindUser, ""), 64)
	go func() {
		defer release()
		for {
			select {
			case evt := <-ch:
				u, ok := evt.Entity.(model.User)
				if !ok {
					continue
				}
				a.cacheNames([]model.User{u})
				a.mu.Lock()
				if a.peer.ID == u.ID {
					a.peer = u
				}
				a.mu.Unlock()
				// Widgets are only safe on the UI goroutine, the front-page
				// check included.
				a.app.QueueUpdateDraw(func() {
					if page, _ := a.pages.GetFrontPage(); page == pageThread {
						a.renderThread()
					}
				})
			case <-a.ctx.Done():
				return
			}
		}
	}()
}

// Run starts the shell and blocks until quit.
func (a *App) Run() error {
	defer a.cancel()

	a.list.Start(a.ctx)
	defer a.list.Stop()
	a.watchUsers()

	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.app.QueueUpdateDraw(func() { a.statusBar.ClearStaleFlash(5 * time.Second) })
			case <-a.ctx.Done():
				return
			}
		}
	}()

	a.showRooms()
	return a.app.Run()
}

// Stop terminates the shell from outside the UI goroutine.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}

package views

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/dalmofelipe/zapzap/internal/model"
	"github.com/dalmofelipe/zapzap/internal/presence"
	"github.com/dalmofelipe/zapzap/internal/tui/ui"
)

// People is the contacts screen. In normal mode selecting a contact
// opens a direct chat; in group mode contacts are toggled into a
// selection that becomes a new group.
type People struct {
	*tview.Table
	theme    *ui.Theme
	users    []model.User
	selected map[string]bool
	group    bool
	now      func() time.Time
}

// NewPeople creates the contacts table. now supplies the clock for
// presence rendering.
func NewPeople(theme *ui.Theme, now func() time.Time) *People {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitleColor(theme.TitleColor)

	p := &People{Table: table, theme: theme, selected: map[string]bool{}, now: now}
	p.render()
	return p
}

// Update replaces the contact list.
func (p *People) Update(users []model.User) {
	p.users = users
	for id := range p.selected {
		if !p.hasUser(id) {
			delete(p.selected, id)
		}
	}
	p.render()
}

func (p *People) hasUser(id string) bool {
	for _, u := range p.users {
		if u.ID == id {
			return true
		}
	}
	return false
}

// GroupMode reports whether group selection is active.
func (p *People) GroupMode() bool { return p.group }

// SetGroupMode toggles group selection, clearing any picks on exit.
func (p *People) SetGroupMode(on bool) {
	p.group = on
	if !on {
		p.selected = map[string]bool{}
	}
	p.render()
}

// ToggleSelected flips the contact under the cursor in group mode.
func (p *People) ToggleSelected() {
	if !p.group {
		return
	}
	u, ok := p.userUnderCursor()
	if !ok {
		return
	}
	if p.selected[u.ID] {
		delete(p.selected, u.ID)
	} else {
		p.selected[u.ID] = true
	}
	p.render()
}

// Selection returns the picked contact ids.
func (p *People) Selection() []string {
	ids := make([]string, 0, len(p.selected))
	for _, u := range p.users {
		if p.selected[u.ID] {
			ids = append(ids, u.ID)
		}
	}
	return ids
}

// SelectedUser returns the contact under the cursor.
func (p *People) SelectedUser() (model.User, bool) {
	return p.userUnderCursor()
}

func (p *People) userUnderCursor() (model.User, bool) {
	row, _ := p.GetSelection()
	idx := row - 1 // header
	if idx < 0 || idx >= len(p.users) {
		return model.User{}, false
	}
	return p.users[idx], true
}

func (p *People) render() {
	p.Clear()

	for col, h := range []string{" NAME", " LAST SEEN"} {
		cell := tview.NewTableCell(h).
			SetSelectable(false).
			SetTextColor(p.theme.TableHeaderFg).
			SetBackgroundColor(p.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(1)
		p.SetCell(0, col, cell)
	}

	for i, u := range p.users {
		name := u.Name
		if p.group {
			mark := "[ ]"
			if p.selected[u.ID] {
				mark = "[x]"
			}
			name = mark + " " + name
		}
		p.SetCell(i+1, 0, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(name))).
			SetExpansion(1).SetTextColor(p.theme.FgColor))
		p.SetCell(i+1, 1, tview.NewTableCell(" "+presence.LastSeenText(u.LastOnlineAt, p.now())).
			SetExpansion(1).SetTextColor(p.theme.MutedFg))
	}

	if p.group {
		p.SetTitle(fmt.Sprintf(" New group: %d selected (space: toggle, s: save, esc: cancel) ", len(p.selected)))
	} else {
		p.SetTitle(" Contacts (enter: chat, g: new group) ")
	}
}

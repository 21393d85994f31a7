package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/dalmofelipe/zapzap/internal/model"
	"github.com/dalmofelipe/zapzap/internal/tui/ui"
)

// GroupInfo lists the members of a group room and marks its admin.
type GroupInfo struct {
	*tview.Table
	theme   *ui.Theme
	room    model.ChatRoom
	members []model.User
}

// NewGroupInfo creates the member list table.
func NewGroupInfo(theme *ui.Theme) *GroupInfo {
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

	return &GroupInfo{Table: table, theme: theme}
}

// Update re-renders the member list for the given room.
func (g *GroupInfo) Update(room model.ChatRoom, members []model.User) {
	g.room = room
	g.members = members
	g.Clear()

	cell := tview.NewTableCell(" MEMBER").
		SetSelectable(false).
		SetTextColor(g.theme.TableHeaderFg).
		SetBackgroundColor(g.theme.TableHeaderBg).
		SetAttributes(tcell.AttrBold).
		SetExpansion(1)
	g.SetCell(0, 0, cell)

	for i, u := range g.members {
		name := u.Name
		if u.ID == room.AdminID {
			name += "  [admin]"
		}
		g.SetCell(i+1, 0, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(name))).
			SetExpansion(1).SetTextColor(g.theme.FgColor))
	}

	title := room.Name
	if title == "" {
		title = "Group"
	}
	g.SetTitle(fmt.Sprintf(" %s: %d members (d: remove, esc: back) ",
		tview.Escape(sanitizeForTerminal(title)), len(g.members)))
}

// Room returns the room currently shown.
func (g *GroupInfo) Room() model.ChatRoom { return g.room }

// SelectedMember returns the member under the cursor.
func (g *GroupInfo) SelectedMember() (model.User, bool) {
	row, _ := g.GetSelection()
	idx := row - 1 // header
	if idx < 0 || idx >= len(g.members) {
		return model.User{}, false
	}
	return g.members[idx], true
}

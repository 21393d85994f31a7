package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/dalmofelipe/zapzap/internal/model"
	"github.com/dalmofelipe/zapzap/internal/tui/ui"
)

// RoomRow is one rendered conversation: the room plus display fields the
// app resolves (peer name for direct rooms, last-message preview).
type RoomRow struct {
	Room    model.ChatRoom
	Title   string
	Preview string
}

// RoomList is the conversation list screen.
type RoomList struct {
	*tview.Table
	theme *ui.Theme
	rows  []RoomRow
}

// NewRoomList creates the conversation list table.
func NewRoomList(theme *ui.Theme) *RoomList {
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
	table.SetTitle(" Chats ")
	table.SetTitleColor(theme.TitleColor)

	return &RoomList{Table: table, theme: theme}
}

// Update re-renders the list from the given rows (already recency-sorted).
func (rl *RoomList) Update(rows []RoomRow) {
	rl.rows = rows
	rl.render()
}

func (rl *RoomList) render() {
	rl.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" NAME", 1},
		{" LAST MESSAGE", 2},
		{" TIME", 0},
	}
	for col, h := range headers {
		cell := tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(rl.theme.TableHeaderFg).
			SetBackgroundColor(rl.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp)
		rl.SetCell(0, col, cell)
	}

	for i, row := range rl.rows {
		name := row.Title
		if row.Room.Unread > 0 {
			name = fmt.Sprintf("(%d) %s", row.Room.Unread, name)
		}
		rl.SetCell(i+1, 0, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(name))).
			SetExpansion(1).SetTextColor(rl.theme.FgColor))
		rl.SetCell(i+1, 1, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(truncate(row.Preview, 80)))).
			SetExpansion(2).SetTextColor(rl.theme.MutedFg))
		rl.SetCell(i+1, 2, tview.NewTableCell(formatTimestamp(row.Room.LastMessageAt)).
			SetExpansion(0).SetTextColor(rl.theme.FgColor).SetAlign(tview.AlignRight))
	}

	rl.SetTitle(fmt.Sprintf(" Chats (%d) ", len(rl.rows)))
}

// SelectedRoom returns the room id under the cursor, or "".
func (rl *RoomList) SelectedRoom() string {
	row, _ := rl.GetSelection()
	idx := row - 1 // header
	if idx < 0 || idx >= len(rl.rows) {
		return ""
	}
	return rl.rows[idx].Room.ID
}

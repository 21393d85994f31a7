package views

import (
	"time"

	"github.com/rivo/tview"

	"github.com/dalmofelipe/zapzap/internal/tui/ui"
)

// StatusBar is the one-line footer: profile name, key hints and a
// transient flash message.
type StatusBar struct {
	*tview.TextView
	theme   *ui.Theme
	profile string
	hints   string
	flashAt time.Time
	flash   string
}

// NewStatusBar creates the footer bar.
func NewStatusBar(theme *ui.Theme, profile string) *StatusBar {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.TableHeaderBg)
	tv.SetTextColor(theme.TableHeaderFg)
	sb := &StatusBar{TextView: tv, theme: theme, profile: profile}
	sb.render()
	return sb
}

// SetHints sets the context-sensitive key hint string.
func (sb *StatusBar) SetHints(hints string) {
	sb.hints = hints
	sb.render()
}

// Flash shows a transient message, replacing the hints until cleared.
func (sb *StatusBar) Flash(msg string) {
	sb.flash = msg
	sb.flashAt = time.Now()
	sb.render()
}

// ClearStaleFlash drops the flash once it has been visible long enough.
func (sb *StatusBar) ClearStaleFlash(maxAge time.Duration) {
	if sb.flash != "" && time.Since(sb.flashAt) > maxAge {
		sb.flash = ""
		sb.render()
	}
}

func (sb *StatusBar) render() {
	text := " [" + tview.Escape(sb.profile) + "] "
	if sb.flash != "" {
		text += "[yellow]" + tview.Escape(sanitizeForTerminal(sb.flash)) + "[-]"
	} else {
		text += sb.hints
	}
	sb.SetText(text)
}

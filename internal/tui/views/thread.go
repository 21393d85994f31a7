package views

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/dalmofelipe/zapzap/internal/model"
	"github.com/dalmofelipe/zapzap/internal/tui/ui"
)

// Thread is the conversation detail screen: a transcript plus a composer
// with an optional reply preview bar above it.
type Thread struct {
	*tview.Flex
	theme      *ui.Theme
	transcript *tview.TextView
	replyBar   *tview.TextView
	composer   *tview.InputField
	header     *tview.TextView

	onSubmit func(text string)
}

// NewThread creates the conversation detail layout.
func NewThread(theme *ui.Theme) *Thread {
	header := tview.NewTextView().SetDynamicColors(true)
	header.SetBackgroundColor(theme.TableHeaderBg)
	header.SetTextColor(theme.TableHeaderFg)

	transcript := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	transcript.SetBackgroundColor(theme.BgColor)
	transcript.SetBorder(true)
	transcript.SetBorderColor(theme.BorderColor)

	replyBar := tview.NewTextView().SetDynamicColors(true)
	replyBar.SetBackgroundColor(theme.BgColor)
	replyBar.SetTextColor(theme.MutedFg)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	composer.SetLabelColor(theme.TitleColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetBackgroundColor(theme.BgColor)

	t := &Thread{
		Flex:       tview.NewFlex().SetDirection(tview.FlexRow),
		theme:      theme,
		transcript: transcript,
		replyBar:   replyBar,
		composer:   composer,
		header:     header,
	}

	composer.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		text := strings.TrimSpace(composer.GetText())
		if text == "" {
			return
		}
		composer.SetText("")
		if t.onSubmit != nil {
			t.onSubmit(text)
		}
	})

	t.AddItem(header, 1, 0, false).
		AddItem(transcript, 0, 1, false).
		AddItem(replyBar, 0, 0, false).
		AddItem(composer, 1, 0, true)
	return t
}

// SetOnSubmit registers the composer submit handler.
func (t *Thread) SetOnSubmit(fn func(text string)) { t.onSubmit = fn }

// Composer exposes the input field for focus handling.
func (t *Thread) Composer() *tview.InputField { return t.composer }

// SetHeader renders the room title line with an optional presence suffix.
func (t *Thread) SetHeader(title, sub string) {
	line := " " + tview.Escape(sanitizeForTerminal(title))
	if sub != "" {
		line += "  [gray]" + tview.Escape(sub) + "[-]"
	}
	t.header.SetText(line)
}

// SetReplyPreview shows or hides the bar above the composer. An empty
// text hides it.
func (t *Thread) SetReplyPreview(text string) {
	if text == "" {
		t.replyBar.SetText("")
		t.ResizeItem(t.replyBar, 0, 0)
		return
	}
	t.replyBar.SetText(" replying to: " + tview.Escape(sanitizeForTerminal(truncate(text, 100))))
	t.ResizeItem(t.replyBar, 1, 0)
}

// ThreadAuthors resolves author ids to display names for rendering.
type ThreadAuthors func(userID string) string

// ThreadReplies resolves a reply target to its preview, if loaded.
type ThreadReplies func(messageID string) (model.Message, bool)

// Update re-renders the transcript. Messages arrive newest first; the
// transcript shows them oldest first with newest-first ordinals so
// ":reply 1" always means the latest message.
func (t *Thread) Update(msgs []model.Message, me string, names ThreadAuthors, replies ThreadReplies) {
	var b strings.Builder
	for i := len(msgs) - 1; i >= 0; i-- {
		t.writeMessage(&b, msgs[i], i+1, me, names, replies)
	}
	t.transcript.SetText(b.String())
	t.transcript.ScrollToEnd()
}

func (t *Thread) writeMessage(b *strings.Builder, msg model.Message, ordinal int, me string, names ThreadAuthors, replies ThreadReplies) {
	mine := msg.AuthorID == me
	color := "green"
	who := "me"
	if !mine {
		color = "blue"
		who = names(msg.AuthorID)
		if who == "" {
			who = msg.AuthorID
		}
	}

	fmt.Fprintf(b, "[gray][%d][-] [%s::b]%s[-::-] [gray]%s[-]", ordinal, color,
		tview.Escape(sanitizeForTerminal(who)), formatTimestamp(msg.CreatedAt))
	if mine && !msg.Deleted {
		fmt.Fprintf(b, " [gray]%s[-]", statusMark(msg.Status))
	}
	b.WriteString("\n")

	if msg.Deleted {
		b.WriteString("    [gray]Message deleted[-]\n\n")
		return
	}

	if msg.ReplyToID != "" {
		quote := "…"
		if orig, ok := replies(msg.ReplyToID); ok {
			quote = PreviewText(orig)
		}
		fmt.Fprintf(b, "    [gray]┃ %s[-]\n", tview.Escape(sanitizeForTerminal(truncate(quote, 60))))
	}

	body := PreviewText(msg)
	fmt.Fprintf(b, "    %s\n\n", tview.Escape(sanitizeForTerminal(body)))
}

func statusMark(s model.Status) string {
	switch s {
	case model.StatusRead:
		return "✓✓ read"
	case model.StatusDelivered:
		return "✓✓"
	default:
		return "✓"
	}
}

// PreviewText describes a message in one line, substituting a tag for
// media-only messages.
func PreviewText(msg model.Message) string {
	if msg.Deleted {
		return "Message deleted"
	}
	if msg.Content != "" {
		return msg.Content
	}
	switch {
	case msg.ImageKey != "":
		return "[photo]"
	case msg.AudioKey != "":
		return "[audio]"
	case msg.DocumentKey != "":
		return "[document]"
	}
	return ""
}

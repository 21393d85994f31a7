// Package ui holds shared look-and-feel for the terminal screens.
package ui

import "github.com/gdamore/tcell/v2"

// Theme holds color constants for the TUI.
type Theme struct {
	BgColor        tcell.Color
	FgColor        tcell.Color
	BorderColor    tcell.Color
	TableHeaderFg  tcell.Color
	TableHeaderBg  tcell.Color
	TableCursorFg  tcell.Color
	TableCursorBg  tcell.Color
	TitleColor     tcell.Color
	MenuKeyColor   tcell.Color
	BubbleMineFg   tcell.Color
	BubbleTheirsFg tcell.Color
	MutedFg        tcell.Color
	FlashErrColor  tcell.Color
}

// DefaultTheme returns the dark default theme.
func DefaultTheme() *Theme {
	return &Theme{
		BgColor:        tcell.ColorBlack,
		FgColor:        tcell.ColorLightGray,
		BorderColor:    tcell.ColorDodgerBlue,
		TableHeaderFg:  tcell.ColorWhite,
		TableHeaderBg:  tcell.ColorBlack,
		TableCursorFg:  tcell.ColorBlack,
		TableCursorBg:  tcell.ColorAqua,
		TitleColor:     tcell.ColorFuchsia,
		MenuKeyColor:   tcell.ColorDodgerBlue,
		BubbleMineFg:   tcell.ColorLightSkyBlue,
		BubbleTheirsFg: tcell.ColorLightGray,
		MutedFg:        tcell.ColorGray,
		FlashErrColor:  tcell.ColorOrangeRed,
	}
}

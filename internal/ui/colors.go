package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles is the default palette.
var Styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title   lipgloss.Style
	current lipgloss.Style
	err     lipgloss.Style
	warn    lipgloss.Style
	muted   lipgloss.Style
}

// NewPalette builds a palette from title, current, error, warning and muted foreground colors.
func NewPalette(t, c, e, w, m string) *Palette {
	return &Palette{
		title:   NewBold(t).MarginBottom(1),
		current: NewBold(c),
		err:     NewBold(e),
		warn:    NewStyle(w),
		muted:   NewEm(m),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

// Title renders text as a heading.
func (s *Palette) Title(text string) string { return s.title.Render(text) }

// Error renders text as an error.
func (s *Palette) Error(text string) string { return s.err.Render(text) }

// Warn renders text as a warning.
func (s *Palette) Warn(text string) string { return s.warn.Render(text) }

// Muted renders text as secondary text.
func (s *Palette) Muted(text string) string { return s.muted.Render(text) }

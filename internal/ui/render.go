package ui

import (
	"fmt"
	"strings"

	"github.com/desertthunder/plst/internal/models"
	"github.com/desertthunder/plst/internal/shared"
)

const currentMarker = "▶"

// Playlist renders the header of p followed by entries, starting the numbering at offset+1.
func (s *Palette) Playlist(p *models.Playlist, entries []models.Entry, offset int) string {
	var b strings.Builder

	header := fmt.Sprintf("%s (#%d)", p.Title, p.ID)
	b.WriteString(s.Title(header))
	b.WriteString("\n")
	b.WriteString(s.Muted(fmt.Sprintf("%d items, %s", p.ItemCount, shared.FormatDuration(p.TotalDuration))))
	b.WriteString("\n\n")

	if len(entries) == 0 {
		b.WriteString(s.Muted("(empty)"))
		b.WriteString("\n")
		return b.String()
	}

	for i, e := range entries {
		b.WriteString(s.Entry(offset+i+1, e, e.Item.ID == p.Current))
		b.WriteString("\n")
	}
	return b.String()
}

// Entry renders one numbered line. The current entry is marked and highlighted.
func (s *Palette) Entry(n int, e models.Entry, current bool) string {
	title := e.Media.Title
	if e.Media.Artist != "" {
		title = e.Media.Artist + " - " + title
	}

	duration := "--:--"
	if e.Media.Duration != nil {
		duration = shared.FormatDuration(*e.Media.Duration)
	}

	line := fmt.Sprintf("%3d. %s", n, title)
	meta := s.Muted(fmt.Sprintf("[%s] item %d", duration, e.Item.ID))
	if current {
		return currentMarker + " " + s.current.Render(line) + " " + meta
	}
	return "  " + line + " " + meta
}

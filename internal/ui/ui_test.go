package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/plst/internal/models"
)

func TestPalette(t *testing.T) {
	d := 90 * time.Second
	p := &models.Playlist{ID: 3, Title: "Movie Night", Current: 21, ItemCount: 2, TotalDuration: d}
	entries := []models.Entry{
		{Item: models.PlaylistItem{ID: 20}, Media: models.Media{Title: "Trailer", Duration: &d}},
		{Item: models.PlaylistItem{ID: 21}, Media: models.Media{Title: "Feature", Artist: "Studio"}},
	}

	t.Run("Playlist", func(t *testing.T) {
		out := Styles.Playlist(p, entries, 0)

		for _, want := range []string{"Movie Night (#3)", "2 items, 01:30", "1. Trailer", "[01:30] item 20", "2. Studio - Feature", "[--:--] item 21"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}

		lines := strings.Split(strings.TrimSpace(out), "\n")
		last := lines[len(lines)-1]
		if !strings.HasPrefix(last, currentMarker) {
			t.Errorf("expected current entry to be marked, got %q", last)
		}
		if strings.HasPrefix(lines[len(lines)-2], currentMarker) {
			t.Errorf("only the current entry should be marked")
		}
	})

	t.Run("Offset", func(t *testing.T) {
		out := Styles.Playlist(p, entries[1:], 10)
		if !strings.Contains(out, "11. Studio - Feature") {
			t.Errorf("expected numbering from offset, got:\n%s", out)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		empty := &models.Playlist{ID: 1, Title: models.UnnamedPlaylist}
		if out := Styles.Playlist(empty, nil, 0); !strings.Contains(out, "(empty)") {
			t.Errorf("expected empty marker, got:\n%s", out)
		}
	})
}

// Package ui renders playlists for the terminal with lipgloss styles.
//
// A [Palette] holds the named styles. [Palette.Playlist] draws a header with the title, item count and
// total duration, followed by one numbered line per entry. The current entry is marked and highlighted.
// Styles degrade to plain text when the output is not a color terminal.
package ui

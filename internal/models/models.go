package models

import (
	"fmt"
	"time"
)

// UnnamedPlaylist is the title given to playlists created without one.
const UnnamedPlaylist = "<unnamed>"

// PlaylistID identifies a [Playlist]. Zero means none.
type PlaylistID int64

// ItemID identifies a [PlaylistItem]. Zero means none.
type ItemID int64

// MediaID identifies a [Media] record. Zero means none.
type MediaID int64

// Valid reports whether id refers to a playlist.
func (id PlaylistID) Valid() bool {
	return id > 0
}

// Valid reports whether id refers to an item.
func (id ItemID) Valid() bool {
	return id > 0
}

// Valid reports whether id refers to a media record.
func (id MediaID) Valid() bool {
	return id > 0
}

// Playlist is the persisted header of a linked list of items.
type Playlist struct {
	ID            PlaylistID    `json:"id"`
	Title         string        `json:"title"`
	Head          ItemID        `json:"head,omitempty"`
	Tail          ItemID        `json:"tail,omitempty"`
	Current       ItemID        `json:"current,omitempty"`
	ItemCount     int           `json:"item_count"`
	TotalDuration time.Duration `json:"total_duration"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Empty reports whether the playlist has no items.
func (p *Playlist) Empty() bool {
	return !p.Head.Valid() && !p.Tail.Valid() && p.ItemCount == 0
}

// PlaylistItem is one node of a playlist. Prev and Next always point at items of the same playlist.
type PlaylistItem struct {
	ID         ItemID     `json:"id"`
	PlaylistID PlaylistID `json:"playlist_id"`
	MediaID    MediaID    `json:"media_id"`
	Prev       ItemID     `json:"prev,omitempty"`
	Next       ItemID     `json:"next,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// MediaType tags where a media entry comes from.
type MediaType string

const (
	MediaLocal  MediaType = "local"
	MediaRemote MediaType = "remote"
)

// Media is a playable entry. Duration is nil when unknown.
type Media struct {
	ID        MediaID        `json:"id"`
	Title     string         `json:"title"`
	Artist    string         `json:"artist,omitempty"`
	Duration  *time.Duration `json:"duration,omitempty"`
	URL       string         `json:"url"`
	MediaType MediaType      `json:"media_type"`
	Views     int            `json:"views"`
	CreatedAt time.Time      `json:"created_at"`
}

// KnownDuration returns the media duration, counting unknown as zero.
func (m *Media) KnownDuration() time.Duration {
	if m == nil || m.Duration == nil {
		return 0
	}
	return *m.Duration
}

// Validate checks required fields before insertion.
func (m *Media) Validate() error {
	if m.URL == "" {
		return fmt.Errorf("media url is required")
	}
	if m.Title == "" {
		return fmt.Errorf("media title is required")
	}
	if m.Duration != nil && *m.Duration < 0 {
		return fmt.Errorf("media duration must not be negative")
	}
	switch m.MediaType {
	case "", MediaLocal, MediaRemote:
	default:
		return fmt.Errorf("unknown media type %q", m.MediaType)
	}
	return nil
}

// Range is a contiguous run of items from First to Last following next links.
type Range struct {
	First ItemID `json:"first"`
	Last  ItemID `json:"last"`
}

func (r Range) String() string {
	return fmt.Sprintf("[%d..%d]", r.First, r.Last)
}

// Entry is an item paired with its media, as rendered in a playlist window.
type Entry struct {
	Item  PlaylistItem `json:"item"`
	Media Media        `json:"media"`
}

// PlaylistExport is a whole playlist with its entries in list order.
type PlaylistExport struct {
	Playlist Playlist `json:"playlist"`
	Entries  []Entry  `json:"entries"`
}

// IsCurrent reports whether e is the current entry of the exported playlist.
func (p *PlaylistExport) IsCurrent(e Entry) bool {
	return p.Playlist.Current.Valid() && e.Item.ID == p.Playlist.Current
}

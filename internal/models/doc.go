// Package models defines the persisted entities of the watch-party playlist engine.
//
// A playlist is a doubly-linked list stored as rows: each [PlaylistItem] carries the
// identities of its neighbours rather than references, and the owning [Playlist] keeps
// the head, tail and current item identities together with aggregate counters.
//
//   - [Playlist] : one shareable queue with head/tail/current pointers and aggregates
//   - [PlaylistItem] : one slot in a queue, referencing a [Media] record
//   - [Media] : a playable entry with optional known duration
//   - [Range] : a contiguous run of items, used by bulk reordering
//
// Identities are positive integers. The zero value of every identity type means "none".
package models

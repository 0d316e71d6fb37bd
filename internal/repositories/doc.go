// Package repositories implements SQLite persistence for playlists, playlist items and media.
//
// Every accessor is a single statement against a [DBTX], so the same repository works on a
// plain [database/sql.DB] or inside a transaction opened by the caller. Missing records are
// reported as [shared.ErrNotFound] wrapped with the entity kind and id.
//
// Key Implementations:
//   - [PlaylistRepository] : playlist headers, pointer fields and aggregate counters
//   - [PlaylistItemRepository] : list nodes and their prev/next links
//   - [MediaRepository] : media lookup, registration and view counting
//   - [Store] : the three repositories bound to one [DBTX]
package repositories

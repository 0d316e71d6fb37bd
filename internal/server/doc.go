// Package server exposes the playback service over HTTP and websockets.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns ("GET /playlists/{id}") internally.
//
// Every route passes through recovery, metrics, request logging and, when configured, a global token bucket
// rate limiter. The whole router is wrapped by OpenTelemetry HTTP instrumentation.
//
// # JSON API
//
// Playlists, items and media are read and changed through JSON endpoints under /playlists, /items and /media.
// Errors are returned as {"error": "..."}: unknown records map to 404, bad input to 400, anything else to 500.
//
// # Viewer Sockets
//
// GET /watch/{id}/ws upgrades a viewer to a websocket attached to playlist {id}. The server pushes plain text
// notifications (media-changed, refresh-playlist, metadata-changed, play, pause, playpause). The viewer sends
// "next" when it finished the current item, and "play" or "pause" to drive playback. Sockets are pinged to
// detect dead peers and are detached from the coordinator when their read loop ends.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server

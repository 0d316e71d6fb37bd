package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/plst/internal/models"
	"github.com/desertthunder/plst/internal/playback"
	"github.com/desertthunder/plst/internal/shared"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

type addRequest struct {
	MediaIDs []models.MediaID `json:"media_ids"`
	Position string           `json:"position"`
}

type itemsRequest struct {
	IDs []models.ItemID `json:"ids"`
}

type mediaRequest struct {
	Title     string           `json:"title"`
	Artist    string           `json:"artist"`
	Duration  *int64           `json:"duration"`
	URL       string           `json:"url"`
	MediaType models.MediaType `json:"media_type"`
}

func (m mediaRequest) media() *models.Media {
	media := &models.Media{
		Title:     strings.TrimSpace(m.Title),
		Artist:    strings.TrimSpace(m.Artist),
		URL:       strings.TrimSpace(m.URL),
		MediaType: m.MediaType,
	}
	if m.Duration != nil {
		d := time.Duration(*m.Duration) * time.Second
		media.Duration = &d
	}
	return media
}

type playbackResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (s *Server) routes() {
	s.router.HandleFunc(http.MethodPost, "/playlists", s.createPlaylist)
	s.router.HandleFunc(http.MethodGet, "/playlists", s.listPlaylists)
	s.router.HandleFunc(http.MethodGet, "/playlists/{id}", s.getPlaylist)
	s.router.HandleFunc(http.MethodPatch, "/playlists/{id}", s.renamePlaylist)
	s.router.HandleFunc(http.MethodDelete, "/playlists/{id}", s.deletePlaylist)

	s.router.HandleFunc(http.MethodGet, "/playlists/{id}/items", s.window)
	s.router.HandleFunc(http.MethodPatch, "/playlists/{id}/items", s.addItems)
	s.router.HandleFunc(http.MethodGet, "/playlists/{id}/current", s.currentItem)
	s.router.HandleFunc(http.MethodPost, "/playlists/{id}/remove", s.removeItems)
	s.router.HandleFunc(http.MethodPost, "/playlists/{id}/move-up", s.moveItems(s.service.MoveUp))
	s.router.HandleFunc(http.MethodPost, "/playlists/{id}/move-down", s.moveItems(s.service.MoveDown))

	s.router.HandleFunc(http.MethodPost, "/playlists/{id}/next", s.step(s.service.Next))
	s.router.HandleFunc(http.MethodPost, "/playlists/{id}/prev", s.step(s.service.Previous))
	s.router.HandleFunc(http.MethodPost, "/playlists/{id}/play", s.intent(s.service.Play))
	s.router.HandleFunc(http.MethodPost, "/playlists/{id}/pause", s.intent(s.service.Pause))
	s.router.HandleFunc(http.MethodPost, "/playlists/{id}/toggle", s.intent(s.service.TogglePlayback))
	s.router.HandleFunc(http.MethodPost, "/playlists/{id}/control", s.control)

	s.router.HandleFunc(http.MethodPost, "/items/{id}/goto", s.goToItem)

	s.router.HandleFunc(http.MethodPost, "/media", s.registerMedia)
	s.router.HandleFunc(http.MethodGet, "/media/{id}", s.getMedia)

	s.router.HandleFunc(http.MethodGet, "/watch/{id}/ws", s.watch)
}

func (s *Server) createPlaylist(w http.ResponseWriter, r *http.Request) {
	p, err := s.service.CreatePlaylist(r.Context(), r.URL.Query().Get("title"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) listPlaylists(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	list, err := s.service.Playlists(r.Context(), offset, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) getPlaylist(w http.ResponseWriter, r *http.Request) {
	pid, err := pathID[models.PlaylistID](r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	p, err := s.service.Playlist(r.Context(), pid)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) renamePlaylist(w http.ResponseWriter, r *http.Request) {
	pid, err := pathID[models.PlaylistID](r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if err := s.service.RenamePlaylist(r.Context(), pid, r.URL.Query().Get("title")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deletePlaylist(w http.ResponseWriter, r *http.Request) {
	pid, err := pathID[models.PlaylistID](r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if err := s.service.DeletePlaylist(r.Context(), pid); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) window(w http.ResponseWriter, r *http.Request) {
	pid, err := pathID[models.PlaylistID](r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	after, err := queryInt(r, "after", 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", playback.DefaultWindow)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	window, err := s.service.Window(r.Context(), pid, models.ItemID(after), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, window)
}

func (s *Server) addItems(w http.ResponseWriter, r *http.Request) {
	pid, err := pathID[models.PlaylistID](r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var req addRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	position, ok := playback.ParsePosition(req.Position)
	if !ok {
		s.logger.Warn("unknown position, queueing next", "position", req.Position)
	}

	ids, err := s.service.Add(r.Context(), pid, req.MediaIDs, position)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if ids == nil {
		ids = []models.ItemID{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ids": ids})
}

func (s *Server) currentItem(w http.ResponseWriter, r *http.Request) {
	pid, err := pathID[models.PlaylistID](r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	entry, err := s.service.CurrentItem(r.Context(), pid)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if entry == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) removeItems(w http.ResponseWriter, r *http.Request) {
	pid, err := pathID[models.PlaylistID](r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var req itemsRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	if err := s.service.RemoveItems(r.Context(), pid, req.IDs); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type moveFunc func(ctx context.Context, pid models.PlaylistID, ids []models.ItemID) error

func (s *Server) moveItems(move moveFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pid, err := pathID[models.PlaylistID](r)
		if err != nil {
			s.fail(w, r, err)
			return
		}

		var req itemsRequest
		if err := decodeBody(w, r, &req); err != nil {
			s.fail(w, r, err)
			return
		}
		if len(req.IDs) == 0 {
			s.fail(w, r, fmt.Errorf("%w: ids", shared.ErrMissingArgument))
			return
		}

		if err := move(r.Context(), pid, req.IDs); err != nil {
			s.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type stepFunc func(ctx context.Context, pid models.PlaylistID) (models.ItemID, error)

func (s *Server) step(fn stepFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pid, err := pathID[models.PlaylistID](r)
		if err != nil {
			s.fail(w, r, err)
			return
		}

		current, err := fn(r.Context(), pid)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]models.ItemID{"current": current})
	}
}

type intentFunc func(ctx context.Context, pid models.PlaylistID) string

func (s *Server) intent(fn intentFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pid, err := pathID[models.PlaylistID](r)
		if err != nil {
			s.fail(w, r, err)
			return
		}

		msg := fn(r.Context(), pid)
		writeJSON(w, http.StatusOK, playbackResponse{Message: msg, Status: s.service.Status(pid).String()})
	}
}

func (s *Server) control(w http.ResponseWriter, r *http.Request) {
	pid, err := pathID[models.PlaylistID](r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if err := s.service.Control(r.Context(), pid); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, playbackResponse{Status: s.service.Status(pid).String()})
}

func (s *Server) goToItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID[models.ItemID](r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	pid, err := s.service.GoToItem(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"playlist": int64(pid), "current": int64(id)})
}

func (s *Server) registerMedia(w http.ResponseWriter, r *http.Request) {
	var req mediaRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	stored, err := s.service.RegisterMedia(r.Context(), req.media())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

func (s *Server) getMedia(w http.ResponseWriter, r *http.Request) {
	id, err := pathID[models.MediaID](r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	media, err := s.service.Media(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, media)
}

// fail maps err to a status code and writes it.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if shared.IsInvariant(err) {
		s.logger.Error("playlist invariant violated", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	if status == http.StatusInternalServerError {
		writeError(w, status, "internal server error")
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		return
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrInvalidArgument),
		errors.Is(err, shared.ErrMissingArgument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func pathID[T ~int64](r *http.Request) (T, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id %q", shared.ErrInvalidArgument, raw)
	}
	return T(id), nil
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %s %q", shared.ErrInvalidArgument, key, raw)
	}
	return v, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, err := shared.MarshalJSON(payload, false)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}

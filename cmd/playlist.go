package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/plst/internal/formatter"
	"github.com/desertthunder/plst/internal/models"
	"github.com/desertthunder/plst/internal/playback"
	"github.com/desertthunder/plst/internal/shared"
	"github.com/desertthunder/plst/internal/ui"
	"github.com/urfave/cli/v3"
)

// PlaylistNew creates an empty playlist.
func (r *Runner) PlaylistNew(ctx context.Context, cmd *cli.Command) error {
	return r.withSession(cmd, func(s *session) error {
		p, err := s.service.CreatePlaylist(ctx, cmd.String("title"))
		if err != nil {
			return err
		}
		if cmd.Bool("json") {
			return r.writeJSON(p, true)
		}
		return r.writePlain("✓ Created playlist %q (id %d)\n", p.Title, p.ID)
	})
}

// PlaylistList prints a page of playlists, newest first.
func (r *Runner) PlaylistList(ctx context.Context, cmd *cli.Command) error {
	return r.withSession(cmd, func(s *session) error {
		playlists, err := s.service.Playlists(ctx, cmd.Int("offset"), cmd.Int("limit"))
		if err != nil {
			return err
		}
		if cmd.Bool("json") {
			return r.writeJSON(playlists, true)
		}

		r.writePlainHeader(fmt.Sprintf("Playlists (%d)", len(playlists)))
		if len(playlists) == 0 {
			return r.writePlain("%s\n", ui.Styles.Muted("no playlists"))
		}
		for _, p := range playlists {
			marker := " "
			if p.ID == s.coordinator.Controlled() {
				marker = "*"
			}
			r.writePlain("%s %4d  %-32s %4d items  %s\n",
				marker, p.ID, p.Title, p.ItemCount, ui.Styles.Muted(shared.FormatDuration(p.TotalDuration)))
		}
		return nil
	})
}

// PlaylistShow prints a window of entries with the current item highlighted.
func (r *Runner) PlaylistShow(ctx context.Context, cmd *cli.Command) error {
	pid, err := idFlag[models.PlaylistID](cmd, "id")
	if err != nil {
		return err
	}

	return r.withSession(cmd, func(s *session) error {
		w, err := s.service.Window(ctx, pid, models.ItemID(cmd.Int64("after")), cmd.Int("limit"))
		if err != nil {
			return err
		}
		if cmd.Bool("json") {
			return r.writeJSON(w, true)
		}

		r.writePlain("%s", ui.Styles.Playlist(w.Playlist, w.Entries, 0))
		if w.Next.Valid() {
			r.writePlain("%s\n", ui.Styles.Muted(fmt.Sprintf("more from --after %d", w.Next)))
		}
		return nil
	})
}

// PlaylistAdd inserts media after the current item or at the tail.
func (r *Runner) PlaylistAdd(ctx context.Context, cmd *cli.Command) error {
	pid, err := idFlag[models.PlaylistID](cmd, "id")
	if err != nil {
		return err
	}
	media, err := idsFlag[models.MediaID](cmd, "media")
	if err != nil {
		return err
	}

	position, ok := playback.ParsePosition(cmd.String("position"))
	if !ok {
		r.logger.Warn("unknown position, queueing next", "position", cmd.String("position"))
	}

	return r.withSession(cmd, func(s *session) error {
		ids, err := s.service.Add(ctx, pid, media, position)
		if err != nil {
			return err
		}
		return r.writePlain("✓ Added %d items to playlist %d\n", len(ids), pid)
	})
}

// PlaylistRemove deletes items from a playlist.
func (r *Runner) PlaylistRemove(ctx context.Context, cmd *cli.Command) error {
	pid, err := idFlag[models.PlaylistID](cmd, "id")
	if err != nil {
		return err
	}
	items, err := idsFlag[models.ItemID](cmd, "item")
	if err != nil {
		return err
	}

	return r.withSession(cmd, func(s *session) error {
		if err := s.service.RemoveItems(ctx, pid, items); err != nil {
			return err
		}
		return r.writePlain("✓ Removed %d items from playlist %d\n", len(items), pid)
	})
}

// PlaylistMove swaps the selected ranges with their neighbour.
func (r *Runner) PlaylistMove(ctx context.Context, cmd *cli.Command) error {
	pid, err := idFlag[models.PlaylistID](cmd, "id")
	if err != nil {
		return err
	}
	items, err := idsFlag[models.ItemID](cmd, "item")
	if err != nil {
		return err
	}

	return r.withSession(cmd, func(s *session) error {
		move := s.service.MoveUp
		if cmd.Bool("down") {
			move = s.service.MoveDown
		}
		if err := move(ctx, pid, items); err != nil {
			return err
		}
		return r.writePlain("✓ Moved %d items in playlist %d\n", len(items), pid)
	})
}

// PlaylistCheck walks a playlist and reports the first broken link or counter.
func (r *Runner) PlaylistCheck(ctx context.Context, cmd *cli.Command) error {
	pid, err := idFlag[models.PlaylistID](cmd, "id")
	if err != nil {
		return err
	}

	return r.withSession(cmd, func(s *session) error {
		report, err := s.service.Check(ctx, pid)
		if err != nil {
			r.writePlain("%s\n", ui.Styles.Error("✗ "+err.Error()))
			return err
		}
		return r.writePlain("✓ Playlist %d is consistent: %d items, %s\n",
			pid, len(report.Order), shared.FormatDuration(report.Duration))
	})
}

// PlaylistExport writes a whole playlist to disk.
func (r *Runner) PlaylistExport(ctx context.Context, cmd *cli.Command) error {
	pid, err := idFlag[models.PlaylistID](cmd, "id")
	if err != nil {
		return err
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	return r.withSession(cmd, func(s *session) error {
		export, err := s.service.Export(ctx, pid)
		if err != nil {
			return err
		}

		files, err := formatter.Write(export, format, cmd.String("output"))
		if err != nil {
			return err
		}

		r.logger.Info("exported playlist", "playlist", pid, "format", format, "entries", len(export.Entries))
		for _, f := range files {
			r.writePlain("✓ Wrote %s\n", f)
		}
		return nil
	})
}

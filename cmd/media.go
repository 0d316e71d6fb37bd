package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/plst/internal/models"
	"github.com/desertthunder/plst/internal/shared"
	"github.com/urfave/cli/v3"
)

// MediaAdd registers a media record. A URL that is already known returns the stored record.
func (r *Runner) MediaAdd(ctx context.Context, cmd *cli.Command) error {
	media := &models.Media{
		Title:     cmd.String("title"),
		Artist:    cmd.String("artist"),
		URL:       cmd.String("url"),
		MediaType: models.MediaType(cmd.String("type")),
	}
	if cmd.IsSet("duration") {
		d := cmd.Duration("duration")
		media.Duration = &d
	}

	return r.withSession(cmd, func(s *session) error {
		stored, err := s.service.RegisterMedia(ctx, media)
		if err != nil {
			return err
		}
		if cmd.Bool("json") {
			return r.writeJSON(stored, true)
		}
		return r.writePlain("✓ Media %d: %s\n", stored.ID, stored.Title)
	})
}

// MediaShow prints one media record.
func (r *Runner) MediaShow(ctx context.Context, cmd *cli.Command) error {
	id, err := idFlag[models.MediaID](cmd, "id")
	if err != nil {
		return err
	}

	return r.withSession(cmd, func(s *session) error {
		media, err := s.service.Media(ctx, id)
		if err != nil {
			return err
		}
		if cmd.Bool("json") {
			return r.writeJSON(media, true)
		}

		duration := "unknown"
		if media.Duration != nil {
			duration = shared.FormatDuration(*media.Duration)
		}

		r.writePlainHeader(media.Title)
		r.writePlain("ID:       %d\n", media.ID)
		if media.Artist != "" {
			r.writePlain("Artist:   %s\n", media.Artist)
		}
		r.writePlain("Duration: %s\n", duration)
		r.writePlain("URL:      %s\n", media.URL)
		r.writePlain("Type:     %s\n", media.MediaType)
		return r.writePlain("Views:    %s\n", fmt.Sprint(media.Views))
	})
}

// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func playlistIDFlag() *cli.Int64Flag {
	return &cli.Int64Flag{
		Name:     "id",
		Usage:    "Playlist ID",
		Required: true,
	}
}

func jsonFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Output raw JSON",
	}
}

// setupCommand initializes configuration and storage
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration and storage",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Create the config file when missing, then initialize the database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Flags:  []cli.Flag{configFlag()},
				Action: r.RollbackDatabase,
			},
		},
	}
}

// serveCommand runs the HTTP and websocket server
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the playlist API and viewer sockets",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host, overrides the config file",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port, overrides the config file",
			},
		},
		Action: r.Serve,
	}
}

// playlistCommand handles playlist operations
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Playlist operations",
		Commands: []*cli.Command{
			{
				Name:  "new",
				Usage: "Create an empty playlist",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:    "title",
						Aliases: []string{"t"},
						Usage:   "Playlist title",
					},
					jsonFlag(),
				},
				Action: r.PlaylistNew,
			},
			{
				Name:  "list",
				Usage: "List playlists, newest first",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:  "offset",
						Usage: "Number of playlists to skip",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of playlists to return",
						Value: 50,
					},
					jsonFlag(),
				},
				Action: r.PlaylistList,
			},
			{
				Name:  "show",
				Usage: "Show a window of playlist items with the current item highlighted",
				Flags: []cli.Flag{
					configFlag(),
					playlistIDFlag(),
					&cli.Int64Flag{
						Name:  "after",
						Usage: "Item ID to start from (inclusive), defaults to the head",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of items to show",
						Value: 10,
					},
					jsonFlag(),
				},
				Action: r.PlaylistShow,
			},
			{
				Name:  "add",
				Usage: "Add media to a playlist",
				Flags: []cli.Flag{
					configFlag(),
					playlistIDFlag(),
					&cli.Int64SliceFlag{
						Name:     "media",
						Aliases:  []string{"m"},
						Usage:    "Media ID to add, repeat for several",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "position",
						Usage: "queue-next or add-to-end",
						Value: "queue-next",
					},
				},
				Action: r.PlaylistAdd,
			},
			{
				Name:  "rm",
				Usage: "Remove items from a playlist",
				Flags: []cli.Flag{
					configFlag(),
					playlistIDFlag(),
					&cli.Int64SliceFlag{
						Name:     "item",
						Aliases:  []string{"i"},
						Usage:    "Item ID to remove, repeat for several",
						Required: true,
					},
				},
				Action: r.PlaylistRemove,
			},
			{
				Name:  "move",
				Usage: "Swap items with the following item, or the preceding one with --down",
				Flags: []cli.Flag{
					configFlag(),
					playlistIDFlag(),
					&cli.Int64SliceFlag{
						Name:     "item",
						Aliases:  []string{"i"},
						Usage:    "Item ID to move, repeat for several",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "down",
						Usage: "Swap with the preceding item",
					},
				},
				Action: r.PlaylistMove,
			},
			{
				Name:  "check",
				Usage: "Verify the links and counters of a playlist",
				Flags: []cli.Flag{
					configFlag(),
					playlistIDFlag(),
				},
				Action: r.PlaylistCheck,
			},
			{
				Name:  "export",
				Usage: "Export a playlist to CSV, Markdown or text",
				Flags: []cli.Flag{
					configFlag(),
					playlistIDFlag(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "csv, md or txt",
						Value:   "txt",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output path (file, base name or directory depending on format)",
					},
				},
				Action: r.PlaylistExport,
			},
		},
	}
}

// mediaCommand handles media records
func mediaCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "media",
		Usage: "Media records",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Register a media record, or print the existing one for a known URL",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "url",
						Usage:    "Media URL or local path",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "title",
						Aliases:  []string{"t"},
						Usage:    "Media title",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "artist",
						Usage: "Artist or channel",
					},
					&cli.DurationFlag{
						Name:    "duration",
						Aliases: []string{"d"},
						Usage:   "Duration such as 3m20s, omit when unknown",
					},
					&cli.StringFlag{
						Name:  "type",
						Usage: "local or remote",
						Value: "local",
					},
					jsonFlag(),
				},
				Action: r.MediaAdd,
			},
			{
				Name:  "show",
				Usage: "Show a media record",
				Flags: []cli.Flag{
					configFlag(),
					&cli.Int64Flag{
						Name:     "id",
						Usage:    "Media ID",
						Required: true,
					},
					jsonFlag(),
				},
				Action: r.MediaShow,
			},
		},
	}
}

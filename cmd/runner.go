package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plst/internal/models"
	"github.com/desertthunder/plst/internal/playback"
	"github.com/desertthunder/plst/internal/playlist"
	"github.com/desertthunder/plst/internal/shared"
	"github.com/desertthunder/plst/internal/watch"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config *shared.Config
	logger *log.Logger
	output io.Writer
	getenv func(string) string
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	// Config, when set, is used instead of reading --config.
	Config *shared.Config
	Logger *log.Logger
	Output io.Writer
	Getenv func(string) string
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}

	return &Runner{
		config: opts.Config,
		logger: opts.Logger,
		output: opts.Output,
		getenv: opts.Getenv,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, playlistCommand, mediaCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig reads --config, falling back to defaults when the file is missing, then applies the
// environment and the configured log level.
func (r *Runner) loadConfig(cmd *cli.Command) (*shared.Config, error) {
	config := r.config
	if config == nil {
		loaded, err := shared.LoadConfigOrDefault(cmd.String("config"))
		if err != nil {
			return nil, err
		}
		config = loaded
	}

	if err := config.ApplyEnv(r.getenv); err != nil {
		return nil, err
	}
	if err := shared.ApplyLogConfig(r.logger, config.Log); err != nil {
		return nil, err
	}

	r.config = config
	return config, nil
}

// session is an open database with the services built on it.
type session struct {
	db          *sql.DB
	coordinator *watch.Coordinator
	service     *playback.Service
}

func (s *session) Close() error {
	return s.db.Close()
}

// open connects to the configured database, applies pending migrations and builds the playback service.
func (r *Runner) open(config *shared.Config) (*session, error) {
	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	coordinator := watch.NewCoordinator(watch.Options{
		Controlled:  models.PlaylistID(config.Playback.CurrentPlaylist),
		SendTimeout: config.Playback.SendTimeout(),
		MaxParallel: config.Playback.MaxParallelSends,
		Logger:      r.logger,
	})
	engine := playlist.NewEngine(db, r.logger)

	return &session{
		db:          db,
		coordinator: coordinator,
		service:     playback.NewService(engine, coordinator, r.logger),
	}, nil
}

// withSession loads the config and opens a session for the duration of fn.
func (r *Runner) withSession(cmd *cli.Command, fn func(*session) error) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	s, err := r.open(config)
	if err != nil {
		return err
	}
	defer s.Close()

	return fn(s)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

// idFlag returns the int64 flag named name, rejecting non-positive values.
func idFlag[T ~int64](cmd *cli.Command, name string) (T, error) {
	v := cmd.Int64(name)
	if v <= 0 {
		return 0, fmt.Errorf("%w: --%s must be a positive id", shared.ErrInvalidArgument, name)
	}
	return T(v), nil
}

func idsFlag[T ~int64](cmd *cli.Command, name string) ([]T, error) {
	raw := cmd.Int64Slice(name)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: --%s", shared.ErrMissingArgument, name)
	}
	ids := make([]T, len(raw))
	for i, v := range raw {
		if v <= 0 {
			return nil, fmt.Errorf("%w: --%s %d is not a valid id", shared.ErrInvalidArgument, name, v)
		}
		ids[i] = T(v)
	}
	return ids, nil
}

package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/notes/internal/config"
	sqliteRepo "github.com/sakif/notes/internal/repository/sqlite"
	"github.com/sakif/notes/internal/service"
)

// app is what the maintenance commands share: settings, a logger, the
// database, and the services on top of it.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	feed   *service.FeedService
	users  *service.IdentityService
}

// loadConfig reads and validates the settings for purpose.
func loadConfig(opts *RootOptions, purpose config.Purpose) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(purpose); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger logs to w (stderr for the CLI, so stdout stays clean for
// --format json). --verbose enables debug messages.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openApp loads the configuration and opens the database under DATA_PATH,
// creating the directory if needed. The caller must Close the app.
func openApp(cmd *cobra.Command, opts *RootOptions, purpose config.Purpose) (*app, error) {
	cfg, err := loadConfig(opts, purpose)
	if err != nil {
		return nil, err
	}

	logger := newLogger(opts, cmd.ErrOrStderr())

	if err := os.MkdirAll(cfg.DataPath, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sqliteRepo.New(cfg.DBPath())
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		db:     db,
		feed:   service.NewFeedService(db, logger),
		// Maintenance commands never log in, so no provider is needed.
		users: service.NewIdentityService(nil, db, logger),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

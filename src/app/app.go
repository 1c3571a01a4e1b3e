package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/elee1766/gemchat/src/config"
	"github.com/elee1766/gemchat/src/gemini"
	"github.com/elee1766/gemchat/src/history"
	"github.com/elee1766/gemchat/src/storage"
	"github.com/spf13/afero"
)

// App represents the main application with all services
type App struct {
	Generator *gemini.Generator
	Models    *gemini.ModelCache
	Session   *Session
	Archive   *storage.Archive
	Store     *storage.DB
	Logger    *slog.Logger
	Config    *config.Config
}

// Options holds what New needs besides the loaded configuration
type Options struct {
	Logger *slog.Logger

	// Fs backs the history file; nil means the OS filesystem
	Fs afero.Fs

	// Backend replaces the Gemini API client, mainly for tests
	Backend gemini.Backend
}

// New creates a new App instance with all services initialized.
// A missing API key is an error of kind gemini.KindConfig.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	genCfg := gemini.Config{
		APIKey:  cfg.API.APIKey,
		Model:   cfg.API.Model,
		BaseURL: cfg.API.BaseURL,
		Logger:  logger,
	}

	var generator *gemini.Generator
	if opts.Backend != nil {
		generator = gemini.NewGenerator(opts.Backend, genCfg)
	} else {
		var err error
		generator, err = gemini.New(ctx, genCfg)
		if err != nil {
			return nil, err
		}
	}

	a := &App{
		Generator: generator,
		Models:    gemini.NewModelCache(generator, gemini.DefaultModelCacheTTL),
		Logger:    logger,
		Config:    cfg,
	}

	store := history.NewStore(opts.Fs, cfg.History.Path)

	// the archive is best effort; the chat works without it
	var archiver Archiver
	if cfg.Archive.Enabled {
		if err := a.openArchive(ctx, store.Path()); err != nil {
			logger.Warn("archive disabled", "path", cfg.Archive.Path, "error", err)
		} else {
			archiver = a.Archive
		}
	}

	session, err := NewSession(SessionConfig{
		Store:   store,
		Replier: generator,
		Archive: archiver,
		Timeout: cfg.API.Timeout,
		Logger:  logger,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Session = session

	return a, nil
}

func (a *App) openArchive(ctx context.Context, historyPath string) error {
	db, archive, err := OpenArchive(ctx, a.Config.Archive.Path, historyPath, a.Logger)
	if err != nil {
		return err
	}
	a.Store = db
	a.Archive = archive
	return nil
}

// OpenArchive opens the sqlite archive at dbPath and resumes the session of
// the history file at historyPath. The caller closes the returned DB.
func OpenArchive(ctx context.Context, dbPath, historyPath string, logger *slog.Logger) (*storage.DB, *storage.Archive, error) {
	db, err := storage.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open archive: %w", err)
	}

	key, err := filepath.Abs(historyPath)
	if err != nil {
		key = historyPath
	}

	archive, err := storage.NewArchive(ctx, db, key, logger)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, archive, nil
}

// Close closes all resources held by the app
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

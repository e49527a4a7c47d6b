package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/MrWong99/dungeonmaster/internal/app"
	"github.com/MrWong99/dungeonmaster/internal/campaignctx"
	"github.com/MrWong99/dungeonmaster/internal/classify"
	"github.com/MrWong99/dungeonmaster/internal/config"
	"github.com/MrWong99/dungeonmaster/internal/contextfile"
	"github.com/MrWong99/dungeonmaster/internal/preferences"
	"github.com/MrWong99/dungeonmaster/internal/progression"
	"github.com/MrWong99/dungeonmaster/internal/relevance"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	envFile    string
}

// workspace is the campaign data a subcommand operates on, opened through
// the same storage layer as the server.
type workspace struct {
	cfg        *config.Config
	storage    *app.Storage
	store      *contextfile.Store
	classifier *classify.Classifier
	prefs      *preferences.Store
	assembler  *campaignctx.Assembler
	recorder   *progression.Recorder
}

// openWorkspace loads the configuration and the persisted documents. Logs go
// to stderr so stdout stays clean for exports and the stdio MCP transport.
func openWorkspace(ctx context.Context, opts *globalOptions) (*workspace, error) {
	if err := config.LoadDotEnv(opts.envFile); err != nil {
		return nil, err
	}
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file %q not found: %w", opts.configPath, err)
		}
		return nil, err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: app.LevelFor(cfg.Server.LogLevel),
	})))

	st, err := app.OpenStorage(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	store := contextfile.NewStore(st.Backend)
	store.Load(ctx)

	classifier := classify.New(cfg.Context.Vocabulary.Merge(classify.DefaultVocabulary()))
	prefs := preferences.NewStore(st.Backend)
	var selOpts []relevance.Option
	if n := cfg.Context.MaxFiles; n > 0 {
		selOpts = append(selOpts, relevance.WithLimit(n))
	}
	return &workspace{
		cfg:        cfg,
		storage:    st,
		store:      store,
		classifier: classifier,
		prefs:      prefs,
		recorder:   progression.NewRecorder(store),
		assembler: campaignctx.NewAssembler(store,
			campaignctx.WithClassifier(classifier),
			campaignctx.WithSelector(relevance.New(selOpts...)),
			campaignctx.WithPreferences(prefs),
			campaignctx.WithMaxHistory(cfg.Context.MaxHistory),
		),
	}, nil
}

// Close flushes the documents and releases the storage backend.
func (w *workspace) Close(ctx context.Context) error {
	return errors.Join(w.store.Save(ctx), w.storage.Close())
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default()
	}
	return config.Load(path)
}

// withWorkspace opens the workspace, runs fn and closes it, joining any
// close error with fn's.
func withWorkspace(ctx context.Context, opts *globalOptions, fn func(*workspace) error) (err error) {
	w, err := openWorkspace(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, w.Close(context.WithoutCancel(ctx)))
	}()
	return fn(w)
}

// Package app wires all Dungeon Master subsystems into a running service.
//
// The App struct owns the full lifecycle: New opens storage, loads the
// campaign documents and seeds, builds the narrator and its providers, Run
// serves the HTTP API, MCP endpoint, health checks and metrics, and Shutdown tears
// everything down in reverse order.
//
// For testing, inject doubles via functional options (WithBackend, WithLLM).
// When an option is not provided, New creates real implementations from the
// config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/dungeonmaster/internal/campaignctx"
	"github.com/MrWong99/dungeonmaster/internal/classify"
	"github.com/MrWong99/dungeonmaster/internal/config"
	"github.com/MrWong99/dungeonmaster/internal/contextfile"
	"github.com/MrWong99/dungeonmaster/internal/dice"
	"github.com/MrWong99/dungeonmaster/internal/health"
	"github.com/MrWong99/dungeonmaster/internal/mcp"
	"github.com/MrWong99/dungeonmaster/internal/narrator"
	"github.com/MrWong99/dungeonmaster/internal/observe"
	"github.com/MrWong99/dungeonmaster/internal/preferences"
	"github.com/MrWong99/dungeonmaster/internal/progression"
	"github.com/MrWong99/dungeonmaster/internal/relevance"
	"github.com/MrWong99/dungeonmaster/internal/session"
	"github.com/MrWong99/dungeonmaster/internal/web"
	"github.com/MrWong99/dungeonmaster/pkg/kv"
	"github.com/MrWong99/dungeonmaster/pkg/provider/llm"
)

// App owns all subsystem lifetimes.
type App struct {
	cfg     *config.Config
	version string
	reg     *config.Registry
	level   *slog.LevelVar
	metrics *observe.Metrics

	// Subsystems, initialised in New and torn down in Shutdown.
	backend    kv.Backend
	checks     []health.Checker
	store      *contextfile.Store
	classifier *classify.Classifier
	prefs      *preferences.Store
	sessions   *session.Manager
	campaigns  *session.Campaigns
	recorder   *progression.Recorder
	assembler  *campaignctx.Assembler
	llm        llm.Provider
	llmName    string
	narrator   *narrator.Narrator
	mcpServer  *mcpsdk.Server
	handler    http.Handler

	// closers are called in reverse order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New.
type Option func(*App)

// WithBackend injects a key-value backend instead of opening the configured
// one.
func WithBackend(b kv.Backend) Option {
	return func(a *App) { a.backend = b }
}

// WithLLM injects the narrator's provider, bypassing the registry and the
// fallback chain.
func WithLLM(name string, p llm.Provider) Option {
	return func(a *App) {
		a.llm = p
		a.llmName = name
	}
}

// WithRegistry replaces the built-in provider registry.
func WithRegistry(r *config.Registry) Option {
	return func(a *App) { a.reg = r }
}

// WithVersion sets the version reported by health checks and the MCP handshake.
func WithVersion(v string) Option {
	return func(a *App) { a.version = v }
}

// WithLevelVar lets [App.Reload] change the log level of the running
// process.
func WithLevelVar(lv *slog.LevelVar) Option {
	return func(a *App) { a.level = lv }
}

// WithMetrics replaces [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together.
//
// New performs all initialisation synchronously: storage connection,
// document loading, seed application, provider construction and narrator
// assembly.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg, version: "dev"}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.reg == nil {
		a.reg = config.NewRegistry()
		RegisterProviders(a.reg)
	}

	// ── 1. Storage ───────────────────────────────────────────────────────
	if err := a.initStorage(ctx); err != nil {
		return nil, fmt.Errorf("app: init storage: %w", err)
	}

	// ── 2. Documents, seeds and player data ──────────────────────────────
	if err := a.initDocuments(ctx); err != nil {
		a.closeAll()
		return nil, fmt.Errorf("app: init documents: %w", err)
	}

	// ── 3. Providers and narrator ────────────────────────────────────────
	if err := a.initNarrator(); err != nil {
		a.closeAll()
		return nil, fmt.Errorf("app: init narrator: %w", err)
	}

	// ── 4. HTTP surface ──────────────────────────────────────────────────
	if err := a.initHTTP(); err != nil {
		a.closeAll()
		return nil, fmt.Errorf("app: init http: %w", err)
	}

	slog.Info("app initialised",
		"storage", cfg.Storage.Backend,
		"documents", a.store.Len(),
		"llm", a.llmName,
		"mcp", cfg.MCP.Enabled,
	)
	return a, nil
}

func (a *App) initStorage(ctx context.Context) error {
	if a.backend != nil {
		a.checks = []health.Checker{health.Storage(a.backend)}
		return nil
	}
	st, err := OpenStorage(ctx, a.cfg.Storage)
	if err != nil {
		return err
	}
	a.backend = st.Backend
	a.checks = st.Checks
	a.closers = append(a.closers, st.Close)
	return nil
}

func (a *App) initDocuments(ctx context.Context) error {
	a.store = contextfile.NewStore(a.backend)
	a.store.Load(ctx)

	for _, path := range a.cfg.Seeds {
		seed, err := contextfile.LoadSeedFile(path)
		if err != nil {
			return err
		}
		n, err := contextfile.ApplySeed(ctx, a.store, seed)
		if err != nil {
			return err
		}
		slog.Info("seed applied", "path", path, "documents", n)
	}

	vocab := a.cfg.Context.Vocabulary.Merge(classify.DefaultVocabulary())
	a.classifier = classify.New(vocab)
	a.prefs = preferences.NewStore(a.backend)
	a.sessions = session.NewManager(a.backend, session.WithTTL(a.cfg.Session.TTL))
	a.campaigns = session.NewCampaigns(a.backend, nil)
	a.recorder = progression.NewRecorder(a.store)

	var selOpts []relevance.Option
	if n := a.cfg.Context.MaxFiles; n > 0 {
		selOpts = append(selOpts, relevance.WithLimit(n))
	}
	a.assembler = campaignctx.NewAssembler(a.store,
		campaignctx.WithClassifier(a.classifier),
		campaignctx.WithSelector(relevance.New(selOpts...)),
		campaignctx.WithPreferences(a.prefs),
		campaignctx.WithMaxHistory(a.cfg.Context.MaxHistory),
		campaignctx.WithMetrics(a.metrics),
	)
	return nil
}

func (a *App) initNarrator() error {
	if a.llm == nil {
		stack, err := BuildLLM(a.cfg, a.reg)
		if err != nil {
			return err
		}
		a.llm = stack.Provider
		a.llmName = stack.Name
		a.closers = append(a.closers, stack.Close)
		a.checks = append(a.checks, health.Breakers("llm", stack.Provider))
	}

	promptLog := a.cfg.Narrator.PromptLogSize
	if promptLog == 0 {
		promptLog = DefaultPromptLogSize
	}
	n, err := narrator.New(a.assembler, a.llm,
		narrator.WithRecorder(a.recorder),
		narrator.WithMessageLog(a.campaigns),
		narrator.WithSampling(a.cfg.Narrator.Sampling),
		narrator.WithPromptLog(narrator.NewPromptLog(promptLog)),
		narrator.WithMetrics(a.metrics),
		narrator.WithProviderName(a.llmName),
	)
	if err != nil {
		return err
	}
	a.narrator = n
	return nil
}

// DefaultPromptLogSize is used when narrator.prompt_log_size is unset.
const DefaultPromptLogSize = 50

// readHeaderTimeout bounds slow clients.
const readHeaderTimeout = 10 * time.Second

func (a *App) initHTTP() error {
	mux := http.NewServeMux()

	api, err := web.NewServer(web.Deps{
		Store:       a.store,
		Narrator:    a.narrator,
		Classifier:  a.classifier,
		Preferences: a.prefs,
		Sessions:    a.sessions,
		Campaigns:   a.campaigns,
	})
	if err != nil {
		return err
	}
	api.Register(mux)
	health.New(a.version, a.checks...).Register(mux)
	mux.Handle("GET "+a.cfg.Observability.MetricsPath, promhttp.Handler())

	if a.cfg.MCP.Enabled {
		s, err := mcp.NewServer(a.version, a.MCPDeps())
		if err != nil {
			return err
		}
		a.mcpServer = s
		mux.Handle(a.cfg.MCP.Path, mcp.Handler(s))
	}

	a.handler = observe.Middleware(a.metrics,
		observe.WithQuietPaths("/healthz", "/readyz", a.cfg.Observability.MetricsPath),
	)(mux)
	return nil
}

// ─── Accessors ───────────────────────────────────────────────────────────────

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Store returns the context-file store.
func (a *App) Store() *contextfile.Store { return a.store }

// Narrator returns the turn narrator.
func (a *App) Narrator() *narrator.Narrator { return a.narrator }

// MCPDeps returns the components the MCP tools operate on.
func (a *App) MCPDeps() mcp.Deps {
	return mcp.Deps{
		Store:      a.store,
		Assembler:  a.assembler,
		Classifier: a.classifier,
		Recorder:   a.recorder,
		Dice:       dice.NewRoller(nil),
		Metrics:    a.metrics,
		Logger:     slog.Default(),
	}
}

// ─── Run / Reload / Shutdown ─────────────────────────────────────────────────

// Run serves HTTP on cfg.Server.ListenAddr until ctx is cancelled, then
// drains in-flight requests within cfg.Server.ShutdownTimeout.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Server.ListenAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("http server listening", "addr", srv.Addr, "tls", a.cfg.Server.TLS != nil)
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = srv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: serve http: %w", err)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Reload applies the hot-reloadable parts of next and logs the rest.
func (a *App) Reload(old, next *config.Config) {
	d := config.Diff(old, next)
	if !d.Changed() {
		return
	}
	if d.LogLevelChanged && a.level != nil {
		a.level.Set(LevelFor(d.NewLogLevel))
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.SamplingChanged {
		a.narrator.SetSampling(next.Narrator.Sampling)
		slog.Info("narrator sampling changed", "sampling", a.narrator.Sampling())
	}
	if len(d.RestartRequired) > 0 {
		slog.Warn("config changes require a restart", "sections", d.RestartRequired)
	}
}

// Shutdown persists the documents and releases every subsystem. It is safe
// to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	a.stopOnce.Do(func() {
		var errs []error
		if saveErr := a.store.Save(ctx); saveErr != nil {
			errs = append(errs, fmt.Errorf("app: save documents: %w", saveErr))
		}
		errs = append(errs, a.closeAll())
		err = errors.Join(errs...)
	})
	return err
}

func (a *App) closeAll() error {
	var errs []error
	for _, c := range slices.Backward(a.closers) {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// LevelFor maps a configured level to its slog equivalent. Unknown levels
// map to info.
func LevelFor(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/JakeFAU/remotefiles/internal/config"
	collyfetcher "github.com/JakeFAU/remotefiles/internal/fetcher/colly"
	"github.com/JakeFAU/remotefiles/internal/hash/sha256"
	"github.com/JakeFAU/remotefiles/internal/logging"
	"github.com/JakeFAU/remotefiles/internal/metrics"
	"github.com/JakeFAU/remotefiles/internal/retrieval"
	"github.com/JakeFAU/remotefiles/internal/runid"
	"github.com/JakeFAU/remotefiles/internal/source"
	"github.com/JakeFAU/remotefiles/internal/storage"
	"github.com/JakeFAU/remotefiles/internal/storage/gcs"
	"github.com/JakeFAU/remotefiles/internal/storage/local"
	"github.com/JakeFAU/remotefiles/internal/token"
)

// Options are the inputs that do not come from the config file.
type Options struct {
	// ConfigPath is an explicit config file; empty searches the default locations.
	ConfigPath string
	// EnvFile is a dotenv file consulted for tokens after the process environment.
	// A missing file is not an error.
	EnvFile string
	// Stdout receives the configuration table. Defaults to os.Stdout.
	Stdout io.Writer
	// Env replaces the process environment, mostly for tests.
	Env token.Lookuper
	// Transport replaces the fetcher's HTTP transport, mostly for tests.
	Transport http.RoundTripper
	// Logger replaces the configured logger, mostly for tests.
	Logger *zap.Logger
}

// App holds all the shared, long-lived services for one run.
// It is built once at startup and handed to the command that needs it.
type App struct {
	cfg          config.Config
	logger       *zap.Logger
	runID        string
	recorder     *metrics.Recorder
	gcs          *gcs.Store
	orchestrator *retrieval.Orchestrator
}

// GetLogger returns the run-scoped logger.
func (a *App) GetLogger() *zap.Logger {
	return a.logger
}

// GetConfig returns the validated configuration.
func (a *App) GetConfig() config.Config {
	return a.cfg
}

// GetOrchestrator returns the fetch/write orchestrator.
func (a *App) GetOrchestrator() *retrieval.Orchestrator {
	return a.orchestrator
}

// GetRecorder returns the metrics recorder for this run.
func (a *App) GetRecorder() *metrics.Recorder {
	return a.recorder
}

// RunID identifies this invocation in logs.
func (a *App) RunID() string {
	return a.runID
}

// New loads configuration and wires every service. It fails fast if the
// configuration is invalid or the logger cannot be built.
func New(_ context.Context, opts Options) (*App, error) {
	dotenv, err := readEnvFile(opts.EnvFile)
	if err != nil {
		return nil, err
	}
	env := opts.Env
	if env == nil {
		env = token.OSEnv{}
	}
	env = token.Chain{env, token.MapEnv(dotenv)}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger, err = logging.New(cfg.Logging.Development, cfg.Logging.Level)
		if err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
	}
	runID, err := runid.New()
	if err != nil {
		return nil, err
	}
	logger = logger.With(zap.String("run_id", runID))
	if len(dotenv) > 0 {
		logger.Debug("loaded env file", zap.String("path", opts.EnvFile), zap.Int("vars", len(dotenv)))
	}

	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	recorder := metrics.NewRecorder()
	gcsStore := gcs.New(gcs.Config{ContentType: cfg.Storage.GCSContentType}, nil, logger.Named("gcs"))
	router := storage.NewRouter(local.New(nil, logger.Named("local")), gcsStore)
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:    cfg.HTTP.UserAgent,
		Timeout:      cfg.RequestTimeout(),
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
		Transport:    opts.Transport,
	})

	orchestrator := retrieval.New(
		fetcher,
		token.NewResolver(env, logger.Named("token")),
		source.Translate,
		router,
		sha256.New(),
		recorder,
		NewTableReporter(stdout),
		logger.Named("retrieval"),
	)

	logger.Debug("application services initialized", zap.Int("files", len(cfg.Files)))
	return &App{
		cfg:          cfg,
		logger:       logger,
		runID:        runID,
		recorder:     recorder,
		gcs:          gcsStore,
		orchestrator: orchestrator,
	}, nil
}

// Run fetches and writes every configured file.
func (a *App) Run(ctx context.Context) error {
	return a.orchestrator.Run(ctx, a.cfg.Files)
}

// Plan reports what Run would do without fetching or writing.
func (a *App) Plan() ([]retrieval.Planned, error) {
	return a.orchestrator.Plan(a.cfg.Files)
}

// Close flushes metrics, releases the storage client and syncs the logger.
func (a *App) Close() {
	if path := a.cfg.Metrics.Textfile; path != "" {
		if err := a.recorder.WriteTextfile(path); err != nil {
			a.logger.Warn("write metrics textfile failed", zap.String("path", path), zap.Error(err))
		}
	}
	if err := a.gcs.Close(); err != nil {
		a.logger.Warn("close gcs client failed", zap.Error(err))
	}
	// Sync on a terminal stderr returns EINVAL on some platforms; nothing useful to do with it.
	_ = a.logger.Sync()
}

func readEnvFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	vars, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	return vars, nil
}

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jgivc/stlcatalog/internal/adapter/cacheadapter"
	"github.com/jgivc/stlcatalog/internal/adapter/fsadapter"
	"github.com/jgivc/stlcatalog/internal/adapter/githubadapter"
	"github.com/jgivc/stlcatalog/internal/adapter/mdadapter"
	"github.com/jgivc/stlcatalog/internal/adapter/s3adapter"
	"github.com/jgivc/stlcatalog/internal/catalog"
	"github.com/jgivc/stlcatalog/internal/classifier"
	"github.com/jgivc/stlcatalog/internal/config"
	"github.com/jgivc/stlcatalog/internal/entity"
	httphandler "github.com/jgivc/stlcatalog/internal/handler/http"
	"github.com/jgivc/stlcatalog/internal/metrics"
	rcatalog "github.com/jgivc/stlcatalog/internal/repository/catalog"
	scatalog "github.com/jgivc/stlcatalog/internal/service/catalog"
	sindex "github.com/jgivc/stlcatalog/internal/service/index"
	"github.com/jgivc/stlcatalog/internal/sink/filesink"
	"github.com/jgivc/stlcatalog/internal/sink/objectsink"
	"github.com/jgivc/stlcatalog/internal/storage/index"
	"github.com/redis/go-redis/v9"
)

const (
	stopTimeout = 5 * time.Second
	readTimeout = 10 * time.Second
)

// Options override config values from the command line.
type Options struct {
	ConfigPath string
	OutputFile string
	// RequireOutput falls back to the default output file when none is configured.
	RequireOutput bool
}

type App struct {
	opts    Options
	cfg     *config.Config
	srv     *http.Server
	rdb     *redis.Client
	indexer *sindex.IndexerService
	repo    scatalog.CatalogRepository
	log     *slog.Logger
}

func New(opts Options) *App {
	return &App{
		opts: opts,
	}
}

// Init loads the config and wires the source, the indexer and its sinks.
func (a *App) Init(ctx context.Context) error {
	cfg, err := config.Load(a.opts.ConfigPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	log, err := newLogger(cfg.LogLevel, os.Stderr)
	if err != nil {
		return err
	}
	a.log = log

	source, err := a.newSource(ctx)
	if err != nil {
		return err
	}

	cls, err := classifier.New(source, &cfg.ClassifierConfig, log)
	if err != nil {
		return err
	}

	policy, err := catalog.ParseDuplicatePolicy(cfg.ClassifierConfig.DuplicatePolicy)
	if err != nil {
		return err
	}

	sinks, err := a.newSinks(ctx)
	if err != nil {
		return err
	}

	store := index.NewIndexStorage(source, cls, policy, &cfg.IndexerConfig, log)
	a.indexer = sindex.NewIndexService(store, log, sinks...)

	if a.repo == nil {
		a.repo = a.indexer
	}

	return nil
}

func newLogger(level string, w io.Writer) (*slog.Logger, error) {
	lo := &slog.HandlerOptions{}
	switch level {
	case config.LogLevelInfo:
		lo.Level = slog.LevelInfo
	case config.LogLevelWarn:
		lo.Level = slog.LevelWarn
	case config.LogLevelError:
		lo.Level = slog.LevelError
	case config.LogLevelDebug:
		lo.Level = slog.LevelDebug
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}

	return slog.New(slog.NewTextHandler(w, lo)), nil
}

func (a *App) newSource(ctx context.Context) (classifier.TreeSource, error) {
	var (
		source classifier.TreeSource
		err    error
		sc     = &a.cfg.Source
	)

	switch sc.Kind {
	case config.SourceFS:
		source, err = fsadapter.NewFSSource(&sc.FS, a.log)
	case config.SourceGitHubContents:
		source = githubadapter.NewContentsSource(sc, a.log)
	case config.SourceGitHubTree:
		source = githubadapter.NewTreeSource(sc, a.log)
	case config.SourceS3:
		source, err = s3adapter.New(ctx, &sc.S3, a.log)
	default:
		err = fmt.Errorf("unknown source kind %q", sc.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot create source: %w", err)
	}

	if sc.Cache.Enabled {
		source = cacheadapter.New(source, &sc.Cache, a.log)
	}

	return metrics.InstrumentSource(source, sc.Kind), nil
}

func (a *App) newSinks(ctx context.Context) ([]sindex.CatalogSink, error) {
	out := &a.cfg.Output
	sinks := make([]sindex.CatalogSink, 0, 4)

	file := out.File
	if a.opts.OutputFile != "" {
		file = a.opts.OutputFile
	}
	if file == "" && a.opts.RequireOutput {
		file = config.DefaultOutputFile()
	}
	if file != "" {
		sinks = append(sinks, filesink.NewFileSink(file, out.Lock, a.log))
	}

	if out.ReportFile != "" {
		reporter, err := mdadapter.NewReporter(out, a.log)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, reporter)
	}

	if out.Object.Enabled {
		objects, err := objectsink.NewObjectSink(&out.Object, a.log)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, objects)
	}

	if out.RedisURL != "" {
		opt, err := redis.ParseURL(out.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("cannot parse redis url: %w", err)
		}

		a.rdb = redis.NewClient(opt)
		if _, err := a.rdb.Ping(ctx).Result(); err != nil {
			return nil, fmt.Errorf("cannot connect to redis: %w", err)
		}

		repo, err := rcatalog.NewCatalogRepository(ctx, a.rdb, out.RedisKeyPrefix, a.log)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, repo)
		a.repo = repo
	}

	return sinks, nil
}

// Index runs one build. Cached listings younger than source.cache.ttl are
// reused; the root is always listed again.
func (a *App) Index(ctx context.Context) (*entity.ScanResult, error) {
	result, err := a.indexer.Index(ctx)

	if path := a.cfg.Output.MetricsTextfile; path != "" {
		if werr := metrics.WriteTextfile(path); werr != nil {
			a.log.Error("Cannot write metrics textfile", slog.String("path", path), slog.Any("error", werr))
		}
	}

	return result, err
}

// Start serves the HTTP API and runs the first build in the background.
func (a *App) Start() {
	mux := http.NewServeMux()

	cSrv := scatalog.NewCatalogService(a.repo, a.log)
	mux.Handle("GET /catalog/{$}", httphandler.NewCatalogHandler(cSrv, a.log))
	mux.Handle("GET /catalog/{category}/{$}", httphandler.NewCategoryHandler(cSrv, a.log))
	mux.Handle("POST /index/{$}", httphandler.NewIndexHandler(a, a.log))
	mux.Handle("GET /metrics", metrics.Handler())

	a.srv = &http.Server{
		Addr:              a.cfg.Listen,
		Handler:           metrics.Middleware(mux),
		ReadHeaderTimeout: readTimeout,
	}

	go func() {
		a.log.Info("Start listen", slog.String("addr", a.cfg.Listen))

		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("Could not serve", slog.String("listen_addr", a.cfg.Listen), slog.Any("error", err))
			os.Exit(2)
		}
	}()

	go a.Reindex()
}

// Reindex runs a build and logs its outcome.
func (a *App) Reindex() {
	if _, err := a.Index(context.Background()); err != nil {
		a.log.Error("Cannot build catalog", slog.Any("error", err))
	}
}

func (a *App) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	if a.srv != nil {
		if err := a.srv.Shutdown(ctx); err != nil {
			a.log.Error("Cannot shutdown server", slog.Any("error", err))
		}
	}

	if a.rdb != nil {
		a.rdb.Close()
	}
}

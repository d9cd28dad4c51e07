package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/Belphemur/SubtitleRipper/internal/browser"
	"github.com/Belphemur/SubtitleRipper/internal/cache"
	"github.com/Belphemur/SubtitleRipper/internal/client"
	"github.com/Belphemur/SubtitleRipper/internal/config"
	"github.com/Belphemur/SubtitleRipper/internal/downloader"
	"github.com/Belphemur/SubtitleRipper/internal/extractor"
	"github.com/Belphemur/SubtitleRipper/internal/locale"
	"github.com/Belphemur/SubtitleRipper/internal/metrics"
	"github.com/Belphemur/SubtitleRipper/internal/models"
	"github.com/Belphemur/SubtitleRipper/internal/registry"
	"github.com/Belphemur/SubtitleRipper/internal/services"
)

// App wires the collaborators of a run together.
type App struct {
	cfg      *config.Config
	logger   zerolog.Logger
	registry *registry.Registry
	launcher browser.Launcher
	gatherer prometheus.Gatherer
}

// AppOption customizes an App.
type AppOption func(*App)

// WithRegistry replaces the platform table.
func WithRegistry(r *registry.Registry) AppOption {
	return func(a *App) { a.registry = r }
}

// WithLauncher replaces the headless browser launcher.
func WithLauncher(l browser.Launcher) AppOption {
	return func(a *App) { a.launcher = l }
}

// NewApp creates an App from configuration.
func NewApp(cfg *config.Config, logger zerolog.Logger, opts ...AppOption) *App {
	a := &App{
		cfg:      cfg,
		logger:   logger,
		registry: registry.Default(),
		launcher: browser.RodLauncher{Options: browser.OptionsFromConfig(cfg), Logger: logger},
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run resolves the extractor for opts.URL and runs it to completion.
func (a *App) Run(ctx context.Context, opts *Options) error {
	cfg := a.cfg
	entry, err := a.registry.Resolve(opts.URL)
	if err != nil {
		return err
	}
	logger := a.logger.With().Str("platform", entry.Platform.String()).Logger()

	policy, err := extractor.ParsePayLimitPolicy(cfg.PayLimitPolicy)
	if err != nil {
		return err
	}

	httpClient, err := a.newClient(entry.Platform, logger)
	if err != nil {
		return err
	}
	defer httpClient.Close()

	if cfg.Metrics.Enabled {
		stop := metrics.Serve(metrics.NewHTTPServer(cfg.Metrics.Address, cfg.Metrics.Port), logger)
		defer stop()
	}
	if cfg.Metrics.PushURL != "" {
		defer a.pushMetrics(entry.Platform, logger)
	}

	deps := extractor.Deps{
		Client:     httpClient,
		Browser:    a.launcher,
		Downloader: downloader.New(httpClient, downloader.Options{Workers: cfg.Download.Workers}, logger),
		Converter:  services.NewSubtitleConverter(logger),
		Archiver:   services.NewZipArchiver(logger),
		Config:     cfg,
		Logger:     logger,
	}
	ex, err := a.registry.Build(opts.URL, deps)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DownloadPath, 0o755); err != nil {
		return fmt.Errorf("create download path: %w", err)
	}

	rc := &extractor.Context{
		URL:          opts.URL,
		Languages:    models.ParseLanguageList(cfg.Language),
		Seasons:      opts.Seasons,
		Episodes:     opts.Episodes,
		LastEpisode:  opts.LastEpisode,
		DownloadRoot: cfg.DownloadPath,
		OutputDir:    cfg.Output,
		PayLimit:     policy,
		Printer:      locale.NewPrinter(cfg.Locale),
	}

	logger.Info().
		Str("url", opts.URL).
		Str("languages", rc.Languages.String()).
		Str("download_path", rc.DownloadRoot).
		Msg("Starting extraction")
	return ex.Run(ctx, rc)
}

// newClient builds the HTTP client with the response cache and the platform's cookies.
func (a *App) newClient(platform models.Platform, logger zerolog.Logger) (*client.Client, error) {
	opts := []client.Option{client.WithLogger(logger.With().Str("component", "http_client").Logger())}

	responseCache, err := cache.FromConfig(a.cfg, logger)
	if err != nil {
		logger.Warn().Err(err).Str("provider", a.cfg.Cache.Provider).Msg("Response cache disabled")
	} else if responseCache != nil {
		opts = append(opts, client.WithCache(responseCache))
	}

	if path := a.cfg.CookieFile(platform.String()); path != "" {
		jar, err := client.LoadCookies(path)
		if err != nil {
			if responseCache != nil {
				_ = responseCache.Close()
			}
			return nil, fmt.Errorf("load cookies for %s: %w", platform, err)
		}
		logger.Debug().Str("file", path).Msg("Cookies loaded")
		opts = append(opts, client.WithCookies(jar))
	}

	return client.New(a.cfg, opts...), nil
}

func (a *App) pushMetrics(platform models.Platform, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metrics.Push(ctx, a.cfg.Metrics.PushURL, platform.String(), a.gatherer); err != nil {
		logger.Warn().Err(err).Msg("Failed to push metrics")
		return
	}
	logger.Debug().Str("url", a.cfg.Metrics.PushURL).Msg("Metrics pushed")
}

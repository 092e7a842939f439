package app

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/clock"
	"go.uber.org/zap"

	"github.com/five82/appdeck/internal/config"
	"github.com/five82/appdeck/internal/lifecycle"
	"github.com/five82/appdeck/internal/logging"
	"github.com/five82/appdeck/internal/manager"
	"github.com/five82/appdeck/internal/prefs"
	"github.com/five82/appdeck/internal/state"
	"github.com/five82/appdeck/internal/ui"
)

// Options configure the appdeck application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/appdeck/prefs.toml
	// PollInterval overrides the configured completion poll interval when
	// positive.
	PollInterval time.Duration
}

// Services are the long-lived components Run wires together. Tests build
// them directly with Wire.
type Services struct {
	Config      config.Config
	Logger      *zap.Logger
	Client      *manager.Client
	Catalog     *state.Catalog
	Tracker     *state.Tracker
	Coordinator *lifecycle.Coordinator
}

// Wire builds the client, catalog, tracker and coordinator from cfg.
func Wire(cfg config.Config, logger *zap.Logger, clk clock.Clock) (*Services, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.WallClock
	}

	client, err := manager.NewClient(cfg.APIURL,
		manager.WithToken(cfg.Token),
		manager.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("init api client: %w", err)
	}

	catalog := state.NewCatalog(client,
		state.WithClock(clk),
		state.WithLogger(logger.Named("catalog")),
	)
	tracker := &state.Tracker{}
	coord := lifecycle.New(catalog, tracker, client, lifecycle.Options{
		PollInterval: cfg.PollInterval,
		MaxAttempts:  cfg.MaxAttempts,
		PollTimeout:  cfg.PollTimeout,
		Clock:        clk,
		Logger:       logger.Named("lifecycle"),
	})

	return &Services{
		Config:      cfg,
		Logger:      logger,
		Client:      client,
		Catalog:     catalog,
		Tracker:     tracker,
		Coordinator: coord,
	}, nil
}

// Run boots the appdeck console until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.PollInterval > 0 {
		cfg.PollInterval = opts.PollInterval
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.LogLevel,
		OutputPaths: []string{cfg.LogFile},
	})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		logger.Warn("preferences unreadable; using defaults", zap.Error(err))
	}

	svc, err := Wire(cfg, logger, clock.WallClock)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Coordinator.Close() }()

	logger.Info("appdeck starting",
		zap.String("api", svc.Client.BaseURL()),
		zap.Duration("poll_interval", cfg.PollInterval),
		zap.Duration("refresh_interval", cfg.RefreshInterval))

	ctx, cancel := context.WithCancel(ctx)
	refresherDone := StartRefresher(ctx, svc.Catalog, clock.WallClock, cfg.RefreshInterval, logger.Named("refresh"))
	defer func() {
		cancel()
		<-refresherDone
	}()

	return ui.Run(ui.Options{
		Context:   ctx,
		Catalog:   svc.Catalog,
		Tracker:   svc.Tracker,
		Operator:  svc.Coordinator,
		Logger:    logger.Named("ui"),
		APIURL:    svc.Client.BaseURL(),
		LogPath:   cfg.LogFile,
		ThemeName: userPrefs.Theme,
		Tab:       userPrefs.Tab,
		PrefsPath: opts.PrefsPath,
	})
}

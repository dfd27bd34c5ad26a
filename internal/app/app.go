package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/five82/dronewatch/internal/config"
	"github.com/five82/dronewatch/internal/droneapi"
	"github.com/five82/dronewatch/internal/logging"
	"github.com/five82/dronewatch/internal/metrics"
	"github.com/five82/dronewatch/internal/repository"
	"github.com/five82/dronewatch/internal/scheduler"
	"github.com/five82/dronewatch/internal/state"
	"github.com/five82/dronewatch/internal/ui"
)

// Options configure the dronewatch application.
type Options struct {
	ConfigPath string
	LogFile    string // overrides log_file from the config
	Debug      bool
	// LogToFile sends logs to the configured file instead of stderr. The
	// terminal view needs this.
	LogToFile bool
	// RefreshEvery overrides refresh_interval when positive.
	RefreshEvery time.Duration
}

// Services is the wired dependency graph shared by every command.
type Services struct {
	Config  config.Config
	Logger  *zap.Logger
	Metrics *metrics.Collector
	Client  *droneapi.Client
	Repo    *repository.Repository

	closeLog func()
}

// Setup loads configuration and builds the logger, metrics, API client and
// repository.
func Setup(opts Options) (*Services, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.RefreshEvery > 0 {
		cfg.RefreshInterval = opts.RefreshEvery
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.RequireToken(); err != nil {
		return nil, err
	}

	logOpts := logging.Options{Debug: opts.Debug}
	if opts.LogFile != "" {
		logOpts.Path = opts.LogFile
	} else if opts.LogToFile {
		logOpts.Path = cfg.LogFile
	}
	logger, closeLog, err := logging.New(logOpts)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	collector := metrics.NewCollector()
	client, err := droneapi.NewClient(droneapi.Options{
		BaseURL:     cfg.BaseURL,
		Token:       cfg.Token,
		Timeout:     cfg.Timeout,
		MaxAttempts: cfg.MaxRetries,
		RetryDelay:  cfg.RetryDelay,
		Logger:      logger,
		Metrics:     collector,
	})
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("init api client: %w", err)
	}

	return &Services{
		Config:   cfg,
		Logger:   logger,
		Metrics:  collector,
		Client:   client,
		Repo:     repository.New(client, logger, collector),
		closeLog: closeLog,
	}, nil
}

// Close flushes the logger.
func (s *Services) Close() {
	if s != nil && s.closeLog != nil {
		s.closeLog()
	}
}

// Run boots the terminal view until the user quits or the context is
// cancelled.
func Run(ctx context.Context, opts Options) error {
	opts.LogToFile = true
	svc, err := Setup(opts)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	store := &state.Store{}
	if svc.Config.MetricsAddr != "" {
		router := newStatusRouter(svc.Metrics.Handler(), store, svc.Logger)
		go serveStatus(ctx, svc.Config.MetricsAddr, router, svc.Logger)
	}

	refresher := NewRefresher(svc.Repo, store, svc.Config.PageLimit, svc.Logger)
	sched := scheduler.New(svc.Logger, svc.Metrics)
	control := &refreshControl{
		ctx:    ctx,
		sched:  sched,
		task:   refresher.Refresh,
		period: svc.Config.RefreshInterval,
	}
	if err := control.Resume(); err != nil {
		return fmt.Errorf("start refresh: %w", err)
	}
	defer func() {
		sched.Stop()
		sched.Wait()
	}()

	svc.Logger.Info("dronewatch started",
		zap.String("base_url", svc.Client.BaseURL()),
		zap.Duration("refresh_interval", svc.Config.RefreshInterval))

	return ui.Run(ui.Options{
		Context:  ctx,
		Store:    store,
		Refresh:  control,
		PollTick: time.Second,
		BaseURL:  svc.Client.BaseURL(),
	})
}

// refreshControl adapts the scheduler to the view's pause/resume control.
type refreshControl struct {
	ctx    context.Context
	sched  *scheduler.Scheduler
	task   scheduler.Task
	period time.Duration
}

func (c *refreshControl) Pause() { c.sched.Stop() }

func (c *refreshControl) Resume() error {
	return c.sched.Start(c.ctx, c.task, 0, c.period)
}

func (c *refreshControl) Running() bool { return c.sched.IsRunning() }

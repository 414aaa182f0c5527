package daemon

import (
	"context"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/buildveto/internal/config"
	"git.home.luguber.info/inful/buildveto/internal/eventstore"
	"git.home.luguber.info/inful/buildveto/internal/foundation/errors"
	"git.home.luguber.info/inful/buildveto/internal/logfields"
	"git.home.luguber.info/inful/buildveto/internal/metrics"
	"git.home.luguber.info/inful/buildveto/internal/notify"
	"git.home.luguber.info/inful/buildveto/internal/sources"
	"git.home.luguber.info/inful/buildveto/internal/version"
)

// Status represents the current state of the daemon
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
	StatusError    Status = "error"
)

// DatabaseFile is the evaluation history file inside the data directory.
const DatabaseFile = "buildveto.db"

// Options carries optional collaborators. Nil fields are created from the
// configuration.
type Options struct {
	// ConfigPath enables hot reload when set.
	ConfigPath string
	Store      eventstore.Store
	Publisher  notify.Publisher
	Registry   *sources.Registry
	Logger     *slog.Logger
	Clock      func() time.Time
	// DisableHTTP skips the health and metrics listener.
	DisableHTTP bool
}

type scheduledProject struct {
	jobID  string
	runner *Runner
}

// Daemon evaluates every configured project on its interval.
type Daemon struct {
	config     *config.Config
	configPath string
	status     atomic.Value // Status
	startTime  time.Time
	mu         sync.RWMutex

	registry     *sources.Registry
	store        eventstore.Store
	projection   *eventstore.StatusProjection
	promRegistry *prom.Registry
	recorder     metrics.Recorder
	publisher    notify.Publisher
	scheduler    *Scheduler
	watcher      *ConfigWatcher
	httpServer   *HTTPServer

	projects map[string]*scheduledProject
	runCtx   context.Context
	logger   *slog.Logger
	clock    func() time.Time
}

// NewDaemon wires a daemon for cfg. It opens the evaluation store and, when
// configured, the NATS connection.
func NewDaemon(cfg *config.Config, opts Options) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.ConfigError("configuration required").Build()
	}
	d := &Daemon{
		config:     cfg,
		configPath: opts.ConfigPath,
		registry:   opts.Registry,
		store:      opts.Store,
		publisher:  opts.Publisher,
		logger:     opts.Logger,
		clock:      opts.Clock,
		projects:   map[string]*scheduledProject{},
		runCtx:     context.Background(),
	}
	d.status.Store(StatusStopped)
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.clock == nil {
		d.clock = time.Now
	}
	if d.registry == nil {
		d.registry = sources.DefaultRegistry(d.logger)
	}

	if d.store == nil {
		if err := os.MkdirAll(cfg.Daemon.DataDir, 0o755); err != nil {
			return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to create data directory").
				WithContext("path", cfg.Daemon.DataDir).Build()
		}
		store, err := eventstore.NewSQLiteStore(filepath.Join(cfg.Daemon.DataDir, DatabaseFile))
		if err != nil {
			return nil, err
		}
		d.store = store
	}
	d.projection = eventstore.NewStatusProjection(d.store)

	d.promRegistry = prom.NewRegistry()
	d.recorder = metrics.NewPrometheusRecorder(d.promRegistry)

	if d.publisher == nil {
		d.publisher = notify.NoopPublisher{}
		if cfg.Notify.Enabled() {
			pub, err := notify.Connect(cfg.Notify, d.logger)
			if err != nil {
				_ = d.store.Close()
				return nil, err
			}
			d.publisher = pub
		}
	}

	sched, err := NewScheduler(d.logger)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryDaemon, "failed to create scheduler").Build()
	}
	d.scheduler = sched

	if !opts.DisableHTTP {
		d.httpServer = NewHTTPServer(d)
	}
	if d.configPath != "" {
		d.watcher, err = NewConfigWatcher(d.configPath, d)
		if err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Start schedules every project and serves HTTP. It returns once the daemon
// is running; Stop shuts it down.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.GetStatus() != StatusStopped {
		return errors.DaemonError("daemon is not in stopped state").
			WithContext("status", string(d.GetStatus())).Build()
	}
	d.status.Store(StatusStarting)
	d.startTime = d.clock()
	d.runCtx = ctx
	d.logger.Info("Starting buildveto daemon", slog.String("version", version.Version))

	if err := d.projection.Rebuild(ctx); err != nil {
		d.logger.Warn("Failed to load evaluation history", logfields.Error(err))
	}

	runners, err := d.buildRunners(d.config, d.startTime)
	if err != nil {
		d.status.Store(StatusError)
		return err
	}
	scheduled, err := d.scheduleLocked(ctx, d.config, runners)
	if err != nil {
		d.unscheduleLocked(scheduled)
		d.status.Store(StatusError)
		return err
	}
	d.projects = scheduled

	if d.httpServer != nil {
		if err := d.httpServer.Start(ctx, d.config.Daemon.HTTPAddr); err != nil {
			d.status.Store(StatusError)
			return err
		}
	}

	d.scheduler.Start()

	if d.watcher != nil {
		if err := d.watcher.Start(ctx); err != nil {
			d.logger.Error("Failed to start config watcher", logfields.Error(err))
		}
	}

	d.status.Store(StatusRunning)
	d.logger.Info("buildveto daemon started",
		logfields.Count(len(runners)),
		slog.String("http_addr", d.config.Daemon.HTTPAddr),
		logfields.Path(d.config.Daemon.DataDir))
	return nil
}

// Run starts the daemon and blocks until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return d.Stop(stopCtx)
}

// Stop gracefully shuts down the daemon
func (d *Daemon) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	currentStatus := d.GetStatus()
	if currentStatus == StatusStopped || currentStatus == StatusStopping {
		return nil
	}
	d.status.Store(StatusStopping)
	d.logger.Info("Stopping buildveto daemon")

	if d.watcher != nil {
		if err := d.watcher.Stop(ctx); err != nil {
			d.logger.Error("Failed to stop config watcher", logfields.Error(err))
		}
	}
	if err := d.scheduler.Stop(ctx); err != nil {
		d.logger.Error("Failed to stop scheduler", logfields.Error(err))
	}
	if d.httpServer != nil {
		if err := d.httpServer.Stop(ctx); err != nil {
			d.logger.Error("Failed to stop HTTP server", logfields.Error(err))
		}
	}
	if err := d.publisher.Close(); err != nil {
		d.logger.Error("Failed to close notification publisher", logfields.Error(err))
	}
	if err := d.store.Close(); err != nil {
		d.logger.Error("Failed to close event store", logfields.Error(err))
	}

	d.status.Store(StatusStopped)
	d.logger.Info("buildveto daemon stopped", slog.Duration("uptime", d.clock().Sub(d.startTime)))
	return nil
}

// GetStatus returns the current daemon status
func (d *Daemon) GetStatus() Status {
	status, ok := d.status.Load().(Status)
	if !ok {
		return StatusError
	}
	return status
}

// GetStartTime returns when the daemon was started.
func (d *Daemon) GetStartTime() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.startTime
}

// GetConfig returns the active configuration.
func (d *Daemon) GetConfig() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config
}

// Projects lists the scheduled project names.
func (d *Daemon) Projects() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Sorted(maps.Keys(d.projects))
}

// Evaluate runs one evaluation of the named project outside its schedule.
func (d *Daemon) Evaluate(ctx context.Context, project string) (eventstore.Evaluation, error) {
	d.mu.RLock()
	sp, ok := d.projects[project]
	d.mu.RUnlock()
	if !ok {
		return eventstore.Evaluation{}, errors.NewError(errors.CategoryNotFound, "unknown project").
			WithContext("project", project).Build()
	}
	return sp.runner.RunOnce(ctx)
}

// ReloadConfig swaps in newConfig. Every project's provider tree is built and
// validated, and every new job scheduled, before any old job is removed; on
// any failure the running configuration is kept.
func (d *Daemon) ReloadConfig(ctx context.Context, newConfig *config.Config) error {
	runners, err := d.buildRunners(newConfig, d.GetStartTime())
	if err != nil {
		d.recorder.IncConfigReload(false)
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for name, r := range runners {
		if old, ok := d.projects[name]; ok {
			r.inherit(old.runner)
		}
	}
	scheduled, err := d.scheduleLocked(d.runCtx, newConfig, runners)
	if err != nil {
		d.unscheduleLocked(scheduled)
		d.recorder.IncConfigReload(false)
		return err
	}

	d.unscheduleLocked(d.projects)
	for name := range d.projects {
		if _, kept := runners[name]; !kept {
			d.projection.Forget(name)
		}
	}
	d.projects = scheduled
	d.config = newConfig
	d.recorder.IncConfigReload(true)
	d.logger.Info("Configuration reloaded", logfields.Count(len(runners)))
	return nil
}

func (d *Daemon) buildRunners(cfg *config.Config, startedAt time.Time) (map[string]*Runner, error) {
	deps := RunnerDeps{
		Store:      d.store,
		Projection: d.projection,
		Recorder:   d.recorder,
		Publisher:  d.publisher,
		Logger:     d.logger,
		Clock:      d.clock,
		StartedAt:  startedAt,
	}
	runners := make(map[string]*Runner, len(cfg.Projects))
	for i := range cfg.Projects {
		p := &cfg.Projects[i]
		provider, err := d.registry.Build(p.SourceControl)
		if err == nil {
			err = provider.Validate()
		}
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryConfig, "invalid project").
				Fatal().WithContext("project", p.Name).Build()
		}
		runners[p.Name] = NewRunner(p.Name, provider, deps)
	}
	return runners, nil
}

// scheduleLocked creates one job per runner and returns what it scheduled,
// including the jobs created before a failure.
func (d *Daemon) scheduleLocked(ctx context.Context, cfg *config.Config, runners map[string]*Runner) (map[string]*scheduledProject, error) {
	scheduled := make(map[string]*scheduledProject, len(runners))
	for name, runner := range runners {
		interval := cfg.Daemon.Interval
		if p, ok := cfg.Project(name); ok {
			interval = cfg.EffectiveInterval(p)
		}
		id, err := d.scheduler.ScheduleEvery(name, interval, d.task(ctx, runner))
		if err != nil {
			return scheduled, errors.WrapError(err, errors.CategoryDaemon, "failed to schedule project").
				WithContext("project", name).Build()
		}
		scheduled[name] = &scheduledProject{jobID: id, runner: runner}
	}
	return scheduled, nil
}

func (d *Daemon) unscheduleLocked(projects map[string]*scheduledProject) {
	for name, sp := range projects {
		if err := d.scheduler.Remove(sp.jobID); err != nil {
			d.logger.Warn("Failed to unschedule project", logfields.Project(name), logfields.Error(err))
		}
	}
}

// task adapts a runner to a scheduler job. Failures are logged by the runner.
// The job must not take d.mu: Stop holds it while waiting for running jobs.
func (d *Daemon) task(ctx context.Context, r *Runner) func() {
	return func() {
		if _, err := r.RunOnce(ctx); err != nil {
			d.logger.Debug("Scheduled evaluation failed", logfields.Project(r.Project()), logfields.Error(err))
		}
	}
}

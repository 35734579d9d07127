// Package daemon assembles the plugin: it wires the host connection, the
// button registry, the reconciliation loop, the toggle handler and the
// optional status API, and runs them until the host goes away.
package daemon

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/grovetools/deckclock/config"
	"github.com/grovetools/deckclock/internal/daemon/engine"
	"github.com/grovetools/deckclock/internal/daemon/pidfile"
	"github.com/grovetools/deckclock/internal/daemon/plugin"
	"github.com/grovetools/deckclock/internal/daemon/registry"
	"github.com/grovetools/deckclock/internal/daemon/server"
	"github.com/grovetools/deckclock/internal/daemon/toggle"
	"github.com/grovetools/deckclock/internal/daemon/watcher"
	"github.com/grovetools/deckclock/logging"
	"github.com/grovetools/deckclock/pkg/paths"
	"github.com/grovetools/deckclock/pkg/prompt"
	"github.com/grovetools/deckclock/pkg/streamdeck"
	"github.com/grovetools/deckclock/util/pathutil"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 2 * time.Second

// Host is the connection to the Stream Deck application.
type Host interface {
	engine.Notifier
	streamdeck.InspectorSender
	LogMessage(message string) error
	Run(ctx context.Context, handle func(streamdeck.Event)) error
	Close() error
}

// policySetter is implemented by trackers whose request policy can change
// at runtime.
type policySetter interface {
	SetPolicy(cfg config.APIConfig)
}

// Options controls the parts of the daemon that are not in the config file.
type Options struct {
	// ConfigPath is the file passed with --config; empty means the default
	// search location.
	ConfigPath string
	// ForwardLogs sends warnings and errors to the host's log.
	ForwardLogs bool
	// WatchConfig reloads the configuration when its file changes.
	WatchConfig bool
	// SocketPath and PIDPath override the status API locations.
	SocketPath string
	PIDPath    string
}

// Daemon is one running plugin instance.
type Daemon struct {
	opts    Options
	logger  *logrus.Entry
	host    Host
	tracker engine.TimeTracker

	registry  *registry.Registry
	engine    *engine.Engine
	toggle    *toggle.Handler
	inspector *streamdeck.InspectorPrompter
	plugin    *plugin.Plugin

	mu  sync.RWMutex
	cfg *config.Config
}

// New wires a daemon around host and tracker using cfg.
func New(cfg *config.Config, host Host, tracker engine.TimeTracker, opts Options) *Daemon {
	if cfg == nil {
		cfg = config.Default()
	}
	d := &Daemon{
		opts:     opts,
		logger:   logging.NewLogger("daemon"),
		host:     host,
		tracker:  tracker,
		registry: registry.New(),
		cfg:      cfg,
	}

	d.engine = engine.New(d.registry, tracker, host, engine.Options{
		Interval:             cfg.Polling.Interval,
		MaxConcurrentFetches: cfg.Polling.MaxConcurrentFetches,
	}, logging.NewLogger("engine"))

	d.inspector = streamdeck.NewInspectorPrompter(host)
	d.toggle = toggle.New(tracker, host, d.engine, d.selectPrompter(cfg.Prompt),
		toggle.PolicyFromConfig(cfg.Prompt), logging.NewLogger("toggle"))

	d.plugin = plugin.New(d.registry, d.engine, d.toggle, host, d.inspector, logging.NewLogger("plugin"))
	return d
}

// Registry exposes the button registry.
func (d *Daemon) Registry() *registry.Registry { return d.registry }

// Engine exposes the reconciliation loop.
func (d *Daemon) Engine() *engine.Engine { return d.engine }

// Config returns the configuration currently in effect.
func (d *Daemon) Config() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

// ApplyConfig pushes a new configuration into the running components.
// The status section only takes effect on the next start.
func (d *Daemon) ApplyConfig(cfg *config.Config) {
	d.mu.Lock()
	d.cfg = cfg
	d.mu.Unlock()

	d.engine.SetInterval(cfg.Polling.Interval)
	d.engine.SetMaxConcurrentFetches(cfg.Polling.MaxConcurrentFetches)
	d.toggle.SetPolicy(toggle.PolicyFromConfig(cfg.Prompt))
	d.toggle.SetPrompter(d.selectPrompter(cfg.Prompt))
	if ps, ok := d.tracker.(policySetter); ok {
		ps.SetPolicy(cfg.API)
	}
	if err := logging.ConfigureFrom(cfg); err != nil {
		d.logger.WithError(err).Warn("Invalid logging section, keeping previous logging setup")
	}

	d.logger.WithFields(logrus.Fields{
		"interval":    cfg.Polling.Interval,
		"max_fetches": cfg.Polling.MaxConcurrentFetches,
		"prompt_mode": cfg.Prompt.Mode,
	}).Info("Configuration applied")
}

// Reload re-reads the configuration file and applies it. A file that fails
// to load leaves the running configuration untouched.
func (d *Daemon) Reload() error {
	cfg, err := config.LoadOrDefault(d.opts.ConfigPath)
	if err != nil {
		d.logger.WithError(err).Warn("Configuration reload failed, keeping previous configuration")
		return err
	}
	d.ApplyConfig(cfg)
	return nil
}

func (d *Daemon) selectPrompter(cfg config.PromptConfig) toggle.Prompter {
	if cfg.Mode == config.PromptModeCommand && len(cfg.Command) > 0 {
		return prompt.NewCommandPrompter(cfg.Command)
	}
	return d.inspector
}

func (d *Daemon) socketPath() string {
	if d.opts.SocketPath != "" {
		return d.opts.SocketPath
	}
	if p := d.Config().Status.SocketPath; p != "" {
		return pathutil.MustExpand(p)
	}
	return paths.SocketPath()
}

func (d *Daemon) pidPath() string {
	if d.opts.PIDPath != "" {
		return d.opts.PIDPath
	}
	return paths.PIDFile()
}

// Run processes host events until the host closes the connection or ctx is
// cancelled. A normal close returns nil.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if d.opts.ForwardLogs {
		hook := logging.NewHostHook(d.host)
		logging.AddHook(hook)
		defer logging.RemoveHook(hook)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// Losing the host ends the plugin.
		defer cancel()
		return d.host.Run(gctx, func(ev streamdeck.Event) {
			d.plugin.Handle(gctx, ev)
		})
	})

	g.Go(func() error {
		return d.engine.Run(gctx)
	})

	if d.opts.WatchConfig {
		if w := d.newWatcher(); w != nil {
			g.Go(func() error { return w.Run(gctx) })
		}
	}

	if d.Config().Status.Enabled {
		d.startStatusServer(gctx, g)
	}

	err := g.Wait()
	d.plugin.Wait()
	if cerr := d.host.Close(); cerr != nil {
		d.logger.WithError(cerr).Debug("Host close")
	}
	d.logger.Info("Plugin stopped")
	return err
}

func (d *Daemon) newWatcher() *watcher.Watcher {
	dir := paths.ConfigDir()
	var patterns []string
	if d.opts.ConfigPath != "" {
		dir = filepath.Dir(d.opts.ConfigPath)
		patterns = []string{filepath.Base(d.opts.ConfigPath)}
	}

	w, err := watcher.New(dir, patterns, 0, func(path string) {
		d.logger.WithField("path", path).Info("Configuration changed, reloading")
		_ = d.Reload()
	})
	if err != nil {
		d.logger.WithError(err).Warn("Configuration watcher disabled")
		return nil
	}
	return w
}

func (d *Daemon) startStatusServer(ctx context.Context, g *errgroup.Group) {
	pidPath := d.pidPath()
	if err := pidfile.Acquire(pidPath); err != nil {
		d.logger.WithError(err).Warn("Status API disabled for this instance")
		return
	}

	srv := server.New(d.registry, d.engine, logging.NewLogger("server"))
	socket := d.socketPath()

	g.Go(func() error {
		if err := srv.ListenAndServe(socket); err != nil {
			// The status API is optional; the plugin keeps running.
			d.logger.WithError(err).Warn("Status API stopped")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			d.logger.WithError(err).Debug("Status API shutdown")
		}
		if err := pidfile.Release(pidPath); err != nil {
			d.logger.WithError(err).Debug("Release pid file")
		}
		return nil
	})
}

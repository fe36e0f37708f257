package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/fleetd/internal/heartbeat"
	"github.com/nerrad567/fleetd/internal/proxy"
)

// Logger defines the logging interface used by the Aggregator.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

const (
	defaultBootstrapTimeout = 10 * time.Second
	defaultRefreshInterval  = 60 * time.Second
	defaultPollInterval     = 5 * time.Second

	// commandQueueCap bounds the front-end command FIFO.
	commandQueueCap = 256

	// pollCallTimeout bounds one pull query inside a poll loop.
	pollCallTimeout = 10 * time.Second
)

// Config holds the aggregator's timing knobs and seed state.
type Config struct {
	// BootstrapTimeout bounds each data command's correlated wait during
	// the startup pass.
	BootstrapTimeout time.Duration

	// RefreshInterval is the cadence of the periodic command refresh that
	// re-issues push data commands to re-sync drifted state.
	RefreshInterval time.Duration

	// PollInterval is the default cadence of pull-binding poll loops.
	PollInterval time.Duration

	// PollIntervals overrides the poll cadence per status name.
	PollIntervals map[string]time.Duration

	// Internal seeds the internal state partition.
	Internal map[string]any
}

// CommandHandler executes one front-end command. Invoked from the single
// command consumer goroutine, strictly in submission order. The context is
// cancelled when the aggregator stops.
type CommandHandler func(ctx context.Context, name string, data map[string]any)

// Command is one queued front-end command.
type Command struct {
	Name string
	Data map[string]any
}

// Aggregator merges all component state, namespace liveness, and local
// control state into one snapshot, and owns every mutation of it.
type Aggregator struct {
	manager  *proxy.Manager
	cfg      Config
	handler  CommandHandler
	logger   Logger
	bindings []proxy.DataCommand

	mu          sync.Mutex
	external    map[string]any
	internal    map[string]any
	snapshot    map[string]any
	subscribers map[string]chan map[string]any
	hints       map[string]chan struct{}
	watchIDs    map[string][]string // component key -> watch ids
	running     bool

	commands chan Command
	stop     chan struct{}
	runCtx   context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// Option configures an Aggregator during construction.
type Option func(*Aggregator)

// WithLogger sets the aggregator's logger.
func WithLogger(logger Logger) Option {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// WithCommandHandler sets the executor for queued front-end commands.
func WithCommandHandler(handler CommandHandler) Option {
	return func(a *Aggregator) {
		a.handler = handler
	}
}

// New creates an aggregator over the fleet's device proxies.
func New(manager *proxy.Manager, cfg Config, opts ...Option) *Aggregator {
	if cfg.BootstrapTimeout <= 0 {
		cfg.BootstrapTimeout = defaultBootstrapTimeout
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = defaultRefreshInterval
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}

	a := &Aggregator{
		manager:     manager,
		cfg:         cfg,
		logger:      noopLogger{},
		bindings:    manager.AllDataCommands(),
		external:    make(map[string]any),
		internal:    make(map[string]any),
		snapshot:    make(map[string]any),
		subscribers: make(map[string]chan map[string]any),
		hints:       make(map[string]chan struct{}),
		watchIDs:    make(map[string][]string),
		commands:    make(chan Command, commandQueueCap),
	}
	for _, opt := range opts {
		opt(a)
	}

	if len(cfg.Internal) > 0 {
		a.mu.Lock()
		for k, v := range cfg.Internal {
			a.internal[k] = v
		}
		a.rebuildAndPublishLocked()
		a.mu.Unlock()
	}
	return a
}

// Bootstrap issues every declared data command and waits for its correlated
// status under the bootstrap timeout. Bindings run concurrently and fail
// independently; a timed-out or failed binding stores an explicit nil so the
// path exists from the first snapshot on.
func (a *Aggregator) Bootstrap(ctx context.Context) {
	start := time.Now()
	var wg sync.WaitGroup

	for _, dc := range a.bindings {
		wg.Add(1)
		go func(dc proxy.DataCommand) {
			defer wg.Done()

			comp, err := a.component(dc)
			if err != nil {
				a.logger.Warn("bootstrap binding skipped", "path", dc.Path, "error", err)
				a.setExternal(dc.Path, nil)
				return
			}

			value, err := comp.ExecuteAndWait(ctx, dc.Command, dc.Status, a.cfg.BootstrapTimeout, nil)
			if err != nil {
				a.logger.Warn("bootstrap binding failed", "path", dc.Path, "error", err)
				value = nil
			}
			if value == nil {
				a.logger.Debug("bootstrap value unavailable, storing explicit nil", "path", dc.Path)
			}
			a.setExternal(dc.Path, value)
		}(dc)
	}

	wg.Wait()
	a.logger.Info("bootstrap refresh complete",
		"bindings", len(a.bindings),
		"elapsed", time.Since(start),
	)
}

// Start enters steady state: continuous watches for push bindings, poll
// loops for pull bindings, the periodic command refresh, and the command
// consumer. Call after Bootstrap.
func (a *Aggregator) Start() error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return ErrAlreadyRunning
	}
	a.running = true
	a.stop = make(chan struct{})
	a.runCtx, a.cancel = context.WithCancel(context.Background())
	a.mu.Unlock()

	watches, polls := 0, 0
	for _, dc := range a.bindings {
		comp, err := a.component(dc)
		if err != nil {
			a.logger.Warn("binding skipped in steady state", "path", dc.Path, "error", err)
			continue
		}

		if dc.Push {
			if err := a.startWatch(dc, comp); err != nil {
				a.logger.Warn("continuous watch failed to start", "path", dc.Path, "error", err)
				continue
			}
			watches++
		} else {
			a.wg.Add(1)
			go a.runPollLoop(dc, comp)
			polls++
		}
	}

	a.wg.Add(2)
	go a.runPeriodicRefresh()
	go a.runCommandLoop()

	a.logger.Info("aggregator running",
		"watches", watches,
		"poll_loops", polls,
		"refresh_interval", a.cfg.RefreshInterval,
	)
	return nil
}

// Stop cancels every background loop and continuous watch and waits for
// them to exit. Call before closing the underlying transport.
func (a *Aggregator) Stop() error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return ErrNotRunning
	}
	a.running = false
	watchIDs := a.watchIDs
	a.watchIDs = make(map[string][]string)
	a.mu.Unlock()

	a.cancel()
	close(a.stop)
	a.wg.Wait()

	for key, ids := range watchIDs {
		comp := a.componentByKey(key)
		if comp == nil {
			continue
		}
		for _, id := range ids {
			if err := comp.StopContinuousWait(id); err != nil {
				a.logger.Debug("watch already gone", "component", key, "watch_id", id)
			}
		}
	}

	a.logger.Info("aggregator stopped")
	return nil
}

// startWatch attaches a continuous watch storing every update under the
// binding's path.
func (a *Aggregator) startWatch(dc proxy.DataCommand, comp *proxy.ComponentProxy) error {
	id, err := comp.WaitForContinuous(dc.Status, func(value any) {
		a.setExternal(dc.Path, value)
	}, nil)
	if err != nil {
		return err
	}

	key := dc.Device + "." + dc.Component
	a.mu.Lock()
	a.watchIDs[key] = append(a.watchIDs[key], id)
	a.mu.Unlock()
	return nil
}

// component resolves a binding to its component proxy.
func (a *Aggregator) component(dc proxy.DataCommand) (*proxy.ComponentProxy, error) {
	dev, err := a.manager.Device(dc.Device)
	if err != nil {
		return nil, fmt.Errorf("resolving binding %s: %w", dc.Path, err)
	}
	comp, err := dev.Component(dc.Component)
	if err != nil {
		return nil, fmt.Errorf("resolving binding %s: %w", dc.Path, err)
	}
	return comp, nil
}

// componentByKey resolves "device.component" to its proxy, or nil.
func (a *Aggregator) componentByKey(key string) *proxy.ComponentProxy {
	for _, dc := range a.bindings {
		if dc.Device+"."+dc.Component != key {
			continue
		}
		comp, err := a.component(dc)
		if err != nil {
			return nil
		}
		return comp
	}
	return nil
}

// RecordHeartbeat merges a namespace liveness record into the snapshot
// under "{namespace}.heartbeat_status". Satisfies heartbeat.RecordFunc.
func (a *Aggregator) RecordHeartbeat(namespace string, rec heartbeat.Record) {
	a.setExternal(namespace+".heartbeat_status", map[string]any{
		"status":    string(rec.Status),
		"timestamp": rec.Timestamp.Unix(),
		"detail":    rec.Detail,
	})
}

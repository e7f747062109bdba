// Package app is a small host framework: plugins register systems on schedules
// and share typed resources. Startup systems build resources, update systems
// run once per tick and shutdown systems release what startup acquired.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/swordforge/stylusplugin/app/logger"
)

//go:generate mockgen -destination mock_app/mock_app.go github.com/swordforge/stylusplugin/app Plugin

var log = logger.NewNamed("app")

var (
	ErrAlreadyStarted = errors.New("app already started")
	ErrNotStarted     = errors.New("app not started")
	ErrBadInterval    = errors.New("update interval must be positive")
)

// closeTimeout is how long Close may take before the goroutine dump is written.
var closeTimeout = time.Minute

type Schedule int

const (
	Startup Schedule = iota
	Update
	Shutdown
)

func (s Schedule) String() string {
	switch s {
	case Startup:
		return "startup"
	case Update:
		return "update"
	case Shutdown:
		return "shutdown"
	}
	return fmt.Sprintf("schedule(%d)", int(s))
}

// Plugin is a unit of setup logic added to the App
type Plugin interface {
	// Name must return a unique plugin name
	Name() string
	// Build is called once, when the plugin is added
	Build(a *App)
}

// System is a function run on a schedule. Resource changes queued on cmd are
// applied after the system returns without error.
type System func(ctx context.Context, a *App, cmd *Commands) error

// ResourceCloser is implemented by resources holding connections or files.
// App.Close closes them after the shutdown systems ran.
type ResourceCloser interface {
	Close(ctx context.Context) error
}

type namedSystem struct {
	name string
	fn   System
}

type StartStat struct {
	SpentMsPerSystem map[string]int64
	SpentMsTotal     int64
}

// App is the central part of the application
// It contains plugins, systems and resources
type App struct {
	mu        sync.RWMutex
	plugins   []Plugin
	systems   map[Schedule][]namedSystem
	resources *resources
	started   bool
	closed    bool
	startStat StartStat
}

func New() *App {
	return &App{
		systems:   make(map[Schedule][]namedSystem),
		resources: newResources(),
	}
}

// AddPlugin registers the plugin and calls its Build
// Adding two plugins with the same name panics
func (a *App) AddPlugin(p Plugin) *App {
	a.mu.Lock()
	for _, ep := range a.plugins {
		if ep.Name() == p.Name() {
			a.mu.Unlock()
			panic(fmt.Errorf("plugin '%s' already added", p.Name()))
		}
	}
	a.plugins = append(a.plugins, p)
	a.mu.Unlock()

	p.Build(a)
	log.Debug("plugin added", zap.String("plugin", p.Name()))
	return a
}

// Plugin returns the plugin by name or nil
func (a *App) Plugin(name string) Plugin {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, p := range a.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// PluginNames returns names of added plugins in the order they were added
func (a *App) PluginNames() (names []string) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	names = make([]string, len(a.plugins))
	for i, p := range a.plugins {
		names[i] = p.Name()
	}
	return
}

// AddSystem appends the system to the schedule
// System names are unique per schedule
func (a *App) AddSystem(s Schedule, name string, fn System) *App {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s == Startup && a.started {
		panic(fmt.Errorf("startup system '%s' added after start", name))
	}
	for _, es := range a.systems[s] {
		if es.name == name {
			panic(fmt.Errorf("%s system '%s' already added", s, name))
		}
	}
	a.systems[s] = append(a.systems[s], namedSystem{name: name, fn: fn})
	return a
}

// SystemNames returns the names of systems in the schedule in run order
func (a *App) SystemNames(s Schedule) (names []string) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, ns := range a.systems[s] {
		names = append(names, ns.name)
	}
	return
}

func (a *App) schedule(s Schedule) []namedSystem {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]namedSystem(nil), a.systems[s]...)
}

func (a *App) runSystem(ctx context.Context, ns namedSystem) error {
	cmd := &Commands{}
	if err := ns.fn(ctx, a, cmd); err != nil {
		return err
	}
	cmd.apply(a.resources)
	return nil
}

// StartStat returns time spent per startup system
func (a *App) StartStat() StartStat {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.startStat
}

// Start runs startup systems in the order they were added
// When a system fails, the app is closed and the error is returned
func (a *App) Start(ctx context.Context) (err error) {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return ErrAlreadyStarted
	}
	a.started = true
	a.startStat = StartStat{SpentMsPerSystem: make(map[string]int64)}
	a.mu.Unlock()

	for _, ns := range a.schedule(Startup) {
		start := time.Now()
		if err = a.runSystem(ctx, ns); err != nil {
			if cerr := a.Close(ctx); cerr != nil {
				log.Info("close error", zap.Error(cerr))
			}
			return fmt.Errorf("can't run startup system '%s': %w", ns.name, err)
		}
		spent := time.Since(start).Milliseconds()
		a.mu.Lock()
		a.startStat.SpentMsPerSystem[ns.name] = spent
		a.startStat.SpentMsTotal += spent
		a.mu.Unlock()
	}
	log.Debug("all startup systems done")
	return nil
}

// Update runs every update system once
func (a *App) Update(ctx context.Context) error {
	a.mu.RLock()
	started, closed := a.started, a.closed
	a.mu.RUnlock()
	if !started || closed {
		return ErrNotStarted
	}
	for _, ns := range a.schedule(Update) {
		if err := a.runSystem(ctx, ns); err != nil {
			return fmt.Errorf("update system '%s': %w", ns.name, err)
		}
	}
	return nil
}

// Run starts the app, calls Update every interval until ctx is done and closes the app.
// An update error stops the loop.
func (a *App) Run(ctx context.Context, interval time.Duration) (err error) {
	if interval <= 0 {
		return fmt.Errorf("%w: %s", ErrBadInterval, interval)
	}
	if err = a.Start(ctx); err != nil {
		return err
	}
	defer func() {
		// ctx is done at this point, closing gets its own
		if cerr := a.Close(context.Background()); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err = a.Update(ctx); err != nil {
				return err
			}
		}
	}
}

// Close runs shutdown systems in reverse order and then closes the resources
// Calling Close more than once is a no-op
func (a *App) Close(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	log.Debug("close app...")
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-done:
		case <-time.After(closeTimeout):
			log.Error("app close timeout")
			_, _ = os.Stderr.Write(stackAllGoroutines())
		}
	}()

	var errs []error
	systems := a.schedule(Shutdown)
	for i := len(systems) - 1; i >= 0; i-- {
		if err := a.runSystem(ctx, systems[i]); err != nil {
			errs = append(errs, fmt.Errorf("shutdown system '%s': %w", systems[i].name, err))
		}
	}
	errs = append(errs, a.resources.closeAll(ctx)...)
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	log.Debug("app closed")
	return nil
}

func stackAllGoroutines() []byte {
	buf := make([]byte, 1024)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) {
			return buf[:n]
		}
		buf = make([]byte, 2*len(buf))
	}
}

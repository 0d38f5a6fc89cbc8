package pricing

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/catering-configurator/internal/domain"
	"github.com/eugenenazirov/catering-configurator/internal/state"
)

const (
	// DefaultQuantum is the debounce window between the last state change and
	// the recompute it triggers.
	DefaultQuantum = 150 * time.Millisecond

	// EventUpdated fires after every recompute.
	EventUpdated = "updated"
)

// Paths inside the state document the reactor reads.
const (
	PackagePath = "package"
	ConfigPath  = "config"
)

// ReactorOption configures a Reactor.
type ReactorOption func(*Reactor)

// WithQuantum overrides DefaultQuantum.
func WithQuantum(d time.Duration) ReactorOption {
	return func(r *Reactor) {
		if d > 0 {
			r.quantum = d
		}
	}
}

// WithReactorLogger attaches a logger.
func WithReactorLogger(logger *zap.Logger) ReactorOption {
	return func(r *Reactor) {
		if logger != nil {
			r.logger = logger
		}
	}
}

type pricingListener struct {
	id int
	fn func(Result)
}

// Reactor recomputes pricing after bursts of configuration writes settle.
// Each write restarts the timer; only the trailing edge recomputes, reading
// the state current at that moment.
type Reactor struct {
	engine  *Engine
	store   *state.Store
	quantum time.Duration
	logger  *zap.Logger

	mu        sync.Mutex
	timer     *time.Timer
	gen       uint64
	closed    bool
	latest    *Result
	listeners map[string][]pricingListener
	nextID    int
	cancel    func()
}

// NewReactor subscribes to configuration writes on store.
func NewReactor(engine *Engine, store *state.Store, opts ...ReactorOption) *Reactor {
	r := &Reactor{
		engine:    engine,
		store:     store,
		quantum:   DefaultQuantum,
		logger:    zap.NewNop(),
		listeners: make(map[string][]pricingListener),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.cancel = store.OnStateChange(ConfigPath+".*", func(state.Change) { r.schedule() })
	return r
}

// OnPricingChange registers fn for an event and returns a function removing it.
func (r *Reactor) OnPricingChange(event string, fn func(Result)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID
	r.listeners[event] = append(r.listeners[event], pricingListener{id: id, fn: fn})

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		list := r.listeners[event]
		for i, l := range list {
			if l.id == id {
				r.listeners[event] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// Latest returns the most recent result, if any recompute has happened.
func (r *Reactor) Latest() (Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.latest == nil {
		return Result{}, false
	}
	return *r.latest, true
}

// Flush cancels a pending recompute and runs it now.
func (r *Reactor) Flush(ctx context.Context) (Result, error) {
	r.mu.Lock()
	r.gen++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.mu.Unlock()
	return r.recompute(ctx)
}

// Close stops the timer and the state subscription.
func (r *Reactor) Close() {
	r.mu.Lock()
	r.closed = true
	r.gen++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	cancel := r.cancel
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (r *Reactor) schedule() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if r.timer != nil {
		r.timer.Stop()
	}
	r.gen++
	gen := r.gen
	r.timer = time.AfterFunc(r.quantum, func() { r.fire(gen) })
}

func (r *Reactor) fire(gen uint64) {
	r.mu.Lock()
	if r.closed || gen != r.gen {
		r.mu.Unlock()
		return
	}
	r.timer = nil
	r.mu.Unlock()

	if _, err := r.recompute(context.Background()); err != nil {
		r.logger.Error("pricing recompute failed", zap.Error(err))
	}
}

func (r *Reactor) recompute(ctx context.Context) (Result, error) {
	snap := r.store.GetState()

	var pkg domain.Package
	if err := snap.Decode(PackagePath, &pkg); err != nil {
		return Result{}, err
	}
	var cfg domain.CurrentConfig
	if err := snap.Decode(ConfigPath, &cfg); err != nil {
		return Result{}, err
	}

	result := r.engine.Recalculate(ctx, pkg, cfg)

	r.mu.Lock()
	r.latest = &result
	listeners := append([]pricingListener(nil), r.listeners[EventUpdated]...)
	r.mu.Unlock()

	r.logger.Debug("pricing updated",
		zap.Uint64("version", snap.Version()),
		zap.String("total", result.Totals.Total.StringFixed(2)),
	)
	for _, l := range listeners {
		l.fn(result)
	}
	return result, nil
}

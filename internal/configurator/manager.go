// Package configurator runs configuration sessions: it seeds a session's
// state from package or smart defaults, exposes typed mutations on top of
// the state store and wires pricing, breakdown and persistence to it.
package configurator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eugenenazirov/catering-configurator/internal/breakdown"
	"github.com/eugenenazirov/catering-configurator/internal/catalog"
	"github.com/eugenenazirov/catering-configurator/internal/defaults"
	"github.com/eugenenazirov/catering-configurator/internal/domain"
	"github.com/eugenenazirov/catering-configurator/internal/pricing"
	"github.com/eugenenazirov/catering-configurator/internal/session"
)

// Option configures a Manager.
type Option func(*Manager)

// WithPersistence saves every committed configuration write to store.
func WithPersistence(store session.Store) Option {
	return func(m *Manager) {
		m.persist = store
	}
}

// WithQuantum sets the pricing debounce window.
func WithQuantum(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.quantum = d
		}
	}
}

// WithAssembler replaces the breakdown assembler.
func WithAssembler(a *breakdown.Assembler) Option {
	return func(m *Manager) {
		if a != nil {
			m.assembler = a
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// CreateRequest describes a new session.
type CreateRequest struct {
	PackageID string
	// Targets derive a smart-default split; nil keeps the package default.
	Targets    *defaults.Targets
	GuestCount int
	// Resume continues the configuration saved for the package, when any.
	Resume bool
}

// Manager owns the live sessions.
type Manager struct {
	packages  catalog.Packages
	engine    *pricing.Engine
	assembler *breakdown.Assembler
	persist   session.Store
	quantum   time.Duration
	logger    *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a Manager resolving packages from packages and pricing
// with engine.
func NewManager(packages catalog.Packages, engine *pricing.Engine, opts ...Option) *Manager {
	m := &Manager{
		packages:  packages,
		engine:    engine,
		assembler: breakdown.New(nil),
		quantum:   pricing.DefaultQuantum,
		logger:    zap.NewNop(),
		sessions:  make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create starts a session for a package.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*Session, error) {
	pkg, err := m.packages.Package(ctx, req.PackageID)
	if err != nil {
		return nil, err
	}

	cfg, resumed, err := m.initialConfig(ctx, pkg, req)
	if err != nil {
		return nil, err
	}

	s, err := newSession(uuid.NewString(), pkg, cfg, m)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	m.logger.Info("session created",
		zap.String("sessionId", s.id),
		zap.String("packageId", pkg.ID),
		zap.Bool("resumed", resumed),
		zap.String("baseline", cfg.Baseline.Source),
	)
	return s, nil
}

func (m *Manager) initialConfig(ctx context.Context, pkg domain.Package, req CreateRequest) (domain.CurrentConfig, bool, error) {
	if req.Resume && m.persist != nil {
		cfg, err := m.persist.Load(ctx, pkg.ID)
		switch {
		case err == nil:
			return cfg, true, nil
		case !errors.Is(err, session.ErrNotFound):
			return domain.CurrentConfig{}, false, fmt.Errorf("resume configuration: %w", err)
		}
	}

	cfg := domain.NewConfig(pkg)
	if req.Targets != nil {
		cfg.Baseline = defaults.Derive(pkg.TotalUnits, req.Targets)
		cfg.Distribution = cfg.Baseline.Distribution.Clone()
		cfg.Assignments = fitAssignments(cfg.Assignments, cfg.Distribution)
	}
	if req.GuestCount > 0 {
		cfg.GuestCount = req.GuestCount
	}
	return cfg, false, nil
}

// fitAssignments trims sauce counts so no unit type is over-assigned.
func fitAssignments(assignments []domain.SauceAssignment, dist domain.Distribution) []domain.SauceAssignment {
	remaining := dist.Clone()
	out := make([]domain.SauceAssignment, 0, len(assignments))
	for _, a := range assignments {
		if a.Count > remaining[a.UnitType] {
			a.Count = remaining[a.UnitType]
		}
		remaining[a.UnitType] -= a.Count
		if a.Count > 0 {
			out = append(out, a)
		}
	}
	return out
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// End closes and forgets a session.
func (m *Manager) End(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.Close()
	return nil
}

// Close ends every session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

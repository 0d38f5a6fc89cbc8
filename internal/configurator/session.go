package configurator

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/catering-configurator/internal/breakdown"
	"github.com/eugenenazirov/catering-configurator/internal/defaults"
	"github.com/eugenenazirov/catering-configurator/internal/domain"
	"github.com/eugenenazirov/catering-configurator/internal/modification"
	"github.com/eugenenazirov/catering-configurator/internal/pricing"
	"github.com/eugenenazirov/catering-configurator/internal/session"
	"github.com/eugenenazirov/catering-configurator/internal/state"
)

const (
	configPrefix   = pricing.ConfigPath + "."
	baselinePath   = pricing.ConfigPath + ".baseline"
	packageIDPath  = pricing.ConfigPath + ".packageId"
	distributionAt = pricing.ConfigPath + ".distribution."
)

// document is the layout of the state a session owns.
type document struct {
	Package domain.Package       `json:"package"`
	Config  domain.CurrentConfig `json:"config"`
}

// Session is one customer's working configuration of a package.
type Session struct {
	id        string
	pkg       domain.Package
	store     *state.Store
	reactor   *pricing.Reactor
	assembler *breakdown.Assembler
	logger    *zap.Logger
	cancels   []func()
}

func newSession(id string, pkg domain.Package, cfg domain.CurrentConfig, m *Manager) (*Session, error) {
	store, err := state.New(document{Package: pkg, Config: cfg})
	if err != nil {
		return nil, fmt.Errorf("create state: %w", err)
	}

	s := &Session{
		id:        id,
		pkg:       pkg,
		store:     store,
		assembler: m.assembler,
		logger:    m.logger.With(zap.String("sessionId", id), zap.String("packageId", pkg.ID)),
	}
	s.reactor = pricing.NewReactor(m.engine, store,
		pricing.WithQuantum(m.quantum),
		pricing.WithReactorLogger(s.logger),
	)
	if m.persist != nil {
		s.cancels = append(s.cancels, store.OnStateChange(configPrefix+"*", s.persistTo(m.persist)))
	}
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Package returns a copy of the package being configured.
func (s *Session) Package() domain.Package {
	return s.pkg.Clone()
}

// State returns the current snapshot of the session document.
func (s *Session) State() state.Snapshot {
	return s.store.GetState()
}

// Config decodes the current configuration.
func (s *Session) Config() (domain.CurrentConfig, error) {
	var cfg domain.CurrentConfig
	if err := s.store.GetState().Decode(pricing.ConfigPath, &cfg); err != nil {
		return domain.CurrentConfig{}, err
	}
	return cfg, nil
}

// Update writes value at a configuration path. The package, the package id
// and the locked baseline cannot be written this way.
func (s *Session) Update(path string, value any) error {
	if !strings.HasPrefix(path, configPrefix) || isLocked(path) {
		return fmt.Errorf("%w: %q", ErrReadOnlyPath, path)
	}
	return s.apply(func(tx *state.Tx) error {
		return tx.Set(path, value)
	})
}

func isLocked(path string) bool {
	for _, p := range []string{baselinePath, packageIDPath} {
		if path == p || strings.HasPrefix(path, p+".") {
			return true
		}
	}
	return false
}

// SetSubSplit sets the boneless count and gives the rest of the locked
// traditional total to bone-in. The plant-based count is left untouched.
func (s *Session) SetSubSplit(boneless int) error {
	return s.SetSplit(nil, &boneless)
}

// SetPlantBased moves units between the plant-based and traditional groups,
// keeping the current boneless to bone-in ratio, and relocks the group totals.
func (s *Session) SetPlantBased(count int) error {
	return s.SetSplit(&count, nil)
}

// SetSplit applies a plant-based count and then a boneless count as a single
// write. Either may be nil.
func (s *Session) SetSplit(plantBased, boneless *int) error {
	return s.apply(func(tx *state.Tx) error {
		if plantBased != nil {
			if err := s.movePlantBased(tx, *plantBased); err != nil {
				return err
			}
		}
		if boneless != nil {
			return subSplit(tx, *boneless)
		}
		return nil
	})
}

func subSplit(tx *state.Tx, boneless int) error {
	var baseline domain.Baseline
	if err := tx.Decode(baselinePath, &baseline); err != nil {
		return err
	}
	if !baseline.Locked {
		return ErrBaselineNotLocked
	}
	boneless = clamp(boneless, 0, baseline.TraditionalTotal)
	if err := tx.Set(distributionAt+string(domain.UnitBoneless), boneless); err != nil {
		return err
	}
	return tx.Set(distributionAt+string(domain.UnitBoneIn), baseline.TraditionalTotal-boneless)
}

func (s *Session) movePlantBased(tx *state.Tx, count int) error {
	var dist domain.Distribution
	if err := tx.Decode(pricing.ConfigPath+".distribution", &dist); err != nil {
		return err
	}
	count = clamp(count, 0, s.pkg.TotalUnits)
	traditional := s.pkg.TotalUnits - count
	boneless, boneIn := defaults.Split(traditional, dist)

	next := domain.Distribution{
		domain.UnitBoneless: boneless,
		domain.UnitBoneIn:   boneIn,
	}
	if count > 0 {
		next[domain.UnitCauliflower] = count
	}
	if err := tx.Set(pricing.ConfigPath+".distribution", next); err != nil {
		return err
	}
	if err := tx.Set(baselinePath+".traditionalTotal", traditional); err != nil {
		return err
	}
	if err := tx.Set(baselinePath+".plantBasedTotal", count); err != nil {
		return err
	}
	return tx.Set(baselinePath+".locked", true)
}

// SetGuestCount records the number of guests.
func (s *Session) SetGuestCount(n int) error {
	return s.store.UpdateState(pricing.ConfigPath+".guestCount", n)
}

// SetAssignments replaces the sauce assignments.
func (s *Session) SetAssignments(assignments []domain.SauceAssignment) error {
	if assignments == nil {
		assignments = []domain.SauceAssignment{}
	}
	return s.apply(func(tx *state.Tx) error {
		return tx.Set(pricing.ConfigPath+".assignments", assignments)
	})
}

// SetSelections replaces the selections of a pack category and clears its
// skip flag.
func (s *Session) SetSelections(category domain.Category, selections []domain.Selection) error {
	if !category.IsPackCategory() {
		return fmt.Errorf("%w: %s", ErrNotPackCategory, category)
	}
	if selections == nil {
		selections = []domain.Selection{}
	}
	return s.apply(func(tx *state.Tx) error {
		return tx.Set(packPath(category), domain.PackState{Selections: selections})
	})
}

// Skip toggles the skip flag of a pack category. Skipping clears the
// selections; un-skipping restores the package defaults.
func (s *Session) Skip(category domain.Category, skip bool) error {
	if !category.IsPackCategory() {
		return fmt.Errorf("%w: %s", ErrNotPackCategory, category)
	}
	next := domain.PackState{Selections: []domain.Selection{}, Skip: skip}
	if !skip {
		next.Selections = append(next.Selections, s.pkg.DefaultSelections[category]...)
	}
	return s.store.UpdateState(packPath(category), next)
}

// SetAddOns replaces the add-ons of a category.
func (s *Session) SetAddOns(category domain.Category, addOns []domain.AddOn) error {
	if !category.Valid() {
		return fmt.Errorf("%w: %d", domain.ErrUnknownCategory, int(category))
	}
	if addOns == nil {
		addOns = []domain.AddOn{}
	}
	return s.apply(func(tx *state.Tx) error {
		return tx.Set(pricing.ConfigPath+".addOns."+category.String(), addOns)
	})
}

// Pricing recomputes the price now, cancelling any pending debounced run.
func (s *Session) Pricing(ctx context.Context) (pricing.Result, error) {
	return s.reactor.Flush(ctx)
}

// OnPricingChange subscribes to debounced pricing updates.
func (s *Session) OnPricingChange(event string, fn func(pricing.Result)) func() {
	return s.reactor.OnPricingChange(event, fn)
}

// OnStateChange subscribes to writes matching pattern.
func (s *Session) OnStateChange(pattern string, fn state.Listener) func() {
	return s.store.OnStateChange(pattern, fn)
}

// Modifications compares the configuration with the package defaults.
func (s *Session) Modifications() (map[domain.Category]modification.Record, error) {
	cfg, err := s.Config()
	if err != nil {
		return nil, err
	}
	return modification.Detect(s.pkg, cfg), nil
}

// Breakdown assembles the kitchen view of the configuration.
func (s *Session) Breakdown() (map[domain.Category]breakdown.Category, error) {
	cfg, err := s.Config()
	if err != nil {
		return nil, err
	}
	return s.assembler.Build(s.pkg, cfg, modification.Detect(s.pkg, cfg)), nil
}

// Close stops the pricing reactor and persistence.
func (s *Session) Close() {
	s.reactor.Close()
	for _, cancel := range s.cancels {
		cancel()
	}
}

// apply runs fn and rejects the write when the result no longer decodes.
func (s *Session) apply(fn func(tx *state.Tx) error) error {
	return s.store.Apply(func(tx *state.Tx) error {
		if err := fn(tx); err != nil {
			return err
		}
		var cfg domain.CurrentConfig
		if err := tx.Decode(pricing.ConfigPath, &cfg); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return nil
	})
}

func (s *Session) persistTo(store session.Store) state.Listener {
	return func(change state.Change) {
		var cfg domain.CurrentConfig
		if err := change.Snapshot.Decode(pricing.ConfigPath, &cfg); err != nil {
			s.logger.Error("decode configuration for persistence", zap.Error(err))
			return
		}
		if err := store.Save(context.Background(), s.pkg.ID, cfg); err != nil {
			s.logger.Error("persist configuration", zap.Error(err))
		}
	}
}

func packPath(category domain.Category) string {
	return pricing.ConfigPath + ".packs." + category.String()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

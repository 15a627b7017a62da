package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/sessionmux/internal/logging"
	"github.com/aretw0/sessionmux/internal/metrics"
	"github.com/aretw0/sessionmux/pkg/domain"
	"github.com/aretw0/sessionmux/pkg/ports"
)

// Rule names the decision-table entry that produced a routing decision.
type Rule string

const (
	RuleDropOriginal Rule = "drop_original"
	RuleSteady       Rule = "steady"
	RuleCutover      Rule = "cutover"
	RuleExisting     Rule = "existing"
	RuleNew          Rule = "new"
)

// maxUpdateAttempts bounds retries of toggle updates racing other writers.
const maxUpdateAttempts = 8

// ErrContention is returned when a toggle update kept losing compare-and-swap races.
var ErrContention = errors.New("migration state contention")

// Decision is the outcome of routing one key.
type Decision struct {
	Store string                `json:"store" yaml:"store"`
	Rule  Rule                  `json:"rule" yaml:"rule"`
	State domain.MigrationState `json:"state" yaml:"state"`
}

// Coordinator owns the migration state and routes keys to stores.
// Safe for concurrent use.
type Coordinator struct {
	stores map[string]ports.SessionStore

	mu    sync.RWMutex
	state domain.MigrationState

	persist ports.MigrationStateStore
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures the Coordinator.
type Option func(*Coordinator)

// WithStateStore persists the state so several coordinators agree on roles.
func WithStateStore(store ports.MigrationStateStore) Option {
	return func(c *Coordinator) {
		c.persist = store
	}
}

// WithMigrationMode sets the initial migration_mode toggle.
func WithMigrationMode(on bool) Option {
	return func(c *Coordinator) {
		c.state.MigrationMode = on
	}
}

// WithDropOriginal sets the initial drop_original_store toggle.
func WithDropOriginal(on bool) Option {
	return func(c *Coordinator) {
		c.state.DropOriginal = on
	}
}

// WithLogger configures a logger for the Coordinator.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithMetrics configures the collectors the Coordinator reports to.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// New creates a coordinator. alternative may be nil when no migration is planned;
// the toggles then cannot be turned on.
func New(current, alternative ports.SessionStore, opts ...Option) (*Coordinator, error) {
	if current == nil {
		return nil, fmt.Errorf("%w: current store is required", domain.ErrConfiguration)
	}
	c := &Coordinator{
		stores:  map[string]ports.SessionStore{current.Name(): current},
		logger:  logging.NewNop(),
		metrics: metrics.NewNop(),
	}

	var altName string
	if alternative != nil {
		altName = alternative.Name()
		if altName == current.Name() {
			return nil, fmt.Errorf("%w: current and alternative stores share the name %q", domain.ErrConfiguration, altName)
		}
		c.stores[altName] = alternative
	}
	c.state = domain.NewMigrationState(current.Name(), altName)

	for _, opt := range opts {
		opt(c)
	}

	if alternative == nil && (c.state.MigrationMode || c.state.DropOriginal) {
		return nil, fmt.Errorf("%w: migration toggles need an alternative store", domain.ErrConfiguration)
	}
	return c, nil
}

// State returns a copy of the current state.
func (c *Coordinator) State() domain.MigrationState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Store returns the store registered under name.
func (c *Coordinator) Store(name string) (ports.SessionStore, bool) {
	s, ok := c.stores[name]
	return s, ok
}

// Current returns the store holding the current role.
func (c *Coordinator) Current() ports.SessionStore {
	return c.stores[c.State().Current]
}

// Alternative returns the store holding the alternative role, or nil.
func (c *Coordinator) Alternative() ports.SessionStore {
	return c.stores[c.State().Alternative]
}

// Route returns the store serving key, applying any transition the decision implies.
func (c *Coordinator) Route(ctx context.Context, key string) ports.SessionStore {
	return c.stores[c.Decide(ctx, key).Store]
}

// Decide routes key and applies the transition the decision implies
// (recording MIGRATING, or the cutover).
func (c *Coordinator) Decide(ctx context.Context, key string) Decision {
	st := c.State()
	for {
		d, next := c.evaluate(ctx, key, st)
		if next == nil {
			return c.decided(d)
		}

		got, ok, err := c.transition(ctx, st, *next)
		if err != nil {
			c.logger.Warn("Migration transition failed", "rule", d.Rule, "err", err)
			d.State = st
			if d.Rule == RuleCutover {
				// Keep serving from the old roles until the cutover sticks.
				d = Decision{Store: st.Current, Rule: RuleSteady, State: st}
			}
			return c.decided(d)
		}
		if ok {
			if d.Rule == RuleCutover {
				c.metrics.Cutovers.Inc()
				c.logger.Info("Migration completed", "current", got.Current, "alternative", got.Alternative)
			}
			return c.decided(d)
		}

		// Lost the race: decide again from the state that won.
		st = got
	}
}

// Explain evaluates the decision table for key without changing any state.
func (c *Coordinator) Explain(ctx context.Context, key string) Decision {
	d, _ := c.evaluate(ctx, key, c.State())
	return d
}

func (c *Coordinator) decided(d Decision) Decision {
	c.metrics.RoutingDecisions.WithLabelValues(string(d.Rule)).Inc()
	c.logger.Debug("Routed session", "store", d.Store, "rule", d.Rule, "phase", d.State.Phase)
	return d
}

// evaluate is the decision table. It returns the transition to apply, if any.
func (c *Coordinator) evaluate(ctx context.Context, key string, st domain.MigrationState) (Decision, *domain.MigrationState) {
	switch {
	case st.DropOriginal:
		return Decision{Store: st.Alternative, Rule: RuleDropOriginal, State: st}, migrating(st)

	case !st.MigrationMode:
		if st.Phase == domain.PhaseMigrating {
			next := st.Swapped()
			next.Generation = st.Generation + 1
			return Decision{Store: next.Current, Rule: RuleCutover, State: next}, &next
		}
		return Decision{Store: st.Current, Rule: RuleSteady, State: st}, nil

	case c.exists(ctx, st.Current, key):
		return Decision{Store: st.Current, Rule: RuleExisting, State: st}, nil

	default:
		next := migrating(st)
		if next != nil {
			return Decision{Store: st.Alternative, Rule: RuleNew, State: *next}, next
		}
		return Decision{Store: st.Alternative, Rule: RuleNew, State: st}, nil
	}
}

// migrating returns the state with phase MIGRATING, or nil if it already is.
func migrating(st domain.MigrationState) *domain.MigrationState {
	if st.Phase == domain.PhaseMigrating {
		return nil
	}
	next := st
	next.Phase = domain.PhaseMigrating
	next.Generation = st.Generation + 1
	return &next
}

// exists checks the current store. Failures count as absent.
func (c *Coordinator) exists(ctx context.Context, storeName, key string) bool {
	if key == "" {
		return false
	}
	store := c.stores[storeName]
	ok, err := store.Exists(ctx, key)
	if err != nil {
		c.logger.Warn("Existence check failed, routing as new session", "store", storeName, "err", err)
		return false
	}
	return ok
}

// transition replaces seen with next if no one moved the state in between.
// It returns the state in force afterwards and whether next was applied.
// Persistence I/O happens under the lock, only on transitions.
func (c *Coordinator) transition(ctx context.Context, seen, next domain.MigrationState) (domain.MigrationState, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Generation != seen.Generation {
		return c.state, false, nil
	}

	if c.persist != nil {
		ok, err := c.persist.CompareAndSwap(ctx, seen.Generation, next)
		if err != nil {
			return c.state, false, err
		}
		if !ok {
			remote, found, err := c.persist.Load(ctx)
			if err != nil {
				return c.state, false, err
			}
			if !found || !c.adopt(remote) {
				return c.state, false, fmt.Errorf("persisted migration state rejected (generation %d)", remote.Generation)
			}
			return c.state, false, nil
		}
	}

	c.logger.Debug("Migration state changed", "diff", domain.Diff(c.state, next))
	c.state = next
	return next, true, nil
}

// adopt replaces the local state with a persisted one. Callers hold mu.
func (c *Coordinator) adopt(remote domain.MigrationState) bool {
	if _, ok := c.stores[remote.Current]; !ok {
		c.logger.Error("Persisted migration state names an unknown store", "store", remote.Current)
		return false
	}
	if _, ok := c.stores[remote.Alternative]; !ok && remote.Alternative != "" {
		c.logger.Error("Persisted migration state names an unknown store", "store", remote.Alternative)
		return false
	}
	if remote.Alternative == "" && (remote.MigrationMode || remote.DropOriginal) {
		c.logger.Error("Persisted migration state has toggles on but no alternative store")
		return false
	}
	if diff := domain.Diff(c.state, remote); diff != nil {
		c.logger.Info("Adopted migration state", "diff", diff)
		if diff.Swap() {
			c.metrics.Cutovers.Inc()
		}
	}
	c.state = remote
	return true
}

// update applies mutate to the latest state, retrying when another writer wins.
func (c *Coordinator) update(ctx context.Context, mutate func(domain.MigrationState) (domain.MigrationState, error)) (domain.MigrationState, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		st := c.State()
		next, err := mutate(st)
		if err != nil {
			return st, err
		}
		if next.Equal(st) {
			return st, nil
		}
		next.Generation = st.Generation + 1

		got, ok, err := c.transition(ctx, st, next)
		if err != nil {
			return got, err
		}
		if ok {
			return got, nil
		}
	}
	return c.State(), ErrContention
}

// SetMigrationMode flips the migration_mode toggle.
func (c *Coordinator) SetMigrationMode(ctx context.Context, on bool) (domain.MigrationState, error) {
	return c.update(ctx, func(st domain.MigrationState) (domain.MigrationState, error) {
		if on && st.Alternative == "" {
			return st, fmt.Errorf("%w: migration mode needs an alternative store", domain.ErrConfiguration)
		}
		st.MigrationMode = on
		return st, nil
	})
}

// SetDropOriginal flips the drop_original_store toggle.
func (c *Coordinator) SetDropOriginal(ctx context.Context, on bool) (domain.MigrationState, error) {
	return c.update(ctx, func(st domain.MigrationState) (domain.MigrationState, error) {
		if on && st.Alternative == "" {
			return st, fmt.Errorf("%w: dropping the original store needs an alternative store", domain.ErrConfiguration)
		}
		st.DropOriginal = on
		return st, nil
	})
}

// CompleteMigration swaps the current and alternative roles and resets the phase.
// It returns domain.ErrNoMigration unless a migration is in progress.
func (c *Coordinator) CompleteMigration(ctx context.Context) (domain.MigrationState, error) {
	st, err := c.update(ctx, func(st domain.MigrationState) (domain.MigrationState, error) {
		if st.Phase != domain.PhaseMigrating {
			return st, domain.ErrNoMigration
		}
		return st.Swapped(), nil
	})
	if err == nil {
		c.metrics.Cutovers.Inc()
		c.logger.Info("Migration completed", "current", st.Current, "alternative", st.Alternative)
	}
	return st, err
}

// Sync pulls the persisted state. With nothing persisted yet, it seeds the store with the
// local state. It is a no-op without a state store.
func (c *Coordinator) Sync(ctx context.Context) error {
	if c.persist == nil {
		return nil
	}

	remote, found, err := c.persist.Load(ctx)
	if err != nil {
		return err
	}
	if !found {
		local := c.State()
		if _, err := c.persist.CompareAndSwap(ctx, 0, local); err != nil {
			return err
		}
		remote, found, err = c.persist.Load(ctx)
		if err != nil || !found {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if remote == c.state {
		return nil
	}
	if !c.adopt(remote) {
		return fmt.Errorf("%w: persisted migration state names unknown stores", domain.ErrConfiguration)
	}
	return nil
}

// Watch calls Sync every interval until ctx is done.
func (c *Coordinator) Watch(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := c.Sync(ctx); err != nil {
				c.logger.Warn("Migration state sync failed", "err", err)
			}
		}
	}
}

package sim

import (
	"context"
	"fmt"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	mmetrics "railstatus-simulator/internal/metrics"
	"railstatus-simulator/internal/rail"
)

// FeedPublisher receives the complete snapshot set produced by a tick.
type FeedPublisher interface {
	PublishFeed(tick int64, snaps []rail.StatusSnapshot) error
}

// DefaultBaseClock is the virtual instant the simulation starts from; the
// timetable's trains are mid-journey at this time of day.
const DefaultBaseClock = rail.ClockMinutes(15*60 + 30)

// Options configures a Manager. Zero values fall back to defaults.
type Options struct {
	TickInterval time.Duration       // wall-clock interval between ticks, default 1m
	StepMinutes  int                 // simulated minutes advanced per tick, min 1
	BaseClock    rail.ClockMinutes   // virtual baseline, default 15:30
	Seed         int64               // jitter seed; 0 seeds from the wall clock
	Publisher    FeedPublisher       // optional
	Metrics      *mmetrics.Collector // optional
}

// Manager owns one simulation: the virtual clock, the recurring
// recomputation of every train's snapshot, the operator override store and
// the published feed. Managers are independent; several can coexist.
type Manager struct {
	tt           *rail.Timetable
	pub          FeedPublisher
	metrics      *mmetrics.Collector
	tickInterval time.Duration
	stepMin      int
	base         rail.ClockMinutes
	rng          *rand.Rand

	mu          sync.Mutex
	offsetMin   int
	ticks       int64
	snapshots   []rail.StatusSnapshot
	overrides   map[string]rail.Override
	jitterDelay map[string]int // train id -> accumulated jitter delay

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewManager(tt *rail.Timetable, opts Options) *Manager {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Minute
	}
	if opts.StepMinutes < 1 {
		opts.StepMinutes = 1
	}
	if opts.BaseClock == 0 {
		opts.BaseClock = DefaultBaseClock
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Manager{
		tt:           tt,
		pub:          opts.Publisher,
		metrics:      opts.Metrics,
		tickInterval: opts.TickInterval,
		stepMin:      opts.StepMinutes,
		base:         opts.BaseClock,
		rng:          rand.New(rand.NewSource(seed)),
		overrides:    make(map[string]rail.Override),
		jitterDelay:  make(map[string]int),
	}
}

// Start computes the feed at the baseline instant and launches the periodic
// refresh loop. The loop runs every tick to completion on one goroutine, so
// ticks never overlap. Start is a no-op when the loop is already running.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.snapshots = m.recomputeLocked(false)
	feed, tick := slices.Clone(m.snapshots), m.ticks
	m.mu.Unlock()

	m.publish(tick, feed)
	log.Info().Int("trains", len(feed)).Str("base", m.base.String()).Msg("simulation started")

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.TickNow()
			}
		}
	}()
}

// Stop tears the refresh loop down. Idempotent; an in-flight tick finishes
// before Stop returns, so the published feed is never half-applied.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}

// TickNow advances the virtual clock by one step and recomputes every
// train's snapshot. The timer loop calls it on schedule; tests and operators
// can call it directly for an immediate, deterministic tick.
func (m *Manager) TickNow() {
	start := time.Now()
	m.mu.Lock()
	m.offsetMin += m.stepMin
	m.ticks++
	m.snapshots = m.recomputeLocked(true)
	feed, tick := slices.Clone(m.snapshots), m.ticks
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.TicksTotal.Inc()
		m.metrics.TickDuration.Observe(time.Since(start).Seconds())
	}
	m.publish(tick, feed)
}

// ResetClock returns the virtual offset to zero and recomputes the feed from
// the fixed baseline instant.
func (m *Manager) ResetClock() {
	m.mu.Lock()
	m.offsetMin = 0
	m.jitterDelay = make(map[string]int)
	m.snapshots = m.recomputeLocked(false)
	feed, tick := slices.Clone(m.snapshots), m.ticks
	m.mu.Unlock()

	log.Info().Msg("simulation clock reset")
	m.publish(tick, feed)
}

// Now returns the current virtual time of day.
func (m *Manager) Now() rail.ClockMinutes {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.base.Add(m.offsetMin)
}

// Ticks returns how many ticks have run since the manager was created.
func (m *Manager) Ticks() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ticks
}

// Snapshots returns the latest fully published snapshot set in reference
// data order. The caller owns the returned slice.
func (m *Manager) Snapshots() []rail.StatusSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.snapshots)
}

// Snapshot returns the latest snapshot for one train.
func (m *Manager) Snapshot(trainID string) (rail.StatusSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.snapshots {
		if s.TrainID == trainID {
			return s, nil
		}
	}
	return rail.StatusSnapshot{}, fmt.Errorf("%w: %q", rail.ErrTrainNotFound, trainID)
}

// ApplyOverride pins a train's status, delay and next-station to the given
// values. It takes effect immediately and survives subsequent ticks until
// replaced or cleared; progress keeps advancing from the clock.
func (m *Manager) ApplyOverride(trainID string, status rail.Status, delayMin int, nextStation string) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", rail.ErrInvalidStatus, status)
	}
	if !m.tt.HasTrain(trainID) {
		if m.metrics != nil {
			m.metrics.OverridesRejected.Inc()
		}
		return fmt.Errorf("%w: %q", rail.ErrTrainNotFound, trainID)
	}

	ov := rail.Override{TrainID: trainID, Status: status, DelayMin: delayMin, NextStation: nextStation}
	if ov.Status != rail.StatusDelayed {
		ov.DelayMin = 0
	}
	if ov.DelayMin < 0 {
		ov.DelayMin = 0
	}
	if ov.Status == rail.StatusCancelled {
		ov.NextStation = rail.NextOperationalIssue
	}

	m.mu.Lock()
	m.overrides[trainID] = ov
	delete(m.jitterDelay, trainID)
	for i := range m.snapshots {
		if m.snapshots[i].TrainID == trainID {
			mergeOverride(&m.snapshots[i], ov)
			break
		}
	}
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.OverridesApplied.Inc()
	}
	log.Info().Str("train", trainID).Str("status", string(status)).Int("delay", ov.DelayMin).Msg("override applied")
	return nil
}

// ClearOverride removes a train's override and re-derives its snapshot so
// automatic recomputation takes back over without waiting for the next tick.
func (m *Manager) ClearOverride(trainID string) error {
	if !m.tt.HasTrain(trainID) {
		return fmt.Errorf("%w: %q", rail.ErrTrainNotFound, trainID)
	}

	m.mu.Lock()
	delete(m.overrides, trainID)
	now := m.base.Add(m.offsetMin)
	for _, t := range m.tt.Trains() {
		if t.ID != trainID {
			continue
		}
		snap, err := deriveSnapshot(t, m.tt.Schedule(trainID), m.tt, now)
		if err != nil {
			break
		}
		for i := range m.snapshots {
			if m.snapshots[i].TrainID == trainID {
				m.snapshots[i] = snap
				break
			}
		}
		break
	}
	m.mu.Unlock()

	log.Info().Str("train", trainID).Msg("override cleared")
	return nil
}

// recomputeLocked re-derives every train from reference data at the current
// virtual instant, applies jitter when requested, then re-pins active
// overrides. Trains with malformed schedules are skipped for this tick only.
// Callers hold m.mu.
func (m *Manager) recomputeLocked(applyJitter bool) []rail.StatusSnapshot {
	now := m.base.Add(m.offsetMin)
	trains := m.tt.Trains()
	snaps := make([]rail.StatusSnapshot, 0, len(trains))
	delayed, cancelled := 0, 0

	for _, t := range trains {
		snap, err := deriveSnapshot(t, m.tt.Schedule(t.ID), m.tt, now)
		if err != nil {
			if m.metrics != nil {
				m.metrics.DerivationSkips.Inc()
			}
			log.Warn().Err(err).Str("train", t.ID).Msg("skipping train for this tick")
			continue
		}

		if ov, ok := m.overrides[t.ID]; ok {
			mergeOverride(&snap, ov)
		} else if applyJitter {
			m.jitterLocked(&snap)
		}

		switch snap.Status {
		case rail.StatusDelayed:
			delayed++
		case rail.StatusCancelled:
			cancelled++
		}
		snaps = append(snaps, snap)
	}

	if m.metrics != nil {
		m.metrics.TrainsTracked.Set(float64(len(snaps)))
		m.metrics.DelayedTrains.Set(float64(delayed))
		m.metrics.CancelledTrains.Set(float64(cancelled))
	}
	return snaps
}

// jitterLocked emulates live fluctuation on a freshly derived snapshot:
// delayed trains wander by one minute per tick (floored at zero) and
// on-time trains occasionally pick up a starting delay. Boarding, Arrived
// and Cancelled trains are left alone. Accumulated jitter delay persists
// across ticks so a delay does not vanish on the next recomputation.
func (m *Manager) jitterLocked(snap *rail.StatusSnapshot) {
	step := func(base int) int {
		d := base + m.rng.Intn(3) - 1
		if d < 0 {
			d = 0
		}
		return d
	}

	switch snap.Status {
	case rail.StatusDelayed:
		base := snap.DelayMin
		if prev, ok := m.jitterDelay[snap.TrainID]; ok {
			base = prev
		}
		snap.DelayMin = step(base)
		m.jitterDelay[snap.TrainID] = snap.DelayMin
	case rail.StatusOnTime:
		if prev, ok := m.jitterDelay[snap.TrainID]; ok {
			snap.Status = rail.StatusDelayed
			snap.DelayMin = step(prev)
			m.jitterDelay[snap.TrainID] = snap.DelayMin
		} else if m.rng.Float64() < jitterFlipOdds {
			snap.Status = rail.StatusDelayed
			snap.DelayMin = jitterStartMin
			m.jitterDelay[snap.TrainID] = jitterStartMin
		}
	default:
		delete(m.jitterDelay, snap.TrainID)
	}
}

// mergeOverride pins the operator-owned fields onto a derived snapshot.
// Progress and the schedule-derived display fields stay untouched.
func mergeOverride(snap *rail.StatusSnapshot, ov rail.Override) {
	snap.Status = ov.Status
	snap.DelayMin = ov.DelayMin
	switch {
	case ov.NextStation != "":
		snap.NextStation = ov.NextStation
	case snap.NextStation == "":
		snap.NextStation = rail.NextEnRoute
	}
}

func (m *Manager) publish(tick int64, feed []rail.StatusSnapshot) {
	if m.pub == nil {
		return
	}
	if err := m.pub.PublishFeed(tick, feed); err != nil {
		log.Error().Err(err).Int64("tick", tick).Msg("feed publish failed")
	}
}

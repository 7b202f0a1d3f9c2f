// Package monitor runs the live market session: it owns the current snapshot,
// advances it on a timer, and feeds every new snapshot to the alert engine.
package monitor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rewired-gh/gridpulse/internal/alerts"
	"github.com/rewired-gh/gridpulse/internal/logger"
	"github.com/rewired-gh/gridpulse/internal/market"
	"github.com/rewired-gh/gridpulse/internal/models"
	"github.com/rewired-gh/gridpulse/internal/notification"
	"github.com/rewired-gh/gridpulse/internal/storage"
)

type Config struct {
	TickInterval time.Duration
	InitDelay    time.Duration
	MaxTicks     int
}

func DefaultConfig() Config {
	return Config{
		TickInterval: 5 * time.Second,
		InitDelay:    time.Second,
		MaxTicks:     10000,
	}
}

// Journal records session activity. *storage.Storage implements it.
type Journal interface {
	RecordTick(sessionID string, seq int, tickers []models.Ticker, at time.Time) error
	RecordAlertEvent(ev storage.AlertEvent) error
	RotateTicks(sessionID string, maxTicks int) error
}

// Notifier delivers newly triggered alerts.
type Notifier interface {
	SendAlerts(alerts []models.Alert) error
}

// Reporter is told about the first failure of a streak and about recovery.
type Reporter interface {
	SendError(err error) error
	SendRecovery(failureCount int) error
}

type Monitor struct {
	config    Config
	gen       *market.Generator
	engine    *alerts.Engine
	surface   *notification.Surface
	journal   Journal
	notifier  Notifier
	reporter  Reporter
	sessionID string
	now       func() time.Time

	mu       sync.RWMutex
	snapshot *models.Snapshot
	stats    map[string]*models.PriceStats
	seq      int

	consecutiveFailures int
}

// New creates a monitor. journal, notifier and reporter may be nil.
func New(gen *market.Generator, engine *alerts.Engine, journal Journal, config Config) *Monitor {
	m := &Monitor{
		config:    config,
		gen:       gen,
		engine:    engine,
		journal:   journal,
		sessionID: uuid.NewString(),
		now:       time.Now,
		stats:     make(map[string]*models.PriceStats),
	}
	m.surface = notification.NewSurface(journaledStore{m})
	return m
}

// journaledStore routes notification dismissals through RemoveAlert so they are journaled.
type journaledStore struct{ m *Monitor }

func (s journaledStore) Alerts() []models.Alert { return s.m.Alerts() }
func (s journaledStore) Remove(id int) bool     { return s.m.RemoveAlert(id) }

// SetNotifier registers where newly triggered alerts are pushed.
func (m *Monitor) SetNotifier(n Notifier) { m.notifier = n }

// SetReporter registers where cycle failures and recoveries are reported.
func (m *Monitor) SetReporter(r Reporter) { m.reporter = r }

func (m *Monitor) SessionID() string { return m.sessionID }

// Notifications returns the dismissible notification surface.
func (m *Monitor) Notifications() *notification.Surface { return m.surface }

// Run drives the session until ctx is cancelled. The first snapshot is produced
// after InitDelay; ticks arriving before that are skipped. Both timers are stopped
// on return.
func (m *Monitor) Run(ctx context.Context) {
	initTimer := time.NewTimer(m.config.InitDelay)
	defer initTimer.Stop()

	ticker := time.NewTicker(m.config.TickInterval)
	defer ticker.Stop()

	logger.Info("Starting market session %s (tick interval: %v, init delay: %v)",
		m.sessionID, m.config.TickInterval, m.config.InitDelay)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Market session %s stopped after %d ticks", m.sessionID, m.Ticks())
			return

		case <-initTimer.C:
			logger.Debug("Loading initial market snapshot")
			m.handleCycleResult(m.Initialize())

		case <-ticker.C:
			if !m.Loaded() {
				logger.Debug("Skipping tick: market data not loaded yet")
				continue
			}
			m.handleCycleResult(m.Step())
		}
	}
}

func (m *Monitor) handleCycleResult(err error) {
	if err != nil {
		m.consecutiveFailures++
		logger.Error("Market cycle failed: %v", err)
		if m.consecutiveFailures == 1 && m.reporter != nil {
			if sendErr := m.reporter.SendError(err); sendErr != nil {
				logger.Warn("Failed to report cycle error: %v", sendErr)
			}
		}
		return
	}
	if m.consecutiveFailures > 0 && m.reporter != nil {
		if sendErr := m.reporter.SendRecovery(m.consecutiveFailures); sendErr != nil {
			logger.Warn("Failed to report recovery: %v", sendErr)
		}
	}
	m.consecutiveFailures = 0
}

// Initialize publishes a fresh snapshot and evaluates alerts against it.
func (m *Monitor) Initialize() error {
	return m.publish(m.gen.Initialize())
}

// Step advances the market by one tick. It is a no-op before Initialize.
func (m *Monitor) Step() error {
	m.mu.RLock()
	prev := m.snapshot
	m.mu.RUnlock()
	if prev == nil {
		return nil
	}
	return m.publish(m.gen.Tick(*prev))
}

// publish swaps in next, evaluates alerts, then journals and delivers the results.
// Evaluation always sees a complete snapshot; journal and delivery failures are
// returned after the in-memory state has been updated.
func (m *Monitor) publish(next models.Snapshot) error {
	m.mu.Lock()
	m.snapshot = &next
	m.seq++
	seq := m.seq
	for _, t := range next.Ticker {
		st, ok := m.stats[t.Name]
		if !ok {
			st = &models.PriceStats{Market: t.Name}
			m.stats[t.Name] = st
		}
		UpdateWelford(st, t.Price)
	}
	m.mu.Unlock()

	fired := m.engine.Evaluate(next)
	if len(fired) > 0 {
		logger.Info("Tick %d triggered %d alerts", seq, len(fired))
	} else {
		logger.Debug("Tick %d evaluated, no alerts triggered", seq)
	}

	var errs []error
	now := m.now()
	if m.journal != nil {
		if err := m.journal.RecordTick(m.sessionID, seq, next.Ticker, now); err != nil {
			errs = append(errs, fmt.Errorf("failed to journal tick: %w", err))
		} else if m.config.MaxTicks > 0 && seq%100 == 0 {
			if err := m.journal.RotateTicks(m.sessionID, m.config.MaxTicks); err != nil {
				logger.Warn("Failed to rotate journal: %v", err)
			}
		}
		for _, a := range fired {
			m.recordEvent(a, storage.EventTriggered, &errs)
		}
	}

	if len(fired) > 0 && m.notifier != nil {
		if err := m.notifier.SendAlerts(fired); err != nil {
			errs = append(errs, fmt.Errorf("failed to deliver %d alerts: %w", len(fired), err))
		}
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func (m *Monitor) recordEvent(a models.Alert, kind storage.EventKind, errs *[]error) {
	if m.journal == nil {
		return
	}
	err := m.journal.RecordAlertEvent(storage.AlertEvent{
		SessionID:  m.sessionID,
		AlertID:    a.ID,
		Market:     a.Market,
		Condition:  a.Condition,
		Value:      a.Value,
		Kind:       kind,
		RecordedAt: m.now(),
	})
	if err != nil {
		if errs != nil {
			*errs = append(*errs, fmt.Errorf("failed to journal %s event: %w", kind, err))
		} else {
			logger.Warn("Failed to journal %s event for alert %d: %v", kind, a.ID, err)
		}
	}
}

// Loaded reports whether the first snapshot has been published.
func (m *Monitor) Loaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot != nil
}

// Snapshot returns the current snapshot. The value must be treated as read-only.
func (m *Monitor) Snapshot() (models.Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.snapshot == nil {
		return models.Snapshot{}, false
	}
	return *m.snapshot, true
}

// Ticks returns the number of snapshots published so far, including the initial one.
func (m *Monitor) Ticks() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.seq
}

// Stats returns per-market session statistics sorted by market name.
func (m *Monitor) Stats() []models.PriceStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.PriceStats, 0, len(m.stats))
	for _, st := range m.stats {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Market < out[j].Market
	})
	return out
}

// AddAlert creates an alert from user input.
func (m *Monitor) AddAlert(market string, cond models.Condition, value float64) (int, error) {
	id, err := m.engine.Add(market, cond, value)
	if err != nil {
		return 0, err
	}
	if a, ok := m.engine.Get(id); ok {
		m.recordEvent(a, storage.EventCreated, nil)
	}
	logger.Info("Alert %d added: %s %s %.2f", id, market, cond, value)
	return id, nil
}

// RemoveAlert removes an alert, triggered or not. Unknown ids are a no-op.
func (m *Monitor) RemoveAlert(id int) bool {
	a, ok := m.engine.Get(id)
	if !ok {
		return false
	}
	if !m.engine.Remove(id) {
		return false
	}
	m.recordEvent(a, storage.EventRemoved, nil)
	logger.Info("Alert %d removed", id)
	return true
}

// Alerts returns the alert collection in insertion order.
func (m *Monitor) Alerts() []models.Alert {
	return m.engine.Alerts()
}

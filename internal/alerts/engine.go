// Package alerts owns the user's threshold alerts and evaluates them against market snapshots.
package alerts

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rewired-gh/gridpulse/internal/models"
)

// ErrInvalidAlert is wrapped by every alert validation failure.
var ErrInvalidAlert = errors.New("invalid alert")

// Engine holds the alert collection. Alerts trigger at most once and stay
// triggered until removed.
type Engine struct {
	mu     sync.Mutex
	alerts []models.Alert
	nextID int
	now    func() time.Time
}

func NewEngine() *Engine {
	return &Engine{nextID: 1, now: time.Now}
}

// ParseInput converts user-entered text into validated alert arguments.
func ParseInput(market, condition, rawValue string) (string, models.Condition, float64, error) {
	market = strings.TrimSpace(market)
	if market == "" {
		return "", "", 0, fmt.Errorf("%w: market must not be empty", ErrInvalidAlert)
	}
	cond, err := models.ParseCondition(strings.ToLower(strings.TrimSpace(condition)))
	if err != nil {
		return "", "", 0, fmt.Errorf("%w: %v", ErrInvalidAlert, err)
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(rawValue), 64)
	if err != nil {
		return "", "", 0, fmt.Errorf("%w: value %q is not a number", ErrInvalidAlert, rawValue)
	}
	return market, cond, value, nil
}

// Add validates and appends a new untriggered alert, returning its id.
// Ids increase monotonically and are never reused.
func (e *Engine) Add(market string, cond models.Condition, value float64) (int, error) {
	alert := models.Alert{
		Market:    market,
		Metric:    models.MetricPrice,
		Condition: cond,
		Value:     value,
	}
	if err := alert.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAlert, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	alert.ID = e.nextID
	alert.CreatedAt = e.now()
	e.nextID++
	e.alerts = append(e.alerts, alert)
	return alert.ID, nil
}

// Remove deletes the alert with the given id, triggered or not.
// It reports whether an alert was removed; unknown ids are a no-op.
func (e *Engine) Remove(id int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, a := range e.alerts {
		if a.ID == id {
			e.alerts = slices.Delete(e.alerts, i, i+1)
			return true
		}
	}
	return false
}

// Get returns the alert with the given id.
func (e *Engine) Get(id int) (models.Alert, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, a := range e.alerts {
		if a.ID == id {
			return a, true
		}
	}
	return models.Alert{}, false
}

// Alerts returns a copy of the collection in insertion order.
func (e *Engine) Alerts() []models.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]models.Alert, len(e.alerts))
	copy(out, e.alerts)
	return out
}

// Evaluate checks every pending alert against snap and returns the alerts that
// triggered in this call. Alerts whose market is absent from the ticker are left
// pending. snap is not modified.
func (e *Engine) Evaluate(snap models.Snapshot) []models.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	var fired []models.Alert
	now := e.now()
	for i := range e.alerts {
		alert := &e.alerts[i]
		if alert.Triggered {
			continue
		}

		ticker, ok := snap.Lookup(alert.Market)
		if !ok {
			continue
		}

		if alert.Condition.Met(ticker.Price, alert.Value) {
			alert.Triggered = true
			alert.TriggeredAt = now
			fired = append(fired, *alert)
		}
	}
	return fired
}

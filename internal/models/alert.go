package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Condition is the comparison an alert applies to the current price.
type Condition string

const (
	Above Condition = "above"
	Below Condition = "below"
)

// ParseCondition converts user text into a Condition.
func ParseCondition(s string) (Condition, error) {
	switch Condition(s) {
	case Above, Below:
		return Condition(s), nil
	default:
		return "", fmt.Errorf("unknown condition %q (want above or below)", s)
	}
}

// Met reports whether price satisfies the condition against value. Equality never matches.
func (c Condition) Met(price, value float64) bool {
	switch c {
	case Above:
		return price > value
	case Below:
		return price < value
	default:
		return false
	}
}

// MetricPrice is the only metric alerts currently watch.
const MetricPrice = "price"

// Alert is a user-defined threshold rule on a market's ticker price.
// Triggered only ever moves from false to true.
type Alert struct {
	ID          int       `json:"id"`
	Market      string    `json:"market"`
	Metric      string    `json:"metric"`
	Condition   Condition `json:"condition"`
	Value       float64   `json:"value"`
	Triggered   bool      `json:"triggered"`
	CreatedAt   time.Time `json:"created_at"`
	TriggeredAt time.Time `json:"triggered_at,omitempty"`
}

// Validate checks alert field constraints.
func (a *Alert) Validate() error {
	if a.Market == "" {
		return errors.New("alert market must not be empty")
	}
	if _, err := ParseCondition(string(a.Condition)); err != nil {
		return err
	}
	if math.IsNaN(a.Value) || math.IsInf(a.Value, 0) {
		return errors.New("alert value must be a finite number")
	}
	if a.Value <= 0 {
		return errors.New("alert value must be positive")
	}
	return nil
}

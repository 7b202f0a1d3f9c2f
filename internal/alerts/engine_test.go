package alerts

import (
	"errors"
	"math"
	"testing"

	"github.com/rewired-gh/gridpulse/internal/models"
)

func snapshotWith(prices map[string]float64) models.Snapshot {
	snap := models.Snapshot{}
	for name, p := range prices {
		snap.Ticker = append(snap.Ticker, models.Ticker{Name: name, Price: p})
	}
	return snap
}

func mustAdd(t *testing.T, e *Engine, market string, cond models.Condition, value float64) int {
	t.Helper()
	id, err := e.Add(market, cond, value)
	if err != nil {
		t.Fatalf("Add(%s, %s, %v): %v", market, cond, value, err)
	}
	return id
}

func TestAdd_MonotonicIDs(t *testing.T) {
	e := NewEngine()

	var ids []int
	for i := 0; i < 3; i++ {
		ids = append(ids, mustAdd(t, e, "ERCOT", models.Above, 50))
	}
	e.Remove(ids[2])
	e.Remove(ids[0])
	ids = append(ids, mustAdd(t, e, "PJM", models.Below, 30))
	ids = append(ids, mustAdd(t, e, "PJM", models.Below, 31))

	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			t.Fatalf("ids not strictly increasing: %v", ids)
		}
	}
	if ids[3] != 4 {
		t.Errorf("removed id was reused: got %d, want 4", ids[3])
	}
}

func TestAdd_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		market string
		cond   models.Condition
		value  float64
	}{
		{"empty market", "", models.Above, 50},
		{"zero value", "ERCOT", models.Above, 0},
		{"negative value", "ERCOT", models.Below, -1},
		{"NaN value", "ERCOT", models.Below, math.NaN()},
		{"unknown condition", "ERCOT", "equals", 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine()
			if _, err := e.Add(tt.market, tt.cond, tt.value); !errors.Is(err, ErrInvalidAlert) {
				t.Errorf("Add() error = %v, want ErrInvalidAlert", err)
			}
			if len(e.Alerts()) != 0 {
				t.Error("rejected alert must not be stored")
			}
		})
	}
}

func TestAdd_Defaults(t *testing.T) {
	e := NewEngine()
	id := mustAdd(t, e, "ERCOT", models.Above, 50)

	a, ok := e.Get(id)
	if !ok {
		t.Fatal("alert not found")
	}
	if a.Triggered {
		t.Error("new alert must not be triggered")
	}
	if a.Metric != models.MetricPrice {
		t.Errorf("metric = %q, want price", a.Metric)
	}
	if a.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestParseInput(t *testing.T) {
	tests := []struct {
		name      string
		market    string
		condition string
		raw       string
		wantValue float64
		wantErr   bool
	}{
		{"valid", "ERCOT", "above", "50.25", 50.25, false},
		{"case and spaces", " PJM ", " Below ", " 30 ", 30, false},
		{"non-numeric", "ERCOT", "above", "fifty", 0, true},
		{"empty value", "ERCOT", "above", "", 0, true},
		{"empty market", "  ", "above", "50", 0, true},
		{"bad condition", "ERCOT", "over", "50", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, value, err := ParseInput(tt.market, tt.condition, tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseInput() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidAlert) {
				t.Errorf("error %v does not wrap ErrInvalidAlert", err)
			}
			if !tt.wantErr && value != tt.wantValue {
				t.Errorf("value = %v, want %v", value, tt.wantValue)
			}
		})
	}
}

func TestEvaluate_OneShot(t *testing.T) {
	e := NewEngine()
	id := mustAdd(t, e, "ERCOT", models.Above, 50)

	prices := []float64{45, 52, 40, 60}
	wantTriggered := []bool{false, true, true, true}
	wantFired := []int{0, 1, 0, 0}

	for i, p := range prices {
		fired := e.Evaluate(snapshotWith(map[string]float64{"ERCOT": p}))
		if len(fired) != wantFired[i] {
			t.Errorf("tick %d: fired %d alerts, want %d", i+1, len(fired), wantFired[i])
		}
		a, _ := e.Get(id)
		if a.Triggered != wantTriggered[i] {
			t.Errorf("tick %d (price %v): triggered = %v, want %v", i+1, p, a.Triggered, wantTriggered[i])
		}
	}
}

func TestEvaluate_StrictInequality(t *testing.T) {
	tests := []struct {
		cond  models.Condition
		price float64
		want  bool
	}{
		{models.Below, 50.00, false},
		{models.Below, 49.99, true},
		{models.Above, 50.00, false},
		{models.Above, 50.01, true},
	}

	for _, tt := range tests {
		e := NewEngine()
		id := mustAdd(t, e, "ERCOT", tt.cond, 50)
		e.Evaluate(snapshotWith(map[string]float64{"ERCOT": tt.price}))
		a, _ := e.Get(id)
		if a.Triggered != tt.want {
			t.Errorf("%s 50 at price %v: triggered = %v, want %v", tt.cond, tt.price, a.Triggered, tt.want)
		}
	}
}

func TestEvaluate_MissingMarket(t *testing.T) {
	e := NewEngine()
	id := mustAdd(t, e, "FAKE", models.Above, 1)

	for i := 0; i < 100; i++ {
		if fired := e.Evaluate(snapshotWith(map[string]float64{"ERCOT": 1000})); len(fired) != 0 {
			t.Fatalf("tick %d: unexpected trigger %+v", i, fired)
		}
	}
	if a, _ := e.Get(id); a.Triggered {
		t.Error("alert for a missing market must stay pending")
	}
}

func TestEvaluate_DoesNotTouchSnapshot(t *testing.T) {
	e := NewEngine()
	mustAdd(t, e, "ERCOT", models.Above, 10)
	snap := snapshotWith(map[string]float64{"ERCOT": 45.75})

	e.Evaluate(snap)
	if snap.Ticker[0].Price != 45.75 || snap.Ticker[0].Name != "ERCOT" {
		t.Errorf("snapshot modified: %+v", snap.Ticker[0])
	}
}

func TestRemove_IndependentOfTriggerState(t *testing.T) {
	e := NewEngine()
	pending := mustAdd(t, e, "PJM", models.Above, 1000)
	fired := mustAdd(t, e, "ERCOT", models.Above, 10)
	e.Evaluate(snapshotWith(map[string]float64{"ERCOT": 45, "PJM": 38}))

	if a, _ := e.Get(fired); !a.Triggered {
		t.Fatal("setup: expected ERCOT alert triggered")
	}
	if !e.Remove(fired) {
		t.Error("Remove(triggered) = false")
	}
	if !e.Remove(pending) {
		t.Error("Remove(pending) = false")
	}
	if e.Remove(999) {
		t.Error("Remove(unknown) = true")
	}
	if len(e.Alerts()) != 0 {
		t.Errorf("expected empty collection, got %d", len(e.Alerts()))
	}
}

func TestAlerts_ReturnsCopy(t *testing.T) {
	e := NewEngine()
	id := mustAdd(t, e, "ERCOT", models.Above, 50)

	list := e.Alerts()
	list[0].Triggered = true
	if a, _ := e.Get(id); a.Triggered {
		t.Error("mutating the returned slice changed engine state")
	}
}

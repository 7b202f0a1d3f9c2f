package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rewired-gh/gridpulse/internal/models"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test storage: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testTickers(ercot, pjm float64) []models.Ticker {
	return []models.Ticker{
		{Name: "ERCOT", Price: ercot, Change: 0.5},
		{Name: "PJM", Price: pjm, Change: -0.2},
	}
}

func TestStorage_RecordTickAndRecentPrices(t *testing.T) {
	s := newTestStorage(t)
	session := uuid.NewString()
	now := time.Now()

	for i, p := range []float64{45, 46, 47, 48} {
		if err := s.RecordTick(session, i+1, testTickers(p, 38), now); err != nil {
			t.Fatalf("RecordTick: %v", err)
		}
	}

	got, err := s.RecentPrices(session, "ERCOT", 3)
	if err != nil {
		t.Fatalf("RecentPrices: %v", err)
	}
	want := []float64{46, 47, 48}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("price[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestStorage_RecentPrices_Unknown(t *testing.T) {
	s := newTestStorage(t)
	got, err := s.RecentPrices(uuid.NewString(), "FAKE", 5)
	if err != nil {
		t.Fatalf("RecentPrices: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no prices, got %v", got)
	}
}

func TestStorage_SessionsAreIsolated(t *testing.T) {
	s := newTestStorage(t)
	a, b := uuid.NewString(), uuid.NewString()
	now := time.Now()

	if err := s.RecordTick(a, 1, testTickers(45, 38), now); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordTick(b, 1, testTickers(99, 38), now); err != nil {
		t.Fatal(err)
	}

	got, _ := s.RecentPrices(a, "ERCOT", 10)
	if len(got) != 1 || got[0] != 45 {
		t.Errorf("session a prices = %v, want [45]", got)
	}
}

func TestStorage_AlertEvents(t *testing.T) {
	s := newTestStorage(t)
	session := uuid.NewString()
	now := time.Now()

	kinds := []EventKind{EventCreated, EventTriggered, EventRemoved}
	for i, k := range kinds {
		ev := AlertEvent{
			SessionID:  session,
			AlertID:    1,
			Market:     "ERCOT",
			Condition:  models.Above,
			Value:      50,
			Kind:       k,
			RecordedAt: now.Add(time.Duration(i) * time.Second),
		}
		if err := s.RecordAlertEvent(ev); err != nil {
			t.Fatalf("RecordAlertEvent: %v", err)
		}
	}

	events, err := s.AlertEvents(session)
	if err != nil {
		t.Fatalf("AlertEvents: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i, k := range kinds {
		if events[i].Kind != k {
			t.Errorf("event %d kind = %s, want %s", i, events[i].Kind, k)
		}
	}
	if events[0].Condition != models.Above || events[0].Value != 50 {
		t.Errorf("unexpected event payload: %+v", events[0])
	}
	if !events[1].RecordedAt.Equal(now.Add(time.Second)) {
		t.Errorf("recorded_at round trip: got %v", events[1].RecordedAt)
	}
}

func TestStorage_AlertEvents_Empty(t *testing.T) {
	s := newTestStorage(t)
	events, err := s.AlertEvents(uuid.NewString())
	if err != nil {
		t.Fatalf("AlertEvents: %v", err)
	}
	if events == nil || len(events) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", events)
	}
}

func TestStorage_RotateTicks(t *testing.T) {
	s := newTestStorage(t)
	session := uuid.NewString()
	now := time.Now()

	for seq := 1; seq <= 10; seq++ {
		if err := s.RecordTick(session, seq, testTickers(float64(40+seq), 38), now); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.RotateTicks(session, 4); err != nil {
		t.Fatalf("RotateTicks: %v", err)
	}

	n, err := s.CountTicks(session)
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Errorf("expected 4 tick sequences after rotation, got %d", n)
	}
	got, _ := s.RecentPrices(session, "ERCOT", 100)
	if len(got) != 4 || got[0] != 47 || got[3] != 50 {
		t.Errorf("rotation kept wrong ticks: %v", got)
	}
}

func TestStorage_FileBacked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.db")
	s, err := New(path)
	if err != nil {
		t.Fatalf("New(%s): %v", path, err)
	}
	defer func() { _ = s.Close() }()

	if err := s.RecordTick("s", 1, testTickers(45, 38), time.Now()); err != nil {
		t.Fatalf("RecordTick: %v", err)
	}
}

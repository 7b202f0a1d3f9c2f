// Package models defines the core domain entities: market snapshots, alerts, and forecasts.
package models

import (
	"errors"
	"math"
)

// Ticker is the current price/change summary of a single market.
type Ticker struct {
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Change float64 `json:"change"`
}

// PricePoint is one hourly point of a market's intraday price curve.
type PricePoint struct {
	Time  string  `json:"time"`
	Price float64 `json:"price"`
}

// ZonePoint is one daily point of a zonal price series.
type ZonePoint struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

type GasData struct {
	Storage     float64 `json:"storage"`
	FiveYearAvg float64 `json:"five_year_avg"`
	Production  float64 `json:"production"`
}

type RenewablesPoint struct {
	Hour   string  `json:"hour"`
	Wind   float64 `json:"wind"`
	Solar  float64 `json:"solar"`
	Demand float64 `json:"demand"`
}

type CapacityRow struct {
	Zone              string  `json:"zone"`
	ClearingPrice     float64 `json:"clearing_price"`
	AvailableCapacity float64 `json:"available_capacity"`
	PeakDemand        float64 `json:"peak_demand"`
}

type AncillaryRow struct {
	Service  string  `json:"service"`
	Price    float64 `json:"price"`
	Capacity float64 `json:"capacity"`
}

type CorrelationRow struct {
	Name   string  `json:"name"`
	Power  float64 `json:"power"`
	Gas    float64 `json:"gas"`
	Oil    float64 `json:"oil"`
	Coal   float64 `json:"coal"`
	Carbon float64 `json:"carbon"`
}

// Snapshot is the complete market state at one instant.
// A Snapshot is treated as immutable once published: producers build a new value
// for every tick and consumers must not modify the slices or maps it holds.
type Snapshot struct {
	Ticker      []Ticker                `json:"ticker"`
	PriceSeries map[string][]PricePoint `json:"price_series"`
	ZonalSeries map[string][]ZonePoint  `json:"zonal_series"`
	Gas         GasData                 `json:"gas"`
	Renewables  []RenewablesPoint       `json:"renewables"`
	Capacity    []CapacityRow           `json:"capacity"`
	Ancillary   []AncillaryRow          `json:"ancillary"`
	Correlation []CorrelationRow        `json:"correlation"`
}

// Lookup returns the ticker entry with exactly the given name.
func (s *Snapshot) Lookup(name string) (Ticker, bool) {
	for _, t := range s.Ticker {
		if t.Name == name {
			return t, true
		}
	}
	return Ticker{}, false
}

// MarketNames returns ticker names in ticker order.
func (s *Snapshot) MarketNames() []string {
	names := make([]string, 0, len(s.Ticker))
	for _, t := range s.Ticker {
		names = append(names, t.Name)
	}
	return names
}

// Validate checks snapshot field constraints.
func (s *Snapshot) Validate() error {
	seen := make(map[string]bool, len(s.Ticker))
	for _, t := range s.Ticker {
		if t.Name == "" {
			return errors.New("ticker name must not be empty")
		}
		if seen[t.Name] {
			return errors.New("ticker names must be unique: " + t.Name)
		}
		seen[t.Name] = true
		if t.Price < 0 || math.IsNaN(t.Price) {
			return errors.New("ticker price must not be negative: " + t.Name)
		}
	}
	for market, series := range s.PriceSeries {
		for _, p := range series {
			if p.Price < 0 {
				return errors.New("series price must not be negative: " + market)
			}
		}
	}
	for _, r := range s.Renewables {
		if r.Wind < 0 || r.Solar < 0 || r.Demand < 0 {
			return errors.New("renewables values must not be negative: " + r.Hour)
		}
	}
	return nil
}

// PriceStats tracks running statistics of a market's ticker price over a session.
type PriceStats struct {
	Market string
	Count  int
	Mean   float64
	M2     float64
	Min    float64
	Max    float64
	Last   float64
}

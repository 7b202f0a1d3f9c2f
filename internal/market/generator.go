// Package market simulates live energy-market data.
package market

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/rewired-gh/gridpulse/internal/models"
)

// DefaultPriceFloor is the lowest price a tick may produce.
const DefaultPriceFloor = 20.0

const (
	hoursPerDay = 24
	zoneDays    = 7
)

type priceRange struct {
	name  string
	base  float64
	span  float64
	price float64
	chg   float64
}

// Initial ticker values and intraday ranges, in ticker order.
var markets = []priceRange{
	{name: "ERCOT", base: 30, span: 40, price: 45.75, chg: 2.50},
	{name: "PJM", base: 25, span: 30, price: 38.20, chg: -1.15},
	{name: "MISO", base: 28, span: 20, price: 35.50, chg: 0.75},
	{name: "CAISO", base: 45, span: 50, price: 55.10, chg: 5.30},
	{name: "NYISO", base: 35, span: 35, price: 42.80, chg: -0.90},
	{name: "SPP", base: 25, span: 25, price: 33.90, chg: 1.20},
	{name: "ISONE", base: 40, span: 40, price: 48.60, chg: -2.40},
}

var zones = []struct {
	name string
	base float64
}{
	{"WEST", 38},
	{"EAST", 42},
	{"COMED", 35},
}

// Config controls the generator.
type Config struct {
	PriceFloor float64
	Seed       uint64
}

// Generator produces synthetic snapshots. It is not safe for concurrent use;
// a single goroutine should own it.
type Generator struct {
	rng   *rand.Rand
	floor float64
}

// New creates a generator. A zero seed draws a random one.
func New(cfg Config) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	floor := cfg.PriceFloor
	if floor <= 0 {
		floor = DefaultPriceFloor
	}
	return &Generator{
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		floor: floor,
	}
}

// PriceFloor returns the minimum price ticks will produce.
func (g *Generator) PriceFloor() float64 {
	return g.floor
}

func hourLabel(h int) string {
	return fmt.Sprintf("%02d:00", h)
}

// Initialize builds a randomized, structurally complete snapshot.
func (g *Generator) Initialize() models.Snapshot {
	snap := models.Snapshot{
		Ticker:      make([]models.Ticker, 0, len(markets)),
		PriceSeries: make(map[string][]models.PricePoint, len(markets)),
		ZonalSeries: make(map[string][]models.ZonePoint, len(zones)),
		Gas: models.GasData{
			Storage:     2850,
			FiveYearAvg: 2600,
			Production:  102.5,
		},
		Renewables: make([]models.RenewablesPoint, 0, hoursPerDay),
		Capacity: []models.CapacityRow{
			{Zone: "PJM-RTO", ClearingPrice: 3.45, AvailableCapacity: 155000, PeakDemand: 145000},
			{Zone: "NYISO-NYC", ClearingPrice: 8.75, AvailableCapacity: 12000, PeakDemand: 11500},
			{Zone: "ISO-NE-CT", ClearingPrice: 6.20, AvailableCapacity: 8500, PeakDemand: 8000},
		},
		Ancillary: []models.AncillaryRow{
			{Service: "Regulation", Price: 15.50, Capacity: 500},
			{Service: "Spinning Reserve", Price: 8.25, Capacity: 1200},
			{Service: "Non-Spinning Reserve", Price: 5.75, Capacity: 2500},
		},
		Correlation: []models.CorrelationRow{
			{Name: "Power", Power: 1.0, Gas: 0.7, Oil: 0.4, Coal: 0.5, Carbon: 0.3},
			{Name: "Gas", Power: 0.7, Gas: 1.0, Oil: 0.6, Coal: 0.4, Carbon: 0.2},
			{Name: "Oil", Power: 0.4, Gas: 0.6, Oil: 1.0, Coal: 0.3, Carbon: 0.1},
			{Name: "Coal", Power: 0.5, Gas: 0.4, Oil: 0.3, Coal: 1.0, Carbon: 0.2},
			{Name: "Carbon", Power: 0.3, Gas: 0.2, Oil: 0.1, Coal: 0.2, Carbon: 1.0},
		},
	}

	for _, m := range markets {
		snap.Ticker = append(snap.Ticker, models.Ticker{Name: m.name, Price: m.price, Change: m.chg})

		series := make([]models.PricePoint, hoursPerDay)
		for h := range series {
			series[h] = models.PricePoint{Time: hourLabel(h), Price: m.base + g.rng.Float64()*m.span}
		}
		snap.PriceSeries[m.name] = series
	}

	for _, z := range zones {
		series := make([]models.ZonePoint, zoneDays)
		for d := range series {
			series[d] = models.ZonePoint{
				Date:  fmt.Sprintf("D-%d", d),
				Price: z.base + (g.rng.Float64()-0.5)*5,
			}
		}
		snap.ZonalSeries[z.name] = series
	}

	for h := 0; h < hoursPerDay; h++ {
		var solar float64
		if h > 5 && h < 20 {
			solar = math.Sin(float64(h-6)/14*math.Pi) * 8000
		}
		snap.Renewables = append(snap.Renewables, models.RenewablesPoint{
			Hour:   hourLabel(h),
			Wind:   5000 + g.rng.Float64()*2000,
			Solar:  solar,
			Demand: 40000 + g.rng.Float64()*10000 + math.Sin(float64(h)/12*math.Pi)*5000,
		})
	}

	return snap
}

// Tick derives the next snapshot from prev without modifying prev.
// Ticker prices move by a small, slightly upward-biased random delta and never fall
// below the price floor. Each intraday series keeps its length; only the last point
// takes the market's new ticker price. Gas production drifts; everything else is
// carried over unchanged.
func (g *Generator) Tick(prev models.Snapshot) models.Snapshot {
	next := prev

	next.Ticker = make([]models.Ticker, len(prev.Ticker))
	latest := make(map[string]float64, len(prev.Ticker))
	for i, t := range prev.Ticker {
		delta := (g.rng.Float64() - 0.45) * 2
		price := math.Max(g.floor, t.Price+delta)
		next.Ticker[i] = models.Ticker{Name: t.Name, Price: price, Change: price - t.Price}
		latest[t.Name] = price
	}

	next.PriceSeries = make(map[string][]models.PricePoint, len(prev.PriceSeries))
	for name, series := range prev.PriceSeries {
		if len(series) == 0 {
			next.PriceSeries[name] = []models.PricePoint{}
			continue
		}
		updated := make([]models.PricePoint, len(series))
		copy(updated, series)
		if price, ok := latest[name]; ok {
			updated[len(updated)-1].Price = price
		}
		next.PriceSeries[name] = updated
	}

	next.Gas.Production = prev.Gas.Production + (g.rng.Float64()-0.5)*0.1

	return next
}

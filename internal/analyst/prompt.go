package analyst

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rewired-gh/gridpulse/internal/models"
)

const forecastPrompt = `Generate a five-year forecast of US average electricity prices ($/MWh) and Henry Hub
natural gas prices ($/MMBtu), one entry per year, and a short analysis of the drivers.
Reply with a JSON object of the form
{"forecastData":[{"year":2027,"electricityPrice":0.0,"gasPrice":0.0}],"analysis":"..."}.`

func analysisPrompt(snap models.Snapshot) string {
	var b strings.Builder
	b.WriteString("Summarize the key trends in this energy market data in two or three sentences, ")
	b.WriteString("focusing on the largest price move and renewable generation.\n\nTicker:\n")
	for _, t := range snap.Ticker {
		fmt.Fprintf(&b, "- %s: $%.2f (%+.2f)\n", t.Name, t.Price, t.Change)
	}
	if n := len(snap.Renewables); n > 0 {
		r := snap.Renewables[n-1]
		fmt.Fprintf(&b, "Renewables (%s): wind %.0f MW, solar %.0f MW, demand %.0f MW\n", r.Hour, r.Wind, r.Solar, r.Demand)
	} else {
		b.WriteString("Renewables: N/A\n")
	}
	fmt.Fprintf(&b, "Gas production: %.2f Bcf/d\n", snap.Gas.Production)
	return b.String()
}

func chatPrompt(question string, snap models.Snapshot) string {
	data, err := json.Marshal(struct {
		Ticker     []models.Ticker          `json:"ticker"`
		Gas        models.GasData           `json:"gas"`
		Renewables []models.RenewablesPoint `json:"renewables"`
		Capacity   []models.CapacityRow     `json:"capacity"`
	}{snap.Ticker, snap.Gas, snap.Renewables, snap.Capacity})
	if err != nil {
		data = []byte("{}")
	}
	return fmt.Sprintf("CONTEXT: %s\nQUESTION: %q", data, question)
}

package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rewired-gh/gridpulse/internal/alerts"
	"github.com/rewired-gh/gridpulse/internal/models"
	"github.com/rewired-gh/gridpulse/internal/monitor"
	"github.com/rewired-gh/gridpulse/internal/notification"
)

// Dashboard is the market session as seen by bot commands.
type Dashboard interface {
	Snapshot() (models.Snapshot, bool)
	Alerts() []models.Alert
	AddAlert(market string, cond models.Condition, value float64) (int, error)
	RemoveAlert(id int) bool
	Notifications() *notification.Surface
	Stats() []models.PriceStats
}

// Analyst produces AI commentary. Implementations return fallback text rather than errors
// for analysis and chat.
type Analyst interface {
	MarketAnalysis(ctx context.Context, snap models.Snapshot) string
	Chat(ctx context.Context, question string, snap *models.Snapshot) string
	Forecast(ctx context.Context) (models.Forecast, error)
}

const (
	loadingText      = "Market data is loading, try again in a moment."
	invalidAlertText = "Please provide a valid market and a positive numeric value for the alert."
	analystOffText   = "The AI analyst is disabled."
	forecastFailText = "Failed to generate long-term forecast from AI."
)

const helpText = `Commands:
/ticker - current prices
/markets - market names
/alerts - all alerts
/alert <market> <above|below> <value> - add an alert
/remove <id> - remove an alert
/notifications - triggered alerts
/dismiss <id> - dismiss a notification
/stats - session price statistics
/analysis - AI market summary
/ask <question> - ask the AI analyst
/forecast - five-year AI forecast
/ping - liveness check`

// Commands maps bot commands onto the dashboard. It produces plain-text replies.
type Commands struct {
	dash    Dashboard
	analyst Analyst
}

// NewCommands creates a command handler. analyst may be nil.
func NewCommands(dash Dashboard, analyst Analyst) *Commands {
	return &Commands{dash: dash, analyst: analyst}
}

// Handle runs one command and returns the reply text.
func (c *Commands) Handle(ctx context.Context, command, args string) string {
	args = strings.TrimSpace(args)
	switch command {
	case "ping":
		return "Pong"
	case "start", "help":
		return helpText
	case "ticker":
		return c.ticker()
	case "markets":
		return c.markets()
	case "alerts":
		return c.alerts()
	case "alert":
		return c.addAlert(args)
	case "remove":
		return c.remove(args, false)
	case "dismiss":
		return c.remove(args, true)
	case "notifications":
		return c.notifications()
	case "stats":
		return c.stats()
	case "analysis":
		return c.analysis(ctx)
	case "ask":
		return c.ask(ctx, args)
	case "forecast":
		return c.forecast(ctx)
	default:
		return fmt.Sprintf("Unknown command /%s.\n\n%s", command, helpText)
	}
}

func (c *Commands) ticker() string {
	snap, ok := c.dash.Snapshot()
	if !ok {
		return loadingText
	}
	var b strings.Builder
	for _, t := range snap.Ticker {
		fmt.Fprintf(&b, "%-6s $%7.2f  %+.2f\n", t.Name, t.Price, t.Change)
	}
	fmt.Fprintf(&b, "Gas production: %.2f Bcf/d", snap.Gas.Production)
	return b.String()
}

func (c *Commands) markets() string {
	snap, ok := c.dash.Snapshot()
	if !ok {
		return loadingText
	}
	return strings.Join(snap.MarketNames(), ", ")
}

func formatAlert(a models.Alert) string {
	state := "pending"
	if a.Triggered {
		state = "TRIGGERED"
	}
	return fmt.Sprintf("#%d %s price goes %s $%.2f [%s]", a.ID, a.Market, a.Condition, a.Value, state)
}

func (c *Commands) alerts() string {
	list := c.dash.Alerts()
	if len(list) == 0 {
		return "No active alerts."
	}
	lines := make([]string, 0, len(list))
	for _, a := range list {
		lines = append(lines, formatAlert(a))
	}
	return strings.Join(lines, "\n")
}

func (c *Commands) addAlert(args string) string {
	fields := strings.Fields(args)
	if len(fields) != 3 {
		return "Usage: /alert <market> <above|below> <value>"
	}

	market, cond, value, err := alerts.ParseInput(strings.ToUpper(fields[0]), fields[1], fields[2])
	if err != nil {
		return fmt.Sprintf("%s (%v)", invalidAlertText, err)
	}
	id, err := c.dash.AddAlert(market, cond, value)
	if err != nil {
		return fmt.Sprintf("%s (%v)", invalidAlertText, err)
	}

	reply := fmt.Sprintf("Alert #%d added: %s price goes %s $%.2f", id, market, cond, value)
	if snap, ok := c.dash.Snapshot(); ok {
		if _, found := snap.Lookup(market); !found {
			reply += fmt.Sprintf("\nNote: %s is not in the current ticker; the alert stays pending until it appears.", market)
		}
	}
	return reply
}

func (c *Commands) remove(args string, dismiss bool) string {
	command, noun := "remove", "Alert"
	if dismiss {
		command, noun = "dismiss", "Notification"
	}

	id, err := strconv.Atoi(strings.TrimPrefix(args, "#"))
	if err != nil {
		return fmt.Sprintf("Usage: /%s <id>", command)
	}

	var removed bool
	if dismiss {
		removed = c.dash.Notifications().Dismiss(id)
	} else {
		removed = c.dash.RemoveAlert(id)
	}
	if !removed {
		return fmt.Sprintf("No alert #%d.", id)
	}
	return fmt.Sprintf("%s #%d removed.", noun, id)
}

func (c *Commands) notifications() string {
	visible := c.dash.Notifications().Visible()
	if len(visible) == 0 {
		return "No notifications."
	}
	lines := make([]string, 0, len(visible))
	for _, a := range visible {
		lines = append(lines, fmt.Sprintf("#%d Market Alert! %s", a.ID, notification.Message(a)))
	}
	return strings.Join(lines, "\n")
}

func (c *Commands) stats() string {
	stats := c.dash.Stats()
	if len(stats) == 0 {
		return loadingText
	}
	var b strings.Builder
	for _, st := range stats {
		fmt.Fprintf(&b, "%-6s n=%d mean=%.2f sd=%.2f min=%.2f max=%.2f last=%.2f\n",
			st.Market, st.Count, st.Mean, monitor.GetSigma(&st), st.Min, st.Max, st.Last)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (c *Commands) analysis(ctx context.Context) string {
	if c.analyst == nil {
		return analystOffText
	}
	snap, ok := c.dash.Snapshot()
	if !ok {
		return loadingText
	}
	return c.analyst.MarketAnalysis(ctx, snap)
}

func (c *Commands) ask(ctx context.Context, question string) string {
	if c.analyst == nil {
		return analystOffText
	}
	if question == "" {
		return "Usage: /ask <question>"
	}
	var snapPtr *models.Snapshot
	if snap, ok := c.dash.Snapshot(); ok {
		snapPtr = &snap
	}
	return c.analyst.Chat(ctx, question, snapPtr)
}

func (c *Commands) forecast(ctx context.Context) string {
	if c.analyst == nil {
		return analystOffText
	}
	f, err := c.analyst.Forecast(ctx)
	if err != nil {
		return forecastFailText
	}
	var b strings.Builder
	b.WriteString("Year  Power $/MWh  Gas $/MMBtu\n")
	for _, p := range f.ForecastData {
		fmt.Fprintf(&b, "%d  %10.2f  %11.2f\n", p.Year, p.ElectricityPrice, p.GasPrice)
	}
	b.WriteString("\n")
	b.WriteString(f.Analysis)
	return b.String()
}

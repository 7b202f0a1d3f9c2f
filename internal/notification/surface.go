// Package notification derives the dismissible notification list from triggered alerts.
package notification

import (
	"fmt"

	"github.com/rewired-gh/gridpulse/internal/models"
)

// AlertStore is the subset of the alert engine the surface needs.
type AlertStore interface {
	Alerts() []models.Alert
	Remove(id int) bool
}

// Visible returns the triggered alerts in collection order.
func Visible(alerts []models.Alert) []models.Alert {
	var out []models.Alert
	for _, a := range alerts {
		if a.Triggered {
			out = append(out, a)
		}
	}
	return out
}

// Message is the user-facing text for a triggered alert.
func Message(a models.Alert) string {
	return fmt.Sprintf("%s price has gone %s $%.2f.", a.Market, a.Condition, a.Value)
}

// Surface is a live view over an alert store. It keeps no copy of its own.
type Surface struct {
	store AlertStore
}

func NewSurface(store AlertStore) *Surface {
	return &Surface{store: store}
}

// Visible returns the current notifications.
func (s *Surface) Visible() []models.Alert {
	return Visible(s.store.Alerts())
}

// Dismiss permanently removes the alert behind a notification.
func (s *Surface) Dismiss(id int) bool {
	return s.store.Remove(id)
}

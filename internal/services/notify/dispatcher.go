// Package notify suppresses repeated alerts per repository and kind within
// a cooldown window.
package notify

import (
	"sync"
	"time"

	"github.com/rmartins/repowatch/internal/logging"
	"github.com/rmartins/repowatch/internal/ports"
)

type suppressionKey struct {
	repositoryID string
	kind         ports.AlertKind
}

// Dispatcher decides whether an alert is shown. Kinds are tracked
// independently: a remote-changes alert never suppresses a fetch-error
// alert for the same repository.
type Dispatcher struct {
	sink     ports.AlertSink
	cooldown time.Duration
	now      func() time.Time

	mu        sync.Mutex
	enabled   bool
	lastShown map[suppressionKey]time.Time
}

// New creates a Dispatcher with alerts enabled.
func New(sink ports.AlertSink, cooldown time.Duration) *Dispatcher {
	return &Dispatcher{
		sink:      sink,
		cooldown:  cooldown,
		now:       time.Now,
		enabled:   true,
		lastShown: make(map[suppressionKey]time.Time),
	}
}

// SetEnabled gates all alerts globally. Suppression state is untouched, so
// an alert suppressed only by the gate fires immediately once re-enabled.
func (d *Dispatcher) SetEnabled(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = enabled
}

// Notify shows the alert unless a matching suppression entry is younger
// than the cooldown window. Returns whether the alert was shown.
func (d *Dispatcher) Notify(alert ports.Alert) bool {
	d.mu.Lock()
	now := d.now()
	d.purge(now)

	if !d.enabled {
		d.mu.Unlock()
		logging.Logger.Debug("Alert gated off",
			"repository", alert.RepositoryID, "kind", alert.Kind)
		return false
	}

	key := suppressionKey{repositoryID: alert.RepositoryID, kind: alert.Kind}
	if last, ok := d.lastShown[key]; ok && now.Sub(last) < d.cooldown {
		d.mu.Unlock()
		logging.Logger.Debug("Alert suppressed",
			"repository", alert.RepositoryID,
			"kind", alert.Kind,
			"last_shown", last)
		return false
	}
	d.lastShown[key] = now
	d.mu.Unlock()

	if err := d.sink.Show(alert); err != nil {
		logging.Logger.Warn("Failed to show alert",
			"repository", alert.RepositoryID,
			"kind", alert.Kind,
			"error", err)
	}
	logging.Logger.Info("Alert shown",
		"repository", alert.RepositoryID, "kind", alert.Kind)
	return true
}

// purge drops entries unused for longer than twice the cooldown window.
// Caller holds the mutex.
func (d *Dispatcher) purge(now time.Time) {
	for key, last := range d.lastShown {
		if now.Sub(last) > 2*d.cooldown {
			delete(d.lastShown, key)
		}
	}
}

// Package notifysvc delivers alerts to users.
package notifysvc

import (
	"fmt"
	"sync"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/alert"
)

type consoleNotifier struct {
	logger core.Logger

	mu   sync.Mutex
	sent []alert.Alert
}

var _ alert.Notifier = (*consoleNotifier)(nil)

// NewConsoleNotifier logs alerts instead of delivering them; for development
// and tests.
func NewConsoleNotifier(logger core.Logger) *consoleNotifier {
	return &consoleNotifier{logger: logger}
}

func (n *consoleNotifier) Notify(alerts ...alert.Alert) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, a := range alerts {
		n.sent = append(n.sent, a)
		n.logger.Info(
			fmt.Sprintf("[%s] %s (%s): %s -> %s", a.Kind, a.Title, a.Priority, a.Body, a.User.Email),
		)
	}
}

// Sent returns a copy of all alerts notified so far.
func (n *consoleNotifier) Sent() []alert.Alert {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]alert.Alert, len(n.sent))
	copy(out, n.sent)
	return out
}

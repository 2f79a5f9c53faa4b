// Package audit writes one JSON line per security-relevant change to the
// installation directory.
package audit

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Actions.
const (
	ActionLinked     = "installation.linked"
	ActionRelinked   = "installation.relinked"
	ActionLinkDenied = "installation.link_denied"
)

// Event represents an audit log event.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Account   string    `json:"account,omitempty"`
	Target    string    `json:"target,omitempty"`  // installation id
	Details   string    `json:"details,omitempty"` // e.g. the replaced installation id
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

var (
	mu          sync.Mutex
	auditLogger = zerolog.New(os.Stdout)
)

// SetOutput redirects audit events, e.g. to a dedicated file.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	auditLogger = zerolog.New(w)
}

// Log records an audit event.
func Log(action, account, target, details string, success bool, err error) {
	event := Event{
		Timestamp: time.Now().UTC(),
		Action:    action,
		Account:   account,
		Target:    target,
		Details:   details,
		Success:   success,
	}
	if err != nil {
		event.Error = err.Error()
	}

	mu.Lock()
	defer mu.Unlock()

	auditLogger.Log().Interface("audit_event", event).Msg("")
}

// Package override carries manual commands from remote operators to the
// state machine: at most one pending command, the latest one wins, and
// it is consumed by the tick that reads it.
package override

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Command is a manual override.
type Command string

const (
	None       Command = "none"
	ForceClean Command = "force_clean"
	StopAll    Command = "stop_all"
	Resume     Command = "resume"
)

// ErrUnknownCommand reports an override value that is not recognised.
var ErrUnknownCommand = errors.New("unknown override command")

// Known reports whether c is one of the defined commands.
func (c Command) Known() bool {
	switch c {
	case None, ForceClean, StopAll, Resume:
		return true
	}
	return false
}

// Parse converts user input into a Command. Matching ignores case and
// surrounding whitespace (and quotes, for raw JSON string payloads);
// an empty value is None.
func Parse(s string) (Command, error) {
	v := strings.ToLower(strings.Trim(strings.TrimSpace(s), `"`))
	if v == "" {
		return None, nil
	}
	c := Command(v)
	if !c.Known() {
		return None, fmt.Errorf("%w: %q", ErrUnknownCommand, s)
	}
	return c, nil
}

// Source is the override side of the remote collaborator.
type Source interface {
	// Fetch returns the pending command, or None, and clears it.
	Fetch() Command
}

// Mailbox is a single-slot, thread-safe Source. Writers are the MQTT
// link and the web API; the reader is the tick.
type Mailbox struct {
	mu      sync.Mutex
	pending Command
}

// NewMailbox returns an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{}
}

// Post stores c, replacing any command not yet fetched. Posting None
// clears the slot. Unknown commands are stored as-is so the machine can
// report them.
func (m *Mailbox) Post(c Command) {
	m.mu.Lock()
	m.pending = c
	m.mu.Unlock()
}

// PostString parses s and posts the result.
func (m *Mailbox) PostString(s string) error {
	c, err := Parse(s)
	if err != nil {
		return err
	}
	m.Post(c)
	return nil
}

// Pending returns the waiting command without consuming it.
func (m *Mailbox) Pending() Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == "" {
		return None
	}
	return m.pending
}

// Fetch implements Source.
func (m *Mailbox) Fetch() Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.pending
	m.pending = None
	if c == "" {
		return None
	}
	return c
}

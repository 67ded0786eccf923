package web

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cjeanneret/SolGo/internal/telemetry"
)

// StateHub is the web side of telemetry: it keeps the last published
// status for GET /state and pushes every status to websocket clients.
// Log lines go to the SSE log stream.
type StateHub struct {
	logs   *StatusBroadcaster
	states *StatusBroadcaster

	mu   sync.RWMutex
	last []byte
}

// NewStateHub returns a hub that reports log lines on logs.
func NewStateHub(logs *StatusBroadcaster) *StateHub {
	return &StateHub{logs: logs, states: NewStatusBroadcaster()}
}

func (h *StateHub) PublishState(_ context.Context, st telemetry.Status) error {
	b, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	h.mu.Lock()
	h.last = b
	h.mu.Unlock()
	h.states.Publish(string(b))
	return nil
}

func (h *StateHub) Log(_ context.Context, msg string) error {
	h.logs.Broadcast(LevelWarn, msg)
	return nil
}

// Last returns the last published status as JSON, or nil before the first tick.
func (h *StateHub) Last() []byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last
}

// Subscribe streams status JSON documents.
func (h *StateHub) Subscribe() (<-chan string, func()) {
	return h.states.Subscribe()
}

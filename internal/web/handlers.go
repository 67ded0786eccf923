package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/cjeanneret/SolGo/internal/config"
	"github.com/cjeanneret/SolGo/internal/debug"
	"github.com/cjeanneret/SolGo/internal/override"
)

const maxOverrideBody = 1 << 10

// OverrideRequest is the body of POST /override.
type OverrideRequest struct {
	Command string `json:"command"`
}

// ConfigView is what GET /config exposes: the decision parameters,
// never credentials.
type ConfigView struct {
	Thresholds  config.ThresholdsConfig `json:"thresholds"`
	Site        config.SiteConfig       `json:"site"`
	Reservoir   config.ReservoirConfig  `json:"reservoir"`
	TickMs      int                     `json:"tick_ms"`
	WashCycleMs int                     `json:"wash_cycle_ms"`
	MockGPIO    bool                    `json:"mock_gpio"`
	MQTT        bool                    `json:"mqtt"`
	Kafka       bool                    `json:"kafka"`
	Influx      bool                    `json:"influx"`
}

// NewConfigView extracts the public part of cfg.
func NewConfigView(cfg *config.Config) ConfigView {
	return ConfigView{
		Thresholds:  cfg.Thresholds,
		Site:        cfg.Site,
		Reservoir:   cfg.Reservoir,
		TickMs:      cfg.Defaults.TickMs,
		WashCycleMs: cfg.Washer.CycleMs,
		MockGPIO:    cfg.Defaults.MockGPIO,
		MQTT:        cfg.MQTT.Enabled,
		Kafka:       cfg.Kafka.Enabled,
		Influx:      cfg.Influx.Enabled,
	}
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster *StatusBroadcaster
	States      *StateHub
	Mailbox     *override.Mailbox
	Config      ConfigView

	limiter  *rate.Limiter
	upgrader websocket.Upgrader
}

// NewHandlers creates handlers with the given dependencies.
// overridesPerMin bounds POST /override and websocket commands together.
func NewHandlers(broadcaster *StatusBroadcaster, states *StateHub, mailbox *override.Mailbox, cfg ConfigView, overridesPerMin int) *Handlers {
	if overridesPerMin <= 0 {
		overridesPerMin = 30
	}
	return &Handlers{
		Broadcaster: broadcaster,
		States:      states,
		Mailbox:     mailbox,
		Config:      cfg,
		limiter:     rate.NewLimiter(rate.Every(time.Minute/time.Duration(overridesPerMin)), 3),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// HandleConfig returns the decision parameters as JSON.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Config)
}

// HandleState returns the last published status.
func (h *Handlers) HandleState(w http.ResponseWriter, r *http.Request) {
	last := h.States.Last()
	if last == nil {
		http.Error(w, "no state published yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(last)
}

// HandleOverride queues a manual command for the next tick.
// Accepts {"command":"stop_all"} or a bare command as text/plain.
func (h *Handlers) HandleOverride(w http.ResponseWriter, r *http.Request) {
	if !h.limiter.Allow() {
		http.Error(w, "too many overrides, slow down", http.StatusTooManyRequests)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxOverrideBody))
	if err != nil {
		http.Error(w, "cannot read body", http.StatusBadRequest)
		return
	}
	raw := strings.TrimSpace(string(body))
	if strings.HasPrefix(raw, "{") {
		var req OverrideRequest
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}
		raw = req.Command
	}

	cmd, err := override.Parse(raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if cmd == override.None {
		http.Error(w, "missing override command", http.StatusBadRequest)
		return
	}
	h.Mailbox.Post(cmd)
	debug.Info("Web: override %q queued", cmd)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "command": string(cmd)})
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	// Send initial comment to establish connection
	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// HandleStateSocket handles GET /ws: it sends the current status, then
// every new one. Clients may send {"command":"..."} to post an override.
func (h *Handlers) HandleStateSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		debug.Error(err)
		return
	}
	defer conn.Close()

	ch, unsub := h.States.Subscribe()
	defer unsub()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			var req OverrideRequest
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			h.socketCommand(req)
		}
	}()

	if last := h.States.Last(); last != nil {
		if err := conn.WriteMessage(websocket.TextMessage, last); err != nil {
			return
		}
	}
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (h *Handlers) socketCommand(req OverrideRequest) {
	if !h.limiter.Allow() {
		debug.Verbose("Web: websocket override rate limited")
		return
	}
	cmd, err := override.Parse(req.Command)
	if err != nil {
		if errors.Is(err, override.ErrUnknownCommand) {
			debug.Info("Web: %v", err)
		}
		return
	}
	if cmd == override.None {
		return
	}
	h.Mailbox.Post(cmd)
	debug.Info("Web: override %q queued from websocket", cmd)
}

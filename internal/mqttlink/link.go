// Package mqttlink connects the controller to an MQTT broker: operators
// post overrides, a weather station and power meter post readings, and
// the controller publishes its state and log lines.
package mqttlink

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/cjeanneret/SolGo/internal/config"
	"github.com/cjeanneret/SolGo/internal/debug"
	"github.com/cjeanneret/SolGo/internal/hw/sensors"
	"github.com/cjeanneret/SolGo/internal/override"
	"github.com/cjeanneret/SolGo/internal/telemetry"
)

const (
	qosAtLeastOnce = 1
	disconnectMs   = 250
)

// LogEntry is the payload published on the log topic.
type LogEntry struct {
	Description string    `json:"description"`
	Time        time.Time `json:"time"`
}

// Link is both an override producer (into a Mailbox) and a telemetry.Sink.
type Link struct {
	client  mqtt.Client
	cfg     config.MQTTConfig
	mailbox *override.Mailbox
	feed    *sensors.Feed
	timeout time.Duration
}

// New builds a link; feed may be nil when sensors are simulated.
// Subscriptions are (re)made on every connect, so they survive
// automatic reconnection.
func New(cfg config.MQTTConfig, mailbox *override.Mailbox, feed *sensors.Feed) *Link {
	l := &Link{cfg: cfg, mailbox: mailbox, feed: feed, timeout: 5 * time.Second}
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetOnConnectHandler(l.subscribe).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			debug.Error(fmt.Errorf("mqtt connection lost: %w", err))
		})
	l.client = mqtt.NewClient(opts)
	return l
}

func newLink(client mqtt.Client, cfg config.MQTTConfig, mailbox *override.Mailbox, feed *sensors.Feed) *Link {
	return &Link{client: client, cfg: cfg, mailbox: mailbox, feed: feed, timeout: time.Second}
}

// Run connects and holds the connection until ctx is cancelled.
func (l *Link) Run(ctx context.Context) error {
	debug.Info("MQTT: connecting to %s as %s", l.cfg.Broker, l.cfg.ClientID)
	tok := l.client.Connect()
	select {
	case <-tok.Done():
		if err := tok.Error(); err != nil {
			return fmt.Errorf("mqtt connect %s: %w", l.cfg.Broker, err)
		}
	case <-ctx.Done():
		l.client.Disconnect(disconnectMs)
		return nil
	}
	<-ctx.Done()
	debug.Info("MQTT: disconnecting")
	l.client.Disconnect(disconnectMs)
	return nil
}

func (l *Link) subscribe(c mqtt.Client) {
	routes := map[string]mqtt.MessageHandler{
		l.cfg.OverrideTopic: l.onOverride,
	}
	if l.feed != nil {
		routes[l.cfg.WindSpeedTopic] = l.onReading(l.feed.SetWindSpeed)
		routes[l.cfg.WindDirectionTopic] = l.onReading(l.feed.SetWindDirection)
		routes[l.cfg.DustTopic] = l.onReading(l.feed.SetDustPercentage)
	}
	for topic, h := range routes {
		if topic == "" {
			continue
		}
		tok := c.Subscribe(topic, qosAtLeastOnce, h)
		if !tok.WaitTimeout(l.timeout) {
			debug.Error(fmt.Errorf("mqtt subscribe %s: timed out", topic))
			continue
		}
		if err := tok.Error(); err != nil {
			debug.Error(fmt.Errorf("mqtt subscribe %s: %w", topic, err))
			continue
		}
		debug.Verbose("MQTT: subscribed to %s", topic)
	}
}

// onOverride accepts either a bare command ("stop_all") or a JSON object
// {"command": "stop_all"}. Unrecognised commands are still posted so
// the state machine reports them.
func (l *Link) onOverride(_ mqtt.Client, msg mqtt.Message) {
	raw := strings.TrimSpace(string(msg.Payload()))
	var obj struct {
		Command string `json:"command"`
	}
	if strings.HasPrefix(raw, "{") {
		if err := json.Unmarshal([]byte(raw), &obj); err != nil {
			debug.Error(fmt.Errorf("mqtt override payload: %w", err))
			return
		}
		raw = obj.Command
	}
	cmd, err := override.Parse(raw)
	if err != nil {
		debug.Verbose("MQTT: %v", err)
		cmd = override.Command(strings.ToLower(strings.Trim(raw, `"`)))
	}
	if cmd == override.None {
		return
	}
	debug.Info("MQTT: override %q received on %s", cmd, msg.Topic())
	l.mailbox.Post(cmd)
}

func (l *Link) onReading(set func(float64)) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		v, err := strconv.ParseFloat(strings.TrimSpace(string(msg.Payload())), 64)
		if err != nil {
			debug.Error(fmt.Errorf("mqtt reading on %s: %w", msg.Topic(), err))
			return
		}
		debug.Trace("MQTT: %s = %v", msg.Topic(), v)
		set(v)
	}
}

// PublishState publishes the status, retained, so new subscribers see
// the current state at once.
func (l *Link) PublishState(_ context.Context, st telemetry.Status) error {
	b, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return l.publish(l.cfg.StateTopic, true, b)
}

func (l *Link) Log(_ context.Context, msg string) error {
	b, err := json.Marshal(LogEntry{Description: msg, Time: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal log: %w", err)
	}
	return l.publish(l.cfg.LogTopic, false, b)
}

func (l *Link) publish(topic string, retained bool, payload []byte) error {
	if !l.client.IsConnectionOpen() {
		return fmt.Errorf("mqtt publish %s: not connected", topic)
	}
	tok := l.client.Publish(topic, qosAtLeastOnce, retained, payload)
	if !tok.WaitTimeout(l.timeout) {
		return fmt.Errorf("mqtt publish %s: timed out", topic)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", topic, err)
	}
	return nil
}

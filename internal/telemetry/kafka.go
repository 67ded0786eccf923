package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Event is one record on the Kafka stream.
type Event struct {
	ID                 string     `json:"id"`
	RunID              string     `json:"runId"`
	Type               string     `json:"type"` // "state" or "log"
	Time               time.Time  `json:"time"`
	CurrentState       string     `json:"currentState,omitempty"`
	WindCleanStartTime *time.Time `json:"windCleanStartTime,omitempty"`
	WaterLiters        *float64   `json:"waterLiters,omitempty"`
	Message            string     `json:"message,omitempty"`
}

// messageWriter is the subset of *kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink streams state changes and log lines as JSON events, keyed by
// the run ID so a run stays on one partition and in order.
type KafkaSink struct {
	w       messageWriter
	runID   string
	timeout time.Duration

	mu   sync.Mutex
	last *Snapshot
}

// kafkaBatchTimeout is how long a synchronous write waits for its batch
// to fill. It runs inside the tick.
const kafkaBatchTimeout = 5 * time.Millisecond

// NewKafkaSink returns a sink writing to topic on brokers.
func NewKafkaSink(brokers []string, topic, runID string) *KafkaSink {
	return newKafkaSink(newKafkaWriter(brokers, topic), runID)
}

func newKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: kafkaBatchTimeout,
	}
}

func newKafkaSink(w messageWriter, runID string) *KafkaSink {
	return &KafkaSink{w: w, runID: runID, timeout: 500 * time.Millisecond}
}

// PublishState emits an event when the snapshot differs from the last one sent.
func (k *KafkaSink) PublishState(ctx context.Context, st Status) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.last != nil && k.last.Equal(st.Snapshot) {
		return nil
	}
	water := st.WaterLiters
	ev := k.event("state", st.Time)
	ev.CurrentState = st.CurrentState
	ev.WindCleanStartTime = st.WindCleanStartTime
	ev.WaterLiters = &water
	if err := k.write(ctx, ev); err != nil {
		return err
	}
	snap := st.Snapshot
	k.last = &snap
	return nil
}

func (k *KafkaSink) Log(ctx context.Context, msg string) error {
	ev := k.event("log", time.Now())
	ev.Message = msg
	return k.write(ctx, ev)
}

func (k *KafkaSink) event(typ string, at time.Time) Event {
	return Event{
		ID:    uuid.NewString(),
		RunID: k.runID,
		Type:  typ,
		Time:  at.UTC(),
	}
}

func (k *KafkaSink) write(ctx context.Context, ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Type, err)
	}
	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()
	if err := k.w.WriteMessages(ctx, kafka.Message{Key: []byte(k.runID), Value: b, Time: ev.Time}); err != nil {
		return fmt.Errorf("kafka %s event: %w", ev.Type, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (k *KafkaSink) Close() error {
	return k.w.Close()
}

package web

import (
	"encoding/json"
	"testing"
	"time"
)

func receive(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for broadcast")
		return ""
	}
}

func receiveEvent(t *testing.T, ch <-chan string) StatusEvent {
	t.Helper()
	var evt StatusEvent
	if err := json.Unmarshal([]byte(receive(t, ch)), &evt); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return evt
}

func TestBroadcaster_AllSubscribersReceive(t *testing.T) {
	b := NewStatusBroadcaster()
	ch1, unsub1 := b.Subscribe()
	defer unsub1()
	ch2, unsub2 := b.Subscribe()
	defer unsub2()

	b.Broadcast(LevelWarn, "reservoir low")

	for i, ch := range []<-chan string{ch1, ch2} {
		evt := receiveEvent(t, ch)
		if evt.Msg != "reservoir low" || evt.Level != LevelWarn || evt.Time == "" {
			t.Errorf("subscriber %d: event = %+v", i, evt)
		}
	}
}

func TestBroadcaster_PublishIsRaw(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	b.Publish(`{"currentState":"IDLE"}`)

	if got := receive(t, ch); got != `{"currentState":"IDLE"}` {
		t.Errorf("payload = %q", got)
	}
}

func TestBroadcaster_UnsubscribeIsIdempotent(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	if b.Subscribers() != 1 {
		t.Fatalf("Subscribers() = %d", b.Subscribers())
	}
	unsub()
	unsub()

	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed after unsubscribe")
	}
	if b.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d after unsubscribe", b.Subscribers())
	}
	b.BroadcastMsg("after unsub")
}

func TestBroadcaster_FullChannelDropsMessage(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	for i := 0; i < 65; i++ {
		b.BroadcastMsg("fill")
	}

	count := 0
	for len(ch) > 0 {
		<-ch
		count++
	}
	if count != 64 {
		t.Errorf("expected 64 buffered messages, got %d", count)
	}
}

func TestBroadcastWriter_SplitsLinesAndLevels(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	w := BroadcastWriter(b)
	in := "[SolGo] State: SUN_TRACKING -> IDLE\n\n  [SolGo] [WARN] WARNING: Water reservoir empty or cleaning failed.  \n[SolGo] [ERROR] relay stuck\n"
	n, err := w.Write([]byte(in))
	if err != nil || n != len(in) {
		t.Fatalf("Write() = %d, %v", n, err)
	}

	want := []StatusEvent{
		{Level: LevelInfo, Msg: "[SolGo] State: SUN_TRACKING -> IDLE"},
		{Level: LevelWarn, Msg: "[SolGo] [WARN] WARNING: Water reservoir empty or cleaning failed."},
		{Level: LevelError, Msg: "[SolGo] [ERROR] relay stuck"},
	}
	for i, w := range want {
		got := receiveEvent(t, ch)
		if got.Level != w.Level || got.Msg != w.Msg {
			t.Errorf("event %d = %+v, want %+v", i, got, w)
		}
	}
	if len(ch) != 0 {
		t.Errorf("blank lines should not be broadcast, %d extra events", len(ch))
	}
}

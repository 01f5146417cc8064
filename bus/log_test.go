package bus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/evomesh/core"
)

func TestEventLog_AppendReplayRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	log := NewEventLog(path)

	ev1 := core.NewEvent(core.SafeModeActivated, core.SafeModePayload{Reason: "gate refused"})
	ev2 := core.NewEvent(core.StateArchived, nil)
	if err := log.Append(ev1); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := log.Append(ev2); err != nil {
		t.Fatalf("append: %v", err)
	}

	var replayed []core.Event
	if err := log.Replay(func(ev core.Event) { replayed = append(replayed, ev) }); err != nil {
		t.Fatalf("replay: %v", err)
	}

	if len(replayed) != 2 {
		t.Fatalf("expected 2 replayed records, got %d", len(replayed))
	}
	if replayed[0].ID != ev1.ID || replayed[0].Name != core.SafeModeActivated {
		t.Fatalf("first record mismatch: %+v", replayed[0])
	}

	payload, ok := replayed[0].Payload.(core.GenericPayload)
	if !ok {
		t.Fatalf("replayed payload should be generic, got %T", replayed[0].Payload)
	}
	if payload["reason"] != "gate refused" {
		t.Fatalf("payload field lost: %v", payload)
	}
	if replayed[1].Payload != nil {
		t.Fatalf("nil payload should replay as nil, got %v", replayed[1].Payload)
	}
}

func TestEventLog_TolerantReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	raw := `not json at all
{"id":"a","timestamp":"2026-01-02T03:04:05Z","eventName":"evolutionProgress","data":{"k":1},"futureField":true}
{"id":"b","timestamp":"bad-timestamp","eventName":"stateArchived"}
{"id":"c","timestamp":"2026-01-02T03:04:06Z"}
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	var replayed []core.Event
	if err := NewEventLog(path).Replay(func(ev core.Event) { replayed = append(replayed, ev) }); err != nil {
		t.Fatalf("replay: %v", err)
	}

	// malformed line and nameless record dropped, unknown field ignored
	if len(replayed) != 2 {
		t.Fatalf("expected 2 decodable records, got %d", len(replayed))
	}
	if replayed[0].ID != "a" || replayed[0].Payload.(core.GenericPayload)["k"] != float64(1) {
		t.Fatalf("forward-compatible record mishandled: %+v", replayed[0])
	}
	if !replayed[1].Timestamp.IsZero() {
		t.Fatalf("unparseable timestamp should stay zero: %+v", replayed[1])
	}
}

func TestEventLog_MissingFileReplaysNothing(t *testing.T) {
	log := NewEventLog(filepath.Join(t.TempDir(), "absent.jsonl"))
	called := false
	if err := log.Replay(func(core.Event) { called = true }); err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if called {
		t.Fatal("missing file replayed records")
	}
}

func TestChannel_ReplaysEventLogIntoHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	log := NewEventLog(path)

	first := New(func(o *Options) { o.EventLog = log })
	first.Publish(core.SafeModeActivated, core.SafeModePayload{Reason: "x"})
	first.Publish(core.StateArchived, nil)

	// A restarted channel serves replay subscribers from the durable log.
	second := New(func(o *Options) { o.EventLog = log })
	if got := second.GetStatistics().TotalEvents; got != 2 {
		t.Fatalf("expected 2 events after restart, got %d", got)
	}

	var seen []core.Event
	second.SubscribeWithReplay(core.SafeModeActivated, func(ev core.Event) { seen = append(seen, ev) }, 10)
	if len(seen) != 1 {
		t.Fatalf("expected 1 replayed safe mode event, got %d", len(seen))
	}
}

package bus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/hupe1980/evomesh/core"
)

// scanner buffer bound for oversized payload lines.
const maxLogLineBytes = 4 * 1024 * 1024

// EventLog is an append-only JSONL store used to replay events after a
// restart. One record per line: {id, timestamp, eventName, data}. The format
// is forward-compatible: unknown fields in a record are ignored on replay.
type EventLog struct {
	mu   sync.Mutex
	path string
}

// NewEventLog opens (or lazily creates) the log file at path.
func NewEventLog(path string) *EventLog {
	return &EventLog{path: path}
}

// Path returns the backing file location.
func (l *EventLog) Path() string { return l.path }

// Append writes one event record. The payload is embedded under "data" as
// arbitrary JSON so replayers never need the concrete payload type.
func (l *EventLog) Append(ev core.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	base, err := json.Marshal(struct {
		ID        string `json:"id"`
		Timestamp string `json:"timestamp"`
		EventName string `json:"eventName"`
	}{ID: ev.ID, Timestamp: ev.Timestamp.Format(time.RFC3339Nano), EventName: string(ev.Name)})
	if err != nil {
		return fmt.Errorf("failed to encode event record: %w", err)
	}

	line := base
	if ev.Payload != nil {
		line, err = sjson.SetBytes(base, "data", ev.Payload)
		if err != nil {
			return fmt.Errorf("failed to embed event payload: %w", err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open event log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append event record: %w", err)
	}
	return nil
}

// Replay invokes fn for every decodable record, oldest first. Records are
// parsed tolerantly: unknown fields are skipped, payloads come back as
// core.GenericPayload, and malformed lines are dropped rather than aborting
// the replay. A missing log file replays nothing.
func (l *EventLog) Replay(fn func(core.Event)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open event log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLogLineBytes)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 || !gjson.ValidBytes(line) {
			continue
		}

		record := gjson.ParseBytes(line)
		name := record.Get("eventName").String()
		if name == "" {
			continue
		}

		ev := core.Event{
			ID:   record.Get("id").String(),
			Name: core.EventName(name),
		}
		if ts, err := time.Parse(time.RFC3339Nano, record.Get("timestamp").String()); err == nil {
			ev.Timestamp = ts
		}
		if data := record.Get("data"); data.Exists() {
			if m, ok := data.Value().(map[string]any); ok {
				ev.Payload = core.GenericPayload(m)
			}
		}

		fn(ev)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read event log: %w", err)
	}
	return nil
}

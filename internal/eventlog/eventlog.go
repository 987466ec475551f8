// Package eventlog decodes and encodes the append-only job event log.
//
// An event log is a sequence of entries, one compact JSON object per
// line. Each entry carries a timestamp, a mandatory event name, and an
// optional context object:
//
//	{"timestamp":1686583949.2,"name":"submit","context":{"userid":1000}}
//	{"timestamp":1686583950.0,"name":"resource-update","context":{"expiration":100}}
//
// Replay order is log order. The codec is stateless; both the
// authorization gate and the attribute reconstructor consume it.
package eventlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Entry is a single event log record.
type Entry struct {
	// Timestamp is seconds since the epoch, as recorded by the writer.
	Timestamp float64 `json:"timestamp"`

	// Name identifies the event type (e.g. "submit", "resource-update").
	Name string `json:"name"`

	// Context is the optional structured payload. Nil when absent.
	Context map[string]any `json:"context,omitempty"`
}

// MalformedError reports an event log that does not satisfy the entry
// grammar. The line number is 1-based.
type MalformedError struct {
	Line   int
	Reason string
}

func (e *MalformedError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed event log entry at line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("malformed event log: %s", e.Reason)
}

// Decode parses a full event log into its ordered entry sequence.
// An empty log decodes to an empty sequence. Returns *MalformedError
// if any line is not a valid entry.
func Decode(text string) ([]Entry, error) {
	var entries []Entry
	for i, line := range strings.Split(text, "\n") {
		if line == "" {
			continue
		}
		entry, err := DecodeEntry(line)
		if err != nil {
			var me *MalformedError
			if errors.As(err, &me) {
				me.Line = i + 1
			}
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// DecodeEntry parses one event log line.
func DecodeEntry(line string) (Entry, error) {
	var entry Entry
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		return Entry{}, &MalformedError{Reason: err.Error()}
	}
	if entry.Name == "" {
		return Entry{}, &MalformedError{Reason: "missing name field"}
	}
	return entry, nil
}

// EncodeEntry serializes one entry as a single compact JSON line,
// newline terminated. Used by writers and test fixtures; the lookup
// core only decodes.
func EncodeEntry(entry Entry) (string, error) {
	if entry.Name == "" {
		return "", &MalformedError{Reason: "missing name field"}
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return "", err
	}
	return string(data) + "\n", nil
}

// Encode serializes an entry sequence into event log text.
func Encode(entries []Entry) (string, error) {
	var b strings.Builder
	for _, entry := range entries {
		line, err := EncodeEntry(entry)
		if err != nil {
			return "", err
		}
		b.WriteString(line)
	}
	return b.String(), nil
}

// Package current reconstructs an attribute's "current" value by
// replaying update events from the job event log onto the stored base
// snapshot.
//
// This is a restricted event-sourcing replay: entries are visited
// strictly once, in log order, and no rollback ever occurs. The
// derived value is a monotonic accumulation of recognized updates onto
// the base; the stored value itself is never mutated.
package current

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/meridian-hpc/jobmeta/internal/eventlog"
)

// ResourceAttr is the one attribute with a derived "current" form.
// Its updates arrive as resource-update events.
const ResourceAttr = "R"

// resourceUpdateEvent is the update event type for ResourceAttr.
const resourceUpdateEvent = "resource-update"

// expirationPath is where a resource-update's expiration lands inside
// the resource document.
const expirationPath = "execution.expiration"

// ErrMalformedValue indicates the stored base value is not a valid
// structured document. Stored values come from a trusted writer, so
// this is corrupt data, not a transient condition.
var ErrMalformedValue = errors.New("malformed stored value")

// Reconstructable reports whether attr has a derived "current" form.
func Reconstructable(attr string) bool {
	return attr == ResourceAttr
}

// Reconstruct replays applicable update events from entries onto base
// and returns the derived value re-serialized in compact form.
//
// Events whose name is not the update event for attr are skipped.
// Within a recognized update event, unrecognized context fields are
// ignored (new update fields must not break old readers); the skip is
// logged at info level, never fatal.
func Reconstruct(logger *slog.Logger, jobID uint64, attr string, base []byte, entries []eventlog.Entry) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var doc map[string]any
	if err := json.Unmarshal(base, &doc); err != nil {
		return nil, fmt.Errorf("%w for job %d attribute %q: %v", ErrMalformedValue, jobID, attr, err)
	}

	for _, entry := range entries {
		if attr == ResourceAttr && entry.Name == resourceUpdateEvent {
			applyResourceUpdate(logger, jobID, doc, entry.Context)
		}
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("serialize current %q for job %d: %w", attr, jobID, err)
	}
	return out, nil
}

// applyResourceUpdate applies one resource-update event's context.
// The only mutable field is expiration.
func applyResourceUpdate(logger *slog.Logger, jobID uint64, doc map[string]any, context map[string]any) {
	for field, value := range context {
		if field != "expiration" {
			logger.Info("ignoring unrecognized resource-update field",
				"job", jobID, "field", field)
			continue
		}
		if err := setPath(doc, expirationPath, value); err != nil {
			logger.Info("failed to update resource expiration",
				"job", jobID, "error", err)
		}
	}
}

// setPath sets the value at a dotted path inside doc, creating
// intermediate objects as needed. Deliberately limited to what the
// replay requires; not a general path engine.
func setPath(doc map[string]any, path string, value any) error {
	segments := strings.Split(path, ".")
	node := doc
	for _, segment := range segments[:len(segments)-1] {
		next, ok := node[segment]
		if !ok {
			child := make(map[string]any)
			node[segment] = child
			node = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("path %q: %q is not an object", path, segment)
		}
		node = child
	}
	node[segments[len(segments)-1]] = value
	return nil
}

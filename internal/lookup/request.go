package lookup

import (
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Flag is the lookup request options bitmask.
type Flag int

const (
	// FlagJSONDecode asks for structured keys (jobspec, R) to be
	// decoded into documents instead of returned as opaque strings.
	FlagJSONDecode Flag = 1 << iota

	// FlagCurrent asks for reconstructable keys to be returned as
	// their "current" value: the stored snapshot with applicable
	// update events from the event log replayed on top.
	FlagCurrent
)

// validFlags is the full recognized set; anything outside it is
// rejected before any work begins.
const validFlags = FlagJSONDecode | FlagCurrent

// Well-known attribute keys.
const (
	// KeyJobspec is the job specification document.
	KeyJobspec = "jobspec"

	// KeyResources is the resource allocation document. It is the one
	// reconstructable key.
	KeyResources = "R"

	// KeyEventlog is the job event log. Also the sentinel child name
	// for the implicit side-input read.
	KeyEventlog = "eventlog"
)

// Request is one attribute lookup request.
type Request struct {
	// ID is the job identifier: 64-bit, opaque, globally unique.
	ID uint64 `json:"id"`

	// Keys is the ordered set of attribute names to fetch. Duplicates
	// are idempotently ignored; response key order follows request
	// order of first occurrence.
	Keys []string `json:"keys"`

	// Flags is a bitmask over FlagJSONDecode and FlagCurrent.
	Flags Flag `json:"flags"`
}

// validateRequest checks flags and key well-formedness and returns the
// normalized, deduplicated key list in request order. All violations
// are PROTO errors raised before any state is created or read issued.
func validateRequest(req Request) ([]string, error) {
	if req.Flags&^validFlags != 0 {
		return nil, protoError(req.ID, "", "lookup request rejected with invalid flag")
	}

	keys := make([]string, 0, len(req.Keys))
	seen := make(map[string]struct{}, len(req.Keys))
	for _, key := range req.Keys {
		if key == "" {
			return nil, protoError(req.ID, "", "lookup request rejected with empty key")
		}
		if !utf8.ValidString(key) {
			return nil, protoError(req.ID, "", "lookup request rejected with malformed key")
		}
		// NFC-normalize so byte-wise distinct spellings of the same
		// key cannot dodge deduplication.
		key = norm.NFC.String(key)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys, nil
}

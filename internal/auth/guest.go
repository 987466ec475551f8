package auth

import (
	"github.com/meridian-hpc/jobmeta/internal/eventlog"
)

// Credentials identify the requester of a lookup.
type Credentials struct {
	// UserID is the requester's numeric identity.
	UserID uint64

	// Anonymous is set when no identity was presented. Anonymous
	// requesters are never the owner and never match a submit record.
	Anonymous bool
}

// submitEvent is the lifecycle event that records who submitted a job.
const submitEvent = "submit"

// GuestAllowed is the guest-access predicate: a non-owner requester
// may read a job's attributes when the job's submit event records
// their user id. The decoded event log is the source of truth.
func GuestAllowed(entries []eventlog.Entry, creds Credentials) bool {
	if creds.Anonymous {
		return false
	}
	for _, entry := range entries {
		if entry.Name != submitEvent {
			continue
		}
		userid, ok := entry.Context["userid"]
		if !ok {
			continue
		}
		// JSON numbers decode as float64.
		if f, ok := userid.(float64); ok && f >= 0 && uint64(f) == creds.UserID {
			return true
		}
	}
	return false
}

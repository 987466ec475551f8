// Package jobkey derives store paths for job attributes.
//
// Every attribute of a job lives under a deterministic path computed
// from the job identifier and the attribute name. The derivation is
// the only coupling between the lookup service and the store's
// namespace layout.
package jobkey

import (
	"fmt"
)

// Separator joins the path components. Attribute names may contain it
// to address sub-keys (e.g. "guest.output").
const Separator = "."

// Derive returns the store path for one attribute of one job, e.g.
// Derive(42, "jobspec") -> "job.00000000000000000042.jobspec".
//
// The id component is zero padded so paths sort by job id. Returns an
// error for an empty attribute name.
func Derive(id uint64, attr string) (string, error) {
	if attr == "" {
		return "", fmt.Errorf("derive path for job %d: empty attribute name", id)
	}
	return fmt.Sprintf("job%s%020d%s%s", Separator, id, Separator, attr), nil
}

package lookup

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/meridian-hpc/jobmeta/internal/kvs"
)

// Golden coverage of the assembled wire payload: response bytes are
// part of the service contract (compact, id first, keys in request
// order), so they are pinned exactly.
//
// To regenerate golden files, run:
//
//	go test ./internal/lookup -update
func TestLookup_GoldenResponse(t *testing.T) {
	store := kvs.NewMemory()
	seedJob(t, store, 42, map[string]string{
		"jobspec":  `{"tasks":1}`,
		"R":        `{"execution":{"expiration":0}}`,
		"eventlog": submitLog(guestID),
	})
	svc := New(store, ownerID)

	payload, err := svc.Lookup(context.Background(),
		Request{
			ID:    42,
			Keys:  []string{"jobspec", "R", "eventlog"},
			Flags: FlagJSONDecode,
		}, ownerCreds)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "lookup_decoded", []byte(payload))
}

func TestLookup_GoldenResponseCurrent(t *testing.T) {
	store := kvs.NewMemory()
	seedJob(t, store, 42, map[string]string{
		"R": `{"execution":{"expiration":0}}`,
		"eventlog": submitLog(guestID) +
			`{"timestamp":2,"name":"resource-update","context":{"expiration":100}}` + "\n",
	})
	svc := New(store, ownerID)

	payload, err := svc.Lookup(context.Background(),
		Request{
			ID:    42,
			Keys:  []string{"R"},
			Flags: FlagCurrent | FlagJSONDecode,
		}, ownerCreds)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "lookup_current", []byte(payload))
}

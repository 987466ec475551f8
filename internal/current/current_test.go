package current

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-hpc/jobmeta/internal/eventlog"
)

func TestReconstruct_AppliesExpirationUpdate(t *testing.T) {
	base := []byte(`{"execution":{"expiration":0}}`)
	entries := []eventlog.Entry{
		{Timestamp: 1, Name: "resource-update", Context: map[string]any{"expiration": float64(100)}},
	}

	got, err := Reconstruct(nil, 42, ResourceAttr, base, entries)
	require.NoError(t, err)
	assert.JSONEq(t, `{"execution":{"expiration":100}}`, string(got))
}

func TestReconstruct_LastUpdateWins(t *testing.T) {
	base := []byte(`{"execution":{"expiration":0}}`)
	entries := []eventlog.Entry{
		{Timestamp: 1, Name: "resource-update", Context: map[string]any{"expiration": float64(100)}},
		{Timestamp: 2, Name: "resource-update", Context: map[string]any{"expiration": float64(250)}},
	}

	got, err := Reconstruct(nil, 42, ResourceAttr, base, entries)
	require.NoError(t, err)
	assert.JSONEq(t, `{"execution":{"expiration":250}}`, string(got))
}

func TestReconstruct_UnrecognizedEventsLeaveValueUnchanged(t *testing.T) {
	base := []byte(`{"execution":{"expiration":7}}`)
	entries := []eventlog.Entry{
		{Timestamp: 1, Name: "submit", Context: map[string]any{"userid": float64(1000)}},
		{Timestamp: 2, Name: "alloc"},
		{Timestamp: 3, Name: "clean"},
	}

	got, err := Reconstruct(nil, 42, ResourceAttr, base, entries)
	require.NoError(t, err)
	assert.JSONEq(t, string(base), string(got))
}

func TestReconstruct_UnrecognizedContextFieldIgnored(t *testing.T) {
	base := []byte(`{"execution":{"expiration":0}}`)
	entries := []eventlog.Entry{
		{Timestamp: 1, Name: "resource-update", Context: map[string]any{
			"expiration": float64(50),
			"ranks":      "0-3",
		}},
	}

	got, err := Reconstruct(nil, 42, ResourceAttr, base, entries)
	require.NoError(t, err)
	assert.JSONEq(t, `{"execution":{"expiration":50}}`, string(got))
}

func TestReconstruct_Deterministic(t *testing.T) {
	base := []byte(`{"execution":{"expiration":0},"version":1}`)
	entries := []eventlog.Entry{
		{Timestamp: 1, Name: "resource-update", Context: map[string]any{"expiration": float64(100)}},
	}

	first, err := Reconstruct(nil, 1, ResourceAttr, base, entries)
	require.NoError(t, err)
	second, err := Reconstruct(nil, 1, ResourceAttr, base, entries)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestReconstruct_DoesNotMutateBaseBytes(t *testing.T) {
	base := []byte(`{"execution":{"expiration":0}}`)
	baseCopy := string(base)
	entries := []eventlog.Entry{
		{Timestamp: 1, Name: "resource-update", Context: map[string]any{"expiration": float64(9)}},
	}

	_, err := Reconstruct(nil, 1, ResourceAttr, base, entries)
	require.NoError(t, err)
	assert.Equal(t, baseCopy, string(base))
}

func TestReconstruct_CreatesMissingExecutionObject(t *testing.T) {
	base := []byte(`{"version":1}`)
	entries := []eventlog.Entry{
		{Timestamp: 1, Name: "resource-update", Context: map[string]any{"expiration": float64(30)}},
	}

	got, err := Reconstruct(nil, 1, ResourceAttr, base, entries)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":1,"execution":{"expiration":30}}`, string(got))
}

func TestReconstruct_NonObjectOnPathIsNonFatal(t *testing.T) {
	base := []byte(`{"execution":"scalar"}`)
	entries := []eventlog.Entry{
		{Timestamp: 1, Name: "resource-update", Context: map[string]any{"expiration": float64(30)}},
	}

	got, err := Reconstruct(nil, 1, ResourceAttr, base, entries)
	require.NoError(t, err)
	assert.JSONEq(t, string(base), string(got))
}

func TestReconstruct_MalformedBase(t *testing.T) {
	_, err := Reconstruct(nil, 1, ResourceAttr, []byte("not json"), nil)
	assert.ErrorIs(t, err, ErrMalformedValue)
}

func TestReconstructable(t *testing.T) {
	assert.True(t, Reconstructable(ResourceAttr))
	assert.False(t, Reconstructable("jobspec"))
	assert.False(t, Reconstructable("eventlog"))
}

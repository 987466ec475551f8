package eventlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_OrderedEntries(t *testing.T) {
	log := `{"timestamp":1.0,"name":"submit","context":{"userid":1000}}
{"timestamp":2.0,"name":"alloc"}
{"timestamp":3.0,"name":"resource-update","context":{"expiration":100}}
`

	entries, err := Decode(log)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "submit", entries[0].Name)
	assert.Equal(t, float64(1000), entries[0].Context["userid"])
	assert.Equal(t, "alloc", entries[1].Name)
	assert.Nil(t, entries[1].Context)
	assert.Equal(t, "resource-update", entries[2].Name)
	assert.Equal(t, float64(100), entries[2].Context["expiration"])
}

func TestDecode_Empty(t *testing.T) {
	entries, err := Decode("")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDecode_MalformedLine(t *testing.T) {
	log := `{"timestamp":1.0,"name":"submit"}
not json
`

	_, err := Decode(log)
	require.Error(t, err)

	var me *MalformedError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, 2, me.Line)
}

func TestDecode_MissingName(t *testing.T) {
	_, err := Decode(`{"timestamp":1.0,"context":{}}` + "\n")
	require.Error(t, err)

	var me *MalformedError
	require.ErrorAs(t, err, &me)
	assert.Contains(t, me.Error(), "missing name")
}

func TestDecodeEntry_RoundTrip(t *testing.T) {
	entry := Entry{
		Timestamp: 42.5,
		Name:      "resource-update",
		Context:   map[string]any{"expiration": float64(100)},
	}

	line, err := EncodeEntry(entry)
	require.NoError(t, err)
	assert.Equal(t, byte('\n'), line[len(line)-1])

	got, err := DecodeEntry(line[:len(line)-1])
	require.NoError(t, err)
	assert.Equal(t, entry, got)
}

func TestEncodeEntry_MissingName(t *testing.T) {
	_, err := EncodeEntry(Entry{Timestamp: 1.0})
	assert.Error(t, err)
}

func TestEncode_Decode(t *testing.T) {
	entries := []Entry{
		{Timestamp: 1.0, Name: "submit", Context: map[string]any{"userid": float64(7)}},
		{Timestamp: 2.0, Name: "clean"},
	}

	text, err := Encode(entries)
	require.NoError(t, err)

	got, err := Decode(text)
	require.NoError(t, err)
	assert.Equal(t, entries, got)
}

package lookup

import (
	"bytes"
	"encoding/json"
)

// Value is a sealed interface for attribute values in a response.
// Only String and Document implement it: a stored attribute is either
// an opaque string or a structured JSON document, never anything else.
type Value interface {
	value() // Sealed - only these types implement it

	// appendJSON appends the value's JSON encoding to dst.
	appendJSON(dst *bytes.Buffer) error
}

// String is an opaque attribute value returned verbatim.
type String string

func (String) value() {}

func (s String) appendJSON(dst *bytes.Buffer) error {
	encoded, err := json.Marshal(string(s))
	if err != nil {
		return err
	}
	dst.Write(encoded)
	return nil
}

// Document is a structured attribute value, held as compact JSON
// text. Construction validates and compacts, so a Document always
// serializes cleanly.
type Document []byte

func (Document) value() {}

func (d Document) appendJSON(dst *bytes.Buffer) error {
	dst.Write(d)
	return nil
}

// NewDocument validates text as JSON and returns its compact form.
func NewDocument(text []byte) (Document, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, text); err != nil {
		return nil, err
	}
	return Document(buf.Bytes()), nil
}

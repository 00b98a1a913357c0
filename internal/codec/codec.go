// Package codec converts arbitrary values to and from their canonical JSON
// text form. Decoding is deliberately tolerant: text that is not valid JSON
// is carried through as a raw string instead of failing, so pre-existing
// plaintext never blocks a migration.
package codec

import (
	"encoding/json"
	"fmt"
)

// Decoded is the tagged result of Decode. When OK is true, Value holds the
// decoded JSON value; otherwise Raw holds the original text unchanged. The
// fallback is an explicit branch rather than a recovered error.
type Decoded struct {
	OK    bool
	Value any
	Raw   string
}

// Any returns the decoded value, or the raw text when decoding fell back.
func (d Decoded) Any() any {
	if d.OK {
		return d.Value
	}
	return d.Raw
}

// Encode renders v as canonical JSON text.
func Encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding value: %w", err)
	}
	return string(b), nil
}

// Decode parses text as JSON, falling back to the raw string on malformed
// input. It never returns an error.
func Decode(text string) Decoded {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return Decoded{Raw: text}
	}
	return Decoded{OK: true, Value: v}
}

// Package models defines the data exchanged between the console, its session and the MediLink API.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ID identifies a hospital or patient. The API sends ids either as JSON
// strings ("5") or numbers (5); both decode to the same ID.
type ID string

// UnmarshalJSON accepts a string, a number or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("unexpected id %s: %w", string(data), err)
	}
	*id = ID(n.String())
	return nil
}

// String returns the id as text.
func (id ID) String() string {
	return string(id)
}

// Empty reports whether the id is absent.
func (id ID) Empty() bool {
	return strings.TrimSpace(string(id)) == ""
}

// Count is a capacity figure from the hospital directory. The API sends
// counts as numbers, numeric strings, placeholders like "N/A" or null, so any
// scalar decodes; metrics.Number turns it into a float.
type Count string

// UnmarshalJSON keeps strings and numbers as text. Other values are empty.
func (c *Count) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0:
		*c = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Count(strings.TrimSpace(s))
	case data[0] == '-' || (data[0] >= '0' && data[0] <= '9'):
		*c = Count(data)
	default:
		*c = ""
	}
	return nil
}

// MarshalJSON writes numeric counts as JSON numbers and anything else as null.
func (c Count) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseFloat(string(c), 64); err != nil {
		return []byte("null"), nil
	}
	return []byte(c), nil
}

// FormatETA renders minutes the way the API does: "9 min", "7.5 min".
func FormatETA(minutes float64) string {
	if math.IsNaN(minutes) || math.IsInf(minutes, 0) {
		return ""
	}
	return strconv.FormatFloat(minutes, 'f', -1, 64) + " min"
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

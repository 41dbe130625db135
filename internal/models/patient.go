package models

import (
	"fmt"
	"math"
	"strings"
)

// Patient is a registered patient. MedicalHistory is an opaque record shown
// to the user; only a few well-known keys are read for message composition.
type Patient struct {
	ID             ID             `json:"id"`
	Name           string         `json:"name"`
	Age            int            `json:"age"`
	BloodType      string         `json:"blood_type"`
	Photo          string         `json:"photo,omitempty"`
	MedicalHistory map[string]any `json:"medical_history,omitempty"`
}

// Identification is the result of a biometric lookup.
type Identification struct {
	MatchFound bool     `json:"match_found"`
	Confidence float64  `json:"confidence"`
	Patient    *Patient `json:"patient,omitempty"`
	Distance   *float64 `json:"distance,omitempty"`
	Method     string   `json:"method,omitempty"`
	Message    string   `json:"message,omitempty"`
}

// ConfidencePercent returns the confidence as a rounded percentage clamped to 0..100.
func (i Identification) ConfidencePercent() int {
	c := i.Confidence
	if math.IsNaN(c) || c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	return int(math.Round(c * 100))
}

// historyFields are summarised in this order with these labels.
var historyFields = []struct {
	key   string
	label string
}{
	{"allergies", "Allergies"},
	{"chronic_conditions", "Chronic conditions"},
	{"medications", "Medications"},
	{"emergency_contact", "Emergency contact"},
}

// HistoryLines returns one labelled line per well-known history field that is
// present, e.g. "Allergies: Penicillin, Latex". Absent or empty fields are omitted.
func (p Patient) HistoryLines() []string {
	var lines []string
	for _, f := range historyFields {
		v, ok := p.MedicalHistory[f.key]
		if !ok {
			continue
		}
		text := describe(v)
		if text == "" {
			continue
		}
		lines = append(lines, f.label+": "+text)
	}
	return lines
}

// describe flattens a history value for display.
func describe(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s := describe(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(val, ", ")
	case map[string]any:
		return describeContact(val)
	default:
		return fmt.Sprint(val)
	}
}

// describeContact renders an emergency contact as "Name (Relationship) phone".
func describeContact(m map[string]any) string {
	name := describe(m["name"])
	rel := describe(m["relationship"])
	phone := describe(m["phone"])

	var b strings.Builder
	b.WriteString(name)
	if rel != "" {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString("(" + rel + ")")
	}
	if phone != "" {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(phone)
	}
	return b.String()
}

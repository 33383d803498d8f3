// Package normalize converts raw extracted strings into the representation a form
// widget expects. Every transform is total: input it cannot confidently convert is
// returned unchanged, and absent input ("" or "N/A") yields "".
package normalize

import (
	"strings"
	"time"
)

// Absent is the sentinel the extraction collaborator emits for a missing field.
const Absent = "N/A"

const (
	isoLayout = "2006-01-02"
	usLayout  = "01/02/2006"
)

// Func is a single value transform.
type Func func(raw string) string

// IsAbsent reports whether raw carries no usable value.
func IsAbsent(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	return trimmed == "" || trimmed == Absent
}

// Date reformats YYYY-MM-DD as MM/DD/YYYY. Other formats pass through.
func Date(raw string) string {
	if IsAbsent(raw) {
		return ""
	}
	t, err := time.Parse(isoLayout, strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	return t.Format(usLayout)
}

// LooksISODate reports whether raw is shaped like a hyphenated date. It is the
// cheap pre-check date widgets use before calling Date.
func LooksISODate(raw string) bool {
	return strings.Contains(raw, "-")
}

// Gender maps free-form sex/gender text onto the form's single-letter codes.
// "female" is tested before "male" because the latter is a substring of the former.
func Gender(raw string) string {
	if IsAbsent(raw) {
		return ""
	}
	lower := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(lower, "female") || lower == "f":
		return "F"
	case strings.Contains(lower, "male") || lower == "m":
		return "M"
	}
	return raw
}

// State expands a two-letter US state, DC or territory abbreviation to its full name.
// Full names and misspellings pass through unchanged.
func State(raw string) string {
	if IsAbsent(raw) {
		return ""
	}
	if name, ok := stateNames[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return name
	}
	return raw
}

// Names of the transforms addressable from a field mapping.
const (
	NameDate   = "date"
	NameGender = "gender"
	NameState  = "state"
)

var registry = map[string]Func{
	NameDate:   Date,
	NameGender: Gender,
	NameState:  State,
}

// Lookup returns the transform registered under name.
func Lookup(name string) (Func, bool) {
	fn, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	return fn, ok
}

// Names lists the registered transforms.
func Names() []string {
	return []string{NameDate, NameGender, NameState}
}

var stateNames = map[string]string{
	"AL": "Alabama", "AK": "Alaska", "AZ": "Arizona", "AR": "Arkansas",
	"CA": "California", "CO": "Colorado", "CT": "Connecticut", "DE": "Delaware",
	"DC": "District of Columbia", "FL": "Florida", "GA": "Georgia", "HI": "Hawaii",
	"ID": "Idaho", "IL": "Illinois", "IN": "Indiana", "IA": "Iowa",
	"KS": "Kansas", "KY": "Kentucky", "LA": "Louisiana", "ME": "Maine",
	"MD": "Maryland", "MA": "Massachusetts", "MI": "Michigan", "MN": "Minnesota",
	"MS": "Mississippi", "MO": "Missouri", "MT": "Montana", "NE": "Nebraska",
	"NV": "Nevada", "NH": "New Hampshire", "NJ": "New Jersey", "NM": "New Mexico",
	"NY": "New York", "NC": "North Carolina", "ND": "North Dakota", "OH": "Ohio",
	"OK": "Oklahoma", "OR": "Oregon", "PA": "Pennsylvania", "RI": "Rhode Island",
	"SC": "South Carolina", "SD": "South Dakota", "TN": "Tennessee", "TX": "Texas",
	"UT": "Utah", "VT": "Vermont", "VA": "Virginia", "WA": "Washington",
	"WV": "West Virginia", "WI": "Wisconsin", "WY": "Wyoming",
}

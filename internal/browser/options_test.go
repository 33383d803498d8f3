package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyWidget(t *testing.T) {
	tests := []struct {
		tag, typ string
		want     WidgetKind
	}{
		{"SELECT", "", WidgetSelect},
		{"select", "select-one", WidgetSelect},
		{"input", "date", WidgetDate},
		{"INPUT", "Date", WidgetDate},
		{"input", "", WidgetText},
		{"input", "tel", WidgetText},
		{"input", "email", WidgetText},
		{"textarea", "textarea", WidgetText},
		{"input", "checkbox", WidgetOther},
		{"div", "", WidgetOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classifyWidget(tt.tag, tt.typ), "%s[type=%s]", tt.tag, tt.typ)
	}
	assert.Equal(t, "date", WidgetDate.String())
}

func TestChooseOptionPriority(t *testing.T) {
	states := []Option{
		{Text: "Select a state", Value: ""},
		{Text: "California", Value: "CA"},
		{Text: "North Carolina", Value: "NC"},
		{Text: "CA", Value: "California"},
	}

	tests := []struct {
		name      string
		value     string
		wantIndex int
		wantMatch OptionMatch
	}{
		// "California" is option 1's text and option 3's value: text wins.
		{"text beats value", "California", 1, MatchText},
		// "CA" is option 3's text and option 1's value: text wins again.
		{"text beats value reversed", "CA", 3, MatchText},
		{"value match", "NC", 2, MatchValue},
		{"substring of option", "carolina", 2, MatchSubstring},
		{"option within value", "State of California, USA", 1, MatchSubstring},
		{"trimmed text", "  California ", 1, MatchText},
		{"no match", "Ontario", -1, MatchNone},
		{"empty", "", -1, MatchNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, match := chooseOption(states, tt.value)
			assert.Equal(t, tt.wantIndex, idx)
			assert.Equal(t, tt.wantMatch, match)
		})
	}
}

func TestChooseOptionSubstringFirstWins(t *testing.T) {
	opts := []Option{
		{Text: "", Value: "placeholder"},
		{Text: "Male", Value: "M"},
		{Text: "Female", Value: "F"},
	}
	// Exact value beats the substring hit on "Female".
	idx, match := chooseOption(opts, "F")
	assert.Equal(t, 2, idx)
	assert.Equal(t, MatchValue, match)

	// "male" is a substring of both; the first in document order is taken.
	idx, match = chooseOption(opts, "male")
	assert.Equal(t, 1, idx)
	assert.Equal(t, MatchSubstring, match)
}

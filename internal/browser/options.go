package browser

import "strings"

// Option is one entry of a select control.
type Option struct {
	Text  string `json:"text"`
	Value string `json:"value"`
}

// OptionMatch reports which rule picked an option.
type OptionMatch int

const (
	MatchNone OptionMatch = iota
	MatchText
	MatchValue
	MatchSubstring
)

func (m OptionMatch) String() string {
	switch m {
	case MatchText:
		return "text"
	case MatchValue:
		return "value"
	case MatchSubstring:
		return "substring"
	default:
		return "none"
	}
}

// chooseOption picks the option a value should select. Exact visible text wins
// over exact value, which wins over a case-insensitive substring match in either
// direction. Options with blank text never substring-match, so a placeholder
// entry cannot swallow every value.
func chooseOption(options []Option, value string) (int, OptionMatch) {
	want := strings.TrimSpace(value)
	if want == "" {
		return -1, MatchNone
	}

	for i, o := range options {
		if strings.TrimSpace(o.Text) == want {
			return i, MatchText
		}
	}
	for i, o := range options {
		if o.Value == want {
			return i, MatchValue
		}
	}

	lower := strings.ToLower(want)
	for i, o := range options {
		text := strings.ToLower(strings.TrimSpace(o.Text))
		if text == "" {
			continue
		}
		if strings.Contains(text, lower) || strings.Contains(lower, text) {
			return i, MatchSubstring
		}
	}
	return -1, MatchNone
}

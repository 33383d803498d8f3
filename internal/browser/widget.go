package browser

import "strings"

// WidgetKind is the interaction semantics of a resolved form control.
// It is decided once per element and selects the fill strategy.
type WidgetKind int

const (
	WidgetOther WidgetKind = iota
	WidgetText
	WidgetSelect
	WidgetDate
)

func (k WidgetKind) String() string {
	switch k {
	case WidgetText:
		return "text"
	case WidgetSelect:
		return "select"
	case WidgetDate:
		return "date"
	default:
		return "other"
	}
}

// textInputTypes are the input types that take free text.
var textInputTypes = map[string]bool{
	"":         true,
	"text":     true,
	"email":    true,
	"tel":      true,
	"number":   true,
	"search":   true,
	"url":      true,
	"password": true,
}

// classifyWidget maps an element's tag name and type attribute to its kind.
func classifyWidget(tag, inputType string) WidgetKind {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "select":
		return WidgetSelect
	case "textarea":
		return WidgetText
	case "input":
		t := strings.ToLower(strings.TrimSpace(inputType))
		if t == "date" {
			return WidgetDate
		}
		if textInputTypes[t] {
			return WidgetText
		}
	}
	return WidgetOther
}

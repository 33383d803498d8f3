package mcp

import (
	"context"
	"fmt"
	"strings"

	"formfill-mcp-server/internal/mapping"
	"formfill-mcp-server/internal/normalize"
)

// FillFormTool runs one complete fill-and-capture session.
type FillFormTool struct {
	engine Engine
}

func (t *FillFormTool) Name() string { return "fill-form" }
func (t *FillFormTool) Description() string {
	return `Fill the intake form from two extracted documents and capture a full-page screenshot.

Each document is a flat object of field name to string value, where "N/A" means absent.
Fields without a usable value are skipped; fields the page has no control for are omitted.

Returns {filled_fields, errors, screenshot, total_filled}. errors only lists run-level
failures (launch, navigation, capture); the result is returned even when they occur.`
}
func (t *FillFormTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"representative": map[string]interface{}{
				"description": "Extracted representative form data (object, or the extractor's raw JSON text).",
				"type":        []string{"object", "string"},
			},
			"passport": map[string]interface{}{
				"description": "Extracted passport data (object, or the extractor's raw JSON text).",
				"type":        []string{"object", "string"},
			},
		},
	}
}

func (t *FillFormTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	rep, err := getDocumentArg(args, "representative")
	if err != nil {
		return nil, err
	}
	pass, err := getDocumentArg(args, "passport")
	if err != nil {
		return nil, err
	}
	return t.engine.Run(ctx, rep, pass), nil
}

// InspectFormTool lists the visible form controls of a page.
type InspectFormTool struct {
	engine     Engine
	defaultURL string
}

func (t *InspectFormTool) Name() string { return "inspect-form" }
func (t *InspectFormTool) Description() string {
	return "List visible input, select and textarea controls (tag, id, name, type, placeholder) of the target form, or of url when given."
}
func (t *InspectFormTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"url": map[string]interface{}{
				"type":        "string",
				"description": "Page to inspect (default: the configured form URL)",
			},
		},
	}
}

func (t *InspectFormTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	url := strings.TrimSpace(getStringArg(args, "url"))
	if url == "" {
		url = t.defaultURL
	}
	controls, err := t.engine.Inspect(ctx, url)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"url":      url,
		"count":    len(controls),
		"controls": controls,
	}, nil
}

// DescribeMappingTool returns the active field table.
type DescribeMappingTool struct {
	engine Engine
}

func (t *DescribeMappingTool) Name() string { return "describe-mapping" }
func (t *DescribeMappingTool) Description() string {
	return "Describe which source keys fill which form controls, in fill order, with normalizers and fallback labels."
}
func (t *DescribeMappingTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"section": map[string]interface{}{
				"type":        "string",
				"description": "Only entries of this section id (representative, eligibility, beneficiary)",
			},
		},
	}
}

func (t *DescribeMappingTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	m := t.engine.Mapping()
	section := strings.TrimSpace(getStringArg(args, "section"))
	if section == "" {
		return m, nil
	}

	var fields []mapping.Entry
	for _, f := range m.Fields {
		if f.Section == section {
			fields = append(fields, f)
		}
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("unknown section %q", section)
	}
	return map[string]interface{}{
		"section": section,
		"title":   m.SectionTitle(section),
		"fields":  fields,
	}, nil
}

// NormalizeValueTool applies one normalizer to a value.
type NormalizeValueTool struct{}

func (t *NormalizeValueTool) Name() string { return "normalize-value" }
func (t *NormalizeValueTool) Description() string {
	return `Normalize a raw extracted value the way the form filler does.
kinds: date (YYYY-MM-DD to MM/DD/YYYY), gender (to F or M), state (US abbreviation to full name).
Values that cannot be transformed are returned unchanged.`
}
func (t *NormalizeValueTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"kind": map[string]interface{}{
				"type": "string",
				"enum": normalize.Names(),
			},
			"value": map[string]interface{}{
				"type": "string",
			},
		},
		"required": []string{"kind", "value"},
	}
}

func (t *NormalizeValueTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	kind := getStringArg(args, "kind")
	fn, ok := normalize.Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("unknown kind %q (want one of %s)", kind, strings.Join(normalize.Names(), ", "))
	}
	input := getStringArg(args, "value")
	return map[string]interface{}{
		"kind":   strings.ToLower(strings.TrimSpace(kind)),
		"input":  input,
		"value":  fn(input),
		"absent": normalize.IsAbsent(input),
	}, nil
}

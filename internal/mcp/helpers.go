package mcp

import (
	"fmt"
	"strings"

	"formfill-mcp-server/internal/document"
)

func getStringArg(args map[string]interface{}, key string) string {
	val, ok := args[key]
	if !ok || val == nil {
		return ""
	}
	switch v := val.(type) {
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// getDocumentArg reads an extracted document passed either as a JSON object or
// as the raw text the extractor returned. A missing argument is an empty document.
func getDocumentArg(args map[string]interface{}, key string) (document.Document, error) {
	val, ok := args[key]
	if !ok || val == nil {
		return document.Document{}, nil
	}
	switch v := val.(type) {
	case map[string]interface{}:
		return document.FromMap(v), nil
	case string:
		if strings.TrimSpace(v) == "" {
			return document.Document{}, nil
		}
		doc, err := document.Parse([]byte(v))
		if err != nil {
			return document.Document{}, fmt.Errorf("%s: %w", key, err)
		}
		return doc, nil
	default:
		return document.Document{}, fmt.Errorf("%s must be an object or a JSON string, got %T", key, val)
	}
}

// Package document holds the flat key/value records produced by the extraction
// collaborator for the passport and the representative form.
package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"formfill-mcp-server/internal/normalize"
)

// Kind names the two source documents a run consumes.
type Kind string

const (
	Representative Kind = "representative"
	Passport       Kind = "passport"
)

// ErrExtractionFailed marks extractor output that carries the error marker instead of data.
var ErrExtractionFailed = errors.New("extraction failed")

// Document is an immutable field-name to value mapping. "N/A" means absent.
type Document struct {
	fields map[string]string
}

// New copies fields into a Document.
func New(fields map[string]string) Document {
	copied := make(map[string]string, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return Document{fields: copied}
}

// FromMap builds a Document from decoded JSON. Non-string scalars are stringified
// and nulls are dropped.
func FromMap(raw map[string]interface{}) Document {
	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			fields[k] = val
		case float64:
			fields[k] = strconv.FormatFloat(val, 'f', -1, 64)
		default:
			fields[k] = fmt.Sprintf("%v", val)
		}
	}
	return Document{fields: fields}
}

// Value returns the value under key when it is present and not absent.
func (d Document) Value(key string) (string, bool) {
	v, ok := d.fields[key]
	if !ok || normalize.IsAbsent(v) {
		return "", false
	}
	return v, true
}

// Raw returns the stored value under key, including the absent sentinel.
func (d Document) Raw(key string) (string, bool) {
	v, ok := d.fields[key]
	return v, ok
}

// Len is the number of stored keys, absent ones included.
func (d Document) Len() int { return len(d.fields) }

// Keys returns the stored keys in sorted order.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d.fields))
	for k := range d.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MarshalJSON renders the document as a flat JSON object.
func (d Document) MarshalJSON() ([]byte, error) {
	if d.fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(d.fields)
}

// Parse decodes extractor output. The payload may be wrapped in a markdown code
// fence or surrounded by prose; the outermost JSON object is used.
func Parse(raw []byte) (Document, error) {
	text := stripFence(string(raw))

	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start == -1 || end <= start {
			return Document{}, fmt.Errorf("decode extractor output: %w", err)
		}
		if err := json.Unmarshal([]byte(text[start:end+1]), &decoded); err != nil {
			return Document{}, fmt.Errorf("decode extractor output: %w", err)
		}
	}

	if msg, failed := errorMarker(decoded); failed {
		return Document{}, fmt.Errorf("%w: %s", ErrExtractionFailed, msg)
	}
	return FromMap(decoded), nil
}

// Load reads and parses a document from disk.
func Load(path string) (Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read document %s: %w", path, err)
	}
	doc, err := Parse(raw)
	if err != nil {
		return Document{}, fmt.Errorf("parse document %s: %w", path, err)
	}
	return doc, nil
}

func stripFence(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// errorMarker detects {"error": "...", "raw_response": "..."} payloads.
func errorMarker(decoded map[string]interface{}) (string, bool) {
	msg, ok := decoded["error"]
	if !ok {
		return "", false
	}
	for k := range decoded {
		if k != "error" && k != "raw_response" {
			return "", false
		}
	}
	return fmt.Sprintf("%v", msg), true
}

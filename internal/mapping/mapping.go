// Package mapping declares what gets filled where: an ordered list of form targets,
// each bound to a source document, a fallback list of source keys, an optional
// normalizer and the label texts used when the target id cannot be found.
package mapping

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"formfill-mcp-server/internal/document"
	"formfill-mcp-server/internal/normalize"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Token selectors for KeyRef.
const (
	TokenWhole = ""
	TokenFirst = "first"
	TokenLast  = "last"
)

// KeyRef points at one source key. Token optionally narrows the value to its
// first or last whitespace-separated word, which is how a combined full name is
// split into given name (first word) and surname (last word).
type KeyRef struct {
	Key   string `yaml:"key" json:"key"`
	Token string `yaml:"token,omitempty" json:"token,omitempty"`
}

// UnmarshalYAML accepts either a bare key string or a {key, token} mapping.
func (k *KeyRef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		k.Key = node.Value
		k.Token = TokenWhole
		return nil
	}
	type plain KeyRef
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*k = KeyRef(p)
	return nil
}

// Pick extracts the referenced value from doc.
func (k KeyRef) Pick(doc document.Document) (string, bool) {
	v, ok := doc.Value(k.Key)
	if !ok {
		return "", false
	}
	switch k.Token {
	case TokenFirst, TokenLast:
		words := strings.Fields(v)
		if len(words) == 0 {
			return "", false
		}
		if k.Token == TokenFirst {
			return words[0], true
		}
		return words[len(words)-1], true
	}
	return v, true
}

// Section groups entries for progress reporting.
type Section struct {
	ID    string `yaml:"id" json:"id"`
	Title string `yaml:"title" json:"title"`
}

// Entry describes one target widget.
type Entry struct {
	Target     string        `yaml:"target" json:"target"`
	Name       string        `yaml:"name" json:"name"`
	Section    string        `yaml:"section" json:"section"`
	Source     document.Kind `yaml:"source" json:"source"`
	Keys       []KeyRef      `yaml:"keys" json:"keys"`
	Normalizer string        `yaml:"normalizer,omitempty" json:"normalizer,omitempty"`
	Labels     []string      `yaml:"labels,omitempty" json:"labels,omitempty"`
}

// Sources carries the documents a run reads from.
type Sources map[document.Kind]document.Document

// Lookup returns the value of the first key in the fallback list that yields one.
func (e Entry) Lookup(src Sources) (string, bool) {
	doc := src[e.Source]
	for _, ref := range e.Keys {
		if v, ok := ref.Pick(doc); ok {
			return v, true
		}
	}
	return "", false
}

// Apply runs the entry's normalizer over raw. Entries without one return raw.
func (e Entry) Apply(raw string) string {
	if e.Normalizer == "" {
		return raw
	}
	fn, ok := normalize.Lookup(e.Normalizer)
	if !ok {
		return raw
	}
	return fn(raw)
}

// Resolve looks up and normalizes the entry's value. ok is false when nothing
// usable remains, in which case the field is skipped.
func (e Entry) Resolve(src Sources) (string, bool) {
	raw, ok := e.Lookup(src)
	if !ok {
		return "", false
	}
	value := e.Apply(raw)
	if normalize.IsAbsent(value) {
		return "", false
	}
	return value, true
}

// Mapping is the ordered field table. It is read-only once loaded.
type Mapping struct {
	Sections []Section `yaml:"sections" json:"sections"`
	Fields   []Entry   `yaml:"fields" json:"fields"`
}

// Default returns the embedded mapping for the intake form.
func Default() Mapping {
	m, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded field mapping is invalid: %v", err))
	}
	return m
}

// Load reads a mapping file, or returns Default when path is empty.
func Load(path string) (Mapping, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Mapping{}, fmt.Errorf("read mapping %s: %w", path, err)
	}
	m, err := Parse(raw)
	if err != nil {
		return Mapping{}, fmt.Errorf("mapping %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes and validates mapping YAML.
func Parse(raw []byte) (Mapping, error) {
	var m Mapping
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return Mapping{}, fmt.Errorf("parse mapping: %w", err)
	}
	for i := range m.Fields {
		if m.Fields[i].Name == "" {
			m.Fields[i].Name = m.Fields[i].Target
		}
	}
	if err := m.Validate(); err != nil {
		return Mapping{}, err
	}
	return m, nil
}

// Validate rejects tables the orchestrator could not walk deterministically.
func (m Mapping) Validate() error {
	if len(m.Fields) == 0 {
		return errors.New("mapping has no fields")
	}

	sections := make(map[string]bool, len(m.Sections))
	for _, s := range m.Sections {
		if s.ID == "" {
			return errors.New("section id is required")
		}
		if sections[s.ID] {
			return fmt.Errorf("duplicate section %q", s.ID)
		}
		sections[s.ID] = true
	}

	targets := make(map[string]bool, len(m.Fields))
	for i, f := range m.Fields {
		if f.Target == "" {
			return fmt.Errorf("field %d: target is required", i)
		}
		if targets[f.Target] {
			return fmt.Errorf("field %q: duplicate target", f.Target)
		}
		targets[f.Target] = true

		if !sections[f.Section] {
			return fmt.Errorf("field %q: unknown section %q", f.Target, f.Section)
		}
		if f.Source != document.Representative && f.Source != document.Passport {
			return fmt.Errorf("field %q: unknown source %q", f.Target, f.Source)
		}
		if len(f.Keys) == 0 {
			return fmt.Errorf("field %q: at least one key is required", f.Target)
		}
		for _, k := range f.Keys {
			if k.Key == "" {
				return fmt.Errorf("field %q: empty key", f.Target)
			}
			if k.Token != TokenWhole && k.Token != TokenFirst && k.Token != TokenLast {
				return fmt.Errorf("field %q: unknown token %q", f.Target, k.Token)
			}
		}
		if f.Normalizer != "" {
			if _, ok := normalize.Lookup(f.Normalizer); !ok {
				return fmt.Errorf("field %q: unknown normalizer %q", f.Target, f.Normalizer)
			}
		}
	}
	return nil
}

// SectionTitle returns the display title of a section id.
func (m Mapping) SectionTitle(id string) string {
	for _, s := range m.Sections {
		if s.ID == id {
			return s.Title
		}
	}
	return id
}

// Entry returns the entry for a target id.
func (m Mapping) Entry(target string) (Entry, bool) {
	for _, f := range m.Fields {
		if f.Target == target {
			return f, true
		}
	}
	return Entry{}, false
}

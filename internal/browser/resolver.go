package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"formfill-mcp-server/internal/normalize"

	"github.com/go-rod/rod"
	"go.uber.org/zap"
)

// Field identifies one target control: its DOM id, the label or placeholder
// texts to fall back on, and the name reported when it is filled.
type Field struct {
	ID     string
	Name   string
	Labels []string
}

// Resolver finds and fills controls on a single page.
type Resolver struct {
	page   *rod.Page
	step   time.Duration
	logger *zap.Logger
}

func NewResolver(page *rod.Page, step time.Duration, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{page: page, step: step, logger: logger}
}

// Resolve locates the element for f. The DOM id is tried first, then each
// label in order against placeholder text and then <label> text.
func (r *Resolver) Resolve(ctx context.Context, f Field) (*rod.Element, bool) {
	page := r.page.Context(ctx)

	if f.ID != "" {
		if els, err := page.Elements("#" + escapeCSSSelector(f.ID)); err == nil && len(els) > 0 {
			return els.First(), true
		}
	}

	for _, label := range f.Labels {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		if el := firstVisible(r.byPlaceholder(page, label)); el != nil {
			r.logger.Debug("resolved by placeholder", zap.String("target", f.ID), zap.String("label", label))
			return el, true
		}
		if el := firstVisible(r.byLabel(page, label)); el != nil {
			r.logger.Debug("resolved by label", zap.String("target", f.ID), zap.String("label", label))
			return el, true
		}
	}
	return nil, false
}

func (r *Resolver) byPlaceholder(page *rod.Page, label string) rod.Elements {
	v := escapeAttributeValue(label)
	sel := fmt.Sprintf(`input[placeholder*="%s" i], textarea[placeholder*="%s" i]`, v, v)
	els, err := page.Elements(sel)
	if err != nil {
		return nil
	}
	return els
}

func (r *Resolver) byLabel(page *rod.Page, label string) rod.Elements {
	labels, err := page.ElementsX(labelXPath(label))
	if err != nil {
		return nil
	}
	var out rod.Elements
	for _, lbl := range labels {
		if forID, err := lbl.Attribute("for"); err == nil && forID != nil && *forID != "" {
			if els, err := page.Elements("#" + escapeCSSSelector(*forID)); err == nil {
				out = append(out, els...)
				continue
			}
		}
		if els, err := lbl.Elements("input, select, textarea"); err == nil && len(els) > 0 {
			out = append(out, els.First())
		}
	}
	return out
}

func firstVisible(els rod.Elements) *rod.Element {
	for _, el := range els {
		if ok, err := el.Visible(); err == nil && ok {
			return el
		}
	}
	return nil
}

// Fill resolves f and applies value according to the control's widget kind.
// It reports false for an absent value, an unresolved or hidden element, or any
// interaction failure, and never panics.
func (r *Resolver) Fill(ctx context.Context, f Field, value string) (filled bool) {
	log := r.logger.With(zap.String("field", f.Name), zap.String("target", f.ID))
	defer func() {
		if p := recover(); p != nil {
			log.Warn("fill panicked", zap.Any("panic", p))
			filled = false
		}
	}()

	if normalize.IsAbsent(value) {
		log.Debug("skipped: no value")
		return false
	}

	el, ok := r.Resolve(ctx, f)
	if !ok {
		log.Debug("skipped: element not found")
		return false
	}
	if visible, err := el.Visible(); err != nil || !visible {
		log.Debug("skipped: element not visible")
		return false
	}

	stepCtx, cancel := context.WithTimeout(ctx, r.step)
	defer cancel()
	el = el.Context(stepCtx)

	kind := widgetKindOf(el)
	var err error
	switch kind {
	case WidgetSelect:
		err = fillSelect(el, value)
	case WidgetDate:
		err = fillDate(el, value)
	default:
		err = fillText(el, value)
	}
	if err != nil {
		if stepCtx.Err() != nil {
			err = &TimeoutError{Step: "fill " + f.Name, Err: err}
		}
		log.Debug("fill failed", zap.Stringer("kind", kind), zap.Error(err))
		return false
	}

	log.Info("filled", zap.Stringer("kind", kind), zap.String("value", value))
	return true
}

func widgetKindOf(el *rod.Element) WidgetKind {
	tag, err := el.Property("tagName")
	if err != nil {
		return WidgetOther
	}
	var typ string
	if attr, err := el.Attribute("type"); err == nil && attr != nil {
		typ = *attr
	}
	return classifyWidget(tag.Str(), typ)
}

func fillText(el *rod.Element, value string) error {
	if err := el.SelectAllText(); err == nil {
		_ = el.Input("")
	}
	return el.Input(value)
}

func fillDate(el *rod.Element, value string) error {
	if normalize.LooksISODate(value) {
		value = normalize.Date(value)
	}
	// Native date pickers take a time value; anything unparseable is typed as text.
	if t, err := time.Parse("01/02/2006", value); err == nil {
		return el.InputTime(t)
	}
	return fillText(el, value)
}

const readOptionsJS = `() => Array.from(this.options).map(o => ({text: o.text, value: o.value}))`

const selectIndexJS = `(i) => {
	this.selectedIndex = i;
	this.dispatchEvent(new Event('input', {bubbles: true}));
	this.dispatchEvent(new Event('change', {bubbles: true}));
}`

func fillSelect(el *rod.Element, value string) error {
	res, err := el.Eval(readOptionsJS)
	if err != nil {
		return fmt.Errorf("read options: %w", err)
	}
	var options []Option
	for _, o := range res.Value.Arr() {
		options = append(options, Option{Text: o.Get("text").Str(), Value: o.Get("value").Str()})
	}

	idx, match := chooseOption(options, value)
	if match == MatchNone {
		return fmt.Errorf("no option matches %q among %d options", value, len(options))
	}
	if _, err := el.Eval(selectIndexJS, idx); err != nil {
		return fmt.Errorf("select option %d: %w", idx, err)
	}
	return nil
}

// escapeCSSSelector escapes characters that are special in a CSS id selector.
func escapeCSSSelector(s string) string {
	var out []rune
	for _, r := range s {
		switch r {
		case '/', '.', ':', '[', ']', '(', ')', '#', '>', '+', '~', '=', '^', '$', '*', '|', '!', '@', '%', '&', '\'', '"', '`', '{', '}', ' ', ',', '\\':
			out = append(out, '\\', r)
		default:
			out = append(out, r)
		}
	}
	return string(out)
}

// escapeAttributeValue escapes a value for a double-quoted CSS attribute selector.
func escapeAttributeValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

const (
	upperAlpha = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerAlpha = "abcdefghijklmnopqrstuvwxyz"
)

// labelXPath matches <label> elements whose normalized text contains label,
// ignoring ASCII case.
func labelXPath(label string) string {
	return fmt.Sprintf(`//label[contains(translate(normalize-space(string(.)), "%s", "%s"), %s)]`,
		upperAlpha, lowerAlpha, xpathLiteral(strings.ToLower(label)))
}

// xpathLiteral quotes s for XPath 1.0, which has no escape sequences.
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	parts := strings.Split(s, `"`)
	var b strings.Builder
	b.WriteString("concat(")
	for i, p := range parts {
		if i > 0 {
			b.WriteString(`, '"', `)
		}
		b.WriteString(`"` + p + `"`)
	}
	b.WriteString(")")
	return b.String()
}

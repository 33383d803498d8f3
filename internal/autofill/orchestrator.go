package autofill

import (
	"context"
	"fmt"

	"formfill-mcp-server/internal/browser"
	"formfill-mcp-server/internal/document"
	"formfill-mcp-server/internal/mapping"
	"formfill-mcp-server/internal/recorder"

	"go.uber.org/zap"
)

// Session is the live page a run drives. *browser.Session implements it.
type Session interface {
	Navigate(ctx context.Context, url string) error
	Fill(ctx context.Context, f browser.Field, value string) bool
	Capture(ctx context.Context, path string) (browser.CaptureStats, error)
	Close() error
}

// Orchestrator fills every mapping entry in order, then captures the page.
type Orchestrator struct {
	mapping    mapping.Mapping
	outputPath string
	rec        *recorder.Recorder
	logger     *zap.Logger
}

func NewOrchestrator(m mapping.Mapping, outputPath string, rec *recorder.Recorder, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{mapping: m, outputPath: outputPath, rec: rec, logger: logger}
}

// Run fills the form from the two documents and captures it. It never panics
// and always returns a result.
func (o *Orchestrator) Run(ctx context.Context, sess Session, representative, passport document.Document) RunResult {
	res := newRunResult("")
	func() {
		defer func() {
			if p := recover(); p != nil {
				o.logger.Error("fill panicked", zap.Any("panic", p))
				res.fail("unexpected failure", fmt.Errorf("%v", p))
			}
		}()
		o.run(ctx, sess, sources(representative, passport), res)
	}()
	return *res
}

func sources(representative, passport document.Document) mapping.Sources {
	return mapping.Sources{
		document.Representative: representative,
		document.Passport:       passport,
	}
}

func (o *Orchestrator) run(ctx context.Context, sess Session, src mapping.Sources, res *RunResult) {
	if !o.fill(ctx, sess, src, res) {
		return
	}
	if path, ok := o.capture(ctx, sess, res); ok {
		res.Screenshot = &path
	}
}

// fill walks the entries. It returns false when the run was cancelled part way.
func (o *Orchestrator) fill(ctx context.Context, sess Session, src mapping.Sources, res *RunResult) bool {
	section := ""
	for _, e := range o.mapping.Fields {
		if err := ctx.Err(); err != nil {
			res.fail("fill aborted", err)
			return false
		}
		if e.Section != section {
			section = e.Section
			o.logger.Info("filling section", zap.String("section", o.mapping.SectionTitle(section)))
		}

		value, ok := e.Resolve(src)
		if !ok {
			o.logger.Debug("skipped: no source value", zap.String("field", e.Name))
			continue
		}

		filled := sess.Fill(ctx, browser.Field{ID: e.Target, Name: e.Name, Labels: e.Labels}, value)
		out := Outcome{Target: e.Target, Name: e.Name, Section: e.Section, Value: value, Succeeded: filled}
		res.record(out)
		o.rec.Log(recorder.EventField, out)
		if filled {
			o.logger.Info("field filled", zap.String("field", e.Name), zap.String("value", value))
		}
	}
	o.logger.Info("filling completed", zap.Int("total_filled", res.TotalFilled))
	return true
}

func (o *Orchestrator) capture(ctx context.Context, sess Session, res *RunResult) (path string, ok bool) {
	defer func() {
		if p := recover(); p != nil {
			o.logger.Error("capture panicked", zap.Any("panic", p))
			res.fail("capture screenshot", fmt.Errorf("%v", p))
			ok = false
		}
	}()

	stats, err := sess.Capture(ctx, o.outputPath)
	if err != nil {
		o.logger.Error("capture failed", zap.Error(err))
		res.fail("capture screenshot", err)
		return "", false
	}
	for _, t := range stats.Tiles {
		o.rec.Log(recorder.EventTile, t)
	}
	o.logger.Info("screenshot saved",
		zap.String("path", o.outputPath),
		zap.Int("tiles", len(stats.Tiles)),
		zap.Int("content_height", stats.ContentHeight))
	return o.outputPath, true
}

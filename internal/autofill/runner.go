package autofill

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"formfill-mcp-server/internal/artifact"
	"formfill-mcp-server/internal/browser"
	"formfill-mcp-server/internal/document"
	"formfill-mcp-server/internal/mapping"
	"formfill-mcp-server/internal/recorder"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Launcher opens a fresh session for one run.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(ctx context.Context) (Session, error)

func (f LauncherFunc) Launch(ctx context.Context) (Session, error) { return f(ctx) }

// BrowserLauncher adapts a rod launcher.
func BrowserLauncher(l *browser.Launcher) Launcher {
	return LauncherFunc(func(ctx context.Context) (Session, error) {
		s, err := l.Launch(ctx)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

// Options configures a Runner.
type Options struct {
	FormURL    string
	OutputPath string
	// Publisher uploads the screenshot after capture. Nil disables publishing.
	Publisher artifact.Publisher
	Recorder  *recorder.Recorder
	Logger    *zap.Logger
}

// Runner owns the session lifecycle of a run: launch, navigate, fill and
// capture, publish, teardown. Runs are serialized since they share the
// screenshot path.
type Runner struct {
	launcher  Launcher
	orch      *Orchestrator
	formURL   string
	publisher artifact.Publisher
	rec       *recorder.Recorder
	logger    *zap.Logger
	newID     func() string

	mu sync.Mutex
}

func NewRunner(l Launcher, m mapping.Mapping, opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		launcher:  l,
		orch:      NewOrchestrator(m, opts.OutputPath, opts.Recorder, logger.Named("orchestrator")),
		formURL:   opts.FormURL,
		publisher: opts.Publisher,
		rec:       opts.Recorder,
		logger:    logger.Named("runner"),
		newID:     uuid.NewString,
	}
}

// Mapping returns the field table the runner fills.
func (r *Runner) Mapping() mapping.Mapping { return r.orch.mapping }

// Run performs one complete fill-and-capture session. It never panics and
// never returns an error: run-level failures are reported in Errors alongside
// whatever was filled before them.
func (r *Runner) Run(ctx context.Context, representative, passport document.Document) (result RunResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	runID := r.newID()
	log := r.logger.With(zap.String("run_id", runID))
	if err := r.rec.Start(runID); err != nil {
		log.Warn("trace unavailable", zap.Error(err))
	}
	r.rec.Log(recorder.EventRunStarted, map[string]interface{}{
		"url":            r.formURL,
		"representative": representative,
		"passport":       passport,
	})

	res := newRunResult(runID)
	var sess Session
	defer func() {
		if p := recover(); p != nil {
			log.Error("run panicked", zap.Any("panic", p), zap.Stack("stack"))
			res.fail("unexpected failure", fmt.Errorf("%v", p))
		}
		if sess != nil {
			r.teardown(sess, log)
		}
		result = *res
		r.rec.Log(recorder.EventRunFinished, result)
		if err := r.rec.Close(); err != nil {
			log.Warn("close trace failed", zap.Error(err))
		}
		log.Info("run finished",
			zap.Int("total_filled", result.TotalFilled),
			zap.Int("errors", len(result.Errors)))
	}()

	log.Info("launching browser")
	var err error
	sess, err = r.launcher.Launch(ctx)
	if err != nil {
		log.Error("launch failed", zap.Error(err))
		res.fail("launch browser", err)
		return
	}

	log.Info("navigating", zap.String("url", r.formURL))
	if err := sess.Navigate(ctx, r.formURL); err != nil {
		log.Error("navigation failed", zap.Error(err))
		res.fail("navigate to "+r.formURL, err)
		return
	}

	r.orch.run(ctx, sess, sources(representative, passport), res)

	if res.Screenshot != nil && r.publisher != nil {
		loc, err := r.publisher.Publish(ctx, *res.Screenshot)
		if err != nil {
			log.Error("publish failed", zap.Error(err))
			res.fail("publish screenshot", err)
		} else {
			res.ArtifactURL = loc
			log.Info("screenshot published", zap.String("location", loc))
		}
	}
	return
}

// Inspect opens the form, or url when given, and lists its visible controls.
func (r *Runner) Inspect(ctx context.Context, url string) ([]browser.Control, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if url == "" {
		url = r.formURL
	}
	sess, err := r.launcher.Launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	defer r.teardown(sess, r.logger)

	surveyor, ok := sess.(interface {
		Survey(ctx context.Context) ([]browser.Control, error)
	})
	if !ok {
		return nil, errors.New("session does not support form inspection")
	}
	if err := sess.Navigate(ctx, url); err != nil {
		return nil, fmt.Errorf("navigate to %s: %w", url, err)
	}
	return surveyor.Survey(ctx)
}

// teardown closes the session. Failures are logged and dropped.
func (r *Runner) teardown(sess Session, log *zap.Logger) {
	defer func() {
		if p := recover(); p != nil {
			log.Warn("teardown panicked", zap.Any("panic", p))
		}
	}()
	if err := sess.Close(); err != nil {
		log.Warn("teardown failed", zap.Error(err))
	}
}

package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"formfill-mcp-server/internal/config"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// ErrInteractionTimeout marks a browser step that did not finish within its bound.
var ErrInteractionTimeout = errors.New("interaction timeout")

// TimeoutError names the step that timed out.
type TimeoutError struct {
	Step string
	Err  error
}

func (e *TimeoutError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", ErrInteractionTimeout, e.Step)
	}
	return fmt.Sprintf("%s: %s: %v", ErrInteractionTimeout, e.Step, e.Err)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrInteractionTimeout }

func (e *TimeoutError) Unwrap() error { return e.Err }

// stepErr wraps err with the step name, as a TimeoutError when ctx expired.
func stepErr(ctx context.Context, step string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Step: step, Err: err}
	}
	return fmt.Errorf("%s: %w", step, err)
}

// Launcher starts browser sessions from configuration.
type Launcher struct {
	cfg    config.BrowserConfig
	shot   config.ScreenshotConfig
	logger *zap.Logger
}

func NewLauncher(cfg config.BrowserConfig, shot config.ScreenshotConfig, logger *zap.Logger) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Launcher{cfg: cfg, shot: shot, logger: logger}
}

func (l *Launcher) newLauncher() *launcher.Launcher {
	launch := launcher.New().
		Headless(l.cfg.IsHeadless()).
		NoSandbox(l.cfg.IsNoSandbox()).
		Set("disable-gpu").
		Set("disable-dev-shm-usage")
	if l.cfg.Bin != "" {
		launch = launch.Bin(l.cfg.Bin)
	}
	for _, rawFlag := range l.cfg.Flags {
		flagStr := strings.TrimLeft(rawFlag, "-")
		name, val, hasVal := strings.Cut(flagStr, "=")
		if name == "" {
			continue
		}
		if hasVal {
			launch = launch.Set(flags.Flag(name), val)
		} else {
			launch = launch.Set(flags.Flag(name))
		}
	}
	return launch
}

// Launch connects to the configured debugger URL, or starts a local Chrome,
// and opens one page in a fresh incognito context.
func (l *Launcher) Launch(ctx context.Context) (*Session, error) {
	log := l.logger.Named("session")

	controlURL := l.cfg.DebuggerURL
	var proc *launcher.Launcher
	if controlURL == "" {
		proc = l.newLauncher()
		u, err := proc.Launch()
		if err != nil {
			// Fallback: let Rod pick the binary, port and defaults.
			log.Warn("configured launch failed, retrying with defaults", zap.Error(err))
			fallback := launcher.New().Headless(l.cfg.IsHeadless()).NoSandbox(l.cfg.IsNoSandbox())
			alt, altErr := fallback.Launch()
			if altErr != nil {
				return nil, fmt.Errorf("launch chrome: %w (fallback: %v)", err, altErr)
			}
			proc, u = fallback, alt
		}
		controlURL = u
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		if proc != nil {
			proc.Kill()
		}
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	log.Info("browser connected", zap.String("control_url", controlURL))

	s := &Session{browser: b, proc: proc, cfg: l.cfg, logger: log}

	incognito, err := b.Incognito()
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("incognito context: %w", err)
	}
	s.incognito = incognito
	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("create page: %w", err)
	}
	s.page = page

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             l.cfg.GetViewportWidth(),
		Height:            l.cfg.GetViewportHeight(),
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		log.Warn("failed to set viewport", zap.Error(err))
	}

	s.resolver = NewResolver(page, l.cfg.StepTimeoutDuration(), l.logger.Named("resolver"))
	s.stitcher = NewStitcher(l.shot, l.logger.Named("stitcher"))
	return s, nil
}

// Session is one browser with one page, owned by a single run.
type Session struct {
	browser   *rod.Browser
	incognito *rod.Browser
	page      *rod.Page
	proc      *launcher.Launcher // nil when attached to an external browser
	resolver  *Resolver
	stitcher  *Stitcher
	cfg       config.BrowserConfig
	logger    *zap.Logger
}

// Navigate loads url and waits for the load event within the navigation timeout.
func (s *Session) Navigate(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.NavigationTimeoutDuration())
	defer cancel()

	page := s.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return stepErr(ctx, "navigate", err)
	}
	if err := page.WaitLoad(); err != nil {
		return stepErr(ctx, "wait for page load", err)
	}
	s.logger.Info("page loaded", zap.String("url", url))

	if ce := s.logger.Check(zap.DebugLevel, "form structure"); ce != nil {
		controls, err := s.Survey(ctx)
		if err != nil {
			s.logger.Debug("form survey failed", zap.Error(err))
		} else {
			ce.Write(zap.Int("controls", len(controls)), zap.Any("detail", controls))
		}
	}
	return nil
}

// Fill resolves f on the page and applies value. See Resolver.Fill.
func (s *Session) Fill(ctx context.Context, f Field, value string) bool {
	return s.resolver.Fill(ctx, f, value)
}

// Capture writes a full-page screenshot to path within the capture timeout.
func (s *Session) Capture(ctx context.Context, path string) (CaptureStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.CaptureTimeoutDuration())
	defer cancel()

	vp := &pageViewport{page: s.page, settle: s.cfg.SettleTimeoutDuration()}
	stats, err := s.stitcher.Capture(ctx, vp, path)
	if err != nil && !errors.Is(err, ErrInteractionTimeout) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = &TimeoutError{Step: "capture", Err: err}
	}
	return stats, err
}

// Control is one visible form control found by Survey.
type Control struct {
	Tag         string `json:"tag"`
	Name        string `json:"name,omitempty"`
	ID          string `json:"id,omitempty"`
	Type        string `json:"type,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
}

const surveyJS = `() => Array.from(document.querySelectorAll('input, select, textarea'))
	.filter(el => {
		const r = el.getBoundingClientRect();
		const st = window.getComputedStyle(el);
		return r.width > 0 && r.height > 0 && st.visibility !== 'hidden' && st.display !== 'none';
	})
	.filter(el => el.name || el.id)
	.map(el => ({
		tag: el.tagName.toLowerCase(),
		name: el.getAttribute('name') || '',
		id: el.id || '',
		type: el.getAttribute('type') || '',
		placeholder: el.getAttribute('placeholder') || '',
	}))`

// Survey lists the visible, named form controls on the current page.
func (s *Session) Survey(ctx context.Context) ([]Control, error) {
	res, err := s.page.Context(ctx).Eval(surveyJS)
	if err != nil {
		return nil, stepErr(ctx, "survey form", err)
	}
	items := res.Value.Arr()
	controls := make([]Control, 0, len(items))
	for _, it := range items {
		controls = append(controls, Control{
			Tag:         it.Get("tag").Str(),
			Name:        it.Get("name").Str(),
			ID:          it.Get("id").Str(),
			Type:        it.Get("type").Str(),
			Placeholder: it.Get("placeholder").Str(),
		})
	}
	return controls, nil
}

// Close tears down the page and its incognito context. A browser this session
// launched is closed and its process reaped; an attached browser is left running.
// Every step runs even when an earlier one fails.
func (s *Session) Close() error {
	var errs []error
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close page: %w", err))
		}
	}
	if s.incognito != nil {
		if err := s.incognito.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close incognito context: %w", err))
		}
	}
	if s.proc != nil && s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}
	if s.proc != nil {
		s.proc.Kill()
		s.proc.Cleanup()
	}
	s.logger.Info("browser shutdown complete")
	return errors.Join(errs...)
}

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFormURL is the intake form the engine is built against.
const DefaultFormURL = "https://mendrika-alma.github.io/form-submission/"

// Config captures all tunable settings for the form automation server.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Browser    BrowserConfig    `yaml:"browser"`
	Form       FormConfig       `yaml:"form"`
	Screenshot ScreenshotConfig `yaml:"screenshot"`
	Recorder   RecorderConfig   `yaml:"recorder"`
	Artifact   ArtifactConfig   `yaml:"artifact"`
	MCP        MCPConfig        `yaml:"mcp"`
}

type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	LogFile string `yaml:"log_file"`
	// debug | info | warn | error
	LogLevel string `yaml:"log_level"`
}

// BrowserConfig configures how we attach to or launch Chrome for Rod.
type BrowserConfig struct {
	// Control endpoint (e.g., ws://localhost:9222). When set, no browser is launched.
	DebuggerURL string `yaml:"debugger_url"`
	// Optional Chrome binary. Empty lets Rod find or download one.
	Bin string `yaml:"bin"`
	// Headless controls whether Chrome runs in headless mode (default: true).
	Headless *bool `yaml:"headless"`
	// NoSandbox disables the Chrome sandbox, required in most containers (default: true).
	NoSandbox *bool `yaml:"no_sandbox"`
	// Extra launcher flags, e.g. ["--lang=en-US", "--disable-extensions"].
	Flags []string `yaml:"flags"`
	// Viewport for new sessions (default: 1280x900).
	ViewportWidth  int `yaml:"viewport_width"`
	ViewportHeight int `yaml:"viewport_height"`
	// Bound for navigation plus load (e.g., "15s").
	NavigationTimeout string `yaml:"navigation_timeout"`
	// Bound for each field interaction.
	StepTimeout string `yaml:"step_timeout"`
	// Bound for each layout settle after resize or scroll.
	SettleTimeout string `yaml:"settle_timeout"`
	// Bound for the whole screenshot capture.
	CaptureTimeout string `yaml:"capture_timeout"`
}

type FormConfig struct {
	URL string `yaml:"url"`
	// Optional mapping YAML replacing the embedded field table.
	MappingPath string `yaml:"mapping_path"`
}

type ScreenshotConfig struct {
	OutputPath string `yaml:"output_path"`
	MaxWidth   int    `yaml:"max_width"`
	MaxHeight  int    `yaml:"max_height"`
	// Pixels of overlap between consecutive tiles.
	Overlap int `yaml:"overlap"`
}

// RecorderConfig controls the per-run JSONL flight recorder.
type RecorderConfig struct {
	Enabled  bool   `yaml:"enabled"`
	TraceDir string `yaml:"trace_dir"`
	MaxFiles int    `yaml:"max_files"`
}

// ArtifactConfig publishes the screenshot to S3-compatible storage when Bucket is set.
type ArtifactConfig struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	Prefix    string `yaml:"prefix"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

type MCPConfig struct {
	// When set, starts an SSE server on this port instead of stdio.
	SSEPort int `yaml:"sse_port"`
}

// DefaultConfig provides reasonable defaults for local development.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Name:     "formfill-mcp",
			Version:  "0.1.0",
			LogFile:  "formfill-mcp.log",
			LogLevel: "info",
		},
		Browser: BrowserConfig{
			ViewportWidth:     1280,
			ViewportHeight:    900,
			NavigationTimeout: "15s",
			StepTimeout:       "5s",
			SettleTimeout:     "3s",
			CaptureTimeout:    "60s",
		},
		Form: FormConfig{
			URL: DefaultFormURL,
		},
		Screenshot: ScreenshotConfig{
			OutputPath: "uploads/form_filled.png",
			MaxWidth:   1920,
			MaxHeight:  32767,
			Overlap:    20,
		},
		Recorder: RecorderConfig{
			Enabled:  false,
			TraceDir: "data/traces",
			MaxFiles: 3,
		},
		Artifact: ArtifactConfig{
			Region: "us-east-1",
			Prefix: "screenshots/",
		},
	}
}

// Load reads YAML config from disk and overlays defaults. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, cfg.Validate()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate ensures required fields exist so a run can start deterministically.
func (c *Config) Validate() error {
	if c.Server.Name == "" {
		return errors.New("server.name is required")
	}
	switch c.Server.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("server.log_level %q is not one of debug|info|warn|error", c.Server.LogLevel)
	}
	if c.Form.URL == "" {
		return errors.New("form.url is required")
	}
	if u, err := url.Parse(c.Form.URL); err != nil || u.Scheme == "" {
		return fmt.Errorf("form.url %q is not an absolute URL", c.Form.URL)
	}
	if c.Screenshot.OutputPath == "" {
		return errors.New("screenshot.output_path is required")
	}
	if c.Screenshot.Overlap < 0 {
		return errors.New("screenshot.overlap must not be negative")
	}
	if c.Screenshot.MaxHeight > 0 && c.Screenshot.Overlap >= c.Screenshot.MaxHeight {
		return errors.New("screenshot.overlap must be smaller than screenshot.max_height")
	}
	if c.Artifact.Bucket != "" && c.Artifact.Region == "" {
		return errors.New("artifact.region is required when artifact.bucket is set")
	}
	return nil
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// NavigationTimeoutDuration returns the parsed navigation timeout with a sane default.
func (b BrowserConfig) NavigationTimeoutDuration() time.Duration {
	return parseDuration(b.NavigationTimeout, 15*time.Second)
}

// StepTimeoutDuration returns the per-field interaction bound.
func (b BrowserConfig) StepTimeoutDuration() time.Duration {
	return parseDuration(b.StepTimeout, 5*time.Second)
}

// SettleTimeoutDuration returns the bound for a single layout settle.
func (b BrowserConfig) SettleTimeoutDuration() time.Duration {
	return parseDuration(b.SettleTimeout, 3*time.Second)
}

// CaptureTimeoutDuration returns the bound for the whole screenshot capture.
func (b BrowserConfig) CaptureTimeoutDuration() time.Duration {
	return parseDuration(b.CaptureTimeout, 60*time.Second)
}

// IsHeadless returns whether Chrome should run in headless mode (default: true).
func (b BrowserConfig) IsHeadless() bool {
	if b.Headless == nil {
		return true
	}
	return *b.Headless
}

// IsNoSandbox returns whether the Chrome sandbox is disabled (default: true).
func (b BrowserConfig) IsNoSandbox() bool {
	if b.NoSandbox == nil {
		return true
	}
	return *b.NoSandbox
}

// GetViewportWidth returns the viewport width with a sane default.
func (b BrowserConfig) GetViewportWidth() int {
	if b.ViewportWidth <= 0 {
		return 1280
	}
	return b.ViewportWidth
}

// GetViewportHeight returns the viewport height with a sane default.
func (b BrowserConfig) GetViewportHeight() int {
	if b.ViewportHeight <= 0 {
		return 900
	}
	return b.ViewportHeight
}

// GetMaxWidth caps the capture width (default 1920).
func (s ScreenshotConfig) GetMaxWidth() int {
	if s.MaxWidth <= 0 {
		return 1920
	}
	return s.MaxWidth
}

// GetMaxHeight caps the capture viewport height (default 32767, a common renderer limit).
func (s ScreenshotConfig) GetMaxHeight() int {
	if s.MaxHeight <= 0 {
		return 32767
	}
	return s.MaxHeight
}

// GetMaxFiles returns how many traces the recorder keeps.
func (r RecorderConfig) GetMaxFiles() int {
	if r.MaxFiles <= 0 {
		return 3
	}
	return r.MaxFiles
}

// Enabled reports whether screenshots are published after capture.
func (a ArtifactConfig) Enabled() bool {
	return a.Bucket != ""
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Name != "formfill-mcp" {
		t.Errorf("expected server name 'formfill-mcp', got %q", cfg.Server.Name)
	}
	if cfg.Server.LogLevel != "info" {
		t.Errorf("expected log level 'info', got %q", cfg.Server.LogLevel)
	}
	if cfg.Form.URL != DefaultFormURL {
		t.Errorf("expected form url %q, got %q", DefaultFormURL, cfg.Form.URL)
	}
	if cfg.Screenshot.OutputPath != "uploads/form_filled.png" {
		t.Errorf("unexpected output path %q", cfg.Screenshot.OutputPath)
	}
	if cfg.Screenshot.Overlap != 20 {
		t.Errorf("expected overlap 20, got %d", cfg.Screenshot.Overlap)
	}
	if cfg.Recorder.Enabled {
		t.Error("expected recorder to be disabled by default")
	}
	if cfg.Artifact.Enabled() {
		t.Error("expected artifact publishing to be disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("empty path should yield defaults: %v", err)
	}
	if cfg.Form.URL != DefaultFormURL {
		t.Errorf("expected default form url, got %q", cfg.Form.URL)
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestLoadValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  name: "test-server"
  log_level: debug

browser:
  debugger_url: "ws://localhost:9222"
  headless: false
  navigation_timeout: "20s"
  viewport_width: 1024

form:
  url: "http://localhost:8080/form"

screenshot:
  output_path: "out/shot.png"
  overlap: 40

recorder:
  enabled: true
  max_files: 5

artifact:
  bucket: "shots"
  endpoint: "http://localhost:9000"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.Name != "test-server" {
		t.Errorf("expected server name 'test-server', got %q", cfg.Server.Name)
	}
	// Unset keys keep their defaults.
	if cfg.Server.Version != "0.1.0" {
		t.Errorf("expected default version, got %q", cfg.Server.Version)
	}
	if cfg.Browser.DebuggerURL != "ws://localhost:9222" {
		t.Errorf("expected debugger URL 'ws://localhost:9222', got %q", cfg.Browser.DebuggerURL)
	}
	if cfg.Browser.IsHeadless() {
		t.Error("expected headless to be false")
	}
	if cfg.Browser.NavigationTimeoutDuration() != 20*time.Second {
		t.Errorf("expected 20s navigation timeout, got %v", cfg.Browser.NavigationTimeoutDuration())
	}
	if cfg.Browser.GetViewportWidth() != 1024 || cfg.Browser.GetViewportHeight() != 900 {
		t.Errorf("unexpected viewport %dx%d", cfg.Browser.GetViewportWidth(), cfg.Browser.GetViewportHeight())
	}
	if cfg.Screenshot.Overlap != 40 {
		t.Errorf("expected overlap 40, got %d", cfg.Screenshot.Overlap)
	}
	if !cfg.Recorder.Enabled || cfg.Recorder.GetMaxFiles() != 5 {
		t.Errorf("unexpected recorder config %+v", cfg.Recorder)
	}
	if !cfg.Artifact.Enabled() || cfg.Artifact.Region != "us-east-1" {
		t.Errorf("unexpected artifact config %+v", cfg.Artifact)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("invalid: yaml: content:"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"empty server name", func(c *Config) { c.Server.Name = "" }, "server.name is required"},
		{"bad log level", func(c *Config) { c.Server.LogLevel = "verbose" }, "server.log_level"},
		{"empty form url", func(c *Config) { c.Form.URL = "" }, "form.url is required"},
		{"relative form url", func(c *Config) { c.Form.URL = "form.html" }, "not an absolute URL"},
		{"empty output path", func(c *Config) { c.Screenshot.OutputPath = "" }, "screenshot.output_path is required"},
		{"negative overlap", func(c *Config) { c.Screenshot.Overlap = -1 }, "must not be negative"},
		{"overlap too large", func(c *Config) { c.Screenshot.MaxHeight = 20 }, "smaller than screenshot.max_height"},
		{"bucket without region", func(c *Config) {
			c.Artifact.Bucket = "b"
			c.Artifact.Region = ""
		}, "artifact.region is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error but got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestDurations(t *testing.T) {
	tests := []struct {
		name     string
		cfg      BrowserConfig
		get      func(BrowserConfig) time.Duration
		expected time.Duration
	}{
		{"navigation empty", BrowserConfig{}, BrowserConfig.NavigationTimeoutDuration, 15 * time.Second},
		{"navigation valid", BrowserConfig{NavigationTimeout: "20s"}, BrowserConfig.NavigationTimeoutDuration, 20 * time.Second},
		{"navigation invalid", BrowserConfig{NavigationTimeout: "soon"}, BrowserConfig.NavigationTimeoutDuration, 15 * time.Second},
		{"step milliseconds", BrowserConfig{StepTimeout: "500ms"}, BrowserConfig.StepTimeoutDuration, 500 * time.Millisecond},
		{"step negative", BrowserConfig{StepTimeout: "-1s"}, BrowserConfig.StepTimeoutDuration, 5 * time.Second},
		{"settle empty", BrowserConfig{}, BrowserConfig.SettleTimeoutDuration, 3 * time.Second},
		{"capture minutes", BrowserConfig{CaptureTimeout: "2m"}, BrowserConfig.CaptureTimeoutDuration, 2 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.get(tt.cfg); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestBoolDefaults(t *testing.T) {
	off := false
	if !(BrowserConfig{}).IsHeadless() {
		t.Error("expected headless by default")
	}
	if !(BrowserConfig{}).IsNoSandbox() {
		t.Error("expected no_sandbox by default")
	}
	if (BrowserConfig{Headless: &off}).IsHeadless() {
		t.Error("expected explicit false to win")
	}
	if (BrowserConfig{NoSandbox: &off}).IsNoSandbox() {
		t.Error("expected explicit false to win")
	}
}

func TestSizeDefaults(t *testing.T) {
	if got := (BrowserConfig{ViewportWidth: -5}).GetViewportWidth(); got != 1280 {
		t.Errorf("expected 1280, got %d", got)
	}
	if got := (BrowserConfig{}).GetViewportHeight(); got != 900 {
		t.Errorf("expected 900, got %d", got)
	}
	if got := (ScreenshotConfig{}).GetMaxWidth(); got != 1920 {
		t.Errorf("expected 1920, got %d", got)
	}
	if got := (ScreenshotConfig{MaxHeight: 4000}).GetMaxHeight(); got != 4000 {
		t.Errorf("expected 4000, got %d", got)
	}
	if got := (RecorderConfig{}).GetMaxFiles(); got != 3 {
		t.Errorf("expected 3, got %d", got)
	}
}

package main

import (
	"context"
	"fmt"

	"formfill-mcp-server/internal/artifact"
	"formfill-mcp-server/internal/autofill"
	"formfill-mcp-server/internal/browser"
	"formfill-mcp-server/internal/config"
	"formfill-mcp-server/internal/mapping"
	"formfill-mcp-server/internal/recorder"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type globalOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "formfill",
		Short:         "Fill the intake web form from extracted document data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to the YAML config file (defaults when empty)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override server.log_level (debug, info, warn, error)")

	root.AddCommand(
		runCmd(opts),
		serveCmd(opts),
		mappingCmd(opts),
		normalizeCmd(),
	)
	return root
}

func (o *globalOptions) load() (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to load config: %w", err)
	}
	if o.logLevel != "" {
		cfg.Server.LogLevel = o.logLevel
		if err := cfg.Validate(); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// buildRunner wires the browser launcher, field mapping, trace recorder and
// artifact publisher into one runner.
func buildRunner(ctx context.Context, cfg config.Config, logger *zap.Logger) (*autofill.Runner, error) {
	m, err := mapping.Load(cfg.Form.MappingPath)
	if err != nil {
		return nil, err
	}

	opts := autofill.Options{
		FormURL:    cfg.Form.URL,
		OutputPath: cfg.Screenshot.OutputPath,
		Logger:     logger,
	}
	if cfg.Recorder.Enabled {
		rec, err := recorder.New(cfg.Recorder.TraceDir, cfg.Recorder.GetMaxFiles())
		if err != nil {
			return nil, fmt.Errorf("trace recorder: %w", err)
		}
		opts.Recorder = rec
	}
	if cfg.Artifact.Enabled() {
		pub, err := artifact.NewS3Publisher(ctx, cfg.Artifact)
		if err != nil {
			return nil, fmt.Errorf("artifact publisher: %w", err)
		}
		opts.Publisher = pub
	}

	launcher := browser.NewLauncher(cfg.Browser, cfg.Screenshot, logger.Named("browser"))
	return autofill.NewRunner(autofill.BrowserLauncher(launcher), m, opts), nil
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"formfill-mcp-server/internal/document"
	"formfill-mcp-server/internal/mapping"
	mcpserver "formfill-mcp-server/internal/mcp"
	"formfill-mcp-server/internal/normalize"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func runCmd(opts *globalOptions) *cobra.Command {
	var repPath, passPath, url, output string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fill the form once from extracted document files and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			if repPath == "" && passPath == "" {
				return errors.New("at least one of --representative or --passport is required")
			}
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if url != "" {
				cfg.Form.URL = url
			}
			if output != "" {
				cfg.Screenshot.OutputPath = output
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			rep, err := loadDocument(repPath)
			if err != nil {
				return err
			}
			pass, err := loadDocument(passPath)
			if err != nil {
				return err
			}

			logger, err := newLogger(cfg.Server.LogLevel, "")
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			runner, err := buildRunner(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			result := runner.Run(cmd.Context(), rep, pass)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return err
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("run finished with %d error(s)", len(result.Errors))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&repPath, "representative", "", "Extracted representative form JSON")
	cmd.Flags().StringVar(&passPath, "passport", "", "Extracted passport JSON")
	cmd.Flags().StringVar(&url, "url", "", "Override form.url")
	cmd.Flags().StringVar(&output, "output", "", "Override screenshot.output_path")
	return cmd
}

func loadDocument(path string) (document.Document, error) {
	if path == "" {
		return document.Document{}, nil
	}
	return document.Load(path)
}

func serveCmd(opts *globalOptions) *cobra.Command {
	var ssePort int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the form filler as MCP tools over stdio or SSE",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if ssePort != 0 {
				cfg.MCP.SSEPort = ssePort
			}

			// stdio carries the protocol, so logs go to the file.
			logPath := ""
			if cfg.MCP.SSEPort == 0 {
				logPath = cfg.Server.LogFile
			}
			logger, err := newLogger(cfg.Server.LogLevel, logPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx := cmd.Context()
			runner, err := buildRunner(ctx, cfg, logger)
			if err != nil {
				return err
			}
			server, err := mcpserver.NewServer(cfg, runner, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize MCP server: %w", err)
			}

			var startErr error
			if cfg.MCP.SSEPort > 0 {
				logger.Info("starting MCP SSE server", zap.Int("port", cfg.MCP.SSEPort), zap.String("form_url", cfg.Form.URL))
				startErr = server.StartSSE(ctx, cfg.MCP.SSEPort)
			} else {
				logger.Info("starting MCP stdio server", zap.String("form_url", cfg.Form.URL))
				startErr = server.Start(ctx)
			}
			if startErr != nil && !errors.Is(startErr, context.Canceled) {
				return fmt.Errorf("server exited with error: %w", startErr)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&ssePort, "sse-port", 0, "Serve over SSE on this port (overrides mcp.sse_port)")
	return cmd
}

func mappingCmd(opts *globalOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "mapping",
		Short: "Print the active field mapping",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			m, err := mapping.Load(cfg.Form.MappingPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(m)
			}
			raw, err := yaml.Marshal(m)
			if err != nil {
				return err
			}
			_, err = out.Write(raw)
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of YAML")
	return cmd
}

func normalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <kind> <value>",
		Short: "Apply a value normalizer (" + strings.Join(normalize.Names(), ", ") + ")",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fn, ok := normalize.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown kind %q (want one of %s)", args[0], strings.Join(normalize.Names(), ", "))
			}
			fmt.Fprintln(cmd.OutOrStdout(), fn(args[1]))
			return nil
		},
	}
}

package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentbox/agentbox/internal/export"
	"github.com/agentbox/agentbox/internal/trace"
	"github.com/agentbox/agentbox/internal/tracefile"
)

const otlpShutdownTimeout = 10 * time.Second

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Database     string
	Output       string
	OTLPEndpoint string
	ServiceName  string
}

// ExportResult holds the export outcome.
type ExportResult struct {
	SessionID   string `json:"session_id"`
	Destination string `json:"destination,omitempty"`
	Endpoint    string `json:"endpoint,omitempty"`
	Bytes       int    `json:"bytes,omitempty"`
	Events      int    `json:"events,omitempty"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export <session-id>",
		Short: "Export a session as an archive document or OTLP spans",
		Long: `Export a stored session.

By default the session is written as an archive document to stdout;
use --out to write a file instead. With --otlp the session is
re-emitted as OpenTelemetry spans to an OTLP HTTP collector,
preserving hierarchy and recorded timestamps.

Examples:
  agentbox export demo-0001 --db ./agentbox.db > demo.json
  agentbox export demo-0001 --db ./agentbox.db --out demo.json
  agentbox export demo-0001 --db ./agentbox.db --otlp http://localhost:4318`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVarP(&opts.Output, "out", "o", "-", "output file, or - for stdout")
	cmd.Flags().StringVar(&opts.OTLPEndpoint, "otlp", "", "OTLP HTTP collector endpoint")
	cmd.Flags().StringVar(&opts.ServiceName, "service", "agentbox", "service name for OTLP export")

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command, sessionID string) error {
	ctx := context.Background()

	if opts.OTLPEndpoint != "" && cmd.Flags().Changed("out") {
		return NewExitError(ExitCommandError, "--out and --otlp are mutually exclusive")
	}

	st, err := openStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	sess, err := loadStoredSession(ctx, st, sessionID)
	if err != nil {
		return err
	}

	if opts.OTLPEndpoint != "" {
		return exportOTLP(opts, cmd, sess)
	}
	return exportDocument(opts, cmd, sess)
}

// exportDocument writes the session archive document to stdout or a file.
func exportDocument(opts *ExportOptions, cmd *cobra.Command, sess *trace.Session) error {
	data, err := tracefile.Encode(sess)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to encode session", err)
	}

	if opts.Output == "-" {
		// Raw document on stdout, nothing else; pipe-friendly.
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}

	if err := os.WriteFile(opts.Output, data, 0o644); err != nil {
		_ = newFormatter(opts.RootOptions, cmd).Error(ErrCodeExport, err.Error(), nil)
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to write %s", opts.Output), err)
	}

	if opts.Format == "json" {
		return newFormatter(opts.RootOptions, cmd).Success(ExportResult{
			SessionID:   sess.ID,
			Destination: opts.Output,
			Bytes:       len(data),
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported to: %s\n", opts.Output)
	return nil
}

// exportOTLP re-emits the session as OpenTelemetry spans.
func exportOTLP(opts *ExportOptions, cmd *cobra.Command, sess *trace.Session) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	exporter, err := export.New(ctx, opts.OTLPEndpoint, opts.ServiceName)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create OTLP exporter", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), otlpShutdownTimeout)
		defer cancel()
		_ = exporter.Shutdown(shutdownCtx)
	}()

	if err := exporter.ExportSession(ctx, sess); err != nil {
		return WrapExitError(ExitFailure, "failed to export session", err)
	}

	if opts.Format == "json" {
		return newFormatter(opts.RootOptions, cmd).Success(ExportResult{
			SessionID: sess.ID,
			Endpoint:  opts.OTLPEndpoint,
			Events:    len(sess.Events),
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d event(s) to %s\n", len(sess.Events), opts.OTLPEndpoint)
	return nil
}

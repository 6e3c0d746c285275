package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentbox/agentbox/internal/trace"
)

// showEventLimit caps the events table in text output. The full log is
// available via --format json or the export command.
const showEventLimit = 20

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Database string
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show details of a recorded session",
		Long: `Show a session's metadata and its event log.

Text output lists the first 20 events; use --format json for the
complete session document.

Examples:
  agentbox show demo-0001 --db ./agentbox.db
  agentbox show demo-0001 --db ./agentbox.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runShow(opts *ShowOptions, cmd *cobra.Command, sessionID string) error {
	ctx := context.Background()

	st, err := openStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	sess, err := loadStoredSession(ctx, st, sessionID)
	if err != nil {
		return err
	}

	if opts.Format == "json" {
		return outputShowJSON(cmd, sess)
	}
	return outputShowText(cmd, sess)
}

// outputShowJSON outputs the full session document as JSON.
func outputShowJSON(cmd *cobra.Command, sess *trace.Session) error {
	response := CLIResponse{
		Status: "ok",
		Data:   sess,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputShowText outputs the session header and events table.
func outputShowText(cmd *cobra.Command, sess *trace.Session) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Session: %s\n", sess.Name)
	fmt.Fprintf(w, "ID: %s\n", sess.ID)
	fmt.Fprintf(w, "Status: %s\n", sess.Status)
	if sess.Framework != "" {
		fmt.Fprintf(w, "Framework: %s\n", sess.Framework)
	}
	fmt.Fprintf(w, "Started: %s\n", formatStart(sess.Start))
	fmt.Fprintf(w, "Events: %d\n", len(sess.Events))
	fmt.Fprintf(w, "Snapshots: %d\n", len(sess.Snapshots))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Events ===")
	if len(sess.Events) == 0 {
		fmt.Fprintln(w, "  (no events)")
		return nil
	}

	shown := sess.Events
	if len(shown) > showEventLimit {
		shown = shown[:showEventLimit]
	}

	fmt.Fprintf(w, "  %-12s  %-40s  %-9s  %s\n", "TYPE", "NAME", "STATUS", "DURATION")
	for i := range shown {
		ev := &shown[i]
		fmt.Fprintf(w, "  %-12s  %-40s  %-9s  %s\n",
			ev.Type,
			truncateName(ev.Name, 40),
			ev.Status,
			formatEventDuration(ev))
	}
	if extra := len(sess.Events) - showEventLimit; extra > 0 {
		fmt.Fprintf(w, "  ... (%d more)\n", extra)
	}

	return nil
}

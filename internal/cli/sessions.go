package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentbox/agentbox/internal/trace"
)

// SessionsOptions holds flags for the sessions command.
type SessionsOptions struct {
	*RootOptions
	Database string
	Limit    int
}

// SessionsResult holds the session listing output.
type SessionsResult struct {
	Sessions []trace.Summary `json:"sessions"`
	Total    int             `json:"total"`
}

// NewSessionsCommand creates the sessions command.
func NewSessionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recorded sessions",
		Long: `List trace sessions stored in the archive, newest first.

Examples:
  agentbox sessions --db ./agentbox.db
  agentbox sessions --db ./agentbox.db --limit 50
  agentbox sessions --db ./agentbox.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessions(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of sessions to list")

	return cmd
}

func runSessions(opts *SessionsOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := openStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	summaries, err := st.ListSessions(ctx, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}

	if opts.Format == "json" {
		return outputSessionsJSON(cmd, SessionsResult{
			Sessions: summaries,
			Total:    len(summaries),
		})
	}
	return outputSessionsText(cmd, summaries)
}

// outputSessionsJSON outputs the session listing as JSON.
func outputSessionsJSON(cmd *cobra.Command, result SessionsResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputSessionsText outputs the session listing as a table.
func outputSessionsText(cmd *cobra.Command, summaries []trace.Summary) error {
	w := cmd.OutOrStdout()

	if len(summaries) == 0 {
		fmt.Fprintln(w, "No trace sessions found.")
		return nil
	}

	fmt.Fprintf(w, "%-19s  %-30s  %-9s  %6s  %s\n",
		"ID", "NAME", "STATUS", "EVENTS", "STARTED")
	for _, sum := range summaries {
		fmt.Fprintf(w, "%-19s  %-30s  %-9s  %6d  %s\n",
			truncateID(sum.ID),
			truncateName(sum.Name, 30),
			sum.Status,
			sum.EventCount,
			formatStart(sum.Start))
	}
	fmt.Fprintf(w, "\n%d session(s)\n", len(summaries))

	return nil
}

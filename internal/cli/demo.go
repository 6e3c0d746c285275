package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentbox/agentbox/internal/recorder"
)

// DemoOptions holds flags for the demo command.
type DemoOptions struct {
	*RootOptions
	Database string
}

// DemoResult holds the demo seeding outcome.
type DemoResult struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
	Events    int    `json:"events"`
	Snapshots int    `json:"snapshots"`
}

// NewDemoCommand creates the demo command.
func NewDemoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DemoOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Seed the archive with the sample session",
		Long: `Record the scripted checkout-agent session into the archive.

The demo session is deterministic; seeding twice replaces the stored
copy with an identical one. Useful for trying out the replay frontend
without instrumenting an agent first.

Examples:
  agentbox demo --db ./agentbox.db
  agentbox demo --db ./agentbox.db && agentbox serve --db ./agentbox.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runDemo(opts *DemoOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := openStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	sess := recorder.Demo()
	if err := st.SaveSession(ctx, sess); err != nil {
		return WrapExitError(ExitCommandError, "failed to save demo session", err)
	}

	if opts.Format == "json" {
		return newFormatter(opts.RootOptions, cmd).Success(DemoResult{
			SessionID: sess.ID,
			Name:      sess.Name,
			Events:    len(sess.Events),
			Snapshots: len(sess.Snapshots),
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Seeded session %s (%s)\n", sess.ID, sess.Name)
	fmt.Fprintf(cmd.OutOrStdout(), "%d events, %d snapshots\n", len(sess.Events), len(sess.Snapshots))
	return nil
}

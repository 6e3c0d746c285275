package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// DeleteOptions holds flags for the delete command.
type DeleteOptions struct {
	*RootOptions
	Database string
	Force    bool
}

// DeleteResult holds the delete outcome.
type DeleteResult struct {
	SessionID string `json:"session_id"`
	Deleted   bool   `json:"deleted"`
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeleteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session from the archive",
		Long: `Delete a stored session, its events, and its snapshots.

Asks for confirmation unless --force is given.

Examples:
  agentbox delete demo-0001 --db ./agentbox.db
  agentbox delete demo-0001 --db ./agentbox.db --force`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "delete without confirmation")

	return cmd
}

func runDelete(opts *DeleteOptions, cmd *cobra.Command, sessionID string) error {
	ctx := context.Background()

	if !opts.Force {
		ok, err := confirmDelete(cmd, sessionID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read confirmation", err)
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
	}

	st, err := openStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	deleted, err := st.DeleteSession(ctx, sessionID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to delete session", err)
	}
	if !deleted {
		return NewExitError(ExitFailure, fmt.Sprintf("session not found: %s", sessionID))
	}

	if opts.Format == "json" {
		return newFormatter(opts.RootOptions, cmd).Success(DeleteResult{
			SessionID: sessionID,
			Deleted:   true,
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted session: %s\n", sessionID)
	return nil
}

// confirmDelete prompts on stdout and reads one line from stdin.
// Only "y" and "yes" confirm.
func confirmDelete(cmd *cobra.Command, sessionID string) (bool, error) {
	fmt.Fprintf(cmd.OutOrStdout(), "Delete session %s? [y/N]: ", sessionID)

	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return false, err
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentbox/agentbox/internal/playback"
	"github.com/agentbox/agentbox/internal/store"
	"github.com/agentbox/agentbox/internal/trace"
)

// newFormatter builds the output formatter for a command. Verbose
// diagnostics go to stderr so JSON on stdout stays parseable.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// openStore opens the archive database, mapping failures to command
// errors.
func openStore(path string) (*store.Store, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// loadStoredSession fetches one session by id. A missing session is an
// operation failure, not a command error.
func loadStoredSession(ctx context.Context, st *store.Store, id string) (*trace.Session, error) {
	sess, err := st.GetSession(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, NewExitError(ExitFailure, fmt.Sprintf("session not found: %s", id))
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load session", err)
	}
	return sess, nil
}

// truncateID shortens a long id for table display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}

// truncateName caps a display name at max runes.
func truncateName(name string, max int) string {
	runes := []rune(name)
	if len(runes) <= max {
		return name
	}
	return string(runes[:max])
}

// formatStart renders a session start for listings, or "-" when the
// recorded timestamp never parsed.
func formatStart(t trace.Time) string {
	if !t.Valid() {
		return "-"
	}
	return t.Wall().Format("2006-01-02T15:04:05")
}

// formatEventDuration renders an event extent, "-" for point events.
func formatEventDuration(ev *trace.Event) string {
	d := ev.Duration()
	if d == 0 {
		return "-"
	}
	return playback.FormatDuration(d)
}

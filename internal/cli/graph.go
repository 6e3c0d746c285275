package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentbox/agentbox/internal/graph"
	"github.com/agentbox/agentbox/internal/trace"
)

// GraphOptions holds flags for the graph command.
type GraphOptions struct {
	*RootOptions
	Database string
	Selected string
}

// NewGraphCommand creates the graph command.
func NewGraphCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GraphOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "graph <session-id>",
		Short: "Print a session's event tree layout",
		Long: `Print the laid-out event tree of a session.

Text output indents each event by its nesting depth. JSON output is
the full layout with node positions and edges, the same projection the
replay frontend renders.

Examples:
  agentbox graph demo-0001 --db ./agentbox.db
  agentbox graph demo-0001 --db ./agentbox.db --selected demo-0005
  agentbox graph demo-0001 --db ./agentbox.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Selected, "selected", "", "event id to mark as selected")

	return cmd
}

func runGraph(opts *GraphOptions, cmd *cobra.Command, sessionID string) error {
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

	layout := graph.Build(trace.BuildTree(sess), opts.Selected)

	if opts.Format == "json" {
		return newFormatter(opts.RootOptions, cmd).Success(layout)
	}
	return outputGraphText(cmd, sess, layout)
}

// outputGraphText prints the layout as an indented tree listing.
func outputGraphText(cmd *cobra.Command, sess *trace.Session, layout *graph.Layout) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Session: %s (%s)\n", sess.Name, sess.ID)
	fmt.Fprintf(w, "Nodes: %d  Edges: %d\n", len(layout.Nodes), len(layout.Edges))
	fmt.Fprintln(w)

	for _, node := range layout.Nodes {
		marker := " "
		if node.Selected {
			marker = ">"
		}
		fmt.Fprintf(w, "%s %s%s (%s", marker, strings.Repeat("  ", node.Depth), node.Name, node.Type)
		if node.Status != "" {
			fmt.Fprintf(w, ", %s", node.Status)
		}
		fmt.Fprintln(w, ")")
	}

	if len(layout.Anomalies) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Anomalies ===")
		for _, anomaly := range layout.Anomalies {
			fmt.Fprintf(w, "  %s\n", anomaly)
		}
	}

	return nil
}

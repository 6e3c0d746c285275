// Package graph projects a session's event tree into a flat,
// render-ready layout: one positioned node per event plus the
// parent/child edges between them.
package graph

import (
	"fmt"
	"log/slog"

	"github.com/agentbox/agentbox/internal/trace"
)

// Spacing between layout positions, in abstract canvas units.
// Renderers scale these however they like; the core only promises
// that columns follow nesting depth and rows follow visit order.
const (
	ColumnSpacing = 250
	RowSpacing    = 100
)

// Node is one laid-out event.
type Node struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Type     trace.EventType `json:"event_type"`
	Status   trace.Status    `json:"status,omitempty"`
	Depth    int             `json:"depth"`
	Row      int             `json:"row"`
	X        int             `json:"x"`
	Y        int             `json:"y"`
	Selected bool            `json:"selected"`
}

// Edge links a parent event to one of its children.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Layout is the flattened projection of one event tree.
type Layout struct {
	Nodes     []Node   `json:"nodes"`
	Edges     []Edge   `json:"edges"`
	Anomalies []string `json:"anomalies,omitempty"`
}

type frame struct {
	node   *trace.Node
	depth  int
	parent string
}

// Build walks the tree in pre-order and assigns each event a column
// from its depth and a row from a monotonic visitation counter, so
// siblings and their subtrees stack downward while nesting moves
// right. The node matching selectedID is flagged.
//
// Malformed trees degrade instead of failing: a node seen twice keeps
// its repeat edge, descent stops there, and the anomaly is noted on
// the layout. The result is a partial graph, never an error.
func Build(root *trace.Node, selectedID string) *Layout {
	out := &Layout{}
	if root == nil {
		return out
	}

	visited := make(map[string]bool)
	row := 0

	stack := []frame{{node: root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.node == nil {
			continue
		}

		childDepth := f.depth
		childParent := f.parent
		if ev := f.node.Event; ev != nil {
			if f.parent != "" {
				out.Edges = append(out.Edges, Edge{From: f.parent, To: ev.ID})
			}
			if visited[ev.ID] {
				note := fmt.Sprintf("event %q visited twice, descent stopped", ev.ID)
				out.Anomalies = append(out.Anomalies, note)
				slog.Warn("event tree revisits node, skipping branch", "event_id", ev.ID)
				continue
			}
			visited[ev.ID] = true
			out.Nodes = append(out.Nodes, Node{
				ID:       ev.ID,
				Name:     ev.Name,
				Type:     ev.Type,
				Status:   ev.Status,
				Depth:    f.depth,
				Row:      row,
				X:        f.depth * ColumnSpacing,
				Y:        row * RowSpacing,
				Selected: selectedID != "" && ev.ID == selectedID,
			})
			row++
			childDepth = f.depth + 1
			childParent = ev.ID
		}
		for i := len(f.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{
				node:   f.node.Children[i],
				depth:  childDepth,
				parent: childParent,
			})
		}
	}
	return out
}

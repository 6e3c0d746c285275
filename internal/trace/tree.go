package trace

import "log/slog"

// Node is one position in a session's event hierarchy.
//
// Trees cross the process boundary (decoded archives, adapter output),
// so consumers must not assume they are well formed. Traversal code in
// other packages guards against repeated nodes and shared subtrees.
type Node struct {
	Event    *Event
	Children []*Node
}

// BuildTree arranges a session's events into their parent/child
// hierarchy.
//
// The root is the event named by RootEventID when that event exists;
// otherwise a synthetic root with a nil Event collects every parentless
// event. Malformed relationships never lose data:
//   - duplicate event ids keep the first occurrence
//   - events naming an unknown parent (or themselves) attach to the root
//   - events stranded inside a parent cycle attach to the root
//
// Each rescue is logged as an anomaly.
func BuildTree(s *Session) *Node {
	nodes := make(map[string]*Node, len(s.Events))
	order := make([]*Node, 0, len(s.Events))
	for i := range s.Events {
		ev := &s.Events[i]
		if _, dup := nodes[ev.ID]; dup {
			slog.Warn("duplicate event id, keeping first occurrence",
				"session_id", s.ID,
				"event_id", ev.ID,
			)
			continue
		}
		n := &Node{Event: ev}
		nodes[ev.ID] = n
		order = append(order, n)
	}

	var root *Node
	if s.RootEventID != "" {
		root = nodes[s.RootEventID]
	}
	if root == nil {
		root = &Node{}
	}

	for _, n := range order {
		if n == root {
			continue
		}
		ev := n.Event
		parent := nodes[ev.ParentID]
		if ev.ParentID == "" || parent == nil || parent == n {
			if ev.ParentID != "" {
				slog.Warn("event parent unresolved, attaching to root",
					"session_id", s.ID,
					"event_id", ev.ID,
					"parent_id", ev.ParentID,
				)
			}
			root.Children = append(root.Children, n)
			continue
		}
		parent.Children = append(parent.Children, n)
	}

	rescueStranded(s.ID, root, order)
	return root
}

// rescueStranded reattaches events that ended up unreachable from the
// root. This happens when parent references form a cycle: every member
// has a parent, so none lands under the root, yet the whole group is
// orphaned.
func rescueStranded(sessionID string, root *Node, order []*Node) {
	reachable := make(map[*Node]bool, len(order)+1)
	mark(root, reachable)

	for _, n := range order {
		if reachable[n] {
			continue
		}
		slog.Warn("event unreachable from root (parent cycle), attaching to root",
			"session_id", sessionID,
			"event_id", n.Event.ID,
			"parent_id", n.Event.ParentID,
		)
		root.Children = append(root.Children, n)
		mark(n, reachable)
	}
}

// mark walks the subtree at n, using seen as the visited set so that
// cyclic child links cannot loop the walk.
func mark(n *Node, seen map[*Node]bool) {
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		stack = append(stack, cur.Children...)
	}
}

package canvas

import (
	"fmt"

	"github.com/google/uuid"
)

// PrepareCanvas readies a canvas for persistence.
// Nodes without IDs get auto-generated UUIDs, a zero viewport becomes the
// default one, and the parent links are checked for duplicates and cycles.
func PrepareCanvas(c *Canvas) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	seen := make(map[string]struct{}, len(c.Nodes))
	for i := range c.Nodes {
		n := &c.Nodes[i]
		if n.ID == "" {
			n.ID = uuid.NewString()
		}
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
		}
		seen[n.ID] = struct{}{}
		if n.Type == "" {
			n.Type = NodeImage
		}
		if n.Status == "" {
			n.Status = StatusIdle
		}
	}
	c.Viewport = c.Viewport.normalized()
	return ValidateAcyclic(c.Nodes)
}

// ValidateAcyclic checks that the parent links don't form a cycle using DFS.
// Links to missing parents are ignored.
func ValidateAcyclic(nodes []Node) error {
	adj := make(map[string][]string)
	for _, n := range nodes {
		if n.ParentID != "" {
			adj[n.ParentID] = append(adj[n.ParentID], n.ID)
		}
	}

	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)

	state := make(map[string]int, len(nodes))
	for _, n := range nodes {
		state[n.ID] = unvisited
	}

	var dfs func(id string) bool
	dfs = func(id string) bool {
		state[id] = visiting
		for _, next := range adj[id] {
			switch state[next] {
			case visiting:
				return true
			case unvisited:
				if dfs(next) {
					return true
				}
			}
		}
		state[id] = visited
		return false
	}

	for _, n := range nodes {
		if state[n.ID] == unvisited && dfs(n.ID) {
			return ErrCycleDetected
		}
	}
	return nil
}

// wouldCycle reports whether making parentID the parent of childID would make
// childID its own ancestor.
func wouldCycle(nodes []Node, childID, parentID string) bool {
	if childID == parentID {
		return true
	}
	byID := index(nodes)
	seen := make(map[string]struct{})
	for cur := parentID; cur != ""; {
		if cur == childID {
			return true
		}
		if _, ok := seen[cur]; ok {
			return false
		}
		seen[cur] = struct{}{}
		n, ok := byID[cur]
		if !ok {
			return false
		}
		cur = n.ParentID
	}
	return false
}

func index(nodes []Node) map[string]Node {
	m := make(map[string]Node, len(nodes))
	for _, n := range nodes {
		m[n.ID] = n
	}
	return m
}

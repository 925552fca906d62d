package canvas

import (
	"slices"
	"sync"
)

// Transform derives the next node collection from the previous one.
// It must not modify prev in place.
type Transform func(prev []Node) []Node

// Graph holds the canonical node collection and viewport of one canvas.
// All mutation goes through Update / UpdateViewport, each applied under a
// single lock so the transform always sees the latest state.
type Graph struct {
	mu       sync.Mutex
	nodes    []Node
	viewport Viewport
}

// NewGraph returns a graph seeded with a copy of nodes and the given viewport.
func NewGraph(nodes []Node, v Viewport) *Graph {
	return &Graph{nodes: slices.Clone(nodes), viewport: v.normalized()}
}

// Update replaces the node collection with fn(prev).
func (g *Graph) Update(fn Transform) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes = fn(g.nodes)
	graphUpdates.Inc()
}

// UpdateViewport replaces the viewport with fn(prev).
func (g *Graph) UpdateViewport(fn func(prev Viewport) Viewport) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.viewport = fn(g.viewport).normalized()
}

// Link sets childID's parent to parentID after checking that the link keeps
// the graph acyclic. Missing children are a no-op.
func (g *Graph) Link(childID, parentID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if wouldCycle(g.nodes, childID, parentID) {
		return ErrCycleDetected
	}
	g.nodes = SetParent(childID, parentID)(g.nodes)
	graphUpdates.Inc()
	return nil
}

// Snapshot returns a copy of the current node collection.
func (g *Graph) Snapshot() []Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.nodes)
}

// Viewport returns the current viewport.
func (g *Graph) Viewport() Viewport {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.viewport
}

// Canvas returns a copy of the graph as a persistable canvas.
func (g *Graph) Canvas(id string) *Canvas {
	g.mu.Lock()
	defer g.mu.Unlock()
	return &Canvas{ID: id, Nodes: slices.Clone(g.nodes), Viewport: g.viewport}
}

// Lookup finds a node by id.
func (g *Graph) Lookup(id string) (Node, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Find(g.nodes, id)
}

// Connections derives parent → child edges. Links to missing parents are skipped.
func (g *Graph) Connections() []Connection {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Connections(g.nodes)
}

// Find looks up a node by id in a collection.
func Find(nodes []Node, id string) (Node, bool) {
	if id == "" {
		return Node{}, false
	}
	for _, n := range nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Connections derives the renderable edges of a collection.
func Connections(nodes []Node) []Connection {
	byID := index(nodes)
	conns := []Connection{}
	for _, n := range nodes {
		if n.ParentID == "" {
			continue
		}
		if _, ok := byID[n.ParentID]; !ok {
			continue
		}
		conns = append(conns, Connection{ParentID: n.ParentID, ChildID: n.ID})
	}
	return conns
}

// DanglingLinks returns the ids of nodes whose parent does not exist.
func DanglingLinks(nodes []Node) []string {
	byID := index(nodes)
	var out []string
	for _, n := range nodes {
		if n.ParentID == "" {
			continue
		}
		if _, ok := byID[n.ParentID]; !ok {
			out = append(out, n.ID)
		}
	}
	return out
}

// HitTest returns the first node, in collection order, whose box contains the
// canvas-space point. The node with id exclude is never returned.
func HitTest(nodes []Node, px, py float64, exclude string) (Node, bool) {
	for _, n := range nodes {
		if n.ID == exclude {
			continue
		}
		if n.Contains(px, py) {
			return n, true
		}
	}
	return Node{}, false
}

// ── Transforms ────────────────────────────────────────────────────────

// mapNode returns a transform that rewrites the node matching id.
// The previous slice is left untouched; a missing id returns prev as is.
func mapNode(id string, fn func(n Node) Node) Transform {
	return func(prev []Node) []Node {
		i := slices.IndexFunc(prev, func(n Node) bool { return n.ID == id })
		if i < 0 {
			return prev
		}
		next := slices.Clone(prev)
		next[i] = fn(next[i])
		return next
	}
}

// MoveNode adds (dx, dy) to the position of node id.
func MoveNode(id string, dx, dy float64) Transform {
	return mapNode(id, func(n Node) Node {
		n.X += dx
		n.Y += dy
		return n
	})
}

// SetParent sets or, with an empty parentID, clears the parent of childID.
// It does not check for cycles; use Graph.Link for that.
func SetParent(childID, parentID string) Transform {
	return mapNode(childID, func(n Node) Node {
		n.ParentID = parentID
		return n
	})
}

// ClearParent removes childID's parent link.
func ClearParent(childID string) Transform {
	return SetParent(childID, "")
}

// SetStatus updates the generation status of node id.
func SetStatus(id string, s Status) Transform {
	return mapNode(id, func(n Node) Node {
		n.Status = s
		return n
	})
}

// SetResult records a generation result on node id. Empty values are left unchanged.
func SetResult(id, resultURL, lastFrame string) Transform {
	return mapNode(id, func(n Node) Node {
		if resultURL != "" {
			n.ResultURL = resultURL
		}
		if lastFrame != "" {
			n.LastFrame = lastFrame
		}
		return n
	})
}

// AddNode appends n unless a node with the same id already exists.
func AddNode(n Node) Transform {
	return func(prev []Node) []Node {
		if _, ok := Find(prev, n.ID); ok {
			return prev
		}
		next := make([]Node, 0, len(prev)+1)
		next = append(next, prev...)
		return append(next, n)
	}
}

// RemoveNode drops node id. Children keep their now-dangling parent link.
func RemoveNode(id string) Transform {
	return func(prev []Node) []Node {
		if _, ok := Find(prev, id); !ok {
			return prev
		}
		return slices.DeleteFunc(slices.Clone(prev), func(n Node) bool { return n.ID == id })
	}
}

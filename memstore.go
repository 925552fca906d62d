package canvas

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// MemStore implements Store in process memory. Nothing survives a restart.
type MemStore struct {
	mu       sync.RWMutex
	canvases map[string]*Canvas
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{canvases: make(map[string]*Canvas)}
}

func (s *MemStore) CreateSchema(ctx context.Context) error { return nil }

func (s *MemStore) DropSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canvases = make(map[string]*Canvas)
	return nil
}

// SaveCanvas replaces the stored canvas with c.
func (s *MemStore) SaveCanvas(ctx context.Context, c *Canvas) (*Canvas, error) {
	if err := PrepareCanvas(c); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canvases[c.ID] = cloneCanvas(c)
	return c, nil
}

// GetCanvas returns nil, nil if the canvas doesn't exist.
func (s *MemStore) GetCanvas(ctx context.Context, canvasID string) (*Canvas, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.canvases[canvasID]
	if !ok {
		return nil, nil
	}
	return cloneCanvas(c), nil
}

func (s *MemStore) DeleteCanvas(ctx context.Context, canvasID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.canvases, canvasID)
	return nil
}

func (s *MemStore) SaveViewport(ctx context.Context, canvasID string, v Viewport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.canvases[canvasID]
	if !ok {
		c = &Canvas{ID: canvasID}
		s.canvases[canvasID] = c
	}
	c.Viewport = v.normalized()
	return nil
}

// SaveNode inserts or replaces a node. The canvas is created on first use.
func (s *MemStore) SaveNode(ctx context.Context, canvasID string, node *Node) (string, error) {
	if node.ID == "" {
		node.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.canvases[canvasID]
	if !ok {
		c = &Canvas{ID: canvasID, Viewport: DefaultViewport()}
		s.canvases[canvasID] = c
	}
	next := AddNode(*node)(c.Nodes)
	if len(next) == len(c.Nodes) {
		next = mapNode(node.ID, func(Node) Node { return *node })(c.Nodes)
	}
	if err := ValidateAcyclic(next); err != nil {
		return "", err
	}
	c.Nodes = next
	return node.ID, nil
}

// GetNode returns nil, nil if not found.
func (s *MemStore) GetNode(ctx context.Context, canvasID, nodeID string) (*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.canvases[canvasID]
	if !ok {
		return nil, nil
	}
	n, ok := Find(c.Nodes, nodeID)
	if !ok {
		return nil, nil
	}
	return &n, nil
}

func (s *MemStore) DeleteNode(ctx context.Context, canvasID, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.canvases[canvasID]; ok {
		c.Nodes = RemoveNode(nodeID)(c.Nodes)
	}
	return nil
}

// ListNodes returns an empty slice (not nil) if none found.
func (s *MemStore) ListNodes(ctx context.Context, canvasID string) ([]Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.canvases[canvasID]
	if !ok {
		return []Node{}, nil
	}
	return slices.Clone(c.Nodes), nil
}

func cloneCanvas(c *Canvas) *Canvas {
	out := *c
	out.Nodes = slices.Clone(c.Nodes)
	if out.Nodes == nil {
		out.Nodes = []Node{}
	}
	return &out
}

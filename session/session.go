// Package session binds a canvas Graph and its gesture Controller to a Store.
//
// A Session serializes every pointer event and edit for one canvas, and
// persists the canvas whenever a resolved gesture or edit changed it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/meikuraledutech/canvas"
)

// MenuGap is the horizontal space between an anchor node and a node created from its menu.
const MenuGap = 60.0

var (
	ErrBadTarget = errors.New("session: pointer target is missing ids")
	ErrNoMenu    = errors.New("session: no add-node menu is open")
)

// Session is one live canvas.
type Session struct {
	id    string
	store canvas.Store
	log   *slog.Logger
	now   func() time.Time

	mu           sync.Mutex
	graph        *canvas.Graph
	ctrl         *canvas.Controller
	opts         canvas.Options
	menu         *canvas.MenuAnchor
	selectedNode string

	// persisted is false until the canvas exists in the store.
	persisted atomic.Bool
}

func newSession(c *canvas.Canvas, store canvas.Store, opts canvas.Options, log *slog.Logger) *Session {
	s := &Session{
		id:    c.ID,
		store: store,
		log:   log.With("canvas", c.ID),
		now:   time.Now,
		opts:  opts,
	}
	s.reset(c)
	return s
}

// reset rebuilds the graph and controller from c, cancelling any armed
// gesture first. Callers hold s.mu or own s exclusively.
func (s *Session) reset(c *canvas.Canvas) {
	if s.ctrl != nil {
		s.ctrl.Abort()
	}
	opts := s.opts
	opts.Logger = s.log
	opts.OnSelect = func(id string) { s.selectedNode = id }
	opts.OnOpenMenu = func(a canvas.MenuAnchor) { s.menu = &a }
	s.graph = canvas.NewGraph(c.Nodes, c.Viewport)
	s.ctrl = canvas.NewController(s.graph, &opts)
	s.menu = nil
	s.selectedNode = ""
}

// ID returns the canvas id.
func (s *Session) ID() string { return s.id }

// State returns a render-ready snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	st := newState(s.id, s.graph.Snapshot(), s.graph.Viewport())
	st.SelectedNode = s.selectedNode
	st.Menu = s.menu
	st.Gesture = gestureName(s.ctrl.State())
	if sel, ok := s.ctrl.Selected(); ok {
		st.Selected = &sel
	}
	return st
}

func newState(id string, nodes []canvas.Node, v canvas.Viewport) State {
	return State{
		ID:          id,
		Nodes:       nodes,
		Viewport:    v,
		Connections: canvas.Connections(nodes),
		Dangling:    canvas.DanglingLinks(nodes),
		Gesture:     gestureName(canvas.Idle{}),
	}
}

// Apply feeds one pointer event through the controller.
// When a pointer-up changed the canvas, the change is persisted before Apply returns.
func (s *Session) Apply(ctx context.Context, ev Event) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessionEvents.WithLabelValues(string(ev.Type)).Inc()
	pe := ev.pointer(s.now())

	var res Result
	switch ev.Type {
	case EventDown:
		r, err := s.down(ev, pe)
		if err != nil {
			return Result{}, err
		}
		res = r
	case EventMove:
		res.Moved = s.ctrl.Move(pe)
	case EventUp:
		out := s.ctrl.End(pe)
		res.Moved = out.Moved
		res.Menu = out.Menu
		res.Connected = out.Connected
		if out.Rejected != nil {
			res.Rejected = out.Rejected.Error()
		}
		if err := s.persistOutcome(ctx, out); err != nil {
			return res, err
		}
	case EventCancel:
		s.ctrl.Cancel(pe.PointerID)
	default:
		return Result{}, fmt.Errorf("session: unknown event type %q", ev.Type)
	}

	res.Gesture = gestureName(s.ctrl.State())
	res.SelectedNode = s.selectedNode
	if sel, ok := s.ctrl.Selected(); ok {
		res.Selected = &sel
	}
	return res, nil
}

func (s *Session) down(ev Event, pe canvas.PointerEvent) (Result, error) {
	t := ev.Target
	switch t.Kind {
	case TargetNode:
		if t.NodeID == "" {
			return Result{}, ErrBadTarget
		}
		return Result{Armed: s.ctrl.BeginNodeDrag(pe, t.NodeID)}, nil
	case TargetHandle:
		if t.NodeID == "" || !t.Side.Valid() {
			return Result{}, ErrBadTarget
		}
		s.menu = nil
		return Result{Armed: s.ctrl.BeginConnection(pe, t.NodeID, t.Side)}, nil
	case TargetEdge:
		if t.ParentID == "" || t.ChildID == "" {
			return Result{}, ErrBadTarget
		}
		s.ctrl.SelectConnection(t.ParentID, t.ChildID)
		return Result{}, nil
	default:
		s.ctrl.ClearSelection()
		s.menu = nil
		s.selectedNode = ""
		return Result{Armed: s.ctrl.BeginPan(pe)}, nil
	}
}

func (s *Session) persistOutcome(ctx context.Context, out canvas.Outcome) error {
	switch {
	case out.Mutated():
		if _, err := s.store.SaveCanvas(ctx, s.graph.Canvas(s.id)); err != nil {
			s.log.Error("persist canvas", "error", err)
			return fmt.Errorf("session: save canvas: %w", err)
		}
	case out.Panned:
		if err := s.store.SaveViewport(ctx, s.id, s.graph.Viewport()); err != nil {
			s.log.Error("persist viewport", "error", err)
			return fmt.Errorf("session: save viewport: %w", err)
		}
	default:
		return nil
	}
	s.persisted.Store(true)
	return nil
}

// Replace swaps the whole canvas, e.g. after an import. Any gesture in
// progress is dropped.
func (s *Session) Replace(ctx context.Context, c *canvas.Canvas) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = s.id
	saved, err := s.store.SaveCanvas(ctx, c)
	if err != nil {
		return State{}, err
	}
	s.reset(saved)
	s.persisted.Store(true)
	return s.stateLocked(), nil
}

// AddNode inserts n, generating an id if it has none.
func (s *Session) AddNode(ctx context.Context, n canvas.Node) (canvas.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addNodeLocked(ctx, n)
}

func (s *Session) addNodeLocked(ctx context.Context, n canvas.Node) (canvas.Node, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Type == "" {
		n.Type = canvas.NodeImage
	}
	if n.Status == "" {
		n.Status = canvas.StatusIdle
	}
	nodes := s.graph.Snapshot()
	if _, ok := canvas.Find(nodes, n.ID); ok {
		return canvas.Node{}, canvas.ErrDuplicateNode
	}
	if err := canvas.ValidateAcyclic(canvas.AddNode(n)(nodes)); err != nil {
		return canvas.Node{}, err
	}
	if _, err := s.store.SaveNode(ctx, s.id, &n); err != nil {
		return canvas.Node{}, fmt.Errorf("session: save node: %w", err)
	}
	s.graph.Update(canvas.AddNode(n))
	s.persisted.Store(true)
	return n, nil
}

// AddNodeFromMenu creates a node next to the open menu's anchor and links it:
// to the right it becomes the anchor's child, to the left the anchor's parent.
// The menu closes once the node is stored; a failed add leaves it open.
func (s *Session) AddNodeFromMenu(ctx context.Context, typ canvas.NodeType, prompt string) (canvas.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.menu == nil {
		return canvas.Node{}, ErrNoMenu
	}
	anchor := *s.menu

	src, ok := s.graph.Lookup(anchor.NodeID)
	if !ok {
		s.menu = nil
		return canvas.Node{}, canvas.ErrNodeNotFound
	}

	n := canvas.Node{ID: uuid.NewString(), Y: src.Y, Type: typ, Prompt: prompt}
	if anchor.Side == canvas.SideRight {
		w, _ := src.Size()
		n.X = src.X + w + MenuGap
		n.ParentID = src.ID
		added, err := s.addNodeLocked(ctx, n)
		if err != nil {
			return canvas.Node{}, err
		}
		s.menu = nil
		return added, nil
	}

	// The new node and the anchor's new parent link land in one canvas write.
	n.X = src.X - canvas.DefaultNodeWidth - MenuGap
	n.Status = canvas.StatusIdle
	if n.Type == "" {
		n.Type = canvas.NodeImage
	}
	insert := func(prev []canvas.Node) []canvas.Node {
		return canvas.SetParent(src.ID, n.ID)(canvas.AddNode(n)(prev))
	}
	next := insert(s.graph.Snapshot())
	if err := canvas.ValidateAcyclic(next); err != nil {
		return canvas.Node{}, err
	}
	if _, err := s.store.SaveCanvas(ctx, &canvas.Canvas{ID: s.id, Nodes: next, Viewport: s.graph.Viewport()}); err != nil {
		return canvas.Node{}, fmt.Errorf("session: save canvas: %w", err)
	}
	s.graph.Update(insert)
	s.menu = nil
	s.persisted.Store(true)
	return n, nil
}

// RemoveNode deletes a node. Children keep their dangling parent link.
func (s *Session) RemoveNode(ctx context.Context, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.graph.Lookup(nodeID); !ok {
		return canvas.ErrNodeNotFound
	}
	if err := s.store.DeleteNode(ctx, s.id, nodeID); err != nil {
		return fmt.Errorf("session: delete node: %w", err)
	}
	s.graph.Update(canvas.RemoveNode(nodeID))
	if s.selectedNode == nodeID {
		s.selectedNode = ""
	}
	if s.menu != nil && s.menu.NodeID == nodeID {
		s.menu = nil
	}
	return nil
}

// StatusUpdate is what the generation workflow reports for a node.
type StatusUpdate struct {
	Status    canvas.Status `json:"status" validate:"required,oneof=idle loading success error"`
	ResultURL string        `json:"result_url,omitempty"`
	LastFrame string        `json:"last_frame,omitempty"`
}

// SetStatus records generation progress on a node. It may arrive between
// the move events of a drag; both go through Graph.Update and compose.
func (s *Session) SetStatus(ctx context.Context, nodeID string, u StatusUpdate) (canvas.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	apply := func(prev []canvas.Node) []canvas.Node {
		next := canvas.SetStatus(nodeID, u.Status)(prev)
		return canvas.SetResult(nodeID, u.ResultURL, u.LastFrame)(next)
	}
	cur, ok := s.graph.Lookup(nodeID)
	if !ok {
		return canvas.Node{}, canvas.ErrNodeNotFound
	}
	n := apply([]canvas.Node{cur})[0]
	if _, err := s.store.SaveNode(ctx, s.id, &n); err != nil {
		return canvas.Node{}, fmt.Errorf("session: save node: %w", err)
	}
	s.graph.Update(apply)
	s.persisted.Store(true)
	return n, nil
}

// SelectConnection marks an edge as selected.
func (s *Session) SelectConnection(parentID, childID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl.SelectConnection(parentID, childID)
}

// DeleteSelectedConnection disconnects the selected edge. It reports false
// when nothing was selected.
func (s *Session) DeleteSelectedConnection(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sel, ok := s.ctrl.Selected()
	if !ok {
		return false, nil
	}
	if child, ok := s.graph.Lookup(sel.ChildID); ok {
		child.ParentID = ""
		if _, err := s.store.SaveNode(ctx, s.id, &child); err != nil {
			return false, fmt.Errorf("session: save node: %w", err)
		}
		s.persisted.Store(true)
	}
	s.ctrl.DeleteSelected()
	return true, nil
}

// Zoom applies a wheel step anchored at screen point (x, y).
func (s *Session) Zoom(ctx context.Context, x, y, deltaY float64) (canvas.Viewport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.graph.Viewport()
	s.ctrl.ZoomAt(x, y, deltaY)
	v := s.graph.Viewport()
	if err := s.store.SaveViewport(ctx, s.id, v); err != nil {
		s.graph.UpdateViewport(func(canvas.Viewport) canvas.Viewport { return prev })
		return prev, fmt.Errorf("session: save viewport: %w", err)
	}
	s.persisted.Store(true)
	return v, nil
}

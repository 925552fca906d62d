package canvas

import (
	"log/slog"
	"math"
	"time"
)

// PointerEvent is one pointer-down / move / up delivered by the host.
// X/Y are screen coordinates; MovementX/MovementY are the screen-space delta
// since the previous event of the same pointer.
type PointerEvent struct {
	PointerID int
	X, Y      float64
	MovementX float64
	MovementY float64
	Time      time.Time
}

// PointerCapture is the host's pointer-capture facility.
type PointerCapture interface {
	SetPointerCapture(pointerID int) error
	ReleasePointerCapture(pointerID int) error
}

type nopCapture struct{}

func (nopCapture) SetPointerCapture(int) error     { return nil }
func (nopCapture) ReleasePointerCapture(int) error { return nil }

// Gesture is the controller's armed state. It is one of Idle, DraggingNode,
// PanningCanvas or DraggingConnection.
type Gesture interface {
	gesture()
}

// Idle means no gesture is in progress.
type Idle struct{}

// DraggingNode moves NodeID with the pointer. Moved turns true once a move
// event actually displaced the node.
type DraggingNode struct {
	NodeID    string
	PointerID int
	Moved     bool
}

// PanningCanvas moves the viewport with the pointer.
type PanningCanvas struct {
	PointerID int
}

// DraggingConnection draws a provisional edge out of a node's handle.
// EndX/EndY are screen coordinates; Hovered is empty when no node is under the pointer.
type DraggingConnection struct {
	From      string
	Side      Side
	Start     time.Time
	EndX      float64
	EndY      float64
	Hovered   string
	PointerID int
}

func (Idle) gesture()               {}
func (DraggingNode) gesture()       {}
func (PanningCanvas) gesture()      {}
func (DraggingConnection) gesture() {}

// MenuAnchor is where the add-node menu opens after a click on a handle.
type MenuAnchor struct {
	NodeID string `json:"node_id"`
	Side   Side   `json:"side"`
}

// Outcome describes how a gesture resolved on pointer-up.
type Outcome struct {
	Moved     bool        `json:"moved,omitempty"`
	Panned    bool        `json:"panned,omitempty"`
	Menu      *MenuAnchor `json:"menu,omitempty"`
	Connected *Connection `json:"connected,omitempty"`
	Rejected  error       `json:"-"`
}

// Mutated reports whether the outcome changed the graph.
func (o Outcome) Mutated() bool {
	return o.Moved || o.Connected != nil
}

// Options configures a Controller.
type Options struct {
	// ClickThreshold separates a click on a handle from a drag. Default 200ms.
	ClickThreshold time.Duration

	// Zoom bounds for ZoomAt. Defaults 0.2 and 5.
	MinZoom float64
	MaxZoom float64

	// Capture receives pointer capture requests. Default: no-op.
	Capture PointerCapture

	// OnSelect is invoked when a node drag is armed.
	OnSelect func(nodeID string)

	// OnOpenMenu is invoked when a handle gesture resolves to a click.
	OnOpenMenu func(anchor MenuAnchor)

	Logger *slog.Logger
}

func (o *Options) withDefaults() Options {
	d := Options{
		ClickThreshold: 200 * time.Millisecond,
		MinZoom:        0.2,
		MaxZoom:        5.0,
		Capture:        nopCapture{},
		Logger:         slog.Default(),
	}
	if o == nil {
		return d
	}
	if o.ClickThreshold > 0 {
		d.ClickThreshold = o.ClickThreshold
	}
	if o.MinZoom > 0 {
		d.MinZoom = o.MinZoom
	}
	if o.MaxZoom > 0 {
		d.MaxZoom = o.MaxZoom
	}
	if o.Capture != nil {
		d.Capture = o.Capture
	}
	if o.Logger != nil {
		d.Logger = o.Logger
	}
	d.OnSelect = o.OnSelect
	d.OnOpenMenu = o.OnOpenMenu
	return d
}

// Controller turns pointer gestures into Graph mutations.
//
// A Controller holds a single gesture at a time and is not safe for concurrent
// use; the host delivers events from one thread of control. The Graph it
// drives may still be updated concurrently by other parties.
type Controller struct {
	g        *Graph
	opts     Options
	state    Gesture
	selected *Connection
}

// NewController returns an idle controller over g.
func NewController(g *Graph, opts *Options) *Controller {
	return &Controller{g: g, opts: opts.withDefaults(), state: Idle{}}
}

// State returns the current gesture.
func (c *Controller) State() Gesture { return c.state }

func (c *Controller) idle() bool {
	_, ok := c.state.(Idle)
	return ok
}

// BeginNodeDrag arms a node drag from a pointer-down on the node body.
func (c *Controller) BeginNodeDrag(ev PointerEvent, nodeID string) bool {
	if !c.idle() {
		return false
	}
	if err := c.opts.Capture.SetPointerCapture(ev.PointerID); err != nil {
		c.opts.Logger.Debug("set pointer capture", "pointer", ev.PointerID, "error", err)
	}
	if c.opts.OnSelect != nil {
		c.opts.OnSelect(nodeID)
	}
	c.state = DraggingNode{NodeID: nodeID, PointerID: ev.PointerID}
	return true
}

// BeginPan arms a canvas pan from a pointer-down on the background.
func (c *Controller) BeginPan(ev PointerEvent) bool {
	if !c.idle() {
		return false
	}
	c.state = PanningCanvas{PointerID: ev.PointerID}
	return true
}

// BeginConnection arms a connection drag from a pointer-down on a handle.
func (c *Controller) BeginConnection(ev PointerEvent, nodeID string, side Side) bool {
	if !c.idle() || !side.Valid() {
		return false
	}
	c.state = DraggingConnection{
		From:      nodeID,
		Side:      side,
		Start:     ev.Time,
		EndX:      ev.X,
		EndY:      ev.Y,
		PointerID: ev.PointerID,
	}
	return true
}

// Move applies a pointer-move to the active gesture. It reports whether a node
// position or the viewport changed.
func (c *Controller) Move(ev PointerEvent) bool {
	switch s := c.state.(type) {
	case DraggingNode:
		if ev.MovementX == 0 && ev.MovementY == 0 {
			return false
		}
		if _, ok := c.g.Lookup(s.NodeID); !ok {
			return false
		}
		zoom := c.g.Viewport().Zoom
		c.g.Update(MoveNode(s.NodeID, ev.MovementX/zoom, ev.MovementY/zoom))
		s.Moved = true
		c.state = s
		return true
	case PanningCanvas:
		c.g.UpdateViewport(func(v Viewport) Viewport {
			v.X += ev.MovementX
			v.Y += ev.MovementY
			return v
		})
		return true
	case DraggingConnection:
		s.EndX, s.EndY = ev.X, ev.Y
		s.Hovered = ""
		px, py := c.g.Viewport().ScreenToCanvas(ev.X, ev.Y)
		if n, ok := HitTest(c.g.Snapshot(), px, py, s.From); ok {
			s.Hovered = n.ID
		}
		c.state = s
		return false
	default:
		return false
	}
}

// End resolves the active gesture on pointer-up and returns to Idle.
func (c *Controller) End(ev PointerEvent) Outcome {
	prev := c.state
	c.state = Idle{}
	c.release(ev.PointerID)

	switch s := prev.(type) {
	case DraggingNode:
		if !s.Moved {
			gesturesTotal.WithLabelValues("node_drag", "click").Inc()
			return Outcome{}
		}
		gesturesTotal.WithLabelValues("node_drag", "moved").Inc()
		return Outcome{Moved: true}
	case PanningCanvas:
		gesturesTotal.WithLabelValues("pan", "moved").Inc()
		return Outcome{Panned: true}
	case DraggingConnection:
		return c.resolveConnection(s, ev.Time.Sub(s.Start))
	default:
		return Outcome{}
	}
}

// Cancel abandons the active gesture without resolving it.
func (c *Controller) Cancel(pointerID int) {
	if c.idle() {
		return
	}
	c.state = Idle{}
	c.release(pointerID)
	gesturesTotal.WithLabelValues("any", "cancelled").Inc()
}

// Abort cancels whatever gesture is armed, using its own pointer id.
func (c *Controller) Abort() {
	switch s := c.state.(type) {
	case DraggingNode:
		c.Cancel(s.PointerID)
	case PanningCanvas:
		c.Cancel(s.PointerID)
	case DraggingConnection:
		c.Cancel(s.PointerID)
	}
}

// release drops pointer capture; failures never abort teardown.
func (c *Controller) release(pointerID int) {
	if err := c.opts.Capture.ReleasePointerCapture(pointerID); err != nil {
		c.opts.Logger.Debug("release pointer capture", "pointer", pointerID, "error", err)
	}
}

func (c *Controller) resolveConnection(s DraggingConnection, elapsed time.Duration) Outcome {
	log := c.opts.Logger.With("from", s.From, "side", s.Side, "elapsed", elapsed)

	switch {
	case s.Hovered != "":
		conn := Connection{ParentID: s.From, ChildID: s.Hovered}
		if s.Side == SideLeft {
			conn = Connection{ParentID: s.Hovered, ChildID: s.From}
		}
		if _, ok := c.g.Lookup(conn.ChildID); !ok {
			gesturesTotal.WithLabelValues("connection", "noop").Inc()
			return Outcome{}
		}
		if _, ok := c.g.Lookup(conn.ParentID); !ok {
			gesturesTotal.WithLabelValues("connection", "noop").Inc()
			return Outcome{}
		}
		if err := c.g.Link(conn.ChildID, conn.ParentID); err != nil {
			log.Debug("connection rejected", "parent", conn.ParentID, "child", conn.ChildID, "error", err)
			gesturesTotal.WithLabelValues("connection", "rejected").Inc()
			return Outcome{Rejected: err}
		}
		log.Debug("connection created", "parent", conn.ParentID, "child", conn.ChildID)
		gesturesTotal.WithLabelValues("connection", "connected").Inc()
		return Outcome{Connected: &conn}

	case elapsed < c.opts.ClickThreshold:
		anchor := MenuAnchor{NodeID: s.From, Side: s.Side}
		if c.opts.OnOpenMenu != nil {
			c.opts.OnOpenMenu(anchor)
		}
		log.Debug("handle clicked, opening menu")
		gesturesTotal.WithLabelValues("connection", "menu").Inc()
		return Outcome{Menu: &anchor}

	default:
		gesturesTotal.WithLabelValues("connection", "noop").Inc()
		return Outcome{}
	}
}

// SelectConnection records the clicked edge, replacing any previous selection.
func (c *Controller) SelectConnection(parentID, childID string) {
	c.selected = &Connection{ParentID: parentID, ChildID: childID}
}

// Selected returns the selected edge, if any.
func (c *Controller) Selected() (Connection, bool) {
	if c.selected == nil {
		return Connection{}, false
	}
	return *c.selected, true
}

// ClearSelection drops the selected edge.
func (c *Controller) ClearSelection() { c.selected = nil }

// DeleteSelected disconnects the selected edge and clears the selection.
// It reports false when nothing was selected.
func (c *Controller) DeleteSelected() bool {
	if c.selected == nil {
		return false
	}
	childID := c.selected.ChildID
	c.selected = nil
	c.g.Update(ClearParent(childID))
	return true
}

// ZoomAt scales the viewport around the screen point (sx, sy). Positive
// deltaY zooms out. The canvas point under the cursor stays fixed.
func (c *Controller) ZoomAt(sx, sy, deltaY float64) {
	factor := 1.0 - math.Max(-0.5, math.Min(0.5, deltaY/500.0))
	c.g.UpdateViewport(func(v Viewport) Viewport {
		wx, wy := v.ScreenToCanvas(sx, sy)
		z := v.normalized().Zoom * factor
		z = math.Max(c.opts.MinZoom, math.Min(c.opts.MaxZoom, z))
		return Viewport{X: sx - wx*z, Y: sy - wy*z, Zoom: z}
	})
}

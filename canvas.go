package canvas

// Default node box used for hit-testing when a node carries no explicit size.
const (
	DefaultNodeWidth  = 340.0
	DefaultNodeHeight = 400.0
)

// NodeType is the kind of artifact a node generates.
type NodeType string

const (
	NodeImage NodeType = "image"
	NodeVideo NodeType = "video"
)

// Status is the generation state of a node.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Canvas is the persisted aggregate: every node plus the viewport it was last seen through.
type Canvas struct {
	ID       string   `json:"id"`
	Nodes    []Node   `json:"nodes" validate:"dive"`
	Viewport Viewport `json:"viewport"`
}

// Node is one generation unit on the canvas.
// X/Y are the canvas-space top-left corner. ParentID may reference a node that
// no longer exists; consumers must tolerate that.
type Node struct {
	ID       string   `json:"id,omitempty"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Width    float64  `json:"width,omitempty"`
	Height   float64  `json:"height,omitempty"`
	ParentID string   `json:"parent_id,omitempty"`
	Type     NodeType `json:"type" validate:"omitempty,oneof=image video"`
	Status   Status   `json:"status" validate:"omitempty,oneof=idle loading success error"`

	Prompt    string `json:"prompt,omitempty"`
	ResultURL string `json:"result_url,omitempty"`
	LastFrame string `json:"last_frame,omitempty"`
}

// Size returns the node's box, falling back to the default dimensions.
func (n Node) Size() (w, h float64) {
	w, h = n.Width, n.Height
	if w <= 0 {
		w = DefaultNodeWidth
	}
	if h <= 0 {
		h = DefaultNodeHeight
	}
	return w, h
}

// Contains reports whether the canvas-space point lies inside the node's box.
// Edges are inclusive.
func (n Node) Contains(px, py float64) bool {
	w, h := n.Size()
	return px >= n.X && px <= n.X+w && py >= n.Y && py <= n.Y+h
}

// Viewport is the pan/zoom transform between screen space and canvas space.
type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// DefaultViewport is the identity transform.
func DefaultViewport() Viewport {
	return Viewport{Zoom: 1}
}

// normalized guards against a zero or negative zoom read from storage or a client.
func (v Viewport) normalized() Viewport {
	if v.Zoom <= 0 {
		v.Zoom = 1
	}
	return v
}

// ScreenToCanvas converts a screen-space point to canvas space.
func (v Viewport) ScreenToCanvas(sx, sy float64) (float64, float64) {
	v = v.normalized()
	return (sx - v.X) / v.Zoom, (sy - v.Y) / v.Zoom
}

// Connection is a derived parent → child edge. It is never stored.
type Connection struct {
	ParentID string `json:"parent_id"`
	ChildID  string `json:"child_id"`
}

// Side identifies which connector handle of a node a gesture started on.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// Valid reports whether s is a known handle side.
func (s Side) Valid() bool {
	return s == SideLeft || s == SideRight
}

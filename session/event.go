package session

import (
	"time"

	"github.com/meikuraledutech/canvas"
)

// EventType is the pointer phase of an Event.
type EventType string

const (
	EventDown   EventType = "down"
	EventMove   EventType = "move"
	EventUp     EventType = "up"
	EventCancel EventType = "cancel"
)

// TargetKind is what a pointer-down landed on.
type TargetKind string

const (
	TargetNode       TargetKind = "node"
	TargetHandle     TargetKind = "handle"
	TargetBackground TargetKind = "background"
	TargetEdge       TargetKind = "edge"
)

// Target identifies the element under a pointer-down.
// NodeID/Side apply to node and handle targets, ParentID/ChildID to edges.
type Target struct {
	Kind     TargetKind  `json:"kind" validate:"omitempty,oneof=node handle background edge"`
	NodeID   string      `json:"node_id,omitempty"`
	Side     canvas.Side `json:"side,omitempty" validate:"omitempty,oneof=left right"`
	ParentID string      `json:"parent_id,omitempty"`
	ChildID  string      `json:"child_id,omitempty"`
}

// Event is a pointer event as sent by the browser canvas.
// X/Y are screen coordinates, DX/DY the movement since the previous event,
// and T the event timestamp in Unix milliseconds (zero means "now").
type Event struct {
	Type      EventType `json:"type" validate:"required,oneof=down move up cancel"`
	Target    Target    `json:"target"`
	PointerID int       `json:"pointer_id"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	DX        float64   `json:"dx"`
	DY        float64   `json:"dy"`
	T         int64     `json:"t"`
}

func (e Event) pointer(now time.Time) canvas.PointerEvent {
	ts := now
	if e.T != 0 {
		ts = time.UnixMilli(e.T)
	}
	return canvas.PointerEvent{
		PointerID: e.PointerID,
		X:         e.X,
		Y:         e.Y,
		MovementX: e.DX,
		MovementY: e.DY,
		Time:      ts,
	}
}

// Result reports what an event did.
type Result struct {
	Gesture      string             `json:"gesture"`
	Armed        bool               `json:"armed,omitempty"`
	Moved        bool               `json:"moved,omitempty"`
	Menu         *canvas.MenuAnchor `json:"menu,omitempty"`
	Connected    *canvas.Connection `json:"connected,omitempty"`
	Rejected     string             `json:"rejected,omitempty"`
	Selected     *canvas.Connection `json:"selected,omitempty"`
	SelectedNode string             `json:"selected_node,omitempty"`
}

// State is a render-ready view of a session.
type State struct {
	ID           string              `json:"id"`
	Nodes        []canvas.Node       `json:"nodes"`
	Viewport     canvas.Viewport     `json:"viewport"`
	Connections  []canvas.Connection `json:"connections"`
	Dangling     []string            `json:"dangling,omitempty"`
	Selected     *canvas.Connection  `json:"selected,omitempty"`
	SelectedNode string              `json:"selected_node,omitempty"`
	Menu         *canvas.MenuAnchor  `json:"menu,omitempty"`
	Gesture      string              `json:"gesture"`
}

func gestureName(g canvas.Gesture) string {
	switch g.(type) {
	case canvas.DraggingNode:
		return "dragging_node"
	case canvas.PanningCanvas:
		return "panning"
	case canvas.DraggingConnection:
		return "dragging_connection"
	default:
		return "idle"
	}
}

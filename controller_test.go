package canvas

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCapture struct {
	captured   []int
	released   []int
	releaseErr error
}

func (f *fakeCapture) SetPointerCapture(id int) error {
	f.captured = append(f.captured, id)
	return nil
}

func (f *fakeCapture) ReleasePointerCapture(id int) error {
	f.released = append(f.released, id)
	return f.releaseErr
}

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func at(ms int, x, y float64) PointerEvent {
	return PointerEvent{PointerID: 1, X: x, Y: y, Time: t0.Add(time.Duration(ms) * time.Millisecond)}
}

func delta(dx, dy float64) PointerEvent {
	return PointerEvent{PointerID: 1, MovementX: dx, MovementY: dy, Time: t0}
}

func TestNodeDragIsZoomInvariant(t *testing.T) {
	for _, z := range []float64{0.2, 0.5, 1, 2, 3, 4.75} {
		g := NewGraph(twoNodes(), Viewport{X: 13, Y: -7, Zoom: z})
		c := NewController(g, nil)

		require.True(t, c.BeginNodeDrag(at(0, 10, 10), "A"))
		assert.True(t, c.Move(delta(30, -12)))
		c.End(at(10, 0, 0))

		a, _ := g.Lookup("A")
		assert.Equal(t, 30/z, a.X, "zoom %v", z)
		assert.Equal(t, -12/z, a.Y, "zoom %v", z)
	}
}

func TestPanIsZoomIndependent(t *testing.T) {
	for _, z := range []float64{0.2, 1, 3} {
		g := NewGraph(twoNodes(), Viewport{X: 5, Y: 5, Zoom: z})
		c := NewController(g, nil)

		require.True(t, c.BeginPan(at(0, 0, 0)))
		assert.True(t, c.Move(delta(40, -20)))
		out := c.End(at(10, 0, 0))

		assert.True(t, out.Panned)
		assert.Equal(t, Viewport{X: 45, Y: -15, Zoom: z}, g.Viewport())
		// nodes untouched
		assert.Equal(t, twoNodes(), g.Snapshot())
	}
}

func TestMoveWhileIdle(t *testing.T) {
	g := NewGraph(twoNodes(), DefaultViewport())
	c := NewController(g, nil)
	assert.False(t, c.Move(delta(10, 10)))
	assert.Equal(t, twoNodes(), g.Snapshot())
}

func TestNodeDragSelectsAndCaptures(t *testing.T) {
	capture := &fakeCapture{}
	var selected string
	g := NewGraph(twoNodes(), DefaultViewport())
	c := NewController(g, &Options{Capture: capture, OnSelect: func(id string) { selected = id }})

	c.BeginNodeDrag(at(0, 0, 0), "B")
	assert.Equal(t, "B", selected)
	assert.Equal(t, []int{1}, capture.captured)
	assert.IsType(t, DraggingNode{}, c.State())

	out := c.End(at(5, 0, 0))
	assert.False(t, out.Moved, "a click on a node moves nothing")
	assert.False(t, out.Mutated())
	assert.Equal(t, []int{1}, capture.released)
	assert.IsType(t, Idle{}, c.State())
}

func TestDragOfUnknownNodeAppliesNothing(t *testing.T) {
	g := NewGraph(twoNodes(), DefaultViewport())
	c := NewController(g, nil)

	require.True(t, c.BeginNodeDrag(at(0, 0, 0), "ghost"))
	assert.False(t, c.Move(delta(10, 10)))
	out := c.End(at(5, 0, 0))

	assert.False(t, out.Moved)
	assert.False(t, out.Mutated())
	assert.Equal(t, twoNodes(), g.Snapshot())
}

func TestNodeDragReportsMovedOnlyAfterDisplacement(t *testing.T) {
	g := NewGraph(twoNodes(), DefaultViewport())
	c := NewController(g, nil)

	require.True(t, c.BeginNodeDrag(at(0, 0, 0), "A"))
	assert.False(t, c.Move(delta(0, 0)))
	assert.Equal(t, DraggingNode{NodeID: "A", PointerID: 1}, c.State())

	assert.True(t, c.Move(delta(3, 4)))
	assert.Equal(t, DraggingNode{NodeID: "A", PointerID: 1, Moved: true}, c.State())
	assert.True(t, c.End(at(5, 0, 0)).Mutated())
}

func TestAbortReleasesArmedPointer(t *testing.T) {
	capture := &fakeCapture{}
	c := NewController(NewGraph(twoNodes(), DefaultViewport()), &Options{Capture: capture})

	c.Abort()
	assert.Empty(t, capture.released, "nothing armed")

	c.BeginNodeDrag(PointerEvent{PointerID: 7, Time: t0}, "A")
	c.Abort()
	assert.IsType(t, Idle{}, c.State())
	assert.Equal(t, []int{7}, capture.released)
}

func TestReleaseFailureDoesNotAbortTeardown(t *testing.T) {
	capture := &fakeCapture{releaseErr: errors.New("InvalidPointerId")}
	g := NewGraph(twoNodes(), DefaultViewport())
	c := NewController(g, &Options{Capture: capture})

	c.BeginNodeDrag(at(0, 0, 0), "A")
	c.End(at(1, 0, 0))
	assert.IsType(t, Idle{}, c.State())

	// ending again with nothing armed still tries to release and still succeeds
	out := c.End(at(2, 0, 0))
	assert.Equal(t, Outcome{}, out)
	assert.Len(t, capture.released, 2)
}

func TestSingleGestureExclusivity(t *testing.T) {
	g := NewGraph(twoNodes(), DefaultViewport())
	c := NewController(g, nil)

	require.True(t, c.BeginNodeDrag(at(0, 0, 0), "A"))
	assert.False(t, c.BeginPan(at(0, 0, 0)))
	assert.False(t, c.BeginConnection(at(0, 0, 0), "B", SideRight))
	assert.False(t, c.BeginNodeDrag(at(0, 0, 0), "B"))
	assert.Equal(t, DraggingNode{NodeID: "A", PointerID: 1}, c.State())
}

func TestBeginConnectionRejectsUnknownSide(t *testing.T) {
	c := NewController(NewGraph(twoNodes(), DefaultViewport()), nil)
	assert.False(t, c.BeginConnection(at(0, 0, 0), "A", Side("top")))
	assert.IsType(t, Idle{}, c.State())
}

func TestClickVersusDragThreshold(t *testing.T) {
	tests := []struct {
		name     string
		elapsed  int
		wantMenu bool
	}{
		{"199ms is a click", 199, true},
		{"200ms is not a click", 200, false},
		{"201ms is a no-op", 201, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opened []MenuAnchor
			g := NewGraph(twoNodes(), DefaultViewport())
			c := NewController(g, &Options{OnOpenMenu: func(a MenuAnchor) { opened = append(opened, a) }})

			require.True(t, c.BeginConnection(at(0, 340, 200), "A", SideRight))
			out := c.End(at(tt.elapsed, 340, 200))

			assert.Equal(t, twoNodes(), g.Snapshot(), "no mutation")
			assert.Nil(t, out.Connected)
			if tt.wantMenu {
				want := MenuAnchor{NodeID: "A", Side: SideRight}
				assert.Equal(t, []MenuAnchor{want}, opened)
				assert.Equal(t, &want, out.Menu)
			} else {
				assert.Empty(t, opened)
				assert.Nil(t, out.Menu)
			}
			assert.IsType(t, Idle{}, c.State())
		})
	}
}

func TestEdgeDirectionality(t *testing.T) {
	t.Run("right handle makes target a child", func(t *testing.T) {
		g := NewGraph(twoNodes(), DefaultViewport())
		c := NewController(g, nil)

		c.BeginConnection(at(0, 340, 200), "A", SideRight)
		c.Move(at(20, 600, 200))
		out := c.End(at(500, 600, 200))

		b, _ := g.Lookup("B")
		assert.Equal(t, "A", b.ParentID)
		assert.Equal(t, &Connection{ParentID: "A", ChildID: "B"}, out.Connected)
	})

	t.Run("left handle makes target the parent", func(t *testing.T) {
		g := NewGraph(twoNodes(), DefaultViewport())
		c := NewController(g, nil)

		c.BeginConnection(at(0, 0, 200), "A", SideLeft)
		c.Move(at(20, 600, 200))
		out := c.End(at(50, 600, 200))

		a, _ := g.Lookup("A")
		b, _ := g.Lookup("B")
		assert.Equal(t, "B", a.ParentID)
		assert.Empty(t, b.ParentID)
		assert.Equal(t, &Connection{ParentID: "B", ChildID: "A"}, out.Connected)
	})
}

func TestSourceNodeIsNeverHovered(t *testing.T) {
	g := NewGraph(twoNodes(), DefaultViewport())
	c := NewController(g, nil)

	c.BeginConnection(at(0, 340, 200), "A", SideRight)
	c.Move(at(10, 100, 100)) // inside A's own box
	s, ok := c.State().(DraggingConnection)
	require.True(t, ok)
	assert.Empty(t, s.Hovered)
	assert.Equal(t, 100.0, s.EndX)

	out := c.End(at(500, 100, 100))
	assert.Nil(t, out.Connected)
	assert.Equal(t, twoNodes(), g.Snapshot())
}

func TestHoverUsesViewportTransform(t *testing.T) {
	g := NewGraph(twoNodes(), Viewport{X: 100, Y: 0, Zoom: 0.5})
	c := NewController(g, nil)

	c.BeginConnection(at(0, 0, 0), "A", SideRight)
	// screen (360, 100) → canvas (520, 200), inside B
	c.Move(at(10, 360, 100))
	s := c.State().(DraggingConnection)
	assert.Equal(t, "B", s.Hovered)

	// moving away clears the hover
	c.Move(at(20, 2000, 2000))
	s = c.State().(DraggingConnection)
	assert.Empty(t, s.Hovered)
}

func TestConnectionRejectedOnCycle(t *testing.T) {
	nodes := twoNodes()
	nodes[1].ParentID = "A"
	g := NewGraph(nodes, DefaultViewport())
	c := NewController(g, nil)

	// dragging from B's right handle onto A would make A a child of its own child
	c.BeginConnection(at(0, 840, 200), "B", SideRight)
	c.Move(at(10, 100, 100))
	out := c.End(at(20, 100, 100))

	assert.ErrorIs(t, out.Rejected, ErrCycleDetected)
	assert.Nil(t, out.Connected)
	a, _ := g.Lookup("A")
	assert.Empty(t, a.ParentID)
}

func TestConnectionToRemovedNodeIsNoop(t *testing.T) {
	g := NewGraph(twoNodes(), DefaultViewport())
	c := NewController(g, nil)

	c.BeginConnection(at(0, 340, 200), "A", SideRight)
	c.Move(at(10, 600, 200))
	g.Update(RemoveNode("B"))
	out := c.End(at(20, 600, 200))

	assert.Equal(t, Outcome{}, out)
	assert.Len(t, g.Snapshot(), 1)
}

func TestCancelReturnsToIdle(t *testing.T) {
	capture := &fakeCapture{}
	g := NewGraph(twoNodes(), DefaultViewport())
	c := NewController(g, &Options{Capture: capture})

	c.BeginConnection(at(0, 340, 200), "A", SideRight)
	c.Move(at(10, 600, 200))
	c.Cancel(1)

	assert.IsType(t, Idle{}, c.State())
	assert.Equal(t, []int{1}, capture.released)
	assert.Equal(t, twoNodes(), g.Snapshot())
}

func TestSelectAndDeleteConnection(t *testing.T) {
	nodes := twoNodes()
	nodes[1].ParentID = "A"
	g := NewGraph(nodes, DefaultViewport())
	c := NewController(g, nil)

	assert.False(t, c.DeleteSelected(), "nothing selected")

	c.SelectConnection("X", "Y")
	c.SelectConnection("A", "B")
	sel, ok := c.Selected()
	require.True(t, ok)
	assert.Equal(t, Connection{ParentID: "A", ChildID: "B"}, sel)

	assert.True(t, c.DeleteSelected())
	b, _ := g.Lookup("B")
	assert.Empty(t, b.ParentID)
	_, ok = c.Selected()
	assert.False(t, ok)

	assert.False(t, c.DeleteSelected(), "second delete without reselect")
	assert.Empty(t, g.Connections())
}

func TestZoomAtKeepsCursorAnchored(t *testing.T) {
	g := NewGraph(nil, DefaultViewport())
	c := NewController(g, nil)

	wx, wy := g.Viewport().ScreenToCanvas(200, 100)
	c.ZoomAt(200, 100, -250)
	v := g.Viewport()
	assert.InDelta(t, 1.5, v.Zoom, 1e-9)
	gx, gy := v.ScreenToCanvas(200, 100)
	assert.InDelta(t, wx, gx, 1e-9)
	assert.InDelta(t, wy, gy, 1e-9)

	for i := 0; i < 20; i++ {
		c.ZoomAt(0, 0, -1000)
	}
	assert.Equal(t, 5.0, g.Viewport().Zoom)
	for i := 0; i < 20; i++ {
		c.ZoomAt(0, 0, 1000)
	}
	assert.Equal(t, 0.2, g.Viewport().Zoom)
}

func TestDanglingParentDoesNotBreakInteraction(t *testing.T) {
	nodes := twoNodes()
	nodes[0].ParentID = "ghost"
	g := NewGraph(nodes, DefaultViewport())
	c := NewController(g, nil)

	assert.Empty(t, g.Connections())
	c.BeginConnection(at(0, 340, 200), "A", SideRight)
	c.Move(at(10, 600, 200))
	out := c.End(at(20, 600, 200))
	require.NotNil(t, out.Connected)
	assert.Equal(t, []Connection{{ParentID: "A", ChildID: "B"}}, g.Connections())
}

func TestEndToEndConnectScenario(t *testing.T) {
	g := NewGraph([]Node{{ID: "A", X: 0, Y: 0}, {ID: "B", X: 500, Y: 0}}, Viewport{Zoom: 1})
	c := NewController(g, nil)

	require.True(t, c.BeginConnection(at(0, 340, 200), "A", SideRight))
	c.Move(at(25, 500, 200))
	assert.Equal(t, "B", c.State().(DraggingConnection).Hovered)
	c.End(at(50, 500, 200))

	b, _ := g.Lookup("B")
	assert.Equal(t, "A", b.ParentID)
	assert.IsType(t, Idle{}, c.State())
}

package badgerstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/canvas"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}

func TestOpenWithPathPersists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(DefaultConfig(dir))
	require.NoError(t, err)
	_, err = s.SaveCanvas(ctx, &canvas.Canvas{ID: "c1", Nodes: []canvas.Node{{ID: "a"}}})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := Open(DefaultConfig(dir))
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.GetCanvas(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "a", got.Nodes[0].ID)
}

func TestSaveAndGetCanvas(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.SaveCanvas(ctx, &canvas.Canvas{
		ID: "c1",
		Nodes: []canvas.Node{
			{ID: "b", X: 500},
			{ID: "a", ParentID: "b", Prompt: "sunset"},
			{ID: "c", ParentID: "ghost"},
		},
		Viewport: canvas.Viewport{X: 3, Y: 4, Zoom: 1.5},
	})
	require.NoError(t, err)

	got, err := s.GetCanvas(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Nodes, 3)
	assert.Equal(t, "b", got.Nodes[0].ID, "insertion order is kept")
	assert.Equal(t, "sunset", got.Nodes[1].Prompt)
	assert.Equal(t, "ghost", got.Nodes[2].ParentID)
	assert.Equal(t, canvas.Viewport{X: 3, Y: 4, Zoom: 1.5}, got.Viewport)

	missing, err := s.GetCanvas(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSaveCanvasRejectsCycle(t *testing.T) {
	s := openTestStore(t)
	_, err := s.SaveCanvas(context.Background(), &canvas.Canvas{
		ID:    "c1",
		Nodes: []canvas.Node{{ID: "a", ParentID: "b"}, {ID: "b", ParentID: "a"}},
	})
	assert.ErrorIs(t, err, canvas.ErrCycleDetected)
}

func TestNodeOperations(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	aID, err := s.SaveNode(ctx, "c1", &canvas.Node{Type: canvas.NodeImage})
	require.NoError(t, err)
	require.NotEmpty(t, aID)

	_, err = s.SaveNode(ctx, "c1", &canvas.Node{ID: "b", ParentID: aID})
	require.NoError(t, err)

	_, err = s.SaveNode(ctx, "c1", &canvas.Node{ID: aID, ParentID: "b"})
	assert.ErrorIs(t, err, canvas.ErrCycleDetected)

	_, err = s.SaveNode(ctx, "c1", &canvas.Node{ID: "b", ParentID: aID, Status: canvas.StatusSuccess})
	require.NoError(t, err)
	b, err := s.GetNode(ctx, "c1", "b")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, canvas.StatusSuccess, b.Status)

	require.NoError(t, s.DeleteNode(ctx, "c1", aID))
	nodes, err := s.ListNodes(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, aID, nodes[0].ParentID, "no cascade on delete")

	n, err := s.GetNode(ctx, "c1", aID)
	require.NoError(t, err)
	assert.Nil(t, n)
}

func TestViewportAndDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveViewport(ctx, "c1", canvas.Viewport{X: 9, Zoom: 0}))
	got, err := s.GetCanvas(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, canvas.Viewport{X: 9, Zoom: 1}, got.Viewport)
	assert.Empty(t, got.Nodes)

	require.NoError(t, s.DeleteCanvas(ctx, "c1"))
	got, err = s.GetCanvas(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, got)

	nodes, err := s.ListNodes(ctx, "c1")
	require.NoError(t, err)
	assert.NotNil(t, nodes)
	assert.Empty(t, nodes)
}

func TestDropSchema(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.SaveCanvas(ctx, &canvas.Canvas{ID: "c1"})
	require.NoError(t, err)

	require.NoError(t, s.DropSchema(ctx))
	got, err := s.GetCanvas(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

package canvas

import (
	"context"
	"errors"
)

var (
	ErrCycleDetected = errors.New("canvas: cycle detected, parent links are not acyclic")
	ErrNodeNotFound  = errors.New("canvas: node not found")
	ErrDuplicateNode = errors.New("canvas: duplicate node id")
)

// Store defines the contract for persisting and retrieving canvases.
type Store interface {
	// Schema
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error

	// Canvas (bulk operations)
	SaveCanvas(ctx context.Context, c *Canvas) (*Canvas, error)
	GetCanvas(ctx context.Context, canvasID string) (*Canvas, error)
	DeleteCanvas(ctx context.Context, canvasID string) error
	SaveViewport(ctx context.Context, canvasID string, v Viewport) error

	// Nodes
	SaveNode(ctx context.Context, canvasID string, node *Node) (string, error)
	GetNode(ctx context.Context, canvasID, nodeID string) (*Node, error)
	DeleteNode(ctx context.Context, canvasID, nodeID string) error
	ListNodes(ctx context.Context, canvasID string) ([]Node, error)
}

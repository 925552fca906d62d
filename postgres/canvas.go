package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/meikuraledutech/canvas"
)

// SaveCanvas saves a full canvas (nodes + viewport) in one transaction.
// Nodes without IDs get auto-generated UUIDs.
// Parent links are validated for cycles; dangling links are kept.
// Returns the canvas with all IDs filled in.
func (s *PGStore) SaveCanvas(ctx context.Context, c *canvas.Canvas) (*canvas.Canvas, error) {
	defer canvas.ObserveStoreOp(backend, "save_canvas", time.Now())

	if err := canvas.PrepareCanvas(c); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("canvas: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Replace semantics: drop whatever was stored for this canvas.
	if _, err := tx.Exec(ctx, `DELETE FROM canvas_nodes WHERE canvas_id = $1`, c.ID); err != nil {
		return nil, fmt.Errorf("canvas: delete nodes: %w", err)
	}

	for i := range c.Nodes {
		n := &c.Nodes[i]
		data, err := encodeData(n)
		if err != nil {
			return nil, fmt.Errorf("canvas: encode node %s: %w", n.ID, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO canvas_nodes (id, canvas_id, parent_id, type, status, x, y, width, height, data)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			n.ID, c.ID, nullable(n.ParentID), string(n.Type), string(n.Status),
			n.X, n.Y, n.Width, n.Height, data,
		); err != nil {
			return nil, fmt.Errorf("canvas: insert node %s: %w", n.ID, err)
		}
	}

	if err := upsertViewport(ctx, tx, c.ID, c.Viewport); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("canvas: commit: %w", err)
	}

	return c, nil
}

// GetCanvas retrieves a full canvas (nodes + viewport) by its ID.
// Returns nil, nil if neither a viewport nor any nodes exist for the canvasID.
func (s *PGStore) GetCanvas(ctx context.Context, canvasID string) (*canvas.Canvas, error) {
	defer canvas.ObserveStoreOp(backend, "get_canvas", time.Now())

	c := &canvas.Canvas{ID: canvasID, Viewport: canvas.DefaultViewport()}

	found := true
	err := s.db.QueryRow(ctx,
		`SELECT x, y, zoom FROM canvas_viewports WHERE canvas_id = $1`, canvasID,
	).Scan(&c.Viewport.X, &c.Viewport.Y, &c.Viewport.Zoom)
	if err != nil {
		if !isNoRows(err) {
			return nil, fmt.Errorf("canvas: get viewport: %w", err)
		}
		found = false
	}

	c.Nodes, err = s.ListNodes(ctx, canvasID)
	if err != nil {
		return nil, err
	}

	if !found && len(c.Nodes) == 0 {
		return nil, nil
	}
	return c, nil
}

// DeleteCanvas removes all nodes and the viewport for a canvasID.
// No error if the canvasID doesn't exist.
func (s *PGStore) DeleteCanvas(ctx context.Context, canvasID string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("canvas: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM canvas_nodes WHERE canvas_id = $1`, canvasID); err != nil {
		return fmt.Errorf("canvas: delete nodes: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM canvas_viewports WHERE canvas_id = $1`, canvasID); err != nil {
		return fmt.Errorf("canvas: delete viewport: %w", err)
	}

	return tx.Commit(ctx)
}

// SaveViewport stores the viewport of a canvas, creating the row if needed.
func (s *PGStore) SaveViewport(ctx context.Context, canvasID string, v canvas.Viewport) error {
	defer canvas.ObserveStoreOp(backend, "save_viewport", time.Now())
	return upsertViewport(ctx, s.db, canvasID, v)
}

// execer is satisfied by both *pgxpool.Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func upsertViewport(ctx context.Context, db execer, canvasID string, v canvas.Viewport) error {
	if v.Zoom <= 0 {
		v.Zoom = 1
	}
	_, err := db.Exec(ctx,
		`INSERT INTO canvas_viewports (canvas_id, x, y, zoom) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (canvas_id) DO UPDATE SET x = EXCLUDED.x, y = EXCLUDED.y, zoom = EXCLUDED.zoom, updated_at = NOW()`,
		canvasID, v.X, v.Y, v.Zoom,
	)
	if err != nil {
		return fmt.Errorf("canvas: upsert viewport: %w", err)
	}
	return nil
}

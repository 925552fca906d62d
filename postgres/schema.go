package postgres

import "context"

// parent_id has no foreign key: links may dangle after a node delete.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS canvas_viewports (
    canvas_id  TEXT PRIMARY KEY,
    x          DOUBLE PRECISION NOT NULL DEFAULT 0,
    y          DOUBLE PRECISION NOT NULL DEFAULT 0,
    zoom       DOUBLE PRECISION NOT NULL DEFAULT 1,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS canvas_nodes (
    seq        BIGSERIAL,
    id         TEXT NOT NULL,
    canvas_id  TEXT NOT NULL,
    parent_id  TEXT,
    type       TEXT NOT NULL DEFAULT 'image',
    status     TEXT NOT NULL DEFAULT 'idle',
    x          DOUBLE PRECISION NOT NULL DEFAULT 0,
    y          DOUBLE PRECISION NOT NULL DEFAULT 0,
    width      DOUBLE PRECISION NOT NULL DEFAULT 0,
    height     DOUBLE PRECISION NOT NULL DEFAULT 0,
    data       JSONB NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (canvas_id, id)
);

CREATE INDEX IF NOT EXISTS idx_canvas_nodes_canvas_id ON canvas_nodes(canvas_id);
CREATE INDEX IF NOT EXISTS idx_canvas_nodes_parent    ON canvas_nodes(canvas_id, parent_id);
`

// CreateSchema creates the canvas_viewports and canvas_nodes tables if they don't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops the canvas_nodes and canvas_viewports tables.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS canvas_nodes, canvas_viewports CASCADE;`)
	return err
}

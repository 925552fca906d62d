package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meikuraledutech/canvas"
)

const nodeColumns = `id, parent_id, type, status, x, y, width, height, data`

// nodeData is the generation payload stored in the data column.
type nodeData struct {
	Prompt    string `json:"prompt,omitempty"`
	ResultURL string `json:"result_url,omitempty"`
	LastFrame string `json:"last_frame,omitempty"`
}

func encodeData(n *canvas.Node) ([]byte, error) {
	return json.Marshal(nodeData{Prompt: n.Prompt, ResultURL: n.ResultURL, LastFrame: n.LastFrame})
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func scanNode(row pgx.Row) (canvas.Node, error) {
	var (
		n      canvas.Node
		parent *string
		raw    []byte
	)
	if err := row.Scan(&n.ID, &parent, &n.Type, &n.Status, &n.X, &n.Y, &n.Width, &n.Height, &raw); err != nil {
		return n, err
	}
	if parent != nil {
		n.ParentID = *parent
	}
	var d nodeData
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &d); err != nil {
			return n, fmt.Errorf("decode node data: %w", err)
		}
	}
	n.Prompt, n.ResultURL, n.LastFrame = d.Prompt, d.ResultURL, d.LastFrame
	return n, nil
}

// SaveNode upserts a single node into a canvas.
// If node.ID is empty, a UUID is auto-generated.
// Validates that the node's parent link does not create a cycle.
// Returns the node ID (generated or provided).
func (s *PGStore) SaveNode(ctx context.Context, canvasID string, node *canvas.Node) (string, error) {
	defer canvas.ObserveStoreOp(backend, "save_node", time.Now())

	if node.ID == "" {
		node.ID = uuid.NewString()
	}

	// Fetch existing nodes for cycle detection.
	nodes, err := s.ListNodes(ctx, canvasID)
	if err != nil {
		return "", err
	}
	next := canvas.AddNode(*node)(nodes)
	for i := range next {
		if next[i].ID == node.ID {
			next[i] = *node
		}
	}
	if err := canvas.ValidateAcyclic(next); err != nil {
		return "", err
	}

	data, err := encodeData(node)
	if err != nil {
		return "", fmt.Errorf("canvas: encode node: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO canvas_nodes (id, canvas_id, parent_id, type, status, x, y, width, height, data)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (canvas_id, id) DO UPDATE SET
		   parent_id = EXCLUDED.parent_id, type = EXCLUDED.type, status = EXCLUDED.status,
		   x = EXCLUDED.x, y = EXCLUDED.y, width = EXCLUDED.width, height = EXCLUDED.height,
		   data = EXCLUDED.data`,
		node.ID, canvasID, nullable(node.ParentID), string(node.Type), string(node.Status),
		node.X, node.Y, node.Width, node.Height, data,
	)
	if err != nil {
		return "", fmt.Errorf("canvas: upsert node: %w", err)
	}

	return node.ID, nil
}

// GetNode fetches a single node by its ID.
// Returns nil, nil if not found.
func (s *PGStore) GetNode(ctx context.Context, canvasID, nodeID string) (*canvas.Node, error) {
	n, err := scanNode(s.db.QueryRow(ctx,
		`SELECT `+nodeColumns+` FROM canvas_nodes WHERE canvas_id = $1 AND id = $2`, canvasID, nodeID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("canvas: get node: %w", err)
	}
	return &n, nil
}

// DeleteNode deletes a node by its ID.
// Children keep their parent_id; no cascade.
// No error if the node doesn't exist.
func (s *PGStore) DeleteNode(ctx context.Context, canvasID, nodeID string) error {
	defer canvas.ObserveStoreOp(backend, "delete_node", time.Now())

	_, err := s.db.Exec(ctx, `DELETE FROM canvas_nodes WHERE canvas_id = $1 AND id = $2`, canvasID, nodeID)
	if err != nil {
		return fmt.Errorf("canvas: delete node: %w", err)
	}
	return nil
}

// ListNodes returns all nodes for a canvasID, in insertion order.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) ListNodes(ctx context.Context, canvasID string) ([]canvas.Node, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+nodeColumns+` FROM canvas_nodes WHERE canvas_id = $1 ORDER BY seq`, canvasID)
	if err != nil {
		return nil, fmt.Errorf("canvas: list nodes: %w", err)
	}
	defer rows.Close()

	nodes := []canvas.Node{}
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("canvas: scan node: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("canvas: rows nodes: %w", err)
	}

	return nodes, nil
}

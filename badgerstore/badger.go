// Package badgerstore implements canvas.Store on an embedded BadgerDB.
//
// Each canvas is stored as one JSON document under the key "canvas/<id>".
// Every write is a read-modify-write inside a single badger transaction, so
// concurrent writers to the same canvas conflict and retry instead of
// losing updates.
package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/meikuraledutech/canvas"
)

const (
	backend   = "badger"
	keyPrefix = "canvas/"

	// maxConflictRetries bounds retries of a transaction that hit badger.ErrConflict.
	maxConflictRetries = 5
)

// Config holds configuration for a BadgerDB instance.
type Config struct {
	// Path is the directory for BadgerDB files.
	// Ignored when InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives BadgerDB's internal logging. If nil it is disabled.
	Logger *slog.Logger
}

// DefaultConfig returns production defaults for the given directory.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig returns configuration for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Store implements canvas.Store using BadgerDB.
type Store struct {
	db *badger.DB
}

// Open opens a BadgerDB with cfg and wraps it in a Store.
// The caller must call Close when done.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badgerstore: path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("badgerstore: create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func key(canvasID string) []byte {
	return []byte(keyPrefix + canvasID)
}

// load reads a canvas inside txn. It returns nil, nil if the key is absent.
func load(txn *badger.Txn, canvasID string) (*canvas.Canvas, error) {
	item, err := txn.Get(key(canvasID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("canvas: get %s: %w", canvasID, err)
	}
	var c canvas.Canvas
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &c)
	}); err != nil {
		return nil, fmt.Errorf("canvas: decode %s: %w", canvasID, err)
	}
	if c.Nodes == nil {
		c.Nodes = []canvas.Node{}
	}
	return &c, nil
}

func put(txn *badger.Txn, c *canvas.Canvas) error {
	val, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("canvas: encode %s: %w", c.ID, err)
	}
	return txn.Set(key(c.ID), val)
}

// update runs fn in a read-write transaction, retrying on write conflicts.
func (s *Store) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i < maxConflictRetries; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

// CreateSchema is a no-op; badger needs no schema.
func (s *Store) CreateSchema(ctx context.Context) error { return nil }

// DropSchema removes every stored canvas.
func (s *Store) DropSchema(ctx context.Context) error {
	return s.db.DropPrefix([]byte(keyPrefix))
}

// SaveCanvas replaces the stored canvas with c.
func (s *Store) SaveCanvas(ctx context.Context, c *canvas.Canvas) (*canvas.Canvas, error) {
	defer canvas.ObserveStoreOp(backend, "save_canvas", time.Now())

	if err := canvas.PrepareCanvas(c); err != nil {
		return nil, err
	}
	if err := s.update(ctx, func(txn *badger.Txn) error { return put(txn, c) }); err != nil {
		return nil, err
	}
	return c, nil
}

// GetCanvas returns nil, nil if the canvas doesn't exist.
func (s *Store) GetCanvas(ctx context.Context, canvasID string) (*canvas.Canvas, error) {
	defer canvas.ObserveStoreOp(backend, "get_canvas", time.Now())

	var c *canvas.Canvas
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		c, err = load(txn, canvasID)
		return err
	})
	return c, err
}

// DeleteCanvas is not an error if the canvas doesn't exist.
func (s *Store) DeleteCanvas(ctx context.Context, canvasID string) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		return txn.Delete(key(canvasID))
	})
}

// SaveViewport stores the viewport, creating an empty canvas if needed.
func (s *Store) SaveViewport(ctx context.Context, canvasID string, v canvas.Viewport) error {
	defer canvas.ObserveStoreOp(backend, "save_viewport", time.Now())

	if v.Zoom <= 0 {
		v.Zoom = 1
	}
	return s.update(ctx, func(txn *badger.Txn) error {
		c, err := load(txn, canvasID)
		if err != nil {
			return err
		}
		if c == nil {
			c = &canvas.Canvas{ID: canvasID, Nodes: []canvas.Node{}}
		}
		c.Viewport = v
		return put(txn, c)
	})
}

// SaveNode upserts a node, creating the canvas on first use.
// Returns the node ID (generated or provided).
func (s *Store) SaveNode(ctx context.Context, canvasID string, node *canvas.Node) (string, error) {
	defer canvas.ObserveStoreOp(backend, "save_node", time.Now())

	if node.ID == "" {
		node.ID = uuid.NewString()
	}
	err := s.update(ctx, func(txn *badger.Txn) error {
		c, err := load(txn, canvasID)
		if err != nil {
			return err
		}
		if c == nil {
			c = &canvas.Canvas{ID: canvasID, Nodes: []canvas.Node{}, Viewport: canvas.DefaultViewport()}
		}
		replaced := false
		for i := range c.Nodes {
			if c.Nodes[i].ID == node.ID {
				c.Nodes[i] = *node
				replaced = true
			}
		}
		if !replaced {
			c.Nodes = append(c.Nodes, *node)
		}
		if err := canvas.ValidateAcyclic(c.Nodes); err != nil {
			return err
		}
		return put(txn, c)
	})
	if err != nil {
		return "", err
	}
	return node.ID, nil
}

// GetNode returns nil, nil if not found.
func (s *Store) GetNode(ctx context.Context, canvasID, nodeID string) (*canvas.Node, error) {
	c, err := s.GetCanvas(ctx, canvasID)
	if err != nil || c == nil {
		return nil, err
	}
	n, ok := canvas.Find(c.Nodes, nodeID)
	if !ok {
		return nil, nil
	}
	return &n, nil
}

// DeleteNode leaves children's parent links in place.
// No error if the node doesn't exist.
func (s *Store) DeleteNode(ctx context.Context, canvasID, nodeID string) error {
	defer canvas.ObserveStoreOp(backend, "delete_node", time.Now())

	return s.update(ctx, func(txn *badger.Txn) error {
		c, err := load(txn, canvasID)
		if err != nil || c == nil {
			return err
		}
		c.Nodes = canvas.RemoveNode(nodeID)(c.Nodes)
		return put(txn, c)
	})
}

// ListNodes returns an empty slice (not nil) if none found.
func (s *Store) ListNodes(ctx context.Context, canvasID string) ([]canvas.Node, error) {
	c, err := s.GetCanvas(ctx, canvasID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return []canvas.Node{}, nil
	}
	return c.Nodes, nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/meikuraledutech/canvas"
	"github.com/meikuraledutech/canvas/badgerstore"
	"github.com/meikuraledutech/canvas/session"
)

func main() {
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	dir, err := os.MkdirTemp("", "canvas-example-")
	if err != nil {
		fatal("temp dir", err)
	}
	defer os.RemoveAll(dir)

	cfg := badgerstore.DefaultConfig(dir)
	store, err := badgerstore.Open(cfg)
	if err != nil {
		fatal("open store", err)
	}
	defer store.Close()

	mgr := session.NewManager(store, canvas.Options{}, log)
	s, err := mgr.Get(ctx, "storyboard")
	if err != nil {
		fatal("session", err)
	}

	// ── Seed two nodes ────────────────────────────────────────────────
	if _, err := s.Replace(ctx, &canvas.Canvas{
		Nodes: []canvas.Node{
			{ID: "opening", X: 0, Y: 0, Type: canvas.NodeImage, Prompt: "a lighthouse at dusk"},
			{ID: "zoom-in", X: 500, Y: 0, Type: canvas.NodeVideo, Prompt: "slow push towards the lamp"},
		},
	}); err != nil {
		fatal("replace", err)
	}
	fmt.Println("canvas seeded")

	// ── Drag a connection from opening's right handle onto zoom-in ────
	steps := []session.Event{
		{Type: session.EventDown, Target: session.Target{Kind: session.TargetHandle, NodeID: "opening", Side: canvas.SideRight}, X: 340, Y: 200, T: 1000},
		{Type: session.EventMove, X: 600, Y: 200, T: 1040},
		{Type: session.EventUp, X: 600, Y: 200, T: 1080},
	}
	for _, ev := range steps {
		res, err := s.Apply(ctx, ev)
		if err != nil {
			fatal("apply", err)
		}
		if res.Connected != nil {
			fmt.Printf("connected %s -> %s\n", res.Connected.ParentID, res.Connected.ChildID)
		}
	}

	// ── Click zoom-in's right handle, then add from the menu ──────────
	_, _ = s.Apply(ctx, session.Event{Type: session.EventDown, Target: session.Target{Kind: session.TargetHandle, NodeID: "zoom-in", Side: canvas.SideRight}, X: 840, Y: 200, T: 2000})
	res, err := s.Apply(ctx, session.Event{Type: session.EventUp, X: 840, Y: 200, T: 2050})
	if err != nil {
		fatal("apply", err)
	}
	if res.Menu != nil {
		n, err := s.AddNodeFromMenu(ctx, canvas.NodeVideo, "the lamp flickers on")
		if err != nil {
			fatal("add from menu", err)
		}
		fmt.Printf("added %s at x=%.0f\n", n.ID, n.X)
	}

	// ── Report generation progress ────────────────────────────────────
	if _, err := s.SetStatus(ctx, "opening", session.StatusUpdate{
		Status:    canvas.StatusSuccess,
		ResultURL: "https://cdn.example.com/opening.png",
	}); err != nil {
		fatal("status", err)
	}

	// ── Read back from the store ──────────────────────────────────────
	c, err := store.GetCanvas(ctx, "storyboard")
	if err != nil {
		fatal("get canvas", err)
	}
	fmt.Println("\nstored canvas:")
	printJSON(c)
	fmt.Println("\nconnections:")
	printJSON(canvas.Connections(c.Nodes))
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}

// Package httpapi exposes canvas sessions over HTTP with fiber.
package httpapi

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meikuraledutech/canvas"
	"github.com/meikuraledutech/canvas/session"
)

type handler struct {
	mgr *session.Manager
	log *slog.Logger
}

// New builds the fiber app serving mgr's canvases.
func New(mgr *session.Manager, log *slog.Logger) *fiber.App {
	if log == nil {
		log = slog.Default()
	}
	h := &handler{mgr: mgr, log: log}

	app := fiber.New(fiber.Config{
		AppName:         "canvasd",
		StructValidator: newStructValidator(),
	})
	app.Use(recoverer.New())
	app.Use(h.observe)

	app.Get("/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "sessions": mgr.Len()})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// ── Schema ────────────────────────────────────────────────────────
	app.Post("/schema", h.createSchema)
	app.Delete("/schema", h.dropSchema)

	// ── Canvases ──────────────────────────────────────────────────────
	app.Get("/canvases/:id", h.getCanvas)
	app.Put("/canvases/:id", h.replaceCanvas)
	app.Delete("/canvases/:id", h.deleteCanvas)
	app.Post("/canvases/:id/events", h.applyEvent)
	app.Post("/canvases/:id/zoom", h.zoom)

	// ── Nodes ─────────────────────────────────────────────────────────
	app.Post("/canvases/:id/nodes", h.addNode)
	app.Delete("/canvases/:id/nodes/:nodeId", h.removeNode)
	app.Put("/canvases/:id/nodes/:nodeId/status", h.setStatus)

	// ── Connections ───────────────────────────────────────────────────
	app.Post("/canvases/:id/connections/select", h.selectConnection)
	app.Delete("/canvases/:id/connections/selected", h.deleteSelected)

	return app
}

func (h *handler) observe(c fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	status := c.Response().StatusCode()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}
	requestDuration.WithLabelValues(c.Method(), c.Route().Path, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	h.log.Debug("request", "method", c.Method(), "path", c.Path(), "status", status, "elapsed", time.Since(start))
	return err
}

// fail maps domain errors onto HTTP statuses.
func (h *handler) fail(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, canvas.ErrCycleDetected):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "cycle detected"})
	case errors.Is(err, canvas.ErrNodeNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "node not found"})
	case errors.Is(err, canvas.ErrDuplicateNode):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "duplicate node id"})
	case errors.Is(err, session.ErrNoMenu):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "no menu open"})
	case errors.Is(err, session.ErrBadTarget):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	h.log.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}

func invalidBody(c fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body", "detail": err.Error()})
}

func (h *handler) session(c fiber.Ctx) (*session.Session, error) {
	return h.mgr.Get(c.Context(), c.Params("id"))
}

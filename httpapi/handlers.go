package httpapi

import (
	"github.com/gofiber/fiber/v3"

	"github.com/meikuraledutech/canvas"
	"github.com/meikuraledutech/canvas/session"
)

type addNodeRequest struct {
	canvas.Node
	FromMenu bool `json:"from_menu"`
}

type selectRequest struct {
	ParentID string `json:"parent_id" validate:"required"`
	ChildID  string `json:"child_id" validate:"required"`
}

type zoomRequest struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	DeltaY float64 `json:"delta_y"`
}

func (h *handler) createSchema(c fiber.Ctx) error {
	if err := h.mgr.Store().CreateSchema(c.Context()); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "schema created"})
}

func (h *handler) dropSchema(c fiber.Ctx) error {
	if err := h.mgr.Store().DropSchema(c.Context()); err != nil {
		return h.fail(c, err)
	}
	h.mgr.Reset()
	return c.JSON(fiber.Map{"message": "schema dropped"})
}

func (h *handler) getCanvas(c fiber.Ctx) error {
	st, err := h.mgr.View(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(st)
}

func (h *handler) replaceCanvas(c fiber.Ctx) error {
	var body canvas.Canvas
	if err := c.Bind().JSON(&body); err != nil {
		return invalidBody(c, err)
	}
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	st, err := s.Replace(c.Context(), &body)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(st)
}

func (h *handler) deleteCanvas(c fiber.Ctx) error {
	if err := h.mgr.Delete(c.Context(), c.Params("id")); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handler) applyEvent(c fiber.Ctx) error {
	var ev session.Event
	if err := c.Bind().JSON(&ev); err != nil {
		return invalidBody(c, err)
	}
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	res, err := s.Apply(c.Context(), ev)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(res)
}

func (h *handler) zoom(c fiber.Ctx) error {
	var body zoomRequest
	if err := c.Bind().JSON(&body); err != nil {
		return invalidBody(c, err)
	}
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	v, err := s.Zoom(c.Context(), body.X, body.Y, body.DeltaY)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(v)
}

func (h *handler) addNode(c fiber.Ctx) error {
	var body addNodeRequest
	if err := c.Bind().JSON(&body); err != nil {
		return invalidBody(c, err)
	}
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}

	var n canvas.Node
	if body.FromMenu {
		typ := body.Type
		if typ == "" {
			typ = canvas.NodeImage
		}
		n, err = s.AddNodeFromMenu(c.Context(), typ, body.Prompt)
	} else {
		n, err = s.AddNode(c.Context(), body.Node)
	}
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(n)
}

func (h *handler) removeNode(c fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	if err := s.RemoveNode(c.Context(), c.Params("nodeId")); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handler) setStatus(c fiber.Ctx) error {
	var body session.StatusUpdate
	if err := c.Bind().JSON(&body); err != nil {
		return invalidBody(c, err)
	}
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	n, err := s.SetStatus(c.Context(), c.Params("nodeId"), body)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(n)
}

func (h *handler) selectConnection(c fiber.Ctx) error {
	var body selectRequest
	if err := c.Bind().JSON(&body); err != nil {
		return invalidBody(c, err)
	}
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	s.SelectConnection(body.ParentID, body.ChildID)
	return c.JSON(s.State())
}

func (h *handler) deleteSelected(c fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	ok, err := s.DeleteSelectedConnection(c.Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"deleted": ok})
}

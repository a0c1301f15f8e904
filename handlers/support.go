package handlers

import (
	"tournament-wallet/middleware"
	"tournament-wallet/models"
	"tournament-wallet/services"

	"github.com/gofiber/fiber/v2"
)

type ticketRequest struct {
	IssueType      models.IssueType `json:"issue_type"`
	Description    string           `json:"description"`
	TournamentID   string           `json:"tournament_id"`
	TournamentName string           `json:"tournament_name"`
}

type messageRequest struct {
	Message string `json:"message"`
}

type ticketStatusRequest struct {
	Status models.TicketStatus `json:"status"`
}

func SetupSupportRoutes(secured fiber.Router, admin fiber.Router, h *Handler) {
	secured.Post("/tickets", h.CreateTicket)
	secured.Get("/tickets", h.ListMyTickets)
	secured.Get("/tickets/:id", h.GetMyTicket)
	secured.Post("/tickets/:id/messages", h.PostUserMessage)

	admin.Get("/tickets", h.ListAllTickets)
	admin.Get("/tickets/:id", h.GetAnyTicket)
	admin.Post("/tickets/:id/messages", h.PostAdminMessage)
	admin.Patch("/tickets/:id/status", h.SetTicketStatus)
}

func (h *Handler) CreateTicket(c *fiber.Ctx) error {
	var req ticketRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	t, err := h.Support.CreateTicket(c.UserContext(), middleware.UserID(c), services.TicketInput{
		IssueType:      req.IssueType,
		Description:    req.Description,
		TournamentID:   req.TournamentID,
		TournamentName: req.TournamentName,
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(t)
}

func (h *Handler) ListMyTickets(c *fiber.Ctx) error {
	list, err := h.Support.ListUserTickets(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(list)
}

// GetMyTicket hides other users' tickets behind a 404.
func (h *Handler) GetMyTicket(c *fiber.Ctx) error {
	t, err := h.Support.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	if t.UserID != middleware.UserID(c) {
		return h.writeError(c, services.ErrNotFound)
	}
	return c.JSON(t)
}

func (h *Handler) PostUserMessage(c *fiber.Ctx) error {
	return h.postMessage(c, models.SenderUser)
}

func (h *Handler) PostAdminMessage(c *fiber.Ctx) error {
	return h.postMessage(c, models.SenderAdmin)
}

func (h *Handler) postMessage(c *fiber.Ctx, sender models.SenderType) error {
	var req messageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	m, err := h.Support.AddMessage(c.UserContext(), c.Params("id"), middleware.UserID(c), sender, req.Message)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(m)
}

func (h *Handler) ListAllTickets(c *fiber.Ctx) error {
	list, err := h.Support.ListAllTickets(c.UserContext(), models.TicketStatus(c.Query("status")))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(list)
}

func (h *Handler) GetAnyTicket(c *fiber.Ctx) error {
	t, err := h.Support.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(t)
}

func (h *Handler) SetTicketStatus(c *fiber.Ctx) error {
	var req ticketStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := h.Support.SetTicketStatus(c.UserContext(), c.Params("id"), req.Status); err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(fiber.Map{"id": c.Params("id"), "status": req.Status})
}

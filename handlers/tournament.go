package handlers

import (
	"tournament-wallet/middleware"
	"tournament-wallet/models"
	"tournament-wallet/services"

	"github.com/gofiber/fiber/v2"
)

type joinRequest struct {
	TeamMembers []string `json:"team_members"`
}

type transitionRequest struct {
	Status       models.TournamentStatus `json:"status"`
	RoomID       string                  `json:"room_id"`
	RoomPassword string                  `json:"room_password"`
}

type resultsRequest struct {
	Results []services.ResultInput `json:"results"`
}

func SetupTournamentRoutes(app fiber.Router, secured fiber.Router, admin fiber.Router, h *Handler) {
	// 🔓 Public listings; room credentials are stripped for non-participants
	app.Get("/tournaments", h.ListTournaments)
	app.Get("/tournaments/:id", h.GetTournament)
	app.Get("/games/:id/tournaments", h.ListGameTournaments)

	// 🔐 Players
	secured.Get("/tournaments/joined", h.ListJoinedTournaments)
	secured.Post("/tournaments/:id/join", h.JoinTournament)

	// 🔐 Admin CRUD, lifecycle and settlement
	admin.Post("/tournaments", h.CreateTournament)
	admin.Put("/tournaments/:id", h.UpdateTournament)
	admin.Delete("/tournaments/:id", h.DeleteTournament)
	admin.Get("/tournaments/:id/participants", h.ListParticipants)
	admin.Patch("/tournaments/:id/status", h.TransitionTournament)
	admin.Post("/tournaments/:id/results", h.SubmitResults)
}

func hideRoom(t *models.Tournament) {
	t.RoomID = ""
	t.RoomPassword = ""
}

func (h *Handler) redactAll(c *fiber.Ctx, list []models.Tournament) []models.Tournament {
	if middleware.IsAdmin(c) {
		return list
	}
	for i := range list {
		hideRoom(&list[i])
	}
	return list
}

func (h *Handler) ListTournaments(c *fiber.Ctx) error {
	list, err := h.Tournaments.List(c.UserContext(), models.TournamentStatus(c.Query("status")))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(h.redactAll(c, list))
}

func (h *Handler) ListGameTournaments(c *fiber.Ctx) error {
	list, err := h.Tournaments.ListByGame(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(h.redactAll(c, list))
}

func (h *Handler) GetTournament(c *fiber.Ctx) error {
	t, err := h.Tournaments.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	userID := middleware.UserID(c)
	if !middleware.IsAdmin(c) && (userID == "" || !h.Tournaments.HasJoined(c.UserContext(), t.ID, userID)) {
		hideRoom(t)
	}
	return c.JSON(t)
}

func (h *Handler) ListJoinedTournaments(c *fiber.Ctx) error {
	list, err := h.Tournaments.ListJoined(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(list)
}

func (h *Handler) JoinTournament(c *fiber.Ctx) error {
	var req joinRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	p, err := h.Tournaments.Join(c.UserContext(), middleware.UserID(c), c.Params("id"), req.TeamMembers)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

func (h *Handler) CreateTournament(c *fiber.Ctx) error {
	var req services.TournamentInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	t, err := h.Tournaments.Create(c.UserContext(), req)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(t)
}

func (h *Handler) UpdateTournament(c *fiber.Ctx) error {
	var req services.TournamentUpdate
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	t, err := h.Tournaments.Update(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(t)
}

func (h *Handler) DeleteTournament(c *fiber.Ctx) error {
	if err := h.Tournaments.Delete(c.UserContext(), c.Params("id")); err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "tournament deleted", "id": c.Params("id")})
}

func (h *Handler) ListParticipants(c *fiber.Ctx) error {
	players, err := h.Tournaments.ListParticipants(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(players)
}

func (h *Handler) TransitionTournament(c *fiber.Ctx) error {
	var req transitionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	t, err := h.Tournaments.Transition(c.UserContext(), c.Params("id"), req.Status, req.RoomID, req.RoomPassword)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(t)
}

func (h *Handler) SubmitResults(c *fiber.Ctx) error {
	var req resultsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	t, err := h.Settlement.SubmitResults(c.UserContext(), c.Params("id"), req.Results)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(t)
}

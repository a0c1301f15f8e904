// handlers/game.go
package handlers

import (
	"tournament-wallet/services"
	"tournament-wallet/utils"

	"github.com/gofiber/fiber/v2"
)

type gameRequest struct {
	Name     string `json:"name" form:"name"`
	ImageURL string `json:"image_url" form:"image_url"`
}

type slideRequest struct {
	Title       string `json:"title" form:"title"`
	Description string `json:"description" form:"description"`
	ImageURL    string `json:"image_url" form:"image_url"`
	SortOrder   *int   `json:"sort_order" form:"sort_order"`
}

func SetupGameRoutes(app fiber.Router, admin fiber.Router, h *Handler) {
	// 🔓 Public catalogue
	app.Get("/games", h.ListGames)
	app.Get("/games/:id", h.GetGame)
	app.Get("/carousel", h.ListSlides)
	app.Get("/settings", h.GetSettings)

	// 🔐 Admin
	admin.Post("/games", h.CreateGame)
	admin.Put("/games/:id", h.UpdateGame)
	admin.Delete("/games/:id", h.DeleteGame)
	admin.Post("/carousel", h.CreateSlide)
	admin.Put("/carousel/:id", h.UpdateSlide)
	admin.Delete("/carousel/:id", h.DeleteSlide)
	admin.Put("/settings", h.UpdateSettings)
}

// imageFromForm reads the optional multipart `image` field.
func imageFromForm(c *fiber.Ctx, prefix string) (*services.Image, error) {
	fh, err := c.FormFile("image")
	if err != nil || fh.Size == 0 {
		return nil, nil
	}
	buf, contentType, err := utils.ReadFormFile(fh)
	if err != nil {
		return nil, err
	}
	return &services.Image{
		Key:         utils.ImageKey(prefix, fh.Filename),
		ContentType: contentType,
		Body:        buf,
	}, nil
}

func (h *Handler) ListGames(c *fiber.Ctx) error {
	games, err := h.Games.ListGames(c.UserContext())
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(games)
}

func (h *Handler) GetGame(c *fiber.Ctx) error {
	game, err := h.Games.GetGame(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(game)
}

func (h *Handler) CreateGame(c *fiber.Ctx) error {
	var req gameRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	img, err := imageFromForm(c, "games")
	if err != nil {
		return badRequest(c, "failed to read image")
	}
	game, err := h.Games.CreateGame(c.UserContext(), services.GameInput{Name: req.Name, ImageURL: req.ImageURL}, img)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(game)
}

func (h *Handler) UpdateGame(c *fiber.Ctx) error {
	var req gameRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	img, err := imageFromForm(c, "games")
	if err != nil {
		return badRequest(c, "failed to read image")
	}
	game, err := h.Games.UpdateGame(c.UserContext(), c.Params("id"), services.GameInput{Name: req.Name, ImageURL: req.ImageURL}, img)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(game)
}

func (h *Handler) DeleteGame(c *fiber.Ctx) error {
	if err := h.Games.DeleteGame(c.UserContext(), c.Params("id")); err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "game deleted", "id": c.Params("id")})
}

func (h *Handler) ListSlides(c *fiber.Ctx) error {
	slides, err := h.Games.ListSlides(c.UserContext())
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(slides)
}

func (h *Handler) CreateSlide(c *fiber.Ctx) error {
	var req slideRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	img, err := imageFromForm(c, "carousel")
	if err != nil {
		return badRequest(c, "failed to read image")
	}
	slide, err := h.Games.CreateSlide(c.UserContext(), services.SlideInput{
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		SortOrder:   req.SortOrder,
	}, img)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(slide)
}

func (h *Handler) UpdateSlide(c *fiber.Ctx) error {
	var req slideRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	img, err := imageFromForm(c, "carousel")
	if err != nil {
		return badRequest(c, "failed to read image")
	}
	slide, err := h.Games.UpdateSlide(c.UserContext(), c.Params("id"), services.SlideInput{
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		SortOrder:   req.SortOrder,
	}, img)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(slide)
}

func (h *Handler) DeleteSlide(c *fiber.Ctx) error {
	if err := h.Games.DeleteSlide(c.UserContext(), c.Params("id")); err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "slide deleted", "id": c.Params("id")})
}

func (h *Handler) GetSettings(c *fiber.Ctx) error {
	settings, err := h.Settings.Get(c.UserContext())
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(settings)
}

func (h *Handler) UpdateSettings(c *fiber.Ctx) error {
	// fields missing from the body keep their stored values
	current, err := h.Settings.Get(c.UserContext())
	if err != nil {
		return h.writeError(c, err)
	}
	req := *current
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	settings, err := h.Settings.Update(c.UserContext(), req)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(settings)
}

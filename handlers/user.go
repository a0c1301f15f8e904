package handlers

import (
	"tournament-wallet/middleware"
	"tournament-wallet/models"
	"tournament-wallet/services"

	"github.com/gofiber/fiber/v2"
)

type createProfileRequest struct {
	Email        string `json:"email"`
	PhotoURL     string `json:"photo_url"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Username     string `json:"username"`
	MobileNumber string `json:"mobile_number"`
	ReferralCode string `json:"referral_code"`
}

type updateProfileRequest struct {
	FirstName       *string `json:"first_name"`
	LastName        *string `json:"last_name"`
	Username        *string `json:"username"`
	MobileNumber    *string `json:"mobile_number"`
	ProfilePhotoURL *string `json:"profile_photo_url"`
}

type statusRequest struct {
	Status models.UserStatus `json:"status"`
}

func SetupUserRoutes(secured fiber.Router, admin fiber.Router, h *Handler) {
	secured.Post("/profile", h.CreateProfile)
	secured.Get("/profile", h.GetProfile)
	secured.Patch("/profile", h.UpdateProfile)
	secured.Post("/profile/photo", h.UploadProfilePhoto)

	admin.Get("/users", h.SearchUsers)
	admin.Get("/users/:id", h.GetUser)
	admin.Patch("/users/:id/status", h.SetUserStatus)
	admin.Get("/referrals/pending", h.ListPendingReferrals)
	admin.Post("/referrals/process", h.ProcessReferrals)
}

func (h *Handler) CreateProfile(c *fiber.Ctx) error {
	var req createProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	user, err := h.Users.CreateProfile(c.UserContext(), services.CreateProfileInput{
		UserID:       middleware.UserID(c),
		Email:        req.Email,
		PhotoURL:     req.PhotoURL,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Username:     req.Username,
		MobileNumber: req.MobileNumber,
		ReferralCode: req.ReferralCode,
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

func (h *Handler) GetProfile(c *fiber.Ctx) error {
	user, err := h.Users.GetProfile(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(user)
}

func (h *Handler) UpdateProfile(c *fiber.Ctx) error {
	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	user, err := h.Users.UpdateProfile(c.UserContext(), middleware.UserID(c), services.UpdateProfileInput{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Username:        req.Username,
		MobileNumber:    req.MobileNumber,
		ProfilePhotoURL: req.ProfilePhotoURL,
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(user)
}

// UploadProfilePhoto stores the multipart `image` in R2 and points the profile at it.
func (h *Handler) UploadProfilePhoto(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	img, err := imageFromForm(c, "profiles/"+userID)
	if err != nil {
		return badRequest(c, "failed to read image")
	}
	if img == nil {
		return badRequest(c, "image is required")
	}
	url, err := h.Games.UploadImage(c.UserContext(), img)
	if err != nil {
		return h.writeError(c, err)
	}
	user, err := h.Users.UpdateProfile(c.UserContext(), userID, services.UpdateProfileInput{ProfilePhotoURL: &url})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(user)
}

func (h *Handler) SearchUsers(c *fiber.Ctx) error {
	users, err := h.Users.SearchUsers(c.UserContext(), c.Query("q"), c.QueryInt("limit", 50))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(users)
}

func (h *Handler) GetUser(c *fiber.Ctx) error {
	user, err := h.Users.GetProfile(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(user)
}

func (h *Handler) SetUserStatus(c *fiber.Ctx) error {
	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	user, err := h.Users.SetStatus(c.UserContext(), c.Params("id"), req.Status)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(user)
}

func (h *Handler) ListPendingReferrals(c *fiber.Ctx) error {
	list, err := h.Referrals.ListPending(c.UserContext())
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(list)
}

// ProcessReferrals runs the referral worker's batch on demand.
func (h *Handler) ProcessReferrals(c *fiber.Ctx) error {
	n, err := h.Referrals.ProcessPending(c.UserContext(), c.QueryInt("batch", 50))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(fiber.Map{"processed": n})
}

package handlers

import (
	"errors"

	"tournament-wallet/database"
	"tournament-wallet/notify"
	"tournament-wallet/services"

	"github.com/gofiber/fiber/v2"
)

// statusFor maps a service error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrInsufficientFunds),
		errors.Is(err, services.ErrInsufficientBalance),
		errors.Is(err, services.ErrInsufficientWinnings):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, services.ErrTournamentFull),
		errors.Is(err, services.ErrAlreadyJoined),
		errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrAlreadySettled),
		errors.Is(err, services.ErrTournamentClosed),
		errors.Is(err, services.ErrTournamentHasParticipants),
		errors.Is(err, services.ErrProfileExists),
		errors.Is(err, services.ErrUsernameTaken):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrAccountBanned):
		return fiber.StatusForbidden
	case errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrInvalidTeam),
		errors.Is(err, services.ErrInvalidCapacity),
		errors.Is(err, services.ErrInvalidResults),
		errors.Is(err, services.ErrUnknownParticipant),
		errors.Is(err, services.ErrInvalidUpi),
		errors.Is(err, services.ErrWithdrawalMismatch),
		errors.Is(err, services.ErrBelowMinWithdrawal),
		errors.Is(err, services.ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, database.ErrTransientConflict),
		errors.Is(err, database.ErrUnavailable),
		errors.Is(err, services.ErrUploadsDisabled),
		errors.Is(err, services.ErrIdentityDisabled),
		errors.Is(err, notify.ErrNoHub):
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

// writeError renders err as {"error": "..."}. Unexpected errors are logged and
// hidden from the caller.
func (h *Handler) writeError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		h.Log.Errorf("❌ [HTTP] %s %s: %v", c.Method(), c.Path(), err)
		msg = "internal error"
	}
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

package handlers

import (
	"tournament-wallet/middleware"
	"tournament-wallet/notify"
	"tournament-wallet/services"

	"github.com/decred/slog"
	"github.com/gofiber/fiber/v2"
)

// Handler binds the HTTP surface to the services.
type Handler struct {
	Users       *services.UserService
	Ledger      *services.LedgerService
	Tournaments *services.TournamentService
	Settlement  *services.SettlementService
	Withdrawals *services.WithdrawalService
	Games       *services.GameService
	Settings    *services.SettingsService
	Support     *services.SupportService
	Referrals   *services.ReferralService
	Hub         notify.Hub
	Log         slog.Logger
}

// SetupRoutes registers every route group. Public routes still pass through
// UserContextMiddleware so an optional X-User-ID is visible to them.
func SetupRoutes(app *fiber.App, h *Handler, sseAuth fiber.Handler) {
	app.Use(middleware.UserContextMiddleware(h.Log))

	secured := app.Group("/s")
	admin := secured.Group("/admin", middleware.RequireAdmin(h.Log))

	SetupGameRoutes(app, admin, h)
	SetupTournamentRoutes(app, secured, admin, h)
	SetupWalletRoutes(secured, admin, h)
	SetupUserRoutes(secured, admin, h)
	SetupSupportRoutes(secured, admin, h)
	SetupStreamRoutes(app, sseAuth, h)
}

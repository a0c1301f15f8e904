package handlers

import (
	"fmt"

	"tournament-wallet/middleware"
	"tournament-wallet/models"
	"tournament-wallet/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type withdrawalRequest struct {
	Amount decimal.Decimal `json:"amount"`
	UpiID  string          `json:"upi_id"`
}

type resolveRequest struct {
	Decision models.WithdrawalStatus `json:"decision"`
	UserID   string                  `json:"user_id"`
	Amount   decimal.Decimal         `json:"amount"`
}

type adjustRequest struct {
	Wallet models.WalletType `json:"wallet"`
	Amount decimal.Decimal   `json:"amount"`
	Reason string            `json:"reason"`
}

func SetupWalletRoutes(secured fiber.Router, admin fiber.Router, h *Handler) {
	secured.Get("/wallet/transactions", h.ListTransactions)
	secured.Post("/wallet/deposit", h.AddFunds)
	secured.Get("/withdrawals", h.ListMyWithdrawals)
	secured.Post("/withdrawals", h.CreateWithdrawal)

	admin.Post("/users/:id/adjust", h.AdjustBalance)
	admin.Get("/users/:id/transactions", h.ListUserTransactions)
	admin.Get("/withdrawals", h.ListWithdrawals)
	admin.Post("/withdrawals/:id/resolve", h.ResolveWithdrawal)
	admin.Get("/audit", h.AuditLedger)
}

func (h *Handler) ListTransactions(c *fiber.Ctx) error {
	txns, err := h.Ledger.ListTransactions(c.UserContext(), middleware.UserID(c), c.QueryInt("limit", 100))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(txns)
}

func (h *Handler) ListUserTransactions(c *fiber.Ctx) error {
	txns, err := h.Ledger.ListTransactions(c.UserContext(), c.Params("id"), c.QueryInt("limit", 0))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(txns)
}

func (h *Handler) AddFunds(c *fiber.Ctx) error {
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	user, txn, err := h.Ledger.AddFunds(c.UserContext(), middleware.UserID(c), req.Amount)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(fiber.Map{"profile": user, "transaction": txn})
}

func (h *Handler) AdjustBalance(c *fiber.Ctx) error {
	var req adjustRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	reason := req.Reason
	if reason == "" {
		reason = fmt.Sprintf("Adjusted by admin %s", middleware.UserID(c))
	}
	user, txn, err := h.Ledger.AdjustBalance(c.UserContext(), c.Params("id"), req.Wallet, req.Amount, reason)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(fiber.Map{"profile": user, "transaction": txn})
}

// CreateWithdrawal enforces the configured minimum before debiting winnings.
func (h *Handler) CreateWithdrawal(c *fiber.Ctx) error {
	var req withdrawalRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if minAmount := h.Settings.MinWithdrawal(c.UserContext()); req.Amount.LessThan(minAmount) {
		return h.writeError(c, fmt.Errorf("minimum withdrawal is %s: %w", minAmount.StringFixed(2), services.ErrBelowMinWithdrawal))
	}
	w, err := h.Withdrawals.Create(c.UserContext(), middleware.UserID(c), req.Amount, req.UpiID)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(w)
}

func (h *Handler) ListMyWithdrawals(c *fiber.Ctx) error {
	list, err := h.Withdrawals.ListForUser(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(list)
}

func (h *Handler) ListWithdrawals(c *fiber.Ctx) error {
	list, err := h.Withdrawals.List(c.UserContext(), models.WithdrawalStatus(c.Query("status")))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(list)
}

func (h *Handler) ResolveWithdrawal(c *fiber.Ctx) error {
	var req resolveRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	w, err := h.Withdrawals.Resolve(c.UserContext(), c.Params("id"), req.Decision, req.UserID, req.Amount)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(w)
}

func (h *Handler) AuditLedger(c *fiber.Ctx) error {
	mismatches, err := h.Ledger.Audit(c.UserContext())
	if err != nil {
		return h.writeError(c, err)
	}
	if mismatches == nil {
		mismatches = []services.AuditMismatch{}
	}
	return c.JSON(fiber.Map{"mismatches": mismatches, "count": len(mismatches)})
}

package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"tournament-wallet/middleware"
	"tournament-wallet/notify"

	"github.com/gofiber/fiber/v2"
)

const keepAliveInterval = 15 * time.Second

func SetupStreamRoutes(app fiber.Router, sseAuth fiber.Handler, h *Handler) {
	stream := app.Group("/stream", sseAuth)
	stream.Get("/profile", h.StreamProfile)
	stream.Get("/tickets/:id", h.StreamTicket)
}

// StreamProfile pushes the caller's profile, then every committed change to it.
func (h *Handler) StreamProfile(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	initial, err := h.Users.GetProfile(c.UserContext(), userID)
	if err != nil {
		return h.writeError(c, err)
	}
	snapshot, err := json.Marshal(initial)
	if err != nil {
		return h.writeError(c, err)
	}
	return h.stream(c, notify.ProfileChannel(userID), "profile", snapshot)
}

// StreamTicket pushes new messages on a ticket the caller owns (admins see all).
func (h *Handler) StreamTicket(c *fiber.Ctx) error {
	ticket, err := h.Support.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	if ticket.UserID != middleware.UserID(c) && !middleware.IsAdmin(c) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	}
	return h.stream(c, notify.TicketChannel(ticket.ID), "message", nil)
}

// stream relays one hub channel to the client as server-sent events until the
// client goes away.
func (h *Handler) stream(c *fiber.Ctx, channel, event string, initial []byte) error {
	sub, err := h.Hub.Subscribe(c.UserContext(), channel)
	if err != nil {
		h.Log.Warnf("[SSE] subscribe %s failed: %v", channel, err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "live updates unavailable"})
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer sub.Close()
		ticker := time.NewTicker(keepAliveInterval)
		defer ticker.Stop()

		if initial != nil {
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, initial)
		} else {
			w.WriteString(":\n\n")
		}
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case msg, ok := <-sub.Messages():
				if !ok {
					return
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, msg)
			case <-ticker.C:
				w.WriteString(":\n\n")
			}
			// a failed flush means the client disconnected
			if err := w.Flush(); err != nil {
				h.Log.Debugf("[SSE] client left %s", channel)
				return
			}
		}
	})
	return nil
}

package handlers

import (
	"time"

	"duelytics-server/middleware"
	"duelytics-server/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SetupRoutes wires every endpoint. Fiber matches group middleware by
// prefix in registration order, so the layout is load-bearing: public
// routes first, then a single authenticated group, and the system-admin
// gate last so nothing registered before it passes through it.
func SetupRoutes(app *fiber.App, db *gorm.DB, sessionService *services.SessionService, duelService *services.DuelService, deckService *services.DeckService) {
	// 🔓 Public routes: the lobby and the duel form load these before
	// login completes
	app.Get("/health", healthCheck)
	app.Get("/sessions", sessionService.GetActiveSessions)
	app.Get("/sessions/:id", sessionService.GetSessionByID)
	app.Get("/ladder-tiers", sessionService.GetLadderTiers)
	app.Get("/decks", deckService.GetDecks)
	app.Get("/decks/:id/stats", deckService.GetDeckStats)

	// 🔐 Authenticated routes share one token check
	secured := app.Group("/", middleware.AuthMiddleware(db))
	secured.Post("/sessions/:id/join", sessionService.JoinSession)
	secured.Get("/sessions/:id/leaderboard", sessionService.GetSessionLeaderboard)
	secured.Post("/duels", duelService.SubmitDuelHandler)
	secured.Get("/duels/session/:session_id", duelService.GetSessionDuels)
	secured.Get("/duels/session/:session_id/stats", duelService.GetSessionStats)

	// Archive and delete accept the session's own admin as well as a
	// system admin; the service is the authority, so both must register
	// ahead of the admin gate below.
	secured.Patch("/admin/sessions/:id/archive", sessionService.ArchiveSession)
	secured.Delete("/admin/sessions/:id", sessionService.DeleteSession)

	// 🔒 System-admin only
	admin := secured.Group("/admin", middleware.RequireAdmin())
	admin.Post("/sessions", sessionService.CreateSession)
	admin.Post("/decks", deckService.CreateDeck)
	admin.Patch("/decks/:id", deckService.UpdateDeck)
	admin.Delete("/decks/:id", deckService.DeleteDeck)
}

// Health check - simple way to verify the server is running
func healthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"message":   "Duelytics server is running",
	})
}

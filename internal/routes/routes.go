package routes

import (
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/rcastellanos/wainbox-backend/internal/handlers"
	"github.com/rcastellanos/wainbox-backend/internal/middleware"
	"github.com/rcastellanos/wainbox-backend/internal/services"
	"github.com/rcastellanos/wainbox-backend/internal/storage"
)

// SetupRoutes configures all application routes
func SetupRoutes(app *fiber.App, store storage.Store, gateway *services.GreenAPIService, sessions *session.Store) {
	conversationService := services.NewConversationService(store, gateway)
	webhookService := services.NewWebhookService(store)

	inboxHandler := handlers.NewInboxHandler(store, conversationService, sessions)
	webhookHandler := handlers.NewWebhookHandler(webhookService)
	healthHandler := handlers.NewHealthHandler("1.0.0", gateway)

	// Dashboard pages
	app.Get("/", inboxHandler.Dashboard)
	app.Get("/conversation/new", inboxHandler.NewConversationForm)
	app.Post("/conversation/new", inboxHandler.CreateConversation)
	app.Get("/conversation/:id", inboxHandler.ConversationDetail)
	app.Post("/conversation/:id", inboxHandler.PostMessage)

	// ========== WEBHOOK ROUTES ==========
	webhooks := app.Group("/webhook")

	if os.Getenv("ENVIRONMENT") == "development" || os.Getenv("DISABLE_WEBHOOK_VALIDATION") == "true" {
		// Development: skip the shared-token check for local tunnels
		webhooks.Post("/:provider", webhookHandler.Handle)
	} else {
		webhooks.Post("/:provider", middleware.ValidateWebhookToken(), webhookHandler.Handle)
	}

	// Health check
	app.Get("/health", healthHandler.Check)
}

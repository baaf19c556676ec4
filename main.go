package main

import (
	"crypto/sha256"
	"encoding/base64"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/encryptcookie"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/joho/godotenv"

	"github.com/rcastellanos/wainbox-backend/database"
	"github.com/rcastellanos/wainbox-backend/internal/handlers"
	"github.com/rcastellanos/wainbox-backend/internal/models"
	"github.com/rcastellanos/wainbox-backend/internal/routes"
	"github.com/rcastellanos/wainbox-backend/internal/services"
	"github.com/rcastellanos/wainbox-backend/internal/storage"
)

func main() {
	// Load .env file for local development
	err := godotenv.Load(".env")
	if err != nil {
		err = godotenv.Load("environments/.env.development")
		if err != nil {
			log.Println("⚠️  No .env file found - checking environment variables")
		}
	}

	// Initialize storage
	var store storage.Store

	if os.Getenv("USE_MEMORY_STORE") == "true" {
		log.Println("⚠️  Using in-memory storage (not for production!)")
		store = storage.NewMemoryStore()
	} else {
		log.Println("📦 Connecting to PostgreSQL database...")
		database.Connect()

		log.Println("🔄 Running database migrations...")
		err := database.DB.AutoMigrate(
			&models.Conversation{},
			&models.Message{},
		)
		if err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		log.Println("✅ Database migrations completed!")

		store = storage.NewDatabaseStore(database.DB)
		log.Println("✅ Using PostgreSQL database storage")
	}

	// Gateway client; missing credentials only fail actual sends
	gateway := services.NewGreenAPIService()
	if !gateway.Configured() {
		log.Println("⚠️  Green API credentials not found - sending will be unavailable")
	}

	// Create fiber app with the dashboard view engine
	app := fiber.New(fiber.Config{
		AppName: "WhatsApp Inbox v1.0.0",
		Views:   handlers.NewViewEngine(),
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			message := err.Error()
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				message = e.Message
			}

			if wantsJSON(c) {
				return c.Status(code).JSON(fiber.Map{
					"error":  message,
					"status": code,
				})
			}
			return c.Status(code).Render("error", fiber.Map{
				"Code":    code,
				"Message": message,
			})
		},
	})

	// Middleware
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	// Cookie protection keyed by the session secret
	if secret := os.Getenv("SESSION_SECRET"); secret != "" {
		sum := sha256.Sum256([]byte(secret))
		app.Use(encryptcookie.New(encryptcookie.Config{
			Key: base64.StdEncoding.EncodeToString(sum[:]),
		}))
	} else {
		log.Println("⚠️  SESSION_SECRET not set - cookies are not encrypted")
	}

	sessions := session.New(session.Config{
		KeyLookup: "cookie:inbox_session",
	})

	// Setup routes
	routes.SetupRoutes(app, store, gateway, sessions)

	// Get port from environment or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("\n🛑 Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	// Start server
	log.Println("========================================")
	log.Printf("🚀 WhatsApp Inbox starting on port %s", port)
	log.Printf("📊 Storage: %s", getStorageType())
	log.Printf("📱 Gateway: %s", getGatewayStatus(gateway))
	log.Println("========================================")

	log.Fatal(app.Listen(":" + port))
}

// wantsJSON mirrors the webhook/API error contract: webhook callers and
// JSON-only clients get {error, status}, browsers get the error page.
func wantsJSON(c *fiber.Ctx) bool {
	if strings.HasPrefix(c.Path(), "/webhook") {
		return true
	}
	accept := c.Get(fiber.HeaderAccept)
	return strings.Contains(accept, "application/json") &&
		!strings.Contains(accept, "text/html")
}

func getStorageType() string {
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		return "In-Memory (Testing)"
	}
	return "PostgreSQL Database"
}

func getGatewayStatus(gateway *services.GreenAPIService) string {
	if !gateway.Configured() {
		return "Not configured"
	}
	return "Configured"
}

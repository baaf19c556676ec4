package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rcastellanos/wainbox-backend/database"
	"github.com/rcastellanos/wainbox-backend/internal/services"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	Version string
	gateway *services.GreenAPIService
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, gateway *services.GreenAPIService) *HealthHandler {
	return &HealthHandler{
		Version: version,
		gateway: gateway,
	}
}

// Check returns the health status of the service
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	status := "ok"
	statusCode := fiber.StatusOK

	dbHealthy := true
	if database.DB != nil {
		sqlDB, err := database.DB.DB()
		if err != nil || sqlDB.Ping() != nil {
			dbHealthy = false
			status = "unhealthy"
			statusCode = fiber.StatusServiceUnavailable
		}
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status":  status,
		"version": h.Version,
		"services": fiber.Map{
			"database": dbHealthy,
			"gateway":  h.gateway.Configured(),
		},
	})
}

package internal

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"gorm.io/gorm"

	"vantage/internal/config"
	"vantage/internal/events"
	"vantage/internal/gateway"
	vhttp "vantage/internal/http"
	"vantage/internal/http/middleware"
)

// dashboardCORSConfig is the CORS configuration for the query API. The
// dashboard UI is an external collaborator served from another origin.
var dashboardCORSConfig = cors.Config{
	AllowOrigins: "*",
	AllowMethods: "GET,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, Authorization",
}

// MountRoutes mounts all application routes.
func MountRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config, logger *slog.Logger) {
	store := events.NewStore(db)
	gw := gateway.New(store, cfg, logger)

	healthHandler := vhttp.NewHealthHandler(db, logger)
	analyticsHandler := vhttp.NewAnalyticsHandler(gw, logger)
	eventsHandler := vhttp.NewEventsHandler(store, logger)

	app.Get("/health", healthHandler.Index)

	api := app.Group("/api/v1",
		cors.New(dashboardCORSConfig),
		middleware.APIKeyAuth(cfg.APIKey, logger),
	)

	websites := api.Group("/websites/:id")
	websites.Get("/attribution", analyticsHandler.Attribution)
	websites.Get("/journeys", analyticsHandler.Journeys)
	websites.Get("/retention", analyticsHandler.Retention)
	websites.Get("/forms", analyticsHandler.Forms)
	websites.Get("/dashboard", analyticsHandler.Dashboard)
	websites.Get("/events", eventsHandler.List)
	websites.Get("/goals", eventsHandler.Goals)
}

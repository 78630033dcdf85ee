package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/zhiweijz/membership-payments/internal/auth"
	"github.com/zhiweijz/membership-payments/internal/catalog"
	"github.com/zhiweijz/membership-payments/internal/order"
	"github.com/zhiweijz/membership-payments/internal/transport/middleware"
	"github.com/zhiweijz/membership-payments/internal/transport/swagger"
)

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, authMiddleware *auth.Middleware, catalogHandler *catalog.Handler, orderHandler *order.Handler, webhookHandler *order.WebhookHandler, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	// Apply global middleware
	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	// Swagger UI route at root
	router.Handle("/swagger/*", swagger.Handler())

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		// Health check route
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Gateway callback is authenticated by its signature, not a token.
		if webhookHandler != nil {
			r.Post("/payment-callback", webhookHandler.HandlePaymentCallback)
		}

		// Public catalog route (no auth required)
		if catalogHandler != nil {
			r.Get("/products", catalogHandler.GetProducts)
		}

		if authMiddleware != nil && orderHandler != nil {
			// Protected routes that require authentication
			r.Group(func(pr chi.Router) {
				pr.Use(authMiddleware.RequireAuth)

				pr.Route("/orders", func(or chi.Router) {
					or.Post("/", orderHandler.CreateOrder)                  // POST /orders
					or.Get("/{orderRef}/status", orderHandler.GetOrderStatus) // GET /orders/:orderRef/status
				})

				pr.Get("/payment/config-status", orderHandler.GetConfigStatus)
			})
		}
	})
}

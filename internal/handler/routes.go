package handler

import (
	"github.com/gofiber/fiber/v2"

	"bloodlink/internal/middleware"
	"bloodlink/internal/service"
)

func RegisterRoutes(app *fiber.App, h *Handlers, services *service.Services) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1 := app.Group("/api/v1", middleware.RequestInfo())

	auth := v1.Group("/auth")
	auth.Post("/register", h.Auth.Register)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/refresh", h.Auth.Refresh)
	auth.Post("/logout", h.Auth.Logout)

	protected := v1.Group("", middleware.AuthRequired(services.Auth, services.User))
	admin := middleware.RequireAdmin()
	facility := middleware.RequireFacility()

	users := protected.Group("/users")
	users.Get("/me", h.User.GetProfile)
	users.Put("/me", h.User.UpdateProfile)
	users.Get("/", admin, h.User.List)
	users.Patch("/:email/status", admin, h.User.SetStatus)
	users.Delete("/:email", admin, h.User.Delete)

	requests := protected.Group("/requests")
	requests.Post("/", h.Request.CreateBroadcast)
	requests.Post("/direct", h.Request.CreateDirect)
	requests.Post("/emergency", h.Request.CreateEmergency)
	requests.Get("/", h.Request.List)
	requests.Get("/:id", h.Request.Get)
	requests.Post("/:id/accept", h.Request.Accept)
	requests.Post("/:id/decline", h.Request.Decline)
	requests.Post("/:id/complete", h.Request.Complete)
	requests.Delete("/:id", h.Request.Cancel)
	requests.Get("/:id/matches", h.Request.Matches)

	offers := protected.Group("/offers")
	offers.Post("/", facility, h.Offer.Post)
	offers.Get("/", h.Offer.List)
	offers.Get("/:id", h.Offer.Get)
	offers.Post("/:id/claim", facility, h.Offer.Claim)
	offers.Delete("/:id", h.Offer.Cancel)

	notifications := protected.Group("/notifications")
	notifications.Get("/", h.Notification.List)
	notifications.Get("/unread-count", h.Notification.GetUnreadCount)
	notifications.Patch("/:id/read", h.Notification.MarkAsRead)
	notifications.Post("/mark-all-read", h.Notification.MarkAllAsRead)

	inventory := protected.Group("/inventory")
	inventory.Get("/availability/:bloodType", h.Inventory.Availability)
	inventory.Get("/units", facility, h.Inventory.ListUnits)
	inventory.Post("/units", facility, h.Inventory.AddUnit)
	inventory.Put("/units/:id", facility, h.Inventory.UpdateUnit)
	inventory.Delete("/units/:id", facility, h.Inventory.RemoveUnit)
	inventory.Get("/expiring", facility, h.Inventory.Expiring)
	inventory.Get("/export", facility, h.Export.Download)
	inventory.Post("/export/archive", facility, h.Export.Archive)

	transfers := protected.Group("/transfers")
	transfers.Post("/", h.Transfer.Record)
	transfers.Get("/", h.Transfer.List)
	transfers.Put("/:id", admin, h.Transfer.Update)

	protected.Post("/ai/estimate", facility, h.Insight.Estimate)
	protected.Get("/dashboard/stats", admin, h.Insight.Stats)
}

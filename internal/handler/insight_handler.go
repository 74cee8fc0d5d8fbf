package handler

import (
	"github.com/gofiber/fiber/v2"

	"bloodlink/internal/middleware"
	"bloodlink/internal/service/ai"
	"bloodlink/internal/service/dashboard"
)

const defaultHorizonDays = 30

// InsightHandler serves the admin dashboard and demand estimates.
type InsightHandler struct {
	dashboardService dashboard.Service
	aiClient         ai.Client
}

func NewInsightHandler(dashboardService dashboard.Service, aiClient ai.Client) *InsightHandler {
	return &InsightHandler{dashboardService: dashboardService, aiClient: aiClient}
}

func (h *InsightHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.dashboardService.GetStats(c.UserContext())
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderCacheControl, "private, max-age=60")
	return c.JSON(stats)
}

// Estimate forwards a demand estimate for the calling facility. Facility,
// region and current inventory come from the caller's record, not the body.
func (h *InsightHandler) Estimate(c *fiber.Ctx) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	var input ai.EstimateInput
	if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}
	if input.BloodType == "" {
		return middleware.BadRequest("blood_type is required")
	}
	if input.HorizonDays <= 0 {
		input.HorizonDays = defaultHorizonDays
	}

	input.Facility = current.Email
	input.Inventory = current.InventorySummary
	if current.Region != nil {
		input.Region = *current.Region
	}

	out, err := h.aiClient.Estimate(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

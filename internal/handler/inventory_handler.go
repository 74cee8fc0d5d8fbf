package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"bloodlink/internal/domain"
	"bloodlink/internal/middleware"
	"bloodlink/internal/service/inventory"
)

const defaultExpiringDays = 7

type InventoryHandler struct {
	inventoryService inventory.Service
}

func NewInventoryHandler(inventoryService inventory.Service) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService}
}

func (h *InventoryHandler) ListUnits(c *fiber.Ctx) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	units, err := h.inventoryService.ListUnits(c.UserContext(), current.Email)
	if err != nil {
		return err
	}
	return c.JSON(units)
}

func (h *InventoryHandler) AddUnit(c *fiber.Ctx) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	var input domain.CreateBloodUnitInput
	if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	unit, err := h.inventoryService.AddUnit(c.UserContext(), current, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(unit)
}

func (h *InventoryHandler) UpdateUnit(c *fiber.Ctx) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var input domain.UpdateBloodUnitInput
	if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	unit, err := h.inventoryService.UpdateUnit(c.UserContext(), current, id, input)
	if err != nil {
		return err
	}
	return c.JSON(unit)
}

func (h *InventoryHandler) RemoveUnit(c *fiber.Ctx) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.inventoryService.RemoveUnit(c.UserContext(), current, id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Expiring lists the caller's units expiring within ?days (default 7).
func (h *InventoryHandler) Expiring(c *fiber.Ctx) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	days := c.QueryInt("days", defaultExpiringDays)
	units, err := h.inventoryService.ExpiringSoon(c.UserContext(), current.Email, time.Duration(days)*24*time.Hour)
	if err != nil {
		return err
	}
	return c.JSON(units)
}

func (h *InventoryHandler) Availability(c *fiber.Ctx) error {
	facilities, err := h.inventoryService.SearchAvailability(c.UserContext(), c.Params("bloodType"))
	if err != nil {
		return err
	}
	return c.JSON(facilities)
}

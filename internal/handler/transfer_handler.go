package handler

import (
	"github.com/gofiber/fiber/v2"

	"bloodlink/internal/domain"
	"bloodlink/internal/middleware"
	"bloodlink/internal/service/transfer"
)

type TransferHandler struct {
	transferService transfer.Service
}

func NewTransferHandler(transferService transfer.Service) *TransferHandler {
	return &TransferHandler{transferService: transferService}
}

func (h *TransferHandler) Record(c *fiber.Ctx) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	var input domain.CreateTransferInput
	if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	t, err := h.transferService.Record(c.UserContext(), current, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(t)
}

// List returns transfers touching the caller; admins may pass ?facility.
func (h *TransferHandler) List(c *fiber.Ctx) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	facility := current.Email
	if f := c.Query("facility"); f != "" && current.Role == domain.RoleAdmin {
		facility = f
	}

	result, err := h.transferService.ListForFacility(c.UserContext(), facility, getPaginationParams(c))
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (h *TransferHandler) Update(c *fiber.Ctx) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var input domain.UpdateTransferInput
	if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	t, err := h.transferService.Update(c.UserContext(), current, id, input)
	if err != nil {
		return err
	}
	return c.JSON(t)
}

package handler

import (
	"github.com/gofiber/fiber/v2"

	"bloodlink/internal/domain"
	"bloodlink/internal/middleware"
	"bloodlink/internal/service/offer"
)

type OfferHandler struct {
	offerService offer.Service
}

func NewOfferHandler(offerService offer.Service) *OfferHandler {
	return &OfferHandler{offerService: offerService}
}

func (h *OfferHandler) Post(c *fiber.Ctx) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	var input domain.CreateOfferInput
	if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	o, err := h.offerService.Post(c.UserContext(), current.Email, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(o)
}

func (h *OfferHandler) List(c *fiber.Ctx) error {
	var status *domain.OfferStatus
	if s := c.Query("status"); s != "" {
		st := domain.OfferStatus(s)
		status = &st
	}

	result, err := h.offerService.List(c.UserContext(), status, getPaginationParams(c))
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (h *OfferHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	o, err := h.offerService.GetByID(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(o)
}

// Claim answers 409 with the stored status when another facility won.
func (h *OfferHandler) Claim(c *fiber.Ctx) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	result, err := h.offerService.Claim(c.UserContext(), id, current.Email)
	if err != nil {
		return err
	}
	if !result.Claimed {
		return c.Status(fiber.StatusConflict).JSON(result)
	}
	return c.JSON(result)
}

func (h *OfferHandler) Cancel(c *fiber.Ctx) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.offerService.Cancel(c.UserContext(), id, current.Email); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

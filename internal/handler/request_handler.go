package handler

import (
	"github.com/gofiber/fiber/v2"

	"bloodlink/internal/domain"
	"bloodlink/internal/middleware"
	"bloodlink/internal/service/ai"
	"bloodlink/internal/service/request"
)

type RequestHandler struct {
	requestService request.Service
	matcher        *ai.Matcher
}

func NewRequestHandler(requestService request.Service, matcher *ai.Matcher) *RequestHandler {
	return &RequestHandler{requestService: requestService, matcher: matcher}
}

func (h *RequestHandler) CreateBroadcast(c *fiber.Ctx) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	var input domain.CreateRequestInput
	if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	req, err := h.requestService.CreateBroadcast(c.UserContext(), current.Email, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(req)
}

func (h *RequestHandler) CreateDirect(c *fiber.Ctx) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	var input domain.CreateDirectRequestInput
	if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	req, err := h.requestService.CreateDirect(c.UserContext(), current.Email, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(req)
}

func (h *RequestHandler) CreateEmergency(c *fiber.Ctx) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	var input domain.EmergencyInput
	if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	req, err := h.requestService.CreateEmergency(c.UserContext(), current.Email, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(req)
}

// List accepts scope=mine (requested by the caller) or scope=responding
// (accepted by the caller) and an optional status.
func (h *RequestHandler) List(c *fiber.Ctx) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	var filter domain.RequestFilter
	switch c.Query("scope") {
	case "":
	case "mine":
		filter.RequesterEmail = current.Email
	case "responding":
		filter.ResponderEmail = current.Email
	default:
		return middleware.BadRequest("scope must be mine or responding")
	}
	if status := c.Query("status"); status != "" {
		s := domain.RequestStatus(status)
		filter.Status = &s
	}

	result, err := h.requestService.List(c.UserContext(), filter, getPaginationParams(c))
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (h *RequestHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	req, err := h.requestService.GetByID(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(req)
}

func (h *RequestHandler) Accept(c *fiber.Ctx) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	req, err := h.requestService.Accept(c.UserContext(), id, current.Email)
	if err != nil {
		return err
	}
	return c.JSON(req)
}

func (h *RequestHandler) Decline(c *fiber.Ctx) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var input domain.DeclineInput
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			return middleware.BadRequest("Invalid request body")
		}
	}

	req, err := h.requestService.Decline(c.UserContext(), id, current.Email, input)
	if err != nil {
		return err
	}
	return c.JSON(req)
}

func (h *RequestHandler) Complete(c *fiber.Ctx) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	req, err := h.requestService.Complete(c.UserContext(), id, current.Email)
	if err != nil {
		return err
	}
	return c.JSON(req)
}

func (h *RequestHandler) Cancel(c *fiber.Ctx) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.requestService.Cancel(c.UserContext(), id, current.Email); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *RequestHandler) Matches(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	out, err := h.matcher.Match(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

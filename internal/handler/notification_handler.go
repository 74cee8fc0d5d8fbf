package handler

import (
	"github.com/gofiber/fiber/v2"

	"bloodlink/internal/middleware"
	"bloodlink/internal/service/notification"
)

type NotificationHandler struct {
	notifService notification.Service
}

func NewNotificationHandler(notifService notification.Service) *NotificationHandler {
	return &NotificationHandler{notifService: notifService}
}

func (h *NotificationHandler) List(c *fiber.Ctx) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	unreadOnly := c.QueryBool("unread_only", false)
	result, err := h.notifService.ListForUser(c.UserContext(), current.Email, unreadOnly, getPaginationParams(c))
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (h *NotificationHandler) GetUnreadCount(c *fiber.Ctx) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	count, err := h.notifService.UnreadCount(c.UserContext(), current.Email)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"count": count})
}

func (h *NotificationHandler) MarkAsRead(c *fiber.Ctx) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.notifService.MarkRead(c.UserContext(), id, current.Email); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *NotificationHandler) MarkAllAsRead(c *fiber.Ctx) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	if err := h.notifService.MarkAllRead(c.UserContext(), current.Email); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

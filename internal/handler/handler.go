package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"bloodlink/internal/domain"
	"bloodlink/internal/middleware"
	"bloodlink/internal/service"
)

type Handlers struct {
	Auth         *AuthHandler
	User         *UserHandler
	Request      *RequestHandler
	Offer        *OfferHandler
	Notification *NotificationHandler
	Inventory    *InventoryHandler
	Export       *ExportHandler
	Transfer     *TransferHandler
	Insight      *InsightHandler
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		Auth:         NewAuthHandler(services.Auth),
		User:         NewUserHandler(services.User),
		Request:      NewRequestHandler(services.Request, services.Matcher),
		Offer:        NewOfferHandler(services.Offer),
		Notification: NewNotificationHandler(services.Notification),
		Inventory:    NewInventoryHandler(services.Inventory),
		Export:       NewExportHandler(services.Export),
		Transfer:     NewTransferHandler(services.Transfer),
		Insight:      NewInsightHandler(services.Dashboard, services.AI),
	}
}

func getPaginationParams(c *fiber.Ctx) domain.PaginationParams {
	params := domain.DefaultPagination()

	if page := c.QueryInt("page", 1); page > 0 {
		params.Page = page
	}
	if pageSize := c.QueryInt("page_size", 20); pageSize > 0 {
		params.PageSize = pageSize
	}

	params.Validate()
	return params
}

func parseID(c *fiber.Ctx, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(param))
	if err != nil {
		return uuid.Nil, middleware.BadRequest("Invalid " + param)
	}
	return id, nil
}

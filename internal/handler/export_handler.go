package handler

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"bloodlink/internal/middleware"
	"bloodlink/internal/pkg/i18n"
	"bloodlink/internal/service/export"
)

type ExportHandler struct {
	exportSvc export.Service
}

func NewExportHandler(exportSvc export.Service) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

func (h *ExportHandler) Download(c *fiber.Ctx) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	wb, err := h.exportSvc.InventoryWorkbook(c.UserContext(), current, locale(c))
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", wb.Filename))
	c.Set(fiber.HeaderContentType, wb.ContentType)
	return c.Send(wb.Data)
}

func (h *ExportHandler) Archive(c *fiber.Ctx) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	archive, err := h.exportSvc.ArchiveInventory(c.UserContext(), current, locale(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(archive)
}

// locale prefers ?lang, then the first Accept-Language tag.
func locale(c *fiber.Ctx) string {
	if lang := c.Query("lang"); lang != "" {
		return lang
	}
	if accept := c.Get(fiber.HeaderAcceptLanguage); accept != "" {
		tag := strings.SplitN(strings.SplitN(accept, ",", 2)[0], ";", 2)[0]
		return strings.ToLower(strings.SplitN(strings.TrimSpace(tag), "-", 2)[0])
	}
	return i18n.DefaultLocale
}

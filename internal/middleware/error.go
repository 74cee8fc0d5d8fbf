package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"bloodlink/internal/domain"
	"bloodlink/internal/service/ai"
	"bloodlink/internal/service/auth"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

var kindStatus = map[domain.ErrorKind]int{
	domain.KindNotFound:   fiber.StatusNotFound,
	domain.KindConflict:   fiber.StatusConflict,
	domain.KindPermission: fiber.StatusForbidden,
	domain.KindValidation: fiber.StatusUnprocessableEntity,
	domain.KindStorage:    fiber.StatusServiceUnavailable,
}

var statusCode = map[int]string{
	fiber.StatusBadRequest:          "BAD_REQUEST",
	fiber.StatusUnauthorized:        "UNAUTHORIZED",
	fiber.StatusForbidden:           "FORBIDDEN",
	fiber.StatusNotFound:            "NOT_FOUND",
	fiber.StatusConflict:            "CONFLICT",
	fiber.StatusUnprocessableEntity: "VALIDATION_ERROR",
	fiber.StatusServiceUnavailable:  "SERVICE_UNAVAILABLE",
}

// NewErrorHandler renders every error as ErrorResponse. Storage and unknown
// errors are logged with the trace id and their details are not exposed.
func NewErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		traceID := uuid.New().String()[:8]
		status, code, message := classify(err)

		if status >= fiber.StatusInternalServerError {
			log.Error("request failed",
				zap.String("trace_id", traceID),
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}

		return c.Status(status).JSON(ErrorResponse{
			Code:    code,
			Message: message,
			TraceID: traceID,
		})
	}
}

func classify(err error) (int, string, string) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code, ok := statusCode[fe.Code]
		if !ok {
			code = "ERROR"
		}
		return fe.Code, code, fe.Message
	}

	var de *domain.Error
	if errors.As(err, &de) {
		status := kindStatus[de.Kind]
		if de.Kind == domain.KindStorage {
			return status, string(de.Kind), "Storage temporarily unavailable"
		}
		return status, string(de.Kind), de.Message
	}

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return fiber.StatusUnauthorized, "UNAUTHORIZED", err.Error()
	case errors.Is(err, ai.ErrUnavailable):
		return fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", err.Error()
	}

	return fiber.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error"
}

func BadRequest(message string) *fiber.Error {
	return fiber.NewError(fiber.StatusBadRequest, message)
}

func Unauthorized(message string) *fiber.Error {
	return fiber.NewError(fiber.StatusUnauthorized, message)
}

func Forbidden(message string) *fiber.Error {
	return fiber.NewError(fiber.StatusForbidden, message)
}

func NotFound(message string) *fiber.Error {
	return fiber.NewError(fiber.StatusNotFound, message)
}

package api

import (
	"errors"

	"StockDog/internal/portfolio"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// SuccessBody is the standardized success JSON shape.
type SuccessBody struct {
	Status   string      `json:"status"`
	Message  string      `json:"message"`
	Data     interface{} `json:"data"`
	Metadata interface{} `json:"metadata,omitempty"`
}

// ErrorBody is the standardized error JSON shape.
type ErrorBody struct {
	Status string      `json:"status"`
	Error  ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Message    string      `json:"message"`
	StatusCode int         `json:"statusCode"`
	Details    interface{} `json:"details,omitempty"`
}

const (
	statusSuccess = "success"
	statusError   = "error"
)

func success(c *fiber.Ctx, message string, data interface{}, metadata interface{}) error {
	return c.Status(fiber.StatusOK).JSON(SuccessBody{
		Status:   statusSuccess,
		Message:  message,
		Data:     data,
		Metadata: metadata,
	})
}

func created(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(SuccessBody{
		Status:  statusSuccess,
		Message: message,
		Data:    data,
	})
}

func fail(c *fiber.Ctx, message string, statusCode int) error {
	return c.Status(statusCode).JSON(ErrorBody{
		Status: statusError,
		Error: ErrorDetail{
			Message:    message,
			StatusCode: statusCode,
		},
	})
}

// failErr maps store errors onto status codes.
func failErr(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, portfolio.ErrValidation):
		return fail(c, err.Error(), fiber.StatusBadRequest)
	case errors.Is(err, portfolio.ErrNotFound):
		return fail(c, err.Error(), fiber.StatusNotFound)
	default:
		log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
		return fail(c, "Internal Server Error", fiber.StatusInternalServerError)
	}
}

// ErrorHandler is the global fiber error handler.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fail(c, fe.Message, fe.Code)
	}
	return failErr(c, err)
}

package serverutils

import (
	"errors"

	"ai-teaching-be/pkg/rag/scope"
	"ai-teaching-be/pkg/vectorstore"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware converts errors bubbling out of handlers into a
// consistent JSON envelope. Domain sentinels get their proper status codes,
// everything else is a 500.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code := fiber.StatusInternalServerError
		message := err.Error()

		var fiberErr *fiber.Error
		switch {
		case errors.As(err, &fiberErr):
			code = fiberErr.Code
			message = fiberErr.Message
		case errors.Is(err, scope.ErrInvalidScope):
			code = fiber.StatusBadRequest
		case errors.Is(err, vectorstore.ErrCollectionNotFound):
			code = fiber.StatusNotFound
		}

		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}

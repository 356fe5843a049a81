package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"ai-counseling-be/pkg/graph"
)

type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func SuccessResponse(message string, data interface{}) Response {
	return Response{Success: true, Message: message, Data: data}
}

func ErrorResponse(message string) Response {
	return Response{Success: false, Message: message}
}

// ErrorHandlerMiddleware converts errors escaping the controllers into JSON
// responses. Workflow failures are reported generically: internal judgment
// text never reaches the client.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Message))
		}

		var nodeErr *graph.NodeError
		var limitErr *graph.StepLimitError
		if errors.As(err, &nodeErr) || errors.As(err, &limitErr) {
			return ctx.Status(fiber.StatusInternalServerError).
				JSON(ErrorResponse("session error, please retry"))
		}

		return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(err.Error()))
	}
}

package controller

import (
	"github.com/gofiber/fiber/v2"

	"ai-counseling-be/internal/dto"
	"ai-counseling-be/internal/pkg/serverutils"
	"ai-counseling-be/internal/service"
)

type ITrainingController interface {
	RegisterRoutes(r fiber.Router)
	Run(ctx *fiber.Ctx) error
}

type trainingController struct {
	trainingService service.ITrainingService
}

func NewTrainingController(trainingService service.ITrainingService) ITrainingController {
	return &trainingController{
		trainingService: trainingService,
	}
}

func (c *trainingController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/training/v1")
	h.Post("run", c.Run)
}

func (c *trainingController) Run(ctx *fiber.Ctx) error {
	var req dto.StartTrainingRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	res, err := c.trainingService.RunTraining(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Training pass complete", res))
}

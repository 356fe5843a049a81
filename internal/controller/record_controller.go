package controller

import (
	"github.com/gofiber/fiber/v2"

	"ai-counseling-be/internal/pkg/serverutils"
	"ai-counseling-be/internal/service"
)

type IRecordController interface {
	RegisterRoutes(r fiber.Router)
	Show(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
}

type recordController struct {
	recordService service.IRecordService
}

func NewRecordController(recordService service.IRecordService) IRecordController {
	return &recordController{
		recordService: recordService,
	}
}

func (c *recordController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/record/v1")
	h.Get(":id", c.Show)
	h.Get("", c.List)
}

func (c *recordController) Show(ctx *fiber.Ctx) error {
	res, err := c.recordService.GetRecord(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get record", res))
}

func (c *recordController) List(ctx *fiber.Ctx) error {
	subjectId := ctx.Query("subject_id")
	if subjectId == "" {
		return fiber.NewError(fiber.StatusBadRequest, "subject_id query parameter is required")
	}

	res, err := c.recordService.ListForSubject(ctx.Context(), subjectId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list records", res))
}

package controller

import (
	"ai-teaching-be/internal/dto"
	"ai-teaching-be/internal/pkg/serverutils"
	"ai-teaching-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAssistantController interface {
	QA(ctx *fiber.Ctx) error
	Search(ctx *fiber.Ctx) error
	Exercise(ctx *fiber.Ctx) error
	Outline(ctx *fiber.Ctx) error
	Chat(ctx *fiber.Ctx) error
	RegisterRoutes(r fiber.Router)
}

type assistantController struct {
	assistantService service.IAssistantService
}

func NewAssistantController(assistantService service.IAssistantService) IAssistantController {
	return &assistantController{assistantService: assistantService}
}

func (c *assistantController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/assistant/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("/qa", c.QA)
	h.Post("/search", c.Search)
	h.Post("/exercise", c.Exercise)
	h.Post("/outline", c.Outline)
	h.Post("/chat", c.Chat)
}

func (c *assistantController) QA(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(string)

	var req dto.QARequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.assistantService.QA(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success answer question", res))
}

func (c *assistantController) Search(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(string)

	var req dto.SearchRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.assistantService.Search(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success search knowledge", res))
}

func (c *assistantController) Exercise(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(string)

	var req dto.ExerciseRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.assistantService.Exercise(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success generate exercises", res))
}

func (c *assistantController) Outline(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(string)

	var req dto.OutlineRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.assistantService.Outline(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success generate outline", res))
}

func (c *assistantController) Chat(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(string)

	var req dto.ChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.assistantService.Chat(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success chat", res))
}

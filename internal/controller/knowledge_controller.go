package controller

import (
	"ai-teaching-be/internal/dto"
	"ai-teaching-be/internal/pkg/serverutils"
	"ai-teaching-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IKnowledgeController interface {
	Upload(ctx *fiber.Ctx) error
	DeleteCollection(ctx *fiber.Ctx) error
	ListCollections(ctx *fiber.Ctx) error
	RegisterRoutes(r fiber.Router)
}

type knowledgeController struct {
	knowledgeService service.IKnowledgeService
}

func NewKnowledgeController(knowledgeService service.IKnowledgeService) IKnowledgeController {
	return &knowledgeController{knowledgeService: knowledgeService}
}

func (c *knowledgeController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/knowledge/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("/upload", c.Upload)
	h.Delete("/collection", c.DeleteCollection)
	h.Get("/collections", c.ListCollections)
}

func (c *knowledgeController) Upload(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(string)

	var req dto.UploadKnowledgeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	form, err := ctx.MultipartForm()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "multipart form required")
	}

	res, err := c.knowledgeService.Upload(ctx.Context(), userId, &req, form.File["files"])
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success queue knowledge upload", res))
}

func (c *knowledgeController) DeleteCollection(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(string)

	var req dto.DeleteCollectionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.knowledgeService.DeleteCollection(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success delete collection", res))
}

func (c *knowledgeController) ListCollections(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(string)

	res, err := c.knowledgeService.ListCollections(ctx.Context(), userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list collections", res))
}

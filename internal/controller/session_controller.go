package controller

import (
	"strconv"

	"ai-teaching-be/internal/pkg/serverutils"
	"ai-teaching-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ISessionController interface {
	ListSessions(ctx *fiber.Ctx) error
	ListDialogues(ctx *fiber.Ctx) error
	ClearSession(ctx *fiber.Ctx) error
	RegisterRoutes(r fiber.Router)
}

type sessionController struct {
	sessionService service.ISessionService
}

func NewSessionController(sessionService service.ISessionService) ISessionController {
	return &sessionController{sessionService: sessionService}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/session/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Get("/", c.ListSessions)
	h.Get("/:id/dialogues", c.ListDialogues)
	h.Delete("/:id", c.ClearSession)
}

// role comes from the query string because sessions are stored per role
// directory, not per token.
func roleParam(ctx *fiber.Ctx) (string, error) {
	role := ctx.Query("role", "student")
	if role != "teacher" && role != "student" {
		return "", fiber.NewError(fiber.StatusBadRequest, "role must be teacher or student")
	}
	return role, nil
}

func (c *sessionController) ListSessions(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(string)

	role, err := roleParam(ctx)
	if err != nil {
		return err
	}

	res, err := c.sessionService.ListSessions(ctx.Context(), userId, role)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list sessions", res))
}

func (c *sessionController) ListDialogues(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(string)
	sessionId := ctx.Params("id")

	role, err := roleParam(ctx)
	if err != nil {
		return err
	}

	limit, _ := strconv.Atoi(ctx.Query("limit", "0"))

	res, err := c.sessionService.ListDialogues(ctx.Context(), userId, sessionId, role, limit)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list dialogues", res))
}

func (c *sessionController) ClearSession(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(string)
	sessionId := ctx.Params("id")

	role, err := roleParam(ctx)
	if err != nil {
		return err
	}

	res, err := c.sessionService.ClearSession(ctx.Context(), userId, sessionId, role)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success clear session", res))
}

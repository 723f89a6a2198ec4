package controller

import (
	"errors"

	"dva-dashboard-be/internal/dto"
	"dva-dashboard-be/internal/pkg/serverutils"
	"dva-dashboard-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IUseCaseController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	Summary(ctx *fiber.Ctx) error
}

type useCaseController struct {
	service service.IUseCaseService
}

func NewUseCaseController(service service.IUseCaseService) IUseCaseController {
	return &useCaseController{service: service}
}

func (c *useCaseController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/use-cases")
	h.Post("/", c.Create)
	h.Delete("/:id", c.Delete)

	r.Get("/analytics/summary", c.Summary)
}

func (c *useCaseController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateUseCaseRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	res, err := c.service.Submit(ctx.UserContext(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidUseCase) {
			return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}

	status := fiber.StatusCreated
	if res.Queued {
		status = fiber.StatusAccepted
	}
	return ctx.Status(status).JSON(fiber.Map{
		"success": true,
		"code":    status,
		"message": "Use case submitted",
		"data":    res,
	})
}

func (c *useCaseController) Delete(ctx *fiber.Ctx) error {
	if err := c.service.Remove(ctx.UserContext(), ctx.Params("id")); err != nil {
		if errors.Is(err, service.ErrInvalidUseCase) {
			return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Use case removed", nil))
}

func (c *useCaseController) Summary(ctx *fiber.Ctx) error {
	summary, err := c.service.Summary(ctx.UserContext())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("ok", summary))
}

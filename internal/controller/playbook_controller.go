package controller

import (
	"errors"

	"dva-dashboard-be/internal/dto"
	"dva-dashboard-be/internal/pkg/serverutils"
	"dva-dashboard-be/internal/playbook"

	"github.com/gofiber/fiber/v2"
)

type IPlaybookController interface {
	RegisterRoutes(r fiber.Router)
	GetPlaybook(ctx *fiber.Ctx) error
}

type playbookController struct {
	client   playbook.IClient
	defaults PlaybookOptions
}

func NewPlaybookController(client playbook.IClient, defaults PlaybookOptions) IPlaybookController {
	return &playbookController{client: client, defaults: defaults}
}

func (c *playbookController) RegisterRoutes(r fiber.Router) {
	r.Get("/playbook", c.GetPlaybook)
}

func (c *playbookController) GetPlaybook(ctx *fiber.Ctx) error {
	q := dto.PlaybookQuery{ClientID: c.defaults.ClientID, UseCaseID: c.defaults.UseCaseID}
	if err := ctx.QueryParser(&q); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	pb, err := c.client.Fetch(ctx.UserContext(), q.ClientID, q.UseCaseID)
	if err != nil {
		if errors.Is(err, playbook.ErrPlaybookUnavailable) {
			return ctx.Status(fiber.StatusBadGateway).JSON(serverutils.ErrorResponse(502, err.Error()))
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("playbook generated", pb))
}

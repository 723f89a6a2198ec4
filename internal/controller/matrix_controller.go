package controller

import (
	"dva-dashboard-be/internal/dto"
	"dva-dashboard-be/internal/pkg/logger"
	"dva-dashboard-be/internal/pkg/serverutils"
	"dva-dashboard-be/internal/service"
	internalWS "dva-dashboard-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type IMatrixController interface {
	RegisterRoutes(r fiber.Router)
	GetMatrix(ctx *fiber.Ctx) error
	ServeWs(ctx *fiber.Ctx) error
}

type matrixController struct {
	service service.IMatrixService
	hub     *internalWS.Hub
	logger  logger.ILogger
}

func NewMatrixController(service service.IMatrixService, hub *internalWS.Hub, log logger.ILogger) IMatrixController {
	return &matrixController{service: service, hub: hub, logger: log}
}

func (c *matrixController) RegisterRoutes(r fiber.Router) {
	r.Get("/api/matrix", c.GetMatrix)
	r.Get("/ws/matrix", c.ServeWs)
}

// GetMatrix renders the matrix view model once.
func (c *matrixController) GetMatrix(ctx *fiber.Ctx) error {
	var q dto.MatrixQuery
	if err := ctx.QueryParser(&q); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	res, err := c.service.Render(ctx.UserContext(), q.Selection(), serverutils.SessionToken(ctx))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	if res.SessionToken != "" {
		ctx.Set("X-Session-Token", res.SessionToken)
	}
	return ctx.JSON(serverutils.SuccessResponse("matrix rendered", res.Model))
}

// ServeWs upgrades to a websocket that carries one live matrix view. The view
// starts from the type and category query parameters, like GET /matrix.
func (c *matrixController) ServeWs(ctx *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}

	var q dto.MatrixQuery
	if err := ctx.QueryParser(&q); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}
	sel := q.Selection()

	token := serverutils.SessionToken(ctx)
	return websocket.New(func(conn *websocket.Conn) {
		page := c.service.NewPage(token)
		page.SetFilter(sel)
		c.logger.Info("MatrixController", "Starting live matrix session", map[string]interface{}{
			"type":     sel.Type,
			"category": sel.Category,
		})
		internalWS.ServeWs(c.hub, conn, page, token, c.logger)
		c.logger.Info("MatrixController", "Live matrix session ended", nil)
	})(ctx)
}

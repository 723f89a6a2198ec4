package controller

import (
	"strings"
	"time"

	"dva-dashboard-be/internal/dto"
	"dva-dashboard-be/internal/pkg/logger"
	"dva-dashboard-be/internal/pkg/serverutils"
	"dva-dashboard-be/internal/playbook"
	"dva-dashboard-be/internal/service"
	"dva-dashboard-be/internal/view"

	"github.com/gofiber/fiber/v2"
)

type IPageController interface {
	RegisterRoutes(r fiber.Router)
	Home(ctx *fiber.Ctx) error
	Matrix(ctx *fiber.Ctx) error
	Playbook(ctx *fiber.Ctx) error
	StrategicAlignment(ctx *fiber.Ctx) error
	Chat(ctx *fiber.Ctx) error
	Fallback(ctx *fiber.Ctx) error
}

type SessionOptions struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

type PlaybookOptions struct {
	ClientID  int
	UseCaseID int
}

type pageController struct {
	renderer        *view.Renderer
	matrixService   service.IMatrixService
	useCaseService  service.IUseCaseService
	playbookClient  playbook.IClient
	session         SessionOptions
	playbookOptions PlaybookOptions
	logger          logger.ILogger
}

func NewPageController(
	renderer *view.Renderer,
	matrixService service.IMatrixService,
	useCaseService service.IUseCaseService,
	playbookClient playbook.IClient,
	session SessionOptions,
	playbookOptions PlaybookOptions,
	log logger.ILogger,
) IPageController {
	return &pageController{
		renderer:        renderer,
		matrixService:   matrixService,
		useCaseService:  useCaseService,
		playbookClient:  playbookClient,
		session:         session,
		playbookOptions: playbookOptions,
		logger:          log,
	}
}

func (c *pageController) RegisterRoutes(r fiber.Router) {
	r.Get("/", c.Home)
	r.Get("/matrix", c.Matrix)
	r.Get("/playbook", c.Playbook)
	r.Get("/strategic-alignment", c.StrategicAlignment)
	r.Get("/chat", c.Chat)
}

func (c *pageController) render(ctx *fiber.Ctx, name string, page view.Page) error {
	out, err := c.renderer.Render(name, page)
	if err != nil {
		c.logger.Error("PageController", "Failed to render page", map[string]interface{}{"page": name, "error": err})
		return fiber.NewError(fiber.StatusInternalServerError, "failed to render page")
	}
	ctx.Type("html", "utf-8")
	return ctx.Send(out)
}

func (c *pageController) Home(ctx *fiber.Ctx) error {
	return c.render(ctx, "home", view.Page{Title: "Home", Active: "/"})
}

func (c *pageController) Chat(ctx *fiber.Ctx) error {
	return c.render(ctx, "chat", view.Page{Title: "Chat", Active: "/chat"})
}

// Matrix renders the current state of the matrix; the page then keeps itself
// up to date over /ws/matrix.
func (c *pageController) Matrix(ctx *fiber.Ctx) error {
	var q dto.MatrixQuery
	if err := ctx.QueryParser(&q); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	res, err := c.matrixService.Render(ctx.UserContext(), q.Selection(), serverutils.SessionToken(ctx))
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	c.setSessionCookie(ctx, res.SessionToken)

	return c.render(ctx, "matrix", view.Page{
		Title:      "Matrix",
		Active:     "/matrix",
		WSPath:     "/ws/matrix",
		CookieName: c.session.CookieName,
		Content:    res.Model,
	})
}

func (c *pageController) Playbook(ctx *fiber.Ctx) error {
	clientID := ctx.QueryInt("client_id", c.playbookOptions.ClientID)
	useCaseID := ctx.QueryInt("use_case_id", c.playbookOptions.UseCaseID)

	content := view.PlaybookContent{}
	pb, err := c.playbookClient.Fetch(ctx.UserContext(), clientID, useCaseID)
	if err != nil {
		content.Error = err.Error()
	} else {
		content.Playbook = pb
	}

	return c.render(ctx, "playbook", view.Page{Title: "Data Product Playbook", Active: "/playbook", Content: content})
}

func (c *pageController) StrategicAlignment(ctx *fiber.Ctx) error {
	content := view.AlignmentContent{}
	summary, err := c.useCaseService.Summary(ctx.UserContext())
	if err != nil {
		c.logger.Warn("PageController", "Analytics summary unavailable", map[string]interface{}{"error": err})
		content.Error = "Analytics summary is unavailable."
	} else {
		content.Summary = summary
	}

	return c.render(ctx, "strategic_alignment", view.Page{Title: "Strategic Alignment", Active: "/strategic-alignment", Content: content})
}

// Fallback serves the home page for unknown page routes and a JSON 404 for
// unknown API routes.
func (c *pageController) Fallback(ctx *fiber.Ctx) error {
	path := ctx.Path()
	if strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, "/ws/") {
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, "route not found"))
	}
	if ctx.Method() != fiber.MethodGet {
		return ctx.Status(fiber.StatusMethodNotAllowed).JSON(serverutils.ErrorResponse(405, "method not allowed"))
	}
	return c.Home(ctx)
}

func (c *pageController) setSessionCookie(ctx *fiber.Ctx, token string) {
	if token == "" {
		return
	}
	ctx.Cookie(&fiber.Cookie{
		Name:     c.session.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(c.session.TTL),
		Secure:   c.session.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

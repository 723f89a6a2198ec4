package bootstrap

import (
	"context"
	"log"
	"time"

	"dva-dashboard-be/internal/auth"
	"dva-dashboard-be/internal/config"
	"dva-dashboard-be/internal/controller"
	"dva-dashboard-be/internal/docstore"
	"dva-dashboard-be/internal/matrix"
	"dva-dashboard-be/internal/pkg/logger"
	"dva-dashboard-be/internal/playbook"
	"dva-dashboard-be/internal/service"
	"dva-dashboard-be/internal/view"
	"dva-dashboard-be/internal/websocket"

	pktNats "dva-dashboard-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	PageController     controller.IPageController
	MatrixController   controller.IMatrixController
	PlaybookController controller.IPlaybookController
	UseCaseController  controller.IUseCaseController

	// Background Services (Exposed for main.go to run)
	UseCaseService service.IUseCaseService
	WebSocketHub   *websocket.Hub

	Store  docstore.Store
	Logger logger.ILogger

	closers []func()
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	wsLogger := logger.NewIsolatedLogger(cfg.App.WsLogFilePath)

	c := &Container{Logger: sysLogger}

	// 2. Document store
	store, closeStore := NewStore(cfg)
	c.Store = store
	c.closers = append(c.closers, closeStore)

	// 3. Event bus. Both halves are optional; without them writes go
	// straight to the store.
	var publisher service.EventPublisher
	var subscriber service.EventSubscriber
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			publisher = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
		natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		} else {
			subscriber = natsSub
			c.closers = append(c.closers, natsSub.Close)
		}
	}
	if publisher != nil && subscriber == nil {
		// no consumer, so writes go straight to the store
		log.Printf("[WARN] NATS subscriber unavailable, writing use cases directly")
		publisher = nil
	}

	// 4. Auth
	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret = uuid.NewString()
		log.Printf("[WARN] JWT_SECRET is not set; using a per-process secret, sessions will not survive a restart")
	}
	newProvider := func(svc config.ServiceConfig, sessionToken string) auth.Provider {
		return auth.NewJWTProvider(svc, secret, cfg.Auth.SessionTTL, sessionToken)
	}

	// 5. Services
	matrixService := service.NewMatrixService(NewMatrixConfig(cfg), matrix.PageDeps{
		Store:       c.Store,
		NewProvider: newProvider,
		Logger:      sysLogger,
	}, cfg.Matrix.RenderWait)

	c.UseCaseService = service.NewUseCaseService(c.Store, publisher, subscriber, sysLogger)

	playbookClient := playbook.NewClient(cfg.Playbook.URL, cfg.Playbook.Timeout, cfg.Playbook.CacheTTL, sysLogger)
	if cfg.Playbook.URL == "" {
		log.Printf("[WARN] PLAYBOOK_URL is not set, the playbook page will show an error")
	}

	// 6. WebSocket Hub
	c.WebSocketHub = websocket.NewHub(wsLogger)
	go c.WebSocketHub.Run()

	renderer, err := view.NewRenderer()
	if err != nil {
		log.Fatalf("[FATAL] Failed to parse page templates: %v", err)
	}

	// 7. Controllers
	session := controller.SessionOptions{
		CookieName: cfg.Auth.SessionCookieName,
		TTL:        cfg.Auth.SessionTTL,
		Secure:     cfg.App.Environment == "production",
	}
	playbookOpts := controller.PlaybookOptions{ClientID: cfg.Playbook.ClientID, UseCaseID: cfg.Playbook.UseCaseID}

	c.PageController = controller.NewPageController(renderer, matrixService, c.UseCaseService, playbookClient, session, playbookOpts, sysLogger)
	c.MatrixController = controller.NewMatrixController(matrixService, c.WebSocketHub, wsLogger)
	c.PlaybookController = controller.NewPlaybookController(playbookClient, playbookOpts)
	c.UseCaseController = controller.NewUseCaseController(c.UseCaseService)

	return c
}

// NewMatrixConfig is the explicit configuration handed to every matrix view.
func NewMatrixConfig(cfg *config.Config) matrix.MatrixConfig {
	return matrix.MatrixConfig{
		ServiceConfigJSON: cfg.Firebase.RawJSON,
		EmbedURL:          cfg.Embed.LookerStudioURL,
		InitialAuthToken:  cfg.Auth.InitialAuthToken,
		StallTimeout:      cfg.Matrix.StallTimeout,
	}
}

// NewStore opens the document store selected by STORE_DRIVER. The returned
// func releases it.
func NewStore(cfg *config.Config) (docstore.Store, func()) {
	if cfg.App.StoreDriver != "redis" {
		log.Printf("[INFO] Using in-memory document store")
		store := docstore.NewMemoryStore(watermill.NewStdLogger(false, false))
		return store, func() { _ = store.Close() }
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}
	log.Printf("[INFO] Using Redis document store")
	return docstore.NewRedisStore(rdb), func() { _ = rdb.Close() }
}

// Shutdown stops background work and releases connections in reverse order.
func (c *Container) Shutdown() {
	c.UseCaseService.Stop()
	c.WebSocketHub.Shutdown()
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}

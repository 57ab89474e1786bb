package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/storytovideo/companion/internal/client"
	"github.com/storytovideo/companion/internal/config"
	"github.com/storytovideo/companion/internal/handler"
	"github.com/storytovideo/companion/internal/middleware"
	"github.com/storytovideo/companion/internal/orchestrator"
	"github.com/storytovideo/companion/internal/store"
	ws "github.com/storytovideo/companion/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize project storage
	projectStore := store.New(cfg.Storage.RootDir)
	log.Printf("Project storage root: %s", projectStore.RootDir())

	// Initialize gateway clients
	gatewayClient := client.NewGatewayClient(&cfg.API)
	assetClient := client.NewAssetClient()

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize the pipeline orchestrator
	bridge := ws.NewEventBridge(hub)
	orch := orchestrator.New(
		gatewayClient,
		projectStore,
		assetClient,
		bridge,
		gatewayClient.BaseURL(),
		time.Duration(cfg.Poll.IntervalSeconds)*time.Second,
	)

	orchCtx, cancelOrch := context.WithCancel(context.Background())
	defer cancelOrch()
	go orch.Run(orchCtx)

	// Initialize handlers
	projectHandler := handler.NewProjectHandler(orch, projectStore, validate)
	shotHandler := handler.NewShotHandler(orch, validate)
	videoHandler := handler.NewVideoHandler(orch)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// API routes. Auth is only enforced when a secret is configured; the
	// default localhost deployment runs open.
	api := app.Group("/api")
	if cfg.Auth.Secret != "" {
		authMiddleware := middleware.NewAuthMiddleware(cfg.Auth.Secret)
		api = app.Group("/api", authMiddleware.Authenticate())
	}

	// Project routes
	projects := api.Group("/projects")
	projects.Post("/generate", projectHandler.Generate)
	projects.Post("/load", projectHandler.Load)
	projects.Post("/:projectId/video", videoHandler.Compile)
	projects.Post("/:projectId/shots/refresh", shotHandler.Refresh)
	projects.Post("/:projectId/shots/:shotId/image", shotHandler.UpdateImage)
	projects.Get("/:projectId/video/local", projectHandler.VideoLocal)
	projects.Get("/:projectId/generating", projectHandler.Generating)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/projects/:projectId", websocket.New(func(c *websocket.Conn) {
		projectID := c.Params("projectId")
		hub.HandleConnection(c, projectID)
	}))

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		cancelOrch()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Companion starting on %s (gateway %s)", addr, gatewayClient.BaseURL())
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}

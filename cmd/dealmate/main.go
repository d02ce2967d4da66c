package main

import (
	"context"
	"io"
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"dealmate/internal/config"
	"dealmate/internal/http/handlers"
	applog "dealmate/internal/log"
	"dealmate/internal/mediator"
	"dealmate/internal/repos"
	"dealmate/internal/services"
)

func main() {
	cfg := config.Load()

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			mw := io.MultiWriter(os.Stdout, f)
			log.SetOutput(mw)
		}
	}

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	// Auth wiring
	userRepo := repos.NewUserRepo(db)
	authSvc := &services.AuthService{Users: userRepo}

	// Mediator wiring; without a key the drafting service runs on its
	// deterministic fallback and the numeric protocol is unaffected.
	var drafter services.Drafter
	if cfg.GeminiAPIKey != "" {
		client, err := mediator.NewClient(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Printf("[warn] mediator client unavailable, using fallback drafts: %v", err)
		} else {
			drafter = client
		}
	} else {
		log.Printf("[warn] GEMINI_API_KEY not set, using fallback drafts")
	}
	draftSvc := services.NewDraftService(drafter, cfg.MediatorTimeout)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Error(c, "server.error", err, nil)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
		},
	})
	// Global body size guard
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(limiter.New(limiter.Config{
		Max:        60,
		Expiration: time.Minute,
	}))

	// ---------- App handlers ----------
	deps := handlers.NewDeps(db, authSvc, draftSvc)

	app.Post("/register", deps.AuthHandler.Register)
	app.Post("/login", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too many attempts, try again later"})
		},
	}), deps.AuthHandler.Login)
	app.Post("/logout", deps.AuthHandler.Logout)

	api := app.Group("/api/v1")
	api.Post("/deals", handlers.RequireUser(authSvc), deps.DealHandler.Create)
	api.Get("/deals/:id", deps.DealHandler.View)
	api.Post("/deals/:id/join", deps.DealHandler.Join)
	api.Get("/deals/:id/messages", deps.DealHandler.Messages)
	api.Post("/propose", deps.NegotiationHandler.Propose)
	api.Post("/offers/respond", deps.NegotiationHandler.Respond)
	api.Post("/seller/update-min", deps.NegotiationHandler.UpdateMin)

	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })

	log.Fatal(app.Listen(":" + cfg.Port))
}

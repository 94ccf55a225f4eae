package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"duelytics-server/handlers"
	"duelytics-server/models"
	"duelytics-server/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		AppName: "Duelytics API",
	})

	app.Use(logger.New())

	// Load allowed origins from environment variable
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:8080")
		allowedOriginsEnv = "http://localhost:8080" // Vue dev server inside the desktop shell
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(allowedOriginsList, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.LadderTier{},
		&models.SessionParticipant{},
		&models.PlayerSessionStats{},
		&models.Deck{},
		&models.Duel{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	if err := services.SeedLadderTiers(db); err != nil {
		log.Fatal("failed to seed ladder tiers:", err)
	}

	sessionService := services.NewSessionService(db)
	duelService := services.NewDuelService(db)
	deckService := services.NewDeckService(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessionService.StartArchiveScheduler()

	handlers.SetupRoutes(app, db, sessionService, duelService, deckService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3001"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("🚀 Duelytics server running on http://localhost:%s", port)
	log.Printf("📊 Health check: http://localhost:%s/health", port)
	log.Println("✅ Session archive scheduler running (every 1m)")

	<-ctx.Done()
	log.Println("🛑 Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	log.Println("✅ Server closed cleanly")
}

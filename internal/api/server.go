package api

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/showtix/auth_service/config"
	"github.com/showtix/auth_service/infra/queue"
	"github.com/showtix/auth_service/internal/api/rest/handlers"
	"github.com/showtix/auth_service/internal/domain"
	"github.com/showtix/auth_service/internal/helper"
	"github.com/showtix/auth_service/internal/mailer"
	"github.com/showtix/auth_service/internal/repository"
	"github.com/showtix/auth_service/internal/services"
	"github.com/showtix/auth_service/internal/verification"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func StartServer(cfg config.Config) {
	app := fiber.New()

	// ---------- Middleware ----------
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.BaseURL,
		AllowHeaders:     "Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		AllowCredentials: true,
	}))

	// ---------- DB ----------
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DatabaseDSN,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
	if err != nil {
		log.Fatalf("database connection error: %v", err)
	}
	log.Println("database connected")

	if err := db.AutoMigrate(&domain.User{}); err != nil {
		log.Fatalf("migration error: %v", err)
	}
	log.Println("migration successful")

	// ---------- Infra ----------
	kafkaProducer := queue.NewProducer(
		cfg.KafkaBroker,
		cfg.KafkaTopic,
		cfg.KafkaUsername,
		cfg.KafkaPassword,
	)
	mail := mailer.NewEventMailer(kafkaProducer)

	if len(cfg.AccessSecret) < 32 {
		log.Fatal("ACCESS_SECRET must be at least 32 bytes")
	}
	authHelper := helper.SetupAuth(cfg.AccessSecret)
	codeStore := verification.NewMemoryStore()

	// ---------- Repositories ----------
	userRepo := repository.NewUserRepository(db)

	// ---------- Service ----------
	authSvc := services.NewAuthService(userRepo, codeStore, authHelper, mail)

	// ---------- Handler ----------
	authHandler := handlers.NewAuthHandler(authSvc, authHelper)
	authHandler.SetupRoutes(app)

	// ---------- Health ----------
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// ---------- Listen ----------
	addr := cfg.ServerPort
	log.Println("listening on", addr)
	log.Fatal(app.Listen(addr))
}

package main

import (
	"log"

	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"github.com/maix-platform/registration-service/config"
	"github.com/maix-platform/registration-service/internal/consumer"
	"github.com/maix-platform/registration-service/internal/handler"
	"github.com/maix-platform/registration-service/internal/middleware"
	"github.com/maix-platform/registration-service/internal/repository"
	"github.com/maix-platform/registration-service/internal/service"
	"github.com/maix-platform/registration-service/pkg/database"
	"github.com/maix-platform/registration-service/pkg/rabbitmq"
)

func main() {
	cfg := config.Load()

	db := database.NewPostgresDB(cfg.DSN())

	// RabbitMQ: sync events/memberships from the platform core and publish
	// registration lifecycle events for notification fan-out. Optional in
	// local runs without a broker.
	var publisher service.Publisher
	if cfg.RabbitURL != "" {
		mqConsumer, err := rabbitmq.NewConsumer(cfg.RabbitURL)
		if err != nil {
			log.Fatalf("failed to connect to RabbitMQ: %v", err)
		}
		defer mqConsumer.Close()

		msgs, err := mqConsumer.Consume()
		if err != nil {
			log.Fatalf("failed to start consuming: %v", err)
		}

		platformConsumer := consumer.NewPlatformConsumer(db)
		platformConsumer.Start(msgs)

		mqPublisher, err := rabbitmq.NewPublisher(cfg.RabbitURL)
		if err != nil {
			log.Fatalf("failed to create RabbitMQ publisher: %v", err)
		}
		defer mqPublisher.Close()
		publisher = mqPublisher
	} else {
		log.Println("RABBITMQ_URL not set, platform sync and notifications disabled")
	}

	// Repositories
	eventRepo := repository.NewEventRepository(db)
	regRepo := repository.NewRegistrationRepository(db)
	memberRepo := repository.NewMembershipRepository(db)

	// Service
	regSvc := service.NewRegistrationService(regRepo, eventRepo, memberRepo, publisher)

	// Echo
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Use(echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			log.Printf("%s %s %d", v.Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(echoMw.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok", "service": "registration-service"})
	})

	handler.NewRegistrationHandler(regSvc, eventRepo).RegisterRoutes(e)

	log.Printf("Registration Service starting on :%s", cfg.ServerPort)
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}

package main

import (
	"academy/config"
	"academy/database"
	aiRoutes "academy/routers/aiRoutes"
	authRoutes "academy/routers/authRoutes"
	courseRoutes "academy/routers/courseRoutes"
	keyRoutes "academy/routers/keyRoutes"
	recommendationRoutes "academy/routers/recommendationRoutes"
	subscriptionRoutes "academy/routers/subscriptionRoutes"
	"academy/utils"

	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	config.LoadConfig()
	database.ConnectDb()

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE",        // Allowed HTTP methods
		AllowHeaders: "Content-Type,Authorization", // Allowed headers
	}))

	// Enable the built-in logger middleware to log all requests
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${ip} ${method} ${path} ${status} ${latency}\n",
	}))

	authRoutes.SetupAuthRoutes(app)
	keyRoutes.SetupKeyRoutes(app)
	courseRoutes.SetupCourseRoutes(app)
	aiRoutes.SetupAiRoutes(app)
	recommendationRoutes.SetupRecommendationRoutes(app)
	subscriptionRoutes.SetupSubscriptionRoutes(app)

	// Background workers
	utils.InitializeSubscriptionScheduler()
	utils.StartBroadcastWorker()

	log.Printf("Server is running on port %s", config.AppConfig.Port)
	log.Fatal(app.Listen(":" + config.AppConfig.Port))
}

package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/dinetap/dinein-app/config"
	"github.com/dinetap/dinein-app/middlewares"
	"github.com/dinetap/dinein-app/models"
	"github.com/dinetap/dinein-app/router"
	"github.com/dinetap/dinein-app/services"
	"github.com/dinetap/dinein-app/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or error loading: %v", err)
	}

	utils.InitLogger()

	db, err := config.InitDB()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	utils.InitDB(db)

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	autoMigrate(db)

	rateLimiter := middlewares.NewRateLimiter(50, 1)

	r := router.SetupRouter(db)
	r.Use(rateLimiter.RateLimit())

	r.SetTrustedProxies([]string{"127.0.0.1", "localhost"})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	utils.InfoLogger.Printf("Listening on port %s", port)
	if err := r.Run(":" + port); err != nil {
		utils.ErrorLogger.Fatal(err)
	}
}

func autoMigrate(db *gorm.DB) {
	err := db.AutoMigrate(
		&models.User{},
		&models.Business{},
		&models.Table{},
		&models.Tab{},
		&models.TabCustomer{},
		&models.Order{},
	)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}

	// The legacy business-scoped tab shape shares the Tab schema under its
	// own table name.
	if err := db.Table(services.TabShapeLegacy).AutoMigrate(&models.Tab{}); err != nil {
		utils.ErrorLogger.Fatalf("Failed to migrate legacy tab shape: %v", err)
	}

	utils.InfoLogger.Println("AutoMigrate completed.")
}

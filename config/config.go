package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/terraflota/fleetops/utils"
)

var DB *gorm.DB

// Yard is the optional geofence of the collection yard, from YARD_GEOFENCE.
var Yard *utils.YardFence

// YardNames are the origin labels that identify the collection yard, from
// YARD_NAMES (comma separated). Matched case-insensitively.
var YardNames []string

func Connect() {
	// Load .env file
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	dsn := os.Getenv("DB_DSN")
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	loadYardConfig()
}

func loadYardConfig() {
	names := os.Getenv("YARD_NAMES")
	if names == "" {
		names = "acopio,collection yard"
	}
	YardNames = YardNames[:0]
	for _, n := range strings.Split(names, ",") {
		if trimmed := strings.TrimSpace(n); trimmed != "" {
			YardNames = append(YardNames, trimmed)
		}
	}

	fence, err := utils.ParseYardFence(os.Getenv("YARD_GEOFENCE"))
	if err != nil {
		log.Fatal("Invalid YARD_GEOFENCE:", err)
	}
	Yard = fence
}

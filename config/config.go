package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/Majd04/StepChallenge/models"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func InitDB() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using environment")
	}

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := Migrate(DB); err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}
}

// Migrate applies the schema; tests reuse it against sqlite.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.ActivityRecord{},
		&models.SyncState{},
		&models.Alert{},
		&models.UserDevice{},
	)
}

func Getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// SyncInterval is the background loop tick period, clamped to 1-5 minutes.
func SyncInterval() time.Duration {
	secs := getInt("SYNC_INTERVAL_SECONDS", 120)
	if secs < 60 {
		secs = 60
	}
	if secs > 300 {
		secs = 300
	}
	return time.Duration(secs) * time.Second
}

// ReminderWindow is the local evening hour range [start, end) in which the
// daily goal reminder may fire.
func ReminderWindow() (start, end int) {
	start = getInt("REMINDER_HOUR_START", 18)
	end = getInt("REMINDER_HOUR_END", 21)
	if end <= start {
		end = start + 1
	}
	return start, end
}

// LeaderboardLimit caps live subscription and snapshot sizes.
func LeaderboardLimit() int {
	return getInt("LEADERBOARD_LIMIT", 50)
}

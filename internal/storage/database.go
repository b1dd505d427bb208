package storage

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"lifeshare/internal/config"
	"lifeshare/internal/models"
)

// InitDB initializes the database connection using the provided configuration.
func InitDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Type {
	case "postgres":
		var dsnParts []string
		dsnParts = append(dsnParts, fmt.Sprintf("host=%s", cfg.Host))
		dsnParts = append(dsnParts, fmt.Sprintf("port=%d", cfg.Port))
		dsnParts = append(dsnParts, fmt.Sprintf("user=%s", cfg.User))
		dsnParts = append(dsnParts, fmt.Sprintf("dbname=%s", cfg.DBName))
		if cfg.Password != "" {
			dsnParts = append(dsnParts, fmt.Sprintf("password=%s", cfg.Password))
		}
		dsnParts = append(dsnParts, fmt.Sprintf("sslmode=%s", cfg.SSLMode))

		dialector = postgres.Open(strings.Join(dsnParts, " "))
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true, // surfaces gorm.ErrDuplicatedKey on unique violations
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// AutoMigrateTables runs GORM's auto-migration for all defined models.
func AutoMigrateTables(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Resource{},
		&models.Request{},
		&models.Conversation{},
		&models.Message{},
	)
	if err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	return nil
}

package db

import (
	"crowdfund_system/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/driver/mysql"       // MySQL driver for GORM
	"gorm.io/gorm"               // GORM ORM library
)

// Config returns the gorm settings shared by every dialect
func Config() *gorm.Config {
	return &gorm.Config{TranslateError: true} // Map driver errors to gorm sentinels
}

// Open connects to MySQL
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(mysql.Open(dsn), Config())
}

// Migrate performs automatic migration for the database schema
func Migrate(db *gorm.DB) error {
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	if err := db.AutoMigrate(domain.Models()...); err != nil {
		return err
	}
	logrus.WithField("tables", len(domain.Models())).Info("Migration completed.") // Log successful migration
	return nil
}

// Package store implements the durable state layer: payments, refunds,
// webhook subscriptions, the webhook_events outbox, and idempotency
// records, as transactional multi-row operations. Grounded in the
// teacher's services/payment-service/repository package, generalized from
// a single-table repo into the full transactional surface spec.md requires.
package store

import (
	"fmt"
	"time"

	"github.com/novapay/gateway/config"
	"github.com/novapay/gateway/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens a GORM/Postgres connection pool from cfg, mirroring the
// teacher's database.Connect dial-string assembly.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser,
		cfg.PostgresPassword, cfg.PostgresDB, cfg.PostgresSSLMode, cfg.PostgresTimeZone,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("store: underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// Migrate creates/updates the schema for every model the gateway owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Payment{},
		&models.Refund{},
		&models.WebhookSubscription{},
		&models.WebhookEvent{},
		&models.IdempotencyRecord{},
	)
}

package bootstrap

import (
	"fmt"

	"gorm.io/gorm"

	"pwgateway/internal/models"
)

// Migrate ensures the order, subscription and scheduling tables exist.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(allModels()...); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	return nil
}

func allModels() []interface{} {
	return []interface{}{
		// Store entities
		&models.Order{},
		&models.Subscription{},
		&models.Note{},
		// Recurring billing queue
		&models.ScheduledAction{},
	}
}

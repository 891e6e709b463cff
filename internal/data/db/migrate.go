package db

import (
	"gorm.io/gorm"

	"github.com/yungbote/campuspulse-backend/internal/data/kv"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&kv.Row{},
	)
}

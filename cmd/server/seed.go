package main

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/oggyb/galatea/internal/db"
)

// seedIfEmpty loads demo data on a fresh development database.
func seedIfEmpty(database *gorm.DB, log *slog.Logger) {
	var n int64
	if err := database.Model(&db.Companion{}).Count(&n).Error; err != nil {
		log.Error("failed to inspect companions", "err", err)
		return
	}
	if n > 0 {
		return
	}
	if err := db.SeedTestData(database, 0); err != nil {
		log.Error("failed to seed", "err", err)
	}
}

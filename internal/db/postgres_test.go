package db

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/types"
)

// The sqlite development mode has to migrate the same schema postgres does,
// so every model tag must be portable across both dialects.
func TestAutoMigrateAllOnSqlite(t *testing.T) {
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	svc := &PostgresService{db: gdb, log: log}

	if err := svc.AutoMigrateAll(); err != nil {
		t.Fatalf("AutoMigrateAll on sqlite: %v", err)
	}

	rule := &types.RetentionRule{
		ID:         uuid.New(),
		Source:     "chat",
		Type:       "message",
		MaxAgeDays: 90,
	}
	if err := gdb.Create(rule).Error; err != nil {
		t.Fatalf("insert after migrate: %v", err)
	}
	var loaded types.RetentionRule
	if err := gdb.First(&loaded, "id = ?", rule.ID).Error; err != nil {
		t.Fatalf("load after migrate: %v", err)
	}
	if loaded.CreatedAt.IsZero() || time.Since(loaded.CreatedAt) > time.Minute {
		t.Fatalf("created_at not populated: %v", loaded.CreatedAt)
	}
}

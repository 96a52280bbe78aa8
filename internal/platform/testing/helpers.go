package testing

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"vetrina-server-go/internal/platform/config"
	"vetrina-server-go/internal/platform/logging"
	"vetrina-server-go/internal/platform/storage"
)

func SetupTestConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Server.IP = "127.0.0.1"
	cfg.Server.Port = 8080
	cfg.Database.DSN = fmt.Sprintf("file:test-%d?mode=memory&cache=shared", time.Now().UnixNano())
	cfg.Database.ConnectAttempts = 1
	return cfg
}

func SetupTestLogger(t *testing.T) *logging.Logger {
	t.Helper()
	return logging.Nop()
}

// SetupTestDB opens a process-private in-memory database with the full schema.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:test-%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&storage.Session{},
		&storage.RateWindow{},
		&storage.ContentSection{},
		&storage.CatalogItem{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error but got nil")
	}
}

func AssertEqual(t *testing.T, expected, actual interface{}) {
	t.Helper()
	if expected != actual {
		t.Fatalf("expected %v, got %v", expected, actual)
	}
}

package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"vetrina-server-go/internal/platform/storage/migrations"
)

// Options controls database initialisation.
type Options struct {
	DSN string
	// ConnectAttempts bounds the startup ping retry loop. This is the only
	// blocking retry in the system; it gates all other readiness.
	ConnectAttempts int
	ConnectInterval time.Duration
}

// Open initialises the SQLite database, retrying the connectivity check a
// bounded number of times before giving up.
func Open(opts Options) (*gorm.DB, error) {
	dsn := opts.DSN
	if dsn == "" {
		dsn = "data/vetrina.db"
	}
	if dir := filepath.Dir(dsn); dir != "." && dir != "" && !isMemoryDSN(dsn) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	attempts := opts.ConnectAttempts
	if attempts <= 0 {
		attempts = 1
	}
	interval := opts.ConnectInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	var pingErr error
	for i := 0; i < attempts; i++ {
		pingErr = Ping(db)
		if pingErr == nil {
			break
		}
		if i < attempts-1 {
			time.Sleep(interval)
		}
	}
	if pingErr != nil {
		return nil, fmt.Errorf("database unreachable after %d attempts: %w", attempts, pingErr)
	}

	if err := db.AutoMigrate(&Session{}, &RateWindow{}, &ContentSection{}, &CatalogItem{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	manager := NewMigrationManager(db)
	manager.AddMigration(&migrations.Migration001Initial{})
	if err := manager.RunMigrations(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// Ping performs a round-trip against the underlying connection.
func Ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || len(dsn) > 5 && dsn[:5] == "file:"
}

// Session is a server-issued opaque credential row. Rows are immutable
// except for deletion.
type Session struct {
	ID            uint      `gorm:"primaryKey"`
	Token         string    `gorm:"type:varchar(128);uniqueIndex;not null"`
	ClientAddress string    `gorm:"type:varchar(64)"`
	IssuedAt      time.Time `gorm:"not null"`
	ExpiresAt     time.Time `gorm:"index;not null"`
}

// RateWindow is one fixed-window admission counter, keyed by
// (client_address, endpoint_class, window_start).
type RateWindow struct {
	ID            uint   `gorm:"primaryKey"`
	ClientAddress string `gorm:"type:varchar(64);not null;uniqueIndex:idx_rate_window_key"`
	EndpointClass string `gorm:"type:varchar(32);not null;uniqueIndex:idx_rate_window_key"`
	WindowStart   int64  `gorm:"not null;uniqueIndex:idx_rate_window_key;index"`
	Count         int    `gorm:"not null;default:0"`
}

// ContentSection holds one editable content document per fixed key.
type ContentSection struct {
	Key       string         `gorm:"type:varchar(64);primaryKey"`
	Data      datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time
}

// CatalogItem is one product row. SortOrder is dense, ties broken by id.
type CatalogItem struct {
	ID        uint           `gorm:"primaryKey"`
	Slug      string         `gorm:"type:varchar(255);uniqueIndex;not null"`
	SortOrder int            `gorm:"index;not null"`
	Data      datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time
}

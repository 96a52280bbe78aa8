package migrations

import (
	"gorm.io/gorm"
)

// Migration001Initial creates the core tables and their lookup indexes.
type Migration001Initial struct{}

func (m *Migration001Initial) Version() string {
	return "001_initial"
}

func (m *Migration001Initial) Description() string {
	return "Create sessions, rate windows, content sections and catalog items"
}

func (m *Migration001Initial) Up(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			token VARCHAR(128) NOT NULL UNIQUE,
			client_address VARCHAR(64),
			issued_at DATETIME NOT NULL,
			expires_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return err
	}
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at)`).Error; err != nil {
		return err
	}

	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS rate_windows (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			client_address VARCHAR(64) NOT NULL,
			endpoint_class VARCHAR(32) NOT NULL,
			window_start BIGINT NOT NULL,
			count INTEGER NOT NULL DEFAULT 0,
			UNIQUE(client_address, endpoint_class, window_start)
		)
	`).Error; err != nil {
		return err
	}
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_rate_windows_window_start ON rate_windows(window_start)`).Error; err != nil {
		return err
	}

	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS content_sections (
			key VARCHAR(64) PRIMARY KEY,
			data JSON NOT NULL,
			updated_at DATETIME
		)
	`).Error; err != nil {
		return err
	}

	return db.Exec(`
		CREATE TABLE IF NOT EXISTS catalog_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			slug VARCHAR(255) NOT NULL UNIQUE,
			sort_order INTEGER NOT NULL,
			data JSON NOT NULL,
			updated_at DATETIME
		)
	`).Error
}

func (m *Migration001Initial) Down(db *gorm.DB) error {
	for _, table := range []string{"catalog_items", "content_sections", "rate_windows", "sessions"} {
		if err := db.Exec(`DROP TABLE IF EXISTS ` + table).Error; err != nil {
			return err
		}
	}
	return nil
}

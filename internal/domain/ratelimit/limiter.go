package ratelimit

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vetrina-server-go/internal/platform/logging"
	"vetrina-server-go/internal/platform/storage"
)

// Endpoint classes. Admin traffic gets the tighter budget since abuse there
// is more consequential.
const (
	ClassPublic = "public"
	ClassAdmin  = "admin"
)

// Config tunes window size, per-class limits and sweep retention.
type Config struct {
	WindowSize  time.Duration
	PublicLimit int
	AdminLimit  int
	Retention   time.Duration
}

// DefaultConfig matches the documented policy: one-minute windows, public
// traffic capped higher than admin, five minutes of retained history.
func DefaultConfig() Config {
	return Config{
		WindowSize:  time.Minute,
		PublicLimit: 120,
		AdminLimit:  60,
		Retention:   5 * time.Minute,
	}
}

// Limiter is the durable fixed-window admission controller. Counters live in
// the database so horizontally scaled instances share one budget.
type Limiter struct {
	db     *gorm.DB
	cfg    Config
	logger *logging.Logger
	now    func() time.Time

	sweepStop chan struct{}
	sweepOnce sync.Once
}

// New builds a limiter over the shared database handle.
func New(db *gorm.DB, cfg Config, logger *logging.Logger) *Limiter {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = time.Minute
	}
	if cfg.PublicLimit <= 0 {
		cfg.PublicLimit = 120
	}
	if cfg.AdminLimit <= 0 {
		cfg.AdminLimit = 60
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 5 * time.Minute
	}
	return &Limiter{
		db:     db,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Admit counts the request against its fixed window and reports whether it
// is allowed. The upsert-increment and the read-back run in one transaction
// so concurrent requests in the same window never lose counts.
func (l *Limiter) Admit(ctx context.Context, clientAddress, endpointClass string) bool {
	limit := l.limitFor(endpointClass)
	windowStart := l.windowStart()

	var count int
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		window := storage.RateWindow{
			ClientAddress: clientAddress,
			EndpointClass: endpointClass,
			WindowStart:   windowStart,
			Count:         1,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "client_address"},
				{Name: "endpoint_class"},
				{Name: "window_start"},
			},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"count": gorm.Expr("count + 1"),
			}),
		}).Create(&window).Error; err != nil {
			return err
		}

		var current storage.RateWindow
		if err := tx.
			Where("client_address = ? AND endpoint_class = ? AND window_start = ?",
				clientAddress, endpointClass, windowStart).
			Take(&current).Error; err != nil {
			return err
		}
		count = current.Count
		return nil
	})
	if err != nil {
		return l.failOpen(err)
	}

	return count <= limit
}

// failOpen is the single decision point for store failures: availability of
// the storefront wins over strict throttling.
func (l *Limiter) failOpen(err error) bool {
	if l.logger != nil {
		l.logger.Warn("rate limiter store unavailable, admitting request: %v", err)
	}
	return true
}

func (l *Limiter) limitFor(endpointClass string) int {
	if endpointClass == ClassAdmin {
		return l.cfg.AdminLimit
	}
	return l.cfg.PublicLimit
}

// windowStart computes the fixed window start in unix milliseconds.
func (l *Limiter) windowStart() int64 {
	size := l.cfg.WindowSize.Milliseconds()
	nowMs := l.now().UnixMilli()
	return (nowMs / size) * size
}

// Sweep deletes windows past the retention horizon.
func (l *Limiter) Sweep(ctx context.Context) error {
	horizon := l.now().Add(-l.cfg.Retention).UnixMilli()
	return l.db.WithContext(ctx).
		Where("window_start < ?", horizon).
		Delete(&storage.RateWindow{}).
		Error
}

// StartSweep launches the periodic window cleanup.
func (l *Limiter) StartSweep(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	l.sweepStop = make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := l.Sweep(context.Background()); err != nil && l.logger != nil {
					l.logger.Warn("rate window sweep failed: %v", err)
				}
			case <-l.sweepStop:
				return
			}
		}
	}()
}

// StopSweep halts the background cleanup.
func (l *Limiter) StopSweep() {
	if l.sweepStop == nil {
		return
	}
	l.sweepOnce.Do(func() {
		close(l.sweepStop)
	})
}

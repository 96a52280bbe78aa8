package bootstrap

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"vetrina-server-go/internal/domain/auth"
	"vetrina-server-go/internal/domain/content"
	"vetrina-server-go/internal/domain/eventbus"
	"vetrina-server-go/internal/domain/ratelimit"
	"vetrina-server-go/internal/domain/session"
	sessionstore "vetrina-server-go/internal/domain/session/store"
	"vetrina-server-go/internal/platform/config"
	"vetrina-server-go/internal/platform/errors"
	"vetrina-server-go/internal/platform/logging"
	"vetrina-server-go/internal/platform/storage"
	httpserver "vetrina-server-go/internal/transport/http"
)

// App holds the wired service graph.
type App struct {
	cfg    *config.Config
	logger *logging.Logger
	db     *gorm.DB

	sessions *session.Manager
	throttle *auth.Throttle
	gate     *auth.Gate
	limiter  *ratelimit.Limiter
	content  *content.Service
	cache    *content.Cache
	server   *httpserver.Server
}

type initStep struct {
	name string
	run  func(*App) error
}

// initSteps is the startup order. Each step may rely on everything before it.
var initSteps = []initStep{
	{"config", initConfig},
	{"logging", initLogging},
	{"database", initDatabase},
	{"sessions", initSessions},
	{"auth", initAuth},
	{"ratelimit", initRateLimit},
	{"content", initContent},
	{"http", initHTTP},
}

// New builds the application, aborting on the first failed step.
func New() (*App, error) {
	app := &App{}
	for _, step := range initSteps {
		if err := step.run(app); err != nil {
			return nil, errors.Wrap(errors.KindBootstrap, "bootstrap."+step.name, "init failed", err)
		}
		if app.logger != nil {
			app.logger.Debug("bootstrap step %s done", step.name)
		}
	}
	return app, nil
}

func initConfig(app *App) error {
	result, err := config.NewLoader().Load()
	if err != nil {
		return err
	}
	app.cfg = result.Config
	return nil
}

func initLogging(app *App) error {
	logger, err := logging.New(logging.Config{
		Level:    app.cfg.Log.Level,
		Dir:      app.cfg.Log.Dir,
		Filename: app.cfg.Log.File,
	})
	if err != nil {
		return err
	}
	app.logger = logger
	return nil
}

func initDatabase(app *App) error {
	db, err := storage.Open(storage.Options{
		DSN:             app.cfg.Database.DSN,
		ConnectAttempts: app.cfg.Database.ConnectAttempts,
		ConnectInterval: app.cfg.Database.ConnectInterval,
	})
	if err != nil {
		return err
	}
	app.db = db
	return nil
}

func initSessions(app *App) error {
	storeCfg := sessionstore.Config{
		Driver: app.cfg.Server.Auth.Session.Driver,
		TTL:    app.cfg.Server.Auth.SessionTTL,
	}
	if redis := app.cfg.Server.Auth.Session.Redis; redis.Addr != "" {
		storeCfg.Redis = &sessionstore.RedisConfig{
			Addr:     redis.Addr,
			Username: redis.Username,
			Password: redis.Password,
			DB:       redis.DB,
			Prefix:   redis.Prefix,
		}
	}

	st, err := sessionstore.New(storeCfg, sessionstore.Dependencies{SQLiteDB: app.db})
	if err != nil {
		return err
	}

	manager, err := session.NewManager(session.Options{
		Store:           st,
		Logger:          app.logger,
		TTL:             app.cfg.Server.Auth.SessionTTL,
		CleanupInterval: app.cfg.Server.Auth.Session.Cleanup,
	})
	if err != nil {
		return err
	}
	app.sessions = manager
	return nil
}

func initAuth(app *App) error {
	authCfg := app.cfg.Server.Auth
	app.throttle = auth.NewThrottle(auth.ThrottlePolicy{
		MaxFailures: authCfg.Throttle.MaxFailures,
		Lockout:     authCfg.Throttle.Lockout,
		RecordTTL:   authCfg.Throttle.RecordTTL,
	})

	gate, err := auth.NewGate(auth.Options{
		Credentials: auth.Credentials{
			PasswordHash:       authCfg.PasswordHash,
			TOTPSecret:         authCfg.TOTPSecret,
			StaticToken:        authCfg.StaticToken,
			StaticTokenExpires: authCfg.StaticTokenExpires,
		},
		Sessions: app.sessions,
		Throttle: app.throttle,
		Logger:   app.logger,
	})
	if err != nil {
		return err
	}
	if !gate.Configured() {
		app.logger.Warn("admin credentials not configured, logins will fail")
	}
	app.gate = gate
	return nil
}

func initRateLimit(app *App) error {
	app.limiter = ratelimit.New(app.db, ratelimit.Config{
		WindowSize:  app.cfg.RateLimit.WindowSize,
		PublicLimit: app.cfg.RateLimit.PublicLimit,
		AdminLimit:  app.cfg.RateLimit.AdminLimit,
		Retention:   app.cfg.RateLimit.Retention,
	}, app.logger)
	return nil
}

func initContent(app *App) error {
	app.content = content.NewService(content.Options{
		DB:     app.db,
		Bus:    eventbus.Get(),
		Logger: app.logger,
	})
	app.cache = content.NewCache(content.CacheOptions{
		TTL:    app.cfg.Cache.TTL,
		Bus:    eventbus.Get(),
		Logger: app.logger,
	})

	// First boot serves real content immediately.
	return app.content.Seed(context.Background())
}

func initHTTP(app *App) error {
	app.server = httpserver.New(httpserver.Options{
		Config:  app.cfg,
		Logger:  app.logger,
		Gate:    app.gate,
		Limiter: app.limiter,
		Content: app.content,
		Cache:   app.cache,
		DB:      app.db,
	})
	return nil
}

// Run serves until ctx is cancelled, then drains and tears down.
func (app *App) Run(ctx context.Context) error {
	app.throttle.StartSweep(app.cfg.Server.Auth.Throttle.SweepInterval)
	app.limiter.StartSweep(app.cfg.RateLimit.SweepInterval)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(app.server.Start)
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.server.Shutdown(shutdownCtx)
	})

	err := group.Wait()

	app.throttle.StopSweep()
	app.limiter.StopSweep()
	if closeErr := app.sessions.Close(); closeErr != nil {
		app.logger.Warn("session manager close: %v", closeErr)
	}
	_ = app.logger.Close()
	return err
}

// Logger exposes the app logger for the entrypoint.
func (app *App) Logger() *logging.Logger {
	return app.logger
}

package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"vetrina-server-go/internal/domain/auth"
	"vetrina-server-go/internal/domain/content"
	"vetrina-server-go/internal/domain/ratelimit"
	"vetrina-server-go/internal/platform/config"
	"vetrina-server-go/internal/platform/logging"
	"vetrina-server-go/internal/transport/http/webapi"
)

// Options carries everything the HTTP surface needs.
type Options struct {
	Config  *config.Config
	Logger  *logging.Logger
	Gate    *auth.Gate
	Limiter *ratelimit.Limiter
	Content *content.Service
	Cache   *content.Cache
	DB      *gorm.DB
}

// Server wraps the gin engine and the underlying http.Server.
type Server struct {
	engine *gin.Engine
	http   *http.Server
	logger *logging.Logger
}

// NewRouter builds the route tree. Split out from New so tests can drive the
// engine directly through httptest.
func NewRouter(opts Options) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(webapi.RequestLogger(opts.Logger))
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	if dir := opts.Config.Server.StaticDir; dir != "" {
		engine.Use(static.Serve("/", static.LocalFile(dir, true)))
	}

	authHandler := webapi.NewAuthHandler(opts.Gate, opts.Logger)
	contentHandler := webapi.NewContentHandler(opts.Content, opts.Cache, opts.Logger)
	healthHandler := webapi.NewHealthHandler(opts.DB, opts.Cache, opts.Logger)

	api := engine.Group("/api")
	api.GET("/health", healthHandler.Health)

	public := api.Group("", webapi.RateLimit(opts.Limiter, ratelimit.ClassPublic))
	{
		public.POST("/auth/login", authHandler.Login)
		// Logout succeeds even for tokens that are already dead.
		public.POST("/auth/logout", authHandler.Logout)
		public.GET("/auth/verify", authHandler.Verify)
		public.GET("/content", contentHandler.GetContent)
		public.GET("/products", contentHandler.GetProducts)
		public.GET("/products/:slug", contentHandler.GetProduct)
	}

	admin := api.Group("", webapi.RateLimit(opts.Limiter, ratelimit.ClassAdmin), webapi.RequireAuth(opts.Gate))
	{
		admin.PUT("/content/:key", contentHandler.UpdateSection)
		admin.POST("/content/reset", contentHandler.Reset)
		admin.POST("/products", contentHandler.CreateProduct)
		admin.PUT("/products/reorder", contentHandler.Reorder)
		admin.PUT("/products/:id", contentHandler.UpdateProduct)
		admin.DELETE("/products/:id", contentHandler.DeleteProduct)
	}

	return engine
}

// New builds a Server listening on the configured address.
func New(opts Options) *Server {
	engine := NewRouter(opts)
	addr := fmt.Sprintf("%s:%d", opts.Config.Server.IP, opts.Config.Server.Port)
	return &Server{
		engine: engine,
		logger: opts.Logger,
		http: &http.Server{
			Addr:              addr,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start blocks serving requests until Shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.Info("http server listening on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

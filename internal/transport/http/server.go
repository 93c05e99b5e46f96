package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/dsolution-crm/internal/auth"
	"github.com/vovakirdan/dsolution-crm/internal/config"
	"github.com/vovakirdan/dsolution-crm/internal/core"
	"github.com/vovakirdan/dsolution-crm/internal/service/catalog"
	"github.com/vovakirdan/dsolution-crm/internal/service/orders"
)

// Deps are the services the HTTP layer dispatches to.
type Deps struct {
	Hub     *core.Hub
	Auth    *auth.Service
	Catalog *catalog.Service
	Orders  *orders.Service
}

// NewServer builds an HTTP server with REST API, WebSocket and metrics routes.
func NewServer(deps Deps, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(MetricsMiddleware())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if cfg.UploadDir != "" && cfg.UploadBaseURL != "" {
		router.Static(cfg.UploadBaseURL, cfg.UploadDir)
	}

	authHandlers := NewAuthHandlers(deps.Auth, logger)
	catalogHandlers := NewCatalogHandlers(deps.Catalog, logger)
	orderHandlers := NewOrderHandlers(deps.Orders, cfg.MaxUploadBytes, logger)
	messageHandlers := NewMessageHandlers(deps.Hub, logger)

	api := router.Group("/api")
	{
		// Public endpoints
		api.POST("/register", authHandlers.Register)
		api.POST("/login", authHandlers.Login)
		api.GET("/services", catalogHandlers.List)

		// Protected endpoints
		protected := api.Group("")
		protected.Use(AuthMiddleware(deps.Auth, logger))
		{
			protected.POST("/orders", orderHandlers.Create)
			protected.GET("/orders", orderHandlers.List)
			protected.GET("/orders/:id", orderHandlers.Get)
			protected.PATCH("/orders/:id/status", RequireStaff(), orderHandlers.UpdateStatus)

			protected.GET("/messages/:userId", messageHandlers.History)
		}
	}

	// The browser client is served from another origin.
	handler := cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	})(router)

	// The upgrade needs the raw ResponseWriter; gin refuses to hijack once the 101 is written.
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(deps.Hub, deps.Auth, cfg, logger))
	mux.Handle("/", handler)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}

package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"LiveSupport/Config"
	"LiveSupport/Controllers"
	"LiveSupport/Metrics"
	"LiveSupport/Middleware"
	"LiveSupport/Services"
	"LiveSupport/Sockets"
	"LiveSupport/Storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := Config.Load()

	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := newStore(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to store")
	}

	metrics := Metrics.Default()

	hub := Sockets.NewHub(logger, metrics)
	capacity := Services.NewCapacityManager(store, logger, cfg.AssignRetries)
	sessions := Services.NewSessionService(store, capacity, logger, metrics)
	presence := Services.NewPresenceCoordinator(cfg.TypingTTL(), hub, logger)
	tickets := Services.NewTicketService(store, &Services.LogNotifier{Logger: logger}, logger, metrics)

	wsHandler := Sockets.NewHandler(hub, sessions, presence, store, logger, metrics)
	chatCtrl := Controllers.NewChatController(sessions, hub, logger)
	ticketCtrl := Controllers.NewTicketController(tickets, logger)
	agentCtrl := Controllers.NewAgentController(store, logger, cfg.MaxSessions)
	healthCtrl := Controllers.NewHealthController(store)

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	requireAgent := Middleware.RequireAgent(cfg.JWTSecret)

	api := router.Group("/api")
	{
		api.POST("/chat/start", chatCtrl.StartChat)
		api.POST("/chat/end/:sessionId", chatCtrl.EndChat)
		api.GET("/chat/messages", chatCtrl.GetMessages)
		api.GET("/chat/session/:sessionId", chatCtrl.GetSession)

		api.POST("/tickets", ticketCtrl.CreateTicket)
		api.GET("/tickets", requireAgent, ticketCtrl.GetTickets)
		api.PATCH("/tickets/:id/status", requireAgent, ticketCtrl.UpdateTicketStatus)

		api.POST("/agents", agentCtrl.RegisterAgent)
		api.GET("/agents/dashboard", requireAgent, agentCtrl.Dashboard)
	}

	router.GET("/ws", wsHandler.ServeWS)
	router.GET("/health", healthCtrl.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithField("addr", server.Addr).Info("support broker listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace())
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("shutdown incomplete")
	}
}

func newStore(ctx context.Context, cfg *Config.Config, logger *logrus.Logger) (Storage.Store, error) {
	if cfg.StoreDriver == "memory" {
		logger.Warn("using in-memory store, nothing will survive a restart")
		return Storage.NewMemoryStore(), nil
	}
	connectCtx, cancel := context.WithTimeout(ctx, cfg.MongoTimeout())
	defer cancel()
	return Storage.NewMongoStore(connectCtx, cfg, logger)
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
			"remote":   c.ClientIP(),
		}).Debug("HTTP request processed")
	}
}

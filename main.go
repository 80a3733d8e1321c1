package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"chat-backend/internal/auth"
	"chat-backend/internal/cascade"
	"chat-backend/internal/config"
	"chat-backend/internal/db"
	"chat-backend/internal/handlers"
	"chat-backend/internal/middleware"
	"chat-backend/internal/observability"
	"chat-backend/internal/rabbitmq"
	"chat-backend/internal/repositories"
	"chat-backend/internal/telemetry"
	"chat-backend/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialect, err := db.ParseDialect(cfg.DBDriver)
	if err != nil {
		log.Fatalf("invalid DB_DRIVER: %v", err)
	}
	database, err := db.Connect(ctx, dialect, cfg.DBDSN, db.MigrateOptions{Polls: cfg.EnablePolls})
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	tp, err := telemetry.NewTracerProvider(ctx, cfg.ServiceName, cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Printf("tracer shutdown failed: %v", err)
		}
	}()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	log.Printf("event publisher mode=%s reason=%q", rabbitmq.PublisherMode(publisher), rabbitmq.PublisherNoopReason(publisher))
	observability.SetPublisher(publisher)
	audit := telemetry.NewAuditEmitter(publisher, "audit.events", cfg.ServiceName, cfg.Environment)

	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		log.Fatalf("invalid JWT_SECRET: %v", err)
	}

	userRepo := repositories.NewUserRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	groupRepo := repositories.NewGroupRepo(database)
	groupMessageRepo := repositories.NewGroupMessageRepo(database)

	hub := ws.NewHub()
	engine := cascade.NewEngine(database, dialect)

	chatHandler := handlers.NewChatHandler(userRepo, messageRepo, hub, audit)
	groupHandler := handlers.NewGroupHandler(groupRepo, groupMessageRepo, userRepo, hub, audit)
	accountHandler := handlers.NewAccountHandler(engine, hub, audit, cfg.AvatarDir, cfg.CascadeChunkSize)

	directWS := ws.NewDirectWebSocketHandler(hub, tokens)
	groupWS := ws.NewGroupWebSocketHandler(hub, groupRepo, tokens)

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(tokens)

	router.GET("/healthz", func(c *gin.Context) {
		if err := database.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/messages", authMiddleware, chatHandler.SendMessage)
	router.GET("/messages/:user_id", authMiddleware, chatHandler.GetConversation)
	router.DELETE("/messages/:message_id", authMiddleware, chatHandler.DeleteMessageForAll)

	router.POST("/groups", authMiddleware, groupHandler.CreateGroup)
	router.GET("/groups", authMiddleware, groupHandler.ListGroups)
	router.GET("/groups/:group_id/messages", authMiddleware, groupHandler.GetGroupMessages)
	router.POST("/groups/:group_id/messages", authMiddleware, groupHandler.PostGroupMessage)
	router.DELETE("/groups/:group_id/messages/:message_id", authMiddleware, groupHandler.DeleteGroupMessageForAll)
	router.POST("/groups/:group_id/messages/:message_id/read", authMiddleware, groupHandler.MarkGroupRead)
	router.GET("/groups/:group_id/unread", authMiddleware, groupHandler.GetGroupUnread)

	router.DELETE("/users/me", authMiddleware, accountHandler.DeleteMe)

	router.GET("/ws/direct", directWS.Handle)
	router.GET("/ws/groups/:group_id", groupWS.Handle)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("chat backend listening port=%s driver=%s polls=%t", cfg.Port, dialect, cfg.EnablePolls)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server error: %v", err)
		}
	case <-ctx.Done():
		log.Printf("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("graceful shutdown failed: %v", err)
		}
	}
}

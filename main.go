package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"dm-service/internal/auth"
	"dm-service/internal/config"
	"dm-service/internal/db"
	"dm-service/internal/handlers"
	"dm-service/internal/middleware"
	"dm-service/internal/observability"
	"dm-service/internal/presence"
	"dm-service/internal/push"
	"dm-service/internal/repositories"
	"dm-service/internal/ws"
)

const serviceName = "dm-service"

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing := observability.InitTracing(ctx, serviceName, cfg.OTLPEndpoint)
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	userRepo := repositories.NewUserRepo(database)
	chatRepo := repositories.NewChatRepo(database)
	messageRepo := repositories.NewMessageRepo(database)

	tracker := presence.NewTracker(userRepo)
	go tracker.Run(ctx, time.Duration(cfg.PresenceFlushSeconds)*time.Second)

	publisher := push.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	log.Printf("push publisher mode=%s", push.PublisherMode(publisher))
	notifier := push.NewNotifier(publisher, serviceName, cfg.Environment)

	authn := auth.NewAuthenticator(userRepo, cfg.JWTSecret)
	hub := ws.NewHub()
	wsHandler := ws.NewHandler(&ws.Deps{
		Hub:      hub,
		Users:    userRepo,
		Chats:    chatRepo,
		Messages: messageRepo,
		Presence: tracker,
		Notifier: notifier,
	}, authn)

	tokenTTL := time.Duration(cfg.TokenTTLMinutes) * time.Minute
	authHandler := handlers.NewAuthHandler(userRepo, cfg.JWTSecret, tokenTTL)
	userHandler := handlers.NewUserHandler(userRepo, tracker)
	chatHandler := handlers.NewChatHandler(chatRepo, messageRepo, userRepo, tracker)
	messageHandler := handlers.NewMessageHandler(chatRepo, messageRepo, userRepo)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(observability.HTTPMetricsMiddleware())
	router.Use(otelgin.Middleware(serviceName))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	router.POST("/auth/register", authHandler.Register)
	router.POST("/auth/login", authHandler.Login)

	authMiddleware := middleware.AuthMiddleware(authn)

	users := router.Group("/users", authMiddleware)
	users.GET("/profile", userHandler.GetProfile)
	users.PUT("/profile", userHandler.UpdateProfile)
	users.GET("/search", userHandler.SearchUsers)
	users.POST("/friend-request", userHandler.SendFriendRequest)
	users.POST("/accept-friend", userHandler.AcceptFriend)
	users.POST("/reject-friend", userHandler.RejectFriend)
	users.GET("/friends", userHandler.ListFriends)

	chats := router.Group("/chats", authMiddleware)
	chats.GET("", chatHandler.ListChats)
	chats.POST("/create", chatHandler.CreateChat)
	chats.GET("/:chat_id", chatHandler.GetChat)
	chats.GET("/:chat_id/messages", messageHandler.GetChatMessages)

	messages := router.Group("/messages", authMiddleware)
	messages.POST("", messageHandler.SendMessage)
	messages.PUT("/:message_id", messageHandler.EditMessage)
	messages.DELETE("/:message_id", messageHandler.DeleteMessage)

	router.GET("/ws", wsHandler.Handle)

	handlers.RegisterDebugRoutes(router, notifier, cfg.DebugRoutes)

	log.Printf("listening on :%s env=%s", cfg.Port, cfg.Environment)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

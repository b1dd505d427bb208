package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lifeshare/internal/config"
	"lifeshare/internal/handlers/apiserver"
	appKafka "lifeshare/internal/kafka"
	kafkaHandlers "lifeshare/internal/kafka/handlers"
	"lifeshare/internal/middleware"
	appRedis "lifeshare/internal/redis"
	"lifeshare/internal/services"
	"lifeshare/internal/storage"
	"lifeshare/internal/websocket"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	redisDriver "github.com/redis/go-redis/v9"
)

func main() {
	// 1. Load configuration
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Printf("%s %s starting", cfg.AppName, cfg.AppVersion)

	// 2. Initialize the database connection
	db, err := storage.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	if err := storage.AutoMigrateTables(db); err != nil {
		log.Fatalf("Failed to migrate database tables: %v", err)
	}
	log.Println("Database connection established and tables migrated.")

	// 3. Initialize the Redis client for the token blacklist
	redisClient := redisDriver.NewClient(&redisDriver.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	tokenBlacklist := appRedis.NewRedisTokenBlacklist(redisClient)
	log.Println("Connected to Redis.")

	// 4. Initialize repositories
	userRepo := storage.NewGormUserRepository(db)
	resourceRepo := storage.NewGormResourceRepository(db)
	requestRepo := storage.NewGormRequestRepository(db)
	convoRepo := storage.NewGormConversationRepository(db)
	messageRepo := storage.NewGormMessageRepository(db)

	// 5. Initialize the Kafka producer
	producer, err := appKafka.NewConfluentKafkaProducer(cfg.Kafka)
	if err != nil {
		log.Fatalf("Failed to create Kafka producer: %v", err)
	}
	defer producer.Close()
	log.Println("Kafka producer initialized.")

	// 6. Initialize services
	authService := services.NewAuthService(userRepo, cfg)
	resourceService := services.NewResourceService(resourceRepo)
	requestService := services.NewRequestService(requestRepo, resourceRepo, convoRepo, producer, cfg.Kafka)
	conversationService := services.NewConversationService(convoRepo, messageRepo, producer, cfg.Kafka)

	// 7. Start the realtime hub
	hub := websocket.NewHub()
	go hub.Run()

	// 8. Start the Kafka consumer feeding the hub
	consumer, err := appKafka.NewConfluentKafkaConsumer(cfg.Kafka)
	if err != nil {
		log.Fatalf("Failed to create Kafka consumer: %v", err)
	}
	defer consumer.Close()

	consumerCtx, cancelConsumer := context.WithCancel(context.Background())
	defer cancelConsumer()

	eventLogic := kafkaHandlers.NewEventConsumerLogic(hub, cfg.Kafka)
	go func() {
		topics := []string{cfg.Kafka.MessagesTopic, cfg.Kafka.RequestEventsTopic}
		log.Printf("Kafka consumer starting, topics: %v, group: %s", topics, cfg.Kafka.ConsumerGroup)
		err := consumer.Consume(consumerCtx, topics, cfg.Kafka.ConsumerGroup, eventLogic.HandleEvent)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Kafka consumer error: %v", err)
		}
		log.Println("Kafka consumer stopped.")
	}()

	// 9. Initialize handlers
	authHandler := apiserver.NewAuthHandler(authService, tokenBlacklist)
	resourceHandler := apiserver.NewResourceHandler(resourceService)
	requestHandler := apiserver.NewRequestHandler(requestService)
	convoHandler := apiserver.NewConversationHandler(conversationService)
	wsHandler := apiserver.NewWebSocketHandler(hub, conversationService, tokenBlacklist, cfg.Auth.JWTSecretKey, cfg.WebSocket)

	// 10. Set up routes
	r := mux.NewRouter()

	authRouter := r.PathPrefix("/auth").Subrouter()
	authRouter.HandleFunc("/register", authHandler.Register).Methods(http.MethodPost)
	authRouter.HandleFunc("/login", authHandler.Login).Methods(http.MethodPost)

	authMW := middleware.AuthMiddleware(cfg.Auth.JWTSecretKey, tokenBlacklist)

	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(authMW)

	apiRouter.HandleFunc("/auth/logout", authHandler.LogoutHandler).Methods(http.MethodPost)

	apiRouter.HandleFunc("/resources", resourceHandler.CreateResource).Methods(http.MethodPost)
	apiRouter.HandleFunc("/resources", resourceHandler.ListAvailableResources).Methods(http.MethodGet)
	apiRouter.HandleFunc("/resources/mine", resourceHandler.ListMyResources).Methods(http.MethodGet)
	apiRouter.HandleFunc("/resources/{resourceId:[0-9]+}", resourceHandler.UpdateResource).Methods(http.MethodPut)
	apiRouter.HandleFunc("/resources/{resourceId:[0-9]+}", resourceHandler.DeleteResource).Methods(http.MethodDelete)

	apiRouter.HandleFunc("/requests", requestHandler.CreateRequest).Methods(http.MethodPost)
	apiRouter.HandleFunc("/requests/donor", requestHandler.ListIncomingRequests).Methods(http.MethodGet)
	apiRouter.HandleFunc("/requests/my", requestHandler.ListMyRequests).Methods(http.MethodGet)
	apiRouter.HandleFunc("/requests/{requestId:[0-9]+}", requestHandler.DecideRequest).Methods(http.MethodPatch)

	apiRouter.HandleFunc("/conversations", convoHandler.ListConversations).Methods(http.MethodGet)
	apiRouter.HandleFunc("/conversations/{conversationId:[0-9]+}", convoHandler.GetConversation).Methods(http.MethodGet)
	apiRouter.HandleFunc("/conversations/{conversationId:[0-9]+}/messages", convoHandler.SendMessage).Methods(http.MethodPost)

	// WebSocket endpoint authenticates via token query parameter.
	r.HandleFunc(cfg.Server.WebSocketPath, wsHandler.ServeWS).Methods(http.MethodGet)

	// 11. Wrap the router in CORS middleware
	corsOptions := []handlers.CORSOption{
		handlers.AllowedOrigins(cfg.Server.CORS.AllowedOrigins),
		handlers.AllowedMethods(cfg.Server.CORS.AllowedMethods),
		handlers.AllowedHeaders(cfg.Server.CORS.AllowedHeaders),
		handlers.ExposedHeaders(cfg.Server.CORS.ExposedHeaders),
		handlers.MaxAge(cfg.Server.CORS.MaxAge),
	}
	if cfg.Server.CORS.AllowCredentials {
		corsOptions = append(corsOptions, handlers.AllowCredentials())
	}
	corsHandler := handlers.CORS(corsOptions...)(r)

	// 12. Start the HTTP server with graceful shutdown
	serverAddr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:           serverAddr,
		Handler:        corsHandler,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		log.Printf("Server listening on %s", serverAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutdown signal received, stopping server...")

	cancelConsumer()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shut down: %v", err)
	}

	log.Println("Server stopped.")
}

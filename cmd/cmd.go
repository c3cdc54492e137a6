package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tree-growth-backend/internal/config"
	"tree-growth-backend/internal/handlers"
	"tree-growth-backend/internal/middleware"
	"tree-growth-backend/internal/repository"
	"tree-growth-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	// Resolve the zone that anchors all daily quotas
	loc := time.UTC
	if cfg.App.Timezone != "" {
		loc, err = time.LoadLocation(cfg.App.Timezone)
		if err != nil {
			log.Fatal().Err(err).Str("timezone", cfg.App.Timezone).Msg("Invalid timezone")
		}
	}

	// Connect to database
	db, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connection established")

	if err := repository.EnsureSchema(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply schema")
	}

	// Initialize repositories
	store := repository.NewPostgresStore(db)
	userRepo := repository.NewUserRepository(db)
	friendRepo := repository.NewFriendRepository(db)

	// Initialize services
	userService := services.NewUserService(userRepo, cfg.JWT.Secret)
	trackerService := services.NewTrackerService(store, loc)
	growthService := services.NewGrowthService(store)
	giftingService := services.NewGiftingService(store, friendRepo, loc)
	friendService := services.NewFriendService(friendRepo, userRepo)
	pushService, err := services.NewPushService(
		cfg.APNs.CertPath,
		cfg.APNs.CertPassword,
		cfg.APNs.Topic,
		cfg.APNs.Production,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create push service")
	}
	if !pushService.Enabled() {
		log.Info().Msg("APNs certificate not configured, push notifications disabled")
	}
	wsHub := services.NewWSHub()

	// Initialize handlers
	userHandler := handlers.NewUserHandler(userService)
	taskHandler := handlers.NewTaskHandler(trackerService)
	growthHandler := handlers.NewGrowthHandler(growthService)
	giftingHandler := handlers.NewGiftingHandler(giftingService, trackerService, userService, wsHub, pushService)
	friendHandler := handlers.NewFriendHandler(friendService, userService, wsHub, pushService)
	wsHandler := handlers.NewWebSocketHandler(wsHub, userService, growthService)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/users", userHandler.CreateUser)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(userService))
			r.Put("/users/push-token", userHandler.UpdatePushToken)

			r.Get("/tasks", taskHandler.ListDay)
			r.Post("/tasks/{task_id}/complete", taskHandler.Complete)
			r.Post("/tasks/{task_id}/claim", taskHandler.Claim)

			r.Get("/tree", growthHandler.GetTree)
			r.Post("/tree/feed", growthHandler.Feed)
			r.Post("/tree/upgrade", growthHandler.Upgrade)
			r.Post("/tree/level/force", growthHandler.ForceLevelUp)
			r.Post("/tree/level/reset", growthHandler.ResetLevel)

			r.Get("/friends", friendHandler.List)
			r.Post("/friends/requests", friendHandler.SendRequest)
			r.Get("/friends/requests", friendHandler.ListRequests)
			r.Post("/friends/requests/{request_id}/accept", friendHandler.AcceptRequest)
			r.Post("/friends/requests/{request_id}/reject", friendHandler.RejectRequest)
			r.Delete("/friends/{friend_id}", friendHandler.Remove)

			r.Post("/friends/gift-all", giftingHandler.GiftAll)
			r.Post("/friends/claim-all", giftingHandler.ClaimAll)
			r.Post("/friends/{friend_id}/gift", giftingHandler.Gift)
			r.Post("/friends/{friend_id}/claim", giftingHandler.ClaimGift)
		})
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

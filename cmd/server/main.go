package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/expirycare/expirycare/internal/config"
	"github.com/expirycare/expirycare/internal/database"
	"github.com/expirycare/expirycare/internal/handlers"
	"github.com/expirycare/expirycare/internal/jobs"
	"github.com/expirycare/expirycare/internal/metrics"
	"github.com/expirycare/expirycare/internal/repository"
	cronjobs "github.com/expirycare/expirycare/internal/scheduler"
	"github.com/expirycare/expirycare/internal/services"
	"github.com/expirycare/expirycare/pkg/email"
	"github.com/expirycare/expirycare/pkg/logger"
	"github.com/expirycare/expirycare/pkg/middleware"
	"github.com/gorilla/mux"
	"github.com/jmhodges/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
)

func main() {
	// Load configuration from .env file
	cfg := config.LoadConfig()

	logger.InitLogger()
	logger.Log.Info("Logger initialized")

	// Connect to MongoDB
	db, err := database.ConnectDB(cfg)
	if err != nil {
		log.Fatalf("Database connection error: %v", err)
	}

	// Redis backs the shared rate limiter
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	// --- Repositories ---
	userRepo := repository.NewUserRepository(db)
	itemRepo := repository.NewItemRepository(db)
	sendLogRepo := repository.NewSendLogRepository(db)

	// --- Services ---
	userService := services.NewUserService(userRepo)
	itemService := services.NewItemService(itemRepo, userRepo)

	// --- Reminder batch ---
	reminderMetrics := metrics.NewReminderMetrics(prometheus.DefaultRegisterer)
	sender := email.NewSMTPSender(cfg)
	runner := jobs.NewReminderRunner(itemRepo, userRepo, sendLogRepo, sender, reminderMetrics, clock.New())

	if _, err := cronjobs.StartReminderCron(runner, cfg.ReminderCronSpec, cfg.BatchTimeout); err != nil {
		log.Fatalf("Failed to start reminder cron: %v", err)
	}

	// --- Handlers ---
	userHandler := handlers.NewUserHandler(userService, cfg)
	itemHandler := handlers.NewItemHandler(itemService)
	reminderHandler := handlers.NewReminderHandler(runner, cfg.BatchTimeout)

	// Initialize Gorilla Mux router
	router := mux.NewRouter()

	rateLimit := middleware.RateLimitMiddleware(rdb, cfg.RateLimitPerMinute, time.Minute)

	// Public user routes, rate limited against credential abuse
	router.Handle("/users/register", rateLimit(http.HandlerFunc(userHandler.RegisterUserHandler))).Methods("POST")
	router.Handle("/users/login", rateLimit(http.HandlerFunc(userHandler.LoginUserHandler))).Methods("POST")

	// Protected user routes
	protectedUserRoutes := router.PathPrefix("/users").Subrouter()
	protectedUserRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	protectedUserRoutes.HandleFunc("/family", userHandler.UpdateFamilyViewersHandler).Methods("PUT")
	protectedUserRoutes.HandleFunc("/{id}", userHandler.GetUserHandler).Methods("GET")
	protectedUserRoutes.HandleFunc("/{id}", userHandler.UpdateUserHandler).Methods("PATCH")

	// Item routes
	protectedItemRoutes := router.PathPrefix("/items").Subrouter()
	protectedItemRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	protectedItemRoutes.HandleFunc("", itemHandler.CreateItemHandler).Methods("POST")
	protectedItemRoutes.HandleFunc("", itemHandler.GetItemsHandler).Methods("GET")
	protectedItemRoutes.HandleFunc("/summary", itemHandler.GetSummaryHandler).Methods("GET")
	protectedItemRoutes.HandleFunc("/{id}", itemHandler.GetItemHandler).Methods("GET")
	protectedItemRoutes.HandleFunc("/{id}", itemHandler.UpdateItemHandler).Methods("PUT")
	protectedItemRoutes.HandleFunc("/{id}", itemHandler.DeleteItemHandler).Methods("DELETE")

	// Reminder trigger: the scheduled job and manual runs share one path
	// and one due-calculation policy.
	reminderRoutes := router.PathPrefix("/reminders").Subrouter()
	reminderRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	reminderRoutes.Use(middleware.RequireRole("admin"))
	reminderRoutes.HandleFunc("/run", reminderHandler.RunRemindersHandler).Methods("POST")

	// AI extraction, only when a provider key is configured
	if extractService, err := services.NewExtractService(cfg.DeepseekAPIKey, cfg.DeepseekModel); err != nil {
		logger.Log.WithError(err).Warn("Extraction service disabled")
	} else {
		extractHandler := handlers.NewExtractHandler(extractService)
		extractRoutes := router.PathPrefix("/extract").Subrouter()
		extractRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
		extractRoutes.Use(rateLimit)
		extractRoutes.HandleFunc("", extractHandler.ExtractFieldsHandler).Methods("POST")
	}

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	}).Methods("GET")

	// Apply middleware for logging
	router.Use(middleware.LoggingMiddleware)

	port := cfg.Port
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"}, // adjust to frontend origin
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := c.Handler(router)

	fmt.Printf("Server running on port %s\n", port)
	log.Fatal(http.ListenAndServe(":"+port, handler))
}

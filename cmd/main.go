// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bookdesk/internal/config"
	"bookdesk/internal/database"
	"bookdesk/internal/handler"
	"bookdesk/internal/repository"
	"bookdesk/internal/service"
)

const migrationsDir = "migrations"

func main() {
	log := newLogger()

	cfg, err := config.Load()
	if err != nil {
		log.Error("config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	if err := database.Migrate(cfg.DB, migrationsDir); err != nil {
		log.Error("migrations", "error", err)
		os.Exit(1)
	}

	pool, err := database.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Error("database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	log.Info("connected to postgres", "host", cfg.DB.Host, "database", cfg.DB.Name)

	// Wire up layers. Repositories and services are constructed once and
	// passed explicitly; there is exactly one owner of the pool.
	db := repository.NewDB(pool)
	memberRepo := repository.NewMemberRepository(pool, log)
	inventoryRepo := repository.NewInventoryRepository(pool, log)
	bookingRepo := repository.NewBookingRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	bookingSvc := service.NewBookingService(db, memberRepo, inventoryRepo, bookingRepo, cfg.MaxBookings, log)
	memberSvc := service.NewMemberService(memberRepo, log)
	inventorySvc := service.NewInventoryService(inventoryRepo, log)
	authSvc := service.NewAuthService(userRepo, []byte(cfg.JWTSecret), cfg.TokenTTL(), log)

	h := handler.NewHandler(bookingSvc, memberSvc, inventorySvc, authSvc)

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(handler.RequestLogger(log))
	r.Use(handler.CORS)

	r.Get("/health", handler.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/login", h.Login)
	r.Post("/create", h.CreateAccount)

	r.Group(func(r chi.Router) {
		r.Use(handler.RequireAuth(authSvc))
		r.Post("/book", h.Book)
		r.Post("/cancel", h.Cancel)
		r.Get("/all", h.ListBookings)
		r.Get("/all-members", h.ListMembers)
		r.Post("/upload-members", h.UploadMembers)
	})

	// Inventory endpoints carry no authentication. Harden here if the
	// service is ever exposed beyond the internal network.
	r.Get("/view-all", h.ListInventory)
	r.Post("/upload-inventories", h.UploadInventory)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Run in a background goroutine so we can listen for shutdown signals.
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

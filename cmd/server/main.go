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

	"ppcp-backend/internal/auth"
	"ppcp-backend/internal/backup"
	"ppcp-backend/internal/cache"
	"ppcp-backend/internal/config"
	"ppcp-backend/internal/db"
	"ppcp-backend/internal/handlers"
	"ppcp-backend/internal/health"
	h "ppcp-backend/internal/http"
	"ppcp-backend/internal/middleware"
	"ppcp-backend/internal/repositories"
	"ppcp-backend/internal/services"
	"ppcp-backend/internal/timeutil"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()
	timeutil.SetLocation(cfg.App.Timezone)

	ctx := context.Background()

	// Redis is optional; every cache helper degrades to a no-op without it
	if err := cache.Init(cache.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}); err != nil {
		log.Printf("[Redis] Not available, caching disabled: %v", err)
	} else if cache.Enabled() {
		log.Printf("[Redis] Connected to %s", cfg.Redis.Addr)
	}
	defer cache.Close()

	state, err := db.OpenState(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer state.Close()

	passwordHash, err := auth.ResolvePasswordHash(cfg.Auth.PasswordHash, cfg.Auth.Password)
	if err != nil {
		log.Fatalf("Failed to prepare credentials: %v", err)
	}

	// Services
	store := repositories.NewEntryStore(state.Repo)
	entryService := services.NewEntryService(store)
	reportService := services.NewReportService(store)
	jwtManager := auth.NewJWTManager(cfg)
	authService := services.NewAuthService(cfg.Auth.Username, passwordHash, jwtManager)

	if entries, err := entryService.All(ctx); err != nil {
		log.Fatalf("Failed to read entry collection: %v", err)
	} else {
		log.Printf("[Entries] Loaded %d entries", len(entries))
	}

	// Remote backups
	var backupHandler *handlers.BackupHandler
	if cfg.Backup.Remote.Enabled {
		remote, err := backup.NewRemoteStore(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to configure remote backups: %v", err)
		}
		scheduler := backup.NewScheduler(entryService, remote, cfg.BackupInterval())
		scheduler.Start()
		defer scheduler.Stop()
		backupHandler = handlers.NewBackupHandler(entryService, remote, scheduler)
	} else {
		log.Println("[R2 Backup] Remote backups disabled")
	}

	// Health
	var dbPinger, cachePinger health.Pinger
	if state.Pool != nil {
		dbPinger = state.Pool
	}
	if cache.Enabled() {
		cachePinger = health.PingFunc(func(ctx context.Context) error {
			return cache.GetClient().Ping(ctx).Err()
		})
	}
	healthChecker := health.NewHealthChecker(dbPinger, cachePinger)

	router := h.NewRouter(
		handlers.NewAuthHandler(authService),
		handlers.NewEntryHandler(entryService),
		handlers.NewInterchangeHandler(entryService),
		handlers.NewReportHandler(reportService),
		backupHandler,
		handlers.NewHealthHandler(healthChecker),
		middleware.NewAuthMiddleware(jwtManager),
	)

	apiLogging := middleware.NewAPILoggingMiddleware(nil)
	defer apiLogging.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           h.Wrap(router, middleware.NewCORS(cfg), apiLogging),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server running on %s (storage: %s)", srv.Addr, cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
}

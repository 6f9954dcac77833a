package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"bold-client-go/config"
	"bold-client-go/internal/handler"
	"bold-client-go/internal/service"
)

func main() {
	// .env is optional
	envErr := godotenv.Load()

	cfg, err := config.LoadFile("")
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(cfg.NewLogger(nil))
	if envErr != nil {
		slog.Info("No .env file found, using environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	payloadCache := service.OpenCache(ctx, cfg)

	archiver, err := service.OpenArchiver(ctx, cfg)
	if err != nil {
		slog.Warn("Trace archives disabled", "error", err)
		archiver = nil
	}

	boldService := service.NewBoldService(service.NewClient(cfg), payloadCache, archiver, cfg.CacheTTL)
	boldHandler := handler.NewBoldHandler(boldService)

	mux := http.NewServeMux()
	boldHandler.Register(mux)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           corsMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("Server starting", "port", cfg.Port, "bold", cfg.BaseURL)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ashverma/pledge/internal/backup"
	"github.com/ashverma/pledge/internal/database"
	"github.com/ashverma/pledge/internal/email"
	"github.com/ashverma/pledge/internal/logging"
	"github.com/ashverma/pledge/internal/motivation"
	"github.com/ashverma/pledge/internal/server"
)

func main() {
	logger := logging.Setup(os.Getenv("PLEDGE_LOG_LEVEL"), os.Getenv("PLEDGE_LOG_FORMAT"))

	port := envDefault("PLEDGE_PORT", "8080")
	dbPath := envDefault("PLEDGE_DB_PATH", "pledge.db")
	baseURL := envDefault("PLEDGE_BASE_URL", "http://localhost:"+port)

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("open database", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	emailClient := email.NewClient(
		os.Getenv("PLEDGE_POSTMARK_TOKEN"),
		os.Getenv("PLEDGE_EMAIL_FROM"),
		baseURL,
	)

	restart := make(chan struct{}, 1)

	cfg := server.Config{
		Restart: func() {
			select {
			case restart <- struct{}{}:
			default:
			}
		},
		VAPIDPublicKey:  os.Getenv("PLEDGE_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("PLEDGE_VAPID_PRIVATE_KEY"),
		PushSubscriber:  os.Getenv("PLEDGE_PUSH_SUBSCRIBER"),
		Backup: backup.Config{
			S3: backup.S3Config{
				Endpoint:  os.Getenv("PLEDGE_S3_ENDPOINT"),
				Bucket:    os.Getenv("PLEDGE_S3_BUCKET"),
				Region:    envDefault("PLEDGE_S3_REGION", "auto"),
				AccessKey: os.Getenv("PLEDGE_S3_ACCESS_KEY"),
				SecretKey: os.Getenv("PLEDGE_S3_SECRET_KEY"),
			},
			DBPath:        dbPath,
			Passphrase:    os.Getenv("PLEDGE_BACKUP_PASSPHRASE"),
			ScheduleHour:  envInt("PLEDGE_BACKUP_HOUR", 3),
			RetentionDays: envInt("PLEDGE_BACKUP_RETENTION_DAYS", 30),
		},
		Motivation: motivation.Config{
			APIKey: os.Getenv("PLEDGE_GEMINI_API_KEY"),
			Model:  os.Getenv("PLEDGE_GEMINI_MODEL"),
		},
	}

	srv := server.New(db, emailClient, cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv.PushScheduler().Start(ctx)
	defer srv.PushScheduler().Stop()

	srv.BackupManager().Start(ctx)
	defer srv.BackupManager().Stop()

	// Hourly housekeeping: expired sessions and stale rate-limit entries.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(); err != nil {
					logger.Error("delete expired sessions", "error", err)
				} else if n > 0 {
					logger.Info("deleted expired sessions", "count", n)
				}
				srv.RateLimiter().Cleanup()
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("pledge listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutting down")
	case <-restart:
		// The supervisor (systemd, docker restart policy) brings the
		// process back up on the restored database file.
		logger.Info("shutting down after restore")
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

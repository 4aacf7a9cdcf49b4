// fedistash/main.go
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"fedistash/config"
	"fedistash/database"
	"fedistash/handlers"
	"fedistash/mastodon"
	"fedistash/models"
	"fedistash/timeline"
	"fedistash/utils"
)

type Application struct {
	db            *database.DatabaseService
	syncer        *timeline.Syncer
	rateLimiter   *models.RateLimiter
	logger        *slog.Logger
	adminPassHash string
	storage       utils.StorageService
}

// Methods to satisfy the handlers.App interface
func (a *Application) DB() *database.DatabaseService    { return a.db }
func (a *Application) Syncer() *timeline.Syncer         { return a.syncer }
func (a *Application) RateLimiter() *models.RateLimiter { return a.rateLimiter }
func (a *Application) Logger() *slog.Logger             { return a.logger }
func (a *Application) AdminPasswordHash() string        { return a.adminPassHash }
func (a *Application) Storage() utils.StorageService    { return a.storage }

func parseDuration(logger *slog.Logger, envKey, def string) time.Duration {
	raw := utils.GetEnv(envKey, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		logger.Warn("Invalid duration, using default", "key", envKey, "value", raw, "default", def)
		d, _ = time.ParseDuration(def)
	}
	return d
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// --- External Configuration ---
	port := utils.GetEnv("FEDISTASH_PORT", "8080")
	dbPath := utils.GetEnv("FEDISTASH_DB_PATH", "./fedistash.db?_journal_mode=WAL&_foreign_keys=on")
	backupDir := utils.GetEnv("FEDISTASH_BACKUP_DIR", "./backups")
	utils.BackupDir = backupDir
	if err := os.MkdirAll(utils.BackupDir, 0755); err != nil {
		logger.Error("FATAL: Could not create backup directory", "path", utils.BackupDir, "error", err)
		os.Exit(1)
	}

	rateLimitEvery := parseDuration(logger, "FEDISTASH_RATE_EVERY", config.DefaultRateLimitEvery)
	rateLimitBurst, err := strconv.Atoi(utils.GetEnv("FEDISTASH_RATE_BURST", strconv.Itoa(config.DefaultRateLimitBurst)))
	if err != nil {
		logger.Warn("Invalid FEDISTASH_RATE_BURST integer, using default", "default", config.DefaultRateLimitBurst)
		rateLimitBurst = config.DefaultRateLimitBurst
	}
	rateLimitPrune := parseDuration(logger, "FEDISTASH_RATE_PRUNE", config.DefaultRateLimitPrune)
	rateLimitExpire := parseDuration(logger, "FEDISTASH_RATE_EXPIRE", config.DefaultRateLimitExpire)

	syncEvery := parseDuration(logger, "FEDISTASH_SYNC_EVERY", config.DefaultSyncEvery)
	syncBurst, err := strconv.Atoi(utils.GetEnv("FEDISTASH_SYNC_BURST", strconv.Itoa(config.DefaultSyncBurst)))
	if err != nil {
		logger.Warn("Invalid FEDISTASH_SYNC_BURST integer, using default", "default", config.DefaultSyncBurst)
		syncBurst = config.DefaultSyncBurst
	}

	adminPassHash := utils.GetEnv("FEDISTASH_ADMIN_PASSWORD_HASH", "")
	if adminPassHash == "" {
		logger.Warn("FEDISTASH_ADMIN_PASSWORD_HASH not set, admin endpoints are disabled")
	}

	dbService, err := database.InitDB(dbPath, logger)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbService.DB.Close(); err != nil {
			logger.Error("Failed to close database", "error", err)
		}
	}()

	// --- Storage Service Init ---
	var storageService utils.StorageService
	if utils.GetEnv("FEDISTASH_S3_ENABLED", "false") == "true" {
		endpoint := utils.GetEnv("FEDISTASH_S3_ENDPOINT", "")
		accessKey := utils.GetEnv("FEDISTASH_S3_ACCESS_KEY", "")
		secretKey := utils.GetEnv("FEDISTASH_S3_SECRET_KEY", "")
		bucket := utils.GetEnv("FEDISTASH_S3_BUCKET", "")
		region := utils.GetEnv("FEDISTASH_S3_REGION", "us-east-1")
		useSSL := utils.GetEnv("FEDISTASH_S3_USE_SSL", "true") == "true"

		storageService, err = utils.NewS3Storage(endpoint, accessKey, secretKey, bucket, region, useSSL)
		if err != nil {
			logger.Error("Failed to initialize S3 storage", "error", err)
			os.Exit(1)
		}
		logger.Info("S3 storage initialized", "endpoint", endpoint, "bucket", bucket)
	} else {
		storageService = &utils.LocalStorage{}
		logger.Info("Local backup storage initialized", "dir", utils.BackupDir)
	}

	syncLimiter := models.NewRateLimiter(syncEvery, syncBurst, rateLimitPrune, rateLimitExpire)
	clientFactory := func(server models.Server) timeline.TimelineClient {
		return mastodon.NewClient(server.URI, dbService.GetTokenByServer(server.URI))
	}

	app := &Application{
		db:            dbService,
		syncer:        timeline.NewSyncer(dbService, clientFactory, syncLimiter, logger),
		rateLimiter:   models.NewRateLimiter(rateLimitEvery, rateLimitBurst, rateLimitPrune, rateLimitExpire),
		logger:        logger,
		adminPassHash: adminPassHash,
		storage:       storageService,
	}

	mux := handlers.SetupRouter(app)
	finalHandler := handlers.CookieMiddleware(handlers.CSRFMiddleware(mux))

	// --- Graceful Shutdown ---
	server := &http.Server{Addr: ":" + port, Handler: finalHandler}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed unexpectedly", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("fedistash server started successfully",
		"version", config.AppVersion,
		"address", "http://localhost:"+port,
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("Server exiting")
}

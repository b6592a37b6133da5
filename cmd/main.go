package main

import (
	"context"
	"net/http"
	"time"

	"chatterbox/backend/internal/api/handler"
	"chatterbox/backend/internal/attachments"
	"chatterbox/backend/internal/auth"
	"chatterbox/backend/internal/chathub"
	"chatterbox/backend/internal/chats"
	"chatterbox/backend/internal/config"
	"chatterbox/backend/internal/messages"
	"chatterbox/backend/internal/metrics"
	"chatterbox/backend/internal/models"
	"chatterbox/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies(cfg config.Config, log *zap.Logger) (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect PostgreSQL", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Fatal("failed to connect Redis", zap.Error(err))
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Chat{},
		&models.Message{},
	); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	log.Info("database and redis connections established, migrations complete")
	return db, rdb
}

// newLogger builds a production logger at the configured level,
// falling back to info on an unparseable value.
func newLogger(level string) *zap.Logger {
	logCfg := zap.NewProductionConfig()
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		logCfg.Level = lvl
	}
	log, err := logCfg.Build()
	if err != nil {
		log, _ = zap.NewProduction()
	}
	return log
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootstrap, _ := zap.NewProduction()
		bootstrap.Fatal("failed to load config", zap.Error(err))
	}

	log := newLogger(cfg.LogLevel)
	defer log.Sync()

	db, rdb := setupDependencies(cfg, log)
	store := storage.NewService(db, rdb)

	var files attachments.Store = attachments.Disabled{}
	if cfg.AttachmentEndpoint != "" {
		files = attachments.NewRemote(cfg.AttachmentEndpoint)
	}

	metrics.Register()

	authMgr := auth.NewManager(cfg.JWTSecret, cfg.TokenTTL)
	chatSvc := chats.NewService(store, files, log)
	msgSvc := messages.NewService(store, log)

	hub := chathub.NewHub(store, log)
	go hub.Run()

	r := gin.Default()
	h := handler.NewHandler(store, chatSvc, msgSvc, hub, authMgr, log)
	h.RegisterRoutes(r)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	log.Info("chatterbox backend listening", zap.String("addr", cfg.HTTPAddr))
	if err := server.ListenAndServe(); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

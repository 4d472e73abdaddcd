package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/technotes/user-service/internal/cache"
	"github.com/technotes/user-service/internal/config"
	"github.com/technotes/user-service/internal/log"
	"github.com/technotes/user-service/internal/models/note"
	"github.com/technotes/user-service/internal/models/user"
	"github.com/technotes/user-service/internal/services"
	"github.com/technotes/user-service/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Error loading configuration: %s", err))
	}

	// Create webserver logger
	logger, err := log.NewLogger(cfg.Log.Development, cfg.Log.Debug, cfg.Log.OutputPaths...)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Infof("Starting with configuration: %s", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Create a MongoDB client
	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.Mongo.URI))
	cancel()
	if err != nil {
		logger.Fatal("Error creating MongoDB client:", err)
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Error("Error disconnecting MongoDB client:", err)
		}
	}()
	db := client.Database(cfg.Mongo.Database)

	userManager := user.NewUserManager(db, logger)
	noteManager := note.NewNoteManager(db, logger)

	indexCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if err := userManager.EnsureIndexes(indexCtx); err != nil {
		logger.Fatal("Error creating user indexes:", err)
	}
	if err := noteManager.EnsureIndexes(indexCtx); err != nil {
		logger.Fatal("Error creating note indexes:", err)
	}
	cancel()

	opts := []services.UserServiceOption{services.WithBcryptCost(cfg.Auth.BcryptCost)}

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Warnf("Redis at %s not reachable, user list cache disabled: %v", cfg.Redis.Addr, err)
		} else {
			opts = append(opts, services.WithListCache(cache.NewUserListCache(rdb, cfg.Redis.TTL)))
		}
	}

	if cfg.RabbitMQ.URL != "" {
		mqService, err := services.NewAMPQService(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, logger)
		if err != nil {
			logger.Panic("Error initializing AMPQ service:", err)
		}
		defer mqService.Shutdown()
		opts = append(opts, services.WithEventPublisher(mqService))
	}

	userService := services.NewUserService(userManager, noteManager, logger, opts...)

	// Initialize web server
	server := web.NewWebServer(cfg.Auth.AccessTokenSecret, userService, logger)

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down web server")
		if err := server.Shutdown(); err != nil {
			logger.Error("Error shutting down web server:", err)
		}
	}()

	logger.Infof("Listening on %s", cfg.Address())
	if err := server.Run(cfg.Address()); err != nil {
		logger.Fatal("Error starting web server:", err)
	}
}

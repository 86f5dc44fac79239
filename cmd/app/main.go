package main

import (
	"context"
	"os"
	"strconv"

	dbadapter "flux/internal/adapters/database"
	"flux/internal/adapters/httpapi"
	redisadapter "flux/internal/adapters/redis"
	"flux/internal/adapters/xapi"
	"flux/internal/config"
	"flux/internal/core/post"
	postapp "flux/internal/core/post/service"
	publishapp "flux/internal/core/publish/service"
	"flux/internal/core/socialaccount"
	accountapp "flux/internal/core/socialaccount/service"
	"flux/internal/core/vault"
	"flux/internal/workers"

	"go.uber.org/zap"
)

func main() {
	config.InitLogger()
	config.Init()
	config.InitDB()

	if err := config.DB.AutoMigrate(
		&post.Post{},
		&socialaccount.SocialAccount{},
	); err != nil {
		config.Logger.Fatal("Error during migrations:", zap.Error(err))
	}
	config.Logger.Info("✅ Database migrations completed")

	config.InitRedis()
	defer closeResources(config.Logger)

	credentialVault, err := vault.New([]byte(os.Getenv("VAULT_SECRET")))
	if err != nil {
		config.Logger.Fatal("Failed to initialize credential vault:", zap.Error(err))
	}

	xClient := xapi.NewClient(
		os.Getenv("X_CLIENT_ID"),
		os.Getenv("X_CLIENT_SECRET"),
		os.Getenv("X_REDIRECT_URI"),
		os.Getenv("X_API_KEY"),
		os.Getenv("X_API_SECRET"),
	)

	postRepo := dbadapter.NewPostRepositoryDatabase()
	accountRepo := dbadapter.NewSocialAccountRepositoryDatabase()
	stateStore := redisadapter.NewOAuthStateRepositoryRedis(config.RedisClient)

	postSvc := postapp.NewPostService(postRepo, accountRepo)
	publishSvc := publishapp.NewPublishService(accountRepo, postRepo, xClient, credentialVault, config.Logger)
	accountSvc := accountapp.NewAccountService(
		accountRepo, xClient, credentialVault, stateStore, config.Logger,
		os.Getenv("X_CLIENT_ID"), os.Getenv("X_REDIRECT_URI"),
	)

	r := httpapi.SetupRoutes(postSvc, publishSvc, accountSvc)

	batchSize, err := strconv.Atoi(os.Getenv("SCHEDULER_BATCH_SIZE"))
	if err != nil || batchSize <= 0 {
		batchSize = 15
	}
	worker := workers.NewPublishWorker(publishSvc, batchSize, config.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Run(ctx)

	config.Logger.Info("App is running...")
	if err := r.Run(":" + os.Getenv("APP_PORT")); err != nil {
		config.Logger.Fatal("Server failed to start:", zap.Error(err))
	}
}

func closeResources(logger *zap.Logger) {
	if err := config.RedisClient.Close(); err != nil {
		logger.Error("Error closing Redis connection:", zap.Error(err))
	}

	sqlDB, err := config.DB.DB()
	if err != nil {
		logger.Error("Error getting raw DB:", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.Error("Error closing database connection:", zap.Error(err))
	}
}

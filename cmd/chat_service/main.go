package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"realtime_chat_service/internal/chat/app"
	"realtime_chat_service/internal/chat/repository"
	"realtime_chat_service/internal/chat/router"
	"realtime_chat_service/pkg/config"
	"realtime_chat_service/pkg/database"
	"realtime_chat_service/pkg/logger"
	"realtime_chat_service/pkg/token"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatService, config.EnvConfig.ChatServiceLogPath)
	cfg := config.LoadConfig[config.Chat](config.EnvConfig.ChatService, config.EnvConfig.ChatServiceYAMLPath)
	cfg.Presence.ApplyDefaults()

	ctx := context.Background()
	uri := fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.MongoSQL.User, cfg.MongoSQL.Password, cfg.MongoSQL.Host, cfg.MongoSQL.Port)
	mongo, err := database.NewMongoDB(ctx,
		database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.MongoSQL.RetryCount,
			RetryInterval: time.Duration(cfg.MongoSQL.RetryInterval),
		},
		cfg.MongoSQL.Database)
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to mongoDB database after retries",
			zap.String("address", fmt.Sprintf("[%s]", uri)),
			zap.Error(err),
		)
	}
	defer mongo.Close(ctx)

	masterName, sentinel := config.GetRedisSetting()
	redisClient, err := database.NewRedisClient(masterName, sentinel, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
	}

	convRepo := repository.NewMongoConversationRepository(mongo.Database)
	msgRepo := repository.NewMongoMessageRepository(mongo.Database)
	userRepo := repository.NewMongoUserRepository(mongo.Database)
	presenceRepo := repository.NewRedisPresenceRepository(redisClient,
		cfg.Presence.TTL, cfg.Presence.MissedEventCap, cfg.Presence.MissedEventTTL)
	relay := repository.NewRedisPubSub(redisClient)

	if err := convRepo.EnsureIndexes(ctx); err != nil {
		logger.Log.Fatal(fmt.Sprintf("conversation indexes err : %v", err))
	}
	if err := msgRepo.EnsureIndexes(ctx); err != nil {
		logger.Log.Fatal(fmt.Sprintf("message indexes err : %v", err))
	}

	convUC := app.NewConversationUseCase(convRepo, userRepo)
	msgUC := app.NewMessageUseCase(msgRepo)

	verifier := token.JWTVerifier{}
	gateway := app.NewGateway(presenceRepo, relay, convUC, msgUC, userRepo, verifier)
	if err := gateway.Start(ctx); err != nil {
		logger.Log.Fatal(fmt.Sprintf("relay subscribe err : %v", err))
	}
	httpHandler := app.NewChatHTTPHandler(convUC, msgUC, presenceRepo, verifier, gateway)

	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.ChatServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	router.RegisterRoutes(r, gateway, httpHandler)

	port := ":" + cfg.Port
	log.Printf("Chat Service listening on %s", port)
	if err := r.Listen(port); err != nil {
		log.Fatalf("Failed to start Fiber: %v", err)
	}
}

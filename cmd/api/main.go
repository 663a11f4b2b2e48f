package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rafpad/internal/config"
	"rafpad/internal/db"
	apihttp "rafpad/internal/http"
	"rafpad/internal/llm"
	"rafpad/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	store, closeStore, err := db.OpenTaskStore(ctx, cfg)
	if err != nil {
		logger.Fatal("task store", zap.Error(err), zap.String("driver", cfg.Driver()))
	}
	defer closeStore()

	var llmClient llm.CompletionClient
	client, err := llm.NewOpenAIClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout, logger)
	if err != nil {
		logger.Warn("completion service unavailable, chat will use fallback responses", zap.Error(err))
	} else {
		llmClient = client
	}

	limits := apihttp.RateLimits{
		Chat:  service.NewMemoryRateLimiter(cfg.ChatRateWindow, cfg.ChatRateLimit),
		Write: service.NewMemoryRateLimiter(cfg.WriteRateWindow, cfg.WriteRateLimit),
	}
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory rate limits", zap.Error(err))
		} else {
			limits.Chat = service.NewRedisRateLimiter(redisClient, "rl:chat:", cfg.ChatRateWindow, cfg.ChatRateLimit)
			limits.Write = service.NewRedisRateLimiter(redisClient, "rl:write:", cfg.WriteRateWindow, cfg.WriteRateLimit)
		}
		cancel()
	}

	history := service.NewHistoryStore(cfg.ChatMaxHistory)
	defer history.Close()

	taskSvc := service.NewTaskService(store, cfg.DefaultProjectTag)
	dispatcher := service.NewCommandDispatcher(taskSvc, taskSvc.DefaultTag(), logger)
	filter := service.NewCommandFilter(service.DefaultDirectiveExtractor(), dispatcher, logger)
	chatSvc := service.NewChatService(llmClient, history, filter, service.NewFallbackPolicy(nil), logger, service.ChatOptionsFromConfig(cfg))

	chatHandler := apihttp.NewChatHandler(logger, chatSvc, taskSvc.DefaultTag())
	taskHandler := apihttp.NewTaskHandler(logger, taskSvc)
	router := apihttp.NewRouter(logger, chatHandler, taskHandler, limits)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort), zap.String("driver", cfg.Driver()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", zap.Error(err))
	}
}

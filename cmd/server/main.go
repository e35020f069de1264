package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/sohamshirke10/recruiter-bandhu/internal/apitoken"
	"github.com/sohamshirke10/recruiter-bandhu/internal/app"
	"github.com/sohamshirke10/recruiter-bandhu/internal/config"
	"github.com/sohamshirke10/recruiter-bandhu/internal/executor"
	"github.com/sohamshirke10/recruiter-bandhu/internal/ratelimit"
	"github.com/sohamshirke10/recruiter-bandhu/internal/server"
	"github.com/sohamshirke10/recruiter-bandhu/internal/util"
	"github.com/sohamshirke10/recruiter-bandhu/pkg/ai"
	"github.com/sohamshirke10/recruiter-bandhu/pkg/queue"
	"github.com/sohamshirke10/recruiter-bandhu/pkg/storage"
	"github.com/sohamshirke10/recruiter-bandhu/pkg/store"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := util.InitLogger(cfg.LogLevel)

	st, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		util.Fatal("failed to init store", "err", err)
	}

	generator, err := newGenerator(cfg)
	if err != nil {
		util.Fatal("failed to init generator", "err", err)
	}

	var actionExec executor.Executor
	if cfg.GoogleAccessToken != "" {
		googleExec, err := executor.NewGoogleExecutor(executor.GoogleOptions{
			Tokens: executor.StaticToken(cfg.GoogleAccessToken),
			Sender: cfg.GoogleSender,
		})
		if err != nil {
			util.Fatal("failed to init google executor", "err", err)
		}
		actionExec = googleExec
	} else {
		logger.Warn("google access token not set, action intents will return canned failures")
	}

	appCore, err := app.New(app.Config{
		Store:     st,
		Generator: generator,
		Executor:  actionExec,
		Logger:    logger,
	})
	if err != nil {
		util.Fatal("failed to init app", "err", err)
	}

	jobQueue, err := queue.NewRedisJobQueue(queue.RedisQueueConfig{
		Addr:       cfg.RedisAddr,
		Password:   cfg.RedisPassword,
		Stream:     cfg.QueueName,
		Group:      cfg.QueueGroup,
		MaxRetries: cfg.QueueMaxRetries,
		RetryDelay: time.Duration(cfg.QueueRetryDelaySeconds) * time.Second,
	})
	if err != nil {
		util.Fatal("failed to init job queue", "err", err)
	}

	verifier, err := apitoken.NewVerifier(apitoken.Options{Secret: cfg.APITokenSecret})
	if err != nil {
		util.Fatal("failed to init token verifier", "err", err)
	}

	objects, err := storage.NewMinioStore(
		cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	if err != nil {
		util.Fatal("failed to init object store", "err", err)
	}

	var limiter server.Limiter
	if cfg.RateLimitPerMinute > 0 {
		redisLimiter, err := ratelimit.NewRedisFixedWindowLimiter(
			cfg.RedisAddr, cfg.RedisPassword, "", cfg.RateLimitPerMinute, time.Minute)
		if err != nil {
			util.Fatal("failed to init rate limiter", "err", err)
		}
		limiter = redisLimiter
	}

	httpServer := server.New(server.Config{
		App:      appCore,
		Store:    st,
		Queue:    jobQueue,
		Verifier: verifier,
		Limiter:  limiter,
		Uploads:  objects,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}

func newGenerator(cfg config.FileConfig) (ai.TextGenerator, error) {
	switch cfg.AIProvider {
	case "openai":
		return ai.NewOpenAICompatGenerator(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.GenerationModel), nil
	default:
		client, err := ai.NewGeminiClient(cfg.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		return ai.NewGeminiGenerator(client, cfg.GenerationModel), nil
	}
}

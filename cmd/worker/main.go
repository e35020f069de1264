package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sohamshirke10/recruiter-bandhu/internal/config"
	"github.com/sohamshirke10/recruiter-bandhu/internal/ingest"
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

	objects, err := storage.NewMinioStore(
		cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	if err != nil {
		util.Fatal("failed to init object store", "err", err)
	}

	pipeline, err := ingest.New(ingest.Config{
		Store:     st,
		Generator: generator,
		Objects:   objects,
		Logger:    logger,
	})
	if err != nil {
		util.Fatal("failed to init pipeline", "err", err)
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	concurrency := cfg.QueueConcurrency
	if concurrency <= 0 {
		concurrency = 2
	}
	jobQueue.Start(ctx, concurrency, func(ctx context.Context, job queue.JobStatus) error {
		logger.Info("processing ingestion job",
			"job_id", job.ID, "table_name", job.TableName, "attempt", job.Attempts)
		if err := pipeline.Run(ctx, job.TableName, job.ManifestKey); err != nil {
			logger.Error("ingestion job failed",
				"job_id", job.ID, "table_name", job.TableName, "err", err)
			return err
		}
		logger.Info("ingestion job done", "job_id", job.ID, "table_name", job.TableName)
		return nil
	})

	logger.Info("worker consuming", "stream", cfg.QueueName, "concurrency", concurrency)
	<-ctx.Done()
	logger.Info("worker shutting down")
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

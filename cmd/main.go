package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fedutinova/vidshelf/internal/assemblyai"
	"github.com/fedutinova/vidshelf/internal/common"
	appconfig "github.com/fedutinova/vidshelf/internal/config"
	"github.com/fedutinova/vidshelf/internal/database"
	"github.com/fedutinova/vidshelf/internal/gpt"
	"github.com/fedutinova/vidshelf/internal/indexing"
	"github.com/fedutinova/vidshelf/internal/job"
	"github.com/fedutinova/vidshelf/internal/logging"
	"github.com/fedutinova/vidshelf/internal/media"
	"github.com/fedutinova/vidshelf/internal/memq"
	"github.com/fedutinova/vidshelf/internal/memstore"
	"github.com/fedutinova/vidshelf/internal/queue"
	"github.com/fedutinova/vidshelf/internal/redis"
	"github.com/fedutinova/vidshelf/internal/repository"
	"github.com/fedutinova/vidshelf/internal/server"
	"github.com/fedutinova/vidshelf/internal/service"
	"github.com/fedutinova/vidshelf/internal/storage"
	httpapi "github.com/fedutinova/vidshelf/internal/transport/http"
	"github.com/fedutinova/vidshelf/internal/workers"
)

func main() {
	cfg := appconfig.Load()

	logFile, err := logging.Setup(logging.Options{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	if err != nil {
		slog.Error("failed to set up logging", "err", err)
		os.Exit(1)
	}
	defer logFile.Close()

	slog.Info("starting vidshelf", "addr", cfg.HTTPAddr, "workers", cfg.QueueWorkers, "store", cfg.StoreMode, "queue", cfg.QueueMode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store repository.Store
	switch cfg.StoreMode {
	case "memory":
		store = memstore.New()
		slog.Warn("using in-memory store, data is lost on restart")
	default:
		db, err := database.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			slog.Error("failed to migrate database", "err", err)
			os.Exit(1)
		}
		store = repository.New(db)
	}

	var redisService *redis.Service
	if cfg.RedisURL != "" {
		redisService, err = redis.New(cfg.RedisURL)
		if err != nil {
			slog.Error("failed to connect to Redis", "err", err)
			os.Exit(1)
		}
		defer redisService.Close()
	}

	var q memq.JobQueue
	switch cfg.QueueMode {
	case "redis":
		if redisService == nil {
			slog.Error("QUEUE_MODE=redis requires REDIS_URL")
			os.Exit(1)
		}
		qcfg := queue.DefaultConfig()
		qcfg.Stream = cfg.RedisStream
		q, err = queue.NewRedisQueue(redisService.Client(), qcfg)
		if err != nil {
			slog.Error("failed to initialize Redis queue", "err", err)
			os.Exit(1)
		}
	default:
		q = memq.NewMemoryQueue(cfg.QueueBuf)
	}

	var archive *storage.TranscriptArchive
	if cfg.StorageMode != "none" {
		storageService, err := storage.NewStorage(ctx, cfg)
		if err != nil {
			slog.Error("failed to initialize storage", "err", err)
			os.Exit(1)
		}
		archive = storage.NewTranscriptArchive(storageService)
		slog.Info("storage initialized", "type", storage.GetStorageType(cfg))
	}

	var llm *gpt.Client
	if cfg.LLMAPIKey != "" {
		llm = gpt.NewClient(gpt.Config{
			APIKey:         cfg.LLMAPIKey,
			BaseURL:        cfg.LLMBaseURL,
			Model:          cfg.LLMModel,
			EmbeddingModel: cfg.EmbeddingModel,
			EmbeddingDim:   cfg.EmbeddingDim,
		})
	} else {
		slog.Warn("LLM_API_KEY not set, summaries and semantic search are disabled")
	}

	// nil interfaces, not typed nil pointers, switch the optional parts off
	var (
		embedder   indexing.Embedder
		summarizer service.Summarizer
		chatter    service.Chatter
		archiver   service.Archive
		locker     service.Locker
	)
	if llm != nil {
		embedder, summarizer, chatter = llm, llm, llm
	}
	if archive != nil {
		archiver = archive
	}
	if redisService != nil {
		locker = redisService
	}

	indexer := indexing.NewIndexer(store, embedder)
	if cfg.EmbedSweepSchedule != "" && indexer.Enabled() {
		sweep, err := indexing.StartSweep(ctx, cfg.EmbedSweepSchedule, indexer)
		if err != nil {
			slog.Error("failed to schedule embedding sweep", "err", err)
			os.Exit(1)
		}
		defer sweep.Stop()
	}

	var transcriber workers.Transcriber = missingTranscriber{}
	if cfg.AssemblyAIKey != "" {
		aai, err := assemblyai.New(assemblyai.Config{
			APIKey:       cfg.AssemblyAIKey,
			BaseURL:      cfg.AssemblyAIBaseURL,
			PollInterval: cfg.AssemblyAIPoll,
		})
		if err != nil {
			slog.Error("failed to initialize AssemblyAI client", "err", err)
			os.Exit(1)
		}
		defer aai.Close()
		transcriber = aai
	} else {
		slog.Warn("ASSEMBLYAI_API_KEY not set, transcription jobs will be refused")
	}

	hooks := []workers.ArtifactHook{indexer}
	if archive != nil {
		hooks = append(hooks, archive)
	}
	transcribeHandler := workers.NewTranscribeHandler(workers.TranscribeDeps{
		Store:       store,
		Extractor:   media.NewYTDLP(cfg.YTDLPPath, cfg.FFmpegLocation),
		Transcriber: transcriber,
		Hooks:       hooks,
		TempDir:     cfg.TempDir,
		HookTimeout: cfg.HookTimeout,
	})

	jobs := service.NewJobService(service.JobServiceConfig{
		Store:  store,
		Queue:  q,
		Locker: locker,
		Ready: func(kind job.Kind) error {
			if kind == job.KindTranscribe && cfg.AssemblyAIKey == "" {
				return fmt.Errorf("%w: ASSEMBLYAI_API_KEY is not set", common.ErrConfiguration)
			}
			return nil
		},
	})

	handlers := &httpapi.Handlers{
		Jobs:    jobs,
		Library: service.NewLibrary(store, archiver, summarizer),
		Chat:    service.NewAssistant(indexer, store, chatter),
		Store:   store,
		Indexer: indexer,
		Archive: archive,
		Q:       q,
		Redis:   redisService,
		Config:  cfg,
	}
	r := server.NewRouter(handlers)

	q.StartConsumers(ctx, cfg.QueueWorkers, func(ctx context.Context, j *job.Job) error {
		switch j.Kind {
		case job.KindTranscribe:
			return transcribeHandler.HandleTranscribeJob(ctx, j)
		default:
			return fmt.Errorf("unknown job kind: %s", j.Kind)
		}
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  90 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	<-ch
	slog.Info("shutting down")

	shCtx, shCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shCancel()
	_ = srv.Shutdown(shCtx)
	cancel()
	if err := q.Close(); err != nil {
		slog.Warn("queue close", "err", err)
	}
}

// missingTranscriber stands in when no provider key is configured. Starts are
// refused before a job exists, so it only runs for jobs queued elsewhere.
type missingTranscriber struct{}

func (missingTranscriber) Transcribe(context.Context, string) (string, error) {
	return "", fmt.Errorf("%w: ASSEMBLYAI_API_KEY is not set", common.ErrConfiguration)
}

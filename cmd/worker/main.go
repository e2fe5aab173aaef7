package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/talktotext/talktotext/internal/auth"
	"github.com/talktotext/talktotext/internal/config"
	"github.com/talktotext/talktotext/internal/logger"
	"github.com/talktotext/talktotext/internal/media"
	"github.com/talktotext/talktotext/internal/models"
	"github.com/talktotext/talktotext/internal/pipeline"
	"github.com/talktotext/talktotext/internal/provider"
	"github.com/talktotext/talktotext/internal/queue"
	mongostore "github.com/talktotext/talktotext/internal/store/mongo"
	"github.com/talktotext/talktotext/internal/translate"
	"github.com/talktotext/talktotext/internal/watcher"
	"github.com/talktotext/talktotext/internal/worker"
	"github.com/talktotext/talktotext/pkg/executor"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level)
	log.Info(ctx, "talktotext worker starting: %d workers", cfg.Worker.Concurrency)

	client, err := mongod.Connect(options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		log.Error(ctx, "Failed to connect to MongoDB: %v", err)
		os.Exit(1)
	}
	defer client.Disconnect(ctx)

	pingCtx, cancelPing := context.WithTimeout(ctx, 10*time.Second)
	defer cancelPing()
	if err := client.Ping(pingCtx, nil); err != nil {
		log.Error(ctx, "MongoDB unreachable: %v", err)
		os.Exit(1)
	}

	db := client.Database(cfg.Mongo.Database)
	st := mongostore.New(db)
	q := queue.NewMongoQueue(db)
	p := buildPipeline(cfg, st, log)

	pool := worker.NewPool(q, log,
		worker.WithConcurrency(cfg.Worker.Concurrency),
		worker.WithPollInterval(time.Duration(cfg.Worker.PollIntervalSeconds)*time.Second),
		worker.WithRateLimit(cfg.Worker.RateLimit, cfg.Worker.RateBurst),
	)
	pool.Register(queue.TaskProcessUpload, processUploadHandler(st, p))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := pool.Start(runCtx); err != nil {
		log.Error(ctx, "Failed to start worker pool: %v", err)
		os.Exit(1)
	}

	var w watcher.Watcher
	if cfg.Watch.Enabled {
		w, err = watcher.New(cfg.Watch.Dir, submitDroppedFile(st, q, log), log)
		if err != nil {
			log.Error(ctx, "Failed to create drop folder watcher: %v", err)
			os.Exit(1)
		}
		defer w.Stop()
		go func() {
			if err := w.Start(runCtx); err != nil && err != context.Canceled {
				log.Error(ctx, "Watcher error: %v", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info(ctx, "Shutdown signal received")
	cancel()

	stopCtx, cancelStop := context.WithTimeout(ctx, 30*time.Second)
	defer cancelStop()
	if err := pool.Stop(stopCtx); err != nil {
		log.Error(ctx, "Worker pool shutdown: %v", err)
	}
	log.Info(ctx, "Worker stopped")
}

// processUploadHandler decodes the task payload, loads the upload and runs the
// pipeline on it.
func processUploadHandler(st *mongostore.Store, p *pipeline.Pipeline) worker.Handler {
	return func(ctx context.Context, t *queue.Task) error {
		var payload queue.ProcessUploadPayload
		if err := json.Unmarshal(t.Payload, &payload); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}

		up, err := st.FindUpload(ctx, payload.UploadID)
		if err != nil {
			return fmt.Errorf("load upload %s: %w", payload.UploadID, err)
		}
		if up.Status.Terminal() {
			// A redelivered task for a finished upload is a no-op.
			return nil
		}

		if _, err := p.Process(ctx, up); err != nil {
			return err
		}
		return nil
	}
}

// submitDroppedFile registers a drop folder file as a guest-owned background
// upload.
func submitDroppedFile(st *mongostore.Store, q *queue.MongoQueue, log logger.Logger) watcher.SubmitFunc {
	return func(ctx context.Context, path string) error {
		up := &models.Upload{
			ID:        uuid.NewString(),
			UserID:    auth.GuestUser,
			Filename:  filepath.Base(path),
			Path:      path,
			Language:  "auto",
			Status:    models.StageUploaded,
			Progress:  models.Progress{Stage: models.StageUploaded, Percent: 0},
			CreatedAt: time.Now().UTC(),
		}
		if err := st.InsertUpload(ctx, up); err != nil {
			return err
		}

		task, err := queue.NewTask(queue.TaskProcessUpload, queue.ProcessUploadPayload{
			UploadID: up.ID,
			Path:     up.Path,
			UserID:   up.UserID,
			Language: up.Language,
		})
		if err != nil {
			return err
		}
		if err := q.Enqueue(ctx, task); err != nil {
			return err
		}

		log.Info(ctx, "Drop folder upload %s queued (%s)", up.ID, up.Filename)
		return nil
	}
}

// buildPipeline wires the providers selected in the configuration into a
// ready pipeline.
func buildPipeline(cfg *config.Config, st *mongostore.Store, log logger.Logger) *pipeline.Pipeline {
	transcriber := provider.NewAssemblyAI(provider.AssemblyAIConfig{
		APIKey:       cfg.Speech.APIKey,
		BaseURL:      cfg.Speech.BaseURL,
		PollInterval: time.Duration(cfg.Speech.PollIntervalSeconds) * time.Second,
		PollTimeout:  time.Duration(cfg.Speech.PollTimeoutSeconds) * time.Second,
	}, log)

	var (
		completer  provider.Completer
		summarizer provider.Summarizer
	)
	switch cfg.LLM.Provider {
	case "gemini":
		g := provider.NewGemini(cfg.LLMKeys(), cfg.LLM.Model, log)
		completer, summarizer = g, g
	default:
		g := provider.NewGroq(provider.GroqConfig{
			APIKey:    cfg.LLMKeys()[0],
			BaseURL:   cfg.LLM.BaseURL,
			Model:     cfg.LLM.Model,
			MaxTokens: cfg.LLM.MaxTokens,
		})
		completer, summarizer = g, g
	}

	extractor := media.NewExtractor(executor.New(), log)

	return pipeline.New(pipeline.Config{
		TargetLanguage: cfg.Pipeline.TargetLanguage,
		MaxTokens:      cfg.Pipeline.MaxTokens,
		ExtractSeconds: cfg.Pipeline.ExtractSeconds,
	}, st, transcriber, summarizer, translate.New(completer, log), extractor, log)
}

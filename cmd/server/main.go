package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/talktotext/talktotext/internal/auth"
	"github.com/talktotext/talktotext/internal/config"
	"github.com/talktotext/talktotext/internal/logger"
	"github.com/talktotext/talktotext/internal/media"
	"github.com/talktotext/talktotext/internal/pipeline"
	"github.com/talktotext/talktotext/internal/provider"
	"github.com/talktotext/talktotext/internal/queue"
	"github.com/talktotext/talktotext/internal/server"
	mongostore "github.com/talktotext/talktotext/internal/store/mongo"
	"github.com/talktotext/talktotext/internal/translate"
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
	log.Info(ctx, "talktotext API server starting")

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
	if err := st.Migrate(ctx); err != nil {
		log.Error(ctx, "Store migration failed: %v", err)
		os.Exit(1)
	}

	q := queue.NewMongoQueue(db)
	if err := q.Migrate(ctx); err != nil {
		log.Error(ctx, "Queue migration failed: %v", err)
		os.Exit(1)
	}

	p := buildPipeline(cfg, st, log)

	srv := server.New(server.Config{
		Port:      cfg.Server.Port,
		UploadDir: cfg.Server.UploadDir,
		ExportDir: cfg.Server.ExportDir,
	}, st, q, p, auth.New(cfg.Auth.JWTSecret), log)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info(ctx, "Shutdown signal received")
	case err := <-errChan:
		log.Error(ctx, "Server error: %v", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Error(ctx, "Shutdown error: %v", err)
	}
	log.Info(ctx, "API server stopped")
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

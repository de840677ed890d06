package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"opponent/internal/chunker"
	"opponent/internal/config"
	"opponent/internal/domain"
	"opponent/internal/embedding"
	"opponent/internal/llm"
	"opponent/internal/retrieval"
	"opponent/internal/vault"
	"opponent/internal/vectorindex/memory"
	"opponent/internal/vectorindex/sqlitestore"
)

// version is set at build time via -ldflags.
var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "opponent",
	Short: "Adversarial study companion for a markdown vault",
	Long: "Opponent indexes a markdown note vault and uses a local model to\n" +
		"synthesize reflection notes, suggest links between notes, and challenge\n" +
		"claims with evidence-based counter-arguments.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (defaults to ./opponent.yaml, then ~/.config/opponent/config.yaml)")
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(noteCmd)
	rootCmd.AddCommand(linkCmd)
	rootCmd.AddCommand(opposeCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.Version = version
}

// app bundles the assembled components a subcommand needs. Close releases
// the index when it is file-backed.
type app struct {
	cfg       *config.AppConfig
	gen       *llm.Client
	indexer   *vault.Indexer
	retriever *retrieval.Engine
	close     func() error
}

func loadConfig() (*config.AppConfig, error) {
	if configPath == "" {
		cfg, _, err := config.LoadDefault()
		return cfg, err
	}
	return config.Load(configPath)
}

// buildApp assembles config, embedder, index, model client and retriever
// in construction order. Callers must Close the returned app.
func buildApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	var embed domain.Embedder
	switch cfg.Embedder.Type {
	case "local", "":
		embed = embedding.NewLocal(cfg.Embedder.Dimension)
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		client, err := embedding.NewClient(embedding.Config{
			BaseURL:   cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv: cfg.Embedder.OpenAI.APIKeyEnv,
			Model:     cfg.Embedder.OpenAI.Model,
			Timeout:   time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init: %w", err)
		}
		embed = client
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}

	var index domain.SimilarityIndex
	closeIndex := func() error { return nil }
	switch cfg.Index.Type {
	case "sqlite", "":
		if err := cfg.EnsureDirectories(); err != nil {
			return nil, err
		}
		store, err := sqlitestore.Open(cfg.IndexPath())
		if err != nil {
			return nil, fmt.Errorf("open index: %w", err)
		}
		index = store
		closeIndex = store.Close
	case "memory":
		index = memory.NewIndex()
	default:
		return nil, fmt.Errorf("unknown index: %s", cfg.Index.Type)
	}

	gen := llm.New(llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
	})

	ch := chunker.NewParagraphChunker(cfg.Chunker.TargetWords)

	return &app{
		cfg:       cfg,
		gen:       gen,
		indexer:   vault.NewIndexer(index, embed, ch),
		retriever: retrieval.New(index, embed, gen, cfg.Retrieval.TopK),
		close:     closeIndex,
	}, nil
}

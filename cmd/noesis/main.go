// noesis is a knowledge-augmented reasoning engine: it classifies a query,
// retrieves and ranks knowledge per topic, detects cross-topic
// relationships, and produces a verifiable chain-of-thought trace with
// calibrated confidence and quality scores.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"noesis/internal/analyzer"
	"noesis/internal/config"
	"noesis/internal/logging"
	"noesis/internal/reasoning"
	"noesis/internal/relevance"
	"noesis/internal/relmap"
	"noesis/internal/retrieval"
	"noesis/internal/store"
	"noesis/internal/synthesis"
)

var (
	// Global flags
	verbose    bool
	configPath string
	dbPath     string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "noesis",
	Short: "noesis - knowledge-augmented reasoning engine",
	Long: `noesis runs natural-language queries through a multi-stage reasoning
pipeline: query analysis, multi-topic retrieval, relevance scoring,
knowledge synthesis, and chain-of-thought reasoning with verification.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if dbPath != "" {
			cfg.Store.Path = dbPath
		}
		if verbose {
			cfg.Logging.Verbose = true
		}
		return logging.Initialize(nil, cfg.Logging.Verbose)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

// buildEngine wires the full pipeline against the configured store.
// The returned cleanup closes the store.
func buildEngine() (*reasoning.Engine, *store.Store, error) {
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}

	a := analyzer.New()
	scorer := relevance.NewDefaultScorer()
	retr := retrieval.New(st, a, scorer, retrieval.Config{
		MaxTopics:       cfg.Retrieval.MaxTopics,
		MaxPerTopic:     cfg.Retrieval.MaxPerTopic,
		PerTopicTimeout: cfg.Retrieval.PerTopicTimeout,
		MinConfidence:   cfg.Retrieval.MinConfidence,
	})
	mapper := relmap.New()
	synth := synthesis.New(mapper)
	engine := reasoning.New(a, retr, synth, mapper, st, reasoning.Config{
		MaxSteps:            cfg.Engine.MaxSteps,
		CacheTTL:            cfg.Engine.CacheTTL,
		CacheSize:           cfg.Engine.CacheSize,
		MinVerifyConfidence: cfg.Engine.MinVerifyConfidence,
	})
	return engine, st, nil
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the knowledge database (overrides config)")

	rootCmd.AddCommand(reasonCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(knowledgeCmd)
	rootCmd.AddCommand(relationsCmd)
	rootCmd.AddCommand(statsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

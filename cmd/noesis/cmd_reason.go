// Reasoning and analysis CLI commands.
package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"noesis/internal/reasoning"
)

var (
	reasonIterative bool
	reasonFormat    string
	reasonContext   string
)

var reasonCmd = &cobra.Command{
	Use:   "reason <query>",
	Short: "Run a query through the full reasoning pipeline",
	Long: `Runs a natural-language query through analysis, retrieval, synthesis,
and chain-of-thought reasoning, printing the resulting chain.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReason,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <query>",
	Short: "Show the query analysis without reasoning",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAnalyze,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show knowledge store statistics",
	RunE:  runStats,
}

func runReason(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	engine, st, err := buildEngine()
	if err != nil {
		return err
	}
	defer st.Close()

	query := strings.Join(args, " ")
	chain := engine.GenerateReasoningChain(ctx, reasoning.Request{
		Query:     query,
		Context:   reasonContext,
		Iterative: reasonIterative,
	})

	switch reasonFormat {
	case "json":
		out, err := reasoning.FormatJSON(chain)
		if err != nil {
			return err
		}
		fmt.Println(out)
	case "markdown":
		fmt.Println(reasoning.FormatMarkdown(chain))
	case "html":
		fmt.Println(reasoning.FormatHTML(chain))
	default:
		fmt.Println(reasoning.FormatText(chain))
	}
	return nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	engine, st, err := buildEngine()
	if err != nil {
		return err
	}
	defer st.Close()

	analysis := engine.Analyze(strings.Join(args, " "), "")
	fmt.Printf("Reasoning type:  %s\n", analysis.ReasoningType)
	fmt.Printf("Intent:          %s\n", analysis.Intent)
	fmt.Printf("Complexity:      %.2f (level %d)\n", analysis.Complexity, analysis.ComplexityLevel)
	fmt.Printf("Domains:         %s\n", strings.Join(analysis.Domains, ", "))
	fmt.Printf("Topics:          %s\n", strings.Join(analysis.Topics, ", "))
	fmt.Printf("Entities:        %s\n", strings.Join(analysis.Entities, ", "))
	fmt.Printf("Multi-topic:     %t\n", analysis.RequiresMultiTopic)
	if len(analysis.DecomposedQueries) > 0 {
		fmt.Println("Sub-queries:")
		for _, q := range analysis.DecomposedQueries {
			fmt.Printf("  - %s\n", q)
		}
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	engine, st, err := buildEngine()
	if err != nil {
		return err
	}
	defer st.Close()

	count, err := st.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count knowledge items: %w", err)
	}
	stats := engine.Stats()
	fmt.Printf("Knowledge items:    %d\n", count)
	fmt.Printf("Chains generated:   %d\n", stats.ChainsGenerated)
	fmt.Printf("Total steps:        %d\n", stats.TotalSteps)
	fmt.Printf("Avg confidence:     %.2f\n", stats.AverageConfidence)
	fmt.Printf("Avg quality:        %.2f\n", stats.AverageQuality)
	fmt.Printf("Cache hits:         %d\n", stats.CacheHits)
	return nil
}

func init() {
	reasonCmd.Flags().BoolVar(&reasonIterative, "iterative", true, "retrieve fresh knowledge per reasoning step")
	reasonCmd.Flags().StringVar(&reasonFormat, "format", "text", "output format: text, json, markdown, html")
	reasonCmd.Flags().StringVar(&reasonContext, "context", "", "prior conversation context")
}

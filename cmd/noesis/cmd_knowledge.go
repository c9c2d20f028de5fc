// Knowledge base CLI commands: add, search, list, and relationship browsing.
package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"noesis/internal/store"
	"noesis/internal/types"
)

var (
	addTopic      string
	addTitle      string
	addSource     string
	addURL        string
	addConfidence float64
	searchTopic   string
	searchLimit   int
)

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge",
	Short: "Manage the knowledge base",
	Long: `Manage the noesis knowledge base.

Subcommands:
  add     - Add a knowledge item
  search  - Search knowledge by substring
  list    - List recent knowledge items`,
	RunE: runKnowledgeList,
}

var knowledgeAddCmd = &cobra.Command{
	Use:   "add <content>",
	Short: "Add a knowledge item",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runKnowledgeAdd,
}

var knowledgeSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search knowledge by substring match",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runKnowledgeSearch,
}

var knowledgeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent knowledge items",
	RunE:  runKnowledgeList,
}

var relationsCmd = &cobra.Command{
	Use:   "relations <topic>",
	Short: "List stored relationships for a topic",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRelations,
}

func runKnowledgeAdd(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	content := strings.Join(args, " ")
	title := addTitle
	if title == "" {
		title = truncateTitle(content)
	}
	id, err := st.Add(ctx, types.KnowledgeItem{
		Topic:      addTopic,
		Title:      title,
		Content:    content,
		Source:     addSource,
		URL:        addURL,
		Confidence: addConfidence,
	})
	if errors.Is(err, store.ErrDuplicate) {
		fmt.Println("Already known: identical content is stored.")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Printf("Stored knowledge item %d under topic %q.\n", id, addTopic)
	return nil
}

func runKnowledgeSearch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	items, err := st.Search(ctx, strings.Join(args, " "), searchTopic, searchLimit, 0)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("No knowledge found.")
		return nil
	}
	for _, it := range items {
		fmt.Printf("[%s] %s (source=%s confidence=%.2f)\n", it.Topic, it.Title, it.Source, it.Confidence)
		fmt.Printf("    %s\n", truncateTitle(it.Content))
	}
	return nil
}

func runKnowledgeList(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	items, err := st.Recent(ctx, searchLimit)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("No knowledge items stored.")
		return nil
	}
	for _, it := range items {
		fmt.Printf("[%s] %s (%s)\n", it.Topic, it.Title, it.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func runRelations(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	rels, err := st.Get(ctx, strings.Join(args, " "), "")
	if err != nil {
		return err
	}
	if len(rels) == 0 {
		fmt.Println("No relationships stored for that topic.")
		return nil
	}
	for _, r := range rels {
		fmt.Printf("%s -[%s]-> %s (strength=%.2f)\n", r.Topic1, r.Type, r.Topic2, r.Strength)
	}
	return nil
}

func truncateTitle(content string) string {
	content = strings.TrimSpace(content)
	if len(content) <= 80 {
		return content
	}
	return content[:80] + "..."
}

func init() {
	knowledgeCmd.AddCommand(knowledgeAddCmd)
	knowledgeCmd.AddCommand(knowledgeSearchCmd)
	knowledgeCmd.AddCommand(knowledgeListCmd)

	knowledgeAddCmd.Flags().StringVar(&addTopic, "topic", "general", "topic the item belongs to")
	knowledgeAddCmd.Flags().StringVar(&addTitle, "title", "", "item title (defaults to a content prefix)")
	knowledgeAddCmd.Flags().StringVar(&addSource, "source", "manual", "knowledge source tag")
	knowledgeAddCmd.Flags().StringVar(&addURL, "url", "", "source URL")
	knowledgeAddCmd.Flags().Float64Var(&addConfidence, "confidence", 0.8, "confidence in [0,1]")
	knowledgeSearchCmd.Flags().StringVar(&searchTopic, "topic", "", "restrict search to a topic")
	knowledgeSearchCmd.Flags().IntVar(&searchLimit, "limit", 20, "max results")
	knowledgeListCmd.Flags().IntVar(&searchLimit, "limit", 20, "max results")
}

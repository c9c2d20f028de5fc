// Package retrieval implements multi-topic knowledge retrieval: topic
// identification from a query, then a bounded concurrent fan-out of
// knowledge-store lookups, one per topic, each re-scored against the
// original query. One topic's failure degrades to an empty result for that
// topic only; it never aborts sibling lookups or the overall call.
package retrieval

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"noesis/internal/analyzer"
	"noesis/internal/logging"
	"noesis/internal/relevance"
	"noesis/internal/types"
)

// maxPoolSize caps the fan-out worker pool regardless of topic count.
const maxPoolSize = 5

// KnowledgeSearcher is the knowledge-store lookup boundary, the only
// suspension point in the pipeline.
type KnowledgeSearcher interface {
	Search(ctx context.Context, query, topic string, limit int, minConfidence float64) ([]types.KnowledgeItem, error)
}

// Config holds retriever tunables.
type Config struct {
	MaxTopics       int           // topics kept after identification
	MaxPerTopic     int           // items kept per topic after re-scoring
	PerTopicTimeout time.Duration // independent timeout per store lookup
	MinConfidence   float64       // store-side confidence floor
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxTopics:       5,
		MaxPerTopic:     5,
		PerTopicTimeout: 10 * time.Second,
		MinConfidence:   0.0,
	}
}

// Retriever identifies topics and fans out knowledge lookups.
type Retriever struct {
	searcher KnowledgeSearcher
	analyzer *analyzer.Analyzer
	scorer   *relevance.Scorer
	cfg      Config
}

// New creates a Retriever. searcher must be non-nil; scorer defaults to the
// production weights when nil.
func New(searcher KnowledgeSearcher, a *analyzer.Analyzer, scorer *relevance.Scorer, cfg Config) *Retriever {
	if a == nil {
		a = analyzer.New()
	}
	if scorer == nil {
		scorer = relevance.NewDefaultScorer()
	}
	if cfg.MaxTopics <= 0 {
		cfg.MaxTopics = DefaultConfig().MaxTopics
	}
	if cfg.MaxPerTopic <= 0 {
		cfg.MaxPerTopic = DefaultConfig().MaxPerTopic
	}
	if cfg.PerTopicTimeout <= 0 {
		cfg.PerTopicTimeout = DefaultConfig().PerTopicTimeout
	}
	return &Retriever{searcher: searcher, analyzer: a, scorer: scorer, cfg: cfg}
}

// =============================================================================
// TOPIC IDENTIFICATION
// =============================================================================

// IdentifyTopics unions the analyzer's topics and entities, deduplicates
// case-insensitively, scores each candidate against the query, and returns
// the top maxTopics by descending relevance. maxTopics <= 0 uses the
// configured default.
func (r *Retriever) IdentifyTopics(query string, maxTopics int) []types.TopicInfo {
	timer := logging.StartTimer(logging.CategoryRetrieval, "IdentifyTopics")
	defer timer.Stop()

	if maxTopics <= 0 {
		maxTopics = r.cfg.MaxTopics
	}

	analysis := r.analyzer.Analyze(query, "")
	seen := make(map[string]bool)
	var candidates []string
	for _, t := range append(append([]string{}, analysis.Topics...), analysis.Entities...) {
		key := strings.ToLower(strings.TrimSpace(t))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		candidates = append(candidates, t)
	}

	queryLower := strings.ToLower(query)
	queryDomain := analyzer.DomainOf(query)
	queryWords := wordSet(queryLower)

	infos := make([]types.TopicInfo, 0, len(candidates))
	for _, topic := range candidates {
		topicLower := strings.ToLower(topic)
		var score float64

		// Exact substring presence in the query.
		if strings.Contains(queryLower, topicLower) {
			score += 0.5
		}

		// Fraction of the topic's words appearing in the query.
		topicWords := strings.Fields(topicLower)
		if len(topicWords) > 0 {
			overlap := 0
			for _, w := range topicWords {
				if queryWords[w] {
					overlap++
				}
			}
			score += 0.3 * float64(overlap) / float64(len(topicWords))
		}

		// Multi-word topics of a useful size are preferred.
		if len(topicWords) >= 2 && len(topicWords) <= 4 {
			score += 0.2
		}

		domain := analyzer.DomainOf(topic)
		if domain != "" && domain == queryDomain {
			score += 0.1
		}

		infos = append(infos, types.TopicInfo{
			Topic:          topicLower,
			Domain:         domain,
			RelevanceScore: types.Clamp01(score),
		})
	}

	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].RelevanceScore > infos[j].RelevanceScore
	})
	if len(infos) > maxTopics {
		infos = infos[:maxTopics]
	}
	logging.Debugf(logging.CategoryRetrieval, "identified %d topics for query", len(infos))
	return infos
}

// =============================================================================
// MULTI-TOPIC RETRIEVAL
// =============================================================================

// RetrieveMultiTopic looks up knowledge for each topic and re-scores every
// returned item against the original query (not the topic), keeping the top
// maxPerTopic per topic ordered by descending relevance. When parallel, the
// fan-out runs over a worker pool sized min(len(topics), 5). Topics whose
// lookup fails map to an empty list.
func (r *Retriever) RetrieveMultiTopic(ctx context.Context, query string, topics []types.TopicInfo, maxPerTopic int, parallel bool) map[string][]types.KnowledgeItem {
	timer := logging.StartTimer(logging.CategoryRetrieval, "RetrieveMultiTopic")
	defer timer.Stop()

	if maxPerTopic <= 0 {
		maxPerTopic = r.cfg.MaxPerTopic
	}
	results := make(map[string][]types.KnowledgeItem, len(topics))
	if len(topics) == 0 {
		return results
	}

	if !parallel {
		for _, t := range topics {
			results[t.Topic] = r.retrieveOne(ctx, query, t.Topic, maxPerTopic)
		}
		return results
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	poolSize := len(topics)
	if poolSize > maxPoolSize {
		poolSize = maxPoolSize
	}
	g.SetLimit(poolSize)

	for _, t := range topics {
		topic := t.Topic
		g.Go(func() error {
			items := r.retrieveOne(gctx, query, topic, maxPerTopic)
			mu.Lock()
			results[topic] = items
			mu.Unlock()
			return nil // per-topic failures never propagate
		})
	}
	_ = g.Wait()
	return results
}

// retrieveOne performs one store lookup with an independent timeout and
// re-ranks the hits against the original query. Failures log and return nil.
func (r *Retriever) retrieveOne(ctx context.Context, query, topic string, maxPerTopic int) []types.KnowledgeItem {
	lookupCtx, cancel := context.WithTimeout(ctx, r.cfg.PerTopicTimeout)
	defer cancel()

	// Over-fetch so re-scoring has material to rank.
	items, err := r.searcher.Search(lookupCtx, topic, topic, maxPerTopic*4, r.cfg.MinConfidence)
	if err != nil {
		logging.Warnf(logging.CategoryRetrieval, "retrieval failed for topic %q: %v", topic, err)
		return nil
	}
	if len(items) == 0 {
		return nil
	}

	type scored struct {
		item  types.KnowledgeItem
		score float64
	}
	ranked := make([]scored, 0, len(items))
	for _, it := range items {
		ranked = append(ranked, scored{item: it, score: r.scorer.Score(query, it, types.IntentGeneral)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > maxPerTopic {
		ranked = ranked[:maxPerTopic]
	}
	out := make([]types.KnowledgeItem, len(ranked))
	for i, s := range ranked {
		out[i] = s.item
	}
	return out
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		set[w] = true
	}
	return set
}

package retrieval

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"noesis/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeSearcher serves canned items per topic and fails on demand.
type fakeSearcher struct {
	mu      sync.Mutex
	calls   int
	items   map[string][]types.KnowledgeItem
	failFor map[string]bool
	block   time.Duration
}

func (f *fakeSearcher) Search(ctx context.Context, query, topic string, limit int, minConfidence float64) ([]types.KnowledgeItem, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.block > 0 {
		select {
		case <-time.After(f.block):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.failFor[topic] {
		return nil, errors.New("store unavailable")
	}
	items := f.items[topic]
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (f *fakeSearcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestIdentifyTopicsCrossDomainQuery(t *testing.T) {
	r := New(&fakeSearcher{}, nil, nil, Config{})
	topics := r.IdentifyTopics("How does climate change affect economic policy?", 0)

	if len(topics) < 2 {
		t.Fatalf("identified %d topics, want at least 2: %v", len(topics), topics)
	}
	byTopic := make(map[string]types.TopicInfo, len(topics))
	for _, ti := range topics {
		byTopic[ti.Topic] = ti
	}
	cc, ok := byTopic["climate change"]
	if !ok {
		t.Fatalf("missing topic 'climate change' in %v", topics)
	}
	ep, ok := byTopic["economic policy"]
	if !ok {
		t.Fatalf("missing topic 'economic policy' in %v", topics)
	}
	if cc.Domain != "environment" {
		t.Errorf("climate change domain = %q, want environment", cc.Domain)
	}
	if ep.Domain != "economics" {
		t.Errorf("economic policy domain = %q, want economics", ep.Domain)
	}
	for _, ti := range topics {
		if ti.RelevanceScore < 0 || ti.RelevanceScore > 1 {
			t.Errorf("topic %q relevance %v out of [0,1]", ti.Topic, ti.RelevanceScore)
		}
	}
}

func TestIdentifyTopicsRespectsLimit(t *testing.T) {
	r := New(&fakeSearcher{}, nil, nil, Config{})
	topics := r.IdentifyTopics("climate change, economic policy, renewable energy, public health, social media, machine learning", 3)
	if len(topics) > 3 {
		t.Errorf("got %d topics, want at most 3", len(topics))
	}
}

func TestRetrieveMultiTopicFailureIsolation(t *testing.T) {
	searcher := &fakeSearcher{
		items: map[string][]types.KnowledgeItem{
			"good": {{Topic: "good", Title: "Good topic overview", Content: "Detailed knowledge about the good topic and its good properties.", Confidence: 0.9}},
		},
		failFor: map[string]bool{"bad": true},
	}
	r := New(searcher, nil, nil, Config{})

	topics := []types.TopicInfo{{Topic: "good"}, {Topic: "bad"}}
	results := r.RetrieveMultiTopic(context.Background(), "good topic", topics, 5, true)

	if len(results["good"]) == 0 {
		t.Error("healthy topic should return items despite a failing sibling")
	}
	if len(results["bad"]) != 0 {
		t.Errorf("failed topic should map to empty, got %v", results["bad"])
	}
	if _, ok := results["bad"]; !ok {
		t.Error("failed topic should still be present in the result map")
	}
}

func TestRetrieveMultiTopicSequentialMatchesParallel(t *testing.T) {
	items := map[string][]types.KnowledgeItem{
		"alpha": {{Topic: "alpha", Title: "Alpha", Content: "Everything about alpha in depth and detail.", Confidence: 0.8}},
		"beta":  {{Topic: "beta", Title: "Beta", Content: "Everything about beta in depth and detail.", Confidence: 0.7}},
	}
	topics := []types.TopicInfo{{Topic: "alpha"}, {Topic: "beta"}}

	seq := New(&fakeSearcher{items: items}, nil, nil, Config{}).
		RetrieveMultiTopic(context.Background(), "alpha beta", topics, 5, false)
	par := New(&fakeSearcher{items: items}, nil, nil, Config{}).
		RetrieveMultiTopic(context.Background(), "alpha beta", topics, 5, true)

	if len(seq) != len(par) {
		t.Fatalf("sequential found %d topics, parallel %d", len(seq), len(par))
	}
	for topic, items := range seq {
		if len(par[topic]) != len(items) {
			t.Errorf("topic %q: sequential %d items, parallel %d", topic, len(items), len(par[topic]))
		}
	}
}

func TestRetrieveMultiTopicEmptyTopics(t *testing.T) {
	searcher := &fakeSearcher{}
	r := New(searcher, nil, nil, Config{})
	results := r.RetrieveMultiTopic(context.Background(), "query", nil, 5, true)
	if len(results) != 0 {
		t.Errorf("no topics should yield no results, got %v", results)
	}
	if searcher.callCount() != 0 {
		t.Errorf("no topics should trigger no lookups, got %d", searcher.callCount())
	}
}

func TestRetrieveOneHonorsPerTopicTimeout(t *testing.T) {
	searcher := &fakeSearcher{block: 500 * time.Millisecond}
	r := New(searcher, nil, nil, Config{PerTopicTimeout: 20 * time.Millisecond})

	start := time.Now()
	results := r.RetrieveMultiTopic(context.Background(), "slow", []types.TopicInfo{{Topic: "slow"}}, 5, true)
	if elapsed := time.Since(start); elapsed > 300*time.Millisecond {
		t.Errorf("lookup was not cut off by the per-topic timeout, took %s", elapsed)
	}
	if len(results["slow"]) != 0 {
		t.Errorf("timed-out topic should be empty, got %v", results["slow"])
	}
}

func TestRetrieveOneCapsPerTopicResults(t *testing.T) {
	var many []types.KnowledgeItem
	for _, suffix := range []string{"one", "two", "three", "four", "five", "six", "seven"} {
		many = append(many, types.KnowledgeItem{
			Topic:      "news",
			Title:      "News item " + suffix,
			Content:    "Coverage of the news story " + suffix + " with enough words to rank.",
			Confidence: 0.5,
		})
	}
	searcher := &fakeSearcher{items: map[string][]types.KnowledgeItem{"news": many}}
	r := New(searcher, nil, nil, Config{})

	results := r.RetrieveMultiTopic(context.Background(), "news", []types.TopicInfo{{Topic: "news"}}, 2, true)
	if len(results["news"]) != 2 {
		t.Errorf("got %d items, want the per-topic cap of 2", len(results["news"]))
	}
}

func TestRetrieveOneRanksAgainstOriginalQuery(t *testing.T) {
	searcher := &fakeSearcher{items: map[string][]types.KnowledgeItem{
		"climate change": {
			{Topic: "climate change", Title: "Unrelated aside", Content: "A tangential note that barely mentions the subject once in passing text here.", Confidence: 0.9},
			{Topic: "climate change", Title: "Climate change effects", Content: "Climate change effects include rising sea levels and stronger storms worldwide.", Confidence: 0.5},
		},
	}}
	r := New(searcher, nil, nil, Config{})

	results := r.RetrieveMultiTopic(context.Background(), "climate change effects",
		[]types.TopicInfo{{Topic: "climate change"}}, 2, false)

	got := results["climate change"]
	if len(got) != 2 {
		t.Fatalf("got %d items, want 2", len(got))
	}
	if !strings.Contains(got[0].Title, "Climate change") {
		t.Errorf("re-scoring against the query should rank the on-topic item first, got %q", got[0].Title)
	}
}

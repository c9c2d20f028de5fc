package relmap

import (
	"context"
	"testing"

	"noesis/internal/types"
)

// memStore records upserts for graph tests.
type memStore struct {
	upserts []types.Relationship
}

func (m *memStore) Upsert(_ context.Context, rel types.Relationship) error {
	m.upserts = append(m.upserts, rel)
	return nil
}

func (m *memStore) Get(_ context.Context, topic string, rtype types.RelationshipType) ([]types.Relationship, error) {
	var out []types.Relationship
	for _, r := range m.upserts {
		if (r.Topic1 == topic || r.Topic2 == topic) && (rtype == "" || r.Type == rtype) {
			out = append(out, r)
		}
	}
	return out, nil
}

func TestExtractCausalRelationship(t *testing.T) {
	m := New()
	items := []types.KnowledgeItem{{
		Title:   "Stress and sleep",
		Content: "Chronic stress causes insomnia in many adults.",
	}}
	rels := m.ExtractRelationships(items, []string{"stress", "insomnia"})
	if len(rels) != 1 {
		t.Fatalf("extracted %d relationships, want 1: %v", len(rels), rels)
	}
	r := rels[0]
	if r.Topic1 != "stress" || r.Topic2 != "insomnia" {
		t.Errorf("direction = %s -> %s, want stress -> insomnia", r.Topic1, r.Topic2)
	}
	if r.Type != types.RelCausal {
		t.Errorf("type = %s, want causal", r.Type)
	}
	if r.Strength < 0.5 || r.Strength > 1 {
		t.Errorf("strength = %v, want within [0.5, 1]", r.Strength)
	}
	if r.Evidence == "" {
		t.Error("evidence should carry the matched phrase")
	}
}

func TestExtractDeduplicatesUnorderedPair(t *testing.T) {
	m := New()
	items := []types.KnowledgeItem{{
		Title:   "Stress",
		Content: "Stress causes insomnia. Insomnia is caused by stress.",
	}}
	rels := m.ExtractRelationships(items, []string{"stress", "insomnia"})
	if len(rels) != 1 {
		t.Fatalf("both directions of the same pair must collapse to one, got %d: %v", len(rels), rels)
	}
	if rels[0].Topic1 != "stress" || rels[0].Topic2 != "insomnia" {
		t.Errorf("normalized direction = %s -> %s, want stress -> insomnia", rels[0].Topic1, rels[0].Topic2)
	}
}

func TestExtractBackwardPatternSwapsTopics(t *testing.T) {
	m := New()
	items := []types.KnowledgeItem{{
		Title:   "Hierarchy",
		Content: "Biology includes genetics as a subfield.",
	}}
	rels := m.ExtractRelationships(items, []string{"biology", "genetics"})
	if len(rels) != 1 {
		t.Fatalf("extracted %d relationships, want 1", len(rels))
	}
	// "X includes Y" is hierarchical with Y under X, so topic1 is the child.
	if rels[0].Type != types.RelHierarchical {
		t.Errorf("type = %s, want hierarchical", rels[0].Type)
	}
	if rels[0].Topic1 != "genetics" || rels[0].Topic2 != "biology" {
		t.Errorf("direction = %s -> %s, want genetics -> biology", rels[0].Topic1, rels[0].Topic2)
	}
}

func TestExtractIgnoresSelfAndUnresolvedPhrases(t *testing.T) {
	m := New()
	items := []types.KnowledgeItem{{
		Title:   "Noise",
		Content: "Heat causes expansion. Stress causes stress.",
	}}
	rels := m.ExtractRelationships(items, []string{"stress", "insomnia"})
	if len(rels) != 0 {
		t.Errorf("self-links and unresolved captures must be dropped, got %v", rels)
	}
}

func TestResolveTopicByContainment(t *testing.T) {
	topics := []string{"climate change", "economic policy"}
	if got := resolveTopic("global climate change", topics); got != "climate change" {
		t.Errorf("resolveTopic = %q, want containment match", got)
	}
	if got := resolveTopic("gardening", topics); got != "" {
		t.Errorf("resolveTopic = %q, want no match", got)
	}
}

func TestStrengthForRepeatedTopics(t *testing.T) {
	text := "stress causes insomnia. stress and insomnia form a cycle where one triggers the other."
	repeated := strengthFor(types.RelCausal, "stress", "insomnia", text)
	single := strengthFor(types.RelCausal, "stress", "insomnia", "stress causes insomnia.")
	if repeated <= single {
		t.Errorf("repeated mentions should strengthen the link: %v <= %v", repeated, single)
	}
}

func TestBuildRelationshipGraphMirrorsBidirectional(t *testing.T) {
	m := New()
	store := &memStore{}
	knowledge := map[string][]types.KnowledgeItem{
		"inflation": {{
			Title:   "Macro links",
			Content: "Inflation is closely related to unemployment in the short run.",
		}},
	}
	graph := m.BuildRelationshipGraph(context.Background(), []string{"inflation", "unemployment"}, knowledge, store)

	if len(graph["inflation"]) != 1 {
		t.Fatalf("graph[inflation] = %v, want one edge", graph["inflation"])
	}
	if len(graph["unemployment"]) != 1 {
		t.Fatalf("associative edges must be mirrored, graph[unemployment] = %v", graph["unemployment"])
	}
	if graph["unemployment"][0].Topic1 != "unemployment" {
		t.Errorf("mirrored edge should originate at unemployment: %+v", graph["unemployment"][0])
	}
	if len(store.upserts) != 1 {
		t.Errorf("persisted %d relationships, want 1 (mirror is in-memory only)", len(store.upserts))
	}
}

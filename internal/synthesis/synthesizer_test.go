package synthesis

import (
	"strings"
	"testing"

	"noesis/internal/types"
)

func TestSynthesizeMergesTopicsInOrder(t *testing.T) {
	s := New(nil)
	knowledge := map[string][]types.KnowledgeItem{
		"economics": {{
			Title:   "Inflation",
			Content: "Inflation erodes purchasing power across the economy over time.",
		}},
		"climate": {{
			Title:   "Warming",
			Content: "Global warming raises average temperatures and disrupts weather patterns.",
		}},
	}

	res := s.Synthesize(knowledge, "climate and economics", "")

	if res.TotalItems != 2 {
		t.Errorf("total items = %d, want 2", res.TotalItems)
	}
	if len(res.TopicsCovered) != 2 || res.TopicsCovered[0] != "climate" {
		t.Errorf("topics covered = %v, want sorted [climate economics]", res.TopicsCovered)
	}
	climateIdx := strings.Index(res.SynthesizedContext, "## climate")
	econIdx := strings.Index(res.SynthesizedContext, "## economics")
	if climateIdx < 0 || econIdx < 0 || climateIdx > econIdx {
		t.Errorf("context sections missing or out of order:\n%s", res.SynthesizedContext)
	}
	if res.QualityScore < 0 || res.QualityScore > 1 {
		t.Errorf("quality score %v out of [0,1]", res.QualityScore)
	}
}

func TestSynthesizePrependsPreviousContext(t *testing.T) {
	s := New(nil)
	res := s.Synthesize(map[string][]types.KnowledgeItem{
		"topic": {{Title: "T", Content: "Some knowledge content for the topic."}},
	}, "query", "earlier findings")

	if !strings.HasPrefix(res.SynthesizedContext, "Previous context: earlier findings") {
		t.Errorf("previous context header missing:\n%s", res.SynthesizedContext)
	}
}

func TestSynthesizeDetectsCrossTopicRelationships(t *testing.T) {
	s := New(nil)
	knowledge := map[string][]types.KnowledgeItem{
		"climate change": {{
			Title:   "Impact",
			Content: "Climate change affects economic policy through disaster recovery costs.",
		}},
		"economic policy": {{
			Title:   "Policy",
			Content: "Economic policy sets fiscal and monetary responses to shocks.",
		}},
	}

	res := s.Synthesize(knowledge, "climate change and economic policy", "")

	if len(res.Relationships) == 0 {
		t.Fatal("expected a causal relationship between the topic pair")
	}
	rel := res.Relationships[0]
	if rel.Type != types.RelCausal {
		t.Errorf("relationship type = %s, want causal", rel.Type)
	}
	if !strings.Contains(res.SynthesizedContext, "Relationships between topics:") {
		t.Errorf("relationship section missing:\n%s", res.SynthesizedContext)
	}
}

func TestDetectConflicts(t *testing.T) {
	knowledge := map[string][]types.KnowledgeItem{
		"medicine": {
			{Title: "Vaccine efficacy", Content: "The vaccine is effective against the virus in adults according to the trial."},
			{Title: "Vaccine efficacy", Content: "The vaccine is not effective against the virus in adults according to critics."},
		},
	}
	conflicts := detectConflicts(knowledge)
	if len(conflicts) != 1 {
		t.Fatalf("detected %d conflicts, want 1: %v", len(conflicts), conflicts)
	}
	c := conflicts[0]
	if c.Topic != "medicine" || c.Title != "vaccine efficacy" {
		t.Errorf("conflict keyed wrong: %+v", c)
	}
	if !strings.Contains(c.Negation, "not effective") {
		t.Errorf("negation side misassigned: %+v", c)
	}
}

func TestDetectConflictsIgnoresDifferentConcepts(t *testing.T) {
	knowledge := map[string][]types.KnowledgeItem{
		"history": {
			{Title: "Rome", Content: "The empire expanded north under successive campaigns."},
			{Title: "Rome", Content: "Trade routes did not always follow military roads."},
		},
	}
	if conflicts := detectConflicts(knowledge); len(conflicts) != 0 {
		t.Errorf("texts without shared concept words must not conflict: %v", conflicts)
	}
}

func TestSynthesizeEmptyKnowledge(t *testing.T) {
	s := New(nil)
	res := s.Synthesize(map[string][]types.KnowledgeItem{}, "query", "")
	if res.TotalItems != 0 || res.SynthesizedContext != "" {
		t.Errorf("empty input should synthesize nothing: %+v", res)
	}
	if res.QualityScore != 0 {
		t.Errorf("quality of empty synthesis = %v, want 0", res.QualityScore)
	}
}

func TestQualityScoreRewardsCoverage(t *testing.T) {
	richContext := strings.Repeat("knowledge text ", 30) // ~450 chars, inside the sweet spot
	rich := qualityScore(richContext, 2, 0, 5)
	poor := qualityScore("tiny", 0, 0, 0)
	if rich <= poor {
		t.Errorf("rich synthesis should outscore poor: %v <= %v", rich, poor)
	}
	if rich < 0.5 {
		t.Errorf("rich synthesis score = %v, want >= 0.5", rich)
	}
}

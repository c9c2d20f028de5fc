package relevance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"noesis/internal/types"
)

func TestScoreRejectsQualifiedVariant(t *testing.T) {
	s := NewDefaultScorer()
	item := types.KnowledgeItem{
		Topic:   "physics",
		Title:   "Game Physics Engine",
		Content: "The game physics engine simulates rigid bodies and collision response for gameplay.",
	}
	got := s.Score("What is physics?", item, types.IntentDefinition)
	assert.Zero(t, got, "a general-concept query must reject the qualified variant")

	// A query explicitly about the variant is allowed to match it.
	got = s.Score("how does game physics work", item, types.IntentGeneral)
	assert.Greater(t, got, 0.0)
}

func TestScoreAcceptsGenuineMatch(t *testing.T) {
	s := NewDefaultScorer()
	item := types.KnowledgeItem{
		Topic:   "physics",
		Title:   "Physics",
		Content: "Physics is the natural science that studies matter, energy, and the fundamental forces of nature.",
	}
	got := s.Score("What is physics?", item, types.IntentDefinition)
	assert.Greater(t, got, 0.5, "direct title match plus category overlap should score high")
}

func TestScoreRejectsDisjointCategories(t *testing.T) {
	s := NewDefaultScorer()
	item := types.KnowledgeItem{
		Title:   "Parliament election results",
		Content: "The government held an election and the parliament passed legislation before the vote.",
	}
	got := s.Score("quantum physics experiment energy theory explained", item, types.IntentGeneral)
	assert.Zero(t, got, "substantive query with disjoint categories must be rejected")
}

func TestScoreRejectsMediaContentForNonMediaQuery(t *testing.T) {
	s := NewDefaultScorer()
	item := types.KnowledgeItem{
		Title:   "The greatest game movie film moments",
		Content: "A countdown of memorable moments across entertainment franchises.",
	}
	got := s.Score("what is consciousness", item, types.IntentGeneral)
	assert.Zero(t, got, "entertainment content must not match a query without media intent")
}

func TestScoreEmptyQuery(t *testing.T) {
	s := NewDefaultScorer()
	got := s.Score("  ", types.KnowledgeItem{Title: "anything"}, types.IntentGeneral)
	assert.Zero(t, got)
}

func TestScoreBiographicalPenalty(t *testing.T) {
	s := NewDefaultScorer()
	about := types.KnowledgeItem{
		Title:   "Marie Curie",
		Content: "Marie Curie was a physicist born in Warsaw, known for her research on radioactivity.",
	}
	unrelated := types.KnowledgeItem{
		Title:   "Radioactivity basics",
		Content: "Radioactivity is the spontaneous emission of radiation from unstable atomic nuclei over time.",
	}
	q := "who is marie curie"
	assert.Greater(t, s.Score(q, about, types.IntentBiographical),
		s.Score(q, unrelated, types.IntentBiographical),
		"content naming the person should outrank content that never mentions the surname")
}

func TestFilterByRelevanceQualityGate(t *testing.T) {
	s := NewDefaultScorer()
	solid := types.KnowledgeItem{
		Title:  "Climate change",
		Source: "encyclopedia",
		Content: "Climate change refers to long-term shifts in temperatures and weather patterns, " +
			"driven primarily by human emissions of greenhouse gases since the industrial era began.",
	}
	thinForum := types.KnowledgeItem{
		Title:   "Climate change",
		Source:  "forum",
		Content: "climate change is bad",
	}
	thinLowQuality := types.KnowledgeItem{
		Title:        "Climate change",
		Source:       "encyclopedia",
		Content:      "climate change note",
		QualityScore: 0.2,
	}

	got := s.FilterByRelevance("climate change effects",
		[]types.KnowledgeItem{thinForum, solid, thinLowQuality}, types.IntentGeneral, 0)

	if assert.Len(t, got, 1, "thin untrusted content must be excluded regardless of lexical match") {
		assert.Equal(t, solid.Content, got[0].Content)
	}
}

func TestFilterByRelevanceOrdersByScore(t *testing.T) {
	s := NewDefaultScorer()
	strong := types.KnowledgeItem{
		Title:  "Climate change",
		Source: "encyclopedia",
		Content: "Climate change effects include rising sea levels, stronger storms, and shifting " +
			"agricultural zones across every inhabited continent of the planet.",
	}
	weak := types.KnowledgeItem{
		Title:  "Weather",
		Source: "encyclopedia",
		Content: "Weather describes short-term atmospheric conditions, while climate describes the " +
			"long-term average of those conditions over decades in a region.",
	}

	got := s.FilterByRelevance("climate change effects",
		[]types.KnowledgeItem{weak, strong}, types.IntentGeneral, 0)

	if assert.Len(t, got, 2) {
		assert.Equal(t, strong.Title, got[0].Title, "higher-scoring item must come first")
	}
}

func TestMinScoreThresholdIsMonotonic(t *testing.T) {
	s := NewDefaultScorer()
	items := []types.KnowledgeItem{
		{Title: "Climate change", Source: "encyclopedia", Content: "Climate change effects include rising sea levels and stronger storms across many regions of the world today."},
		{Title: "Cooking pasta", Source: "encyclopedia", Content: "Boil water with salt, add the pasta, and stir occasionally until it reaches the desired texture."},
	}
	loose := s.FilterByRelevance("climate change effects", items, types.IntentGeneral, 0)
	strict := s.FilterByRelevance("climate change effects", items, types.IntentGeneral, 0.6)
	assert.GreaterOrEqual(t, len(loose), len(strict), "raising minScore must never add results")
}

func TestContainsWord(t *testing.T) {
	assert.True(t, containsWord("the game is on", "game"))
	assert.False(t, containsWord("endgame strategies", "game"), "substring inside a word must not count")
	assert.True(t, containsWord("game over", "game"))
}

func TestMeaningfulWords(t *testing.T) {
	got := meaningfulWords("What is the Meaning of Life, the universe and everything?")
	assert.Contains(t, got, "meaning")
	assert.Contains(t, got, "life")
	assert.NotContains(t, got, "the")
	assert.NotContains(t, got, "is")

	// First occurrence order, deduplicated.
	assert.Equal(t, "meaning", got[0])
}

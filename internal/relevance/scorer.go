// Package relevance scores (query, knowledge item) pairs. The scorer is a
// pure function over its inputs: additive lexical/category bonuses followed
// by multiplicative intent penalties and two hard-rejection filters. The
// individual weights are empirically tuned; they live in Weights so callers
// can override them without touching scoring logic.
package relevance

import (
	"sort"
	"strings"

	"noesis/internal/types"
)

// =============================================================================
// WEIGHTS
// =============================================================================

// Weights holds every tunable constant in the scoring formula. The defaults
// are the production-tuned values; retuning requires a labeled corpus.
type Weights struct {
	MutualSubstring   float64 // query/title mutual containment
	CategoryOverlap   float64 // topic-category set intersection
	TitleWordOverlap  float64 // per shared meaningful word with title
	ContentWordOverlap float64 // per shared meaningful word with content head

	PositionalTitle   float64 // top query word found in title
	PositionalLead    float64 // top query word in first 100 chars
	PositionalBody    float64 // top query word elsewhere in content

	IdentityMarkerMax float64 // cap for biographical identity-marker bonus

	// Multiplicative penalties for intent mismatches.
	BiographicalMissPenalty  float64 // surname absent from title and lead
	TriviaDominancePenalty   float64 // trivia markers dominate an identity query
	DefinitionMissPenalty    float64 // entity absent from content lead
	PhilosophicalMissPenalty float64 // no philosophical vocabulary present

	// Entertainment/media off-topic filter.
	MediaIndicatorThreshold float64

	ContentHeadLen int // chars of content considered for word overlap
	LeadLen        int // chars of content treated as the "lead"
}

// DefaultWeights returns the tuned production weights.
func DefaultWeights() Weights {
	return Weights{
		MutualSubstring:          0.5,
		CategoryOverlap:          0.3,
		TitleWordOverlap:         0.15,
		ContentWordOverlap:       0.05,
		PositionalTitle:          0.1,
		PositionalLead:           0.05,
		PositionalBody:           0.02,
		IdentityMarkerMax:        0.5,
		BiographicalMissPenalty:  0.3,
		TriviaDominancePenalty:   0.4,
		DefinitionMissPenalty:    0.5,
		PhilosophicalMissPenalty: 0.1,
		MediaIndicatorThreshold:  2.5,
		ContentHeadLen:           500,
		LeadLen:                  100,
	}
}

// =============================================================================
// TOPIC CATEGORIES
// =============================================================================

// topicCategory maps a category name to its cue words. The table is ordered;
// ties in category matching resolve to the earlier entry.
type topicCategory struct {
	name     string
	keywords []string
}

var topicCategories = []topicCategory{
	{"science", []string{"physics", "chemistry", "biology", "quantum", "energy", "theory", "experiment", "scientific", "particle", "evolution"}},
	{"technology", []string{"computer", "software", "algorithm", "network", "internet", "digital", "machine", "data", "programming", "ai"}},
	{"philosophy", []string{"philosophy", "ethics", "consciousness", "existence", "metaphysics", "epistemology", "moral", "meaning", "truth", "logic"}},
	{"history", []string{"history", "war", "ancient", "century", "empire", "revolution", "historical", "era", "dynasty", "civilization"}},
	{"economics", []string{"economy", "economic", "market", "trade", "finance", "money", "inflation", "investment", "gdp", "policy"}},
	{"environment", []string{"climate", "environment", "ecosystem", "pollution", "sustainability", "carbon", "warming", "biodiversity", "renewable", "emission"}},
	{"medicine", []string{"health", "disease", "medical", "treatment", "patient", "drug", "symptom", "diagnosis", "therapy", "vaccine"}},
	{"arts", []string{"art", "music", "painting", "literature", "poetry", "sculpture", "artist", "novel", "composer", "aesthetic"}},
	{"entertainment", []string{"game", "movie", "film", "player", "gameplay", "video", "show", "episode", "character", "franchise"}},
	{"politics", []string{"government", "election", "political", "democracy", "parliament", "legislation", "president", "vote", "party", "senate"}},
}

// entertainment/media indicators with weights, used by the off-topic filter.
var mediaIndicators = map[string]float64{
	"game": 1.0, "gameplay": 1.0, "player": 0.8, "level": 0.5,
	"movie": 1.0, "film": 1.0, "episode": 0.8, "season": 0.6,
	"character": 0.6, "franchise": 0.8, "console": 0.8, "dlc": 1.0,
	"multiplayer": 1.0, "soundtrack": 0.6, "trailer": 0.8,
}

// qualifiers that narrow a general concept into a niche variant. A general
// query must not match content about the qualified variant (Scenario: a
// "what is physics" query against "game physics" content).
var narrowingQualifiers = []string{"game", "video", "gameplay", "simulation", "cartoon", "fictional"}

var identityMarkers = []string{
	"born", "birth", "profession", "physicist", "philosopher", "scientist",
	"author", "writer", "politician", "composer", "mathematician",
	"american", "british", "german", "french", "italian", "russian",
	"nationality", "known for", "famous for",
}

var triviaMarkers = []string{"trivia", "fun fact", "cameo", "appeared in", "easter egg", "pop culture"}

var philosophicalVocabulary = []string{
	"meaning", "existence", "consciousness", "ethics", "morality", "metaphysics",
	"epistemology", "ontology", "purpose", "virtue", "truth", "being",
}

// =============================================================================
// SCORER
// =============================================================================

// Scorer computes relevance scores. It is stateless and safe for concurrent use.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer with the given weights.
func NewScorer(w Weights) *Scorer {
	return &Scorer{weights: w}
}

// NewDefaultScorer creates a scorer with the production weights.
func NewDefaultScorer() *Scorer {
	return &Scorer{weights: DefaultWeights()}
}

// Score rates how well item answers query, in [0,1]. Deterministic and
// side-effect free. A zero return means the pairing was rejected outright,
// not merely weak.
func (s *Scorer) Score(query string, item types.KnowledgeItem, intent types.Intent) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	title := strings.ToLower(item.Title)
	content := strings.ToLower(item.Content)
	if q == "" {
		return 0
	}

	queryWords := meaningfulWords(q)
	queryCats := matchCategories(q)
	itemCats := matchCategories(title + " " + head(content, s.weights.ContentHeadLen))

	// Hard rejection: disjoint category sets for substantive queries.
	if len(queryWords) >= 4 && len(queryCats) > 0 && len(itemCats) > 0 && !intersects(queryCats, itemCats) {
		return 0
	}

	// Hard rejection: general-concept query matching a narrowly qualified
	// variant of the same term.
	if s.isQualifiedVariantMismatch(q, queryWords, title, content) {
		return 0
	}

	// Off-topic filter: entertainment/media content against a query with no
	// such intent is rejected, not merely penalized.
	if s.mediaContentScore(title, content) > s.weights.MediaIndicatorThreshold && !queryShowsMediaIntent(q) {
		return 0
	}

	var score float64

	// 1. Mutual substring containment between query and title.
	if title != "" && (strings.Contains(title, q) || strings.Contains(q, title)) {
		score += s.weights.MutualSubstring
	}

	// 2. Topic-category overlap.
	if intersects(queryCats, itemCats) {
		score += s.weights.CategoryOverlap
	}

	// 3. Word overlap with title and content head.
	titleWords := wordSet(meaningfulWords(title))
	contentWords := wordSet(meaningfulWords(head(content, s.weights.ContentHeadLen)))
	for _, w := range queryWords {
		if titleWords[w] {
			score += s.weights.TitleWordOverlap
		}
		if contentWords[w] {
			score += s.weights.ContentWordOverlap
		}
	}

	// 4. Intent-specific adjustment.
	score = s.applyIntentAdjustment(score, q, queryWords, title, content, intent)

	// 5. Positional bonus for the top three meaningful query words.
	lead := head(content, s.weights.LeadLen)
	top := queryWords
	if len(top) > 3 {
		top = top[:3]
	}
	for _, w := range top {
		switch {
		case strings.Contains(title, w):
			score += s.weights.PositionalTitle
		case strings.Contains(lead, w):
			score += s.weights.PositionalLead
		case strings.Contains(content, w):
			score += s.weights.PositionalBody
		}
	}

	return types.Clamp01(score)
}

// applyIntentAdjustment applies the intent-specific bonus/penalty rules.
func (s *Scorer) applyIntentAdjustment(score float64, q string, queryWords []string, title, content string, intent types.Intent) float64 {
	lead := head(content, s.weights.LeadLen)

	switch intent {
	case types.IntentBiographical:
		surname := lastEntityWord(queryWords)
		if surname != "" && !strings.Contains(title, surname) && !strings.Contains(lead, surname) {
			score *= s.weights.BiographicalMissPenalty
		}
		// Identity markers near the start of content earn up to IdentityMarkerMax.
		var markerBonus float64
		start := head(content, 200)
		for _, m := range identityMarkers {
			if strings.Contains(start, m) {
				markerBonus += 0.1
			}
		}
		if markerBonus > s.weights.IdentityMarkerMax {
			markerBonus = s.weights.IdentityMarkerMax
		}
		score += markerBonus
		if triviaDominates(content) {
			score *= s.weights.TriviaDominancePenalty
		}

	case types.IntentDefinition:
		entity := lastEntityWord(queryWords)
		if entity != "" && !strings.Contains(lead, entity) && !strings.Contains(title, entity) {
			score *= s.weights.DefinitionMissPenalty
		}

	case types.IntentPhilosophical:
		found := false
		for _, v := range philosophicalVocabulary {
			if strings.Contains(content, v) || strings.Contains(title, v) {
				found = true
				break
			}
		}
		if !found {
			score *= s.weights.PhilosophicalMissPenalty
		}
	}

	return score
}

// isQualifiedVariantMismatch detects the ambiguous-term collision: the query
// asks about a general concept and the item is specifically about a narrowed
// variant (e.g. "game physics") the query never mentions.
func (s *Scorer) isQualifiedVariantMismatch(q string, queryWords []string, title, content string) bool {
	for _, term := range queryWords {
		for _, qual := range narrowingQualifiers {
			if strings.Contains(q, qual) {
				continue // the query itself is about the variant
			}
			compound := qual + " " + term
			if strings.Contains(title, compound) {
				return true
			}
			// Content dominated by the qualified compound rather than the
			// bare term is also a wrong match.
			bare := strings.Count(content, term)
			qualified := strings.Count(content, compound)
			if qualified > 0 && qualified*2 >= bare {
				return true
			}
		}
	}
	return false
}

// mediaContentScore sums weighted entertainment indicators over the title and
// three content windows (start, middle, end).
func (s *Scorer) mediaContentScore(title, content string) float64 {
	windows := []string{title}
	n := len(content)
	if n > 0 {
		third := n / 3
		windows = append(windows,
			content[:min(n, 300)],
			content[min(n, third):min(n, third+300)],
			content[max(0, n-300):],
		)
	}
	var total float64
	for _, w := range windows {
		for ind, weight := range mediaIndicators {
			if containsWord(w, ind) {
				total += weight
			}
		}
	}
	return total
}

func queryShowsMediaIntent(q string) bool {
	for ind := range mediaIndicators {
		if containsWord(q, ind) {
			return true
		}
	}
	return false
}

func triviaDominates(content string) bool {
	count := 0
	for _, m := range triviaMarkers {
		count += strings.Count(content, m)
	}
	return count >= 2
}

// =============================================================================
// FILTERING
// =============================================================================

// FilterByRelevance scores all items against query and returns those at or
// above minScore, sorted by descending score. The sort is stable: ties keep
// input order. Items failing the quality gate are excluded regardless of
// lexical match.
func (s *Scorer) FilterByRelevance(query string, items []types.KnowledgeItem, intent types.Intent, minScore float64) []types.KnowledgeItem {
	type scored struct {
		item  types.KnowledgeItem
		score float64
	}
	kept := make([]scored, 0, len(items))
	for _, it := range items {
		if lowQuality(it) {
			continue
		}
		sc := s.Score(query, it, intent)
		if sc >= minScore {
			kept = append(kept, scored{item: it, score: sc})
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].score > kept[j].score })

	out := make([]types.KnowledgeItem, len(kept))
	for i, k := range kept {
		out[i] = k.item
	}
	return out
}

// lowQuality gates out thin content from untrusted sources: fewer than 20
// content words combined with a low-quality source tag or quality score.
func lowQuality(item types.KnowledgeItem) bool {
	if len(strings.Fields(item.Content)) >= 20 {
		return false
	}
	switch strings.ToLower(item.Source) {
	case "unverified", "forum", "comment", "user_generated":
		return true
	}
	return item.QualityScore > 0 && item.QualityScore < 0.3
}

// =============================================================================
// LEXICAL HELPERS
// =============================================================================

// matchCategories returns the best-matching category names for text, top 3.
func matchCategories(text string) []string {
	type hit struct {
		name  string
		count int
		order int
	}
	var hits []hit
	for i, cat := range topicCategories {
		count := 0
		for _, kw := range cat.keywords {
			if containsWord(text, kw) {
				count++
			}
		}
		if count > 0 {
			hits = append(hits, hit{name: cat.name, count: count, order: i})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].count != hits[j].count {
			return hits[i].count > hits[j].count
		}
		return hits[i].order < hits[j].order
	})
	if len(hits) > 3 {
		hits = hits[:3]
	}
	names := make([]string, len(hits))
	for i, h := range hits {
		names[i] = h.name
	}
	return names
}

// meaningfulWords returns lowercase words of length > 2, stop words removed,
// preserving first-occurrence order.
func meaningfulWords(text string) []string {
	seen := make(map[string]bool)
	var words []string
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r != '-'
	}) {
		if len(w) <= 2 || stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		words = append(words, w)
	}
	return words
}

func wordSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// lastEntityWord returns the last meaningful word, the usual position of a
// surname or the defined term in "who is X" / "what is X" queries.
func lastEntityWord(words []string) string {
	if len(words) == 0 {
		return ""
	}
	return words[len(words)-1]
}

func intersects(a, b []string) bool {
	set := wordSet(a)
	for _, s := range b {
		if set[s] {
			return true
		}
	}
	return false
}

// containsWord reports whether text contains w as a whole word.
func containsWord(text, w string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], w)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(w)
		beforeOK := start == 0 || !isWordByte(text[start-1])
		afterOK := end == len(text) || !isWordByte(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var stopWords = map[string]bool{
	"the": true, "and": true, "but": true, "for": true, "nor": true,
	"are": true, "was": true, "were": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "does": true, "did": true,
	"will": true, "would": true, "could": true, "should": true, "may": true,
	"might": true, "must": true, "shall": true, "can": true, "with": true,
	"from": true, "into": true, "through": true, "during": true, "before": true,
	"after": true, "above": true, "below": true, "between": true, "about": true,
	"this": true, "that": true, "these": true, "those": true, "there": true,
	"what": true, "which": true, "who": true, "whom": true, "whose": true,
	"when": true, "where": true, "why": true, "how": true, "all": true,
	"each": true, "every": true, "both": true, "few": true, "more": true,
	"most": true, "other": true, "some": true, "such": true, "not": true,
	"only": true, "own": true, "same": true, "than": true, "too": true,
	"very": true, "just": true, "also": true, "then": true, "once": true,
}

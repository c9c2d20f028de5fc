// Package analyzer classifies raw queries: reasoning type, intent,
// complexity, topics, entities, domains, and decomposition into sub-queries.
// Analyze never fails, on any input; an empty query yields a degenerate
// analysis with the GENERAL reasoning type and zero complexity.
package analyzer

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"noesis/internal/logging"
	"noesis/internal/types"
)

// Analyzer performs query analysis using static keyword and pattern tables.
// It is stateless and safe for concurrent use.
type Analyzer struct{}

// New creates an Analyzer.
func New() *Analyzer {
	return &Analyzer{}
}

// =============================================================================
// REASONING TYPE CLASSIFIER
// =============================================================================

// classifierRule pairs a reasoning type with the predicate that detects it.
// Rules are evaluated in order; the first match wins. Order matters because
// queries often contain overlapping cue words ("because" appears in both
// causal and abductive phrasing; causal is checked first).
type classifierRule struct {
	rtype   types.ReasoningType
	matches func(q string) bool
}

var mathPattern = regexp.MustCompile(`\d+(?:\.\d+)?\s*[-+*/×÷]\s*\d+(?:\.\d+)?`)
var numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

var classifierRules = []classifierRule{
	{types.ReasoningCausal, anyCue(
		"cause", "causes", "caused", "affect", "affects", "effect", "effects",
		"because", "lead to", "leads to", "result in", "results in", "impact",
		"why does", "why do", "why is", "consequence")},
	{types.ReasoningMathematical, func(q string) bool {
		if mathPattern.MatchString(q) {
			return true
		}
		return anyCue("calculate", "sum of", "how many", "plus", "minus",
			"multiplied", "divided", "equals", "average of", "percent", "square root")(q)
	}},
	{types.ReasoningComparative, anyCue(
		"compare", "comparison", "versus", " vs ", "difference between",
		"better than", "worse than", "similarities between", "differ")},
	{types.ReasoningTemporal, anyCue(
		"when did", "when will", "timeline", "history of", "chronolog",
		"sequence of events", "before or after", "what year", "how long ago")},
	{types.ReasoningSpatial, anyCue(
		"where is", "where are", "location of", "geography", "distance between",
		"north of", "south of", "spatial", "map of")},
	{types.ReasoningDeductive, anyCue(
		"if all", "therefore", "implies", "must be true", "given that",
		"it follows", "deduce", "conclude that")},
	{types.ReasoningInductive, anyCue(
		"pattern", "generally", "trend", "usually", "in most cases",
		"examples suggest", "generalize", "extrapolate")},
	{types.ReasoningAbductive, anyCue(
		"best explanation", "most likely explanation", "probably because",
		"hypothesis", "diagnose", "what explains", "plausible")},
	{types.ReasoningAnalogical, anyCue(
		"analogy", "analogous", "similar way", "metaphor", "is like a",
		"just as", "in the same way")},
	{types.ReasoningLogical, anyCue(
		"logically", "valid argument", "contradiction", "consistent with",
		"true or false", "logical", "premise")},
	{types.ReasoningAnalytical, anyCue(
		"analyze", "analysis", "break down", "evaluate", "assess",
		"examine", "what factors", "pros and cons")},
}

func anyCue(cues ...string) func(string) bool {
	return func(q string) bool {
		for _, c := range cues {
			if strings.Contains(q, c) {
				return true
			}
		}
		return false
	}
}

func classifyReasoningType(q string) types.ReasoningType {
	for _, rule := range classifierRules {
		if rule.matches(q) {
			return rule.rtype
		}
	}
	return types.ReasoningGeneral
}

// =============================================================================
// DOMAIN CLASSIFICATION
// =============================================================================

// domainEntry maps a knowledge domain to its cue words. Table order breaks
// ties: the first maximal score wins.
type domainEntry struct {
	name     string
	keywords []string
}

var domainTable = []domainEntry{
	{"environment", []string{"climate", "environment", "ecosystem", "carbon", "warming", "pollution", "sustainability", "emission", "biodiversity", "renewable"}},
	{"economics", []string{"economy", "economic", "market", "trade", "finance", "inflation", "investment", "policy", "fiscal", "monetary"}},
	{"science", []string{"physics", "chemistry", "biology", "quantum", "energy", "theory", "experiment", "particle", "scientific", "evolution"}},
	{"technology", []string{"computer", "software", "algorithm", "network", "internet", "digital", "machine", "data", "programming", "artificial"}},
	{"medicine", []string{"health", "disease", "medical", "treatment", "patient", "drug", "symptom", "diagnosis", "therapy", "vaccine"}},
	{"history", []string{"history", "war", "ancient", "century", "empire", "revolution", "historical", "era", "dynasty", "civilization"}},
	{"politics", []string{"government", "election", "political", "democracy", "parliament", "legislation", "president", "vote", "party", "senate"}},
	{"philosophy", []string{"philosophy", "ethics", "consciousness", "existence", "metaphysics", "morality", "meaning", "truth", "virtue", "epistemology"}},
	{"arts", []string{"art", "music", "painting", "literature", "poetry", "sculpture", "artist", "novel", "composer", "aesthetic"}},
	{"mathematics", []string{"math", "mathematics", "equation", "number", "geometry", "algebra", "calculus", "statistics", "probability", "theorem"}},
}

// classifyDomains scores every domain by matched-keyword fraction and
// returns all domains with a positive score, best first.
func classifyDomains(q string) []string {
	type scored struct {
		name  string
		score float64
	}
	var hits []scored
	for _, d := range domainTable {
		matches := 0
		for _, kw := range d.keywords {
			if strings.Contains(q, kw) {
				matches++
			}
		}
		if matches > 0 {
			hits = append(hits, scored{d.name, float64(matches) / float64(len(d.keywords))})
		}
	}
	// Stable sort keeps table order on ties, so the first max wins.
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].score > hits[j-1].score; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.name
	}
	return out
}

// DomainOf returns the dominant domain for text, or "" when nothing matches.
func DomainOf(text string) string {
	domains := classifyDomains(strings.ToLower(text))
	if len(domains) == 0 {
		return ""
	}
	return domains[0]
}

// =============================================================================
// COMPOUND TERMS
// =============================================================================

// compoundTerms are known multi-word topics detected as bigrams during
// topic extraction.
var compoundTerms = []string{
	"climate change", "economic policy", "global warming", "artificial intelligence",
	"machine learning", "quantum mechanics", "quantum physics", "natural selection",
	"world war", "industrial revolution", "interest rates", "supply chain",
	"public health", "renewable energy", "carbon emissions", "monetary policy",
	"human rights", "social media", "game physics", "free will",
}

// =============================================================================
// ANALYZE
// =============================================================================

// Analyze classifies query. context is optional prior conversation text; it
// only informs intent detection, never the structural fields.
func (a *Analyzer) Analyze(query, context string) types.QueryAnalysis {
	timer := logging.StartTimer(logging.CategoryAnalyzer, "Analyze")
	defer timer.Stop()

	trimmed := strings.TrimSpace(query)
	analysis := types.QueryAnalysis{
		OriginalQuery: query,
		Intent:        types.IntentGeneral,
		ReasoningType: types.ReasoningGeneral,
	}
	if trimmed == "" {
		return analysis
	}

	q := strings.ToLower(trimmed)
	words := strings.Fields(trimmed)

	analysis.ReasoningType = classifyReasoningType(q)
	analysis.Intent = detectIntent(q, strings.ToLower(context))
	analysis.Complexity = complexityScore(q, words)
	analysis.ComplexityLevel = complexityLevel(analysis.Complexity, q, words)
	analysis.Domains = classifyDomains(q)
	analysis.Topics, analysis.Entities = extractTopicsAndEntities(trimmed)
	analysis.KeyPhrases = extractKeyPhrases(q)
	analysis.DecomposedQueries = Decompose(trimmed)

	if analysis.ReasoningType == types.ReasoningMathematical {
		analysis.Numbers, analysis.Operator = extractArithmetic(trimmed)
	}

	analysis.RequiresMultiTopic = len(analysis.Domains) >= 2 ||
		len(analysis.Topics) >= 2 && analysis.ReasoningType == types.ReasoningCausal ||
		len(analysis.DecomposedQueries) >= 2

	logging.Debugf(logging.CategoryAnalyzer, "query classified: type=%s intent=%s complexity=%.2f domains=%v",
		analysis.ReasoningType, analysis.Intent, analysis.Complexity, analysis.Domains)
	return analysis
}

func detectIntent(q, context string) types.Intent {
	switch {
	case strings.HasPrefix(q, "who is") || strings.HasPrefix(q, "who was") ||
		strings.Contains(q, "biography") || strings.Contains(q, "life of"):
		return types.IntentBiographical
	case strings.HasPrefix(q, "what is") || strings.HasPrefix(q, "what are") ||
		strings.HasPrefix(q, "define") || strings.Contains(q, "definition of") ||
		strings.Contains(q, "meaning of the word"):
		return types.IntentDefinition
	case strings.Contains(q, "meaning of life") || strings.Contains(q, "purpose of") ||
		strings.Contains(q, "consciousness") || strings.Contains(q, "free will") ||
		strings.Contains(q, "ethic") || strings.Contains(q, "moral"):
		return types.IntentPhilosophical
	case strings.HasPrefix(q, "how to") || strings.HasPrefix(q, "how do i") ||
		strings.HasPrefix(q, "how can i"):
		return types.IntentProcedural
	case strings.HasPrefix(q, "when") || strings.HasPrefix(q, "where") ||
		strings.HasPrefix(q, "how many") || strings.HasPrefix(q, "how much"):
		return types.IntentFactual
	}
	if strings.Contains(context, "philosoph") {
		return types.IntentPhilosophical
	}
	return types.IntentGeneral
}

// =============================================================================
// COMPLEXITY
// =============================================================================

var conjunctionCues = []string{" and ", " or ", " but ", " while ", " whereas ", "relationship between", "compared to", " as well as "}

// complexityScore follows the fixed formula:
// base 0.3 + min(words/20, 0.4) + 0.2 if '?' present + 0.1 if a conjunction
// or relational phrase is present, clamped to [0,1].
func complexityScore(q string, words []string) float64 {
	score := 0.3
	wc := float64(len(words)) / 20.0
	if wc > 0.4 {
		wc = 0.4
	}
	score += wc
	if strings.Contains(q, "?") {
		score += 0.2
	}
	for _, c := range conjunctionCues {
		if strings.Contains(q, c) {
			score += 0.1
			break
		}
	}
	return types.Clamp01(score)
}

// complexityLevel maps complexity to 1..5, escalating on extra structural
// signals: long queries and multiple question marks.
func complexityLevel(complexity float64, q string, words []string) int {
	level := 1
	switch {
	case complexity >= 0.8:
		level = 4
	case complexity >= 0.6:
		level = 3
	case complexity >= 0.4:
		level = 2
	}
	if len(words) > 20 {
		level++
	}
	if strings.Count(q, "?") > 1 {
		level++
	}
	if level > 5 {
		level = 5
	}
	return level
}

// =============================================================================
// DECOMPOSITION
// =============================================================================

var listMarkerPattern = regexp.MustCompile(`(?m)(?:^|\s)(?:\d+[.)]|[-*•])\s+`)

// Decompose splits a compound query into sub-queries. Rules are tried in
// priority order; the first rule producing at least two sub-queries longer
// than 10 characters wins. A query that never splits returns nil.
func Decompose(query string) []string {
	rules := []func(string) []string{
		splitOnConjunctions,
		splitOnQuestions,
		splitOnListMarkers,
	}
	for _, rule := range rules {
		parts := rule(query)
		kept := parts[:0]
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if len(p) > 10 {
				kept = append(kept, p)
			}
		}
		if len(kept) > 1 {
			return kept
		}
	}
	return nil
}

func splitOnConjunctions(q string) []string {
	seps := []string{"; ", " and also ", ", and ", " and then "}
	parts := []string{q}
	for _, sep := range seps {
		var next []string
		for _, p := range parts {
			next = append(next, strings.Split(p, sep)...)
		}
		parts = next
	}
	return parts
}

func splitOnQuestions(q string) []string {
	if strings.Count(q, "?") < 2 {
		return nil
	}
	var parts []string
	rest := q
	for {
		i := strings.Index(rest, "?")
		if i < 0 {
			if strings.TrimSpace(rest) != "" {
				parts = append(parts, rest)
			}
			break
		}
		parts = append(parts, rest[:i+1])
		rest = rest[i+1:]
	}
	return parts
}

func splitOnListMarkers(q string) []string {
	if !listMarkerPattern.MatchString(q) {
		return nil
	}
	return listMarkerPattern.Split(q, -1)
}

// =============================================================================
// TOPIC / ENTITY EXTRACTION
// =============================================================================

// extractTopicsAndEntities keeps tokens that survive the stop-word filter and
// look informative: length > 3, or capitalized, or containing digits/hyphens
// with a capitalized segment. Known compound terms are detected as bigrams
// and take precedence over their component words.
func extractTopicsAndEntities(query string) (topics, entities []string) {
	lower := strings.ToLower(query)

	consumed := make(map[string]bool)
	for _, ct := range compoundTerms {
		if strings.Contains(lower, ct) {
			topics = append(topics, ct)
			for _, w := range strings.Fields(ct) {
				consumed[w] = true
			}
		}
	}

	for _, raw := range strings.Fields(query) {
		tok := strings.Trim(raw, ".,;:!?()[]{}\"'")
		if tok == "" {
			continue
		}
		lowTok := strings.ToLower(tok)
		if stopTokens[lowTok] || consumed[lowTok] {
			continue
		}
		capitalized := unicode.IsUpper(rune(tok[0]))
		hasDigit := strings.ContainsAny(tok, "0123456789")
		hasHyphen := strings.Contains(tok, "-")

		switch {
		case len(tok) > 3:
			topics = append(topics, lowTok)
			if capitalized && !isSentenceStart(query, raw) {
				entities = append(entities, tok)
			}
		case capitalized && !isSentenceStart(query, raw):
			entities = append(entities, tok)
		case (hasDigit || hasHyphen) && hasCapitalizedSegment(tok):
			entities = append(entities, tok)
		}
	}
	return dedupe(topics), dedupe(entities)
}

func isSentenceStart(query, token string) bool {
	return strings.HasPrefix(strings.TrimSpace(query), token)
}

func hasCapitalizedSegment(tok string) bool {
	for _, seg := range strings.FieldsFunc(tok, func(r rune) bool { return r == '-' || unicode.IsDigit(r) }) {
		if seg != "" && unicode.IsUpper(rune(seg[0])) {
			return true
		}
	}
	return false
}

// extractKeyPhrases returns the detected compound terms plus leading
// interrogative phrases stripped of their wh-word.
func extractKeyPhrases(q string) []string {
	var phrases []string
	for _, ct := range compoundTerms {
		if strings.Contains(q, ct) {
			phrases = append(phrases, ct)
		}
	}
	return phrases
}

func dedupe(ss []string) []string {
	seen := make(map[string]bool, len(ss))
	out := ss[:0]
	for _, s := range ss {
		key := strings.ToLower(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

// stopTokens filters structural words out of topic extraction. Shorter than
// the relevance stop list because capitalized short tokens may be entities.
var stopTokens = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "do": true, "does": true, "did": true,
	"how": true, "what": true, "when": true, "where": true, "why": true,
	"who": true, "which": true, "and": true, "or": true, "but": true,
	"of": true, "in": true, "on": true, "to": true, "for": true, "with": true,
	"about": true, "between": true, "can": true, "could": true,
	"would": true, "should": true, "will": true, "that": true, "this": true,
	"affect": true, "affects": true, "cause": true, "causes": true,
}

// =============================================================================
// ARITHMETIC EXTRACTION
// =============================================================================

// extractArithmetic pulls the numbers and the first operator out of a
// mathematical query. The reasoning engine uses these to compute the result
// referenced in the conclusion.
func extractArithmetic(query string) ([]float64, string) {
	var numbers []float64
	for _, m := range numberPattern.FindAllString(query, -1) {
		if v, err := strconv.ParseFloat(m, 64); err == nil {
			numbers = append(numbers, v)
		}
	}
	operator := ""
	for _, r := range query {
		switch r {
		case '+', '-', '*', '/', '×', '÷':
			operator = string(r)
		}
		if operator != "" {
			break
		}
	}
	if operator == "" {
		switch {
		case strings.Contains(query, "plus") || strings.Contains(query, "sum"):
			operator = "+"
		case strings.Contains(query, "minus") || strings.Contains(query, "difference"):
			operator = "-"
		case strings.Contains(query, "times") || strings.Contains(query, "multiplied"):
			operator = "*"
		case strings.Contains(query, "divided"):
			operator = "/"
		}
	}
	return numbers, operator
}

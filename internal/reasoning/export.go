// Exporters serialize a ReasoningChain for downstream consumers. They are
// pure functions with no effect on chain semantics.
package reasoning

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"noesis/internal/types"
)

// FormatText renders the chain as plain text.
func FormatText(chain *types.ReasoningChain) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n", chain.Query)
	fmt.Fprintf(&b, "Reasoning type: %s\n\n", chain.ReasoningType)
	for _, s := range chain.Steps {
		fmt.Fprintf(&b, "Step %d: %s\n", s.StepNumber, s.Description)
		fmt.Fprintf(&b, "  %s\n", s.Reasoning)
		fmt.Fprintf(&b, "  confidence: %.2f", s.Confidence)
		if len(s.Dependencies) > 0 {
			fmt.Fprintf(&b, "  depends on: %v", s.Dependencies)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nConclusion: %s\n", chain.Conclusion)
	fmt.Fprintf(&b, "Confidence: %.2f | Quality: %.2f | Verified: %t\n",
		chain.Confidence, chain.ReasoningQualityScore, chain.VerificationResult)
	return b.String()
}

// FormatJSON renders the chain as indented JSON.
func FormatJSON(chain *types.ReasoningChain) (string, error) {
	data, err := json.MarshalIndent(chain, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal chain: %w", err)
	}
	return string(data), nil
}

// FormatMarkdown renders the chain as a Markdown document.
func FormatMarkdown(chain *types.ReasoningChain) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Reasoning: %s\n\n", chain.Query)
	fmt.Fprintf(&b, "**Type:** %s  \n**Confidence:** %.2f  \n**Quality:** %.2f  \n**Verified:** %t\n\n",
		chain.ReasoningType, chain.Confidence, chain.ReasoningQualityScore, chain.VerificationResult)
	for _, s := range chain.Steps {
		fmt.Fprintf(&b, "## Step %d: %s\n\n", s.StepNumber, s.Description)
		fmt.Fprintf(&b, "%s\n\n", s.Reasoning)
		if len(s.Evidence) > 0 {
			b.WriteString("Evidence:\n")
			for _, ev := range s.Evidence {
				fmt.Fprintf(&b, "- %s\n", ev)
			}
			b.WriteString("\n")
		}
	}
	fmt.Fprintf(&b, "## Conclusion\n\n%s\n", chain.Conclusion)
	if len(chain.Relationships) > 0 {
		b.WriteString("\n## Relationships\n\n")
		for _, r := range chain.Relationships {
			fmt.Fprintf(&b, "- %s -[%s]-> %s (%.2f)\n", r.Topic1, r.Type, r.Topic2, r.Strength)
		}
	}
	return b.String()
}

// FormatHTML renders the chain as a minimal standalone HTML fragment.
func FormatHTML(chain *types.ReasoningChain) string {
	esc := html.EscapeString
	var b strings.Builder
	b.WriteString("<div class=\"reasoning-chain\">\n")
	fmt.Fprintf(&b, "<h1>%s</h1>\n", esc(chain.Query))
	fmt.Fprintf(&b, "<p class=\"meta\">type=%s confidence=%.2f quality=%.2f verified=%t</p>\n",
		esc(string(chain.ReasoningType)), chain.Confidence, chain.ReasoningQualityScore, chain.VerificationResult)
	b.WriteString("<ol>\n")
	for _, s := range chain.Steps {
		fmt.Fprintf(&b, "<li><strong>%s</strong><br>%s</li>\n", esc(s.Description), esc(s.Reasoning))
	}
	b.WriteString("</ol>\n")
	fmt.Fprintf(&b, "<p class=\"conclusion\">%s</p>\n", esc(chain.Conclusion))
	b.WriteString("</div>\n")
	return b.String()
}

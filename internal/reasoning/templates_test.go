package reasoning

import (
	"testing"

	"noesis/internal/types"
)

func TestEveryTemplateBuildsValidSteps(t *testing.T) {
	all := map[string][]stepTemplate{
		"causal-multi":  causalMultiTopicTemplate,
		"causal-single": causalSingleTopicTemplate,
	}
	for rtype, tmpl := range templatesByType {
		all[string(rtype)] = tmpl
	}

	for name, tmpl := range all {
		if len(tmpl) < 3 || len(tmpl) > 6 {
			t.Errorf("template %s has %d steps, want 3-6", name, len(tmpl))
		}
		for i, st := range tmpl {
			if _, err := types.NewReasoningStep(i+1, st.Description, st.Dependencies); err != nil {
				t.Errorf("template %s step %d invalid: %v", name, i+1, err)
			}
			if st.BaseConfidence <= 0 || st.BaseConfidence > 1 {
				t.Errorf("template %s step %d base confidence %v out of (0,1]", name, i+1, st.BaseConfidence)
			}
		}
	}
}

func TestEveryReasoningTypeHasTemplateAndLeadIn(t *testing.T) {
	for _, rtype := range types.AllReasoningTypes() {
		if tmpl := templateFor(rtype, "some query"); len(tmpl) == 0 {
			t.Errorf("no template for %s", rtype)
		}
		if leadInFor(rtype) == "" {
			t.Errorf("no conclusion lead-in for %s", rtype)
		}
	}
}

func TestIsBiTopicCausal(t *testing.T) {
	cases := []struct {
		query string
		want  bool
	}{
		{"How does climate change affect economic policy?", true},
		{"Why did the drought cause crop failures?", true},
		{"What are the effects of inflation on savings?", true},
		{"why is the sky blue", false},
		{"what causes rain", false},
	}
	for _, c := range cases {
		if got := isBiTopicCausal(c.query); got != c.want {
			t.Errorf("isBiTopicCausal(%q) = %t, want %t", c.query, got, c.want)
		}
	}
}

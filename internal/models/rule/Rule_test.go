package rule

import "testing"

func TestSearchQueryFallsBackToRuleName(t *testing.T) {
	r := &TwawlRule{RuleName: "golang"}
	if got := r.SearchQuery(); got != "golang" {
		t.Errorf("expected rule name fallback, got %q", got)
	}

	r.Query = "golang OR gopher"
	if got := r.SearchQuery(); got != "golang OR gopher" {
		t.Errorf("expected explicit query, got %q", got)
	}
}

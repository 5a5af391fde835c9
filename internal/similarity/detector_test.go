package similarity

import "testing"

func TestDetectExactDuplicates(t *testing.T) {
	items := []ContentItem{
		{Content: "Affordable Plumbing Services", URL: "https://a.example.com/one"},
		{Content: "Affordable Plumbing Services", URL: "https://a.example.com/two"},
		{Content: "Affordable Plumbing Services", URL: "https://a.example.com/three"},
		{Content: "A completely different landing page headline", URL: "https://a.example.com/four"},
	}

	res := DetectDuplicates(items, DefaultOptions())
	if res.DuplicateCount != 1 {
		t.Fatalf("expected 1 group, got %d: %+v", res.DuplicateCount, res.DuplicateGroups)
	}

	group := res.DuplicateGroups[0]
	if group.DuplicationType != TypeExact {
		t.Errorf("type = %s, want %s", group.DuplicationType, TypeExact)
	}
	if group.SimilarityScore != 100 {
		t.Errorf("score = %d, want 100", group.SimilarityScore)
	}
	if len(group.URLs) != 3 {
		t.Errorf("urls = %v, want 3 entries", group.URLs)
	}
	if group.ImpactLevel != ImpactMedium {
		t.Errorf("impact = %s, want %s for a 3-page group", group.ImpactLevel, ImpactMedium)
	}
	if res.Stats.ExactGroups != 1 || res.Stats.ItemsAnalyzed != 4 {
		t.Errorf("stats = %+v", res.Stats)
	}
}

func TestDetectExactIgnoresCaseAndPunctuation(t *testing.T) {
	items := []ContentItem{
		{Content: "Buy shoes online today!", URL: "https://a.example.com/one"},
		{Content: "buy  SHOES, online today", URL: "https://a.example.com/two"},
	}

	res := DetectDuplicates(items, DefaultOptions())
	if res.DuplicateCount != 1 || res.DuplicateGroups[0].DuplicationType != TypeExact {
		t.Fatalf("case and punctuation variants should match exactly, got %+v", res.DuplicateGroups)
	}
}

func TestDetectFuzzyDuplicates(t *testing.T) {
	items := []ContentItem{
		{Content: "Affordable plumbing services in the Boston area", URL: "https://a.example.com/one"},
		{Content: "Affordable plumbing services in the Boston areas", URL: "https://a.example.com/two"},
	}

	res := DetectDuplicates(items, DefaultOptions())
	if res.DuplicateCount != 1 {
		t.Fatalf("expected 1 fuzzy group, got %+v", res.DuplicateGroups)
	}
	group := res.DuplicateGroups[0]
	if group.DuplicationType != TypeFuzzy {
		t.Errorf("type = %s, want %s", group.DuplicationType, TypeFuzzy)
	}
	if group.SimilarityScore < 85 || group.SimilarityScore >= 100 {
		t.Errorf("fuzzy score = %d, want within [85,100)", group.SimilarityScore)
	}
	if group.ImpactLevel != ImpactLow {
		t.Errorf("impact = %s, want %s for a 2-page group", group.ImpactLevel, ImpactLow)
	}
}

func TestDetectSemanticDuplicates(t *testing.T) {
	// Same words, reordered: too far apart in edit distance for the fuzzy
	// tier, close enough in word and phrase overlap for the semantic one.
	items := []ContentItem{
		{Content: "emergency plumbing repair boston", URL: "https://a.example.com/one"},
		{Content: "boston emergency plumbing repair", URL: "https://a.example.com/two"},
	}

	res := DetectDuplicates(items, DefaultOptions())
	if res.DuplicateCount != 1 {
		t.Fatalf("expected 1 semantic group, got %+v", res.DuplicateGroups)
	}
	if res.DuplicateGroups[0].DuplicationType != TypeSemantic {
		t.Errorf("type = %s, want %s", res.DuplicateGroups[0].DuplicationType, TypeSemantic)
	}
	if res.Stats.FuzzyGroups != 0 || res.Stats.SemanticGroups != 1 {
		t.Errorf("stats = %+v", res.Stats)
	}
}

func TestDetectRequiresDistinctURLs(t *testing.T) {
	items := []ContentItem{
		{Content: "Repeated heading on one page", URL: "https://a.example.com/one"},
		{Content: "Repeated heading on one page", URL: "https://a.example.com/one"},
	}
	res := DetectDuplicates(items, DefaultOptions())
	if res.DuplicateCount != 0 {
		t.Errorf("repeats on a single URL are not duplicates, got %+v", res.DuplicateGroups)
	}
}

func TestDetectSkipsShortContent(t *testing.T) {
	items := []ContentItem{
		{Content: "Home", URL: "https://a.example.com/one"},
		{Content: "Home", URL: "https://a.example.com/two"},
	}
	res := DetectDuplicates(items, DefaultOptions())
	if res.DuplicateCount != 0 {
		t.Errorf("content below the length floor must be skipped, got %+v", res.DuplicateGroups)
	}
	if res.Stats.ItemsAnalyzed != 0 {
		t.Errorf("items analyzed = %d, want 0", res.Stats.ItemsAnalyzed)
	}
}

func TestDetectEmptyInput(t *testing.T) {
	res := DetectDuplicates(nil, DefaultOptions())
	if res.DuplicateCount != 0 || len(res.DuplicateGroups) != 0 {
		t.Errorf("empty input should produce an empty result, got %+v", res)
	}
}

func TestImpactLevel(t *testing.T) {
	testCases := []struct {
		size     int
		expected string
	}{
		{2, ImpactLow},
		{3, ImpactMedium},
		{4, ImpactMedium},
		{5, ImpactHigh},
		{9, ImpactHigh},
		{10, ImpactCritical},
	}
	for _, tc := range testCases {
		if got := impactLevel(tc.size); got != tc.expected {
			t.Errorf("impactLevel(%d) = %s, want %s", tc.size, got, tc.expected)
		}
	}
}

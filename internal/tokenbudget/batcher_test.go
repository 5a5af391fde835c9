package tokenbudget

import (
	"strings"
	"testing"

	"github.com/go-scripts/seoscan/internal/similarity"
)

func TestEstimateTokens(t *testing.T) {
	testCases := []struct {
		input    string
		expected int
	}{
		{"", 0},
		{"abcd", 2},      // ceil(4/4)=1, *1.2 -> ceil(1.2)=2
		{"abcdefgh", 3},  // 2 * 1.2 -> 2.4 -> 3
		{strings.Repeat("a", 40), 12},
		{strings.Repeat("a", 41), 14}, // ceil(41/4)=11, *1.2 -> 13.2 -> 14
	}
	for _, tc := range testCases {
		if got := EstimateTokens(tc.input); got != tc.expected {
			t.Errorf("EstimateTokens(%d chars) = %d, want %d", len(tc.input), got, tc.expected)
		}
	}
}

func TestNewBudget(t *testing.T) {
	testCases := []struct {
		complexity Complexity
		maxInput   int
	}{
		{ComplexityHigh, 6000},
		{ComplexityMedium, 4000},
		{ComplexityLow, 2000},
		{Complexity("unknown"), 4000},
	}
	for _, tc := range testCases {
		b := NewBudget(tc.complexity)
		if b.MaxInputTokens != tc.maxInput {
			t.Errorf("NewBudget(%s).MaxInputTokens = %d, want %d", tc.complexity, b.MaxInputTokens, tc.maxInput)
		}
		if b.AvailableTokens != tc.maxInput-reservedTokens {
			t.Errorf("NewBudget(%s).AvailableTokens = %d, want %d", tc.complexity, b.AvailableTokens, tc.maxInput-reservedTokens)
		}
	}
}

func TestCreateBatchesRespectsTokenCeiling(t *testing.T) {
	// Each item estimates to ~300 tokens, so a low budget (1500 available)
	// fits five per batch.
	items := make([]similarity.ContentItem, 12)
	for i := range items {
		items[i] = similarity.ContentItem{
			Content: strings.Repeat("x", 996),
			URL:     "https://example.com/p",
		}
	}

	budget := NewBudget(ComplexityLow)
	batches := CreateBatches(items, "paragraph", budget, Options{})

	total := 0
	for _, b := range batches {
		total += len(b.Items)
		if b.EstimatedTokens > budget.AvailableTokens {
			t.Errorf("batch of %d items estimates %d tokens, budget is %d",
				len(b.Items), b.EstimatedTokens, budget.AvailableTokens)
		}
		if b.ContentType != "paragraph" {
			t.Errorf("content type = %s", b.ContentType)
		}
	}
	if total != len(items) {
		t.Errorf("batches carry %d items, input had %d", total, len(items))
	}
	if len(batches) < 2 {
		t.Errorf("expected the budget to split %d items, got %d batch(es)", len(items), len(batches))
	}
}

func TestCreateBatchesForceClosesAtBatchSize(t *testing.T) {
	items := make([]similarity.ContentItem, 7)
	for i := range items {
		items[i] = similarity.ContentItem{Content: "tiny item", URL: "https://example.com/p"}
	}

	batches := CreateBatches(items, "title", NewBudget(ComplexityHigh), Options{BatchSize: 3})
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches of at most 3 items, got %d", len(batches))
	}
	for _, b := range batches {
		if len(b.Items) > 3 {
			t.Errorf("batch has %d items, cap was 3", len(b.Items))
		}
	}
}

func TestCreateBatchesOversizedItemStandsAlone(t *testing.T) {
	huge := similarity.ContentItem{
		Content: strings.Repeat("y", 20000), // far beyond the low budget
		URL:     "https://example.com/huge",
	}
	small := similarity.ContentItem{Content: "small item", URL: "https://example.com/small"}

	batches := CreateBatches([]similarity.ContentItem{small, huge, small}, "paragraph", NewBudget(ComplexityLow), Options{})

	total := 0
	oversized := 0
	for _, b := range batches {
		total += len(b.Items)
		if b.EstimatedTokens > NewBudget(ComplexityLow).AvailableTokens {
			oversized++
			if len(b.Items) != 1 {
				t.Errorf("oversized batch must hold exactly the oversized item, has %d", len(b.Items))
			}
		}
	}
	if total != 3 {
		t.Errorf("items dropped: packed %d of 3", total)
	}
	if oversized != 1 {
		t.Errorf("expected exactly one over-budget singleton batch, got %d", oversized)
	}
}

func TestCreateBatchesPriorityNumbering(t *testing.T) {
	items := make([]similarity.ContentItem, 5)
	for i := range items {
		items[i] = similarity.ContentItem{Content: "some title here", URL: "https://example.com/p"}
	}

	batches := CreateBatches(items, "title", NewBudget(ComplexityHigh), Options{BatchSize: 2})
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	for i, b := range batches {
		want := len(batches) - i
		if b.Priority != want {
			t.Errorf("batch %d priority = %d, want %d", i, b.Priority, want)
		}
	}
}

func TestSortByPriority(t *testing.T) {
	items := []similarity.ContentItem{
		{Content: "deep page title", URL: "https://example.com/blog/2024/post"},
		{Content: "duplicated title", URL: "https://example.com/a"},
		{Content: "homepage title", URL: "https://example.com/"},
		{Content: "duplicated title", URL: "https://example.com/b"},
	}

	ordered := sortByPriority(items, "title")
	if len(ordered) != len(items) {
		t.Fatalf("sort changed item count: %d", len(ordered))
	}
	// Recurring content (+5) outranks the home-page boost (+3), which
	// outranks a plain deep page.
	if ordered[0].Content != "duplicated title" || ordered[1].Content != "duplicated title" {
		t.Errorf("recurring content should sort first, got %q, %q", ordered[0].Content, ordered[1].Content)
	}
	if ordered[2].Content != "homepage title" {
		t.Errorf("home page should outrank deep pages, got %q", ordered[2].Content)
	}
	if ordered[3].Content != "deep page title" {
		t.Errorf("deep page should sort last, got %q", ordered[3].Content)
	}
}

func TestCreateBatchesEmptyInput(t *testing.T) {
	if batches := CreateBatches(nil, "title", NewBudget(ComplexityMedium), Options{}); batches != nil {
		t.Errorf("expected nil for empty input, got %v", batches)
	}
}

package crawler

import "testing"

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "drops fragment",
			input:    "https://example.com/page#section",
			expected: "https://example.com/page",
		},
		{
			name:     "strips www",
			input:    "https://www.example.com/page",
			expected: "https://example.com/page",
		},
		{
			name:     "drops default http port",
			input:    "http://example.com:80/page",
			expected: "http://example.com/page",
		},
		{
			name:     "drops default https port",
			input:    "https://example.com:443/page",
			expected: "https://example.com/page",
		},
		{
			name:     "keeps non-default port",
			input:    "http://example.com:8080/page",
			expected: "http://example.com:8080/page",
		},
		{
			name:     "removes tracking params",
			input:    "https://example.com/page?utm_source=x&utm_medium=y&fbclid=abc&gclid=def&_ga=1&id=7",
			expected: "https://example.com/page?id=7",
		},
		{
			name:     "drops trailing slash on non-root path",
			input:    "https://example.com/about/",
			expected: "https://example.com/about",
		},
		{
			name:     "keeps root slash",
			input:    "https://example.com/",
			expected: "https://example.com/",
		},
		{
			name:     "adds root slash to bare host",
			input:    "https://example.com",
			expected: "https://example.com/",
		},
		{
			name:     "lowercases scheme and host",
			input:    "HTTPS://Example.COM/About",
			expected: "https://example.com/About",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(tc.input)
			if err != nil {
				t.Fatalf("Normalize(%q) returned error: %v", tc.input, err)
			}
			if got != tc.expected {
				t.Errorf("Normalize(%q) = %q, want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"https://www.example.com/page/?utm_source=x#frag",
		"http://example.com:80",
		"https://example.com/a/b/c/",
		"https://example.com/?fbclid=123",
	}
	for _, input := range inputs {
		once, err := Normalize(input)
		if err != nil {
			t.Fatalf("Normalize(%q) returned error: %v", input, err)
		}
		twice, err := Normalize(once)
		if err != nil {
			t.Fatalf("Normalize(%q) returned error: %v", once, err)
		}
		if once != twice {
			t.Errorf("normalization not idempotent: %q -> %q -> %q", input, once, twice)
		}
	}
}

func TestNormalizeRejectsInvalid(t *testing.T) {
	for _, input := range []string{"", "not a url", "/relative/only"} {
		if _, err := Normalize(input); err == nil {
			t.Errorf("Normalize(%q) expected error, got none", input)
		}
	}
}

func TestScorePriority(t *testing.T) {
	testCases := []struct {
		name     string
		url      string
		expected int
	}{
		{"root gets max", "https://example.com/", 20},
		{"single segment", "https://example.com/pricing", 8},
		{"high value segment", "https://example.com/about", 13},
		{"deep path", "https://example.com/a/b/c/d", 2},
		{"query params penalized", "https://example.com/pricing?a=1&b=2", 6},
		{"clamped at minimum", "https://example.com/a/b/c/d/e/f?x=1&y=2&z=3", 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := scorePriority(tc.url); got != tc.expected {
				t.Errorf("scorePriority(%q) = %d, want %d", tc.url, got, tc.expected)
			}
		})
	}
}

func TestTargetQueuePopBatch(t *testing.T) {
	var q targetQueue
	q.push(CrawlTarget{URL: "low", Priority: 3})
	q.push(CrawlTarget{URL: "high", Priority: 18})
	q.push(CrawlTarget{URL: "mid", Priority: 9})

	batch := q.popBatch(2)
	if len(batch) != 2 {
		t.Fatalf("popBatch(2) returned %d targets", len(batch))
	}
	if batch[0].URL != "high" || batch[1].URL != "mid" {
		t.Errorf("popBatch order = %q, %q; want high, mid", batch[0].URL, batch[1].URL)
	}

	rest := q.popBatch(5)
	if len(rest) != 1 || rest[0].URL != "low" {
		t.Errorf("expected final batch [low], got %v", rest)
	}
	if !q.empty() {
		t.Error("queue should be empty after draining")
	}
}

package crawler

import (
	"net/url"
	"sort"
	"strings"
)

// CrawlTarget is one queued URL with its crawl priority. Targets are created
// when a link is discovered and consumed once dequeued.
type CrawlTarget struct {
	URL      string
	Priority int
}

// Seed priorities sit above the scored range so the root and the original
// start URL are always fetched first.
const (
	priorityRootSeed  = 25
	priorityStartSeed = 22
	priorityMax       = 20
	priorityMin       = 1
	priorityBase      = 10
)

var highValueSegments = []string{"about", "contact", "services", "products", "blog", "faq"}

// targetQueue is the crawl frontier. It is owned by a single Crawl invocation
// and needs no locking: batches are dispatched and awaited as a group before
// the queue is touched again.
type targetQueue struct {
	items []CrawlTarget
}

func (q *targetQueue) push(t CrawlTarget) {
	q.items = append(q.items, t)
}

func (q *targetQueue) empty() bool {
	return len(q.items) == 0
}

// popBatch removes and returns up to n targets in non-increasing priority
// order. Ordering is guaranteed at batch granularity only; members of one
// batch are fetched concurrently.
func (q *targetQueue) popBatch(n int) []CrawlTarget {
	sort.SliceStable(q.items, func(i, j int) bool {
		return q.items[i].Priority > q.items[j].Priority
	})
	if n > len(q.items) {
		n = len(q.items)
	}
	batch := q.items[:n]
	q.items = q.items[n:]
	return batch
}

// scorePriority ranks a discovered URL: shallow paths and well-known
// high-value pages first, parameter-heavy URLs last.
func scorePriority(rawURL string) int {
	u, err := url.Parse(rawURL)
	if err != nil {
		return priorityMin
	}

	if u.Path == "" || u.Path == "/" {
		return priorityMax
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	score := priorityBase - 2*len(segments)

	lowerPath := strings.ToLower(u.Path)
	for _, seg := range highValueSegments {
		if strings.Contains(lowerPath, seg) {
			score += 5
			break
		}
	}

	score -= len(u.Query())

	if score > priorityMax {
		score = priorityMax
	}
	if score < priorityMin {
		score = priorityMin
	}
	return score
}

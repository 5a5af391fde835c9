// Package enhancer layers AI-assisted analysis on top of the heuristic
// duplicate detector: template-pattern detection, content categorization and
// intent-conflict detection through a text-completion port. Every AI path
// degrades to the pure detector output when the service is unavailable or
// returns garbage.
package enhancer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/go-scripts/seoscan/internal/completion"
	"github.com/go-scripts/seoscan/internal/similarity"
	"github.com/go-scripts/seoscan/internal/tokenbudget"
)

// Deterministic defaults substituted when the service omits the advisory
// fields, so the output contract is never partially empty.
const (
	defaultRootCause   = "repeated content across pages"
	defaultImprovement = "review the listed pages and differentiate their content"
)

// At most this many batches are sent per analysis kind, for cost control.
const maxBatchesPerKind = 2

// TemplatePattern is a recurring content skeleton found across pages.
type TemplatePattern struct {
	Pattern        string   `json:"pattern"`
	URLs           []string `json:"urls"`
	Recommendation string   `json:"recommendation"`
}

// IntentConflict marks pages competing for the same search intent.
type IntentConflict struct {
	Intent      string   `json:"intent"`
	URLs        []string `json:"urls"`
	Description string   `json:"description"`
}

// Result is the enhanced analysis for one content type.
type Result struct {
	DuplicateGroups   []similarity.DuplicateGroup `json:"duplicateGroups"`
	TemplatePatterns  []TemplatePattern           `json:"templatePatterns"`
	IntentConflicts   []IntentConflict            `json:"intentConflicts"`
	StrategicInsights []string                    `json:"strategicInsights"`
	AIAssisted        bool                        `json:"aiAssisted"`
}

// Options tune the enhancement run.
type Options struct {
	Complexity tokenbudget.Complexity
	BatchSize  int
	// CallInterval spaces successive completion calls. Calls are sequential
	// within one run; this is the minimum gap between them. Zero means one
	// second.
	CallInterval time.Duration
	Detector     similarity.Options
}

// DefaultOptions spaces calls one second apart at medium complexity.
func DefaultOptions() Options {
	return Options{
		Complexity: tokenbudget.ComplexityMedium,
		Detector:   similarity.DefaultOptions(),
	}
}

// Enhancer runs AI-assisted content analysis. The completion service is
// injected at construction; the Enhancer owns no global state.
type Enhancer struct {
	svc     completion.Service
	limiter *rate.Limiter
	opts    Options
}

// New builds an Enhancer around a completion service. svc may be nil, in
// which case every Enhance call returns the heuristic result.
func New(svc completion.Service, opts Options) *Enhancer {
	interval := opts.CallInterval
	if interval == 0 {
		interval = time.Second
	}
	return &Enhancer{
		svc:     svc,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		opts:    opts,
	}
}

// Enhance analyzes items of one content type. The exact tier always runs
// locally at no cost; the AI kinds run only when a service is available.
func (e *Enhancer) Enhance(ctx context.Context, items []similarity.ContentItem, contentType string) *Result {
	heuristic := similarity.DetectDuplicates(items, e.opts.Detector)

	result := &Result{DuplicateGroups: heuristic.DuplicateGroups}
	if e.svc == nil {
		result.StrategicInsights = append(result.StrategicInsights,
			"AI analysis unavailable, results are heuristic only")
		return result
	}

	budget := tokenbudget.NewBudget(e.opts.Complexity)
	batches := tokenbudget.CreateBatches(items, contentType, budget, tokenbudget.Options{
		BatchSize:    e.opts.BatchSize,
		PrioritySort: true,
	})
	if len(batches) > maxBatchesPerKind {
		batches = batches[:maxBatchesPerKind]
	}

	aiOK := false

	groups, err := e.categorize(ctx, batches)
	if err != nil {
		log.Error("content categorization fell back to heuristics", "contentType", contentType, "error", err)
	} else {
		result.DuplicateGroups = append(result.DuplicateGroups, groups...)
		aiOK = true
	}

	patterns, err := e.templatePatterns(ctx, batches)
	if err != nil {
		log.Error("template detection fell back to heuristics", "contentType", contentType, "error", err)
	} else {
		result.TemplatePatterns = patterns
		aiOK = true
	}

	conflicts, err := e.intentConflicts(ctx, batches)
	if err != nil {
		log.Error("intent-conflict detection fell back to heuristics", "contentType", contentType, "error", err)
	} else {
		result.IntentConflicts = conflicts
		aiOK = true
	}

	result.AIAssisted = aiOK
	result.StrategicInsights = buildInsights(result, heuristic)
	return result
}

// call sends one batch through the completion port, pacing successive calls,
// and returns the parsed JSON payload. A malformed payload gets one bounded
// repair attempt before the error propagates.
func (e *Enhancer) call(ctx context.Context, systemPrompt string, batch tokenbudget.Batch, out any) error {
	if err := e.limiter.Wait(ctx); err != nil {
		return err
	}

	userPrompt := renderBatch(batch)
	raw, err := e.svc.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return fmt.Errorf("completion call: %w", err)
	}

	if err := json.Unmarshal([]byte(raw), out); err == nil {
		return nil
	}
	repaired := repairJSON(raw)
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("malformed completion payload: %w", err)
	}
	return nil
}

func (e *Enhancer) categorize(ctx context.Context, batches []tokenbudget.Batch) ([]similarity.DuplicateGroup, error) {
	var groups []similarity.DuplicateGroup
	for _, batch := range batches {
		var payload categorizePayload
		if err := e.call(ctx, categorizePrompt, batch, &payload); err != nil {
			return nil, err
		}
		for _, g := range payload.Groups {
			if !validGroup(g) {
				log.Debug("dropping invalid AI group", "content", g.Content)
				continue
			}
			groups = append(groups, toDuplicateGroup(g))
		}
	}
	return groups, nil
}

func (e *Enhancer) templatePatterns(ctx context.Context, batches []tokenbudget.Batch) ([]TemplatePattern, error) {
	var patterns []TemplatePattern
	for _, batch := range batches {
		var payload templatePayload
		if err := e.call(ctx, templatePrompt, batch, &payload); err != nil {
			return nil, err
		}
		for _, p := range payload.Patterns {
			if p.Pattern == "" || len(p.URLs) < 2 {
				continue
			}
			if p.Recommendation == "" {
				p.Recommendation = defaultImprovement
			}
			patterns = append(patterns, p)
		}
	}
	return patterns, nil
}

func (e *Enhancer) intentConflicts(ctx context.Context, batches []tokenbudget.Batch) ([]IntentConflict, error) {
	var conflicts []IntentConflict
	for _, batch := range batches {
		var payload intentPayload
		if err := e.call(ctx, intentPrompt, batch, &payload); err != nil {
			return nil, err
		}
		for _, c := range payload.Conflicts {
			if c.Intent == "" || len(c.URLs) < 2 {
				continue
			}
			if c.Description == "" {
				c.Description = "multiple pages target the same search intent"
			}
			conflicts = append(conflicts, c)
		}
	}
	return conflicts, nil
}

type aiGroup struct {
	Content             string   `json:"content"`
	URLs                []string `json:"urls"`
	Category            string   `json:"category"`
	SimilarityScore     int      `json:"similarityScore"`
	RootCause           string   `json:"rootCause"`
	ImprovementStrategy string   `json:"improvementStrategy"`
}

type categorizePayload struct {
	Groups []aiGroup `json:"groups"`
}

type templatePayload struct {
	Patterns []TemplatePattern `json:"patterns"`
}

type intentPayload struct {
	Conflicts []IntentConflict `json:"conflicts"`
}

// validGroup is the minimal shape check applied before an AI-sourced group is
// trusted.
func validGroup(g aiGroup) bool {
	return g.Content != "" && len(g.URLs) >= 2
}

func toDuplicateGroup(g aiGroup) similarity.DuplicateGroup {
	dupType := similarity.TypeTemplate
	switch strings.ToLower(g.Category) {
	case "boilerplate":
		dupType = similarity.TypeBoilerplate
	case "intent":
		dupType = similarity.TypeIntent
	}
	score := g.SimilarityScore
	if score <= 0 || score > 100 {
		score = 90
	}
	rootCause := g.RootCause
	if rootCause == "" {
		rootCause = defaultRootCause
	}
	improvement := g.ImprovementStrategy
	if improvement == "" {
		improvement = defaultImprovement
	}
	return similarity.DuplicateGroup{
		Content:             g.Content,
		URLs:                g.URLs,
		SimilarityScore:     score,
		ImpactLevel:         impactFor(len(g.URLs)),
		DuplicationType:     dupType,
		RootCause:           rootCause,
		ImprovementStrategy: improvement,
	}
}

func impactFor(size int) string {
	switch {
	case size >= 10:
		return similarity.ImpactCritical
	case size >= 5:
		return similarity.ImpactHigh
	case size >= 3:
		return similarity.ImpactMedium
	default:
		return similarity.ImpactLow
	}
}

// renderBatch serializes a batch's items as the user prompt.
func renderBatch(batch tokenbudget.Batch) string {
	var sb strings.Builder
	sb.WriteString("Content items:\n")
	for i, item := range batch.Items {
		fmt.Fprintf(&sb, "%d. url=%s content=%q\n", i+1, item.URL, item.Content)
	}
	return sb.String()
}

func buildInsights(r *Result, heuristic *similarity.Result) []string {
	var insights []string
	if n := heuristic.Stats.ExactGroups; n > 0 {
		insights = append(insights, fmt.Sprintf("%d exact duplicate groups need immediate deduplication", n))
	}
	if n := len(r.TemplatePatterns); n > 0 {
		insights = append(insights, fmt.Sprintf("%d template patterns suggest generated or boilerplate copy", n))
	}
	if n := len(r.IntentConflicts); n > 0 {
		insights = append(insights, fmt.Sprintf("%d groups of pages compete for the same search intent", n))
	}
	if !r.AIAssisted {
		insights = append(insights, "AI analysis unavailable, results are heuristic only")
	}
	return insights
}

package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/deadonfilm/enrich/internal/cache"
	"github.com/deadonfilm/enrich/internal/model"
	"github.com/deadonfilm/enrich/pkg/perplexity"
)

// perplexityMaxConfidence caps the confidence of answer-engine output.
// The answer is a synthesis of unverified pages, not a primary source.
const perplexityMaxConfidence = 0.6

// Perplexity is the paid fallback: an answer-engine query issued only
// when the free sources have not produced enough corroboration.
type Perplexity struct {
	client       perplexity.Client
	store        cache.Store
	ttl          time.Duration
	costPerQuery float64
}

// NewPerplexity creates the source with the flat per-query cost the
// orchestrator charges against its budget.
func NewPerplexity(client perplexity.Client, store cache.Store, costPerQuery float64) *Perplexity {
	return &Perplexity{
		client:       client,
		store:        store,
		ttl:          DefaultCacheTTL,
		costPerQuery: costPerQuery,
	}
}

// SetCacheTTL overrides the cache TTL. Call before the first Lookup.
func (p *Perplexity) SetCacheTTL(ttl time.Duration) {
	p.ttl = ttl
}

func (p *Perplexity) Name() string                   { return "perplexity" }
func (p *Perplexity) Type() model.SourceType         { return model.SourceTypePerplexity }
func (p *Perplexity) IsFree() bool                   { return false }
func (p *Perplexity) EstimatedCostPerQuery() float64 { return p.costPerQuery }
func (p *Perplexity) ReliabilityTier() int           { return model.TierAggregator }
func (p *Perplexity) IsAvailable() bool              { return p.client != nil }

func (p *Perplexity) Lookup(ctx context.Context, subj model.Subject) (*model.LookupResult, error) {
	question := fmt.Sprintf(
		"How did %s die? Include the date, place, cause of death, and any notable circumstances.",
		subj.Name,
	)
	if subj.DeathYear != nil {
		question = fmt.Sprintf(
			"How did %s (died %d) die? Include the date, place, cause of death, and any notable circumstances.",
			subj.Name, *subj.DeathYear,
		)
	}
	entry := newEntry(model.SourceTypePerplexity, question)
	key := cache.Key(model.SourceTypePerplexity, question, "")

	return cachedLookup(ctx, p.store, key, p.ttl, func() (*model.LookupResult, error) {
		resp, err := p.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
			Messages: []perplexity.Message{
				{Role: "user", Content: question},
			},
		})
		if err != nil {
			return softenTransient(entry, err)
		}
		if len(resp.Choices) == 0 {
			return model.Failed(entry, "Empty answer"), nil
		}

		answer := strings.TrimSpace(resp.Choices[0].Message.Content)
		if answer == "" {
			return model.Failed(entry, "Empty answer"), nil
		}

		var citation string
		if len(resp.Citations) > 0 {
			citation = resp.Citations[0]
		}
		entry.URL = citation
		entry.Metadata = map[string]any{
			"citations": resp.Citations,
			"cost_usd":  p.costPerQuery,
		}

		data := &model.RawSourceData{
			SourceName:       p.Name(),
			SourceType:       model.SourceTypePerplexity,
			ExtractedText:    answer,
			Confidence:       perplexityMaxConfidence,
			ReliabilityTier:  model.TierAggregator,
			ReliabilityScore: 0.5,
			URL:              citation,
			Publication:      "Perplexity",
			ContentType:      "answer_engine",
			CostUSD:          p.costPerQuery,
		}
		return model.Succeeded(entry, data), nil
	})
}

package content

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/deadonfilm/enrich/internal/model"
	"github.com/deadonfilm/enrich/pkg/anthropic"
)

// Extractor turns cleaned page text into structured biographical content
// with a relevance classification.
type Extractor interface {
	Extract(ctx context.Context, subjectName, pageURL string, cleaned model.CleanedContent) (*model.ExtractedContent, error)
}

const extractorSystemPrompt = `You extract biographical content about deceased actors and other screen or stage figures from web pages.

Given a subject name and page text, respond with a single JSON object:
{
  "relevance": "none" | "low" | "medium" | "high",
  "extracted_text": "the biographical passages about the subject, verbatim",
  "article_title": "...",
  "publication": "...",
  "author": "...",
  "content_type": "obituary" | "biography" | "news" | "interview" | "other"
}

Relevance is "high" only when the page discusses the subject's death or personal life directly. Pages about a different person with the same name are "none". Respond with JSON only.`

const defaultExtractorModel = "claude-haiku-4-5-20251001"

// AIExtractor implements Extractor with the Anthropic messages API. The
// system prompt carries a cache breakpoint so batch runs reuse it.
type AIExtractor struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	maxInput  int
}

// AIOption configures an AIExtractor.
type AIOption func(*AIExtractor)

// WithModel overrides the extraction model.
func WithModel(model string) AIOption {
	return func(e *AIExtractor) {
		e.model = model
	}
}

// WithMaxInputBytes caps how much cleaned text is sent per page.
func WithMaxInputBytes(n int) AIOption {
	return func(e *AIExtractor) {
		e.maxInput = n
	}
}

// NewAIExtractor creates an extractor backed by the given client.
func NewAIExtractor(client anthropic.Client, opts ...AIOption) *AIExtractor {
	e := &AIExtractor{
		client:    client,
		model:     defaultExtractorModel,
		maxTokens: 2048,
		maxInput:  24_000,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type extractorAnswer struct {
	Relevance     string `json:"relevance"`
	ExtractedText string `json:"extracted_text"`
	ArticleTitle  string `json:"article_title"`
	Publication   string `json:"publication"`
	Author        string `json:"author"`
	ContentType   string `json:"content_type"`
}

func (e *AIExtractor) Extract(ctx context.Context, subjectName, pageURL string, cleaned model.CleanedContent) (*model.ExtractedContent, error) {
	text := cleaned.Text
	if len(text) > e.maxInput {
		text = text[:e.maxInput]
	}

	resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     e.model,
		MaxTokens: e.maxTokens,
		System:    anthropic.BuildCachedSystemBlocks(extractorSystemPrompt),
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf("Subject: %s\nURL: %s\n\nPage text:\n%s", subjectName, pageURL, text)},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "content: extraction request")
	}

	var answer extractorAnswer
	if err := json.Unmarshal([]byte(stripFences(resp.Text())), &answer); err != nil {
		return nil, eris.Wrap(err, "content: parse extraction answer")
	}

	resp.Usage.LogCost(e.model, "extract")

	out := &model.ExtractedContent{
		ExtractedText: answer.ExtractedText,
		ArticleTitle:  firstNonEmpty(answer.ArticleTitle, cleaned.Title),
		Publication:   firstNonEmpty(answer.Publication, cleaned.Publication),
		Author:        firstNonEmpty(answer.Author, cleaned.Author),
		PublishDate:   cleaned.PublishDate,
		Relevance:     model.ParseRelevance(answer.Relevance),
		ContentType:   answer.ContentType,
		URL:           pageURL,
		Domain:        domainOf(pageURL),
		OriginalBytes: cleaned.OriginalBytes,
		CleanedBytes:  len(cleaned.Text),
		CostUSD:       resp.Usage.EstimateCost(e.model),
	}
	return out, nil
}

// stripFences removes a markdown code fence if the model wrapped its JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

func domainOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}

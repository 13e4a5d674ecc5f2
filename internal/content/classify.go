package content

import (
	"strings"

	"github.com/deadonfilm/enrich/internal/model"
)

// careerTerms is vocabulary that signals filmography/award coverage.
var careerTerms = []string{
	"filmography",
	"box office",
	"box-office",
	"academy award",
	"oscar",
	"emmy",
	"golden globe",
	"grossed",
	"starred in",
	"blockbuster",
	"franchise",
	"sequel",
}

// biographyTerms is vocabulary that signals personal-life coverage.
var biographyTerms = []string{
	"childhood",
	"family",
	"personal life",
	"education",
	"grew up",
	"was born",
	"married",
	"survived by",
	"died",
	"death",
}

const careerHeavyMinLength = 400

// IsCareerHeavy reports whether the text is dominated by career vocabulary
// with no biographical vocabulary present. Such pages add filmography
// trivia rather than biography and are excluded before synthesis.
func IsCareerHeavy(text string) bool {
	if len(text) < careerHeavyMinLength {
		return false
	}
	lower := strings.ToLower(text)

	var careerHits int
	for _, term := range careerTerms {
		careerHits += strings.Count(lower, term)
	}
	if careerHits < 3 {
		return false
	}

	for _, term := range biographyTerms {
		if strings.Contains(lower, term) {
			return false
		}
	}
	return true
}

// ShouldPassToSynthesis gates extracted content on relevance. Only medium
// and high proceed; a fetched-but-irrelevant page is a failed lookup.
func ShouldPassToSynthesis(rel model.Relevance) bool {
	return rel == model.RelevanceMedium || rel == model.RelevanceHigh
}

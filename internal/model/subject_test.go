package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intp(n int) *int { return &n }

func TestSubject_IsDeceased(t *testing.T) {
	assert.False(t, Subject{Name: "Living Person"}.IsDeceased())
	assert.True(t, Subject{Name: "Gone Person", DeathYear: intp(1999)}.IsDeceased())
}

func TestSubject_YearsMatch(t *testing.T) {
	s := Subject{Name: "Test", BirthYear: intp(1920), DeathYear: intp(1985)}

	tests := []struct {
		name         string
		birth, death int
		want         bool
	}{
		{"exact", 1920, 1985, true},
		{"within tolerance", 1921, 1984, true},
		{"birth off by two", 1922, 1985, false},
		{"death off by two", 1920, 1987, false},
		{"candidate missing birth", 0, 1985, false},
		{"candidate missing death", 1920, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.YearsMatch(tt.birth, tt.death, 1))
		})
	}
}

func TestSubject_YearsMatch_UnknownSubjectYears(t *testing.T) {
	// A subject with no recorded years accepts any candidate.
	s := Subject{Name: "Unknown Years"}
	assert.True(t, s.YearsMatch(0, 0, 1))
	assert.True(t, s.YearsMatch(1900, 1990, 1))

	// Only the recorded year is checked.
	birthOnly := Subject{Name: "Birth Only", BirthYear: intp(1950)}
	assert.True(t, birthOnly.YearsMatch(1950, 0, 1))
	assert.False(t, birthOnly.YearsMatch(1955, 0, 1))
}

func TestParseRelevance(t *testing.T) {
	assert.Equal(t, RelevanceHigh, ParseRelevance("high"))
	assert.Equal(t, RelevanceMedium, ParseRelevance("medium"))
	assert.Equal(t, RelevanceLow, ParseRelevance("low"))
	assert.Equal(t, RelevanceNone, ParseRelevance("none"))
	assert.Equal(t, RelevanceNone, ParseRelevance("garbage"))
	assert.Equal(t, RelevanceNone, ParseRelevance(""))
}

func TestLookupResult_Constructors(t *testing.T) {
	entry := SourceEntry{SourceType: SourceTypeWikipedia, Query: "Test Person"}

	failed := Failed(entry, "Article not found")
	assert.False(t, failed.Success)
	assert.Nil(t, failed.Data)
	assert.Equal(t, "Article not found", failed.Error)
	assert.Equal(t, SourceTypeWikipedia, failed.Source.SourceType)

	data := &RawSourceData{SourceName: "Wikipedia", Confidence: 0.9}
	ok := Succeeded(entry, data)
	assert.True(t, ok.Success)
	assert.Equal(t, data, ok.Data)
	assert.Equal(t, 0.9, ok.Source.Confidence)
	assert.Empty(t, ok.Error)
}

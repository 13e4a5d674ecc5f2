package model

import "time"

// Subject is the person being enriched. It is an immutable input to a
// lookup; sources never mutate it.
type Subject struct {
	ID         int64      `json:"id"`
	IMDbID     string     `json:"imdb_id,omitempty"`
	Name       string     `json:"name"`
	BirthYear  *int       `json:"birth_year,omitempty"`
	DeathYear  *int       `json:"death_year,omitempty"` // nil means "not known deceased"
	BirthDate  *time.Time `json:"birth_date,omitempty"`
	DeathDate  *time.Time `json:"death_date,omitempty"`
	Popularity float64    `json:"popularity,omitempty"`
}

// IsDeceased reports whether the subject has a known death year.
func (s Subject) IsDeceased() bool {
	return s.DeathYear != nil
}

// YearsMatch reports whether a candidate birth/death year pair matches the
// subject's known years within the given tolerance. A year the subject does
// not have recorded matches anything; a year the candidate could not supply
// (zero) fails when the subject has one recorded.
func (s Subject) YearsMatch(birth, death int, tolerance int) bool {
	if s.BirthYear != nil {
		if birth == 0 || abs(*s.BirthYear-birth) > tolerance {
			return false
		}
	}
	if s.DeathYear != nil {
		if death == 0 || abs(*s.DeathYear-death) > tolerance {
			return false
		}
	}
	return true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

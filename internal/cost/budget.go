package cost

import "sync"

// Budget caps spending for one enrichment run. A zero cap means unlimited.
type Budget struct {
	RunCapUSD     float64 `yaml:"run_cap_usd" mapstructure:"run_cap_usd"`
	SubjectCapUSD float64 `yaml:"subject_cap_usd" mapstructure:"subject_cap_usd"`
}

// Ledger accumulates actual spend against a Budget, per run and per subject.
type Ledger struct {
	budget Budget

	mu        sync.Mutex
	runTotal  float64
	bySubject map[int64]float64
}

// NewLedger creates an empty ledger for the given budget.
func NewLedger(budget Budget) *Ledger {
	return &Ledger{budget: budget, bySubject: make(map[int64]float64)}
}

// CanSpend reports whether an estimated charge for the subject fits within
// both the run cap and the per-subject cap.
func (l *Ledger) CanSpend(subjectID int64, estimatedUSD float64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.budget.RunCapUSD > 0 && l.runTotal+estimatedUSD > l.budget.RunCapUSD {
		return false
	}
	if l.budget.SubjectCapUSD > 0 && l.bySubject[subjectID]+estimatedUSD > l.budget.SubjectCapUSD {
		return false
	}
	return true
}

// Charge records actual spend for a subject.
func (l *Ledger) Charge(subjectID int64, usd float64) {
	if usd <= 0 {
		return
	}
	l.mu.Lock()
	l.runTotal += usd
	l.bySubject[subjectID] += usd
	l.mu.Unlock()
}

// RunTotal returns the cumulative spend across all subjects.
func (l *Ledger) RunTotal() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.runTotal
}

// SubjectTotal returns the cumulative spend for one subject.
func (l *Ledger) SubjectTotal(subjectID int64) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bySubject[subjectID]
}

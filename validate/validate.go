// Package validate scores whether a generated answer is demonstrably grounded
// in supplied web evidence. Scoring is a pure function of its inputs: four
// independent 25-point checks summed to 0-100, no side effects, no network.
package validate

import (
	"fmt"
	"strings"
	"time"

	"github.com/competeiq/tripartite/search"
)

// CheckPoints is the weight of each of the four groundedness checks.
const CheckPoints = 25

// Score is the result of validating one response against one evidence bundle.
type Score struct {
	Score  int      `json:"score"`  // 0-100
	Passed bool     `json:"passed"` // score >= pass threshold
	Issues []string `json:"issues,omitempty"`
}

// Validator runs the groundedness checks. The clock is injected so the
// current-year recency marker stays deterministic under test.
type Validator struct {
	passThreshold   int
	minOverlapWords int
	now             func() time.Time
}

// New creates a validator. passThreshold is the minimum score counted as
// passed; the reference behaviour is 100 (all four checks, strict AND).
func New(passThreshold, minOverlapWords int) *Validator {
	if passThreshold <= 0 {
		passThreshold = 100
	}
	if minOverlapWords <= 0 {
		minOverlapWords = 10
	}
	return &Validator{
		passThreshold:   passThreshold,
		minOverlapWords: minOverlapWords,
		now:             time.Now,
	}
}

// NewWithClock creates a validator with a fixed clock; for tests.
func NewWithClock(passThreshold, minOverlapWords int, now func() time.Time) *Validator {
	v := New(passThreshold, minOverlapWords)
	v.now = now
	return v
}

// Attribution phrases in English and Spanish; the product surface is bilingual.
var attributionPhrases = []string{
	"according to", "source", "reports", "indicates",
	"según", "fuente", "informa", "indica",
}

// Static recency terms; year strings are added per call from the clock.
var recencyTerms = []string{
	"recent", "current", "latest", "according to current data",
	"reciente", "actual", "último", "últimos",
}

// Score runs the four checks. Only meaningful when evidence exists; callers
// skip validation entirely when no bundle was fetched.
func (v *Validator) Score(responseText string, evidence *search.EvidenceBundle) Score {
	var result Score
	if evidence == nil {
		return result
	}

	lower := strings.ToLower(responseText)

	if v.checkSourceReference(lower, evidence) {
		result.Score += CheckPoints
	} else {
		result.Issues = append(result.Issues, "response does not mention any evidence source")
	}

	if shared := sharedLongWords(lower, strings.ToLower(evidence.Content)); shared > v.minOverlapWords {
		result.Score += CheckPoints
	} else {
		result.Issues = append(result.Issues,
			fmt.Sprintf("lexical overlap with evidence too low (%d shared words, need more than %d)", shared, v.minOverlapWords))
	}

	if v.checkRecencyMarker(lower) {
		result.Score += CheckPoints
	} else {
		result.Issues = append(result.Issues, "response carries no recency marker")
	}

	if checkAttribution(lower) {
		result.Score += CheckPoints
	} else {
		result.Issues = append(result.Issues, "response contains no source-attribution phrase")
	}

	result.Passed = result.Score >= v.passThreshold
	return result
}

// checkSourceReference looks for any source's domain token (the part before
// the first dot, ignoring scheme and www) in the response.
func (v *Validator) checkSourceReference(lowerResponse string, evidence *search.EvidenceBundle) bool {
	for _, src := range evidence.Sources {
		token := domainToken(src)
		if token != "" && strings.Contains(lowerResponse, token) {
			return true
		}
	}
	return false
}

func (v *Validator) checkRecencyMarker(lowerResponse string) bool {
	year := v.now().Year()
	terms := append([]string{fmt.Sprint(year), fmt.Sprint(year - 1)}, recencyTerms...)
	for _, term := range terms {
		if strings.Contains(lowerResponse, term) {
			return true
		}
	}
	return false
}

func checkAttribution(lowerResponse string) bool {
	for _, phrase := range attributionPhrases {
		if strings.Contains(lowerResponse, phrase) {
			return true
		}
	}
	return false
}

// domainToken extracts the token before the first dot of a source's host:
// "https://www.bloomberg.com/x" -> "bloomberg".
func domainToken(src string) string {
	s := strings.ToLower(strings.TrimSpace(src))
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimPrefix(s, "www.")
	if i := strings.Index(s, "."); i >= 0 {
		s = s[:i]
	}
	if len(s) < 3 {
		// Tokens like "go" or "io" match everywhere and prove nothing.
		return ""
	}
	return s
}

// sharedLongWords counts distinct words longer than four characters that
// appear in both texts.
func sharedLongWords(a, b string) int {
	inA := make(map[string]struct{})
	for _, w := range splitWords(a) {
		if len(w) > 4 {
			inA[w] = struct{}{}
		}
	}
	seen := make(map[string]struct{})
	count := 0
	for _, w := range splitWords(b) {
		if len(w) <= 4 {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		if _, ok := inA[w]; ok {
			count++
			seen[w] = struct{}{}
		}
	}
	return count
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r >= 'A' && r <= 'Z' || r == '-')
	})
}

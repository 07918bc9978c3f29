package scananalysis

import (
	"regexp"
	"strings"
)

// Scorer rates how confident oracle prose sounds, in [0, 1].
type Scorer interface {
	Score(text string) float64
}

var (
	highConfidenceTerms   = []string{"clearly visible", "well-defined", "characteristic", "typical", "definitive", "pathognomonic"}
	mediumConfidenceTerms = []string{"likely", "probably", "suggests", "consistent with", "appears", "suspicious"}
	hedgingTerms          = []string{"possibly", "might", "questionable", "unclear", "indeterminate", "needs correlation"}
	indicatorTerms        = []string{"tumor", "mass", "lesion", "neoplasm", "enhancement"}

	measurementRe = regexp.MustCompile(`(?i)\d+\.?\d*\s*(cm|mm)`)
)

// KeywordScorer starts at 0.5 and adjusts for phrasing and measurements.
type KeywordScorer struct{}

func (KeywordScorer) Score(text string) float64 {
	lower := strings.ToLower(text)
	score := 0.5

	switch n := countContained(lower, indicatorTerms); {
	case n >= 3:
		score += 0.2
	case n >= 1:
		score += 0.1
	}
	if countContained(lower, highConfidenceTerms) > 0 {
		score += 0.25
	}
	if countContained(lower, mediumConfidenceTerms) > 0 {
		score += 0.1
	}
	if countContained(lower, hedgingTerms) > 0 {
		score -= 0.2
	}
	if measurementRe.MatchString(text) {
		score += 0.15
	}
	return clamp(score)
}

func countContained(text string, terms []string) int {
	n := 0
	for _, t := range terms {
		if strings.Contains(text, t) {
			n++
		}
	}
	return n
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// ConfidenceLevel labels a score for display.
func ConfidenceLevel(score float64) string {
	switch {
	case score >= 0.7:
		return "High"
	case score >= 0.4:
		return "Medium"
	default:
		return "Low"
	}
}

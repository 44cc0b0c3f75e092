package rerank

import (
	"regexp"
	"strings"

	"github.com/parchmentlabs/clauseseek/internal/core/domain"
	"github.com/parchmentlabs/clauseseek/internal/core/ports/driven"
)

// Ensure all scorers implement the interface.
var (
	_ driven.Scorer = (*KeywordScorer)(nil)
	_ driven.Scorer = (*NumericScorer)(nil)
	_ driven.Scorer = (*NegationScorer)(nil)
)

// analyzedScorer is the fast path used by the Matcher: the question profile
// is computed once per question instead of once per scorer per chunk.
type analyzedScorer interface {
	scoreAnalyzed(a QuestionAnalysis, chunk domain.Chunk) float64
}

// KeywordScorer rates token overlap between question and chunk, with a
// bonus for shared domain vocabulary. Stop words are excluded on both sides.
type KeywordScorer struct{}

// Name returns the scorer name.
func (KeywordScorer) Name() string { return "keyword_overlap" }

// Score rates how well a chunk answers the question, in [0, 1].
func (s KeywordScorer) Score(question string, chunk domain.Chunk) float64 {
	return s.scoreAnalyzed(AnalyzeQuestion(question), chunk)
}

func (KeywordScorer) scoreAnalyzed(a QuestionAnalysis, chunk domain.Chunk) float64 {
	if len(a.Terms) == 0 {
		return 0
	}
	lower := strings.ToLower(chunk.Text)

	chunkTerms := make(map[string]struct{})
	for _, t := range contentTerms(lower) {
		chunkTerms[t] = struct{}{}
	}

	unique := make(map[string]struct{}, len(a.Terms))
	matched := 0
	for _, t := range a.Terms {
		if _, dup := unique[t]; dup {
			continue
		}
		unique[t] = struct{}{}
		if _, ok := chunkTerms[t]; ok {
			matched++
		}
	}
	overlap := float64(matched) / float64(len(unique))

	domainBonus := 0.0
	if len(a.DomainTerms) > 0 {
		hits := 0
		for _, term := range a.DomainTerms {
			if strings.Contains(lower, term) {
				hits++
			}
		}
		domainBonus = float64(hits) / float64(len(a.DomainTerms))
	}

	return clamp01(0.8*overlap + 0.2*domainBonus)
}

// Number words cover spelled-out quantities common in policy text
// ("thirty days", "twenty four months").
var (
	unitWords   = `(?:day|days|month|months|year|years|weeks?|hours?|percent|%)`
	numberWords = `(?:one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve|` +
		`thirteen|fourteen|fifteen|sixteen|seventeen|eighteen|nineteen|twenty|` +
		`thirty|forty|fifty|sixty|seventy|eighty|ninety|hundred)`

	quantityPattern = regexp.MustCompile(`(?i)(?:\d+(?:[.,]\d+)*|` + numberWords + `(?:[\s-]` + numberWords + `)*)\s*` + unitWords)
	currencyPattern = regexp.MustCompile(`(?:[$€£₹]|Rs\.?|INR|USD)\s*[\d,]+(?:\.\d+)?`)
)

// NumericScorer rates agreement on quantities. Questions that name numbers
// expect chunks naming the same numbers; factual questions without numbers
// favour chunks that quantify anything at all (a period, an amount, a cap).
type NumericScorer struct{}

// Name returns the scorer name.
func (NumericScorer) Name() string { return "numeric_match" }

// Score rates how well a chunk answers the question, in [0, 1].
func (s NumericScorer) Score(question string, chunk domain.Chunk) float64 {
	return s.scoreAnalyzed(AnalyzeQuestion(question), chunk)
}

func (NumericScorer) scoreAnalyzed(a QuestionAnalysis, chunk domain.Chunk) float64 {
	lower := strings.ToLower(chunk.Text)

	var questionNumbers []string
	for _, e := range a.Entities {
		if numberPattern.MatchString(e) {
			questionNumbers = append(questionNumbers, strings.ToLower(e))
		}
	}

	chunkQuantifies := quantityPattern.MatchString(chunk.Text) ||
		currencyPattern.MatchString(chunk.Text) ||
		numberPattern.MatchString(chunk.Text)

	if len(questionNumbers) > 0 {
		matched := 0
		for _, n := range questionNumbers {
			if strings.Contains(lower, n) {
				matched++
			}
		}
		score := float64(matched) / float64(len(questionNumbers))
		if chunkQuantifies {
			score += 0.2
		}
		return clamp01(score)
	}

	if a.Kind == KindFactual {
		if chunkQuantifies {
			return 0.8
		}
		return 0.2
	}

	// Non-quantitative question: nothing to agree or disagree on.
	return 0.5
}

// NegationScorer rates polarity consistency. A question asserting presence
// matched against a clause asserting absence (or vice versa) is likely the
// wrong clause even when topically similar, so mismatches score low.
type NegationScorer struct{}

// Name returns the scorer name.
func (NegationScorer) Name() string { return "negation_consistency" }

// Score rates how well a chunk answers the question, in [0, 1].
func (s NegationScorer) Score(question string, chunk domain.Chunk) float64 {
	return s.scoreAnalyzed(AnalyzeQuestion(question), chunk)
}

func (NegationScorer) scoreAnalyzed(a QuestionAnalysis, chunk domain.Chunk) float64 {
	chunkNegated := containsNegation(strings.ToLower(chunk.Text))
	if a.Negated == chunkNegated {
		return 1.0
	}
	return 0.3
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

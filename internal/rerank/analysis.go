// Package rerank re-scores retrieval candidates with domain heuristics.
//
// Pure vector similarity frequently surfaces topically similar but factually
// wrong clauses (a waiting-period clause for a different benefit, say). The
// clause matcher corrects for this with cheap lexical signals instead of a
// second model call: keyword overlap, numeric/unit agreement, and negation
// polarity, blended with the vector score under a configurable weight.
package rerank

import (
	"regexp"
	"strings"
)

// QuestionKind classifies what shape of answer a question expects.
type QuestionKind string

// Question kinds.
const (
	// KindFactual asks for a value: an amount, a period, a limit.
	KindFactual QuestionKind = "factual"

	// KindBoolean asks whether something holds.
	KindBoolean QuestionKind = "boolean"

	// KindExplanatory asks how or why.
	KindExplanatory QuestionKind = "explanatory"

	// KindGeneral is everything else.
	KindGeneral QuestionKind = "general"
)

// domainKeywords groups the vocabulary of the document domains this system
// is pointed at. A question touching one of these categories gets a scoring
// bonus for chunks sharing the category's terms.
var domainKeywords = map[string][]string{
	"coverage":       {"cover", "coverage", "covered", "benefit", "indemnify", "reimburse"},
	"exclusions":     {"exclude", "exclusion", "not covered", "except", "limitation"},
	"conditions":     {"condition", "requirement", "eligibility", "qualify", "subject to"},
	"waiting_period": {"waiting period", "wait", "months", "continuous coverage"},
	"limits":         {"limit", "maximum", "cap", "up to", "not exceeding"},
	"definitions":    {"means", "defined as", "refers to", "includes", "definition"},
	"obligations":    {"shall", "must", "required", "obligation", "duty"},
	"rights":         {"right", "entitled", "permitted", "authorized"},
	"terms":          {"term", "period", "duration", "effective", "commence"},
	"leave":          {"leave", "vacation", "sick", "absence", "time off"},
	"compensation":   {"compensation", "allowance", "reimbursement", "salary"},
}

// stopWords are excluded from keyword overlap. The list is tuned for
// question-against-clause matching, so interrogatives are included.
var stopWords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"a", "an", "the", "is", "are", "was", "were", "be", "been", "being",
		"do", "does", "did", "will", "would", "shall", "should", "can",
		"could", "may", "might", "have", "has", "had", "of", "in", "on",
		"for", "to", "from", "by", "with", "at", "as", "and", "or", "but",
		"if", "then", "than", "this", "that", "these", "those", "it", "its",
		"there", "here", "any", "all", "what", "which", "who", "whom",
		"whose", "when", "where", "why", "how", "under", "about", "please",
	} {
		stopWords[w] = struct{}{}
	}
}

var (
	wordPattern       = regexp.MustCompile(`[a-z0-9][a-z0-9'-]*`)
	numberPattern     = regexp.MustCompile(`\d+(?:[.,]\d+)*%?`)
	quotedPattern     = regexp.MustCompile(`"([^"]+)"`)
	capitalisedTerm   = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)
	factualIndicators = []string{"what", "which", "how much", "how many"}
	booleanIndicators = []string{"does", "is", "are", "can", "will", "do", "has", "have"}
	explanIndicators  = []string{"how", "why", "when", "where"}
)

// QuestionAnalysis is the precomputed lexical profile of one question,
// shared by all scorers so the question is only tokenised once.
type QuestionAnalysis struct {
	// Text is the original question.
	Text string

	// Kind is the expected answer shape.
	Kind QuestionKind

	// Terms are the lowercased non-stop-word tokens of the question.
	Terms []string

	// DomainTerms are the domain vocabulary entries the question touches.
	DomainTerms []string

	// Entities are the salient literals: numbers, quoted phrases, and
	// capitalised terms.
	Entities []string

	// Negated reports whether the question asserts an absence.
	Negated bool
}

// AnalyzeQuestion builds the lexical profile of a question.
func AnalyzeQuestion(question string) QuestionAnalysis {
	lower := strings.ToLower(question)

	a := QuestionAnalysis{
		Text:    question,
		Kind:    classify(lower),
		Terms:   contentTerms(lower),
		Negated: containsNegation(lower),
	}

	for _, terms := range domainKeywords {
		for _, term := range terms {
			if strings.Contains(lower, term) {
				a.DomainTerms = append(a.DomainTerms, term)
			}
		}
	}

	a.Entities = append(a.Entities, numberPattern.FindAllString(question, -1)...)
	for _, m := range quotedPattern.FindAllStringSubmatch(question, -1) {
		a.Entities = append(a.Entities, m[1])
	}
	a.Entities = append(a.Entities, capitalisedTerm.FindAllString(question, -1)...)

	return a
}

// classify picks the question kind by its leading interrogative shape.
// Factual wins over explanatory so "how much" is not treated as "how".
func classify(lower string) QuestionKind {
	for _, ind := range factualIndicators {
		if strings.Contains(lower, ind) {
			return KindFactual
		}
	}
	for _, ind := range booleanIndicators {
		if strings.HasPrefix(lower, ind+" ") {
			return KindBoolean
		}
	}
	for _, ind := range explanIndicators {
		if strings.HasPrefix(lower, ind+" ") {
			return KindExplanatory
		}
	}
	return KindGeneral
}

// contentTerms tokenises lowercased text and drops stop words.
func contentTerms(lower string) []string {
	var terms []string
	for _, w := range wordPattern.FindAllString(lower, -1) {
		if _, stop := stopWords[w]; !stop {
			terms = append(terms, w)
		}
	}
	return terms
}

// negationCues mark a clause or question as asserting an absence.
var negationCues = []string{
	"not covered", "shall not", "will not", "does not", "do not",
	"is not", "are not", "excluded", "exclusion", "except ", "without",
	"no coverage", "never", "none of",
}

// containsNegation reports whether text carries a negative polarity cue.
func containsNegation(lower string) bool {
	for _, cue := range negationCues {
		if strings.Contains(lower, cue) {
			return true
		}
	}
	return false
}

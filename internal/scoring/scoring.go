// Package scoring rates a normalized answer against its field rule.
//
// A score is the weighted sum of three sub-checks (length, keyword or
// pattern, vagueness) in the range 0..1. Scoring is pure: the same field and
// text always produce the same Result.
package scoring

import (
	"errors"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/joelkehle/brd-assistant/internal/fields"
)

var ErrPrivacyGate = errors.New("privacy gate is not scored")

const (
	lengthWeight    = 0.4
	keywordWeight   = 0.3
	vaguenessWeight = 0.3

	boilerplatePenalty = 0.5
	genericPenalty     = 1.0
)

// Boilerplate phrases penalized in every scored field.
var boilerplate = []string{
	"asap", "as soon as possible", "user friendly", "tbd", "n/a", "etc",
	"better", "improve", "optimize", "optimal", "efficient", "easy", "seamless",
	"when needed", "as needed", "reasonable", "appropriate", "quickly",
	"uygun", "mümkün", "hızlı", "optimum", "gerektiğinde", "makul", "iyileştir",
	"geliştir", "daha iyi", "kolay", "en kısa", "verimli",
}

type Result struct {
	FieldID   string             `json:"field_id"`
	Value     float64            `json:"value"`
	Accepted  bool               `json:"accepted"`
	Reasons   []string           `json:"reasons,omitempty"`
	FollowUps []fields.Question  `json:"follow_ups,omitempty"`
	Checks    map[string]float64 `json:"checks"`
}

// Score rates text for fieldID. The privacy gate returns ErrPrivacyGate and
// unknown fields return fields.ErrUnknownField.
func Score(fieldID, text string) (Result, error) {
	def, err := fields.Lookup(fieldID)
	if err != nil {
		return Result{}, err
	}
	if def.IsPrivacyGate {
		return Result{}, ErrPrivacyGate
	}
	return scoreDefinition(def, text), nil
}

func scoreDefinition(def fields.Definition, text string) Result {
	rule := def.Rule
	trimmed := strings.TrimSpace(text)
	tokens := tokenize(trimmed)

	res := Result{FieldID: def.ID, Checks: map[string]float64{}}

	length := 1.0
	if utf8.RuneCountInString(trimmed) < rule.MinChars {
		length = 0
		res.Reasons = append(res.Reasons, fields.ReasonTooShort)
	}

	keyword := 1.0
	if rule.HasKeywordCheck() && !matchesAny(tokens, rule.Keywords) &&
		(rule.Pattern == nil || !rule.Pattern.MatchString(trimmed)) {
		keyword = 0
		res.Reasons = append(res.Reasons, fields.ReasonMissingKeywords)
	}

	vagueness := 1.0
	if len(tokens) < rule.MinWords {
		vagueness = 0
	} else {
		penalty := boilerplatePenalty*float64(countHits(tokens, boilerplate)) +
			genericPenalty*float64(countHits(tokens, rule.GenericTerms))
		vagueness = math.Max(0, 1-penalty)
	}
	if vagueness < 1 {
		res.Reasons = append(res.Reasons, fields.ReasonVague)
	}

	res.Checks["length"] = length
	res.Checks["keyword"] = keyword
	res.Checks["vagueness"] = vagueness
	res.Value = round(lengthWeight*length+keywordWeight*keyword+vaguenessWeight*vagueness, 2)
	res.Accepted = res.Value >= rule.Threshold
	if !res.Accepted {
		for _, reason := range res.Reasons {
			if q, ok := def.FollowUp(reason); ok {
				res.FollowUps = append(res.FollowUps, q)
			}
		}
	}
	return res
}

// Total converts per-field values into points out of fields.MaxScore().
// Unknown ids and the privacy gate contribute nothing.
func Total(values map[string]float64) float64 {
	total := 0.0
	for _, def := range fields.ScoredFields() {
		if v, ok := values[def.ID]; ok {
			total += def.Rule.Weight * v
		}
	}
	return round(total, 1)
}

// Word suffixes a term may carry and still match, so "report" matches
// "reports" but not "reporting", and "store" does not match "stored".
var inflections = []string{"s", "es", "me", "mek", "meli", "ler", "lar"}

// tokenize lowercases text and splits it on anything that is not a letter or
// digit. "user-friendly" and "n/a" become two tokens each.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func wordMatches(tok, word string) bool {
	if tok == word {
		return true
	}
	if !strings.HasPrefix(tok, word) {
		return false
	}
	rest := tok[len(word):]
	for _, suffix := range inflections {
		if rest == suffix {
			return true
		}
	}
	return false
}

// termMatches reports whether the words of term appear as consecutive tokens.
// Only the last word may carry an inflection.
func termMatches(tokens []string, term string) bool {
	words := tokenize(term)
	if len(words) == 0 {
		return false
	}
	last := len(words) - 1
	for i := 0; i+len(words) <= len(tokens); i++ {
		ok := true
		for j, w := range words {
			if j < last && tokens[i+j] != w || j == last && !wordMatches(tokens[i+j], w) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func matchesAny(tokens []string, terms []string) bool {
	for _, term := range terms {
		if termMatches(tokens, term) {
			return true
		}
	}
	return false
}

func countHits(tokens []string, terms []string) int {
	n := 0
	for _, term := range terms {
		if termMatches(tokens, term) {
			n++
		}
	}
	return n
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

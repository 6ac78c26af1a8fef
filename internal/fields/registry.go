// Package fields holds the static catalog of BRD fields, their order and
// their scoring rules.
package fields

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var ErrUnknownField = errors.New("unknown field")

const (
	Background          = "background"
	ExpectedResults     = "expected_results"
	TargetCustomerGroup = "target_customer_group"
	ImpactedChannels    = "impacted_channels"
	ImpactedJourney     = "impacted_journey"
	JourneysDescription = "journeys_description"
	ReportsNeeded       = "reports_needed"
	TrafficForecast     = "traffic_forecast"
	PrivacyCompliance   = "privacy_compliance"
)

// DefaultThreshold is the minimum score a field needs to be accepted.
const DefaultThreshold = 0.75

// Rule describes how an answer for a field is scored. Weight is the number
// of points the field contributes to the 100-point session total.
type Rule struct {
	MinChars     int
	MinWords     int
	Keywords     []string
	Pattern      *regexp.Regexp
	GenericTerms []string
	Weight       float64
	Threshold    float64
}

// HasKeywordCheck reports whether the rule requires a keyword or pattern hit.
func (r Rule) HasKeywordCheck() bool {
	return len(r.Keywords) > 0 || r.Pattern != nil
}

type Definition struct {
	ID            string
	Label         string
	Index         int
	Description   string
	Rule          Rule
	IsPrivacyGate bool
	// Questions maps a weakness reason to the follow-up question asked for it.
	Questions map[string]Question
}

type Question struct {
	ID   string
	Text string
}

var registry = buildRegistry()

func buildRegistry() []Definition {
	defs := []Definition{
		{
			ID:          Background,
			Label:       "Background",
			Description: "Why the change is needed: the current problem, who is affected and the business impact.",
			Rule:        Rule{MinChars: 50, MinWords: 3, Weight: 15},
			Questions: questions("BACKGROUND",
				"What problem are customers or the business facing today, and what is its impact?",
				"Which group is affected by the current problem?",
				"Can you describe the problem concretely, without general terms such as 'improve' or 'faster'?"),
		},
		{
			ID:          ExpectedResults,
			Label:       "Expected Results",
			Description: "The measurable outcome expected after go-live, with a target value or KPI.",
			Rule: Rule{
				MinChars: 20,
				MinWords: 3,
				Pattern:  regexp.MustCompile(`(?i)(%|\d|\bkpi\b|\brate\b|percent|\boran|\badet\b|\bsn\b|\bdk\b|\bseconds?\b|\bminutes?\b)`),
				Weight:   15,
			},
			Questions: questions("EXPECTED_RESULTS",
				"What result do you expect after launch?",
				"What measurable target should be reached (for example a percentage, a count or a KPI)?",
				"Which concrete metric will show the result was achieved?"),
		},
		{
			ID:          TargetCustomerGroup,
			Label:       "Target Customer Group",
			Description: "The customer segment the change is aimed at.",
			Rule: Rule{
				MinChars:     10,
				MinWords:     2,
				GenericTerms: []string{"all customers", "all users", "everyone", "everybody", "tüm", "herkes"},
				Weight:       5,
			},
			Questions: questions("TARGET_CUSTOMER_GROUP",
				"Which customer group is this change for?",
				"Which customer group is this change for?",
				"Can you narrow the target group to a specific segment instead of all customers?"),
		},
		{
			ID:          ImpactedChannels,
			Label:       "Impacted Channels",
			Description: "The channels touched by the change, such as mobile app, web, call center or branch.",
			Rule: Rule{
				MinChars: 10,
				MinWords: 3,
				Keywords: []string{"app", "web", "mobile", "call center", "store", "api", "sms", "email", "ivr", "branch", "kiosk", "chatbot", "atm", "uygulama", "şube", "internet"},
				Weight:   10,
			},
			Questions: questions("IMPACTED_CHANNELS",
				"Which channels are impacted by this change?",
				"Which channels (mobile app, web, call center, branch, API ...) are impacted?",
				"Can you list each impacted channel explicitly?"),
		},
		{
			ID:          ImpactedJourney,
			Label:       "Impacted Journey",
			Description: "Whether the change creates a new journey or modifies an existing one, and which.",
			Rule: Rule{
				MinChars: 10,
				MinWords: 2,
				Keywords: []string{"new", "existing", "current", "yeni", "mevcut"},
				Weight:   5,
			},
			Questions: questions("IMPACTED_JOURNEY",
				"Which customer journey is impacted?",
				"Is this a new journey or a change to an existing one?",
				"Can you name the specific journey that is impacted?"),
		},
		{
			ID:          JourneysDescription,
			Label:       "Journeys Description",
			Description: "The to-be journey step by step, including error and edge cases.",
			Rule: Rule{
				MinChars: 120,
				MinWords: 3,
				Keywords: []string{"edge", "error", "timeout", "fail", "exception", "retry", "hata", "zaman aşımı"},
				Weight:   40,
			},
			Questions: questions("JOURNEYS_DESCRIPTION",
				"Can you describe the to-be journey step by step, from entry to completion?",
				"What happens on errors, timeouts or other edge cases along the journey?",
				"Can you describe each step concretely instead of in general terms?"),
		},
		{
			ID:          ReportsNeeded,
			Label:       "Reports Needed",
			Description: "Reports, dashboards or metrics required after launch, or an explicit 'none'.",
			Rule: Rule{
				MinChars: 4,
				MinWords: 1,
				Keywords: []string{"report", "dashboard", "metric", "kpi", "rapor", "none", "not needed", "yok"},
				Weight:   5,
			},
			Questions: questions("REPORTS_NEEDED",
				"Which reports or dashboards are needed after launch?",
				"Which report, dashboard or metric is needed? Answer 'none' if no report is required.",
				"Can you name the specific reports that are needed?"),
		},
		{
			ID:          TrafficForecast,
			Label:       "Traffic Forecast",
			Description: "Expected volume, such as transactions or users per day.",
			Rule: Rule{
				MinChars: 5,
				MinWords: 2,
				Pattern:  regexp.MustCompile(`\d`),
				Weight:   5,
			},
			Questions: questions("TRAFFIC_FORECAST",
				"What traffic volume do you expect?",
				"Can you give a number, for example transactions per day or concurrent users?",
				"Can you give a concrete volume estimate?"),
		},
		{
			ID:            PrivacyCompliance,
			Label:         "Privacy / Compliance",
			Description:   "Whether the change processes personal data.",
			IsPrivacyGate: true,
			Questions: map[string]Question{
				"": {ID: "Q_PRIVACY_MIN", Text: "Does this change process personal data? (yes/no)"},
			},
		},
	}
	for i := range defs {
		defs[i].Index = i
		if !defs[i].IsPrivacyGate && defs[i].Rule.Threshold == 0 {
			defs[i].Rule.Threshold = DefaultThreshold
		}
	}
	return defs
}

// Reason codes double as question keys.
const (
	ReasonTooShort        = "length-too-short"
	ReasonMissingKeywords = "missing-keywords"
	ReasonVague           = "vague-language"
)

func questions(prefix, tooShort, missing, vague string) map[string]Question {
	return map[string]Question{
		ReasonTooShort:        {ID: "Q_" + prefix + "_TOO_SHORT", Text: tooShort},
		ReasonMissingKeywords: {ID: "Q_" + prefix + "_MISSING_KEYWORDS", Text: missing},
		ReasonVague:           {ID: "Q_" + prefix + "_VAGUE", Text: vague},
	}
}

// FieldsInOrder returns a copy of the registry in wizard order. Background is
// always first and the privacy gate always last.
func FieldsInOrder() []Definition {
	out := make([]Definition, len(registry))
	copy(out, registry)
	return out
}

// ScoredFields returns every field except the privacy gate.
func ScoredFields() []Definition {
	out := make([]Definition, 0, len(registry)-1)
	for _, d := range registry {
		if !d.IsPrivacyGate {
			out = append(out, d)
		}
	}
	return out
}

func Lookup(id string) (Definition, error) {
	for _, d := range registry {
		if d.ID == id {
			return d, nil
		}
	}
	return Definition{}, fmt.Errorf("%w: %s", ErrUnknownField, id)
}

// Resolve accepts a field id or its display label (case-insensitive).
func Resolve(name string) (Definition, error) {
	key := strings.TrimSpace(name)
	if d, err := Lookup(key); err == nil {
		return d, nil
	}
	for _, d := range registry {
		if strings.EqualFold(d.Label, key) {
			return d, nil
		}
	}
	return Definition{}, fmt.Errorf("%w: %s", ErrUnknownField, name)
}

func RuleFor(id string) (Rule, error) {
	d, err := Lookup(id)
	if err != nil {
		return Rule{}, err
	}
	return d.Rule, nil
}

func PrivacyGate() Definition {
	return registry[len(registry)-1]
}

// MaxScore is the sum of all field weights.
func MaxScore() float64 {
	total := 0.0
	for _, d := range registry {
		total += d.Rule.Weight
	}
	return total
}

// Opening question for a field, asked before any answer exists.
func (d Definition) Opening() Question {
	if d.IsPrivacyGate {
		return d.Questions[""]
	}
	q := d.Questions[ReasonTooShort]
	q.ID = strings.TrimSuffix(q.ID, "_TOO_SHORT") + "_EMPTY"
	return q
}

// FollowUp returns the question for a weakness reason.
func (d Definition) FollowUp(reason string) (Question, bool) {
	q, ok := d.Questions[reason]
	return q, ok
}

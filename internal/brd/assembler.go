// Package brd turns a resolved wizard session into an ordered list of
// sections and renders them as plain text, Word (docx), Markdown or PDF.
// Every function here is pure apart from the Chromium renderer: the same
// session always produces byte-identical output.
package brd

import (
	"fmt"
	"strings"

	"github.com/joelkehle/brd-assistant/internal/fields"
	"github.com/joelkehle/brd-assistant/internal/scoring"
	"github.com/joelkehle/brd-assistant/internal/wizard"
)

const (
	DocumentTitle = "BRD / TO-BE JOURNEY"

	privacyTaskNote = "A privacy and compliance review task must be opened and completed before delivery."
)

type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ScoreLine is one row of the score summary appended to exports.
type ScoreLine struct {
	Label  string
	Value  float64
	Points float64
	Weight float64
}

// Preview returns one section per scored field in registry order followed by
// the privacy section. The session must be resolved.
func Preview(s *wizard.Session) ([]Section, error) {
	if err := wizard.RequireResolved(s); err != nil {
		return nil, err
	}
	var out []Section
	for _, def := range fields.FieldsInOrder() {
		if def.IsPrivacyGate {
			out = append(out, privacySection(def, s))
			continue
		}
		out = append(out, Section{Title: def.Label, Content: s.Answers[def.ID].NormalizedText})
	}
	return out, nil
}

func privacySection(def fields.Definition, s *wizard.Session) Section {
	if s.Privacy == wizard.PrivacyYes {
		return Section{
			Title:   def.Label,
			Content: "Personal data processed: Yes\nPrivacy task required: " + privacyTaskNote,
		}
	}
	return Section{Title: def.Label, Content: "Personal data processed: No"}
}

func scoreSummary(s *wizard.Session) ([]ScoreLine, float64) {
	var lines []ScoreLine
	for _, def := range fields.ScoredFields() {
		v := 0.0
		if a := s.Answers[def.ID]; a != nil && a.Score != nil {
			v = *a.Score
		}
		lines = append(lines, ScoreLine{Label: def.Label, Value: v, Points: v * def.Rule.Weight, Weight: def.Rule.Weight})
	}
	return lines, scoring.Total(s.Scores())
}

func formatTotal(total float64) string {
	return fmt.Sprintf("%.1f / %.0f", total, fields.MaxScore())
}

// contentLines splits section content into trimmed display lines.
func contentLines(content string) []string {
	lines := strings.Split(strings.TrimSpace(content), "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return lines
}

package wizard

import (
	"context"
	"strings"
	"time"

	"github.com/joelkehle/brd-assistant/internal/fields"
	"github.com/joelkehle/brd-assistant/internal/normalize"
	"github.com/joelkehle/brd-assistant/internal/scoring"
)

const ReasonGateUnrecognized = "gate-answer-unrecognized"

type Machine struct {
	normalizer normalize.Normalizer
	now        func() time.Time
}

// NewMachine wraps n so that a normalization failure falls back to the stub.
func NewMachine(n normalize.Normalizer) *Machine {
	if n == nil {
		n = normalize.Stub{}
	}
	return &Machine{
		normalizer: normalize.WithFallback(n),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (m *Machine) NewSession(id string) *Session {
	return newSession(id, m.now())
}

type Outcome struct {
	FieldID   string            `json:"field"`
	Accepted  bool              `json:"accepted"`
	Score     *float64          `json:"score,omitempty"`
	Reasons   []string          `json:"reasons,omitempty"`
	FollowUps []fields.Question `json:"follow_ups,omitempty"`
	NextField string            `json:"next_field"`
	Resolved  bool              `json:"resolved"`
	// Changed reports whether the session was mutated and must be saved.
	Changed bool `json:"-"`

	// stored is set when an answer was written, as opposed to only a
	// history entry. Revision and UpdatedAt move only then.
	stored bool
}

// Submit applies one answer to s. Fields up to the current pointer may be
// answered; an already accepted field (or an answered gate) may be revised,
// but a weaker revision is reported without replacing the stored answer.
func (m *Machine) Submit(ctx context.Context, s *Session, fieldID, raw string) (Outcome, error) {
	return m.submit(ctx, s, fieldID, raw, SourceAnswer)
}

// SubmitDocumentSummary records a document summary as the Background answer.
func (m *Machine) SubmitDocumentSummary(ctx context.Context, s *Session, summary string, doc Document) (Outcome, error) {
	out, err := m.submit(ctx, s, fields.Background, summary, SourceDocument)
	if err != nil {
		return out, err
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = m.now()
	}
	s.Documents = append(s.Documents, doc)
	if !out.stored {
		s.UpdatedAt = m.now()
		s.Revision++
	}
	out.Changed = true
	return out, nil
}

func (m *Machine) submit(ctx context.Context, s *Session, fieldID, raw, source string) (Outcome, error) {
	def, err := fields.Lookup(strings.TrimSpace(fieldID))
	if err != nil {
		return Outcome{}, NewUnknownFieldError(fieldID, err)
	}
	s.CurrentField = Pointer(s)
	if def.ID != s.CurrentField && !settled(s, def) {
		return Outcome{}, NewOutOfOrderError(def.ID, s.CurrentField)
	}

	var out Outcome
	if def.IsPrivacyGate {
		out = m.submitGate(s, def, raw)
	} else {
		out, err = m.submitScored(ctx, s, def, raw, source)
		if err != nil {
			return Outcome{}, err
		}
	}

	s.CurrentField = Pointer(s)
	if out.stored {
		s.UpdatedAt = m.now()
		s.Revision++
	}
	out.NextField = s.CurrentField
	out.Resolved = s.CurrentField == Resolved
	return out, nil
}

func (m *Machine) submitScored(ctx context.Context, s *Session, def fields.Definition, raw, source string) (Outcome, error) {
	normalized, err := m.normalizer.NormalizeAnswer(ctx, def, raw)
	if err != nil {
		normalized = strings.TrimSpace(raw)
	}
	res, err := scoring.Score(def.ID, normalized)
	if err != nil {
		return Outcome{}, NewInternalError("score "+def.ID, err)
	}
	value := res.Value
	out := Outcome{
		FieldID:   def.ID,
		Accepted:  res.Accepted,
		Score:     &value,
		Reasons:   res.Reasons,
		FollowUps: res.FollowUps,
	}

	now := m.now()
	prev := s.Answers[def.ID]
	store := prev == nil || !prev.Accepted || res.Accepted
	if store {
		s.Answers[def.ID] = &Answer{
			FieldID:        def.ID,
			RawText:        raw,
			NormalizedText: normalized,
			Score:          &value,
			Accepted:       res.Accepted,
			Reasons:        res.Reasons,
			UpdatedAt:      now,
		}
	}
	s.History = append(s.History, FieldUpdate{
		FieldID:  def.ID,
		Source:   source,
		Accepted: res.Accepted,
		Stored:   store,
		Score:    &value,
		At:       now,
	})
	out.Changed = true
	out.stored = store
	return out, nil
}

func (m *Machine) submitGate(s *Session, def fields.Definition, raw string) Outcome {
	out := Outcome{FieldID: def.ID}
	status, ok := ParseGateAnswer(raw)
	if !ok {
		out.Reasons = []string{ReasonGateUnrecognized}
		out.FollowUps = []fields.Question{def.Opening()}
		return out
	}
	now := m.now()
	s.Privacy = status
	s.PrivacyTaskWarning = status == PrivacyYes
	normalized := "no"
	if status == PrivacyYes {
		normalized = "yes"
	}
	s.Answers[def.ID] = &Answer{
		FieldID:        def.ID,
		RawText:        raw,
		NormalizedText: normalized,
		Accepted:       true,
		UpdatedAt:      now,
	}
	s.History = append(s.History, FieldUpdate{FieldID: def.ID, Source: SourceAnswer, Accepted: true, Stored: true, At: now})
	out.Accepted = true
	out.Changed = true
	out.stored = true
	return out
}

// RecordQuestionAnswer keeps the raw reply to a guided question.
func (m *Machine) RecordQuestionAnswer(s *Session, questionID, raw string) {
	questionID = strings.TrimSpace(questionID)
	if questionID == "" {
		return
	}
	if s.QuestionAnswers == nil {
		s.QuestionAnswers = map[string]string{}
	}
	s.QuestionAnswers[questionID] = raw
}

func settled(s *Session, def fields.Definition) bool {
	if def.IsPrivacyGate {
		return s.Privacy != PrivacyUnanswered
	}
	a := s.Answers[def.ID]
	return a != nil && a.Accepted
}

var (
	gateYes = map[string]bool{"yes": true, "y": true, "evet": true, "e": true, "true": true, "1": true, "var": true}
	gateNo  = map[string]bool{"no": true, "n": true, "hayır": true, "hayir": true, "h": true, "false": true, "0": true, "yok": true}
)

// ParseGateAnswer reads a yes/no reply from the first word of raw.
func ParseGateAnswer(raw string) (PrivacyStatus, bool) {
	words := strings.Fields(strings.ToLower(raw))
	if len(words) == 0 {
		return PrivacyUnanswered, false
	}
	w := strings.TrimRight(words[0], ".,!;:")
	switch {
	case gateYes[w]:
		return PrivacyYes, true
	case gateNo[w]:
		return PrivacyNo, true
	default:
		return PrivacyUnanswered, false
	}
}

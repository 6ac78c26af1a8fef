package wizard

import (
	"time"

	"github.com/joelkehle/brd-assistant/internal/fields"
	"github.com/joelkehle/brd-assistant/internal/scoring"
)

type FieldView struct {
	ID            string   `json:"id"`
	Label         string   `json:"label"`
	Index         int      `json:"index"`
	IsPrivacyGate bool     `json:"is_privacy_gate,omitempty"`
	Answered      bool     `json:"answered"`
	Accepted      bool     `json:"accepted"`
	Score         *float64 `json:"score,omitempty"`
	Text          string   `json:"text,omitempty"`
	Reasons       []string `json:"reasons,omitempty"`
}

type View struct {
	SessionID          string           `json:"session_id"`
	CurrentField       string           `json:"current_field"`
	Resolved           bool             `json:"resolved"`
	SubmitAllowed      bool             `json:"submit_allowed"`
	Privacy            PrivacyStatus    `json:"privacy"`
	PrivacyTaskWarning bool             `json:"privacy_task_warning"`
	TotalScore         float64          `json:"total_score"`
	MaxScore           float64          `json:"max_score"`
	Fields             []FieldView      `json:"fields"`
	NextQuestion       *fields.Question `json:"next_question,omitempty"`
	Documents          []Document       `json:"documents,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

func BuildView(s *Session) View {
	current := Pointer(s)
	v := View{
		SessionID:          s.ID,
		CurrentField:       current,
		Resolved:           current == Resolved,
		SubmitAllowed:      current == Resolved,
		Privacy:            s.Privacy,
		PrivacyTaskWarning: s.PrivacyTaskWarning,
		TotalScore:         scoring.Total(s.Scores()),
		MaxScore:           fields.MaxScore(),
		Documents:          s.Documents,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
	for _, def := range fields.FieldsInOrder() {
		fv := FieldView{ID: def.ID, Label: def.Label, Index: def.Index, IsPrivacyGate: def.IsPrivacyGate}
		if a := s.Answers[def.ID]; a != nil {
			fv.Answered = true
			fv.Accepted = a.Accepted
			fv.Score = a.Score
			fv.Text = a.NormalizedText
			fv.Reasons = a.Reasons
		}
		v.Fields = append(v.Fields, fv)
	}
	if !v.Resolved {
		q := NextQuestion(s)
		v.NextQuestion = &q
	}
	return v
}

// NextQuestion is the follow-up for the current field's first weakness, or
// the field's opening question when it has no answer yet.
func NextQuestion(s *Session) fields.Question {
	current := Pointer(s)
	def, err := fields.Lookup(current)
	if err != nil {
		return fields.Question{}
	}
	if a := s.Answers[def.ID]; a != nil && len(a.Reasons) > 0 {
		if q, ok := def.FollowUp(a.Reasons[0]); ok {
			return q
		}
	}
	return def.Opening()
}

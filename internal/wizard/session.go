// Package wizard implements the BRD session state machine: the ordered walk
// through the field registry, the re-ask loop for weak answers and the
// privacy gate that blocks export until it is answered.
package wizard

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/joelkehle/brd-assistant/internal/fields"
)

// Resolved is the current-field value once every scored field is accepted and
// the privacy gate is answered.
const Resolved = "__resolved__"

type PrivacyStatus string

const (
	PrivacyUnanswered PrivacyStatus = "unanswered"
	PrivacyNo         PrivacyStatus = "answered_no"
	PrivacyYes        PrivacyStatus = "answered_yes"
)

type Answer struct {
	FieldID        string    `json:"field_id"`
	RawText        string    `json:"raw_text"`
	NormalizedText string    `json:"normalized_text"`
	Score          *float64  `json:"score,omitempty"`
	Accepted       bool      `json:"accepted"`
	Reasons        []string  `json:"reasons,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// FieldUpdate is one entry of the session audit trail.
type FieldUpdate struct {
	FieldID  string    `json:"field_id"`
	Source   string    `json:"source"`
	Accepted bool      `json:"accepted"`
	Stored   bool      `json:"stored"`
	Score    *float64  `json:"score,omitempty"`
	At       time.Time `json:"at"`
}

const (
	SourceAnswer   = "answer"
	SourceDocument = "document"
)

type Document struct {
	Name       string    `json:"name"`
	Bytes      int       `json:"bytes"`
	Method     string    `json:"method"`
	Truncated  bool      `json:"truncated"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type Session struct {
	ID                 string             `json:"session_id"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
	Revision           int                `json:"revision"`
	Answers            map[string]*Answer `json:"answers"`
	CurrentField       string             `json:"current_field"`
	Privacy            PrivacyStatus      `json:"privacy"`
	PrivacyTaskWarning bool               `json:"privacy_task_warning"`
	QuestionAnswers    map[string]string  `json:"question_answers,omitempty"`
	Documents          []Document         `json:"documents,omitempty"`
	History            []FieldUpdate      `json:"history,omitempty"`
}

func newSession(id string, now time.Time) *Session {
	s := &Session{
		ID:              id,
		CreatedAt:       now,
		UpdatedAt:       now,
		Answers:         map[string]*Answer{},
		Privacy:         PrivacyUnanswered,
		QuestionAnswers: map[string]string{},
	}
	s.CurrentField = Pointer(s)
	return s
}

// Clone returns a deep copy so a transition can be applied and discarded if
// it cannot be persisted.
func (s *Session) Clone() *Session {
	c := *s
	c.Answers = make(map[string]*Answer, len(s.Answers))
	for k, a := range s.Answers {
		cp := *a
		if a.Score != nil {
			v := *a.Score
			cp.Score = &v
		}
		cp.Reasons = append([]string(nil), a.Reasons...)
		c.Answers[k] = &cp
	}
	c.QuestionAnswers = make(map[string]string, len(s.QuestionAnswers))
	for k, v := range s.QuestionAnswers {
		c.QuestionAnswers[k] = v
	}
	c.Documents = append([]Document(nil), s.Documents...)
	c.History = append([]FieldUpdate(nil), s.History...)
	return &c
}

// Encode serializes the session into the opaque snapshot handed to storage.
func Encode(s *Session) ([]byte, error) {
	return json.Marshal(s)
}

// Decode restores a snapshot and recomputes the current-field pointer.
func Decode(blob []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(blob, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if s.Answers == nil {
		s.Answers = map[string]*Answer{}
	}
	if s.QuestionAnswers == nil {
		s.QuestionAnswers = map[string]string{}
	}
	if s.Privacy == "" {
		s.Privacy = PrivacyUnanswered
	}
	s.PrivacyTaskWarning = s.Privacy == PrivacyYes
	s.CurrentField = Pointer(&s)
	return &s, nil
}

// Pointer computes the current field: the first scored field without an
// accepted answer, then the privacy gate while it is unanswered, then Resolved.
func Pointer(s *Session) string {
	for _, def := range fields.ScoredFields() {
		a := s.Answers[def.ID]
		if a == nil || !a.Accepted {
			return def.ID
		}
	}
	if s.Privacy == PrivacyUnanswered {
		return fields.PrivacyGate().ID
	}
	return Resolved
}

func CanSubmitOrExport(s *Session) bool {
	return Pointer(s) == Resolved
}

// RequireResolved returns an incomplete-submission error naming the current
// field when the session is not resolved.
func RequireResolved(s *Session) error {
	if p := Pointer(s); p != Resolved {
		return NewIncompleteError(p)
	}
	return nil
}

// Scores returns the stored score per scored field.
func (s *Session) Scores() map[string]float64 {
	out := map[string]float64{}
	for id, a := range s.Answers {
		if a.Score != nil {
			out[id] = *a.Score
		}
	}
	return out
}

// Package assistant is the entry point used by the HTTP and MCP surfaces. It
// loads a session snapshot, applies one wizard transition to a private copy,
// persists it and only then reports the outcome. Calls for the same session id
// are serialized.
package assistant

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/joelkehle/brd-assistant/internal/artifacts"
	"github.com/joelkehle/brd-assistant/internal/brd"
	"github.com/joelkehle/brd-assistant/internal/fields"
	"github.com/joelkehle/brd-assistant/internal/normalize"
	"github.com/joelkehle/brd-assistant/internal/pdfextract"
	"github.com/joelkehle/brd-assistant/internal/store"
	"github.com/joelkehle/brd-assistant/internal/wizard"
)

const tracerName = "github.com/joelkehle/brd-assistant/internal/assistant"

type Service struct {
	store      store.Store
	machine    *wizard.Machine
	normalizer normalize.Normalizer
	extract    func(ctx context.Context, pdf []byte) (pdfextract.Result, error)
	renderer   brd.PDFRenderer
	sink       artifacts.Sink
	newID      func() string
	tracer     trace.Tracer

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock serializes writers of one session. refs counts holders and
// waiters so the entry can be dropped when the last one leaves.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

type Option func(*Service)

func WithPDFRenderer(r brd.PDFRenderer) Option {
	return func(s *Service) { s.renderer = r }
}

func WithArtifactSink(sink artifacts.Sink) Option {
	return func(s *Service) { s.sink = sink }
}

func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracer = tp.Tracer(tracerName) }
}

func WithExtractor(fn func(ctx context.Context, pdf []byte) (pdfextract.Result, error)) Option {
	return func(s *Service) { s.extract = fn }
}

func New(st store.Store, n normalize.Normalizer, opts ...Option) *Service {
	if n == nil {
		n = normalize.Stub{}
	}
	n = normalize.WithFallback(n)
	s := &Service{
		store:      st,
		machine:    wizard.NewMachine(n),
		normalizer: n,
		extract:    pdfextract.ExtractText,
		newID:      uuid.NewString,
		tracer:     otel.Tracer(tracerName),
		locks:      map[string]*sessionLock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type MessageResult struct {
	Accepted  bool              `json:"accepted"`
	Field     string            `json:"field"`
	Score     *float64          `json:"score,omitempty"`
	NextField string            `json:"next_field,omitempty"`
	Resolved  bool              `json:"resolved"`
	Reasons   []string          `json:"weakness_reasons,omitempty"`
	FollowUps []fields.Question `json:"follow_up_questions,omitempty"`
	View      wizard.View       `json:"session"`
}

type ExportResult struct {
	Document brd.Document
	Location string
}

func (s *Service) CreateSession(ctx context.Context) (view wizard.View, err error) {
	ctx, span := s.tracer.Start(ctx, "assistant.CreateSession")
	defer func() { endSpan(span, err) }()

	sess := s.machine.NewSession(s.newID())
	span.SetAttributes(attribute.String("brd.session_id", sess.ID))
	if err := s.save(ctx, sess); err != nil {
		return wizard.View{}, err
	}
	log.Printf("session created session_id=%s", sess.ID)
	return wizard.BuildView(sess), nil
}

func (s *Service) Resume(ctx context.Context, sessionID string) (view wizard.View, err error) {
	ctx, span := s.startSpan(ctx, "assistant.Resume", sessionID)
	defer func() { endSpan(span, err) }()

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return wizard.View{}, err
	}
	return wizard.BuildView(sess), nil
}

// Message submits text for fieldID. An empty fieldID answers the current
// field. questionID, when set, records the raw text against that guided
// question as well.
func (s *Service) Message(ctx context.Context, sessionID, fieldID, text, questionID string) (res MessageResult, err error) {
	ctx, span := s.startSpan(ctx, "assistant.Message", sessionID)
	defer func() { endSpan(span, err) }()

	if !store.ValidID(sessionID) {
		return MessageResult{}, wizard.NewSessionNotFoundError(sessionID, store.ErrNotFound)
	}
	unlock := s.lock(sessionID)
	defer unlock()

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return MessageResult{}, err
	}
	work := sess.Clone()
	if strings.TrimSpace(fieldID) == "" {
		fieldID = wizard.Pointer(work)
		if fieldID == wizard.Resolved {
			return MessageResult{}, wizard.NewValidationError("session is resolved; name the field to revise")
		}
	}
	span.SetAttributes(attribute.String("brd.field", fieldID))

	out, err := s.machine.Submit(ctx, work, fieldID, text)
	if err != nil {
		return MessageResult{}, err
	}
	changed := out.Changed
	if strings.TrimSpace(questionID) != "" {
		s.machine.RecordQuestionAnswer(work, questionID, text)
		changed = true
	}
	if changed {
		if err := s.save(ctx, work); err != nil {
			return MessageResult{}, err
		}
		sess = work
	}
	span.SetAttributes(attribute.Bool("brd.accepted", out.Accepted))
	return result(out, sess), nil
}

// IngestDocument extracts text from an uploaded PDF, summarizes it and
// submits the summary as the Background answer.
func (s *Service) IngestDocument(ctx context.Context, sessionID, name string, pdf []byte) (res MessageResult, err error) {
	ctx, span := s.startSpan(ctx, "assistant.IngestDocument", sessionID)
	defer func() { endSpan(span, err) }()

	if !store.ValidID(sessionID) {
		return MessageResult{}, wizard.NewSessionNotFoundError(sessionID, store.ErrNotFound)
	}
	unlock := s.lock(sessionID)
	defer unlock()

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return MessageResult{}, err
	}
	extracted, err := s.extract(ctx, pdf)
	if err != nil {
		if errors.Is(err, pdfextract.ErrTooLarge) || errors.Is(err, pdfextract.ErrNoText) {
			return MessageResult{}, wizard.NewValidationError(err.Error())
		}
		return MessageResult{}, wizard.NewInternalError("extract document", err)
	}
	summary, err := s.normalizer.SummarizeDocument(ctx, extracted.Text)
	if err != nil {
		summary = extracted.Text
	}

	work := sess.Clone()
	out, err := s.machine.SubmitDocumentSummary(ctx, work, summary, wizard.Document{
		Name:      name,
		Bytes:     len(pdf),
		Method:    extracted.Method,
		Truncated: extracted.Truncated,
	})
	if err != nil {
		return MessageResult{}, err
	}
	if err := s.save(ctx, work); err != nil {
		return MessageResult{}, err
	}
	log.Printf("document ingested session_id=%s name=%s method=%s accepted=%t", sessionID, name, extracted.Method, out.Accepted)
	return result(out, work), nil
}

func (s *Service) Preview(ctx context.Context, sessionID string) (sections []brd.Section, err error) {
	ctx, span := s.startSpan(ctx, "assistant.Preview", sessionID)
	defer func() { endSpan(span, err) }()

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return brd.Preview(sess)
}

// Export renders the session and, when an artifact sink is configured, also
// stores the file there. A sink failure is logged and does not fail the export.
func (s *Service) Export(ctx context.Context, sessionID, format string) (res ExportResult, err error) {
	ctx, span := s.startSpan(ctx, "assistant.Export", sessionID)
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("brd.format", format))

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return ExportResult{}, err
	}
	doc, err := brd.Export(sess, format)
	if err != nil {
		return ExportResult{}, err
	}
	res = ExportResult{Document: doc}
	if s.sink != nil {
		loc, err := s.sink.Put(ctx, sessionID+"/"+doc.Filename, doc.MimeType, doc.Data)
		if err != nil {
			log.Printf("artifact upload failed session_id=%s file=%s err=%v", sessionID, doc.Filename, err)
		} else {
			res.Location = loc
		}
	}
	return res, nil
}

func (s *Service) RenderPDF(ctx context.Context, sessionID string) (doc brd.Document, err error) {
	ctx, span := s.startSpan(ctx, "assistant.RenderPDF", sessionID)
	defer func() { endSpan(span, err) }()

	if s.renderer == nil {
		return brd.Document{}, wizard.NewValidationError("pdf rendering is not configured")
	}
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return brd.Document{}, err
	}
	return brd.RenderPDF(ctx, sess, s.renderer)
}

func (s *Service) load(ctx context.Context, sessionID string) (*wizard.Session, error) {
	if !store.ValidID(sessionID) {
		return nil, wizard.NewSessionNotFoundError(sessionID, store.ErrNotFound)
	}
	blob, err := s.store.Load(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, wizard.NewSessionNotFoundError(sessionID, err)
	}
	if err != nil {
		log.Printf("load session failed session_id=%s err=%v", sessionID, err)
		return nil, wizard.NewPersistenceError(err)
	}
	sess, err := wizard.Decode(blob)
	if err != nil {
		return nil, wizard.NewPersistenceError(err)
	}
	return sess, nil
}

func (s *Service) save(ctx context.Context, sess *wizard.Session) error {
	blob, err := wizard.Encode(sess)
	if err != nil {
		return wizard.NewPersistenceError(err)
	}
	if err := s.store.Save(ctx, sess.ID, blob); err != nil {
		log.Printf("persist session failed session_id=%s err=%v", sess.ID, err)
		return wizard.NewPersistenceError(err)
	}
	return nil
}

func (s *Service) lock(sessionID string) func() {
	s.mu.Lock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		s.locks[sessionID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, sessionID)
		}
		s.mu.Unlock()
	}
}

func (s *Service) startSpan(ctx context.Context, name, sessionID string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("brd.session_id", sessionID)))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func result(out wizard.Outcome, sess *wizard.Session) MessageResult {
	res := MessageResult{
		Accepted:  out.Accepted,
		Field:     out.FieldID,
		Score:     out.Score,
		Resolved:  out.Resolved,
		Reasons:   out.Reasons,
		FollowUps: out.FollowUps,
		View:      wizard.BuildView(sess),
	}
	if !out.Resolved {
		res.NextField = out.NextField
	}
	return res
}

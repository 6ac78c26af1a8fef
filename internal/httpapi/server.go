package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/joelkehle/brd-assistant/internal/assistant"
	"github.com/joelkehle/brd-assistant/internal/brd"
	"github.com/joelkehle/brd-assistant/internal/pdfextract"
	"github.com/joelkehle/brd-assistant/internal/wizard"
)

// API is the subset of assistant.Service served over HTTP.
type API interface {
	CreateSession(ctx context.Context) (wizard.View, error)
	Resume(ctx context.Context, sessionID string) (wizard.View, error)
	Message(ctx context.Context, sessionID, fieldID, text, questionID string) (assistant.MessageResult, error)
	IngestDocument(ctx context.Context, sessionID, name string, pdf []byte) (assistant.MessageResult, error)
	Preview(ctx context.Context, sessionID string) ([]brd.Section, error)
	Export(ctx context.Context, sessionID, format string) (assistant.ExportResult, error)
	RenderPDF(ctx context.Context, sessionID string) (brd.Document, error)
}

type Server struct {
	api API
}

// NewServer returns the router. Request logging and panic recovery come from
// chi's middleware.
func NewServer(api API) http.Handler {
	s := &Server{api: api}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)

	r.Get("/v1/health", s.handleHealth)
	r.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreateSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleResume)
			r.Post("/messages", s.handleMessage)
			r.Post("/documents", s.handleDocument)
			r.Get("/preview", s.handlePreview)
			r.Get("/preview.pdf", s.handlePreviewPDF)
			r.Get("/export", s.handleExport)
		})
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func statusForCode(code string) int {
	switch code {
	case wizard.CodeValidation, wizard.CodeUnknownField, wizard.CodeUnsupportedFormat:
		return http.StatusBadRequest
	case wizard.CodeSessionNotFound:
		return http.StatusNotFound
	case wizard.CodeOutOfOrder:
		return http.StatusConflict
	case wizard.CodeIncomplete:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	var we *wizard.Error
	if errors.As(err, &we) {
		body := map[string]any{
			"code":    we.Code,
			"message": we.Message,
		}
		if we.Field != "" {
			body["field"] = we.Field
		}
		status := statusForCode(we.Code)
		if status >= 500 {
			log.Printf("request failed code=%s err=%v", we.Code, err)
		}
		writeJSON(w, status, map[string]any{"ok": false, "error": body})
		return
	}
	log.Printf("request failed code=%s err=%v", wizard.CodeInternal, err)
	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"ok": false,
		"error": map[string]any{
			"code":    wizard.CodeInternal,
			"message": err.Error(),
		},
	})
}

func writeDocument(w http.ResponseWriter, doc brd.Document) {
	w.Header().Set("Content-Type", doc.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Data)
}

func sessionID(r *http.Request) string {
	return chi.URLParam(r, "sessionID")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.api.CreateSession(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	view, err := s.api.Resume(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type messageRequest struct {
	Field      string `json:"field"`
	Text       string `json:"text"`
	QuestionID string `json:"question_id"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, wizard.NewValidationError("invalid JSON body"))
		return
	}
	res, err := s.api.Message(r.Context(), sessionID(r), req.Field, req.Text, req.QuestionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleDocument accepts either a multipart form with a "file" part or a raw
// application/pdf body named by the ?name= query parameter.
func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, pdfextract.MaxPDFBytes+1<<20)
	name := strings.TrimSpace(r.URL.Query().Get("name"))

	var pdf []byte
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, wizard.NewValidationError("multipart upload needs a file part"))
			return
		}
		defer file.Close()
		if name == "" {
			name = header.Filename
		}
		pdf, err = io.ReadAll(file)
		if err != nil {
			writeError(w, wizard.NewValidationError("read upload: "+err.Error()))
			return
		}
	} else {
		var err error
		pdf, err = io.ReadAll(r.Body)
		if err != nil {
			writeError(w, wizard.NewValidationError("read upload: "+err.Error()))
			return
		}
	}
	if len(pdf) == 0 {
		writeError(w, wizard.NewValidationError("empty document"))
		return
	}
	if name == "" {
		name = "document.pdf"
	}

	res, err := s.api.IngestDocument(r.Context(), sessionID(r), name, pdf)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	sections, err := s.api.Preview(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"title":    brd.DocumentTitle,
		"sections": sections,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = string(brd.FormatDOCX)
	}
	res, err := s.api.Export(r.Context(), sessionID(r), format)
	if err != nil {
		writeError(w, err)
		return
	}
	if res.Location != "" {
		w.Header().Set("X-Artifact-Location", res.Location)
	}
	writeDocument(w, res.Document)
}

func (s *Server) handlePreviewPDF(w http.ResponseWriter, r *http.Request) {
	doc, err := s.api.RenderPDF(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeDocument(w, doc)
}

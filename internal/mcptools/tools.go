// Package mcptools exposes the BRD wizard as MCP tools so an assistant client
// can drive a session conversationally.
package mcptools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joelkehle/brd-assistant/internal/assistant"
	"github.com/joelkehle/brd-assistant/internal/brd"
	"github.com/joelkehle/brd-assistant/internal/fields"
	"github.com/joelkehle/brd-assistant/internal/pdfextract"
	"github.com/joelkehle/brd-assistant/internal/wizard"
)

// API is the part of assistant.Service the tools call.
type API interface {
	CreateSession(ctx context.Context) (wizard.View, error)
	Resume(ctx context.Context, sessionID string) (wizard.View, error)
	Message(ctx context.Context, sessionID, fieldID, text, questionID string) (assistant.MessageResult, error)
	IngestDocument(ctx context.Context, sessionID, name string, pdf []byte) (assistant.MessageResult, error)
	Preview(ctx context.Context, sessionID string) ([]brd.Section, error)
	Export(ctx context.Context, sessionID, format string) (assistant.ExportResult, error)
}

// NewServer registers every BRD tool on a new MCP server.
func NewServer(api API, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"brd-assistant",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	start := NewStartTool(api)
	s.AddTool(start.Definition(), start.Handle)

	status := NewStatusTool(api)
	s.AddTool(status.Definition(), status.Handle)

	answer := NewAnswerTool(api)
	s.AddTool(answer.Definition(), answer.Handle)

	upload := NewUploadTool(api)
	s.AddTool(upload.Definition(), upload.Handle)

	preview := NewPreviewTool(api)
	s.AddTool(preview.Definition(), preview.Handle)

	export := NewExportTool(api)
	s.AddTool(export.Definition(), export.Handle)

	return s
}

const instructions = "Guide the user through a BRD / TO-BE JOURNEY document. " +
	"Start with brd_start_session, then relay each question to the user and pass the reply to brd_answer. " +
	"Weak answers come back with follow-up questions; ask them before moving on. " +
	"Once the privacy question is answered, use brd_preview and brd_export."

// errorResult turns a domain error into a tool error the client can show.
func errorResult(err error) *mcp.CallToolResult {
	var we *wizard.Error
	if errors.As(err, &we) {
		msg := fmt.Sprintf("%s: %s", we.Code, we.Message)
		if we.Code == wizard.CodeIncomplete && we.Field != "" {
			msg += "\n\nAnswer " + fieldLabel(we.Field) + " first."
		}
		return mcp.NewToolResultError(msg)
	}
	return mcp.NewToolResultError(err.Error())
}

func fieldLabel(id string) string {
	if def, err := fields.Lookup(id); err == nil {
		return def.Label
	}
	return id
}

func formatView(b *strings.Builder, v wizard.View) {
	fmt.Fprintf(b, "**Session:** %s\n", v.SessionID)
	fmt.Fprintf(b, "**Score:** %.1f / %.0f\n\n", v.TotalScore, v.MaxScore)
	for _, f := range v.Fields {
		mark := "[ ]"
		if f.Accepted {
			mark = "[x]"
		} else if f.Answered {
			mark = "[~]"
		}
		line := fmt.Sprintf("- %s %s", mark, f.Label)
		if f.Score != nil {
			line += fmt.Sprintf(" (%.2f)", *f.Score)
		}
		b.WriteString(line + "\n")
	}
	if v.PrivacyTaskWarning {
		b.WriteString("\nPersonal data is processed: a privacy task must be opened.\n")
	}
	if v.Resolved {
		b.WriteString("\nAll fields are complete. The BRD can be previewed and exported.\n")
		return
	}
	if v.NextQuestion != nil {
		fmt.Fprintf(b, "\n**Next (%s):** %s\n_question_id: %s_\n", fieldLabel(v.CurrentField), v.NextQuestion.Text, v.NextQuestion.ID)
	}
}

// StartTool handles brd_start_session.
type StartTool struct {
	api API
}

func NewStartTool(api API) *StartTool {
	return &StartTool{api: api}
}

func (t *StartTool) Definition() mcp.Tool {
	return mcp.NewTool("brd_start_session",
		mcp.WithDescription("Start a new BRD session and return its id and the first question."),
	)
}

func (t *StartTool) Handle(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	view, err := t.api.CreateSession(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	var b strings.Builder
	b.WriteString("# BRD session started\n\n")
	formatView(&b, view)
	return mcp.NewToolResultText(b.String()), nil
}

// StatusTool handles brd_status.
type StatusTool struct {
	api API
}

func NewStatusTool(api API) *StatusTool {
	return &StatusTool{api: api}
}

func (t *StatusTool) Definition() mcp.Tool {
	return mcp.NewTool("brd_status",
		mcp.WithDescription("Resume a BRD session: show field progress, the total score and the next question."),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session id returned by brd_start_session"),
		),
	)
}

func (t *StatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("session_id", ""))
	if id == "" {
		return mcp.NewToolResultError("'session_id' is required"), nil
	}
	view, err := t.api.Resume(ctx, id)
	if err != nil {
		return errorResult(err), nil
	}
	var b strings.Builder
	b.WriteString("# BRD status\n\n")
	formatView(&b, view)
	return mcp.NewToolResultText(b.String()), nil
}

// AnswerTool handles brd_answer.
type AnswerTool struct {
	api API
}

func NewAnswerTool(api API) *AnswerTool {
	return &AnswerTool{api: api}
}

func (t *AnswerTool) Definition() mcp.Tool {
	return mcp.NewTool("brd_answer",
		mcp.WithDescription(
			"Submit the user's reply for the current BRD field. "+
				"Pass 'field' only to revise an already completed field.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session id"),
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The user's answer, verbatim"),
		),
		mcp.WithString("field",
			mcp.Description("Field id or label; defaults to the current field"),
		),
		mcp.WithString("question_id",
			mcp.Description("Id of the question being answered, as shown in the previous result"),
		),
	)
}

func (t *AnswerTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("session_id", ""))
	if id == "" {
		return mcp.NewToolResultError("'session_id' is required"), nil
	}
	fieldID := strings.TrimSpace(req.GetString("field", ""))
	if fieldID != "" {
		def, err := fields.Resolve(fieldID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("unknown field %q", fieldID)), nil
		}
		fieldID = def.ID
	}
	res, err := t.api.Message(ctx, id, fieldID, req.GetString("text", ""), req.GetString("question_id", ""))
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(formatMessage(res)), nil
}

func formatMessage(res assistant.MessageResult) string {
	var b strings.Builder
	label := fieldLabel(res.Field)
	if res.Accepted {
		fmt.Fprintf(&b, "Accepted: %s", label)
	} else {
		fmt.Fprintf(&b, "Needs more detail: %s", label)
	}
	if res.Score != nil {
		fmt.Fprintf(&b, " (score %.2f)", *res.Score)
	}
	b.WriteString("\n")
	if len(res.Reasons) > 0 {
		fmt.Fprintf(&b, "Reasons: %s\n", strings.Join(res.Reasons, ", "))
	}
	for _, q := range res.FollowUps {
		fmt.Fprintf(&b, "- %s (question_id: %s)\n", q.Text, q.ID)
	}
	b.WriteString("\n")
	formatView(&b, res.View)
	return b.String()
}

// UploadTool handles brd_upload_document.
type UploadTool struct {
	api API
}

func NewUploadTool(api API) *UploadTool {
	return &UploadTool{api: api}
}

func (t *UploadTool) Definition() mcp.Tool {
	return mcp.NewTool("brd_upload_document",
		mcp.WithDescription(
			"Read a local PDF, summarize it and submit the summary as the Background answer.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session id"),
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF file"),
		),
	)
}

func (t *UploadTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("session_id", ""))
	path := strings.TrimSpace(req.GetString("path", ""))
	if id == "" || path == "" {
		return mcp.NewToolResultError("'session_id' and 'path' are required"), nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cannot read %s: %v", path, err)), nil
	}
	if info.Size() > pdfextract.MaxPDFBytes {
		return mcp.NewToolResultError(fmt.Sprintf("%s is larger than %d MB", path, pdfextract.MaxPDFBytes/(1024*1024))), nil
	}
	pdf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	res, err := t.api.IngestDocument(ctx, id, filepath.Base(path), pdf)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(formatMessage(res)), nil
}

// PreviewTool handles brd_preview.
type PreviewTool struct {
	api API
}

func NewPreviewTool(api API) *PreviewTool {
	return &PreviewTool{api: api}
}

func (t *PreviewTool) Definition() mcp.Tool {
	return mcp.NewTool("brd_preview",
		mcp.WithDescription("Show the assembled BRD sections of a completed session."),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session id"),
		),
	)
}

func (t *PreviewTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("session_id", ""))
	if id == "" {
		return mcp.NewToolResultError("'session_id' is required"), nil
	}
	sections, err := t.api.Preview(ctx, id)
	if err != nil {
		return errorResult(err), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", brd.DocumentTitle)
	for _, s := range sections {
		fmt.Fprintf(&b, "\n## %s\n\n%s\n", s.Title, s.Content)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// ExportTool handles brd_export.
type ExportTool struct {
	api API
}

func NewExportTool(api API) *ExportTool {
	return &ExportTool{api: api}
}

func (t *ExportTool) Definition() mcp.Tool {
	return mcp.NewTool("brd_export",
		mcp.WithDescription(
			"Export a completed BRD as docx or txt. "+
				"With output_path the file is written there; without it only txt can be returned inline.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session id"),
		),
		mcp.WithString("format",
			mcp.Description("docx (default) or txt"),
		),
		mcp.WithString("output_path",
			mcp.Description("File or directory to write the export to"),
		),
	)
}

func (t *ExportTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("session_id", ""))
	if id == "" {
		return mcp.NewToolResultError("'session_id' is required"), nil
	}
	format := req.GetString("format", string(brd.FormatDOCX))
	out := strings.TrimSpace(req.GetString("output_path", ""))

	res, err := t.api.Export(ctx, id, format)
	if err != nil {
		return errorResult(err), nil
	}
	doc := res.Document

	if out == "" {
		if strings.HasPrefix(doc.MimeType, "text/plain") {
			return mcp.NewToolResultText(string(doc.Data)), nil
		}
		return mcp.NewToolResultError("'output_path' is required for docx exports"), nil
	}
	if info, err := os.Stat(out); err == nil && info.IsDir() {
		out = filepath.Join(out, doc.Filename)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Dir(out), err)
	}
	if err := os.WriteFile(out, doc.Data, 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", out, err)
	}
	msg := fmt.Sprintf("Exported %s (%d bytes) to %s", doc.Filename, len(doc.Data), out)
	if res.Location != "" {
		msg += "\nArtifact stored at " + res.Location
	}
	return mcp.NewToolResultText(msg), nil
}

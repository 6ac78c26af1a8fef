package brd

import (
	"fmt"
	"strings"

	"github.com/joelkehle/brd-assistant/internal/wizard"
)

type Format string

const (
	FormatDOCX Format = "docx"
	FormatTXT  Format = "txt"
)

const (
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeTXT  = "text/plain; charset=utf-8"
	mimePDF  = "application/pdf"
)

// Document is a rendered export.
type Document struct {
	Data     []byte
	Filename string
	MimeType string
}

func ParseFormat(raw string) (Format, error) {
	f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(raw)), "."))
	switch f {
	case FormatDOCX, FormatTXT:
		return f, nil
	default:
		return "", wizard.NewUnsupportedFormatError(raw)
	}
}

// Export renders a resolved session. Unknown formats are rejected before the
// session state is checked.
func Export(s *wizard.Session, format string) (Document, error) {
	sections, err := Preview(s)
	if err != nil {
		return Document{}, err
	}
	f, err := ParseFormat(format)
	if err != nil {
		return Document{}, err
	}
	lines, total := scoreSummary(s)
	switch f {
	case FormatTXT:
		return Document{
			Data:     renderText(s.ID, sections, lines, total),
			Filename: filename(s.ID, "txt"),
			MimeType: mimeTXT,
		}, nil
	default:
		data, err := renderDOCX(s.ID, sections, lines, total)
		if err != nil {
			return Document{}, wizard.NewInternalError("render docx", err)
		}
		return Document{Data: data, Filename: filename(s.ID, "docx"), MimeType: mimeDOCX}, nil
	}
}

func filename(sessionID, ext string) string {
	id := sessionID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("brd-%s.%s", id, ext)
}

func renderText(sessionID string, sections []Section, lines []ScoreLine, total float64) []byte {
	var b strings.Builder
	b.WriteString(DocumentTitle + "\n")
	b.WriteString(strings.Repeat("=", len(DocumentTitle)) + "\n")
	b.WriteString("Session: " + sessionID + "\n\n")
	for _, sec := range sections {
		b.WriteString(sec.Title + "\n")
		b.WriteString(strings.Repeat("-", len([]rune(sec.Title))) + "\n")
		b.WriteString(strings.Join(contentLines(sec.Content), "\n") + "\n\n")
	}
	b.WriteString("Score Summary\n")
	b.WriteString("-------------\n")
	for _, l := range lines {
		fmt.Fprintf(&b, "%s: %.2f (%.1f / %.0f)\n", l.Label, l.Value, l.Points, l.Weight)
	}
	b.WriteString("Total: " + formatTotal(total) + "\n")
	return []byte(b.String())
}

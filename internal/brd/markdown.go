package brd

import (
	"fmt"
	"strings"

	"github.com/joelkehle/brd-assistant/internal/wizard"
)

// Markdown renders a resolved session as GitHub-flavoured Markdown, with the
// score summary as a table.
func Markdown(s *wizard.Session) (string, error) {
	sections, err := Preview(s)
	if err != nil {
		return "", err
	}
	lines, total := scoreSummary(s)

	var b strings.Builder
	b.WriteString("# " + DocumentTitle + "\n\n")
	b.WriteString("_Session " + s.ID + "_\n\n")
	for _, sec := range sections {
		b.WriteString("## " + sec.Title + "\n\n")
		for _, line := range contentLines(sec.Content) {
			if line == "" {
				b.WriteString("\n")
				continue
			}
			b.WriteString(escapeMarkdownLine(line) + "  \n")
		}
		b.WriteString("\n")
	}
	b.WriteString("## Score Summary\n\n")
	b.WriteString("| Field | Score | Points |\n|---|---:|---:|\n")
	for _, l := range lines {
		fmt.Fprintf(&b, "| %s | %.2f | %.1f / %.0f |\n", l.Label, l.Value, l.Points, l.Weight)
	}
	fmt.Fprintf(&b, "| **Total** | | **%s** |\n", formatTotal(total))
	return b.String(), nil
}

// Answer text is user input: inline HTML is escaped, as are leading
// characters that would turn the line into a heading, list or quote.
func escapeMarkdownLine(line string) string {
	line = strings.ReplaceAll(line, "<", `\<`)
	if line == "" {
		return line
	}
	switch line[0] {
	case '#', '>', '-', '+', '*', '|':
		return `\` + line
	}
	return line
}

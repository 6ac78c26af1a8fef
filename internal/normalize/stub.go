package normalize

import (
	"context"
	"strings"

	"github.com/joelkehle/brd-assistant/internal/fields"
)

const maxSummaryRunes = 600

// Stub performs local whitespace cleanup. It never fails.
type Stub struct{}

func (Stub) NormalizeAnswer(_ context.Context, _ fields.Definition, text string) (string, error) {
	return cleanText(text), nil
}

func (Stub) SummarizeDocument(_ context.Context, text string) (string, error) {
	return clipSummary(strings.Join(strings.Fields(text), " "), maxSummaryRunes), nil
}

func cleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if blank || len(out) == 0 {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// clipSummary keeps at most limit runes, preferring to end on a sentence.
func clipSummary(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	head := string(runes[:limit])
	if i := lastSentenceEnd(head); i >= len(head)/3 {
		return head[:i+1]
	}
	if i := strings.LastIndex(head, " "); i > 0 {
		head = head[:i]
	}
	return strings.TrimSpace(head) + "..."
}

func lastSentenceEnd(s string) int {
	best := -1
	for _, mark := range []string{". ", "! ", "? "} {
		if i := strings.LastIndex(s, mark); i > best {
			best = i
		}
	}
	return best
}

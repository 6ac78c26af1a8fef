// Package pdfextract pulls plain text out of uploaded PDF documents.
package pdfextract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MaxPDFBytes = 20 * 1024 * 1024
	maxTextRun  = 24000
)

var (
	ErrTooLarge = errors.New("pdf too large")
	ErrNoText   = errors.New("no extractable text found")
)

type Result struct {
	Text      string `json:"text"`
	Method    string `json:"method"`
	Truncated bool   `json:"truncated"`
}

// pdftotext is swapped in tests.
var pdftotext = runPdfToText

// ExtractText tries pdftotext first and falls back to scanning the raw bytes
// for printable runs.
func ExtractText(ctx context.Context, pdf []byte) (Result, error) {
	if len(pdf) > MaxPDFBytes {
		return Result{}, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(pdf))
	}
	if len(pdf) == 0 {
		return Result{}, ErrNoText
	}

	if text, err := extractWithTool(ctx, pdf); err == nil && strings.TrimSpace(text) != "" {
		return truncate(text, "pdftotext"), nil
	}

	fallback := extractPrintableText(pdf)
	if strings.TrimSpace(fallback) == "" {
		return Result{}, ErrNoText
	}
	return truncate(fallback, "byte-fallback"), nil
}

func extractWithTool(ctx context.Context, pdf []byte) (string, error) {
	f, err := os.CreateTemp("", "brd-upload-*.pdf")
	if err != nil {
		return "", err
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(pdf); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return pdftotext(ctx, f.Name())
}

func runPdfToText(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, "pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func extractPrintableText(blob []byte) string {
	var runs []string
	var b strings.Builder
	flush := func() {
		s := strings.TrimSpace(b.String())
		if len(s) >= 24 {
			runs = append(runs, s)
		}
		b.Reset()
	}
	for _, c := range blob {
		r := rune(c)
		if (c < utf8.RuneSelf && unicode.IsPrint(r)) || r == '\n' || r == '\t' {
			b.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return strings.TrimSpace(strings.Join(runs, "\n"))
}

func truncate(text, method string) Result {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= maxTextRun {
		return Result{Text: trimmed, Method: method}
	}
	prefix := trimmed[:maxTextRun]
	for !utf8.ValidString(prefix) {
		prefix = prefix[:len(prefix)-1]
	}
	return Result{Text: prefix + "\n\n[TRUNCATED]", Method: method, Truncated: true}
}

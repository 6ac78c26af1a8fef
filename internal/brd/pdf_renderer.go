package brd

import (
	"context"
	_ "embed"
	"encoding/base64"
	"fmt"
	"html"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/joelkehle/brd-assistant/internal/wizard"
)

//go:embed style.css
var styleCSS string

type PDFRenderer interface {
	Render(ctx context.Context, markdown string) ([]byte, error)
}

// RenderPDF renders a resolved session through r.
func RenderPDF(ctx context.Context, s *wizard.Session, r PDFRenderer) (Document, error) {
	md, err := Markdown(s)
	if err != nil {
		return Document{}, err
	}
	data, err := r.Render(ctx, md)
	if err != nil {
		return Document{}, wizard.NewInternalError("render pdf", err)
	}
	return Document{Data: data, Filename: filename(s.ID, "pdf"), MimeType: mimePDF}, nil
}

type ChromiumPDFRenderer struct {
	chromePath string
	timeout    time.Duration
}

// NewChromiumPDFRenderer uses chromePath when set, otherwise the first
// Chromium binary found on the usual paths.
func NewChromiumPDFRenderer(chromePath string) *ChromiumPDFRenderer {
	if strings.TrimSpace(chromePath) == "" {
		chromePath = detectChromePath()
	}
	return &ChromiumPDFRenderer{chromePath: chromePath, timeout: 30 * time.Second}
}

func (r *ChromiumPDFRenderer) Render(ctx context.Context, markdown string) ([]byte, error) {
	htmlDoc, err := buildHTML(markdown)
	if err != nil {
		return nil, err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	}
	if r.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(r.chromePath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(timeoutCtx, append(chromedp.DefaultExecAllocatorOptions[:], opts...)...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	var pdf []byte
	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(htmlDoc))
	if err := chromedp.Run(taskCtx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			footer := `<div style="width:100%;text-align:center;font-size:9px;color:#666;">` +
				`Page <span class="pageNumber"></span> of <span class="totalPages"></span></div>`
			out, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithDisplayHeaderFooter(true).
				WithHeaderTemplate(`<div></div>`).
				WithFooterTemplate(footer).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				WithMarginTop(0.5).
				WithMarginBottom(0.75).
				WithMarginLeft(0.6).
				WithMarginRight(0.6).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = out
			return nil
		}),
	); err != nil {
		return nil, err
	}
	return pdf, nil
}

func buildHTML(markdown string) (string, error) {
	var content strings.Builder
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(markdown), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	return "<!doctype html><html><head><meta charset='utf-8'><title>" + html.EscapeString(DocumentTitle) + "</title>" +
		"<style>" + styleCSS + "</style></head><body><main class='brd'>" +
		applyPrintLayoutHooks(content.String()) +
		"</main></body></html>", nil
}

var (
	privacyHeading = regexp.MustCompile(`(?i)<h2([^>]*)>\s*(Privacy / Compliance)\s*</h2>`)
	summaryHeading = regexp.MustCompile(`(?i)<h2([^>]*)>\s*Score Summary\s*</h2>`)
)

func applyPrintLayoutHooks(contentHTML string) string {
	out := privacyHeading.ReplaceAllString(contentHTML, `<h2$1 data-privacy="true">$2</h2>`)
	return summaryHeading.ReplaceAllString(out, `<h2$1 data-page-break-before="true">Score Summary</h2>`)
}

func detectChromePath() string {
	candidates := []string{
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

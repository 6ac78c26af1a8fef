package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joelkehle/brd-assistant/internal/app"
	"github.com/joelkehle/brd-assistant/internal/config"
	"github.com/joelkehle/brd-assistant/internal/fields"
	"github.com/joelkehle/brd-assistant/internal/wizard"
)

var answers = map[string]string{
	fields.Background:          "Customers report slow checkout causing cart abandonment across mobile app",
	fields.ExpectedResults:     "Reduce cart abandonment by 15% within 3 months",
	fields.TargetCustomerGroup: "Returning mobile customers aged 25-40",
	fields.ImpactedChannels:    "Mobile app and web checkout",
	fields.ImpactedJourney:     "Existing checkout journey",
	fields.JourneysDescription: "The customer opens the mobile app, selects the saved card, confirms the amount and receives a receipt. " +
		"On a payment error or timeout the app shows a retry screen and keeps the cart.",
	fields.ReportsNeeded:   "Daily conversion dashboard",
	fields.TrafficForecast: "About 20000 transactions per day",
}

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("BRD_STORE", config.StoreSQLite)
	t.Setenv("BRD_DATA_DIR", dir)
	t.Setenv("BRD_DB_PATH", filepath.Join(dir, "brd.db"))
	t.Setenv("BRD_ARTIFACT_SINK", config.SinkNone)
	t.Setenv("USE_LLM", "false")
	return dir
}

// seedResolved answers every field in a session and closes the app, as a
// separate server process would have.
func seedResolved(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	defer a.Close()
	view, err := a.Service.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	for _, def := range fields.ScoredFields() {
		if _, err := a.Service.Message(ctx, view.SessionID, def.ID, answers[def.ID], ""); err != nil {
			t.Fatalf("Message %s: %v", def.ID, err)
		}
	}
	if _, err := a.Service.Message(ctx, view.SessionID, fields.PrivacyCompliance, "no", ""); err != nil {
		t.Fatalf("gate: %v", err)
	}
	return view.SessionID
}

func TestRunMissingSession(t *testing.T) {
	setupEnv(t)
	err := run(context.Background(), nil, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "-session") {
		t.Fatalf("expected missing -session error, got %v", err)
	}
}

func TestRunUnknownSession(t *testing.T) {
	setupEnv(t)
	err := run(context.Background(), []string{"-session", "nope", "-format", "txt"}, &bytes.Buffer{})
	if !errors.Is(err, wizard.ErrSessionNotFound) {
		t.Fatalf("expected session not found, got %v", err)
	}
}

func TestRunExportsText(t *testing.T) {
	setupEnv(t)
	id := seedResolved(t)

	var out bytes.Buffer
	if err := run(context.Background(), []string{"-session", id, "-format", "txt"}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "BRD / TO-BE JOURNEY") {
		t.Fatalf("unexpected txt export: %s", out.String())
	}

	outDir := t.TempDir()
	if err := run(context.Background(), []string{"-session", id, "-out", outDir}, &out); err != nil {
		t.Fatalf("run docx: %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(outDir, "*.docx"))
	if len(matches) != 1 {
		t.Fatalf("expected one docx in %s, got %v", outDir, matches)
	}
	if info, err := os.Stat(matches[0]); err != nil || info.Size() == 0 {
		t.Fatalf("empty docx: %v", err)
	}
}

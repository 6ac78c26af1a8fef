package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/joelkehle/brd-assistant/internal/assistant"
	"github.com/joelkehle/brd-assistant/internal/fields"
	"github.com/joelkehle/brd-assistant/internal/normalize"
	"github.com/joelkehle/brd-assistant/internal/pdfextract"
	"github.com/joelkehle/brd-assistant/internal/store"
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

func newServerForTest(t *testing.T) http.Handler {
	t.Helper()
	extractor := func(_ context.Context, pdf []byte) (pdfextract.Result, error) {
		return pdfextract.Result{Text: answers[fields.Background], Method: "pdftotext"}, nil
	}
	svc := assistant.New(store.NewMemory(), normalize.Stub{}, assistant.WithExtractor(extractor))
	return NewServer(svc)
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	blob, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(blob))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v body=%s", err, rr.Body.String())
	}
	return out
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode(t, rr)
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func mustCreateSession(t *testing.T, h http.Handler) string {
	t.Helper()
	rr := postJSON(t, h, "/v1/sessions", map[string]any{})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	id, _ := decode(t, rr)["session_id"].(string)
	if id == "" {
		t.Fatal("missing session_id")
	}
	return id
}

func mustResolve(t *testing.T, h http.Handler, id string) {
	t.Helper()
	for _, def := range fields.ScoredFields() {
		rr := postJSON(t, h, "/v1/sessions/"+id+"/messages", map[string]any{"field": def.ID, "text": answers[def.ID]})
		if rr.Code != http.StatusOK {
			t.Fatalf("message %s status=%d body=%s", def.ID, rr.Code, rr.Body.String())
		}
	}
	rr := postJSON(t, h, "/v1/sessions/"+id+"/messages", map[string]any{"field": fields.PrivacyCompliance, "text": "no"})
	if rr.Code != http.StatusOK {
		t.Fatalf("gate status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestHealth(t *testing.T) {
	h := newServerForTest(t)
	rr := get(t, h, "/v1/health")
	if rr.Code != http.StatusOK {
		t.Fatalf("health status=%d", rr.Code)
	}
}

func TestCreateAndResume(t *testing.T) {
	h := newServerForTest(t)
	id := mustCreateSession(t, h)

	rr := get(t, h, "/v1/sessions/"+id)
	if rr.Code != http.StatusOK {
		t.Fatalf("resume status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := decode(t, rr)
	if body["current_field"] != fields.Background {
		t.Fatalf("unexpected current field %v", body["current_field"])
	}

	rr = get(t, h, "/v1/sessions/unknown-session")
	if rr.Code != http.StatusNotFound || errorCode(t, rr) != "session_not_found" {
		t.Fatalf("expected 404 session_not_found, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestMessageWeakAnswerIsReAsked(t *testing.T) {
	h := newServerForTest(t)
	id := mustCreateSession(t, h)

	rr := postJSON(t, h, "/v1/sessions/"+id+"/messages", map[string]any{"text": "slow"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := decode(t, rr)
	if body["accepted"] != false || body["next_field"] != fields.Background {
		t.Fatalf("expected re-ask of background, got %v", body)
	}
	if reasons, _ := body["weakness_reasons"].([]any); len(reasons) == 0 {
		t.Fatalf("expected weakness reasons, got %v", body)
	}
}

func TestMessageErrors(t *testing.T) {
	h := newServerForTest(t)
	id := mustCreateSession(t, h)

	rr := postJSON(t, h, "/v1/sessions/"+id+"/messages", map[string]any{"field": fields.TrafficForecast, "text": "1000 per day"})
	if rr.Code != http.StatusConflict || errorCode(t, rr) != "out_of_order_submission" {
		t.Fatalf("expected 409, got %d %s", rr.Code, rr.Body.String())
	}

	rr = postJSON(t, h, "/v1/sessions/"+id+"/messages", map[string]any{"field": "budget", "text": "x"})
	if rr.Code != http.StatusBadRequest || errorCode(t, rr) != "unknown_field" {
		t.Fatalf("expected 400 unknown_field, got %d %s", rr.Code, rr.Body.String())
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/"+id+"/messages", strings.NewReader("{"))
	bad := httptest.NewRecorder()
	h.ServeHTTP(bad, req)
	if bad.Code != http.StatusBadRequest || errorCode(t, bad) != "validation" {
		t.Fatalf("expected 400 validation, got %d %s", bad.Code, bad.Body.String())
	}
}

func TestExportFlow(t *testing.T) {
	h := newServerForTest(t)
	id := mustCreateSession(t, h)

	rr := get(t, h, "/v1/sessions/"+id+"/export?format=txt")
	if rr.Code != http.StatusUnprocessableEntity || errorCode(t, rr) != "incomplete_submission" {
		t.Fatalf("expected 422, got %d %s", rr.Code, rr.Body.String())
	}

	mustResolve(t, h, id)

	rr = get(t, h, "/v1/sessions/"+id+"/export?format=pdf")
	if rr.Code != http.StatusBadRequest || errorCode(t, rr) != "unsupported_format" {
		t.Fatalf("expected 400 unsupported_format, got %d %s", rr.Code, rr.Body.String())
	}

	rr = get(t, h, "/v1/sessions/"+id+"/export?format=txt")
	if rr.Code != http.StatusOK {
		t.Fatalf("export status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/plain") {
		t.Fatalf("unexpected content type %s", rr.Header().Get("Content-Type"))
	}
	if !strings.Contains(rr.Header().Get("Content-Disposition"), ".txt") {
		t.Fatalf("unexpected disposition %s", rr.Header().Get("Content-Disposition"))
	}
	if !strings.Contains(rr.Body.String(), "BRD / TO-BE JOURNEY") {
		t.Fatalf("export missing title: %s", rr.Body.String())
	}

	rr = get(t, h, "/v1/sessions/"+id+"/export")
	if rr.Code != http.StatusOK || !bytes.HasPrefix(rr.Body.Bytes(), []byte("PK")) {
		t.Fatalf("expected docx by default, got %d", rr.Code)
	}
}

func TestPreview(t *testing.T) {
	h := newServerForTest(t)
	id := mustCreateSession(t, h)
	mustResolve(t, h, id)

	rr := get(t, h, "/v1/sessions/"+id+"/preview")
	if rr.Code != http.StatusOK {
		t.Fatalf("preview status=%d body=%s", rr.Code, rr.Body.String())
	}
	sections, _ := decode(t, rr)["sections"].([]any)
	if len(sections) != len(fields.FieldsInOrder()) {
		t.Fatalf("expected %d sections, got %d", len(fields.FieldsInOrder()), len(sections))
	}
}

func TestPreviewPDFNotConfigured(t *testing.T) {
	h := newServerForTest(t)
	id := mustCreateSession(t, h)
	rr := get(t, h, "/v1/sessions/"+id+"/preview.pdf")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without a renderer, got %d", rr.Code)
	}
}

func TestDocumentUploadRaw(t *testing.T) {
	h := newServerForTest(t)
	id := mustCreateSession(t, h)

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/"+id+"/documents?name=brief.pdf", bytes.NewReader([]byte("%PDF-1.4")))
	req.Header.Set("Content-Type", "application/pdf")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("upload status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := decode(t, rr)
	if body["accepted"] != true || body["next_field"] != fields.ExpectedResults {
		t.Fatalf("unexpected upload result %v", body)
	}
}

func TestDocumentUploadMultipart(t *testing.T) {
	h := newServerForTest(t)
	id := mustCreateSession(t, h)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "journey.pdf")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	_, _ = part.Write([]byte("%PDF-1.4"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/"+id+"/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("upload status=%d body=%s", rr.Code, rr.Body.String())
	}
	session, _ := decode(t, rr)["session"].(map[string]any)
	docs, _ := session["documents"].([]any)
	if len(docs) != 1 {
		t.Fatalf("expected one document, got %v", session["documents"])
	}
	if name := docs[0].(map[string]any)["name"]; name != "journey.pdf" {
		t.Fatalf("expected multipart filename, got %v", name)
	}
}

func TestDocumentUploadEmpty(t *testing.T) {
	h := newServerForTest(t)
	id := mustCreateSession(t, h)
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/"+id+"/documents", bytes.NewReader(nil))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty upload, got %d", rr.Code)
	}
}

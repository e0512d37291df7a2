package server

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"ocrdocs-backend/internal/documents"
	"ocrdocs-backend/internal/extract"
	"ocrdocs-backend/internal/shared/config"
	"ocrdocs-backend/internal/summarize"
)

func testRouter(t *testing.T, rate config.RateLimitTuning) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.Config{
		CORSAllowOrigin: []string{"http://localhost:4200"},
		Tuning:          config.Tuning{UploadRateLimit: rate},
	}
	svc := &documents.Service{
		Repo:       documents.NewMemoryRepo(),
		Extractor:  extract.New(nil, nil),
		Summarizer: summarize.New(nil, 0),
	}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	engine := NewRouter(RouterDeps{
		Config:          cfg,
		DocumentHandler: documents.NewHandler(svc),
		Now:             func() time.Time { return now },
	})
	return Handler(cfg, engine)
}

func TestHealthAndMetrics(t *testing.T) {
	h := testRouter(t, config.RateLimitTuning{})

	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"ok":true`) {
		t.Fatalf("health: unexpected %d %s", resp.Code, resp.Body.String())
	}
	if resp.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected X-Request-Id header")
	}

	resp = httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "documents_saved_total") {
		t.Fatalf("metrics: unexpected %d %s", resp.Code, resp.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	h := testRouter(t, config.RateLimitTuning{})

	req := httptest.NewRequest(http.MethodOptions, "/api/ocr/documents", nil)
	req.Header.Set("Origin", "http://localhost:4200")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:4200" {
		t.Fatalf("expected allowed origin, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/ocr/documents", nil)
	req.Header.Set("Origin", "http://evil.example")
	resp = httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no CORS header for unknown origin, got %q", got)
	}
}

func upload(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	fw, err := w.CreateFormFile("file", "memo.txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = fw.Write([]byte("Quarterly invoices were scanned. Totals were reconciled."))
	_ = w.Close()
	return body, w.FormDataContentType()
}

func TestSummarizeIsRateLimited(t *testing.T) {
	h := testRouter(t, config.RateLimitTuning{Rate: 1, Burst: 1})

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		body, ct := upload(t)
		req := httptest.NewRequest(http.MethodPost, "/api/ocr/summarize", body)
		req.Header.Set("Content-Type", ct)
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, req)
		codes = append(codes, resp.Code)
	}
	if codes[0] != http.StatusOK {
		t.Fatalf("first upload: expected 200, got %d", codes[0])
	}
	if codes[1] != http.StatusTooManyRequests {
		t.Fatalf("second upload: expected 429, got %d", codes[1])
	}

	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/ocr/documents", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("other routes must not be limited, got %d", resp.Code)
	}
}

func TestAddr(t *testing.T) {
	tests := map[string]string{"": ":8080", "9000": ":9000", ":7000": ":7000"}
	for in, want := range tests {
		if got := Addr(in); got != want {
			t.Fatalf("Addr(%q) = %q, want %q", in, got, want)
		}
	}
}

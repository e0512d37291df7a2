package documents

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"ocrdocs-backend/internal/extract"
	"ocrdocs-backend/internal/render"
	"ocrdocs-backend/internal/shared/storage/object/local"
	"ocrdocs-backend/internal/summarize"
)

type stubExtractor struct {
	text  string
	err   error
	calls int
}

func (s *stubExtractor) ExtractText(ctx context.Context, data []byte, contentType, fileName string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	if s.text != "" {
		return s.text, nil
	}
	return string(data), nil
}

type stubSummarizer struct {
	summary   string
	err       error
	maxLength int
}

func (s *stubSummarizer) Summarize(ctx context.Context, text string, maxLength int) (string, error) {
	s.maxLength = maxLength
	return s.summary, s.err
}

func newTestService(ext TextExtractor, sum TextSummarizer) *Service {
	return &Service{
		Repo:       NewMemoryRepo().WithClock(fixedClock()),
		Extractor:  ext,
		Summarizer: sum,
		Now:        fixedClock(),
	}
}

func TestSummarizeAndSaveStoresDocument(t *testing.T) {
	sum := &stubSummarizer{summary: "short summary"}
	svc := newTestService(&stubExtractor{text: "full extracted text"}, sum)

	res, err := svc.SummarizeAndSave(context.Background(), Upload{
		FileName:    "scan.pdf",
		ContentType: "application/pdf",
		Data:        []byte("%PDF-1.4"),
	}, 0)
	if err != nil {
		t.Fatalf("SummarizeAndSave: %v", err)
	}
	if res.Summary != "short summary" || res.FullText != "full extracted text" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if sum.maxLength != summarize.DefaultSummaryLength {
		t.Fatalf("expected default summary length, got %d", sum.maxLength)
	}

	doc := res.Document
	if doc.ID != 1 || doc.Version != 1 || doc.Title != "scan.pdf" || doc.Category != CategoryFiles ||
		doc.Type != DefaultType || doc.DateCreation != "2024-03-09" {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if doc.Summary == nil || *doc.Summary != "short summary" {
		t.Fatalf("expected summary stored, got %v", doc.Summary)
	}
	if doc.SourceKey != nil {
		t.Fatalf("expected no source key without a store, got %q", *doc.SourceKey)
	}
}

func TestSummarizeAndSaveArchivesOriginal(t *testing.T) {
	store := local.New(t.TempDir())
	svc := newTestService(&stubExtractor{}, &stubSummarizer{summary: "s"})
	svc.Store = store

	res, err := svc.SummarizeAndSave(context.Background(), Upload{
		FileName:    "note.txt",
		ContentType: "text/plain",
		Data:        []byte("original bytes"),
	}, 50)
	if err != nil {
		t.Fatalf("SummarizeAndSave: %v", err)
	}
	if res.Document.SourceKey == nil {
		t.Fatal("expected source key to be recorded")
	}
	rc, err := store.Open(context.Background(), *res.Document.SourceKey)
	if err != nil {
		t.Fatalf("open archived original: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "original bytes" {
		t.Fatalf("unexpected archived content %q", data)
	}

	derived, err := store.Open(context.Background(), extract.ExtractedKey(*res.Document.SourceKey))
	if err != nil {
		t.Fatalf("open extracted text: %v", err)
	}
	defer derived.Close()
	text, _ := io.ReadAll(derived)
	if string(text) != "original bytes" {
		t.Fatalf("unexpected extracted text %q", text)
	}
}

func TestSummarizeAndSaveSkipsArchiveWhenExtractionFails(t *testing.T) {
	dir := t.TempDir()
	svc := newTestService(&stubExtractor{err: errors.New("pdf is encrypted")}, &stubSummarizer{summary: "s"})
	svc.Store = local.New(dir)

	_, err := svc.SummarizeAndSave(context.Background(), Upload{
		FileName:    "locked.pdf",
		ContentType: "application/pdf",
		Data:        []byte("%PDF-1.7"),
	}, 50)
	if !errors.Is(err, ErrDependency) {
		t.Fatalf("expected ErrDependency, got %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read store dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected nothing archived, found %d entries", len(entries))
	}
}

func TestSummarizeAndSaveRejectsInvalidUTF8Text(t *testing.T) {
	svc := newTestService(extract.New(nil, nil), &stubSummarizer{summary: "s"})

	_, err := svc.SummarizeAndSave(context.Background(), Upload{
		FileName:    "notes.txt",
		ContentType: "text/plain",
		Data:        []byte{0xff, 0xfe, 'a'},
	}, 50)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if errors.Is(err, ErrDependency) {
		t.Fatalf("invalid text must not be reported as a dependency failure: %v", err)
	}
}

func TestSummarizeAndSaveValidation(t *testing.T) {
	tests := []struct {
		name          string
		upload        Upload
		summaryLength int
	}{
		{name: "missing file name", upload: Upload{ContentType: "application/pdf", Data: []byte("x")}},
		{name: "empty file", upload: Upload{FileName: "a.pdf", ContentType: "application/pdf"}},
		{name: "unsupported type", upload: Upload{FileName: "a.xls", ContentType: "application/vnd.ms-excel", Data: []byte("x")}},
		{name: "oversize file", upload: Upload{FileName: "a.txt", ContentType: "text/plain", Data: make([]byte, MaxUploadBytes+1)}},
		{name: "negative summary length", upload: Upload{FileName: "a.txt", ContentType: "text/plain", Data: []byte("x")}, summaryLength: -1},
		{name: "summary length too large", upload: Upload{FileName: "a.txt", ContentType: "text/plain", Data: []byte("x")}, summaryLength: MaxSummaryLength + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext := &stubExtractor{}
			svc := newTestService(ext, &stubSummarizer{})
			_, err := svc.SummarizeAndSave(context.Background(), tt.upload, tt.summaryLength)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if ext.calls != 0 {
				t.Fatalf("expected extractor not to be called")
			}
		})
	}
}

func TestSummarizeAndSaveErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		extErr  error
		sumErr  error
		wantErr error
	}{
		{name: "extractor failure is a dependency error", extErr: errors.New("ocr crashed"), wantErr: ErrDependency},
		{name: "ocr unavailable is a dependency error", extErr: extract.ErrOCRUnavailable, wantErr: ErrDependency},
		{name: "unsupported type is validation", extErr: extract.ErrUnsupportedType, wantErr: ErrValidation},
		{name: "oversize text is validation", extErr: extract.ErrTextTooLarge, wantErr: ErrValidation},
		{name: "invalid text is validation", extErr: extract.ErrInvalidText, wantErr: ErrValidation},
		{name: "oversize summarizer input is validation", sumErr: summarize.ErrInputTooLarge, wantErr: ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&stubExtractor{err: tt.extErr}, &stubSummarizer{err: tt.sumErr})
			_, err := svc.SummarizeAndSave(context.Background(), Upload{
				FileName:    "a.png",
				ContentType: "image/png",
				Data:        []byte("png"),
			}, 100)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			docs, _ := svc.List(context.Background())
			if len(docs) != 0 {
				t.Fatalf("expected nothing persisted, got %d documents", len(docs))
			}
		})
	}
}

func TestSummarizeAndSaveWithRealSummarizerFallsBack(t *testing.T) {
	failing := summarizeModelFunc(func(context.Context, string, int, int) (string, error) {
		return "", errors.New("model offline")
	})
	text := strings.Repeat("word ", 40)
	svc := newTestService(&stubExtractor{text: text}, &summarize.Summarizer{Model: failing})

	res, err := svc.SummarizeAndSave(context.Background(), Upload{FileName: "a.txt", ContentType: "text/plain", Data: []byte("x")}, 200)
	if err != nil {
		t.Fatalf("summarizer failure must not block persistence: %v", err)
	}
	if res.Summary != text[:100]+"..." {
		t.Fatalf("expected fallback summary, got %q", res.Summary)
	}
	if res.Document.ID != 1 {
		t.Fatalf("expected document to be saved, got %+v", res.Document)
	}
}

type summarizeModelFunc func(ctx context.Context, chunk string, minLength, maxLength int) (string, error)

func (f summarizeModelFunc) Summarize(ctx context.Context, chunk string, minLength, maxLength int) (string, error) {
	return f(ctx, chunk, minLength, maxLength)
}

func TestServiceSaveValidation(t *testing.T) {
	svc := newTestService(nil, nil)
	ctx := context.Background()

	if _, err := svc.Save(ctx, Document{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("missing title: expected ErrValidation, got %v", err)
	}
	if _, err := svc.Save(ctx, Document{Title: "a", ID: -1}); !errors.Is(err, ErrValidation) {
		t.Fatalf("negative id: expected ErrValidation, got %v", err)
	}
	if _, err := svc.Save(ctx, Document{Title: strings.Repeat("t", 256)}); !errors.Is(err, ErrValidation) {
		t.Fatalf("long title: expected ErrValidation, got %v", err)
	}
	doc, err := svc.Save(ctx, Document{Title: "ok", Content: "body"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	v, err := svc.GetVersion(ctx, doc.ID, 1)
	if err != nil {
		t.Fatalf("GetVersion: %v", err)
	}
	if v.Content != "body" {
		t.Fatalf("expected version content from document, got %q", v.Content)
	}
}

func TestServiceUpdateValidation(t *testing.T) {
	svc := newTestService(nil, nil)
	if _, err := svc.Update(context.Background(), 0, Document{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for id 0, got %v", err)
	}
	if _, err := svc.Update(context.Background(), 3, Document{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestServiceSearchReadsRepository(t *testing.T) {
	svc := newTestService(nil, nil)
	ctx := context.Background()
	for _, title := range []string{"Passport", "Invoice"} {
		if _, err := svc.Save(ctx, Document{Title: title}); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	got, err := svc.Search(ctx, "pass")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Passport" {
		t.Fatalf("unexpected results: %+v", got)
	}
	if _, err := svc.Search(ctx, " "); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestServiceRenderPDF(t *testing.T) {
	svc := newTestService(nil, nil)

	if _, err := svc.RenderPDF(render.Sheet{Summary: "s"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation without title, got %v", err)
	}

	svc.Render = func(render.Sheet) ([]byte, error) { return nil, errors.New("font missing") }
	if _, err := svc.RenderPDF(render.Sheet{Title: "t", Summary: "s"}); !errors.Is(err, ErrDependency) {
		t.Fatalf("expected ErrDependency, got %v", err)
	}

	svc.Render = nil
	out, err := svc.RenderPDF(render.Sheet{Title: "t", Summary: "s"})
	if err != nil {
		t.Fatalf("RenderPDF: %v", err)
	}
	if !strings.HasPrefix(string(out), "%PDF-") {
		t.Fatalf("expected PDF output")
	}
}

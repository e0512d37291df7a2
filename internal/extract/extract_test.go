package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"ocrdocs-backend/internal/shared/storage/object/local"
)

func buildDocx(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create document.xml: %v", err)
	}
	xml := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body + `</w:body></w:document>`
	if _, err := w.Write([]byte(xml)); err != nil {
		t.Fatalf("write document.xml: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestExtractText_ZipDocxNormalizes(t *testing.T) {
	data := buildDocx(t, `<w:p><w:r><w:t>Invoice 42</w:t></w:r></w:p><w:p><w:r><w:t>Paid</w:t></w:r></w:p>`)
	e := New(nil, nil)

	got, err := e.ExtractText(context.Background(), data, "application/zip", "scan.docx")
	if err != nil {
		t.Fatalf("expected docx to extract from zip type, got error: %v", err)
	}
	if got != "Invoice 42\nPaid" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestExtractText_RealZipRejected(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("notes.txt")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	_, err = New(nil, nil).ExtractText(context.Background(), buf.Bytes(), "application/zip", "notes.zip")
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
	if !strings.Contains(err.Error(), "application/zip") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExtractText_PlainText(t *testing.T) {
	got, err := New(nil, nil).ExtractText(context.Background(), []byte("  hello world \n"), "text/plain; charset=utf-8", "a.txt")
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if got != "hello world" {
		t.Fatalf("expected trimmed text, got %q", got)
	}
}

func TestExtractText_ImagesUseOCREngine(t *testing.T) {
	var gotLangs []string
	engine := OCRFunc(func(ctx context.Context, image []byte, languages []string) (string, error) {
		gotLangs = languages
		return "recognized " + string(image), nil
	})
	e := New(engine, []string{"eng", "fra"})

	for _, ct := range []string{"image/png", "image/jpeg", "image/jpg", "IMAGE/PNG"} {
		got, err := e.ExtractText(context.Background(), []byte("pixels"), ct, "scan")
		if err != nil {
			t.Fatalf("%s: ExtractText: %v", ct, err)
		}
		if got != "recognized pixels" {
			t.Fatalf("%s: unexpected text %q", ct, got)
		}
	}
	if len(gotLangs) != 2 || gotLangs[0] != "eng" {
		t.Fatalf("expected languages to be forwarded, got %v", gotLangs)
	}
}

func TestExtractText_OCRFailureWrapped(t *testing.T) {
	e := &Extractor{OCR: OCRFunc(func(context.Context, []byte, []string) (string, error) {
		return "", ErrOCRUnavailable
	})}
	_, err := e.ExtractText(context.Background(), []byte("x"), "image/png", "a.png")
	if !errors.Is(err, ErrOCRUnavailable) {
		t.Fatalf("expected ErrOCRUnavailable, got %v", err)
	}
}

func TestExtractText_OversizeText(t *testing.T) {
	big := bytes.Repeat([]byte("a"), MaxTextBytes+1)
	_, err := New(nil, nil).ExtractText(context.Background(), big, "text/plain", "big.txt")
	if !errors.Is(err, ErrTextTooLarge) {
		t.Fatalf("expected ErrTextTooLarge, got %v", err)
	}
}

func TestExtractText_InvalidPDF(t *testing.T) {
	_, err := New(nil, nil).ExtractText(context.Background(), []byte("not a pdf"), "application/pdf", "a.pdf")
	if err == nil {
		t.Fatal("expected error for invalid pdf")
	}
	if errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("invalid pdf should not be reported as unsupported: %v", err)
	}
}

func TestNormalizeContentType(t *testing.T) {
	tests := []struct {
		contentType string
		fileName    string
		want        string
	}{
		{"application/pdf", "a.pdf", mimePDF},
		{"Image/JPEG; q=1", "a.jpg", mimeJPEG},
		{"application/octet-stream", "scan.PNG", mimePNG},
		{"", "notes.txt", mimeText},
		{"application/octet-stream", "blob.bin", "application/octet-stream"},
		{"application/zip", "x.docx", mimeDOCX},
	}
	for _, tt := range tests {
		if got := NormalizeContentType(tt.contentType, tt.fileName, nil); got != tt.want {
			t.Fatalf("NormalizeContentType(%q, %q) = %q, want %q", tt.contentType, tt.fileName, got, tt.want)
		}
	}
}

func TestExtractTextRejectsInvalidUTF8(t *testing.T) {
	_, err := New(nil, nil).ExtractText(context.Background(), []byte{0xff, 0xfe, 'a'}, "text/plain", "a.txt")
	if !errors.Is(err, ErrInvalidText) {
		t.Fatalf("expected ErrInvalidText, got %v", err)
	}
}

func TestExtractFromStoreWritesDerivedText(t *testing.T) {
	store := local.New(t.TempDir())
	ctx := context.Background()

	key, _, _, err := store.Save(ctx, "ocr", "note.txt", strings.NewReader("stored text"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	text, err := New(nil, nil).ExtractFromStore(ctx, store, key, "text/plain", "note.txt")
	if err != nil {
		t.Fatalf("ExtractFromStore: %v", err)
	}
	if text != "stored text" {
		t.Fatalf("unexpected text %q", text)
	}

	rc, err := store.Open(ctx, ExtractedKey(key))
	if err != nil {
		t.Fatalf("open derived text: %v", err)
	}
	defer rc.Close()
	derived, _ := io.ReadAll(rc)
	if string(derived) != "stored text" {
		t.Fatalf("unexpected derived text %q", derived)
	}
}

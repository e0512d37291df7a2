// Package extract turns uploaded files into plain text.
//
// PDF, DOCX and text/plain are handled in-process. PNG and JPEG uploads need
// OCR, which is only compiled in with the tesseract build tag (cgo and
// libtesseract required):
//
//	go build -tags tesseract ./cmd/api
//
// Without the tag, image uploads fail with ErrOCRUnavailable.
package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"ocrdocs-backend/internal/shared/storage/object"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimePNG  = "image/png"
	mimeJPEG = "image/jpeg"
	mimeJPG  = "image/jpg"
	mimeText = "text/plain"

	// MaxTextBytes bounds the extracted text handed to the summarizer (25 MiB).
	MaxTextBytes = 25 << 20
)

var (
	// ErrUnsupportedType is returned for content types with no extraction path.
	ErrUnsupportedType = errors.New("unsupported content type")
	// ErrTextTooLarge is returned when extracted text exceeds MaxTextBytes.
	ErrTextTooLarge = errors.New("extracted text too large")
	// ErrInvalidText is returned for text/plain payloads that are not UTF-8.
	ErrInvalidText = errors.New("invalid utf-8 text")
)

// Extractor turns uploaded bytes into plain text. Images go through OCR.
type Extractor struct {
	OCR       OCREngine
	Languages []string
}

// New constructs an Extractor; a nil engine uses the platform default.
func New(engine OCREngine, languages []string) *Extractor {
	if engine == nil {
		engine = DefaultOCR()
	}
	return &Extractor{OCR: engine, Languages: languages}
}

// ExtractText extracts text from an in-memory payload.
func (e *Extractor) ExtractText(ctx context.Context, data []byte, contentType, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var (
		text string
		err  error
	)
	normalized := NormalizeContentType(contentType, fileName, data)
	switch normalized {
	case mimePDF:
		text, err = extractPDF(data)
	case mimeDOCX:
		text, err = extractDOCX(data)
	case mimePNG, mimeJPEG, mimeJPG:
		text, err = e.recognize(ctx, data)
	case mimeText:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%s: %w", normalized, ErrInvalidText)
		}
		text = string(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, normalized)
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", normalized, err)
	}
	if len(text) > MaxTextBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrTextTooLarge, len(text))
	}
	return strings.TrimSpace(text), nil
}

// ExtractedKey names the derived text object kept next to an archived original.
func ExtractedKey(fileKey string) string {
	return fileKey + ".extracted.txt"
}

// SaveExtracted stores text under ExtractedKey(fileKey).
func SaveExtracted(ctx context.Context, store object.ObjectStore, fileKey, text string) error {
	if _, err := store.SaveWithKey(ctx, ExtractedKey(fileKey), "text/plain; charset=utf-8", strings.NewReader(text)); err != nil {
		return fmt.Errorf("save extracted text key=%s: %w", fileKey, err)
	}
	return nil
}

// ExtractFromStore re-extracts an archived original and refreshes its derived
// text object.
func (e *Extractor) ExtractFromStore(ctx context.Context, store object.ObjectStore, fileKey, contentType, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	body, err := store.Open(ctx, fileKey)
	if err != nil {
		return "", fmt.Errorf("extract text key=%s type=%s: %w", fileKey, contentType, err)
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("extract text key=%s type=%s: read: %w", fileKey, contentType, err)
	}

	text, err := e.ExtractText(ctx, raw, contentType, fileName)
	if err != nil {
		return "", fmt.Errorf("extract text key=%s type=%s: %w", fileKey, contentType, err)
	}

	if err := SaveExtracted(ctx, store, fileKey, text); err != nil {
		return "", err
	}

	return text, nil
}

func (e *Extractor) recognize(ctx context.Context, data []byte) (string, error) {
	if e.OCR == nil {
		return "", ErrOCRUnavailable
	}
	return e.OCR.Recognize(ctx, data, e.Languages)
}

func extractPDF(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx data")
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", errors.New("document.xml file not found")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return stripDocxXML(string(raw)), nil
}

func stripDocxXML(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return raw
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.WriteString(string(t))
		case xml.EndElement:
			if (t.Name.Local == "p" || t.Name.Local == "br") && buf.Len() > 0 {
				buf.WriteString("\n")
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

// NormalizeContentType lowercases the media type, drops parameters and
// resolves generic zip or octet-stream uploads from the payload or extension.
func NormalizeContentType(contentType, fileName string, data []byte) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	switch clean {
	case "application/zip":
		if len(data) > 0 && isDOCXArchive(data) {
			return mimeDOCX
		}
		if strings.EqualFold(filepath.Ext(fileName), ".docx") {
			return mimeDOCX
		}
		return clean
	case "", "application/octet-stream":
		if byExt := typeFromExtension(fileName); byExt != "" {
			return byExt
		}
		return clean
	}
	return clean
}

func typeFromExtension(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return mimePDF
	case ".png":
		return mimePNG
	case ".jpg", ".jpeg":
		return mimeJPEG
	case ".docx":
		return mimeDOCX
	case ".txt":
		return mimeText
	}
	return ""
}

func isDOCXArchive(data []byte) bool {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			return true
		}
	}
	return false
}

package extract

import (
	"context"
	"errors"
)

// ErrOCRUnavailable is returned when no OCR engine is compiled in.
var ErrOCRUnavailable = errors.New("ocr engine unavailable")

// OCREngine recognizes text in an encoded image.
type OCREngine interface {
	Recognize(ctx context.Context, image []byte, languages []string) (string, error)
}

// OCRFunc adapts a function to OCREngine.
type OCRFunc func(ctx context.Context, image []byte, languages []string) (string, error)

// Recognize calls f.
func (f OCRFunc) Recognize(ctx context.Context, image []byte, languages []string) (string, error) {
	return f(ctx, image, languages)
}

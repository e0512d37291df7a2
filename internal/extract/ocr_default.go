//go:build !tesseract

package extract

import "context"

// OCRCompiled reports whether this binary carries an OCR engine.
const OCRCompiled = false

type noOCR struct{}

func (noOCR) Recognize(context.Context, []byte, []string) (string, error) {
	return "", ErrOCRUnavailable
}

// DefaultOCR returns the engine used when none is injected. Builds without
// the tesseract tag have no engine and report ErrOCRUnavailable.
func DefaultOCR() OCREngine {
	return noOCR{}
}

//go:build tesseract

package extract

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// OCRCompiled reports whether this binary carries an OCR engine.
const OCRCompiled = true

type tesseractOCR struct{}

// DefaultOCR returns a gosseract-backed engine.
func DefaultOCR() OCREngine {
	return tesseractOCR{}
}

func (tesseractOCR) Recognize(ctx context.Context, image []byte, languages []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	client := gosseract.NewClient()
	defer client.Close()

	if len(languages) > 0 {
		if err := client.SetLanguage(languages...); err != nil {
			return "", fmt.Errorf("set ocr language: %w", err)
		}
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("load image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}
	return text, nil
}

package object

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"

	"ocrdocs-backend/internal/shared/util"
)

const sniffLen = 512

// NewKey returns a fresh "<namespace hash>/<random>_<file name>" storage key.
// The file name is sanitized; an unusable name is an error.
func NewKey(namespace, fileName string) (string, error) {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("sanitize file name: %w", err)
	}
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return path.Join(util.HashNamespace(namespace), random+"_"+name), nil
}

// Sniff detects the MIME type of r from its first bytes. The returned reader
// yields the complete stream, sniffed bytes included.
func Sniff(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, fmt.Errorf("sniff content type: %w", err)
	}
	head = head[:n]
	return http.DetectContentType(head), io.MultiReader(bytes.NewReader(head), r), nil
}

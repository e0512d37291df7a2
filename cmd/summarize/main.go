package main

// Summarize a local file without starting the API:
//   go run ./cmd/summarize -length 300 -pdf ./out/summary.pdf ./scan.pdf
//
// Re-extract an original archived by the API in the local object store; this
// also refreshes its <key>.extracted.txt copy:
//   go run ./cmd/summarize -store ./data -key <sourceKey>

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"ocrdocs-backend/internal/extract"
	"ocrdocs-backend/internal/render"
	"ocrdocs-backend/internal/shared/storage/object"
	localstore "ocrdocs-backend/internal/shared/storage/object/local"
	"ocrdocs-backend/internal/summarize"
)

type output struct {
	Summary  string `json:"summary"`
	FullText string `json:"fullText"`
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "summarize: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("summarize", flag.ContinueOnError)
	length := fs.Int("length", summarize.DefaultSummaryLength, "maximum summary length in characters")
	pdfOut := fs.String("pdf", "", "optional path for a rendered PDF summary")
	langs := fs.String("lang", "eng", "comma separated OCR languages")
	storeDir := fs.String("store", "", "local object store directory (with -key)")
	key := fs.String("key", "", "source key of an archived original")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ex := extract.New(nil, strings.Split(*langs, ","))
	var (
		name string
		text string
		err  error
	)
	switch {
	case *key != "":
		if *storeDir == "" || fs.NArg() != 0 {
			return errors.New("-key needs -store and no input file")
		}
		name, text, err = extractArchived(ctx, ex, localstore.New(*storeDir), *key)
	case fs.NArg() == 1:
		name, text, err = extractFile(ctx, ex, fs.Arg(0))
	default:
		return errors.New("expected exactly one input file")
	}
	if err != nil {
		return err
	}

	summary, err := summarize.New(nil, summarize.DefaultChunkSize).Summarize(ctx, text, *length)
	if err != nil {
		return err
	}

	if *pdfOut != "" {
		if err := writePDF(*pdfOut, name, summary, text); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(output{Summary: summary, FullText: text})
}

func extractFile(ctx context.Context, ex *extract.Extractor, file string) (string, string, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return "", "", err
	}
	name := filepath.Base(file)
	text, err := ex.ExtractText(ctx, data, extract.NormalizeContentType("", name, data), name)
	return name, text, err
}

// extractArchived recovers the file name from the "<hash>/<random>_<name>" key.
func extractArchived(ctx context.Context, ex *extract.Extractor, store object.ObjectStore, key string) (string, string, error) {
	name := path.Base(key)
	if _, rest, ok := strings.Cut(name, "_"); ok && rest != "" {
		name = rest
	}
	text, err := ex.ExtractFromStore(ctx, store, key, "", name)
	return name, text, err
}

func writePDF(outPath, title, summary, content string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	pdf, err := render.RenderBytes(render.Sheet{
		Title:   title,
		Summary: summary,
		Content: content,
		Date:    time.Now().Format("2006-01-02"),
	})
	if err != nil {
		return err
	}
	return os.WriteFile(outPath, pdf, 0o644)
}

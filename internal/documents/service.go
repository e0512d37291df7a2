package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"ocrdocs-backend/internal/extract"
	"ocrdocs-backend/internal/render"
	"ocrdocs-backend/internal/shared/metrics"
	"ocrdocs-backend/internal/shared/storage/object"
	"ocrdocs-backend/internal/shared/telemetry"
	"ocrdocs-backend/internal/summarize"
)

const (
	// MaxUploadBytes bounds uploaded files (25 MiB).
	MaxUploadBytes = 25 << 20
	// MaxSummaryLength bounds the requested summary length.
	MaxSummaryLength = 10000
	maxTitleLength   = 255
	storeNamespace   = "ocr"
)

var uploadTypes = []interface{}{
	"application/pdf",
	"image/png",
	"image/jpeg",
	"image/jpg",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"text/plain",
}

// TextExtractor turns an uploaded file into plain text.
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte, contentType, fileName string) (string, error)
}

// TextSummarizer produces a bounded summary of a text.
type TextSummarizer interface {
	Summarize(ctx context.Context, text string, maxLength int) (string, error)
}

// Service is the facade over extraction, summarization and the repository.
type Service struct {
	Repo       Repo
	Extractor  TextExtractor
	Summarizer TextSummarizer
	// Store archives uploaded originals; nil disables archiving.
	Store  object.ObjectStore
	Render func(render.Sheet) ([]byte, error)
	Now    func() time.Time
	// DefaultSummaryLength applies when a request omits summary_length.
	DefaultSummaryLength int
}

// Upload is a file received for summarization.
type Upload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// SummaryResult is returned by SummarizeAndSave.
type SummaryResult struct {
	Summary  string
	FullText string
	Document Document
}

func (s *Service) today() string {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return now().Format(dateLayout)
}

func validationError(err error) error {
	return fmt.Errorf("%w: %s", ErrValidation, err.Error())
}

// SummarizeAndSave extracts text from an upload, summarizes it and stores the
// result as a new document in the Files category.
func (s *Service) SummarizeAndSave(ctx context.Context, up Upload, summaryLength int) (SummaryResult, error) {
	if summaryLength == 0 {
		summaryLength = s.DefaultSummaryLength
	}
	if summaryLength == 0 {
		summaryLength = summarize.DefaultSummaryLength
	}
	contentType := extract.NormalizeContentType(up.ContentType, up.FileName, up.Data)
	size := len(up.Data)
	err := validation.Errors{
		"fileName":      validation.Validate(up.FileName, validation.Required),
		"size":          validation.Validate(size, validation.Required, validation.Max(MaxUploadBytes)),
		"contentType":   validation.Validate(contentType, validation.Required, validation.In(uploadTypes...)),
		"summaryLength": validation.Validate(summaryLength, validation.Min(1), validation.Max(MaxSummaryLength)),
	}.Filter()
	if err != nil {
		return SummaryResult{}, validationError(err)
	}

	text, err := s.Extractor.ExtractText(ctx, up.Data, contentType, up.FileName)
	if err != nil {
		if errors.Is(err, extract.ErrUnsupportedType) || errors.Is(err, extract.ErrTextTooLarge) || errors.Is(err, extract.ErrInvalidText) {
			return SummaryResult{}, fmt.Errorf("%w: %w", ErrValidation, err)
		}
		return SummaryResult{}, fmt.Errorf("%w: extract text: %w", ErrDependency, err)
	}

	summary, err := s.Summarizer.Summarize(ctx, text, summaryLength)
	if err != nil {
		if errors.Is(err, summarize.ErrInputTooLarge) {
			return SummaryResult{}, fmt.Errorf("%w: %w", ErrValidation, err)
		}
		return SummaryResult{}, fmt.Errorf("%w: summarize: %w", ErrDependency, err)
	}

	sourceKey := s.archive(ctx, up, text)

	doc, err := s.persist(ctx, Document{
		Title:        up.FileName,
		Content:      text,
		Summary:      &summary,
		Category:     CategoryFiles,
		Type:         DefaultType,
		DateCreation: s.today(),
		Version:      1,
		SourceKey:    sourceKey,
	})
	if err != nil {
		return SummaryResult{}, err
	}

	return SummaryResult{Summary: summary, FullText: text, Document: doc}, nil
}

// archive stores the original upload and its extracted text. Failures are
// logged; the summary is still returned and saved without a source key.
func (s *Service) archive(ctx context.Context, up Upload, text string) *string {
	if s.Store == nil {
		return nil
	}
	key, _, _, err := s.Store.Save(ctx, storeNamespace, up.FileName, bytes.NewReader(up.Data))
	if err != nil {
		telemetry.Warn("documents.archive_original.failed", map[string]any{
			"file_name": up.FileName,
			"error":     err,
		})
		return nil
	}
	if err := extract.SaveExtracted(ctx, s.Store, key, text); err != nil {
		telemetry.Warn("documents.archive_text.failed", map[string]any{
			"source_key": key,
			"error":      err,
		})
	}
	return &key
}

// Save validates and stores a document.
func (s *Service) Save(ctx context.Context, doc Document) (Document, error) {
	err := validation.ValidateStruct(&doc,
		validation.Field(&doc.Title, validation.Required, validation.RuneLength(1, maxTitleLength)),
		validation.Field(&doc.ID, validation.Min(0)),
		validation.Field(&doc.Version, validation.Min(0)),
	)
	if err != nil {
		return Document{}, validationError(err)
	}
	return s.persist(ctx, doc)
}

func (s *Service) persist(ctx context.Context, doc Document) (Document, error) {
	saved, err := s.Repo.Save(ctx, doc, doc.Content, doc.Summary)
	if err != nil {
		return Document{}, err
	}
	metrics.IncDocumentsSaved()
	metrics.IncVersionsWritten()
	telemetry.Info("documents.saved", map[string]any{
		"document_id": saved.ID,
		"version":     saved.Version,
	})
	return saved, nil
}

// List returns every document.
func (s *Service) List(ctx context.Context) ([]Document, error) {
	return s.Repo.List(ctx)
}

// ListArchived returns archived documents.
func (s *Service) ListArchived(ctx context.Context) ([]Document, error) {
	return s.Repo.ListArchived(ctx)
}

// Archive moves a document to the archive.
func (s *Service) Archive(ctx context.Context, id int) (Document, error) {
	doc, err := s.Repo.Archive(ctx, id)
	if err != nil {
		return Document{}, err
	}
	telemetry.Info("documents.archived", map[string]any{"document_id": id})
	return doc, nil
}

// Unarchive restores an archived document.
func (s *Service) Unarchive(ctx context.Context, id int) (Document, error) {
	doc, err := s.Repo.Unarchive(ctx, id)
	if err != nil {
		return Document{}, err
	}
	telemetry.Info("documents.unarchived", map[string]any{"document_id": id})
	return doc, nil
}

// Delete removes a document and its history.
func (s *Service) Delete(ctx context.Context, id int) error {
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	telemetry.Info("documents.deleted", map[string]any{"document_id": id})
	return nil
}

// ListVersions returns the version history of a document.
func (s *Service) ListVersions(ctx context.Context, id int) ([]Version, error) {
	return s.Repo.ListVersions(ctx, id)
}

// GetVersion returns a single version of a document.
func (s *Service) GetVersion(ctx context.Context, id, versionNumber int) (Version, error) {
	return s.Repo.GetVersion(ctx, id, versionNumber)
}

// Update replaces a document's fields and records a new version.
func (s *Service) Update(ctx context.Context, id int, patch Document) (Document, error) {
	if err := validation.Validate(id, validation.Required, validation.Min(1)); err != nil {
		return Document{}, fmt.Errorf("%w: id: %s", ErrValidation, err.Error())
	}
	if err := validation.Validate(patch.Title, validation.RuneLength(0, maxTitleLength)); err != nil {
		return Document{}, fmt.Errorf("%w: title: %s", ErrValidation, err.Error())
	}

	doc, err := s.Repo.Update(ctx, id, patch)
	if err != nil {
		return Document{}, err
	}
	metrics.IncVersionsWritten()
	telemetry.Info("documents.updated", map[string]any{
		"document_id": id,
		"version":     doc.Version,
	})
	return doc, nil
}

// Search returns documents matching keyword.
func (s *Service) Search(ctx context.Context, keyword string) ([]Document, error) {
	docs, err := s.Repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return Search(docs, keyword)
}

// RenderPDF renders a document sheet. It never touches the repository.
func (s *Service) RenderPDF(sheet render.Sheet) ([]byte, error) {
	err := validation.ValidateStruct(&sheet,
		validation.Field(&sheet.Title, validation.Required),
		validation.Field(&sheet.Summary, validation.Required),
	)
	if err != nil {
		return nil, validationError(err)
	}
	fn := s.Render
	if fn == nil {
		fn = render.RenderBytes
	}
	out, err := fn(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: render pdf: %w", ErrDependency, err)
	}
	return out, nil
}

package documents

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo. One mutex guards both
// collections and is held for the whole of every method.
type MemoryRepo struct {
	mu       sync.Mutex
	docs     []Document
	versions []Version
	now      func() time.Time
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{now: time.Now}
}

// WithClock overrides the clock used for dateModified.
func (r *MemoryRepo) WithClock(now func() time.Time) *MemoryRepo {
	r.now = now
	return r
}

func (r *MemoryRepo) today() string {
	return r.now().Format(dateLayout)
}

// Save stores a new document and its initial version record.
func (r *MemoryRepo) Save(ctx context.Context, doc Document, content string, summary *string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if doc.ID == 0 {
		doc.ID = len(r.docs) + 1
	}
	if doc.Version == 0 {
		doc.Version = 1
	}
	if r.indexOf(doc.ID) >= 0 {
		return Document{}, fmt.Errorf("%w: %d", ErrDuplicateID, doc.ID)
	}

	stored := cloneDocument(doc)
	r.docs = append(r.docs, stored)
	r.appendVersion(doc.ID, doc.Version, content, summary)
	return cloneDocument(stored), nil
}

// List returns all documents in insertion order.
func (r *MemoryRepo) List(ctx context.Context) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Document, 0, len(r.docs))
	for _, d := range r.docs {
		out = append(out, cloneDocument(d))
	}
	return out, nil
}

// ListArchived returns documents whose category is Archive.
func (r *MemoryRepo) ListArchived(ctx context.Context) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []Document{}
	for _, d := range r.docs {
		if d.Category == CategoryArchive {
			out = append(out, cloneDocument(d))
		}
	}
	return out, nil
}

// Archive moves a document to the Archive category.
func (r *MemoryRepo) Archive(ctx context.Context, id int) (Document, error) {
	return r.setCategory(ctx, id, CategoryArchive)
}

// Unarchive moves a document back to the Files category.
func (r *MemoryRepo) Unarchive(ctx context.Context, id int) (Document, error) {
	return r.setCategory(ctx, id, CategoryFiles)
}

func (r *MemoryRepo) setCategory(ctx context.Context, id int, category string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return Document{}, fmt.Errorf("%w: document %d", ErrNotFound, id)
	}
	r.docs[idx].Category = category
	return cloneDocument(r.docs[idx]), nil
}

// Delete removes a document and every version that belongs to it. Unknown ids
// are not an error.
func (r *MemoryRepo) Delete(ctx context.Context, id int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	docs := r.docs[:0]
	for _, d := range r.docs {
		if d.ID != id {
			docs = append(docs, d)
		}
	}
	r.docs = docs

	versions := r.versions[:0]
	for _, v := range r.versions {
		if v.DocumentID != id {
			versions = append(versions, v)
		}
	}
	r.versions = versions
	return nil
}

// ListVersions returns a document's versions in insertion order. A document
// with no versions is reported as not found.
func (r *MemoryRepo) ListVersions(ctx context.Context, id int) ([]Version, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Version
	for _, v := range r.versions {
		if v.DocumentID == id {
			out = append(out, cloneVersion(v))
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no versions for document %d", ErrNotFound, id)
	}
	return out, nil
}

// GetVersion returns one version of a document.
func (r *MemoryRepo) GetVersion(ctx context.Context, id, versionNumber int) (Version, error) {
	if err := ctx.Err(); err != nil {
		return Version{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, v := range r.versions {
		if v.DocumentID == id && v.VersionNumber == versionNumber {
			return cloneVersion(v), nil
		}
	}
	return Version{}, fmt.Errorf("%w: version %d of document %d", ErrNotFound, versionNumber, id)
}

// Update replaces a document with patch, bumps its version and appends a
// version record. Fields absent from patch are cleared; sourceKey is kept
// when the patch does not carry one.
func (r *MemoryRepo) Update(ctx context.Context, id int, patch Document) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return Document{}, fmt.Errorf("%w: document %d", ErrNotFound, id)
	}
	current := r.docs[idx]

	updated := cloneDocument(patch)
	updated.ID = id
	updated.Version = current.Version + 1
	if updated.SourceKey == nil {
		updated.SourceKey = current.SourceKey
	}
	r.docs[idx] = updated
	r.appendVersion(id, updated.Version, patch.Content, patch.Summary)
	return cloneDocument(updated), nil
}

func (r *MemoryRepo) indexOf(id int) int {
	for i := range r.docs {
		if r.docs[i].ID == id {
			return i
		}
	}
	return -1
}

// appendVersion must be called with mu held.
func (r *MemoryRepo) appendVersion(documentID, versionNumber int, content string, summary *string) {
	r.versions = append(r.versions, Version{
		ID:            len(r.versions) + 1,
		DocumentID:    documentID,
		VersionNumber: versionNumber,
		Content:       content,
		Summary:       cloneString(summary),
		DateModified:  r.today(),
	})
}

var _ Repo = (*MemoryRepo)(nil)

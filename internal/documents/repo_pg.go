package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	lockTables = `LOCK TABLE ocr_documents, ocr_document_versions IN EXCLUSIVE MODE`

	documentColumns = `id, title, content, summary, category, type, created_by, date_creation, version, source_key`
	versionColumns  = `id, document_id, version_number, content, summary, date_modified`
)

// PGRepo implements Repo using Postgres. Every write runs in a transaction
// that locks both tables, so concurrent processes see the same ordering as
// the in-memory store.
type PGRepo struct {
	DB  *sql.DB
	Now func() time.Time
}

func (r *PGRepo) today() string {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	return now().Format(dateLayout)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(s rowScanner) (Document, error) {
	var doc Document
	var summary, createdBy, sourceKey sql.NullString
	if err := s.Scan(
		&doc.ID,
		&doc.Title,
		&doc.Content,
		&summary,
		&doc.Category,
		&doc.Type,
		&createdBy,
		&doc.DateCreation,
		&doc.Version,
		&sourceKey,
	); err != nil {
		return Document{}, err
	}
	doc.Summary = fromNull(summary)
	doc.CreatedBy = fromNull(createdBy)
	doc.SourceKey = fromNull(sourceKey)
	return doc, nil
}

func scanVersion(s rowScanner) (Version, error) {
	var v Version
	var summary sql.NullString
	if err := s.Scan(&v.ID, &v.DocumentID, &v.VersionNumber, &v.Content, &summary, &v.DateModified); err != nil {
		return Version{}, err
	}
	v.Summary = fromNull(summary)
	return v, nil
}

func fromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func toNull(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// withLockedTx runs fn inside a transaction holding the table lock.
func (r *PGRepo) withLockedTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, lockTables); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Save inserts a document and its initial version.
func (r *PGRepo) Save(ctx context.Context, doc Document, content string, summary *string) (Document, error) {
	err := r.withLockedTx(ctx, func(tx *sql.Tx) error {
		if doc.ID == 0 {
			var count int
			if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM ocr_documents`).Scan(&count); err != nil {
				return err
			}
			doc.ID = count + 1
		}
		if doc.Version == 0 {
			doc.Version = 1
		}

		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM ocr_documents WHERE id = $1)`, doc.ID).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %d", ErrDuplicateID, doc.ID)
		}

		const insert = `
INSERT INTO ocr_documents (` + documentColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
		if _, err := tx.ExecContext(ctx, insert,
			doc.ID,
			doc.Title,
			doc.Content,
			toNull(doc.Summary),
			doc.Category,
			doc.Type,
			toNull(doc.CreatedBy),
			doc.DateCreation,
			doc.Version,
			toNull(doc.SourceKey),
		); err != nil {
			return err
		}
		return r.insertVersion(ctx, tx, doc.ID, doc.Version, content, summary)
	})
	if err != nil {
		return Document{}, err
	}
	return cloneDocument(doc), nil
}

func (r *PGRepo) insertVersion(ctx context.Context, tx *sql.Tx, documentID, versionNumber int, content string, summary *string) error {
	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM ocr_document_versions`).Scan(&count); err != nil {
		return err
	}
	const insert = `
INSERT INTO ocr_document_versions (` + versionColumns + `)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := tx.ExecContext(ctx, insert, count+1, documentID, versionNumber, content, toNull(summary), r.today())
	return err
}

// List returns all documents in insertion order.
func (r *PGRepo) List(ctx context.Context) ([]Document, error) {
	return r.queryDocuments(ctx, `SELECT `+documentColumns+` FROM ocr_documents ORDER BY seq`)
}

// ListArchived returns archived documents in insertion order.
func (r *PGRepo) ListArchived(ctx context.Context) ([]Document, error) {
	return r.queryDocuments(ctx, `SELECT `+documentColumns+` FROM ocr_documents WHERE category = $1 ORDER BY seq`, CategoryArchive)
}

func (r *PGRepo) queryDocuments(ctx context.Context, query string, args ...any) ([]Document, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// Archive moves a document to the Archive category.
func (r *PGRepo) Archive(ctx context.Context, id int) (Document, error) {
	return r.setCategory(ctx, id, CategoryArchive)
}

// Unarchive moves a document back to the Files category.
func (r *PGRepo) Unarchive(ctx context.Context, id int) (Document, error) {
	return r.setCategory(ctx, id, CategoryFiles)
}

func (r *PGRepo) setCategory(ctx context.Context, id int, category string) (Document, error) {
	var doc Document
	err := r.withLockedTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `UPDATE ocr_documents SET category = $1 WHERE id = $2 RETURNING `+documentColumns, category, id)
		var err error
		doc, err = scanDocument(row)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: document %d", ErrNotFound, id)
		}
		return err
	})
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Delete removes a document and its versions.
func (r *PGRepo) Delete(ctx context.Context, id int) error {
	return r.withLockedTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM ocr_document_versions WHERE document_id = $1`, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM ocr_documents WHERE id = $1`, id)
		return err
	})
}

// ListVersions returns a document's versions in insertion order.
func (r *PGRepo) ListVersions(ctx context.Context, id int) ([]Version, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+versionColumns+` FROM ocr_document_versions WHERE document_id = $1 ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no versions for document %d", ErrNotFound, id)
	}
	return out, nil
}

// GetVersion returns one version of a document.
func (r *PGRepo) GetVersion(ctx context.Context, id, versionNumber int) (Version, error) {
	const query = `SELECT ` + versionColumns + ` FROM ocr_document_versions
WHERE document_id = $1 AND version_number = $2
ORDER BY seq
LIMIT 1`
	v, err := scanVersion(r.DB.QueryRowContext(ctx, query, id, versionNumber))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Version{}, fmt.Errorf("%w: version %d of document %d", ErrNotFound, versionNumber, id)
		}
		return Version{}, err
	}
	return v, nil
}

// Update replaces a document, bumps its version and appends a version record.
func (r *PGRepo) Update(ctx context.Context, id int, patch Document) (Document, error) {
	updated := cloneDocument(patch)
	err := r.withLockedTx(ctx, func(tx *sql.Tx) error {
		var currentVersion int
		var sourceKey sql.NullString
		err := tx.QueryRowContext(ctx, `SELECT version, source_key FROM ocr_documents WHERE id = $1`, id).Scan(&currentVersion, &sourceKey)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: document %d", ErrNotFound, id)
			}
			return err
		}

		updated.ID = id
		updated.Version = currentVersion + 1
		if updated.SourceKey == nil {
			updated.SourceKey = fromNull(sourceKey)
		}

		const update = `
UPDATE ocr_documents
SET title = $2, content = $3, summary = $4, category = $5, type = $6, created_by = $7, date_creation = $8, version = $9, source_key = $10
WHERE id = $1`
		if _, err := tx.ExecContext(ctx, update,
			updated.ID,
			updated.Title,
			updated.Content,
			toNull(updated.Summary),
			updated.Category,
			updated.Type,
			toNull(updated.CreatedBy),
			updated.DateCreation,
			updated.Version,
			toNull(updated.SourceKey),
		); err != nil {
			return err
		}
		return r.insertVersion(ctx, tx, id, updated.Version, patch.Content, patch.Summary)
	})
	if err != nil {
		return Document{}, err
	}
	return updated, nil
}

var _ Repo = (*PGRepo)(nil)

package documents

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

var docCols = []string{"id", "title", "content", "summary", "category", "type", "created_by", "date_creation", "version", "source_key"}

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db, Now: fixedClock()}, mock
}

func expectLock(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectExec("LOCK TABLE ocr_documents, ocr_document_versions").
		WillReturnResult(sqlmock.NewResult(0, 0))
}

func TestPGRepoSaveAssignsIDAndWritesVersion(t *testing.T) {
	repo, mock := newMockRepo(t)
	summary := "short"

	expectLock(mock)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM ocr_documents")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO ocr_documents").
		WithArgs(3, "A", "hello world", "short", CategoryFiles, DefaultType, nil, "2024-03-09", 1, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM ocr_document_versions")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectExec("INSERT INTO ocr_document_versions").
		WithArgs(6, 3, 1, "hello world", "short", "2024-03-09").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	doc, err := repo.Save(context.Background(), Document{
		Title:        "A",
		Content:      "hello world",
		Summary:      &summary,
		Category:     CategoryFiles,
		Type:         DefaultType,
		DateCreation: "2024-03-09",
	}, "hello world", &summary)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if doc.ID != 3 || doc.Version != 1 {
		t.Fatalf("expected id=3 version=1, got id=%d version=%d", doc.ID, doc.Version)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoSaveDuplicateRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)

	expectLock(mock)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err := repo.Save(context.Background(), Document{ID: 4, Title: "dup"}, "", nil)
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoListScansNullableColumns(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows(docCols).
		AddRow(1, "A", "body", nil, CategoryFiles, DefaultType, nil, "2024-03-09", 1, nil).
		AddRow(2, "B", "", "sum", CategoryArchive, "CV", "bob", "2024-03-10", 3, "ocr/key")
	mock.ExpectQuery(regexp.QuoteMeta("FROM ocr_documents ORDER BY seq")).WillReturnRows(rows)

	docs, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
	if docs[0].Summary != nil || docs[0].CreatedBy != nil || docs[0].SourceKey != nil {
		t.Fatalf("expected nil optional fields, got %+v", docs[0])
	}
	if docs[1].Summary == nil || *docs[1].Summary != "sum" || *docs[1].CreatedBy != "bob" || *docs[1].SourceKey != "ocr/key" {
		t.Fatalf("unexpected optional fields: %+v", docs[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoListArchivedFiltersByCategory(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("WHERE category = ").
		WithArgs(CategoryArchive).
		WillReturnRows(sqlmock.NewRows(docCols))

	docs, err := repo.ListArchived(context.Background())
	if err != nil {
		t.Fatalf("ListArchived: %v", err)
	}
	if docs == nil || len(docs) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", docs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoArchive(t *testing.T) {
	repo, mock := newMockRepo(t)

	expectLock(mock)
	mock.ExpectQuery("UPDATE ocr_documents SET category").
		WithArgs(CategoryArchive, 1).
		WillReturnRows(sqlmock.NewRows(docCols).AddRow(1, "A", "", nil, CategoryArchive, "", nil, "", 2, nil))
	mock.ExpectCommit()

	doc, err := repo.Archive(context.Background(), 1)
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if doc.Category != CategoryArchive {
		t.Fatalf("expected Archive category, got %q", doc.Category)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUnarchiveUnknownID(t *testing.T) {
	repo, mock := newMockRepo(t)

	expectLock(mock)
	mock.ExpectQuery("UPDATE ocr_documents SET category").
		WithArgs(CategoryFiles, 9).
		WillReturnRows(sqlmock.NewRows(docCols))
	mock.ExpectRollback()

	if _, err := repo.Unarchive(context.Background(), 9); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoDeleteCascades(t *testing.T) {
	repo, mock := newMockRepo(t)

	expectLock(mock)
	mock.ExpectExec("DELETE FROM ocr_document_versions WHERE document_id").
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM ocr_documents WHERE id").
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.Delete(context.Background(), 1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoListVersionsEmptyIsNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("FROM ocr_document_versions WHERE document_id").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "document_id", "version_number", "content", "summary", "date_modified"}))

	if _, err := repo.ListVersions(context.Background(), 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoGetVersion(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("FROM ocr_document_versions").
		WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "document_id", "version_number", "content", "summary", "date_modified"}).
			AddRow(3, 1, 2, "v2 body", nil, "2024-03-09"))

	v, err := repo.GetVersion(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("GetVersion: %v", err)
	}
	if v.ID != 3 || v.Content != "v2 body" || v.Summary != nil {
		t.Fatalf("unexpected version: %+v", v)
	}

	mock.ExpectQuery("FROM ocr_document_versions").
		WithArgs(1, 9).
		WillReturnRows(sqlmock.NewRows([]string{"id", "document_id", "version_number", "content", "summary", "date_modified"}))
	if _, err := repo.GetVersion(context.Background(), 1, 9); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoUpdateBumpsVersion(t *testing.T) {
	repo, mock := newMockRepo(t)

	expectLock(mock)
	mock.ExpectQuery("SELECT version, source_key FROM ocr_documents").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"version", "source_key"}).AddRow(2, "ocr/orig.pdf"))
	mock.ExpectExec("UPDATE ocr_documents").
		WithArgs(1, "renamed", "new body", nil, "", "", nil, "", 3, "ocr/orig.pdf").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM ocr_document_versions")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec("INSERT INTO ocr_document_versions").
		WithArgs(3, 1, 3, "new body", nil, "2024-03-09").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	doc, err := repo.Update(context.Background(), 1, Document{Title: "renamed", Content: "new body"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if doc.Version != 3 || doc.ID != 1 {
		t.Fatalf("expected id=1 version=3, got %+v", doc)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdateUnknownID(t *testing.T) {
	repo, mock := newMockRepo(t)

	expectLock(mock)
	mock.ExpectQuery("SELECT version, source_key FROM ocr_documents").
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"version", "source_key"}))
	mock.ExpectRollback()

	if _, err := repo.Update(context.Background(), 5, Document{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

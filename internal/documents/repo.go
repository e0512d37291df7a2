package documents

import "context"

// Repo defines persistence operations for documents and their versions.
// Implementations serialize all operations so that a document and its version
// record are always written together.
type Repo interface {
	Save(ctx context.Context, doc Document, content string, summary *string) (Document, error)
	List(ctx context.Context) ([]Document, error)
	ListArchived(ctx context.Context) ([]Document, error)
	Archive(ctx context.Context, id int) (Document, error)
	Unarchive(ctx context.Context, id int) (Document, error)
	Delete(ctx context.Context, id int) error
	ListVersions(ctx context.Context, id int) ([]Version, error)
	GetVersion(ctx context.Context, id, versionNumber int) (Version, error)
	Update(ctx context.Context, id int, patch Document) (Document, error)
}

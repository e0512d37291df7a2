package documents

// Categories used by the archive lifecycle.
const (
	CategoryFiles   = "Files"
	CategoryArchive = "Archive"

	// DefaultType is assigned to documents created from an upload.
	DefaultType = "AUTRE"

	dateLayout = "2006-01-02"
)

// Document is an OCR'd document with its current content and summary.
type Document struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Content      string  `json:"content"`
	Summary      *string `json:"summary"`
	Category     string  `json:"category"`
	Type         string  `json:"type"`
	CreatedBy    *string `json:"createdBy"`
	DateCreation string  `json:"dateCreation"`
	Version      int     `json:"version"`
	SourceKey    *string `json:"sourceKey,omitempty"`
}

// Version is an immutable snapshot written on every save and update.
type Version struct {
	ID            int     `json:"id"`
	DocumentID    int     `json:"documentId"`
	VersionNumber int     `json:"versionNumber"`
	Content       string  `json:"content"`
	Summary       *string `json:"summary"`
	DateModified  string  `json:"dateModified"`
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneDocument(d Document) Document {
	d.Summary = cloneString(d.Summary)
	d.CreatedBy = cloneString(d.CreatedBy)
	d.SourceKey = cloneString(d.SourceKey)
	return d
}

func cloneVersion(v Version) Version {
	v.Summary = cloneString(v.Summary)
	return v
}

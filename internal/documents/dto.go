package documents

// documentRequest is the JSON body accepted by save and update. Absent
// optional fields decode to their zero value, which update treats as cleared.
type documentRequest struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Content      string  `json:"content"`
	Summary      *string `json:"summary"`
	Category     string  `json:"category"`
	Type         string  `json:"type"`
	CreatedBy    *string `json:"createdBy"`
	DateCreation string  `json:"dateCreation"`
	Version      int     `json:"version"`
}

func (r documentRequest) toDocument() Document {
	return Document{
		ID:           r.ID,
		Title:        r.Title,
		Content:      r.Content,
		Summary:      r.Summary,
		Category:     r.Category,
		Type:         r.Type,
		CreatedBy:    r.CreatedBy,
		DateCreation: r.DateCreation,
		Version:      r.Version,
	}
}

// SummarizeResponse is returned by the summarize endpoint.
type SummarizeResponse struct {
	Summary  string `json:"summary"`
	FullText string `json:"fullText"`
}

type messageResponse struct {
	Message string `json:"message"`
}

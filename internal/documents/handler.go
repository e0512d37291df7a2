package documents

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"ocrdocs-backend/internal/render"
	"ocrdocs-backend/internal/shared/server/respond"
	"ocrdocs-backend/internal/shared/telemetry"
	"ocrdocs-backend/internal/shared/util"
)

// multipart overhead allowed on top of the file itself
const formOverhead = 1 << 20

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches document routes to the router group. Extra
// middleware (rate limiting) applies to the summarize route only.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, summarizeMiddleware ...gin.HandlerFunc) {
	summarize := append(append([]gin.HandlerFunc{}, summarizeMiddleware...), h.summarize)
	rg.POST("/summarize", summarize...)
	rg.POST("/documents", h.save)
	rg.GET("/documents", h.list)
	rg.GET("/archived-documents", h.listArchived)
	rg.POST("/archive/:id", h.archive)
	rg.POST("/unarchive/:id", h.unarchive)
	rg.DELETE("/documents/:id", h.delete)
	rg.GET("/documents/:id/versions", h.listVersions)
	rg.GET("/documents/:id/version/:versionNumber", h.getVersion)
	rg.PUT("/documents/:id", h.update)
	rg.POST("/generate-pdf", h.generatePDF)
	rg.GET("/search", h.search)
}

// writeError maps service errors onto the standard error envelope.
func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrValidation):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrDuplicateID):
		respond.Error(c, http.StatusConflict, "duplicate_id", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, ErrDependency):
		respond.Error(c, http.StatusBadGateway, "dependency_error", err.Error(), nil)
	default:
		telemetry.Error("documents.internal_error", map[string]any{"error": err})
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}

func pathInt(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", name+" must be an integer", nil)
		return 0, false
	}
	return v, true
}

func documentID(c *gin.Context) (int, bool) {
	id, ok := pathInt(c, "id")
	if ok {
		c.Set("documentId", id)
	}
	return id, ok
}

func (h *Handler) summarize(c *gin.Context) {
	summaryLength := 0
	if v := c.Query("summary_length"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "summary_length must be an integer", nil)
			return
		}
		if parsed <= 0 {
			respond.Error(c, http.StatusBadRequest, "validation_error", "summary_length must be positive", nil)
			return
		}
		summaryLength = parsed
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes+formOverhead)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusBadRequest, "validation_error", "file exceeds 25MB limit", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	if fileHeader.Size > MaxUploadBytes {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file exceeds 25MB limit", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}

	res, err := h.Svc.SummarizeAndSave(c.Request.Context(), Upload{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	}, summaryLength)
	if err != nil {
		writeError(c, err, "failed to summarize document")
		return
	}
	c.Set("documentId", res.Document.ID)

	respond.JSON(c, http.StatusOK, SummarizeResponse{Summary: res.Summary, FullText: res.FullText})
}

func (h *Handler) save(c *gin.Context) {
	var req documentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	doc, err := h.Svc.Save(c.Request.Context(), req.toDocument())
	if err != nil {
		writeError(c, err, "failed to save document")
		return
	}
	c.Set("documentId", doc.ID)

	respond.JSON(c, http.StatusOK, doc)
}

func (h *Handler) list(c *gin.Context) {
	docs, err := h.Svc.List(c.Request.Context())
	if err != nil {
		writeError(c, err, "failed to list documents")
		return
	}
	respond.JSON(c, http.StatusOK, docs)
}

func (h *Handler) listArchived(c *gin.Context) {
	docs, err := h.Svc.ListArchived(c.Request.Context())
	if err != nil {
		writeError(c, err, "failed to list archived documents")
		return
	}
	respond.JSON(c, http.StatusOK, docs)
}

func (h *Handler) archive(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}
	doc, err := h.Svc.Archive(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "failed to archive document")
		return
	}
	respond.JSON(c, http.StatusOK, doc)
}

func (h *Handler) unarchive(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}
	doc, err := h.Svc.Unarchive(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "failed to unarchive document")
		return
	}
	respond.JSON(c, http.StatusOK, doc)
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}
	if err := h.Svc.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err, "failed to delete document")
		return
	}
	respond.JSON(c, http.StatusOK, messageResponse{Message: "Document deleted successfully"})
}

func (h *Handler) listVersions(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}
	versions, err := h.Svc.ListVersions(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "failed to list versions")
		return
	}
	respond.JSON(c, http.StatusOK, versions)
}

func (h *Handler) getVersion(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}
	versionNumber, ok := pathInt(c, "versionNumber")
	if !ok {
		return
	}
	version, err := h.Svc.GetVersion(c.Request.Context(), id, versionNumber)
	if err != nil {
		writeError(c, err, "failed to fetch version")
		return
	}
	respond.JSON(c, http.StatusOK, version)
}

func (h *Handler) update(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}
	var req documentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	doc, err := h.Svc.Update(c.Request.Context(), id, req.toDocument())
	if err != nil {
		writeError(c, err, "failed to update document")
		return
	}
	respond.JSON(c, http.StatusOK, doc)
}

func (h *Handler) generatePDF(c *gin.Context) {
	sheet := render.Sheet{
		Title:   c.PostForm("title"),
		Summary: c.PostForm("summary"),
		Content: c.PostForm("content"),
		Date:    c.PostForm("dateCreation"),
		Author:  c.PostForm("createdBy"),
	}
	out, err := h.Svc.RenderPDF(sheet)
	if err != nil {
		writeError(c, err, "failed to generate pdf")
		return
	}

	fileName, err := util.SanitizeFileName(sheet.Title)
	if err != nil {
		fileName = "document"
	}
	c.Header("Content-Disposition", `attachment; filename="`+strings.ReplaceAll(fileName, `"`, "")+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", out)
}

func (h *Handler) search(c *gin.Context) {
	docs, err := h.Svc.Search(c.Request.Context(), c.Query("keyword"))
	if err != nil {
		writeError(c, err, "failed to search documents")
		return
	}
	respond.JSON(c, http.StatusOK, docs)
}

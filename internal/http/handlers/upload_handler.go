// Report upload HTTP handlers.
//
//   - POST /uploads
//   - GET  /uploads
//   - GET  /uploads/{id}/analysis
//
// The upload endpoint is synchronous: one multipart file is staged, run
// through extraction and analysis, and the full result returned. Progress
// streaming belongs to interactive clients; over plain HTTP the caller gets
// the terminal status and retry count instead.
package handlers

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/healthsphere/go-health-backend/internal/domain"
	"github.com/healthsphere/go-health-backend/internal/llm"
	"github.com/healthsphere/go-health-backend/internal/ocr"
	"github.com/healthsphere/go-health-backend/internal/repo"
	"github.com/healthsphere/go-health-backend/internal/services"
	"github.com/healthsphere/go-health-backend/internal/utils"
)

// UploadResponse is the outcome of one processed report upload.
type UploadResponse struct {
	Upload     *domain.Upload             `json:"upload"`
	Record     *domain.ReportAnalysis     `json:"record"`
	Extraction *ocr.Result                `json:"extraction"`
	Quality    services.ExtractionQuality `json:"quality"`
	Narrative  *llm.ReportAnalysis        `json:"narrative,omitempty"`
	Retries    int                        `json:"retries"`
}

// ProcessUpload godoc
// @ID          processUpload
// @Summary     Upload a medical report
// @Description Accepts exactly one PDF or image, extracts its contents,
// @Description scores extraction quality and stores the analysis. Transport
// @Description failures against the extraction service are retried.
// @Tags        Uploads
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       file  formData  file  true  "Report file (pdf, png, jpeg, tiff, bmp)"
// @Success     201  {object}  handlers.UploadResponse
// @Failure     400  {object}  handlers.ErrorResponse  "No file or more than one file"
// @Failure     413  {object}  handlers.ErrorResponse  "File too large"
// @Failure     415  {object}  handlers.ErrorResponse  "Unsupported file type"
// @Failure     502  {object}  handlers.ErrorResponse  "Extraction service unavailable"
// @Router      /uploads [post]
func (h *Handlers) ProcessUpload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid multipart form")
		return
	}
	headers := form.File["file"]

	files := make([]services.StagedFile, 0, len(headers))
	for _, fh := range headers {
		staged, err := stagedFromHeader(fh)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable file part")
			return
		}
		files = append(files, *staged)
	}

	pipeline := h.Upload.NewPipeline(userID(c))
	if err := pipeline.Stage(files...); err != nil {
		failStage(c, err)
		return
	}

	result, err := pipeline.Process(c.Request.Context())
	switch {
	case errors.Is(err, context.Canceled):
		// Client went away mid-run; nothing useful to report.
		c.Status(http.StatusNoContent)
		return
	case errors.Is(err, ocr.ErrUnavailable):
		fail(c, http.StatusBadGateway, ErrCodeServiceDegraded, "extraction service unavailable")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "processing failed")
		return
	}

	_, _, retries := pipeline.Status()
	ok(c, http.StatusCreated, UploadResponse{
		Upload:     result.Upload,
		Record:     result.Record,
		Extraction: result.Extraction,
		Quality:    result.Quality,
		Narrative:  result.Narrative,
		Retries:    retries,
	})
}

// failStage maps staging sentinel errors onto HTTP statuses.
func failStage(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNoFileStaged):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrMultipleFiles):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrUnsupportedFile):
		fail(c, http.StatusUnsupportedMediaType, ErrCodeUnsupportedFile, err.Error())
	case errors.Is(err, services.ErrFileTooLarge):
		fail(c, http.StatusRequestEntityTooLarge, ErrCodeFileTooLarge, err.Error())
	default:
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	}
}

// stagedFromHeader reads one multipart part into a staged file.
func stagedFromHeader(fh *multipart.FileHeader) (*services.StagedFile, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &services.StagedFile{
		Name: fh.Filename,
		MIME: fh.Header.Get("Content-Type"),
		Data: data,
	}, nil
}

// ListUploads godoc
// @ID          listUploads
// @Summary     List uploads
// @Tags        Uploads
// @Produce     json
// @Security    BearerAuth
// @Param       limit  query  int  false  "Maximum records"  default(20)
// @Success     200  {array}   domain.Upload
// @Failure     401  {object}  handlers.ErrorResponse
// @Router      /uploads [get]
func (h *Handlers) ListUploads(c *gin.Context) {
	limit := utils.AtoiDefault(c.Query("limit"), 20)
	uploads, err := repo.ListUploads(c.Request.Context(), h.Upload.DB, userID(c), limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "listing uploads failed")
		return
	}
	ok(c, http.StatusOK, uploads)
}

// GetUploadAnalysis godoc
// @ID          uploadAnalysis
// @Summary     Stored analysis for an upload
// @Tags        Uploads
// @Produce     json
// @Security    BearerAuth
// @Param       id  path  string  true  "Upload ID"
// @Success     200  {object}  domain.ReportAnalysis
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /uploads/{id}/analysis [get]
func (h *Handlers) GetUploadAnalysis(c *gin.Context) {
	record, err := repo.GetReportAnalysis(c.Request.Context(), h.Upload.DB, c.Param("id"), userID(c))
	if errors.Is(err, repo.ErrNotFound) {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "analysis not found")
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "lookup failed")
		return
	}
	ok(c, http.StatusOK, record)
}

package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/sakif/resource-hub/internal/apperror"
	"github.com/sakif/resource-hub/internal/auth"
	"github.com/sakif/resource-hub/internal/model"
	"github.com/sakif/resource-hub/internal/repository"
	"github.com/sakif/resource-hub/internal/service"
)

// DefaultMaxUploadBytes bounds a single uploaded file when no limit is configured.
const DefaultMaxUploadBytes = 50 << 20

// Catalog is implemented by *service.ResourceCatalog.
type Catalog interface {
	List(ctx context.Context, q service.ListQuery) ([]model.Resource, error)
	Upload(ctx context.Context, originalName, contentType string, r io.Reader) (*service.UploadResult, error)
	CreateMetadata(ctx context.Context, in service.ResourceInput, owner string) (*model.Resource, error)
	Update(ctx context.Context, id, requester string, patch repository.ResourcePatch) error
	Delete(ctx context.Context, id, requester string) error
	Download(ctx context.Context, filename, requester string) (*service.Download, error)
}

// ResourceHandler serves the resource catalog and file transfer endpoints.
type ResourceHandler struct {
	catalog   Catalog
	maxUpload int64
	logger    *slog.Logger
}

func NewResourceHandler(catalog Catalog, maxUpload int64, logger *slog.Logger) *ResourceHandler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	return &ResourceHandler{catalog: catalog, maxUpload: maxUpload, logger: logger}
}

// HandleList returns resources matching the query filters.
//
// HTTP: GET /api/resources?course=&subject=&semester=&year=&privacy=&search=
//
// course and subject accept a comma-separated set of values.
func (h *ResourceHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	semester, err := optionalInt(query.Get("semester"), "semester")
	if err != nil {
		writeError(w, err)
		return
	}
	year, err := optionalInt(query.Get("year"), "year")
	if err != nil {
		writeError(w, err)
		return
	}

	resources, err := h.catalog.List(r.Context(), service.ListQuery{
		Course:   query.Get("course"),
		Subject:  query.Get("subject"),
		Semester: semester,
		Year:     year,
		Privacy:  query.Get("privacy"),
		Search:   query.Get("search"),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resources)
}

func optionalInt(raw, field string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, apperror.ValidationFailed(field, field+" must be an integer")
	}
	return &n, nil
}

type createResourceRequest struct {
	Title       string             `json:"title"`
	Subject     *string            `json:"subject"`
	Course      string             `json:"course"`
	Type        model.ResourceType `json:"type"`
	Author      string             `json:"author"`
	Downloads   int                `json:"downloads"`
	Date        string             `json:"date"`
	Privacy     model.Privacy      `json:"privacy"`
	Filename    *string            `json:"filename"`
	Semester    *int               `json:"semester"`
	Year        *int               `json:"year"`
	Description *string            `json:"description"`
	College     *string            `json:"college"`
}

// HandleCreate stores resource metadata, optionally linking an uploaded file.
//
// HTTP: POST /api/resources
// Auth: optional; an authenticated caller becomes the owner.
func (h *ResourceHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createResourceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	owner, _ := auth.SubjectFromContext(r.Context())
	res, err := h.catalog.CreateMetadata(r.Context(), service.ResourceInput{
		Title:       req.Title,
		Subject:     req.Subject,
		Course:      req.Course,
		Type:        req.Type,
		Author:      req.Author,
		Downloads:   req.Downloads,
		Date:        req.Date,
		Privacy:     req.Privacy,
		Filename:    req.Filename,
		Semester:    req.Semester,
		Year:        req.Year,
		Description: req.Description,
		College:     req.College,
	}, owner)
	if err != nil {
		logFailure(h.logger, "creating resource failed", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

type uploadResponse struct {
	Message     string `json:"message"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Title       string `json:"title,omitempty"`
	Course      string `json:"course,omitempty"`
	Type        string `json:"type,omitempty"`
}

// HandleUpload stores the multipart "file" part and returns its generated
// filename. The descriptive form fields are echoed back; the resource record
// itself is created by a later POST /api/resources that names the file.
//
// HTTP: POST /api/upload (multipart/form-data)
func (h *ResourceHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	// Leave room for the other form fields on top of the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+maxJSONBody)

	reader, err := r.MultipartReader()
	if err != nil {
		writeError(w, apperror.ValidationFailed("file", "expected a multipart/form-data body"))
		return
	}

	fields := make(map[string]string)
	var result *service.UploadResult

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			writeError(w, uploadReadError(err, h.maxUpload))
			return
		}

		if part.FormName() != "file" || part.FileName() == "" {
			value, err := io.ReadAll(io.LimitReader(part, 4096))
			part.Close()
			if err != nil {
				writeError(w, uploadReadError(err, h.maxUpload))
				return
			}
			fields[part.FormName()] = string(value)
			continue
		}

		if result != nil {
			part.Close()
			writeError(w, apperror.ValidationFailed("file", "only one file may be uploaded per request"))
			return
		}

		body := &limitedPart{r: part, remaining: h.maxUpload}
		result, err = h.catalog.Upload(r.Context(), part.FileName(), partContentType(part.Header.Get("Content-Type")), body)
		part.Close()
		if body.exceeded {
			writeError(w, uploadTooLarge(h.maxUpload))
			return
		}
		if err != nil {
			logFailure(h.logger, "upload failed", err)
			writeError(w, err)
			return
		}
	}

	if result == nil {
		writeError(w, apperror.ValidationFailed("file", "file is required"))
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{
		Message:     "File uploaded successfully",
		Filename:    result.Filename,
		ContentType: result.ContentType,
		Size:        result.Size,
		Title:       fields["title"],
		Course:      fields["course"],
		Type:        fields["type"],
	})
}

// partContentType drops a generic or unparsable client-supplied type so the
// blob store can detect one instead.
func partContentType(raw string) string {
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil || mediaType == "application/octet-stream" {
		return ""
	}
	return raw
}

// limitedPart fails the read once more than remaining bytes have been seen,
// so an oversized file is never stored in full.
type limitedPart struct {
	r         io.Reader
	remaining int64
	exceeded  bool
}

func (l *limitedPart) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		l.exceeded = true
		return 0, errUploadTooLarge
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		l.exceeded = true
		return n, errUploadTooLarge
	}
	return n, err
}

var errUploadTooLarge = errors.New("upload exceeds size limit")

func uploadTooLarge(limit int64) error {
	return apperror.ValidationFailed("file", fmt.Sprintf("file exceeds %d bytes", limit))
}

func uploadReadError(err error, limit int64) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return uploadTooLarge(limit)
	}
	return apperror.ValidationFailed("file", "malformed multipart body")
}

type updateResourceRequest struct {
	Title       *string             `json:"title"`
	Subject     *string             `json:"subject"`
	Course      *string             `json:"course"`
	Type        *model.ResourceType `json:"type"`
	Author      *string             `json:"author"`
	Downloads   *int                `json:"downloads"`
	Date        *string             `json:"date"`
	Privacy     *model.Privacy      `json:"privacy"`
	Filename    *string             `json:"filename"`
	Semester    *int                `json:"semester"`
	Year        *int                `json:"year"`
	Description *string             `json:"description"`
	College     *string             `json:"college"`
}

// HandleUpdate applies a partial update; absent keys are left unchanged.
//
// HTTP: PUT /api/resources/{id}
// Auth: optional; a resource with an owner can only be changed by that owner
// (403 otherwise).
func (h *ResourceHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, apperror.ValidationFailed("id", "resource id is required"))
		return
	}

	var req updateResourceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	requester, _ := auth.SubjectFromContext(r.Context())
	err := h.catalog.Update(r.Context(), id, requester, repository.ResourcePatch{
		Title:       req.Title,
		Subject:     req.Subject,
		Course:      req.Course,
		Type:        req.Type,
		Author:      req.Author,
		Downloads:   req.Downloads,
		Date:        req.Date,
		Privacy:     req.Privacy,
		Filename:    req.Filename,
		Semester:    req.Semester,
		Year:        req.Year,
		Description: req.Description,
		College:     req.College,
	})
	if err != nil {
		logFailure(h.logger, "updating resource failed", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Resource updated successfully"})
}

// HandleDelete removes a resource and its file. Deleting an unknown id succeeds.
//
// HTTP: DELETE /api/resources/{id}
// Auth: optional; owner-only for owned resources, like HandleUpdate.
func (h *ResourceHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, apperror.ValidationFailed("id", "resource id is required"))
		return
	}

	requester, _ := auth.SubjectFromContext(r.Context())
	if err := h.catalog.Delete(r.Context(), id, requester); err != nil {
		logFailure(h.logger, "deleting resource failed", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Resource deleted successfully"})
}

// HandleDownload streams a stored file.
//
// HTTP: GET /api/download/{filename}
// Auth: optional; required only for private resources, which are served to
// their owner alone.
func (h *ResourceHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")
	requester, _ := auth.SubjectFromContext(r.Context())

	dl, err := h.catalog.Download(r.Context(), filename, requester)
	if err != nil {
		logFailure(h.logger, "download failed", err)
		writeError(w, err)
		return
	}
	defer dl.Body.Close()

	w.Header().Set("Content-Type", dl.ContentType)
	if dl.Size >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(dl.Size, 10))
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": dl.Filename}))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, dl.Body); err != nil {
		// The status line is gone already; the client sees a truncated body.
		h.logger.Warn("streaming download interrupted",
			slog.String("filename", dl.Filename),
			slog.String("error", err.Error()),
		)
	}
}

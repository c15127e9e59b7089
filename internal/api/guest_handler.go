package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/measure-api/internal/api/shared"
	"github.com/phrazzld/measure-api/internal/domain"
	"github.com/phrazzld/measure-api/internal/service"
)

// Multipart field names of the guest upload form.
const (
	formFieldPhotos       = "photos"
	formFieldPhotosArray  = "photos[]"
	formFieldContactEmail = "contact_email"
	formFieldContactPhone = "contact_phone"

	// multipartMemory is the part of a form kept in memory, the rest
	// spills to temporary files.
	multipartMemory = 32 << 20

	// formOverhead covers the non-file fields and part headers of a form.
	formOverhead = 1 << 20
)

// GuestHandler serves the tokenized guest upload link.
type GuestHandler struct {
	uploadService service.UploadService
	config        service.UploadConfig
	logger        *slog.Logger
}

// NewGuestHandler creates a new GuestHandler. Zero limits fall back to the
// upload service defaults.
func NewGuestHandler(uploadService service.UploadService, config service.UploadConfig, logger *slog.Logger) *GuestHandler {
	if config.MaxFiles <= 0 {
		config.MaxFiles = service.DefaultMaxFiles
	}
	if config.MaxFileSize <= 0 {
		config.MaxFileSize = service.DefaultMaxFileSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &GuestHandler{
		uploadService: uploadService,
		config:        config,
		logger:        logger.With("component", "guest_handler"),
	}
}

// UploadPhotos handles POST /api/guest/{token}/photos
func (h *GuestHandler) UploadPhotos(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	// One byte past the per file limit lets the service report which file
	// is too large instead of the parser failing on the whole body.
	maxBody := int64(h.config.MaxFiles)*(h.config.MaxFileSize+1) + formOverhead
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			shared.RespondWithErrorAndLog(w, r, http.StatusRequestEntityTooLarge,
				"Upload exceeds the maximum size", err)
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid multipart form", err)
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	headers := r.MultipartForm.File[formFieldPhotos]
	headers = append(headers, r.MultipartForm.File[formFieldPhotosArray]...)
	if len(headers) > h.config.MaxFiles {
		HandleAPIError(w, r, fmt.Errorf("%w: got %d", service.ErrTooManyFiles, len(headers)), "")
		return
	}

	files := make([]service.UploadFile, 0, len(headers))
	for _, header := range headers {
		file, err := h.readFile(header)
		if err != nil {
			HandleAPIError(w, r, err, "Failed to read uploaded file")
			return
		}
		files = append(files, file)
	}

	contact := service.ContactInfo{
		Email: r.FormValue(formFieldContactEmail),
		Phone: r.FormValue(formFieldContactPhone),
	}

	result, err := h.uploadService.GuestUpload(r.Context(), token, files, contact)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to upload photos")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, result)
}

// CheckToken handles GET /api/guest/{token}/check
func (h *GuestHandler) CheckToken(w http.ResponseWriter, r *http.Request) {
	status, err := h.uploadService.CheckGuestToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to check guest link")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, status)
}

// readFile reads at most MaxFileSize+1 bytes of an uploaded part.
func (h *GuestHandler) readFile(header *multipart.FileHeader) (service.UploadFile, error) {
	if header.Size > h.config.MaxFileSize {
		return service.UploadFile{}, fmt.Errorf("photo %s: %w: %d bytes", header.Filename, service.ErrFileTooLarge, header.Size)
	}

	f, err := header.Open()
	if err != nil {
		return service.UploadFile{}, fmt.Errorf("%w: cannot open %s: %v", domain.ErrValidation, header.Filename, err)
	}
	defer func() {
		_ = f.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(f, h.config.MaxFileSize+1))
	if err != nil {
		return service.UploadFile{}, fmt.Errorf("read %s: %w", header.Filename, err)
	}

	return service.UploadFile{Name: header.Filename, Data: data}, nil
}

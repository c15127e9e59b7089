package api

import (
	"net/http"

	"github.com/phrazzld/measure-api/internal/api/shared"
	"github.com/phrazzld/measure-api/internal/service"
)

// PhotoHandler handles owner actions on uploaded photos.
type PhotoHandler struct {
	uploadService service.UploadService
}

// NewPhotoHandler creates a new PhotoHandler.
func NewPhotoHandler(uploadService service.UploadService) *PhotoHandler {
	return &PhotoHandler{uploadService: uploadService}
}

// Process handles POST /api/tasks/{taskID}/photos/{photoID}/process
func (h *PhotoHandler) Process(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathUUIDs(w, r, "taskID", "photoID")
	if !ok {
		return
	}

	photo, err := h.uploadService.Reprocess(r.Context(), ids[0], ids[1])
	if err != nil {
		HandleAPIError(w, r, err, "Failed to reprocess photo")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, photo)
}

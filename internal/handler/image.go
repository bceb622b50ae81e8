// Package handler implements the HTTP surface of the engine.
//
// This file implements the image upload endpoints.
package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/DukeRupert/clerkly/internal/domain"
	"github.com/DukeRupert/clerkly/internal/service"
	"github.com/google/uuid"
)

// maxUploadBytes caps a single multipart upload at 10 MB.
const maxUploadBytes = 10 << 20

// ImageHandler handles inspection photo endpoints.
type ImageHandler struct {
	images service.ImageService
	logger *slog.Logger
}

// NewImageHandler creates a new ImageHandler.
func NewImageHandler(images service.ImageService, logger *slog.Logger) *ImageHandler {
	return &ImageHandler{
		images: images,
		logger: logger,
	}
}

// RegisterRoutes registers all image routes on the mux.
func (h *ImageHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/reports/{id}/rooms/{roomID}/images", h.Upload)
	mux.HandleFunc("DELETE /api/images/{id}", h.Delete)
}

// Upload handles POST /api/reports/{id}/rooms/{roomID}/images.
//
// The body is multipart form data with a "file" part and an optional
// "componentId" value that narrows the photo to a single component.
func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	reportID, ok := pathUUID(w, r, h.logger, "id")
	if !ok {
		return
	}
	roomID, ok := pathUUID(w, r, h.logger, "roomID")
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "invalid multipart upload"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "missing file part"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		InternalErrorResponse(w, r, h.logger, err)
		return
	}

	componentID := uuid.Nil
	if v := r.FormValue("componentId"); v != "" {
		componentID, err = uuid.Parse(v)
		if err != nil {
			ErrorResponse(w, r, h.logger, domain.Invalid("", "invalid componentId"))
			return
		}
	}

	image, err := h.images.Add(r.Context(), service.AddImageParams{
		ReportID:    reportID,
		RoomID:      roomID,
		ComponentID: componentID,
		Data:        data,
		ContentType: header.Header.Get("Content-Type"),
		Filename:    header.Filename,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":         image.ID,
		"url":        image.URL,
		"capturedAt": image.CapturedAt,
	})
}

// Delete handles DELETE /api/images/{id}.
func (h *ImageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, h.logger, "id")
	if !ok {
		return
	}

	if err := h.images.Delete(r.Context(), id); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

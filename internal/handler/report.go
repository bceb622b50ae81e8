// Package handler implements the HTTP surface of the engine.
//
// This file implements the report endpoints. Room trees travel over the API
// in the same wire form the persisted document uses, so clients and the
// report_info column share one schema.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/DukeRupert/clerkly/internal/document"
	"github.com/DukeRupert/clerkly/internal/domain"
	"github.com/DukeRupert/clerkly/internal/service"
	"github.com/google/uuid"
)

// maxBodyBytes caps JSON request bodies at 5 MB. Image uploads have their
// own limit.
const maxBodyBytes = 5 << 20

// ReportHandler handles report endpoints.
type ReportHandler struct {
	reports    service.ReportService
	properties service.PropertyService
	logger     *slog.Logger
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reports service.ReportService, properties service.PropertyService, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{
		reports:    reports,
		properties: properties,
		logger:     logger,
	}
}

// RegisterRoutes registers all report routes on the mux.
func (h *ReportHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/properties", h.CreateProperty)
	mux.HandleFunc("GET /api/properties/{propertyID}/reports", h.List)

	mux.HandleFunc("POST /api/reports", h.Create)
	mux.HandleFunc("GET /api/reports/{id}", h.Get)
	mux.HandleFunc("PUT /api/reports/{id}", h.Save)
	mux.HandleFunc("POST /api/reports/{id}/complete", h.Complete)
	mux.HandleFunc("PATCH /api/reports/{id}/rooms/{roomID}", h.UpdateRoom)
	mux.HandleFunc("DELETE /api/reports/{id}", h.Delete)
}

// =============================================================================
// Wire Types
// =============================================================================

// reportResponse is the JSON shape of a report.
type reportResponse struct {
	ID            uuid.UUID       `json:"id"`
	PropertyID    uuid.UUID       `json:"propertyId"`
	MainRoomID    uuid.UUID       `json:"mainRoomId"`
	Status        string          `json:"status"`
	Rooms         []document.Room `json:"rooms"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	CompletedAt   *time.Time      `json:"completedAt,omitempty"`
	Clerk         string          `json:"clerk,omitempty"`
	InventoryType string          `json:"inventoryType,omitempty"`
	TenantPresent bool            `json:"tenantPresent"`
	TenantName    string          `json:"tenantName,omitempty"`
	FileURL       string          `json:"fileUrl,omitempty"`
	ReportType    string          `json:"reportType,omitempty"`
	Address       string          `json:"address,omitempty"`
}

func toReportResponse(report *domain.Report, property *domain.Property) reportResponse {
	rooms := make([]document.Room, 0, len(report.Rooms))
	for i := range report.Rooms {
		rooms = append(rooms, document.RoomToWire(&report.Rooms[i]))
	}

	resp := reportResponse{
		ID:            report.ID,
		PropertyID:    report.PropertyID,
		MainRoomID:    report.MainRoomID,
		Status:        report.Status.String(),
		Rooms:         rooms,
		CreatedAt:     report.CreatedAt,
		UpdatedAt:     report.UpdatedAt,
		CompletedAt:   report.CompletedAt,
		Clerk:         report.Clerk,
		InventoryType: report.InventoryType,
		TenantPresent: report.TenantPresent,
		TenantName:    report.TenantName,
		FileURL:       report.FileURL,
		ReportType:    report.ReportType,
	}
	if property != nil {
		resp.Address = property.DisplayAddress()
	}
	return resp
}

// saveReportRequest carries the client's working copy of a report. Rooms use
// the document wire form; the main room is matched by ID.
type saveReportRequest struct {
	Rooms         []document.Room `json:"rooms"`
	Clerk         *string         `json:"clerk"`
	InventoryType *string         `json:"inventoryType"`
	TenantPresent *bool           `json:"tenantPresent"`
	TenantName    *string         `json:"tenantName"`
	ReportType    *string         `json:"reportType"`
}

// =============================================================================
// Property Endpoints
// =============================================================================

// CreateProperty handles POST /api/properties.
func (h *ReportHandler) CreateProperty(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AddressLine1 string `json:"addressLine1"`
		AddressLine2 string `json:"addressLine2"`
		City         string `json:"city"`
		Postcode     string `json:"postcode"`
	}
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	property, err := h.properties.Create(r.Context(), domain.CreatePropertyParams{
		AddressLine1: req.AddressLine1,
		AddressLine2: req.AddressLine2,
		City:         req.City,
		Postcode:     req.Postcode,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":      property.ID,
		"address": property.DisplayAddress(),
	})
}

// =============================================================================
// Report Endpoints
// =============================================================================

// Create handles POST /api/reports.
func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PropertyID    uuid.UUID `json:"propertyId"`
		MainRoomType  string    `json:"mainRoomType"`
		Clerk         string    `json:"clerk"`
		InventoryType string    `json:"inventoryType"`
		TenantPresent bool      `json:"tenantPresent"`
		TenantName    string    `json:"tenantName"`
		ReportType    string    `json:"reportType"`
	}
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	report, err := h.reports.Create(r.Context(), domain.CreateReportParams{
		PropertyID:    req.PropertyID,
		MainRoomType:  req.MainRoomType,
		Clerk:         req.Clerk,
		InventoryType: req.InventoryType,
		TenantPresent: req.TenantPresent,
		TenantName:    req.TenantName,
		ReportType:    req.ReportType,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, toReportResponse(report, nil))
}

// Get handles GET /api/reports/{id}.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, h.logger, "id")
	if !ok {
		return
	}

	report, property, err := h.reports.Get(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toReportResponse(report, property))
}

// List handles GET /api/properties/{propertyID}/reports.
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := pathUUID(w, r, h.logger, "propertyID")
	if !ok {
		return
	}

	reports, err := h.reports.List(r.Context(), propertyID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]reportResponse, 0, len(reports))
	for _, report := range reports {
		out = append(out, toReportResponse(report, nil))
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": out})
}

// Save handles PUT /api/reports/{id}: persist the client's working copy of
// the full room tree.
func (h *ReportHandler) Save(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, false)
}

// Complete handles POST /api/reports/{id}/complete: persist and finalize.
func (h *ReportHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, true)
}

func (h *ReportHandler) save(w http.ResponseWriter, r *http.Request, complete bool) {
	id, ok := pathUUID(w, r, h.logger, "id")
	if !ok {
		return
	}

	var req saveReportRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	// Start from the current state so absent metadata fields survive.
	report, property, err := h.reports.Get(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	applySaveRequest(report, req)

	if complete {
		_, err = h.reports.Complete(r.Context(), report)
	} else {
		_, err = h.reports.Save(r.Context(), report)
	}
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toReportResponse(report, property))
}

// applySaveRequest folds the request's fields onto the loaded report.
func applySaveRequest(report *domain.Report, req saveReportRequest) {
	if req.Rooms != nil {
		rooms := make([]domain.Room, 0, len(req.Rooms))
		for i := range req.Rooms {
			rooms = append(rooms, document.RoomToDomain(&req.Rooms[i]))
		}
		report.Rooms = rooms
	}
	if req.Clerk != nil {
		report.Clerk = *req.Clerk
	}
	if req.InventoryType != nil {
		report.InventoryType = *req.InventoryType
	}
	if req.TenantPresent != nil {
		report.TenantPresent = *req.TenantPresent
	}
	if req.TenantName != nil {
		report.TenantName = *req.TenantName
	}
	if req.ReportType != nil {
		report.ReportType = *req.ReportType
	}
}

// UpdateRoom handles PATCH /api/reports/{id}/rooms/{roomID}: fold a partial
// update for one room into the persisted document.
func (h *ReportHandler) UpdateRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, h.logger, "id")
	if !ok {
		return
	}
	roomID, ok := pathUUID(w, r, h.logger, "roomID")
	if !ok {
		return
	}

	var req struct {
		Name             *string               `json:"name"`
		GeneralCondition *string               `json:"generalCondition"`
		Components       *[]document.Component `json:"components"`
		Sections         *[]document.Section   `json:"sections"`
		Order            *int                  `json:"order"`
	}
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	upd := domain.RoomUpdate{
		Name:             req.Name,
		GeneralCondition: req.GeneralCondition,
		Order:            req.Order,
	}
	if req.Components != nil {
		components := document.ComponentsToDomain(*req.Components)
		upd.Components = &components
	}
	if req.Sections != nil {
		sections := document.SectionsToDomain(*req.Sections)
		upd.Sections = &sections
	}

	room, err := h.reports.UpdateRoom(r.Context(), id, roomID, upd)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, document.RoomToWire(room))
}

// Delete handles DELETE /api/reports/{id}.
func (h *ReportHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, h.logger, "id")
	if !ok {
		return
	}

	if err := h.reports.Delete(r.Context(), id); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Helpers
// =============================================================================

// decodeJSON decodes a JSON request body, writing an error response and
// returning false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, logger *slog.Logger, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		ErrorResponse(w, r, logger, domain.Wrap(err, domain.EINVALID, "", "invalid JSON request body"))
		return false
	}
	return true
}

// pathUUID parses a UUID path value, writing an error response and returning
// false on failure.
func pathUUID(w http.ResponseWriter, r *http.Request, logger *slog.Logger, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		ErrorResponse(w, r, logger, domain.Invalid("", "invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

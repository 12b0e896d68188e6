package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"challan-backend/internal/middleware"
	"challan-backend/internal/models"
	"challan-backend/pkg/utils"
)

const (
	maxRequestBytes = 1 << 20
	defaultHistory  = 20
	maxHistory      = 100
)

// ChallanPipeline is the part of the challan service the API exposes
type ChallanPipeline interface {
	Generate(ctx context.Context, studentID string, req models.GenerateChallanRequest) (*models.SaveResult, error)
	Preview(ctx context.Context, req models.GenerateChallanRequest) (*models.ChallanDocument, error)
	History(ctx context.Context, studentID string, limit int) ([]models.ChallanLog, error)
}

// NotificationSocket upgrades a request into a notification stream
type NotificationSocket interface {
	ServeWS(w http.ResponseWriter, r *http.Request, studentID string)
}

type ChallanHandler struct {
	service ChallanPipeline
	hub     NotificationSocket
}

func NewChallanHandler(service ChallanPipeline, hub NotificationSocket) *ChallanHandler {
	return &ChallanHandler{service: service, hub: hub}
}

// Generate handles POST /api/challans
func (h *ChallanHandler) Generate(w http.ResponseWriter, r *http.Request) {
	studentID, ok := middleware.GetStudentIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	res, err := h.service.Generate(r.Context(), studentID, req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, res)
}

// Preview handles POST /api/challans/preview and streams the PDF back
func (h *ChallanHandler) Preview(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	doc, err := h.service.Preview(r.Context(), req)
	if err != nil {
		utils.Error(w, err)
		return
	}

	w.Header().Set("Content-Type", doc.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Bytes)))
	w.WriteHeader(http.StatusOK)
	w.Write(doc.Bytes)
}

// History handles GET /api/challans/history?limit=n
func (h *ChallanHandler) History(w http.ResponseWriter, r *http.Request) {
	studentID, ok := middleware.GetStudentIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	limit := defaultHistory
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			utils.BadRequest(w, "limit must be a positive number")
			return
		}
		limit = min(n, maxHistory)
	}

	logs, err := h.service.History(r.Context(), studentID, limit)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, logs)
}

// Notifications handles GET /ws/notifications
func (h *ChallanHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	studentID, ok := middleware.GetStudentIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	h.hub.ServeWS(w, r, studentID)
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (models.GenerateChallanRequest, bool) {
	var req models.GenerateChallanRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "Invalid request body")
		return req, false
	}
	return req, true
}

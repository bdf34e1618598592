package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"factory-backend/internal/services"
	"factory-backend/pkg/utils"
)

type ReportHandler struct {
	Service *services.ReportService
}

func NewReportHandler(service *services.ReportService) *ReportHandler {
	return &ReportHandler{Service: service}
}

// GetSchedulePDF handles GET /api/plans/{id}/schedule.pdf
// Query params: archive=true also uploads the sheet; the object key is
// returned in the X-Archive-Key header.
func (h *ReportHandler) GetSchedulePDF(w http.ResponseWriter, r *http.Request) {
	planID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	data, err := h.Service.GetScheduleReportData(ctx, planID)
	if err != nil {
		utils.Error(w, err)
		return
	}
	pdf, err := h.Service.GenerateSchedulePDF(data)
	if err != nil {
		utils.Error(w, err)
		return
	}

	if r.URL.Query().Get("archive") == "true" {
		key, err := h.Service.ArchiveSchedulePDF(ctx, data, pdf)
		if err != nil {
			utils.Error(w, err)
			return
		}
		log.Printf("[Reports] Archived schedule of plan %d as %s", planID, key)
		w.Header().Set("X-Archive-Key", key)
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", services.ScheduleFileName(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

package handlers

import (
	"net/http"

	"factory-backend/internal/models"
	"factory-backend/internal/services"
	"factory-backend/pkg/utils"
)

// ProductionHandler handles operator production reports
type ProductionHandler struct {
	service *services.ProductionService
}

func NewProductionHandler(service *services.ProductionService) *ProductionHandler {
	return &ProductionHandler{service: service}
}

// RecordProduction handles POST /api/plans/{id}/production
func (h *ProductionHandler) RecordProduction(w http.ResponseWriter, r *http.Request) {
	planID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.RecordProductionRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.service.RecordProduction(r.Context(), planID, &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, result)
}

// ListRecords handles GET /api/plans/{id}/production
func (h *ProductionHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	planID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	records, err := h.service.ListProductionRecords(r.Context(), planID)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, records)
}

// DeleteRecord handles DELETE /api/production/{id} (admin only)
func (h *ProductionHandler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteProductionRecord(r.Context(), id); err != nil {
		utils.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

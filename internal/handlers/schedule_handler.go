package handlers

import (
	"net/http"

	"factory-backend/internal/models"
	"factory-backend/internal/services"
	"factory-backend/pkg/utils"
)

// ScheduleHandler handles the timeline view and task edits
type ScheduleHandler struct {
	service *services.ScheduleService
}

func NewScheduleHandler(service *services.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: service}
}

// GetSchedule handles GET /api/plans/{id}/schedule
func (h *ScheduleHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	planID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	tasks, err := h.service.GetSchedule(r.Context(), planID)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, tasks)
}

// SplitTask handles POST /api/items/{id}/split
func (h *ScheduleHandler) SplitTask(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.SplitTaskRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.service.SplitTask(r.Context(), itemID, &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, result)
}

// MergeTask handles POST /api/items/{id}/merge
func (h *ScheduleHandler) MergeTask(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.MergeTaskRequest
	if !decode(w, r, &req) {
		return
	}
	if req.PreviousItemID <= 0 {
		utils.Message(w, http.StatusBadRequest, "previous_item_id is required")
		return
	}

	merged, err := h.service.MergeTask(r.Context(), itemID, &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, merged)
}

// RescheduleTask handles POST /api/items/{id}/reschedule
func (h *ScheduleHandler) RescheduleTask(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.RescheduleTaskRequest
	if !decode(w, r, &req) {
		return
	}

	item, err := h.service.RescheduleTask(r.Context(), itemID, &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, item)
}

// ReorderTask handles POST /api/items/{id}/reorder
func (h *ScheduleHandler) ReorderTask(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.ReorderTaskRequest
	if !decode(w, r, &req) {
		return
	}

	items, err := h.service.ReorderTask(r.Context(), itemID, &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, items)
}

package handlers

import (
	"net/http"

	"factory-backend/internal/models"
	"factory-backend/internal/services"
	"factory-backend/pkg/utils"
)

// LaneHandler handles timeline lanes: placement and locked ranges
type LaneHandler struct {
	service *services.ScheduleService
}

func NewLaneHandler(service *services.ScheduleService) *LaneHandler {
	return &LaneHandler{service: service}
}

// CreateLane handles POST /api/plans/{id}/lanes
func (h *LaneHandler) CreateLane(w http.ResponseWriter, r *http.Request) {
	planID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.CreateLaneRequest
	if !decode(w, r, &req) {
		return
	}

	lane, err := h.service.CreateLane(r.Context(), planID, &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, lane)
}

// ListLanes handles GET /api/plans/{id}/lanes
func (h *LaneHandler) ListLanes(w http.ResponseWriter, r *http.Request) {
	planID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	lanes, err := h.service.ListLanes(r.Context(), planID)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, lanes)
}

// GetLane handles GET /api/lanes/{id}
func (h *LaneHandler) GetLane(w http.ResponseWriter, r *http.Request) {
	laneID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	lane, err := h.service.GetLane(r.Context(), laneID)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, lane)
}

// DeleteLane handles DELETE /api/lanes/{id}
func (h *LaneHandler) DeleteLane(w http.ResponseWriter, r *http.Request) {
	laneID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteLane(r.Context(), laneID); err != nil {
		utils.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PlaceTask handles POST /api/lanes/{id}/tasks
func (h *LaneHandler) PlaceTask(w http.ResponseWriter, r *http.Request) {
	laneID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.PlaceTaskRequest
	if !decode(w, r, &req) {
		return
	}

	lane, err := h.service.PlaceTask(r.Context(), laneID, &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, lane)
}

// LockRange handles POST /api/lanes/{id}/blocks
func (h *LaneHandler) LockRange(w http.ResponseWriter, r *http.Request) {
	laneID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.LockRangeRequest
	if !decode(w, r, &req) {
		return
	}

	block, err := h.service.LockRange(r.Context(), laneID, &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, block)
}

// UnlockRange handles DELETE /api/lanes/{id}/blocks/{blockId}
func (h *LaneHandler) UnlockRange(w http.ResponseWriter, r *http.Request) {
	laneID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	blockID, ok := pathID(w, r, "blockId")
	if !ok {
		return
	}

	if err := h.service.UnlockRange(r.Context(), laneID, blockID); err != nil {
		utils.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package handlers

import (
	"net/http"

	"factory-backend/internal/models"
	"factory-backend/internal/services"
	"factory-backend/pkg/utils"
)

// PlanHandler handles production plan requests
type PlanHandler struct {
	service *services.PlanService
}

func NewPlanHandler(service *services.PlanService) *PlanHandler {
	return &PlanHandler{service: service}
}

// CreatePlan handles POST /api/plans
func (h *PlanHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePlanRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.service.CreatePlan(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, result)
}

// ListPlans handles GET /api/plans
func (h *PlanHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.service.ListOpenPlans(r.Context())
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, plans)
}

// GetPlan handles GET /api/plans/{id}
func (h *PlanHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	plan, err := h.service.GetPlan(r.Context(), id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, plan)
}

// UpdatePlan handles PUT /api/plans/{id}
func (h *PlanHandler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.UpdatePlanRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.service.UpdatePlan(r.Context(), id, &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, result)
}

// DeletePlan handles DELETE /api/plans/{id}
func (h *PlanHandler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeletePlan(r.Context(), id); err != nil {
		utils.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetStatus handles PATCH /api/plans/{id}/status
func (h *PlanHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.UpdatePlanStatusRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.service.SetPlanStatus(r.Context(), id, req.Status); err != nil {
		utils.Error(w, err)
		return
	}
	plan, err := h.service.GetPlan(r.Context(), id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, plan)
}

// GetShortages handles GET /api/plans/{id}/shortages
func (h *PlanHandler) GetShortages(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	shortages, err := h.service.GetMaterialShortages(r.Context(), id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, shortages)
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lapublica/leadflow/internal/entity"
	"github.com/lapublica/leadflow/internal/infra/http/middleware"
	"github.com/lapublica/leadflow/internal/usecase"
)

type LeadHandler struct {
	CreateUC     *usecase.CreateLeadUseCase
	AssignUC     *usecase.AssignLeadUseCase
	StageUC      *usecase.LeadStageUseCase
	LeadRepo     entity.LeadRepositoryInterface
	ActivityRepo entity.ActivityRepositoryInterface
	Logger       *zap.Logger
}

func NewLeadHandler(
	createUC *usecase.CreateLeadUseCase,
	assignUC *usecase.AssignLeadUseCase,
	stageUC *usecase.LeadStageUseCase,
	leadRepo entity.LeadRepositoryInterface,
	activityRepo entity.ActivityRepositoryInterface,
	logger *zap.Logger,
) *LeadHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeadHandler{
		CreateUC:     createUC,
		AssignUC:     assignUC,
		StageUC:      stageUC,
		LeadRepo:     leadRepo,
		ActivityRepo: activityRepo,
		Logger:       logger,
	}
}

type CreateLeadRequest struct {
	CompanyName  string  `json:"companyName"`
	ContactName  string  `json:"contactName"`
	ContactEmail string  `json:"contactEmail"`
	ContactPhone string  `json:"contactPhone"`
	Priority     string  `json:"priority"`
	AssignedToID *string `json:"assignedToId"`
	Source       string  `json:"source"`
	CreatedByID  string  `json:"createdById"`
}

type StageRequest struct {
	Status       string `json:"status"`
	ActingUserID string `json:"actingUserId"`
	Reason       string `json:"reason,omitempty"`
}

type AssignRequest struct {
	AssigneeID   string `json:"assigneeId"`
	ActingUserID string `json:"actingUserId"`
}

type LeadDetailResponse struct {
	Lead       *entity.Lead           `json:"lead"`
	StageLabel string                 `json:"stageLabel"`
	NextStage  string                 `json:"nextStage,omitempty"`
	Activities []*entity.LeadActivity `json:"activities"`
}

// Create handles POST /leads.
func (h *LeadHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateLeadRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	out, err := h.CreateUC.Execute(r.Context(), usecase.CreateLeadInput{
		CompanyName:  req.CompanyName,
		ContactName:  req.ContactName,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		Priority:     req.Priority,
		AssignedToID: req.AssignedToID,
		Source:       req.Source,
		CreatedByID:  req.CreatedByID,
	})
	if err != nil {
		writeUsecaseError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// Get handles GET /leads/{id}.
func (h *LeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	lead, err := h.LeadRepo.FindByID(r.Context(), id)
	if errors.Is(err, entity.ErrLeadNotFound) {
		writeErrorResponse(w, http.StatusNotFound, usecase.CodeLeadNotFound, "lead not found")
		return
	}
	if err != nil {
		h.Logger.Error("❌ failed to load lead", zap.String("lead_id", id), zap.Error(err))
		writeErrorResponse(w, http.StatusInternalServerError, usecase.CodeDatabase, "failed to load lead")
		return
	}

	activities, err := h.ActivityRepo.ListByLead(r.Context(), id)
	if err != nil {
		h.Logger.Error("❌ failed to load lead activities", zap.String("lead_id", id), zap.Error(err))
		writeErrorResponse(w, http.StatusInternalServerError, usecase.CodeDatabase, "failed to load lead")
		return
	}
	if activities == nil {
		activities = []*entity.LeadActivity{}
	}

	resp := LeadDetailResponse{
		Lead:       lead,
		StageLabel: entity.StageLabel(lead.Status),
		Activities: activities,
	}
	if next, ok := entity.NextStage(lead.Status); ok {
		resp.NextStage = string(next)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Assign handles POST /leads/{id}/assign.
func (h *LeadHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	lead, err := h.AssignUC.Execute(r.Context(), usecase.AssignLeadInput{
		LeadID:       chi.URLParam(r, "id"),
		AssigneeID:   req.AssigneeID,
		ActingUserID: req.ActingUserID,
	})
	if err != nil {
		writeUsecaseError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// AdvanceStage handles POST /leads/{id}/stage.
func (h *LeadHandler) AdvanceStage(w http.ResponseWriter, r *http.Request) {
	var req StageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out := h.StageUC.AdvanceLeadStage(r.Context(), usecase.AdvanceLeadStageInput{
		LeadID:       chi.URLParam(r, "id"),
		NewStatus:    req.Status,
		ActingUserID: req.ActingUserID,
	})
	h.writeStageResult(w, req.Status, out)
}

// MarkWon handles POST /leads/{id}/won.
func (h *LeadHandler) MarkWon(w http.ResponseWriter, r *http.Request) {
	var req StageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out := h.StageUC.MarkLeadAsWon(r.Context(), chi.URLParam(r, "id"), req.ActingUserID)
	h.writeStageResult(w, string(entity.StageWon), out)
}

// MarkLost handles POST /leads/{id}/lost.
func (h *LeadHandler) MarkLost(w http.ResponseWriter, r *http.Request) {
	var req StageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out := h.StageUC.MarkLeadAsLost(r.Context(), chi.URLParam(r, "id"), req.ActingUserID, req.Reason)
	h.writeStageResult(w, string(entity.StageLost), out)
}

func (h *LeadHandler) writeStageResult(w http.ResponseWriter, target string, out usecase.StageChangeOutput) {
	if out.Success {
		middleware.RecordStageTransition(target, "ok")
		writeJSON(w, http.StatusOK, out)
		return
	}
	// unknown targets would blow up label cardinality
	if !entity.IsKnownStatus(target) {
		target = "invalid"
	}
	middleware.RecordStageTransition(target, out.ErrorCode)
	writeJSON(w, statusForCode(out.ErrorCode), out)
}

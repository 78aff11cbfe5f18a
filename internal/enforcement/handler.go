package enforcement

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"railledger/internal/platform/middleware"
	"railledger/pkg/domain"
	dErrors "railledger/pkg/domain-errors"
	"railledger/pkg/platform/httputil"
	"railledger/pkg/requestcontext"
)

// Handler exposes the enforcement HTTP surface.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator middleware.TokenValidator
}

// NewHandler creates the enforcement handler.
func NewHandler(service *Service, logger *slog.Logger, validator middleware.TokenValidator) *Handler {
	return &Handler{logger: logger, service: service, validator: validator}
}

// Register mounts the enforcement routes.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestTime)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.RequireActor(h.validator, h.logger))
	router.Post("/certifications/{id}/evaluate", h.handleEvaluate)
	router.Get("/certifications/{id}", h.handleGet)
	router.Post("/employees/{id}/gate", h.handleGate)
	router.Get("/employees/{id}/eligibility", h.handleEligibility)
	router.Get("/actions/{targetType}/{targetID}", h.handleActions)

	r.Mount("/enforcement", router)
}

type decisionResponse struct {
	CertificationID string    `json:"certification_id"`
	IsBlocked       bool      `json:"is_blocked"`
	BlockedReason   string    `json:"blocked_reason,omitempty"`
	EvaluatedAt     time.Time `json:"evaluated_at"`
}

type gateRequest struct {
	RequiredTypes []string `json:"required_types"`
	ActionType    string   `json:"action_type"`
}

type actionResponse struct {
	ID          string    `json:"id"`
	ActionType  string    `json:"action_type"`
	TargetType  string    `json:"target_type"`
	TargetID    string    `json:"target_id"`
	Reason      string    `json:"reason"`
	TriggeredBy string    `json:"triggered_by"`
	CreatedAt   time.Time `json:"created_at"`
}

func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseCertificationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid certification id"))
		return
	}

	decision, err := h.service.Evaluate(r.Context(), id, requestcontext.ActorID(r.Context()))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to evaluate enforcement", "error", err.Error())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, decisionResponse{
		CertificationID: decision.CertificationID.String(),
		IsBlocked:       decision.IsBlocked,
		BlockedReason:   decision.BlockedReason,
		EvaluatedAt:     decision.EvaluatedAt,
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseCertificationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid certification id"))
		return
	}
	e, err := h.service.Enforcement(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, decisionResponse{
		CertificationID: e.CertificationID.String(),
		IsBlocked:       e.IsBlocked,
		BlockedReason:   e.BlockedReason,
		EvaluatedAt:     e.EvaluatedAt,
	})
}

func (h *Handler) handleGate(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseEmployeeID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid employee id"))
		return
	}
	var req gateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	err = h.service.EnforceRequirements(r.Context(), id, req.RequiredTypes,
		ActionType(req.ActionType), requestcontext.ActorID(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"result": "allowed"})
}

func (h *Handler) handleEligibility(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseEmployeeID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid employee id"))
		return
	}
	eligible, err := h.service.IsEmployeeEligible(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"eligible": eligible})
}

func (h *Handler) handleActions(w http.ResponseWriter, r *http.Request) {
	targetType := chi.URLParam(r, "targetType")
	targetID := chi.URLParam(r, "targetID")

	actions, err := h.service.Actions(r.Context(), targetType, targetID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := make([]actionResponse, 0, len(actions))
	for _, a := range actions {
		resp = append(resp, actionResponse{
			ID:          a.ID.String(),
			ActionType:  string(a.ActionType),
			TargetType:  a.TargetType,
			TargetID:    a.TargetID,
			Reason:      a.Reason,
			TriggeredBy: a.TriggeredBy,
			CreatedAt:   a.CreatedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"actions": resp})
}

package employee

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
)

// Handler exposes the employee HTTP surface.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator middleware.TokenValidator
}

// NewHandler creates the employee handler.
func NewHandler(service *Service, logger *slog.Logger, validator middleware.TokenValidator) *Handler {
	return &Handler{logger: logger, service: service, validator: validator}
}

// Register mounts the employee routes.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestTime)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.RequireActor(h.validator, h.logger))
	router.Post("/", h.handleOnboard)
	router.Get("/", h.handleList)
	router.Get("/{id}", h.handleGet)

	r.Mount("/employees", router)
}

type onboardRequest struct {
	Name       string `json:"name"`
	Role       string `json:"role"`
	Contractor string `json:"contractor,omitempty"`
}

type employeeResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Role       string    `json:"role"`
	Contractor string    `json:"contractor,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type onboardCertResponse struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Status string `json:"status"`
}

func toEmployeeResponse(e *Employee) employeeResponse {
	return employeeResponse{
		ID:         e.ID.String(),
		Name:       e.Name,
		Role:       e.Role,
		Contractor: e.Contractor,
		CreatedAt:  e.CreatedAt,
	}
}

func (h *Handler) handleOnboard(w http.ResponseWriter, r *http.Request) {
	var req onboardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	emp, certs, err := h.service.Onboard(r.Context(), OnboardInput{
		Name:       req.Name,
		Role:       req.Role,
		Contractor: req.Contractor,
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to onboard employee", "error", err.Error())
		httputil.WriteError(w, err)
		return
	}

	certResp := make([]onboardCertResponse, 0, len(certs))
	for _, c := range certs {
		certResp = append(certResp, onboardCertResponse{
			ID:     c.ID.String(),
			Type:   c.Type,
			Status: string(c.Status),
		})
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"employee":       toEmployeeResponse(emp),
		"certifications": certResp,
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseEmployeeID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid employee id"))
		return
	}
	emp, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toEmployeeResponse(emp))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	emps, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := make([]employeeResponse, 0, len(emps))
	for i := range emps {
		resp = append(resp, toEmployeeResponse(&emps[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"employees": resp})
}

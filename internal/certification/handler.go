package certification

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

// Handler exposes the certification HTTP surface.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator middleware.TokenValidator
}

// NewHandler creates the certification handler.
func NewHandler(service *Service, logger *slog.Logger, validator middleware.TokenValidator) *Handler {
	return &Handler{logger: logger, service: service, validator: validator}
}

// Register mounts the certification routes.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestTime)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.RequireActor(h.validator, h.logger))
	router.Post("/", h.handleCreate)
	router.Get("/", h.handleList)
	router.Get("/{id}", h.handleGet)
	router.Post("/{id}/proof", h.handleProof)
	router.Post("/{id}/revoke", h.handleRevoke)
	router.Post("/{id}/corrections", h.handleCorrect)
	router.Get("/{id}/chain", h.handleChain)

	r.Mount("/certifications", router)
}

type createRequest struct {
	EmployeeID       string     `json:"employee_id"`
	Type             string     `json:"type"`
	IssuingAuthority string     `json:"issuing_authority"`
	IssueDate        *time.Time `json:"issue_date,omitempty"`
	ExpirationDate   *time.Time `json:"expiration_date,omitempty"`
	NonExpiring      bool       `json:"non_expiring"`
	ProofRef         string     `json:"proof_ref,omitempty"`
}

type proofRequest struct {
	IssueDate      time.Time  `json:"issue_date"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	ProofRef       string     `json:"proof_ref"`
}

type revokeRequest struct {
	Reason string `json:"reason"`
}

type correctRequest struct {
	Reason           string     `json:"reason"`
	Type             *string    `json:"type,omitempty"`
	IssuingAuthority *string    `json:"issuing_authority,omitempty"`
	IssueDate        *time.Time `json:"issue_date,omitempty"`
	ExpirationDate   *time.Time `json:"expiration_date,omitempty"`
	NonExpiring      *bool      `json:"non_expiring,omitempty"`
	ProofRef         *string    `json:"proof_ref,omitempty"`
}

type certResponse struct {
	ID               string     `json:"id"`
	EmployeeID       string     `json:"employee_id"`
	Type             string     `json:"type"`
	IssuingAuthority string     `json:"issuing_authority,omitempty"`
	IssueDate        *time.Time `json:"issue_date,omitempty"`
	ExpirationDate   *time.Time `json:"expiration_date,omitempty"`
	NonExpiring      bool       `json:"non_expiring"`
	ProofRef         string     `json:"proof_ref,omitempty"`
	Revoked          bool       `json:"revoked"`
	RevokedAt        *time.Time `json:"revoked_at,omitempty"`
	RevokedReason    string     `json:"revoked_reason,omitempty"`
	Status           string     `json:"status"`
	FailureReason    string     `json:"failure_reason,omitempty"`
	CorrectionOf     string     `json:"correction_of,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func toResponse(c *Certification, asOf time.Time) certResponse {
	resp := certResponse{
		ID:               c.ID.String(),
		EmployeeID:       c.EmployeeID.String(),
		Type:             c.Type,
		IssuingAuthority: c.IssuingAuthority,
		IssueDate:        c.IssueDate,
		ExpirationDate:   c.ExpirationDate,
		NonExpiring:      c.NonExpiring,
		ProofRef:         c.ProofRef,
		Revoked:          c.Revoked,
		RevokedAt:        c.RevokedAt,
		RevokedReason:    c.RevokedReason,
		Status:           string(DeriveStatus(c, asOf)),
		FailureReason:    FailureReason(c, asOf),
		CreatedAt:        c.CreatedAt,
	}
	if c.CorrectionOf != nil {
		resp.CorrectionOf = c.CorrectionOf.String()
	}
	return resp
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	employeeID, err := domain.ParseEmployeeID(req.EmployeeID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid employee id"))
		return
	}

	cert, err := h.service.Create(r.Context(), CreateInput{
		EmployeeID:       employeeID,
		Type:             req.Type,
		IssuingAuthority: req.IssuingAuthority,
		IssueDate:        req.IssueDate,
		ExpirationDate:   req.ExpirationDate,
		NonExpiring:      req.NonExpiring,
		ProofRef:         req.ProofRef,
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to create certification", "error", err.Error())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(cert, cert.CreatedAt))
}

// handleList returns an employee's certifications, optionally filtered by
// derived status. The filter accepts the legacy valid/expired/revoked
// vocabulary as well as the canonical one.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	employeeID, err := domain.ParseEmployeeID(r.URL.Query().Get("employee_id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "employee_id query parameter is required"))
		return
	}

	var statusFilter domain.CertStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		statusFilter, err = domain.ParseLegacyStatus(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
	}

	certs, err := h.service.ListByEmployee(r.Context(), employeeID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	asOf := requestcontext.Now(r.Context())
	out := make([]certResponse, 0, len(certs))
	for i := range certs {
		if statusFilter != "" && DeriveStatus(&certs[i], asOf) != statusFilter {
			continue
		}
		out = append(out, toResponse(&certs[i], asOf))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"certifications": out})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseCertificationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid certification id"))
		return
	}
	cert, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(cert, requestcontext.Now(r.Context())))
}

func (h *Handler) handleProof(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseCertificationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid certification id"))
		return
	}
	var req proofRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.IssueDate.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "issue_date is required"))
		return
	}

	cert, err := h.service.RecordProof(r.Context(), id, req.IssueDate, req.ExpirationDate, req.ProofRef)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to record proof", "error", err.Error())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(cert, requestcontext.Now(r.Context())))
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseCertificationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid certification id"))
		return
	}
	var req revokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	cert, err := h.service.Revoke(r.Context(), id, req.Reason)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to revoke certification", "error", err.Error())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(cert, requestcontext.Now(r.Context())))
}

func (h *Handler) handleCorrect(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseCertificationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid certification id"))
		return
	}
	var req correctRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	cert, err := h.service.Correct(r.Context(), id, req.Reason, CorrectionData{
		Type:             req.Type,
		IssuingAuthority: req.IssuingAuthority,
		IssueDate:        req.IssueDate,
		ExpirationDate:   req.ExpirationDate,
		NonExpiring:      req.NonExpiring,
		ProofRef:         req.ProofRef,
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to correct certification", "error", err.Error())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(cert, cert.CreatedAt))
}

func (h *Handler) handleChain(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseCertificationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid certification id"))
		return
	}
	chain, err := h.service.CorrectionChain(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	now := requestcontext.Now(r.Context())
	resp := make([]certResponse, 0, len(chain))
	for i := range chain {
		resp = append(resp, toResponse(&chain[i], now))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"chain": resp})
}

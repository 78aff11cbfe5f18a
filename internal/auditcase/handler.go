package auditcase

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

// Handler exposes the audit case HTTP surface.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator middleware.TokenValidator
}

// NewHandler creates the audit case handler.
func NewHandler(service *Service, logger *slog.Logger, validator middleware.TokenValidator) *Handler {
	return &Handler{logger: logger, service: service, validator: validator}
}

// Register mounts the audit case routes.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestTime)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.RequireActor(h.validator, h.logger))
	router.Post("/", h.handleOpen)
	router.Get("/", h.handleList)
	router.Get("/{id}", h.handleGet)
	router.Post("/{id}/evidence", h.handleLink)
	router.Get("/{id}/evidence", h.handleEvidence)

	r.Mount("/audit-cases", router)
}

type openRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type linkRequest struct {
	NodeID string `json:"node_id"`
}

type caseResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	OpenedBy    string    `json:"opened_by"`
	CreatedAt   time.Time `json:"created_at"`
}

func toCaseResponse(c *AuditCase) caseResponse {
	return caseResponse{
		ID:          c.ID.String(),
		Name:        c.Name,
		Description: c.Description,
		OpenedBy:    c.OpenedBy,
		CreatedAt:   c.CreatedAt,
	}
}

func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	c, err := h.service.Open(r.Context(), req.Name, req.Description)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to open audit case", "error", err.Error())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toCaseResponse(c))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	cases, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := make([]caseResponse, 0, len(cases))
	for i := range cases {
		resp = append(resp, toCaseResponse(&cases[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"cases": resp})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseAuditCaseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid audit case id"))
		return
	}
	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCaseResponse(c))
}

func (h *Handler) handleLink(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseAuditCaseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid audit case id"))
		return
	}
	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	nodeID, err := domain.ParseEvidenceNodeID(req.NodeID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid evidence node id"))
		return
	}

	if err := h.service.LinkEvidence(r.Context(), id, nodeID); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to link evidence", "error", err.Error())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"result": "linked"})
}

func (h *Handler) handleEvidence(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseAuditCaseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid audit case id"))
		return
	}
	nodes, entries, err := h.service.Evidence(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	type entryResponse struct {
		ID        string         `json:"id"`
		EventType string         `json:"event_type"`
		Payload   map[string]any `json:"payload,omitempty"`
		Hash      string         `json:"hash"`
		CreatedAt time.Time      `json:"created_at"`
	}
	type nodeResponse struct {
		ID         string          `json:"id"`
		EntityType string          `json:"entity_type"`
		EntityID   string          `json:"entity_id"`
		ActorType  string          `json:"actor_type"`
		ActorID    string          `json:"actor_id"`
		CreatedAt  time.Time       `json:"created_at"`
		Entries    []entryResponse `json:"entries"`
	}

	resp := make([]nodeResponse, 0, len(nodes))
	for _, n := range nodes {
		nr := nodeResponse{
			ID:         n.ID.String(),
			EntityType: n.EntityType,
			EntityID:   n.EntityID,
			ActorType:  n.ActorType.String(),
			ActorID:    n.ActorID,
			CreatedAt:  n.CreatedAt,
		}
		for _, e := range entries[n.ID.String()] {
			nr.Entries = append(nr.Entries, entryResponse{
				ID:        e.ID.String(),
				EventType: e.EventType,
				Payload:   e.Payload,
				Hash:      e.Hash,
				CreatedAt: e.CreatedAt,
			})
		}
		resp = append(resp, nr)
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"nodes": resp})
}

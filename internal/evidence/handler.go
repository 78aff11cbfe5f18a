package evidence

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"railledger/internal/platform/middleware"
	"railledger/pkg/platform/httputil"
)

// Handler exposes read access to an entity's evidence trail. Writes have no
// HTTP surface: they happen only through WithEvidence inside domain services.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator middleware.TokenValidator
}

// NewHandler creates the evidence read handler.
func NewHandler(service *Service, logger *slog.Logger, validator middleware.TokenValidator) *Handler {
	return &Handler{logger: logger, service: service, validator: validator}
}

// Register mounts the evidence routes.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestTime)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.RequireActor(h.validator, h.logger))
	router.Get("/{entityType}/{entityID}", h.handleTrail)
	router.Get("/{entityType}/{entityID}/verify", h.handleVerify)

	r.Mount("/evidence", router)
}

type nodeResponse struct {
	ID         string          `json:"id"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	ActorType  string          `json:"actor_type"`
	ActorID    string          `json:"actor_id"`
	CreatedAt  time.Time       `json:"created_at"`
	Archived   bool            `json:"archived"`
	Entries    []entryResponse `json:"entries"`
}

type entryResponse struct {
	ID        string    `json:"id"`
	EventType string    `json:"event_type"`
	Payload   Payload   `json:"payload,omitempty"`
	PrevHash  string    `json:"prev_hash,omitempty"`
	Hash      string    `json:"hash"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *Handler) handleTrail(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entityType")
	entityID := chi.URLParam(r, "entityID")

	nodes, entries, err := h.service.Trail(r.Context(), entityType, entityID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to load evidence trail", "error", err.Error())
		httputil.WriteError(w, err)
		return
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
			Archived:   n.Archived,
		}
		for _, e := range entries[n.ID.String()] {
			nr.Entries = append(nr.Entries, entryResponse{
				ID:        e.ID.String(),
				EventType: e.EventType,
				Payload:   e.Payload,
				PrevHash:  e.PrevHash,
				Hash:      e.Hash,
				CreatedAt: e.CreatedAt,
			})
		}
		resp = append(resp, nr)
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"nodes": resp})
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entityType")
	entityID := chi.URLParam(r, "entityID")

	if err := h.service.VerifyTrail(r.Context(), entityType, entityID); err != nil {
		h.logger.ErrorContext(r.Context(), "evidence trail verification failed",
			"entity_type", entityType,
			"entity_id", entityID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

package history

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"railledger/internal/platform/middleware"
	"railledger/pkg/domain"
	dErrors "railledger/pkg/domain-errors"
	"railledger/pkg/platform/httputil"
)

// Handler exposes the point-in-time query endpoint.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator middleware.TokenValidator
}

// NewHandler creates the history handler.
func NewHandler(service *Service, logger *slog.Logger, validator middleware.TokenValidator) *Handler {
	return &Handler{logger: logger, service: service, validator: validator}
}

// Register mounts the history routes.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestTime)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.RequireActor(h.validator, h.logger))
	router.Get("/employees/{id}/certifications", h.handleAsOf)

	r.Mount("/history", router)
}

type snapshotResponse struct {
	CertificationID string     `json:"certification_id"`
	Type            string     `json:"type"`
	Status          string     `json:"status"`
	Compliant       bool       `json:"compliant"`
	IssueDate       *time.Time `json:"issue_date,omitempty"`
	ExpirationDate  *time.Time `json:"expiration_date,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	LastEventType   string     `json:"last_event_type,omitempty"`
	LastEventAt     *time.Time `json:"last_event_at,omitempty"`
}

func (h *Handler) handleAsOf(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseEmployeeID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid employee id"))
		return
	}
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "as_of query parameter is required"))
		return
	}
	asOf, err := parseAsOf(raw)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "as_of must be RFC 3339 or YYYY-MM-DD"))
		return
	}

	report, err := h.service.CertificationsAsOf(r.Context(), id, asOf)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to reconstruct certifications", "error", err.Error())
		httputil.WriteError(w, err)
		return
	}

	snapshots := make([]snapshotResponse, 0, len(report.Snapshots))
	for _, snap := range report.Snapshots {
		snapshots = append(snapshots, snapshotResponse{
			CertificationID: snap.CertificationID.String(),
			Type:            snap.Type,
			Status:          string(snap.Status),
			Compliant:       snap.Compliant,
			IssueDate:       snap.IssueDate,
			ExpirationDate:  snap.ExpirationDate,
			CreatedAt:       snap.CreatedAt,
			LastEventType:   snap.LastEventType,
			LastEventAt:     snap.LastEventAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"employee_id":       report.EmployeeID.String(),
		"as_of":             report.AsOf.UTC().Format(time.RFC3339),
		"overall_compliant": report.OverallCompliant,
		"certifications":    snapshots,
	})
}

// parseAsOf accepts a full timestamp or a bare date. A bare date means end of
// that day in UTC, so "as of 2024-12-31" includes everything recorded that
// day.
func parseAsOf(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(24*time.Hour - time.Nanosecond).UTC(), nil
}

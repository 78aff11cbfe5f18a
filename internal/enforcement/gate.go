package enforcement

import (
	"context"
	"fmt"
	"strings"

	"railledger/internal/certification"
	"railledger/internal/employee"
	"railledger/internal/evidence"
	"railledger/pkg/domain"
	dErrors "railledger/pkg/domain-errors"
	"railledger/pkg/requestcontext"
)

// GateError reports why the enforcement gate denied an operation. Missing
// lists required certification types the employee holds no record for;
// Blocked lists types whose records evaluate to blocked.
type GateError struct {
	Missing []string
	Blocked []string
}

func (e *GateError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing certifications: %s", strings.Join(e.Missing, ", ")))
	}
	if len(e.Blocked) > 0 {
		parts = append(parts, fmt.Sprintf("blocked certifications: %s", strings.Join(e.Blocked, ", ")))
	}
	return strings.Join(parts, "; ")
}

// Detail exposes the structured lists for the HTTP error envelope.
func (e *GateError) Detail() map[string]any {
	return map[string]any{
		"missing_types": e.Missing,
		"blocked_types": e.Blocked,
	}
}

// EnforceRequirements is the gate called synchronously before work-window
// assignment, JHA acknowledgment, and dispatch. Every required type must have
// at least one certification evaluating to not blocked; otherwise the gate
// denies with the missing and blocked types enumerated separately. Each
// evaluation goes through Evaluate, so blocked records gain action rows even
// when the gate as a whole would have denied already. The denial itself is
// audited: its action row commits together with a ledger entry against the
// employee.
func (s *Service) EnforceRequirements(ctx context.Context, employeeID domain.EmployeeID, requiredTypes []string, actionType ActionType, triggeredBy string) error {
	if len(requiredTypes) == 0 {
		return nil
	}
	if !actionType.Valid() {
		return dErrors.Newf(dErrors.CodeBadRequest, "unknown action type %q", actionType)
	}

	heads, err := s.headCertifications(ctx, employeeID)
	if err != nil {
		return err
	}
	byType := make(map[string][]certification.Certification)
	for _, c := range heads {
		byType[c.Type] = append(byType[c.Type], c)
	}

	gateErr := &GateError{}
	for _, required := range requiredTypes {
		candidates := byType[required]
		if len(candidates) == 0 {
			gateErr.Missing = append(gateErr.Missing, required)
			continue
		}
		satisfied := false
		for _, c := range candidates {
			decision, err := s.Evaluate(ctx, c.ID, triggeredBy)
			if err != nil {
				return err
			}
			if !decision.IsBlocked {
				satisfied = true
			}
		}
		if !satisfied {
			gateErr.Blocked = append(gateErr.Blocked, required)
		}
	}

	if len(gateErr.Missing) == 0 && len(gateErr.Blocked) == 0 {
		return nil
	}

	gateDenials.WithLabelValues(string(actionType)).Inc()
	now := requestcontext.Now(ctx)
	_, err = s.evidence.WithEvidence(ctx, evidence.Record{
		EntityType: employee.EntityType,
		EntityID:   employeeID.String(),
		ActorType:  requestcontext.ActorType(ctx),
		ActorID:    requestcontext.ActorID(ctx),
		EventType:  evidence.EventGateDenied,
		Payload: evidence.Payload{
			"action_type":   string(actionType),
			"missing_types": gateErr.Missing,
			"blocked_types": gateErr.Blocked,
			"triggered_by":  triggeredBy,
		},
	}, func(ctx context.Context) (string, error) {
		action := &EnforcementAction{
			ID:          domain.NewActionID(),
			ActionType:  actionType,
			TargetType:  employee.EntityType,
			TargetID:    employeeID.String(),
			Reason:      gateErr.Error(),
			TriggeredBy: triggeredBy,
			CreatedAt:   now,
		}
		if err := s.store.AppendAction(ctx, action); err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "append gate action")
		}
		return employeeID.String(), nil
	})
	if err != nil {
		return err
	}
	s.invalidateEligibility(ctx, employeeID)

	s.logger.InfoContext(ctx, "enforcement gate denied",
		"employee_id", employeeID.String(),
		"action_type", string(actionType),
		"missing", gateErr.Missing,
		"blocked", gateErr.Blocked,
	)
	return dErrors.Wrap(gateErr, dErrors.CodeForbidden, "employee does not meet certification requirements")
}

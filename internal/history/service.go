// Package history reconstructs compliance state as of a past date from the
// immutable record. Reads are side-effect-free with one documented exception:
// regulator access is itself logged as evidence, because who looked at the
// record is part of the record.
package history

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"railledger/internal/certification"
	"railledger/internal/employee"
	"railledger/internal/evidence"
	"railledger/pkg/domain"
	dErrors "railledger/pkg/domain-errors"
	"railledger/pkg/platform/sentinel"
	"railledger/pkg/requestcontext"
)

// Service answers point-in-time compliance queries.
type Service struct {
	certs     certification.Store
	employees employee.Store
	evidence  *evidence.Service
	presets   employee.PresetCatalog
	logger    *slog.Logger
}

// NewService wires the history service. A nil presets catalog falls back to
// the default role presets.
func NewService(certs certification.Store, employees employee.Store, ev *evidence.Service, presets employee.PresetCatalog, logger *slog.Logger) *Service {
	if presets == nil {
		presets = employee.DefaultPresets
	}
	return &Service{certs: certs, employees: employees, evidence: ev, presets: presets, logger: logger}
}

// Report is the reconstructed compliance state of one employee at one date.
type Report struct {
	EmployeeID       domain.EmployeeID
	AsOf             time.Time
	OverallCompliant bool
	Snapshots        []certification.Snapshot
}

// CertificationsAsOf rebuilds the employee's certifications as they stood at
// the given date. Rows created later are excluded by creation time, so a
// correction made after the date does not replace what existed then; proof
// and revocation recorded later are filtered out by their ledger timestamps.
// Regulator callers leave an access record.
func (s *Service) CertificationsAsOf(ctx context.Context, employeeID domain.EmployeeID, asOf time.Time) (*Report, error) {
	emp, err := s.employees.Get(ctx, employeeID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "employee not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "get employee")
	}

	certs, err := s.certs.ListByEmployeeCreatedBefore(ctx, employeeID, asOf)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list certifications")
	}

	// A correction row inside the window supersedes its target; corrections
	// made after asOf were already excluded by the query.
	superseded := make(map[domain.CertificationID]bool)
	for i := range certs {
		if certs[i].CorrectionOf != nil {
			superseded[*certs[i].CorrectionOf] = true
		}
	}

	report := &Report{EmployeeID: employeeID, AsOf: asOf}
	for i := range certs {
		if superseded[certs[i].ID] {
			continue
		}
		snapshot, err := s.snapshotAsOf(ctx, &certs[i], asOf)
		if err != nil {
			return nil, err
		}
		report.Snapshots = append(report.Snapshots, *snapshot)
	}
	report.OverallCompliant = s.overallCompliant(emp.Role, report.Snapshots)

	if requestcontext.ActorType(ctx) == domain.ActorRegulator {
		if err := s.logAccess(ctx, employeeID, asOf); err != nil {
			return nil, err
		}
	}
	return report, nil
}

// overallCompliant mirrors the enforcement gate at the reconstruction date:
// every certification type the employee's role requires must have at least
// one compliant snapshot. Certifications outside the role's requirements are
// reported but do not gate. Roles with no preset fall back to requiring every
// snapshot to be compliant.
func (s *Service) overallCompliant(role string, snapshots []certification.Snapshot) bool {
	required := s.presets.RequiredTypes(role)
	if len(required) == 0 {
		for _, snap := range snapshots {
			if !snap.Compliant {
				return false
			}
		}
		return true
	}

	compliantTypes := make(map[string]bool)
	for _, snap := range snapshots {
		if snap.Compliant {
			compliantTypes[snap.Type] = true
		}
	}
	for _, t := range required {
		if !compliantTypes[t] {
			return false
		}
	}
	return true
}

// snapshotAsOf rolls a certification row back to its state at asOf. The row
// itself may carry proof or revocation recorded later; their ledger entries
// say when they actually happened.
func (s *Service) snapshotAsOf(ctx context.Context, cert *certification.Certification, asOf time.Time) (*certification.Snapshot, error) {
	_, entryMap, err := s.evidence.Trail(ctx, certification.EntityType, cert.ID.String())
	if err != nil {
		return nil, err
	}

	var proofRecorded, proofRecordedByAsOf, revokedByAsOf bool
	for _, entries := range entryMap {
		for _, e := range entries {
			switch e.EventType {
			case evidence.EventCertificationUpdated:
				proofRecorded = true
				if !e.CreatedAt.After(asOf) {
					proofRecordedByAsOf = true
				}
			case evidence.EventCertificationRevoked:
				if !e.CreatedAt.After(asOf) {
					revokedByAsOf = true
				}
			}
		}
	}

	asOfCert := *cert
	// Proof on the row either arrived with creation (no update entry exists)
	// or via an update entry whose timestamp decides.
	if proofRecorded && !proofRecordedByAsOf {
		asOfCert.IssueDate = nil
		asOfCert.ProofRef = ""
	}
	if cert.Revoked && !revokedByAsOf {
		// Fall back to the row timestamp for rows revoked before the evidence
		// trail existed.
		if cert.RevokedAt == nil || cert.RevokedAt.After(asOf) {
			asOfCert.Revoked = false
			asOfCert.RevokedAt = nil
			asOfCert.RevokedReason = ""
		}
	}

	status := certification.DeriveStatus(&asOfCert, asOf)
	snapshot := &certification.Snapshot{
		CertificationID: cert.ID,
		Type:            cert.Type,
		Status:          status,
		Compliant:       status == domain.StatusPass,
		IssueDate:       asOfCert.IssueDate,
		ExpirationDate:  asOfCert.ExpirationDate,
		CreatedAt:       cert.CreatedAt,
	}

	latest, err := s.evidence.LatestEntryAt(ctx, certification.EntityType, cert.ID.String(), asOf)
	if err != nil {
		return nil, err
	}
	if latest != nil {
		snapshot.LastEventType = latest.EventType
		snapshot.LastEventAt = &latest.CreatedAt
	}
	return snapshot, nil
}

func (s *Service) logAccess(ctx context.Context, employeeID domain.EmployeeID, asOf time.Time) error {
	node, err := s.evidence.WriteEvidenceNode(ctx, employee.EntityType, employeeID.String(),
		requestcontext.ActorType(ctx), requestcontext.ActorID(ctx))
	if err != nil {
		return err
	}
	_, err = s.evidence.AppendLedgerEntry(ctx, node.ID, evidence.EventHistoryAccessed, evidence.Payload{
		"employee_id": employeeID.String(),
		"as_of_date":  asOf.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "regulator access recorded",
		"employee_id", employeeID.String(),
		"as_of", asOf.UTC().Format(time.RFC3339),
	)
	return nil
}

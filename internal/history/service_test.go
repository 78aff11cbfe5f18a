package history

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"railledger/internal/certification"
	"railledger/internal/employee"
	"railledger/internal/evidence"
	"railledger/pkg/domain"
	"railledger/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	employees   *employee.Memory
	certs       *certification.Memory
	ledger      *evidence.Memory
	certService *certification.Service
	service     *Service
	ctx         context.Context
	employee    domain.EmployeeID
	now         time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.employees = employee.NewMemory()
	s.certs = certification.NewMemory()
	s.ledger = evidence.NewMemory()
	runner := evidence.NewMemoryRunner(s.ledger, s.certs, s.employees)
	ev := evidence.NewService(s.ledger, runner, slog.New(slog.DiscardHandler))
	s.certService = certification.NewService(s.certs, ev)
	s.service = NewService(s.certs, s.employees, ev, nil, slog.New(slog.DiscardHandler))

	s.now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), s.now)
	s.ctx = requestcontext.WithActor(ctx, domain.ActorUser, "compliance-officer-1")

	s.employee = domain.NewEmployeeID()
	s.Require().NoError(s.employees.Create(s.ctx, &employee.Employee{
		ID: s.employee, Name: "J. Alvarez", Role: "flagger", CreatedAt: s.now,
	}))
}

func (s *ServiceSuite) at(t time.Time) context.Context {
	return requestcontext.WithActor(requestcontext.WithTime(context.Background(), t), domain.ActorUser, "compliance-officer-1")
}

func (s *ServiceSuite) snapshotFor(report *Report, certType string) *certification.Snapshot {
	for i := range report.Snapshots {
		if report.Snapshots[i].Type == certType {
			return &report.Snapshots[i]
		}
	}
	s.Require().Failf("snapshot missing", "no snapshot for type %s", certType)
	return nil
}

func (s *ServiceSuite) TestComplianceFlipsAtExpiration() {
	issued := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	expires := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := s.certService.Create(s.ctx, certification.CreateInput{
		EmployeeID:     s.employee,
		Type:           "Roadway Worker Protection",
		IssueDate:      &issued,
		ExpirationDate: &expires,
		ProofRef:       "s3://proofs/rwp.pdf",
	})
	s.Require().NoError(err)
	_, err = s.certService.Create(s.ctx, certification.CreateInput{
		EmployeeID:  s.employee,
		Type:        "Flagging Certification",
		IssueDate:   &issued,
		NonExpiring: true,
		ProofRef:    "s3://proofs/flag.pdf",
	})
	s.Require().NoError(err)

	nodesBefore, entriesBefore := s.ledger.CountRows()

	report, err := s.service.CertificationsAsOf(s.ctx, s.employee,
		time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC))
	s.Require().NoError(err)
	s.True(report.OverallCompliant)
	s.Require().Len(report.Snapshots, 2)
	s.Equal(domain.StatusPass, s.snapshotFor(report, "Roadway Worker Protection").Status)

	report, err = s.service.CertificationsAsOf(s.ctx, s.employee,
		time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))
	s.Require().NoError(err)
	s.False(report.OverallCompliant)
	s.Equal(domain.StatusFail, s.snapshotFor(report, "Roadway Worker Protection").Status)

	// Reconstruction is read-only for non-regulator callers.
	nodesAfter, entriesAfter := s.ledger.CountRows()
	s.Equal(nodesBefore, nodesAfter)
	s.Equal(entriesBefore, entriesAfter)
}

func (s *ServiceSuite) TestOverallScopedToRoleRequirements() {
	issued := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	for _, typ := range []string{"Roadway Worker Protection", "Flagging Certification"} {
		_, err := s.certService.Create(s.ctx, certification.CreateInput{
			EmployeeID:  s.employee,
			Type:        typ,
			IssueDate:   &issued,
			NonExpiring: true,
			ProofRef:    "s3://proofs/" + typ + ".pdf",
		})
		s.Require().NoError(err)
	}
	// A voluntary certification outside the flagger presets, never completed.
	_, err := s.certService.Create(s.ctx, certification.CreateInput{
		EmployeeID: s.employee,
		Type:       "First Aid",
	})
	s.Require().NoError(err)

	report, err := s.service.CertificationsAsOf(s.ctx, s.employee, s.now.AddDate(0, 1, 0))
	s.Require().NoError(err)
	s.Require().Len(report.Snapshots, 3)
	s.True(report.OverallCompliant, "incomplete voluntary certification must not gate")

	// A role with no preset falls back to requiring every snapshot to pass.
	unknown := domain.NewEmployeeID()
	s.Require().NoError(s.employees.Create(s.ctx, &employee.Employee{
		ID: unknown, Name: "P. Okafor", Role: "surveyor", CreatedAt: s.now,
	}))
	_, err = s.certService.Create(s.ctx, certification.CreateInput{
		EmployeeID: unknown,
		Type:       "Land Survey License",
	})
	s.Require().NoError(err)

	report, err = s.service.CertificationsAsOf(s.ctx, unknown, s.now.AddDate(0, 1, 0))
	s.Require().NoError(err)
	s.False(report.OverallCompliant)
}

func (s *ServiceSuite) TestMissingRequiredTypeFailsOverall() {
	issued := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	_, err := s.certService.Create(s.ctx, certification.CreateInput{
		EmployeeID:  s.employee,
		Type:        "Roadway Worker Protection",
		IssueDate:   &issued,
		NonExpiring: true,
		ProofRef:    "s3://proofs/rwp.pdf",
	})
	s.Require().NoError(err)

	// Flagging Certification was never even created for this flagger.
	report, err := s.service.CertificationsAsOf(s.ctx, s.employee, s.now.AddDate(0, 1, 0))
	s.Require().NoError(err)
	s.Require().Len(report.Snapshots, 1)
	s.True(report.Snapshots[0].Compliant)
	s.False(report.OverallCompliant)
}

func (s *ServiceSuite) TestSnapshotCarriesLatestLedgerFact() {
	cert, err := s.certService.Create(s.ctx, certification.CreateInput{
		EmployeeID: s.employee,
		Type:       "Flagging Certification",
	})
	s.Require().NoError(err)

	proofAt := s.now.AddDate(0, 2, 0)
	expires := s.now.AddDate(2, 0, 0)
	_, err = s.certService.RecordProof(s.at(proofAt), cert.ID, s.now, &expires, "s3://proofs/flag.pdf")
	s.Require().NoError(err)

	// Before the proof the newest fact is the creation entry.
	report, err := s.service.CertificationsAsOf(s.ctx, s.employee, s.now.AddDate(0, 1, 0))
	s.Require().NoError(err)
	s.Require().Len(report.Snapshots, 1)
	s.Equal(evidence.EventCertificationCreated, report.Snapshots[0].LastEventType)
	s.Require().NotNil(report.Snapshots[0].LastEventAt)
	s.Equal(s.now, *report.Snapshots[0].LastEventAt)

	// After the proof it is the update entry.
	report, err = s.service.CertificationsAsOf(s.ctx, s.employee, proofAt.AddDate(0, 1, 0))
	s.Require().NoError(err)
	s.Equal(evidence.EventCertificationUpdated, report.Snapshots[0].LastEventType)
	s.Require().NotNil(report.Snapshots[0].LastEventAt)
	s.Equal(proofAt, *report.Snapshots[0].LastEventAt)
}

func (s *ServiceSuite) TestLaterRevocationDoesNotLeak() {
	issued := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	cert, err := s.certService.Create(s.ctx, certification.CreateInput{
		EmployeeID:  s.employee,
		Type:        "Track Safety Standards",
		IssueDate:   &issued,
		NonExpiring: true,
		ProofRef:    "s3://proofs/ts.pdf",
	})
	s.Require().NoError(err)

	revokeAt := s.now.AddDate(0, 3, 0)
	_, err = s.certService.Revoke(s.at(revokeAt), cert.ID, "training provider decertified")
	s.Require().NoError(err)

	// Before the revocation the record still passes.
	report, err := s.service.CertificationsAsOf(s.ctx, s.employee, s.now.AddDate(0, 1, 0))
	s.Require().NoError(err)
	s.Require().Len(report.Snapshots, 1)
	s.Equal(domain.StatusPass, report.Snapshots[0].Status)

	// From the revocation onward it fails.
	report, err = s.service.CertificationsAsOf(s.ctx, s.employee, revokeAt.AddDate(0, 1, 0))
	s.Require().NoError(err)
	s.Equal(domain.StatusFail, report.Snapshots[0].Status)
}

func (s *ServiceSuite) TestLaterProofDoesNotLeak() {
	cert, err := s.certService.Create(s.ctx, certification.CreateInput{
		EmployeeID: s.employee,
		Type:       "Flagging Certification",
	})
	s.Require().NoError(err)

	proofAt := s.now.AddDate(0, 2, 0)
	issued := s.now.AddDate(0, 1, 0)
	expires := s.now.AddDate(2, 0, 0)
	_, err = s.certService.RecordProof(s.at(proofAt), cert.ID, issued, &expires, "s3://proofs/flag.pdf")
	s.Require().NoError(err)

	report, err := s.service.CertificationsAsOf(s.ctx, s.employee, s.now.AddDate(0, 1, 0))
	s.Require().NoError(err)
	s.Require().Len(report.Snapshots, 1)
	s.Equal(domain.StatusIncomplete, report.Snapshots[0].Status)

	report, err = s.service.CertificationsAsOf(s.ctx, s.employee, proofAt.AddDate(0, 1, 0))
	s.Require().NoError(err)
	s.Equal(domain.StatusPass, report.Snapshots[0].Status)
}

func (s *ServiceSuite) TestLaterCorrectionDoesNotLeak() {
	issued := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	wrongExpiry := s.now.AddDate(0, -1, 0)
	cert, err := s.certService.Create(s.ctx, certification.CreateInput{
		EmployeeID:     s.employee,
		Type:           "Roadway Worker Protection",
		IssueDate:      &issued,
		ExpirationDate: &wrongExpiry,
		ProofRef:       "s3://proofs/rwp.pdf",
	})
	s.Require().NoError(err)

	correctAt := s.now.AddDate(0, 2, 0)
	rightExpiry := s.now.AddDate(2, 0, 0)
	_, err = s.certService.Correct(s.at(correctAt), cert.ID, "expiry transposed",
		certification.CorrectionData{ExpirationDate: &rightExpiry})
	s.Require().NoError(err)

	// Before the correction only the original exists, already expired.
	report, err := s.service.CertificationsAsOf(s.ctx, s.employee, s.now)
	s.Require().NoError(err)
	s.Require().Len(report.Snapshots, 1)
	s.Equal(cert.ID, report.Snapshots[0].CertificationID)
	s.Equal(domain.StatusFail, report.Snapshots[0].Status)

	// After the correction the corrected row supersedes it.
	report, err = s.service.CertificationsAsOf(s.ctx, s.employee, correctAt.AddDate(0, 1, 0))
	s.Require().NoError(err)
	s.Require().Len(report.Snapshots, 1)
	s.NotEqual(cert.ID, report.Snapshots[0].CertificationID)
	s.Equal(domain.StatusPass, report.Snapshots[0].Status)
}

func (s *ServiceSuite) TestRegulatorAccessIsLogged() {
	regulator := requestcontext.WithActor(
		requestcontext.WithTime(context.Background(), s.now), domain.ActorRegulator, "fra-inspector-7")

	_, err := s.service.CertificationsAsOf(regulator, s.employee, s.now)
	s.Require().NoError(err)

	nodes, err := s.ledger.ListNodesByEntity(s.ctx, employee.EntityType, s.employee.String())
	s.Require().NoError(err)
	s.Require().Len(nodes, 1)
	s.Equal(domain.ActorRegulator, nodes[0].ActorType)

	entries, err := s.ledger.ListEntries(s.ctx, nodes[0].ID)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(evidence.EventHistoryAccessed, entries[0].EventType)
}

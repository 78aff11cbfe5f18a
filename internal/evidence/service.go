package evidence

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"railledger/pkg/domain"
	dErrors "railledger/pkg/domain-errors"
	"railledger/pkg/platform/sentinel"
	"railledger/pkg/requestcontext"
)

var tracer = otel.Tracer("railledger/evidence")

// Service is the sole sanctioned write path into audited entities. It owns
// evidence nodes and ledger entries exclusively; domain services mutate their
// own rows only through WithEvidence.
type Service struct {
	store  Store
	runner TxRunner
	logger *slog.Logger
}

// NewService wires the evidence service.
func NewService(store Store, runner TxRunner, logger *slog.Logger) *Service {
	return &Service{store: store, runner: runner, logger: logger}
}

// Action is the domain mutation executed inside WithEvidence. It runs with
// the transaction in context, so every store call it makes joins the same
// commit. It returns the id of the entity it acted on; when the Record's
// EntityID was PendingEntityID this resolves the placeholder. The caller's
// domain result flows out via closure capture.
type Action func(ctx context.Context) (entityID string, err error)

// WithEvidence executes action and the evidence writes as one atomic unit:
// either the domain mutation, the node, and the ledger entry all commit, or
// none of them survive. Returns the node recorded for the action.
func (s *Service) WithEvidence(ctx context.Context, rec Record, action Action) (*Node, error) {
	ctx, span := tracer.Start(ctx, "evidence.WithEvidence",
		trace.WithAttributes(
			attribute.String("entity_type", rec.EntityType),
			attribute.String("event_type", rec.EventType),
		))
	defer span.End()

	if err := validateRecord(rec); err != nil {
		return nil, err
	}

	var node *Node
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		entityID, err := action(ctx)
		if err != nil {
			return err
		}
		if rec.EntityID == PendingEntityID || rec.EntityID == "" {
			rec.EntityID = entityID
		}
		if rec.EntityID == "" || rec.EntityID == PendingEntityID {
			return dErrors.New(dErrors.CodeBadRequest, "entity id unresolved after action")
		}

		node, err = s.writeNode(ctx, rec)
		if err != nil {
			return err
		}
		_, err = s.appendToNode(ctx, node.ID, rec.EventType, rec.Payload, "")
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "evidence recorded",
		"node_id", node.ID.String(),
		"entity_type", rec.EntityType,
		"entity_id", rec.EntityID,
		"event_type", rec.EventType,
		"actor_type", rec.ActorType.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return node, nil
}

// WriteEvidenceNode creates a node outside a domain mutation. Used by flows
// that audit without mutating, e.g. logging a regulator's read access.
func (s *Service) WriteEvidenceNode(ctx context.Context, entityType, entityID string, actorType domain.ActorType, actorID string) (*Node, error) {
	switch {
	case entityType == "":
		return nil, dErrors.New(dErrors.CodeBadRequest, "entity type is required")
	case entityID == "":
		return nil, dErrors.New(dErrors.CodeBadRequest, "entity id is required")
	case !actorType.IsValid():
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid actor type")
	case actorID == "":
		return nil, dErrors.New(dErrors.CodeBadRequest, "actor id is required")
	}
	return s.writeNode(ctx, Record{EntityType: entityType, EntityID: entityID, ActorType: actorType, ActorID: actorID})
}

// AppendLedgerEntry appends one fact to an existing node, extending its hash
// chain. Fails with a not-found error when the node does not exist.
func (s *Service) AppendLedgerEntry(ctx context.Context, nodeID domain.EvidenceNodeID, eventType string, payload Payload) (*LedgerEntry, error) {
	if eventType == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "event type is required")
	}
	if _, err := s.store.GetNode(ctx, nodeID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "evidence node not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load evidence node")
	}

	prevHash := ""
	latest, err := s.store.LatestEntry(ctx, nodeID)
	switch {
	case err == nil:
		prevHash = latest.Hash
	case errors.Is(err, sentinel.ErrNotFound):
		// first entry of the node
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load chain head")
	}

	return s.appendToNode(ctx, nodeID, eventType, payload, prevHash)
}

// Node returns one evidence node by id.
func (s *Service) Node(ctx context.Context, id domain.EvidenceNodeID) (*Node, error) {
	node, err := s.store.GetNode(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "evidence node not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "get evidence node")
	}
	return node, nil
}

// Entries returns a node's ledger entries, oldest first.
func (s *Service) Entries(ctx context.Context, id domain.EvidenceNodeID) ([]LedgerEntry, error) {
	entries, err := s.store.ListEntries(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list ledger entries")
	}
	return entries, nil
}

// Trail returns an entity's evidence nodes with their entries, oldest first.
func (s *Service) Trail(ctx context.Context, entityType, entityID string) ([]Node, map[string][]LedgerEntry, error) {
	nodes, err := s.store.ListNodesByEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "list evidence nodes")
	}
	entries := make(map[string][]LedgerEntry, len(nodes))
	for _, n := range nodes {
		es, err := s.store.ListEntries(ctx, n.ID)
		if err != nil {
			return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "list ledger entries")
		}
		entries[n.ID.String()] = es
	}
	return nodes, entries, nil
}

// LatestEntryAt returns the newest ledger fact recorded against an entity at
// or before the given time, or nil when nothing had been recorded yet.
// Point-in-time reconstruction reports it as the provenance of a snapshot.
func (s *Service) LatestEntryAt(ctx context.Context, entityType, entityID string, at time.Time) (*LedgerEntry, error) {
	entry, err := s.store.LatestEntryForEntityBefore(ctx, entityType, entityID, at)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load latest ledger entry")
	}
	return entry, nil
}

// VerifyTrail recomputes the hash chain of every node recorded against an
// entity. A chain error here means stored history was tampered with.
func (s *Service) VerifyTrail(ctx context.Context, entityType, entityID string) error {
	nodes, err := s.store.ListNodesByEntity(ctx, entityType, entityID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "list evidence nodes")
	}
	for _, n := range nodes {
		entries, err := s.store.ListEntries(ctx, n.ID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "list ledger entries")
		}
		if err := VerifyChain(entries); err != nil {
			return dErrors.Wrap(err, dErrors.CodeIntegrity, "ledger chain broken")
		}
	}
	return nil
}

func (s *Service) writeNode(ctx context.Context, rec Record) (*Node, error) {
	node := &Node{
		ID:         domain.NewEvidenceNodeID(),
		EntityType: rec.EntityType,
		EntityID:   rec.EntityID,
		ActorType:  rec.ActorType,
		ActorID:    rec.ActorID,
		CreatedAt:  requestcontext.Now(ctx),
	}
	if err := s.store.CreateNode(ctx, node); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create evidence node")
	}
	return node, nil
}

func (s *Service) appendToNode(ctx context.Context, nodeID domain.EvidenceNodeID, eventType string, payload Payload, prevHash string) (*LedgerEntry, error) {
	entry := LedgerEntry{
		ID:        domain.NewLedgerEntryID(),
		NodeID:    nodeID,
		EventType: eventType,
		Payload:   payload,
		PrevHash:  prevHash,
		CreatedAt: requestcontext.Now(ctx),
	}
	hash, err := ComputeEntryHash(entry)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "hash ledger entry")
	}
	entry.Hash = hash
	if err := s.store.AppendEntry(ctx, &entry); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "evidence node not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "append ledger entry")
	}
	return &entry, nil
}

func validateRecord(rec Record) error {
	switch {
	case rec.EntityType == "":
		return dErrors.New(dErrors.CodeBadRequest, "entity type is required")
	case rec.EventType == "":
		return dErrors.New(dErrors.CodeBadRequest, "event type is required")
	case !rec.ActorType.IsValid():
		return dErrors.New(dErrors.CodeBadRequest, "invalid actor type")
	case rec.ActorID == "":
		return dErrors.New(dErrors.CodeBadRequest, "actor id is required")
	}
	return nil
}

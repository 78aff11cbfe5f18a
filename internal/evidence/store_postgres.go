package evidence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"railledger/pkg/domain"
	"railledger/pkg/platform/sentinel"
	txcontext "railledger/pkg/platform/tx"
)

// Postgres persists nodes, entries, and the outbox. Every statement passes
// through the append-only guard; the schema's BEFORE UPDATE/DELETE triggers
// are the engine-level backstop (docs/schema/sql/schema.sql).
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed evidence store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) execer(ctx context.Context) txcontext.Executor {
	return guarded(txcontext.ExecutorFor(ctx, s.db))
}

func (s *Postgres) CreateNode(ctx context.Context, node *Node) error {
	query := `
		INSERT INTO evidence_nodes (id, entity_type, entity_id, actor_type, actor_id, created_at, archived)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(node.ID),
		node.EntityType,
		node.EntityID,
		string(node.ActorType),
		node.ActorID,
		node.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert evidence node: %w", err)
	}
	return nil
}

func (s *Postgres) GetNode(ctx context.Context, id domain.EvidenceNodeID) (*Node, error) {
	query := `
		SELECT id, entity_type, entity_id, actor_type, actor_id, created_at, archived, archived_at
		FROM evidence_nodes
		WHERE id = $1
	`
	node, err := scanNode(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(id)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get evidence node: %w", err)
	}
	return node, nil
}

func (s *Postgres) AppendEntry(ctx context.Context, entry *LedgerEntry) error {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return fmt.Errorf("marshal ledger payload: %w", err)
	}

	exec := s.execer(ctx)
	query := `
		INSERT INTO ledger_entries (id, node_id, event_type, payload, prev_hash, hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = exec.ExecContext(ctx, query,
		uuid.UUID(entry.ID),
		uuid.UUID(entry.NodeID),
		entry.EventType,
		payload,
		entry.PrevHash,
		entry.Hash,
		entry.CreatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "foreign_key_violation" {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("insert ledger entry: %w", err)
	}

	// Same transaction as the entry: the outbox row exists iff the entry
	// committed.
	outboxQuery := `
		INSERT INTO ledger_outbox (entry_id, node_id, event_type, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err = exec.ExecContext(ctx, outboxQuery,
		uuid.UUID(entry.ID),
		uuid.UUID(entry.NodeID),
		entry.EventType,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

func (s *Postgres) ListEntries(ctx context.Context, nodeID domain.EvidenceNodeID) ([]LedgerEntry, error) {
	query := `
		SELECT id, node_id, event_type, payload, prev_hash, hash, created_at
		FROM ledger_entries
		WHERE node_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(nodeID))
	if err != nil {
		return nil, fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *Postgres) LatestEntry(ctx context.Context, nodeID domain.EvidenceNodeID) (*LedgerEntry, error) {
	query := `
		SELECT id, node_id, event_type, payload, prev_hash, hash, created_at
		FROM ledger_entries
		WHERE node_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	entry, err := scanEntry(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(nodeID)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get latest ledger entry: %w", err)
	}
	return entry, nil
}

func (s *Postgres) ListNodesByEntity(ctx context.Context, entityType, entityID string) ([]Node, error) {
	query := `
		SELECT id, entity_type, entity_id, actor_type, actor_id, created_at, archived, archived_at
		FROM evidence_nodes
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("query evidence nodes: %w", err)
	}
	defer rows.Close()

	var nodes []Node
	for rows.Next() {
		node, err := scanNodeRows(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, *node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evidence nodes: %w", err)
	}
	return nodes, nil
}

func (s *Postgres) LatestEntryForEntityBefore(ctx context.Context, entityType, entityID string, at time.Time) (*LedgerEntry, error) {
	query := `
		SELECT e.id, e.node_id, e.event_type, e.payload, e.prev_hash, e.hash, e.created_at
		FROM ledger_entries e
		JOIN evidence_nodes n ON n.id = e.node_id
		WHERE n.entity_type = $1 AND n.entity_id = $2 AND e.created_at <= $3
		ORDER BY e.created_at DESC, e.id DESC
		LIMIT 1
	`
	entry, err := scanEntry(s.execer(ctx).QueryRowContext(ctx, query, entityType, entityID, at))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get latest entry before: %w", err)
	}
	return entry, nil
}

func (s *Postgres) ArchiveNodesBefore(ctx context.Context, cutoff, archivedAt time.Time) (int64, error) {
	res, err := s.execer(ctx).ExecContext(ctx, archivalStatement, cutoff, archivedAt)
	if err != nil {
		return 0, fmt.Errorf("archive evidence nodes: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("archive evidence nodes: %w", err)
	}
	return n, nil
}

func (s *Postgres) PendingOutbox(ctx context.Context, limit int) ([]OutboxEntry, error) {
	query := `
		SELECT entry_id, node_id, event_type, created_at, published_at
		FROM ledger_outbox
		WHERE published_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending outbox: %w", err)
	}
	defer rows.Close()

	var out []OutboxEntry
	for rows.Next() {
		var (
			o       OutboxEntry
			entryID uuid.UUID
			nodeID  uuid.UUID
		)
		if err := rows.Scan(&entryID, &nodeID, &o.EventType, &o.CreatedAt, &o.PublishedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		o.EntryID = domain.LedgerEntryID(entryID)
		o.NodeID = domain.EvidenceNodeID(nodeID)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox entries: %w", err)
	}
	return out, nil
}

func (s *Postgres) MarkPublished(ctx context.Context, entryIDs []domain.LedgerEntryID, at time.Time) error {
	ids := make([]uuid.UUID, len(entryIDs))
	for i, id := range entryIDs {
		ids[i] = uuid.UUID(id)
	}
	query := `
		UPDATE ledger_outbox
		SET published_at = $2
		WHERE entry_id = ANY($1)
	`
	if _, err := s.execer(ctx).ExecContext(ctx, query, pq.Array(ids), at); err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner) (*Node, error) {
	var (
		node      Node
		id        uuid.UUID
		actorType string
	)
	err := row.Scan(&id, &node.EntityType, &node.EntityID, &actorType, &node.ActorID,
		&node.CreatedAt, &node.Archived, &node.ArchivedAt)
	if err != nil {
		return nil, err
	}
	node.ID = domain.EvidenceNodeID(id)
	node.ActorType = domain.ActorType(actorType)
	return &node, nil
}

func scanNodeRows(rows *sql.Rows) (*Node, error) {
	node, err := scanNode(rows)
	if err != nil {
		return nil, fmt.Errorf("scan evidence node: %w", err)
	}
	return node, nil
}

func scanEntry(row rowScanner) (*LedgerEntry, error) {
	var (
		entry   LedgerEntry
		id      uuid.UUID
		nodeID  uuid.UUID
		payload []byte
	)
	err := row.Scan(&id, &nodeID, &entry.EventType, &payload, &entry.PrevHash, &entry.Hash, &entry.CreatedAt)
	if err != nil {
		return nil, err
	}
	entry.ID = domain.LedgerEntryID(id)
	entry.NodeID = domain.EvidenceNodeID(nodeID)
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &entry.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal ledger payload: %w", err)
		}
	}
	return &entry, nil
}

func scanEntries(rows *sql.Rows) ([]LedgerEntry, error) {
	var entries []LedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return entries, nil
}

package evidence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"railledger/pkg/domain"
)

// ledgerMessage is the JSON shape published to the stream. Downstream
// consumers (SIEM, regulator feeds) verify the chain with prev_hash/hash.
type ledgerMessage struct {
	EntryID    string  `json:"entry_id"`
	NodeID     string  `json:"node_id"`
	EntityType string  `json:"entity_type"`
	EntityID   string  `json:"entity_id"`
	ActorType  string  `json:"actor_type"`
	ActorID    string  `json:"actor_id"`
	EventType  string  `json:"event_type"`
	Payload    Payload `json:"payload,omitempty"`
	PrevHash   string  `json:"prev_hash,omitempty"`
	Hash       string  `json:"hash"`
	CreatedAt  string  `json:"created_at"`
}

// Publisher drains the transactional outbox to Kafka. Events are produced
// keyed by entity id so one entity's history stays ordered within a
// partition. At-least-once delivery: a crash between produce and mark
// republishes, consumers dedupe on entry_id.
type Publisher struct {
	store    OutboxStore
	client   *kgo.Client
	topic    string
	logger   *slog.Logger
	interval time.Duration
	batch    int
}

// NewPublisher wires the outbox publisher.
func NewPublisher(store OutboxStore, client *kgo.Client, topic string, logger *slog.Logger) *Publisher {
	return &Publisher{
		store:    store,
		client:   client,
		topic:    topic,
		logger:   logger,
		interval: time.Second,
		batch:    100,
	}
}

// EnsureTopic creates the ledger topic if it does not exist.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, 3, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

// Run polls the outbox until the context ends.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n, err := p.publishOnce(ctx); err != nil {
				p.logger.ErrorContext(ctx, "outbox publish failed", "error", err)
			} else if n > 0 {
				p.logger.DebugContext(ctx, "outbox drained", "published", n)
			}
		}
	}
}

func (p *Publisher) publishOnce(ctx context.Context) (int, error) {
	pending, err := p.store.PendingOutbox(ctx, p.batch)
	if err != nil {
		return 0, fmt.Errorf("load pending outbox: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	var records []*kgo.Record
	var published []domain.LedgerEntryID
	for _, o := range pending {
		msg, err := p.buildMessage(ctx, o)
		if err != nil {
			return 0, err
		}
		value, err := json.Marshal(msg)
		if err != nil {
			return 0, fmt.Errorf("marshal ledger message: %w", err)
		}
		records = append(records, &kgo.Record{
			Topic: p.topic,
			Key:   []byte(msg.EntityID),
			Value: value,
		})
		published = append(published, o.EntryID)
	}

	if err := p.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return 0, fmt.Errorf("produce ledger records: %w", err)
	}
	if err := p.store.MarkPublished(ctx, published, time.Now().UTC()); err != nil {
		return 0, fmt.Errorf("mark outbox published: %w", err)
	}
	return len(published), nil
}

func (p *Publisher) buildMessage(ctx context.Context, o OutboxEntry) (*ledgerMessage, error) {
	node, err := p.store.GetNode(ctx, o.NodeID)
	if err != nil {
		return nil, fmt.Errorf("load node %s: %w", o.NodeID, err)
	}
	entries, err := p.store.ListEntries(ctx, o.NodeID)
	if err != nil {
		return nil, fmt.Errorf("load entries for node %s: %w", o.NodeID, err)
	}
	for _, e := range entries {
		if e.ID == o.EntryID {
			return &ledgerMessage{
				EntryID:    e.ID.String(),
				NodeID:     node.ID.String(),
				EntityType: node.EntityType,
				EntityID:   node.EntityID,
				ActorType:  node.ActorType.String(),
				ActorID:    node.ActorID,
				EventType:  e.EventType,
				Payload:    e.Payload,
				PrevHash:   e.PrevHash,
				Hash:       e.Hash,
				CreatedAt:  e.CreatedAt.UTC().Format(time.RFC3339Nano),
			}, nil
		}
	}
	return nil, fmt.Errorf("outbox entry %s missing from ledger", o.EntryID)
}

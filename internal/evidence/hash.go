package evidence

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// hashPayload is exactly what we hash. encoding/json marshals map keys in
// sorted order, so the nested Payload serializes canonically without a manual
// key sort.
type hashPayload struct {
	ID         string  `json:"id"`
	NodeID     string  `json:"node_id"`
	EventType  string  `json:"event_type"`
	AtUnixNano int64   `json:"at_unix_nano"`
	PrevHash   string  `json:"prev_hash,omitempty"`
	Payload    Payload `json:"payload,omitempty"`
}

// ComputeEntryHash returns the hex SHA-256 over the entry's canonical form.
// The Hash field itself is never part of the input, so verification can
// recompute directly from a stored entry.
func ComputeEntryHash(e LedgerEntry) (string, error) {
	p := hashPayload{
		ID:         e.ID.String(),
		NodeID:     e.NodeID.String(),
		EventType:  e.EventType,
		AtUnixNano: e.CreatedAt.UnixNano(),
		PrevHash:   e.PrevHash,
		Payload:    e.Payload,
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal hash payload: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// ChainError tells you exactly which entry broke the chain and why.
type ChainError struct {
	NodeID  string
	EntryID string
	Index   int
	Reason  string
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("ledger chain verification failed: node=%s entry=%s index=%d reason=%s",
		e.NodeID, e.EntryID, e.Index, e.Reason)
}

// VerifyChain checks the hash chain of one node's entries (creation-time
// ascending). It detects edits to any field, deleted or re-ordered entries,
// and entries inserted mid-chain.
func VerifyChain(entries []LedgerEntry) error {
	var prevHash string
	for i, e := range entries {
		if i == 0 {
			if e.PrevHash != "" {
				return &ChainError{NodeID: e.NodeID.String(), EntryID: e.ID.String(), Index: i,
					Reason: "first entry prev_hash must be empty"}
			}
		} else if e.PrevHash != prevHash {
			return &ChainError{NodeID: e.NodeID.String(), EntryID: e.ID.String(), Index: i,
				Reason: fmt.Sprintf("prev_hash mismatch (expected %s, got %s)", short(prevHash), short(e.PrevHash))}
		}

		expected, err := ComputeEntryHash(e)
		if err != nil {
			return err
		}
		if e.Hash != expected {
			return &ChainError{NodeID: e.NodeID.String(), EntryID: e.ID.String(), Index: i,
				Reason: fmt.Sprintf("hash mismatch (expected %s, got %s)", short(expected), short(e.Hash))}
		}
		prevHash = e.Hash
	}
	return nil
}

func short(s string) string {
	if len(s) <= 10 {
		return s
	}
	return s[:10]
}

package evidence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"railledger/pkg/domain"
)

func chainEntries(t *testing.T, nodeID domain.EvidenceNodeID, eventTypes ...string) []LedgerEntry {
	t.Helper()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	var entries []LedgerEntry
	prevHash := ""
	for i, et := range eventTypes {
		e := LedgerEntry{
			ID:        domain.NewLedgerEntryID(),
			NodeID:    nodeID,
			EventType: et,
			Payload:   Payload{"seq": i},
			PrevHash:  prevHash,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		hash, err := ComputeEntryHash(e)
		require.NoError(t, err)
		e.Hash = hash
		entries = append(entries, e)
		prevHash = hash
	}
	return entries
}

func TestComputeEntryHash(t *testing.T) {
	nodeID := domain.NewEvidenceNodeID()
	entry := LedgerEntry{
		ID:        domain.NewLedgerEntryID(),
		NodeID:    nodeID,
		EventType: EventCertificationCreated,
		Payload: Payload{
			"certification_type": "roadway_worker_protection",
			"dates":              map[string]any{"issue": "2025-01-01", "expiration": "2026-01-01"},
		},
		CreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	t.Run("is deterministic", func(t *testing.T) {
		h1, err := ComputeEntryHash(entry)
		require.NoError(t, err)
		h2, err := ComputeEntryHash(entry)
		require.NoError(t, err)
		assert.Equal(t, h1, h2)
	})

	t.Run("ignores the stored hash field", func(t *testing.T) {
		h1, err := ComputeEntryHash(entry)
		require.NoError(t, err)
		withHash := entry
		withHash.Hash = "anything"
		h2, err := ComputeEntryHash(withHash)
		require.NoError(t, err)
		assert.Equal(t, h1, h2)
	})

	t.Run("changes when any field changes", func(t *testing.T) {
		h1, err := ComputeEntryHash(entry)
		require.NoError(t, err)
		edited := entry
		edited.Payload = Payload{
			"certification_type": "roadway_worker_protection",
			"dates":              map[string]any{"issue": "2025-01-01", "expiration": "2027-01-01"},
		}
		h2, err := ComputeEntryHash(edited)
		require.NoError(t, err)
		assert.NotEqual(t, h1, h2)
	})
}

func TestVerifyChain(t *testing.T) {
	nodeID := domain.NewEvidenceNodeID()

	t.Run("accepts empty and intact chains", func(t *testing.T) {
		require.NoError(t, VerifyChain(nil))
		entries := chainEntries(t, nodeID, EventCertificationCreated, EventCertificationUpdated, EventCertificationExpired)
		require.NoError(t, VerifyChain(entries))
	})

	t.Run("detects an edited payload", func(t *testing.T) {
		entries := chainEntries(t, nodeID, EventCertificationCreated, EventCertificationUpdated)
		entries[0].Payload["seq"] = 99

		err := VerifyChain(entries)
		require.Error(t, err)
		var chainErr *ChainError
		require.ErrorAs(t, err, &chainErr)
		assert.Equal(t, 0, chainErr.Index)
	})

	t.Run("detects a deleted entry", func(t *testing.T) {
		entries := chainEntries(t, nodeID, EventCertificationCreated, EventCertificationUpdated, EventCertificationExpired)
		tampered := []LedgerEntry{entries[0], entries[2]}

		err := VerifyChain(tampered)
		require.Error(t, err)
		var chainErr *ChainError
		require.ErrorAs(t, err, &chainErr)
		assert.Equal(t, 1, chainErr.Index)
	})

	t.Run("detects a non-empty first prev_hash", func(t *testing.T) {
		entries := chainEntries(t, nodeID, EventCertificationCreated)
		entries[0].PrevHash = "deadbeef"

		err := VerifyChain(entries)
		require.Error(t, err)
	})
}

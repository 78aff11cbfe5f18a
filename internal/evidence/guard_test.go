package evidence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "railledger/pkg/domain-errors"
)

func TestCheckAppendOnly(t *testing.T) {
	t.Run("allows inserts and selects", func(t *testing.T) {
		assert.NoError(t, CheckAppendOnly(`INSERT INTO evidence_nodes (id) VALUES ($1)`))
		assert.NoError(t, CheckAppendOnly(`INSERT INTO ledger_entries (id) VALUES ($1)`))
		assert.NoError(t, CheckAppendOnly(`SELECT * FROM evidence_nodes`))
	})

	t.Run("rejects updates against append-only tables", func(t *testing.T) {
		err := CheckAppendOnly(`UPDATE evidence_nodes SET entity_id = $1 WHERE id = $2`)
		require.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeIntegrity))

		err = CheckAppendOnly(`UPDATE ledger_entries SET payload = $1 WHERE id = $2`)
		require.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeIntegrity))
	})

	t.Run("rejects deletes against append-only tables", func(t *testing.T) {
		err := CheckAppendOnly(`DELETE FROM ledger_entries WHERE id = $1`)
		require.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeIntegrity))

		err = CheckAppendOnly(`DELETE FROM evidence_nodes`)
		require.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeIntegrity))
	})

	t.Run("rejects regardless of casing and whitespace", func(t *testing.T) {
		err := CheckAppendOnly("  update \n Evidence_Nodes \t set archived = true")
		require.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeIntegrity))
	})

	t.Run("allows the sanctioned archival statement only", func(t *testing.T) {
		assert.NoError(t, CheckAppendOnly(archivalStatement))

		// Any deviation from the archival statement is a violation.
		err := CheckAppendOnly(`UPDATE evidence_nodes SET archived = TRUE WHERE created_at < $1`)
		require.Error(t, err)
	})

	t.Run("allows mutations of other tables", func(t *testing.T) {
		assert.NoError(t, CheckAppendOnly(`UPDATE ledger_outbox SET published_at = $2 WHERE entry_id = ANY($1)`))
		assert.NoError(t, CheckAppendOnly(`UPDATE certification_enforcements SET is_blocked = $1`))
	})
}

// failingExecutor records whether the driver was reached.
type failingExecutor struct {
	reached bool
}

func (f *failingExecutor) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	f.reached = true
	return nil, nil
}

func (f *failingExecutor) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	f.reached = true
	return nil, nil
}

func (f *failingExecutor) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	f.reached = true
	return nil
}

func TestGuardedExecutorBlocksBeforeStorage(t *testing.T) {
	inner := &failingExecutor{}
	exec := guarded(inner)

	_, err := exec.ExecContext(context.Background(), `DELETE FROM evidence_nodes WHERE id = $1`)
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeIntegrity))
	assert.False(t, inner.reached, "rejected statement must never reach the driver")

	_, err = exec.ExecContext(context.Background(), `INSERT INTO evidence_nodes (id) VALUES ($1)`)
	require.NoError(t, err)
	assert.True(t, inner.reached)
}

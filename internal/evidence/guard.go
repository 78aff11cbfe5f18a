package evidence

import (
	"context"
	"database/sql"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	dErrors "railledger/pkg/domain-errors"
	"railledger/pkg/platform/tx"
)

// A firing guard indicates a bypass attempt somewhere in the codebase; ops
// alert on this counter.
var appendOnlyViolations = promauto.NewCounter(prometheus.CounterOpts{
	Name: "railledger_append_only_violations_total",
	Help: "Rejected UPDATE/DELETE attempts against append-only evidence tables",
})

// appendOnlyTables are the tables no code path may update or delete from.
// The guard holds regardless of caller discipline: every statement the
// Postgres store executes passes through it, and the schema carries BEFORE
// UPDATE/DELETE triggers as the engine-level backstop (docs/schema/sql).
var appendOnlyTables = []string{"evidence_nodes", "ledger_entries"}

// archivalStatement is the one sanctioned mutation: the retention sweep
// setting the archived flag. Anything else touching an append-only table with
// UPDATE or DELETE is rejected before it reaches the driver.
const archivalStatement = `
	UPDATE evidence_nodes
	SET archived = TRUE, archived_at = $2
	WHERE archived = FALSE AND created_at < $1
`

// CheckAppendOnly rejects UPDATE/DELETE statements against the append-only
// tables. Exported so tests can pin the guard's behavior directly.
func CheckAppendOnly(query string) error {
	norm := strings.ToLower(strings.Join(strings.Fields(query), " "))
	if !strings.HasPrefix(norm, "update ") && !strings.HasPrefix(norm, "delete ") {
		return nil
	}
	for _, table := range appendOnlyTables {
		if !strings.Contains(norm, table) {
			continue
		}
		if norm == strings.ToLower(strings.Join(strings.Fields(archivalStatement), " ")) {
			return nil
		}
		appendOnlyViolations.Inc()
		return dErrors.New(dErrors.CodeIntegrity, "attempted mutation of append-only table "+table)
	}
	return nil
}

// guardedExecutor wraps a SQL executor and screens every statement through
// CheckAppendOnly. A rejected statement never reaches storage.
type guardedExecutor struct {
	inner tx.Executor
}

func guarded(inner tx.Executor) tx.Executor {
	return guardedExecutor{inner: inner}
}

func (g guardedExecutor) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if err := CheckAppendOnly(query); err != nil {
		return nil, err
	}
	return g.inner.ExecContext(ctx, query, args...)
}

func (g guardedExecutor) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return g.inner.QueryContext(ctx, query, args...)
}

func (g guardedExecutor) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return g.inner.QueryRowContext(ctx, query, args...)
}

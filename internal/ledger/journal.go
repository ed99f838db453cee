package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/provenance/pkg/types"
)

// journal reads and writes the journal column of projects or experiments.
// When scope is set, rows are additionally matched on scope = scopeID.
type journal struct {
	db      Executor
	table   string
	entity  string
	scope   string
	scopeID uuid.UUID
}

func (j journal) where(id uuid.UUID) (string, []any) {
	if j.scope == "" {
		return "uuid = ?", []any{id}
	}
	return "uuid = ? AND " + j.scope + " = ?", []any{id, j.scopeID}
}

func (j journal) get(ctx context.Context, id uuid.UUID) (string, error) {
	cond, args := j.where(id)
	var text sql.NullString
	err := j.db.QueryRow(ctx, "SELECT journal FROM "+j.table+" WHERE "+cond, args...).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", types.NotFound(j.entity, id.String())
	}
	if err != nil {
		return "", storeErr(err, j.entity, id.String(), "")
	}
	return text.String, nil
}

func (j journal) set(ctx context.Context, id uuid.UUID, text string) error {
	cond, args := j.where(id)
	return j.exec(ctx, id, "UPDATE "+j.table+" SET journal = ? WHERE "+cond, append([]any{text}, args...))
}

func (j journal) append(ctx context.Context, id uuid.UUID, text string) error {
	cond, args := j.where(id)
	return j.exec(ctx, id, "UPDATE "+j.table+" SET journal = COALESCE(journal, '') || ? WHERE "+cond, append([]any{text}, args...))
}

func (j journal) exec(ctx context.Context, id uuid.UUID, query string, args []any) error {
	res, err := j.db.Exec(ctx, query, args...)
	if err != nil {
		return storeErr(err, j.entity, id.String(), "")
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return types.NotFound(j.entity, id.String())
	}
	return nil
}

// JournalEntry formats an appended journal entry: a blank line, a
// "### <local time>" header, a blank line, then the message.
func JournalEntry(at time.Time, message string) string {
	return fmt.Sprintf("\n### %s\n\n%s", at.Format("2006-01-02 15:04:05"), message)
}

package auditchain

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"

	"lca-platform/pkg/utils"
)

// PostgresRepo persists chain entries in the audit_chain table.
//
// Assumed schema:
// - PRIMARY KEY (id)
// - UNIQUE INDEX (resource_type, resource_id, block_number)
// - INSERT-only policy; optionally a trigger preventing UPDATE/DELETE.
//
// The unique index is load-bearing: should two genesis appends race on a
// brand-new scope, the second insert fails instead of forking the chain.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const entryColumns = `
id, resource_type, resource_id, action, content_hash, previous_hash,
block_number, actor, metadata, verified, created_at`

const insertEntrySQL = `
INSERT INTO audit_chain (` + entryColumns + `
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
)
`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertEntry(ctx context.Context, ex execer, e Entry) error {
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx, insertEntrySQL,
		e.ID, e.ResourceType, e.ResourceID, e.Action, e.ContentHash, e.PreviousHash,
		e.BlockNumber, e.Actor, string(meta), e.Verified, e.CreatedAt,
	)
	return err
}

func (r *PostgresRepo) Append(ctx context.Context, e Entry) error {
	return insertEntry(ctx, r.db, e)
}

// AppendChained runs the read-latest/append step inside one transaction.
// FOR UPDATE on the newest row blocks concurrent appends to the same scope
// until commit, so block numbers stay gapless and previous-hash links never
// skip an entry.
func (r *PostgresRepo) AppendChained(ctx context.Context, resourceType, resourceID string, build func(latest Entry, ok bool) Entry) (Entry, error) {
	const q = `
SELECT ` + entryColumns + `
FROM audit_chain
WHERE resource_type = $1 AND resource_id = $2
ORDER BY block_number DESC
LIMIT 1
FOR UPDATE
`
	var out Entry
	err := utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		var ok bool
		latest, err := scanEntry(tx.QueryRowContext(ctx, q, resourceType, resourceID))
		switch {
		case err == nil:
			ok = true
		case errors.Is(err, sql.ErrNoRows):
		default:
			return err
		}

		out = build(latest, ok)
		return insertEntry(ctx, tx, out)
	})
	if err != nil {
		return Entry{}, err
	}
	return out, nil
}

func (r *PostgresRepo) Latest(ctx context.Context, resourceType, resourceID string) (Entry, bool, error) {
	const q = `
SELECT ` + entryColumns + `
FROM audit_chain
WHERE resource_type = $1 AND resource_id = $2
ORDER BY block_number DESC
LIMIT 1
`
	e, err := scanEntry(r.db.QueryRowContext(ctx, q, resourceType, resourceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	return e, true, nil
}

func (r *PostgresRepo) List(ctx context.Context, f Filter) ([]Entry, error) {
	q := `SELECT ` + entryColumns + ` FROM audit_chain`
	var args []any
	switch {
	case f.ResourceType != "" && f.ResourceID != "":
		q += ` WHERE resource_type = $1 AND resource_id = $2`
		args = append(args, f.ResourceType, f.ResourceID)
	case f.ResourceType != "":
		q += ` WHERE resource_type = $1`
		args = append(args, f.ResourceType)
	}
	q += ` ORDER BY resource_type, resource_id, block_number`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += ` LIMIT $` + strconv.Itoa(len(args))
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var e Entry
	var meta string
	err := row.Scan(
		&e.ID, &e.ResourceType, &e.ResourceID, &e.Action, &e.ContentHash, &e.PreviousHash,
		&e.BlockNumber, &e.Actor, &meta, &e.Verified, &e.CreatedAt,
	)
	if err != nil {
		return Entry{}, err
	}
	if meta != "" && meta != "null" {
		if err := json.Unmarshal([]byte(meta), &e.Metadata); err != nil {
			return Entry{}, err
		}
	}
	return e, nil
}

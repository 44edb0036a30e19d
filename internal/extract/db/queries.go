package db

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const deleteRows = `DELETE FROM extracted_row WHERE cas = ?`

func (q *Queries) DeleteRows(ctx context.Context, cas string) error {
	_, err := q.db.ExecContext(ctx, deleteRows, cas)
	return err
}

const insertRow = `INSERT INTO extracted_row (cas, kind, position, cells) VALUES (?, ?, ?, ?)`

type InsertRowParams struct {
	Cas      string
	Kind     Kind
	Position int64
	Cells    string
}

func (q *Queries) InsertRow(ctx context.Context, arg InsertRowParams) error {
	_, err := q.db.ExecContext(ctx, insertRow, arg.Cas, arg.Kind, arg.Position, arg.Cells)
	return err
}

const touchExtraction = `INSERT INTO extraction (cas, extracted_at) VALUES (?, ?)
ON CONFLICT (cas) DO UPDATE SET extracted_at = excluded.extracted_at`

func (q *Queries) TouchExtraction(ctx context.Context, cas string, extractedAt int64) error {
	_, err := q.db.ExecContext(ctx, touchExtraction, cas, extractedAt)
	return err
}

const getRows = `SELECT position, cells FROM extracted_row
WHERE cas = ? AND kind = ?
ORDER BY position ASC`

type GetRowsRow struct {
	Position int64
	Cells    string
}

func (q *Queries) GetRows(ctx context.Context, cas string, kind Kind) ([]GetRowsRow, error) {
	rows, err := q.db.QueryContext(ctx, getRows, cas, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetRowsRow
	for rows.Next() {
		var i GetRowsRow
		if err := rows.Scan(&i.Position, &i.Cells); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getExtractedAt = `SELECT extracted_at FROM extraction WHERE cas = ?`

func (q *Queries) GetExtractedAt(ctx context.Context, cas string) (int64, error) {
	row := q.db.QueryRowContext(ctx, getExtractedAt, cas)
	var extractedAt int64
	err := row.Scan(&extractedAt)
	return extractedAt, err
}

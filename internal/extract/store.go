package extract

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cccbdb-harvester/internal/cas"
	"cccbdb-harvester/internal/extract/db"
	"cccbdb-harvester/pkg/sqliteutil"
)

// Store keeps extracted tables in sqlite, one row per table row with the
// cells encoded as a json array.
type Store struct {
	db  *sql.DB
	qry *db.Queries
}

func OpenStore(path string) (Store, error) {
	database, err := sqliteutil.OpenWithSchema(path, db.Schema)
	if err != nil {
		return Store{}, err
	}
	return NewStore(database), nil
}

func NewStore(database *sql.DB) Store {
	return Store{
		db:  database,
		qry: db.New(database),
	}
}

func (s Store) Close() error {
	return s.db.Close()
}

func insertTable(ctx context.Context, txqry *db.Queries, id cas.Number, kind db.Kind, table Table) error {
	for i, row := range table {
		cells, err := json.Marshal(row)
		if err != nil {
			return err
		}
		err = txqry.InsertRow(ctx, db.InsertRowParams{
			Cas:      id.String(),
			Kind:     kind,
			Position: int64(i),
			Cells:    string(cells),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Save replaces everything stored for id with tables.
func (s Store) Save(ctx context.Context, id cas.Number, tables Tables, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	err = txqry.DeleteRows(ctx, id.String())
	if err != nil {
		return fmt.Errorf("delete rows of %s: %w", id, err)
	}
	err = insertTable(ctx, txqry, id, db.KindVibrations, tables.Vibrations)
	if err != nil {
		return fmt.Errorf("insert vibrations of %s: %w", id, err)
	}
	err = insertTable(ctx, txqry, id, db.KindReferences, tables.References)
	if err != nil {
		return fmt.Errorf("insert references of %s: %w", id, err)
	}
	err = txqry.TouchExtraction(ctx, id.String(), now.Unix())
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (s Store) loadTable(ctx context.Context, id cas.Number, kind db.Kind) (Table, error) {
	rows, err := s.qry.GetRows(ctx, id.String(), kind)
	if err != nil {
		return nil, err
	}
	table := make(Table, len(rows))
	for i, r := range rows {
		err = json.Unmarshal([]byte(r.Cells), &table[i])
		if err != nil {
			return nil, fmt.Errorf("decode row %d of %s: %w", r.Position, id, err)
		}
	}
	return table, nil
}

// Load returns the tables stored for id, ok is false if id was never saved.
func (s Store) Load(ctx context.Context, id cas.Number) (tables Tables, extractedAt time.Time, ok bool, err error) {
	unix, err := s.qry.GetExtractedAt(ctx, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return Tables{}, time.Time{}, false, nil
	}
	if err != nil {
		return Tables{}, time.Time{}, false, err
	}

	tables.Vibrations, err = s.loadTable(ctx, id, db.KindVibrations)
	if err != nil {
		return Tables{}, time.Time{}, false, err
	}
	tables.References, err = s.loadTable(ctx, id, db.KindReferences)
	if err != nil {
		return Tables{}, time.Time{}, false, err
	}
	return tables, time.Unix(unix, 0), true, nil
}

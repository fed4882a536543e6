package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kasunvimarshana/TrackVault-sub000/store"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// querier is satisfied by both *sql.DB and *sql.Tx so the same statements
// serve direct calls and transaction-scoped calls.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type SQLiteRecordStore struct {
	db *sql.DB
	q  querier
}

func NewSQLiteRecordStore(file string) (*SQLiteRecordStore, error) {
	db, err := sql.Open("sqlite3", file)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite3 database %w", err)
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver %w", err)
	}

	migrationDriver, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source %w", err)
	}

	m, err := migrate.NewWithInstance(
		"iofs", migrationDriver,
		file, driver)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate migrations %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return nil, fmt.Errorf("failed to run migrations %w", err)
	}
	return &SQLiteRecordStore{db: db, q: db}, nil
}

func (s *SQLiteRecordStore) FindByID(ctx context.Context, id int64) (*store.Record, error) {
	row := s.q.QueryRowContext(ctx, "SELECT id, code, fields, version, updated_at FROM records WHERE id = ?", id)
	return scanRecord(row)
}

func (s *SQLiteRecordStore) Create(ctx context.Context, rec *store.Record) (*store.Record, error) {
	fieldsJSON, err := json.Marshal(rec.Fields)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record fields: %w", err)
	}
	now := time.Now().UTC()
	res, err := s.q.ExecContext(ctx,
		"INSERT INTO records (code, fields, version, updated_at) VALUES (?, ?, 1, ?)",
		rec.Code, fieldsJSON, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read inserted record id: %w", err)
	}
	created := &store.Record{
		ID:        id,
		Code:      rec.Code,
		Fields:    rec.Fields.Clone(),
		Version:   1,
		UpdatedAt: now,
	}
	return created, nil
}

func (s *SQLiteRecordStore) ConditionalUpdate(ctx context.Context, id int64, expectedVersion int64, fields store.Fields) (*store.Record, error) {
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record fields: %w", err)
	}
	now := time.Now().UTC()

	// Version check and write are a single conditional statement so the
	// store decides the race, not two separate steps.
	res, err := s.q.ExecContext(ctx,
		"UPDATE records SET fields = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?",
		fieldsJSON, now, id, expectedVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to update record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		if _, err := s.FindByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, store.ErrVersionConflict
	}
	return s.FindByID(ctx, id)
}

func (s *SQLiteRecordStore) ChangedSince(ctx context.Context, since *time.Time, limit int) ([]store.Record, error) {
	var rows *sql.Rows
	var err error
	if since == nil {
		rows, err = s.q.QueryContext(ctx,
			"SELECT id, code, fields, version, updated_at FROM records ORDER BY updated_at, id LIMIT ?", limit)
	} else {
		rows, err = s.q.QueryContext(ctx,
			"SELECT id, code, fields, version, updated_at FROM records WHERE updated_at > ? ORDER BY updated_at, id LIMIT ?",
			since.UTC(), limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	records := make([]store.Record, 0)
	for rows.Next() {
		var rec store.Record
		var fieldsJSON []byte
		if err := rows.Scan(&rec.ID, &rec.Code, &fieldsJSON, &rec.Version, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		if err := json.Unmarshal(fieldsJSON, &rec.Fields); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record fields: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteRecordStore) WithTx(ctx context.Context, fn func(store.RecordStore) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&SQLiteRecordStore{db: s.db, q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *SQLiteRecordStore) Close() error {
	return s.db.Close()
}

func scanRecord(row *sql.Row) (*store.Record, error) {
	var rec store.Record
	var fieldsJSON []byte
	err := row.Scan(&rec.ID, &rec.Code, &fieldsJSON, &rec.Version, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan record: %w", err)
	}
	if err := json.Unmarshal(fieldsJSON, &rec.Fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record fields: %w", err)
	}
	return &rec, nil
}

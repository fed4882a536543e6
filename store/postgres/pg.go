package postgres

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kasunvimarshana/TrackVault-sub000/store"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRecordStore struct {
	pool *pgxpool.Pool
	q    querier
}

func NewPgRecordStore(databaseURL string) (*PgRecordStore, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database %w", err)
	}
	defer db.Close()

	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver %w", err)
	}

	migrationDriver, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source %w", err)
	}

	m, err := migrate.NewWithInstance(
		"iofs", migrationDriver,
		"records", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate migrations %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return nil, fmt.Errorf("failed to run migrations %w", err)
	}

	pgxPool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New(%v): %w", databaseURL, err)
	}
	return &PgRecordStore{pool: pgxPool, q: pgxPool}, nil
}

func (s *PgRecordStore) FindByID(ctx context.Context, id int64) (*store.Record, error) {
	row := s.q.QueryRow(ctx, "SELECT id, code, fields, version, updated_at FROM records WHERE id = $1", id)
	return scanRecord(row)
}

func (s *PgRecordStore) Create(ctx context.Context, rec *store.Record) (*store.Record, error) {
	fieldsJSON, err := json.Marshal(rec.Fields)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record fields: %w", err)
	}
	now := time.Now().UTC()
	var id int64
	err = s.q.QueryRow(ctx,
		"INSERT INTO records (code, fields, version, updated_at) VALUES ($1, $2, 1, $3) RETURNING id",
		rec.Code, fieldsJSON, now).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to insert record: %w", err)
	}
	return &store.Record{
		ID:        id,
		Code:      rec.Code,
		Fields:    rec.Fields.Clone(),
		Version:   1,
		UpdatedAt: now,
	}, nil
}

func (s *PgRecordStore) ConditionalUpdate(ctx context.Context, id int64, expectedVersion int64, fields store.Fields) (*store.Record, error) {
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record fields: %w", err)
	}
	now := time.Now().UTC()

	// Version check and write are a single conditional statement so the
	// store decides the race, not two separate steps.
	tag, err := s.q.Exec(ctx,
		"UPDATE records SET fields = $1, version = version + 1, updated_at = $2 WHERE id = $3 AND version = $4",
		fieldsJSON, now, id, expectedVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to update record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.FindByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, store.ErrVersionConflict
	}
	return s.FindByID(ctx, id)
}

func (s *PgRecordStore) ChangedSince(ctx context.Context, since *time.Time, limit int) ([]store.Record, error) {
	var rows pgx.Rows
	var err error
	if since == nil {
		rows, err = s.q.Query(ctx,
			"SELECT id, code, fields, version, updated_at FROM records ORDER BY updated_at, id LIMIT $1", limit)
	} else {
		rows, err = s.q.Query(ctx,
			"SELECT id, code, fields, version, updated_at FROM records WHERE updated_at > $1 ORDER BY updated_at, id LIMIT $2",
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

func (s *PgRecordStore) WithTx(ctx context.Context, fn func(store.RecordStore) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel: pgx.Serializable,
	})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(context.Background())

	if err := fn(&PgRecordStore{pool: s.pool, q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *PgRecordStore) Close() error {
	s.pool.Close()
	return nil
}

func scanRecord(row pgx.Row) (*store.Record, error) {
	var rec store.Record
	var fieldsJSON []byte
	err := row.Scan(&rec.ID, &rec.Code, &fieldsJSON, &rec.Version, &rec.UpdatedAt)
	if err == pgx.ErrNoRows {
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

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"math/big"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/dreamware/primesplit/internal/interval"
	"github.com/dreamware/primesplit/internal/job"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id           TEXT PRIMARY KEY,
	status       TEXT NOT NULL,
	worker_count INTEGER NOT NULL,
	ranges       TEXT NOT NULL,
	total        TEXT,
	distribution TEXT,
	error        TEXT NOT NULL DEFAULT '',
	created_at   INTEGER NOT NULL,
	updated_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS jobs_created_at ON jobs (created_at DESC);
`

// SQLiteStore persists job records in a SQLite database so finished jobs
// survive a coordinator restart.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies
// the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite db")
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping sqlite db")
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "apply schema")
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the SQLite connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Create(ctx context.Context, rec *job.Record) error {
	row, err := encode(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO jobs (id, status, worker_count, ranges, total, distribution, error, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Status), rec.WorkerCount, row.ranges, row.total, row.distribution,
		rec.Error, rec.CreatedAt.UTC().UnixMilli(), rec.UpdatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return errors.Wrapf(err, "insert job %s", rec.ID)
	}
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, rec *job.Record) error {
	row, err := encode(rec)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
UPDATE jobs SET status = ?, worker_count = ?, ranges = ?, total = ?, distribution = ?, error = ?, updated_at = ?
WHERE id = ?`,
		string(rec.Status), rec.WorkerCount, row.ranges, row.total, row.distribution, rec.Error,
		rec.UpdatedAt.UTC().UnixMilli(), rec.ID,
	)
	if err != nil {
		return errors.Wrapf(err, "update job %s", rec.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "update job %s", rec.ID)
	}
	if n == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*job.Record, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, status, worker_count, ranges, total, distribution, error, created_at, updated_at
FROM jobs WHERE id = ?`, id)
	rec, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	return rec, err
}

// List returns up to limit records, newest first. A non-positive limit
// returns every record.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]*job.Record, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, status, worker_count, ranges, total, distribution, error, created_at, updated_at
FROM jobs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list jobs")
	}
	defer rows.Close()

	var out []*job.Record
	for rows.Next() {
		rec, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, errors.Wrap(rows.Err(), "list jobs")
}

type encodedRow struct {
	ranges       string
	total        sql.NullString
	distribution sql.NullString
}

func encode(rec *job.Record) (encodedRow, error) {
	var row encodedRow
	ranges := rec.Ranges
	if ranges == nil {
		ranges = []interval.Range{}
	}
	data, err := json.Marshal(ranges)
	if err != nil {
		return row, errors.Wrap(err, "encode ranges")
	}
	row.ranges = string(data)
	if rec.Total != nil {
		row.total = sql.NullString{String: rec.Total.String(), Valid: true}
	}
	if rec.Distribution != nil {
		data, err := json.Marshal(rec.Distribution)
		if err != nil {
			return row, errors.Wrap(err, "encode distribution")
		}
		row.distribution = sql.NullString{String: string(data), Valid: true}
	}
	return row, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(sc scanner) (*job.Record, error) {
	var (
		rec                  job.Record
		status, ranges       string
		total, distribution  sql.NullString
		createdAt, updatedAt int64
	)
	if err := sc.Scan(&rec.ID, &status, &rec.WorkerCount, &ranges, &total, &distribution,
		&rec.Error, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	rec.Status = job.Status(status)
	rec.CreatedAt = time.UnixMilli(createdAt).UTC()
	rec.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	if err := json.Unmarshal([]byte(ranges), &rec.Ranges); err != nil {
		return nil, errors.Wrapf(err, "decode ranges of job %s", rec.ID)
	}
	if total.Valid {
		n, ok := new(big.Int).SetString(total.String, 10)
		if !ok {
			return nil, errors.Errorf("job %s: bad total %q", rec.ID, total.String)
		}
		rec.Total = n
	}
	if distribution.Valid {
		if err := json.Unmarshal([]byte(distribution.String), &rec.Distribution); err != nil {
			return nil, errors.Wrapf(err, "decode distribution of job %s", rec.ID)
		}
	}
	return &rec, nil
}

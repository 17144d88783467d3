package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/obi/pkg/obi/internalerr"
	"github.com/cognicore/obi/pkg/obi/model"
	"github.com/cognicore/obi/pkg/obi/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", internalerr.ErrStoreUnavailable, err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", internalerr.ErrStoreUnavailable, err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", internalerr.ErrStoreUnavailable, err)
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS models (
	name TEXT PRIMARY KEY,
	spec TEXT,
	grades INTEGER NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS model_entries (
	model TEXT NOT NULL,
	ngram TEXT NOT NULL,
	freq INTEGER NOT NULL,
	weights TEXT NOT NULL,
	PRIMARY KEY(model, ngram),
	FOREIGN KEY(model) REFERENCES models(name) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_model_entries_freq ON model_entries(model, freq);

CREATE TABLE IF NOT EXISTS evaluations (
	run_id TEXT NOT NULL,
	fold INTEGER NOT NULL,
	ref TEXT NOT NULL,
	grade INTEGER NOT NULL,
	vote REAL NOT NULL,
	final REAL NOT NULL,
	operative INTEGER NOT NULL,
	info TEXT,
	PRIMARY KEY(run_id, fold, ref)
);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// SaveModel stores m under name, replacing any model of the same name.
func (s *sqliteStore) SaveModel(ctx context.Context, name string, m *model.Model) error {
	if name == "" {
		return fmt.Errorf("model name is empty: %w", internalerr.ErrInvalidInput)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const stmt = `
INSERT INTO models (name, spec, grades, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
	spec=excluded.spec,
	grades=excluded.grades,
	created_at=excluded.created_at;
`
	if _, err := tx.ExecContext(ctx, stmt, name, m.Spec, m.Grades, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	if err := replaceModelEntries(ctx, tx, name, m.Entries); err != nil {
		return err
	}
	return tx.Commit()
}

func replaceModelEntries(ctx context.Context, tx *sql.Tx, name string, entries map[string]model.Entry) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM model_entries WHERE model=?`, name); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO model_entries (model, ngram, freq, weights) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for g, e := range entries {
		weights, err := json.Marshal(e.Weights)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, name, g, e.Freq, string(weights)); err != nil {
			return err
		}
	}
	return nil
}

// LoadModel reads a stored model, skipping entries below requiredFrequency.
func (s *sqliteStore) LoadModel(ctx context.Context, name string, requiredFrequency int64) (*model.Model, error) {
	m := &model.Model{Entries: make(map[string]model.Entry)}
	var spec sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT spec, grades FROM models WHERE name=?`, name).Scan(&spec, &m.Grades)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("model %q: %w", name, internalerr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	m.Spec = spec.String

	rows, err := s.db.QueryContext(ctx, `
SELECT ngram, freq, weights
FROM model_entries
WHERE model = ? AND freq >= ?;
`, name, requiredFrequency)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			g       string
			e       model.Entry
			weights string
		)
		if err := rows.Scan(&g, &e.Freq, &weights); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(weights), &e.Weights); err != nil {
			return nil, fmt.Errorf("model %q entry %q: %w", name, g, err)
		}
		m.Entries[g] = e
	}
	return m, rows.Err()
}

// ListModels returns every stored model ordered by name.
func (s *sqliteStore) ListModels(ctx context.Context) ([]store.ModelInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT m.name, m.spec, m.grades, m.created_at, COUNT(e.ngram)
FROM models m
LEFT JOIN model_entries e ON e.model = m.name
GROUP BY m.name
ORDER BY m.name;
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.ModelInfo
	for rows.Next() {
		var (
			info    store.ModelInfo
			spec    sql.NullString
			created string
		)
		if err := rows.Scan(&info.Name, &spec, &info.Grades, &created, &info.Entries); err != nil {
			return nil, err
		}
		info.Spec = spec.String
		if ts, err := time.Parse(time.RFC3339, created); err == nil {
			info.CreatedAt = ts
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// DeleteModel removes a model and its entries.
func (s *sqliteStore) DeleteModel(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM models WHERE name=?`, name)
	return err
}

// RecordEvaluations stores evaluation outcomes in one transaction.
func (s *sqliteStore) RecordEvaluations(ctx context.Context, recs []store.Evaluation) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO evaluations (run_id, fold, ref, grade, vote, final, operative, info)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(run_id, fold, ref) DO UPDATE SET
	grade=excluded.grade,
	vote=excluded.vote,
	final=excluded.final,
	operative=excluded.operative,
	info=excluded.info;
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range recs {
		info, err := json.Marshal(r.Info)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, r.RunID, r.Fold, r.Ref, r.Grade, r.Vote, r.Final, r.Operative, string(info)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Evaluations returns the outcomes of one run ordered by fold and reference.
func (s *sqliteStore) Evaluations(ctx context.Context, runID string) ([]store.Evaluation, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT run_id, fold, ref, grade, vote, final, operative, info
FROM evaluations
WHERE run_id = ?
ORDER BY fold, ref;
`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Evaluation
	for rows.Next() {
		var (
			r    store.Evaluation
			info sql.NullString
		)
		if err := rows.Scan(&r.RunID, &r.Fold, &r.Ref, &r.Grade, &r.Vote, &r.Final, &r.Operative, &info); err != nil {
			return nil, err
		}
		if info.Valid && info.String != "" {
			if err := json.Unmarshal([]byte(info.String), &r.Info); err != nil {
				return nil, err
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

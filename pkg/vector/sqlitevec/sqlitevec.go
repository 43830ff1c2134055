// Package sqlitevec provides a SQLite-backed accelerated vector index using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/memoria/pkg/logger"
	"github.com/papercomputeco/memoria/pkg/vector"
)

// Index implements vector.Index using SQLite with sqlite-vec.
type Index struct {
	cfg    Config
	logger *slog.Logger

	mu sync.RWMutex
	db *sql.DB
}

// Config holds configuration for the sqlite-vec index.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the number of dimensions for the embedding vectors.
	Dimensions int
}

// New opens (or creates) a sqlite-vec index.
func New(c Config, log *slog.Logger) (*Index, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if c.Dimensions <= 0 {
		return nil, fmt.Errorf("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}
	if log == nil {
		log = logger.Nop()
	}

	db, vecVersion, err := openDB(c.DBPath, c.Dimensions)
	if err != nil {
		return nil, err
	}

	log.Debug("sqlite-vec index opened",
		"db_path", c.DBPath,
		"dimensions", c.Dimensions,
		"vec_version", vecVersion,
	)

	return &Index{cfg: c, logger: log, db: db}, nil
}

func openDB(path string, dimensions int) (*sql.DB, string, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, "", fmt.Errorf("opening database: %w", err)
	}

	// Verify sqlite-vec is loaded
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("sqlite-vec not available: %w", err)
	}

	// vec0 virtual tables use integer rowids, so string record ids are
	// mapped to rowids here.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS vec_documents (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			doc_id TEXT NOT NULL UNIQUE
		)
	`)
	if err != nil {
		db.Close()
		return nil, "", fmt.Errorf("creating documents table: %w", err)
	}

	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_embeddings USING vec0(embedding float[%d] distance_metric=cosine)`,
		dimensions,
	)
	if _, err := db.Exec(createVec); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("creating vec0 table: %w", err)
	}

	return db, vecVersion, nil
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Upsert stores records, updating any that already exist.
func (d *Index) Upsert(ctx context.Context, records []vector.Record) error {
	if len(records) == 0 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := upsert(ctx, d.db, d.cfg.Dimensions, records); err != nil {
		return err
	}

	d.logger.Debug("upserted records into sqlite-vec", "count", len(records))
	return nil
}

func upsert(ctx context.Context, db *sql.DB, dims int, records []vector.Record) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range records {
		if len(rec.Vector) != dims {
			return fmt.Errorf("%w: record %s has %d, index has %d", vector.ErrDimension, rec.ID, len(rec.Vector), dims)
		}
		blob := serializeFloat32(rec.Vector)

		var rowID int64
		err = tx.QueryRowContext(ctx,
			`SELECT rowid FROM vec_documents WHERE doc_id = ?`, rec.ID,
		).Scan(&rowID)

		switch err {
		case nil:
			// vec0 does not support UPDATE
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM vec_embeddings WHERE rowid = ?`, rowID,
			); err != nil {
				return fmt.Errorf("deleting old embedding for %s: %w", rec.ID, err)
			}
		case sql.ErrNoRows:
			result, err := tx.ExecContext(ctx,
				`INSERT INTO vec_documents(doc_id) VALUES (?)`, rec.ID,
			)
			if err != nil {
				return fmt.Errorf("inserting record %s: %w", rec.ID, err)
			}
			rowID, err = result.LastInsertId()
			if err != nil {
				return fmt.Errorf("getting rowid for %s: %w", rec.ID, err)
			}
		default:
			return fmt.Errorf("checking for existing record %s: %w", rec.ID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
			rowID, blob,
		); err != nil {
			return fmt.Errorf("inserting embedding for %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Query finds the topK records closest to query by cosine distance.
func (d *Index) Query(ctx context.Context, query []float32, topK int) ([]vector.Match, error) {
	if topK <= 0 {
		topK = 10
	}
	if len(query) != d.cfg.Dimensions {
		return nil, fmt.Errorf("%w: query has %d, index has %d", vector.ErrDimension, len(query), d.cfg.Dimensions)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	// KNN query via vec0 MATCH, joined back to the record ids.
	rows, err := d.db.QueryContext(ctx, `
		SELECT
			d.doc_id,
			ve.distance
		FROM vec_embeddings ve
		INNER JOIN vec_documents d ON d.rowid = ve.rowid
		WHERE ve.embedding MATCH ?
			AND ve.k = ?
		ORDER BY ve.distance
	`, serializeFloat32(query), topK)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var results []vector.Match
	for rows.Next() {
		var id string
		var distance float64
		if err := rows.Scan(&id, &distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}

		results = append(results, vector.Match{
			ID:    id,
			Score: float32(1 - distance),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	return results, nil
}

// Delete removes records by id.
func (d *Index) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	inClause := strings.Join(placeholders, ",")

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(
		`DELETE FROM vec_embeddings WHERE rowid IN (SELECT rowid FROM vec_documents WHERE doc_id IN (%s))`, inClause,
	), args...); err != nil {
		return fmt.Errorf("deleting embeddings: %w", err)
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(
		`DELETE FROM vec_documents WHERE doc_id IN (%s)`, inClause,
	), args...); err != nil {
		return fmt.Errorf("deleting records: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("deleted records from sqlite-vec", "count", len(ids))
	return nil
}

// Count returns the number of indexed records.
func (d *Index) Count(ctx context.Context) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var n int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vec_documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

// Replace swaps the index content for records. File-backed indexes are
// built in a temporary database and renamed over the live one.
func (d *Index) Replace(ctx context.Context, records []vector.Record) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cfg.DBPath == ":memory:" {
		if _, err := d.db.ExecContext(ctx, `DELETE FROM vec_embeddings`); err != nil {
			return fmt.Errorf("clearing embeddings: %w", err)
		}
		if _, err := d.db.ExecContext(ctx, `DELETE FROM vec_documents`); err != nil {
			return fmt.Errorf("clearing records: %w", err)
		}
		return upsert(ctx, d.db, d.cfg.Dimensions, records)
	}

	tmp := d.cfg.DBPath + ".tmp"
	_ = os.Remove(tmp)

	next, _, err := openDB(tmp, d.cfg.Dimensions)
	if err != nil {
		return err
	}
	if err := upsert(ctx, next, d.cfg.Dimensions, records); err != nil {
		next.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := next.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("closing rebuilt index: %w", err)
	}

	if err := d.db.Close(); err != nil {
		d.logger.Warn("could not close sqlite-vec index", "error", err)
	}
	renameErr := os.Rename(tmp, d.cfg.DBPath)

	db, _, err := openDB(d.cfg.DBPath, d.cfg.Dimensions)
	if err != nil {
		return err
	}
	d.db = db
	if renameErr != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("swapping rebuilt index: %w", renameErr)
	}

	d.logger.Debug("replaced sqlite-vec index", "records", len(records))
	return nil
}

// Close releases resources held by the index.
func (d *Index) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.db.Close()
}

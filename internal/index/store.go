package index

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ppiankov/factsift/internal/model"
)

// Snapshot is a saved claim index: the chunks, their vectors and the query
// they were ranked against
type Snapshot struct {
	ClaimID string
	Query   string
	Model   string
	Chunks  []model.TextChunk
	Index   *FlatL2
}

// storeDSNParams lets concurrent claim workers share one file. Transactions
// take the write lock up front and wait up to five seconds for it.
const storeDSNParams = "?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"

// Store persists index snapshots in a SQLite file for later audit
type Store struct {
	db *sql.DB
}

// OpenStore opens or creates the SQLite file at path
func OpenStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+storeDSNParams)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			claim_id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			model TEXT,
			dim INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			claim_id TEXT NOT NULL REFERENCES snapshots(claim_id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			text TEXT NOT NULL,
			source_title TEXT,
			source_url TEXT,
			source_date TEXT,
			vector BLOB NOT NULL,
			PRIMARY KEY (claim_id, position)
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save replaces any snapshot stored under snap.ClaimID
func (s *Store) Save(ctx context.Context, snap Snapshot) error {
	if snap.Index == nil {
		return fmt.Errorf("snapshot %q has no index", snap.ClaimID)
	}
	if snap.Index.Len() != len(snap.Chunks) {
		return fmt.Errorf("snapshot %q has %d chunks for %d vectors", snap.ClaimID, len(snap.Chunks), snap.Index.Len())
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE claim_id = ?`, snap.ClaimID); err != nil {
		return fmt.Errorf("clearing snapshot: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (claim_id, query, model, dim) VALUES (?, ?, ?, ?)`,
		snap.ClaimID, snap.Query, snap.Model, snap.Index.Dim()); err != nil {
		return fmt.Errorf("inserting snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (claim_id, position, text, source_title, source_url, source_date, vector)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing chunk insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, c := range snap.Chunks {
		if _, err := stmt.ExecContext(ctx, snap.ClaimID, i, c.Text, c.SourceTitle, c.SourceURL, c.SourceDate,
			encodeVector(snap.Index.Vector(i))); err != nil {
			return fmt.Errorf("inserting chunk %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// Load reads the snapshot saved under claimID
func (s *Store) Load(ctx context.Context, claimID string) (*Snapshot, error) {
	snap := &Snapshot{ClaimID: claimID}
	var (
		dim       int
		modelName sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT query, model, dim FROM snapshots WHERE claim_id = ?`, claimID).Scan(&snap.Query, &modelName, &dim)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot %q: %w", claimID, err)
	}
	snap.Model = modelName.String
	snap.Index = NewFlatL2(dim)

	rows, err := s.db.QueryContext(ctx,
		`SELECT text, source_title, source_url, source_date, vector FROM chunks
		 WHERE claim_id = ? ORDER BY position`, claimID)
	if err != nil {
		return nil, fmt.Errorf("loading chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			c    chunkRow
			blob []byte
		)
		if err := rows.Scan(&c.text, &c.title, &c.url, &c.date, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		if err := snap.Index.Add(decodeVector(blob)); err != nil {
			return nil, err
		}
		snap.Chunks = append(snap.Chunks, c.chunk())
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return snap, nil
}

type chunkRow struct {
	text             string
	title, url, date sql.NullString
}

func (r chunkRow) chunk() model.TextChunk {
	return model.TextChunk{
		Text:        r.text,
		SourceTitle: r.title.String,
		SourceURL:   r.url.String,
		SourceDate:  r.date.String,
	}
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}

// Package sqlite provides a snapshotting SQLite-backed store. State lives in
// the embedded in-memory store; after every successful mutation the affected
// bucket is rewritten as a JSON payload, so a restart reloads the exact
// state without a per-record schema.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/NASA-AMMOS/aerie-sub006/internal/store"
	"github.com/NASA-AMMOS/aerie-sub006/internal/store/memory"
)

// Store persists the in-memory state to a single SQLite table as JSON blobs.
type Store struct {
	*memory.Store
	db *sql.DB
	mu sync.Mutex
}

var _ store.Store = (*Store)(nil)

// Open constructs a snapshotting SQLite-backed store at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite store path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create store dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}

	s := &Store{Store: memory.New(), db: db}
	if err := s.load(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

const snapshotBucket = "snapshot"

func (s *Store) load() error {
	var payload []byte
	err := s.db.QueryRow(`SELECT payload FROM state WHERE bucket = ?`, snapshotBucket).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	var snap memory.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return fmt.Errorf("decode state snapshot: %w", err)
	}
	s.ImportState(snap)
	return nil
}

func (s *Store) persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, err := json.Marshal(s.ExportState())
	if err != nil {
		return fmt.Errorf("encode state snapshot: %w", err)
	}
	if _, err := s.db.Exec(
		`INSERT INTO state (bucket, payload) VALUES (?, ?)
		 ON CONFLICT(bucket) DO UPDATE SET payload = excluded.payload`,
		snapshotBucket, payload,
	); err != nil {
		return fmt.Errorf("write state snapshot: %w", err)
	}
	return nil
}

// Mutations delegate to the in-memory engine, then snapshot.

func (s *Store) PutRule(ctx context.Context, rule store.ExpansionRule) error {
	if err := s.Store.PutRule(ctx, rule); err != nil {
		return err
	}
	return s.persist()
}

func (s *Store) PutSet(ctx context.Context, set store.ExpansionSet) error {
	if err := s.Store.PutSet(ctx, set); err != nil {
		return err
	}
	return s.persist()
}

func (s *Store) PutActivitySchema(ctx context.Context, schema store.ActivitySchema) error {
	if err := s.Store.PutActivitySchema(ctx, schema); err != nil {
		return err
	}
	return s.persist()
}

func (s *Store) PutSimulatedActivities(ctx context.Context, datasetID string, activities []store.SimulatedActivity) error {
	if err := s.Store.PutSimulatedActivities(ctx, datasetID, activities); err != nil {
		return err
	}
	return s.persist()
}

func (s *Store) PutRun(ctx context.Context, run store.ExpansionRun) error {
	if err := s.Store.PutRun(ctx, run); err != nil {
		return err
	}
	return s.persist()
}

func (s *Store) PutSequence(ctx context.Context, seq store.SequenceRecord) error {
	if err := s.Store.PutSequence(ctx, seq); err != nil {
		return err
	}
	return s.persist()
}

func (s *Store) LinkActivities(ctx context.Context, datasetID, seqID string, activityIDs []string) error {
	if err := s.Store.LinkActivities(ctx, datasetID, seqID, activityIDs); err != nil {
		return err
	}
	return s.persist()
}

func (s *Store) Close() error {
	return s.db.Close()
}

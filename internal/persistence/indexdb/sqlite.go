package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"arborcraft.ai/internal/persistence/snapshot"
	"arborcraft.ai/internal/sim/arbor"
)

// SQLiteIndex is a secondary, queryable copy of the event log and snapshot
// history. Writes are queued and applied by one goroutine; when the queue is
// full the write is dropped and counted rather than stalling the engine.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropEvents    atomic.Uint64
	dropSnapshots atomic.Uint64
}

type reqKind int

const (
	reqEvent reqKind = iota + 1
	reqSnapshot
)

type req struct {
	kind reqKind

	event    arbor.Event
	snapshot snapshotRow
}

type snapshotRow struct {
	Seq     uint64
	Path    string
	Seed    int64
	Chunks  int
	Species int
}

// Stats reports queue pressure.
type Stats struct {
	DropEventTotal    uint64 `json:"drop_event_total"`
	DropSnapshotTotal uint64 `json:"drop_snapshot_total"`
	QueueDepth        int    `json:"queue_depth"`
	QueueCapacity     int    `json:"queue_capacity"`
}

const defaultQueue = 65536

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return openSQLite(path, defaultQueue)
}

func openSQLite(path string, queue int) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, queue),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			n INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			seq INTEGER NOT NULL,
			time TEXT NOT NULL,
			kind TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			species TEXT NOT NULL,
			volume INTEGER NOT NULL,
			branches INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS events_kind ON events(kind, n);`,
		`CREATE INDEX IF NOT EXISTS events_pos ON events(x, y, z);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			seq INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			seed INTEGER NOT NULL,
			chunks INTEGER NOT NULL,
			species INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	_, err := db.Exec(`INSERT OR REPLACE INTO meta(key, value) VALUES('schema_version', '1')`)
	return err
}

func (s *SQLiteIndex) Close() error {
	if s == nil {
		return nil
	}
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// WriteEvent queues an engine event. It never blocks.
func (s *SQLiteIndex) WriteEvent(e arbor.Event) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqEvent, event: e}:
	default:
		s.dropEvents.Add(1)
	}
	return nil
}

// RecordSnapshot queues a row describing a snapshot file written to path.
func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	row := snapshotRow{
		Seq:     snap.Header.Seq,
		Path:    path,
		Seed:    snap.Seed,
		Chunks:  len(snap.Chunks),
		Species: len(snap.Species),
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: row}:
	default:
		s.dropSnapshots.Add(1)
	}
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		DropEventTotal:    s.dropEvents.Load(),
		DropSnapshotTotal: s.dropSnapshots.Load(),
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
	}
}

// UpsertCatalog stores a configuration document (species catalog, tuning)
// with its digest so later readers can tell which rules produced the events.
// It is synchronous and meant for startup.
func (s *SQLiteIndex) UpsertCatalog(ctx context.Context, name string, v any) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(b)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO catalogs(name, digest, json, updated_at) VALUES(?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET digest=excluded.digest, json=excluded.json, updated_at=excluded.updated_at`,
		name, hex.EncodeToString(sum[:]), string(b), time.Now().UTC().Format(time.RFC3339))
	return err
}

func (s *SQLiteIndex) CatalogDigest(ctx context.Context, name string) (string, error) {
	var digest string
	err := s.db.QueryRowContext(ctx, `SELECT digest FROM catalogs WHERE name = ?`, name).Scan(&digest)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return digest, err
}

// CountEvents returns the number of indexed events of kind, or of every kind
// when kind is empty.
func (s *SQLiteIndex) CountEvents(ctx context.Context, kind arbor.EventKind) (int, error) {
	var n int
	var err error
	if kind == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE kind = ?`, string(kind)).Scan(&n)
	}
	return n, err
}

// RecentEvents returns up to n events, most recently indexed first.
func (s *SQLiteIndex) RecentEvents(ctx context.Context, n int) ([]arbor.Event, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT raw_json FROM events ORDER BY n DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []arbor.Event
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var e arbor.Event
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// LatestSnapshot returns the path and sequence of the newest recorded
// snapshot. ok is false when none has been recorded.
func (s *SQLiteIndex) LatestSnapshot(ctx context.Context) (path string, seq uint64, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT path, seq FROM snapshots ORDER BY seq DESC LIMIT 1`).Scan(&path, &seq)
	if err == sql.ErrNoRows {
		return "", 0, false, nil
	}
	if err != nil {
		return "", 0, false, err
	}
	return path, seq, true, nil
}

func (s *SQLiteIndex) loop() {
	const (
		maxOps      = 2000
		maxInterval = 2 * time.Second
	)

	var (
		tx         *sql.Tx
		stmtEvent  *sql.Stmt
		stmtSnap   *sql.Stmt
		ops        int
		lastCommit = time.Now()
	)

	begin := func() {
		if tx != nil {
			return
		}
		var err error
		tx, err = s.db.Begin()
		if err != nil {
			tx = nil
			return
		}
		stmtEvent, _ = tx.Prepare(`INSERT OR IGNORE INTO events(seq, id, time, kind, x, y, z, species, volume, branches, raw_json)
			VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		stmtSnap, _ = tx.Prepare(`INSERT OR REPLACE INTO snapshots(seq, path, seed, chunks, species, recorded_at)
			VALUES(?, ?, ?, ?, ?, ?)`)
	}
	commit := func() {
		if tx == nil {
			return
		}
		if stmtEvent != nil {
			_ = stmtEvent.Close()
		}
		if stmtSnap != nil {
			_ = stmtSnap.Close()
		}
		_ = tx.Commit()
		tx, stmtEvent, stmtSnap = nil, nil, nil
		ops = 0
		lastCommit = time.Now()
	}

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case r, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			begin()
			if tx == nil {
				continue
			}
			switch r.kind {
			case reqEvent:
				if stmtEvent == nil {
					continue
				}
				e := r.event
				raw, _ := json.Marshal(e)
				_, _ = stmtEvent.Exec(int64(e.Seq), e.ID, e.Time.UTC().Format(time.RFC3339Nano), string(e.Kind),
					e.Pos[0], e.Pos[1], e.Pos[2], e.Species, e.Volume, e.Branches, string(raw))
			case reqSnapshot:
				if stmtSnap == nil {
					continue
				}
				row := r.snapshot
				_, _ = stmtSnap.Exec(int64(row.Seq), row.Path, row.Seed, row.Chunks, row.Species,
					time.Now().UTC().Format(time.RFC3339))
			}
			ops++
			if ops >= maxOps || time.Since(lastCommit) >= maxInterval {
				commit()
			}
		case <-ticker.C:
			if tx != nil && time.Since(lastCommit) >= maxInterval {
				commit()
			}
		}
	}
}

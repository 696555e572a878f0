package journal

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS moderation_journal (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	at_ms INTEGER NOT NULL,
	kind TEXT NOT NULL,
	room_id TEXT NOT NULL DEFAULT '',
	user_id TEXT NOT NULL DEFAULT '',
	actor_id TEXT NOT NULL DEFAULT '',
	detail TEXT NOT NULL DEFAULT ''
)`

const writeTimeout = 5 * time.Second

// SQLite is a write-behind Journal. Record enqueues; a single goroutine
// drains the queue into the database.
type SQLite struct {
	db      *sql.DB
	entries chan Entry
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

// Open creates the journal table if needed and starts the writer. buffer
// bounds the queue; entries beyond it are dropped with a warning.
func Open(path string, buffer int) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("journal path is required")
	}
	if buffer <= 0 {
		buffer = 1
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create journal table: %w", err)
	}

	j := &SQLite{
		db:      db,
		entries: make(chan Entry, buffer),
		done:    make(chan struct{}),
	}
	go j.run()
	log.Info().Str("module", "storage.journal").Str("path", path).Msg("journal opened")
	return j, nil
}

func (j *SQLite) Record(e Entry) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return
	}
	select {
	case j.entries <- e:
	default:
		log.Warn().Str("module", "storage.journal").Str("kind", string(e.Kind)).Msg("journal queue full, entry dropped")
	}
}

func (j *SQLite) run() {
	defer close(j.done)
	for e := range j.entries {
		if err := j.insert(e); err != nil {
			log.Error().Err(err).Str("module", "storage.journal").Str("kind", string(e.Kind)).Msg("journal write")
		}
	}
}

func (j *SQLite) insert(e Entry) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO moderation_journal (at_ms, kind, room_id, user_id, actor_id, detail) VALUES (?, ?, ?, ?, ?, ?)`,
		e.At.UTC().UnixMilli(), string(e.Kind), string(e.RoomID), string(e.UserID), string(e.ActorID), e.Detail,
	)
	return err
}

// Close drains queued entries, then closes the database.
func (j *SQLite) Close() error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	close(j.entries)
	j.mu.Unlock()

	<-j.done
	return j.db.Close()
}

// Package decisionlog provides an optional SQLite audit trail of gate
// decisions. Writes happen on a background goroutine after the response is
// produced; the validation path never reads or waits on the log, so request
// handling stays stateless.
package decisionlog

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"
)

// Outcome classes recorded per gated request. Only the class is stored,
// never the token, signature, or secret.
const (
	OutcomeBypassed         = "bypassed"
	OutcomeAccepted         = "accepted"
	OutcomeNoSecret         = "no_secret"
	OutcomeMissingParameter = "missing_parameter"
	OutcomeMalformedToken   = "malformed_token"
	OutcomeNoClientIP       = "no_client_ip"
	OutcomeBadSignature     = "bad_signature"
	OutcomeExpiredToken     = "expired_token"
)

type entry struct {
	at       time.Time
	outcome  string
	clientIP string
	path     string
}

// Logger appends decision records to a SQLite database.
type Logger struct {
	db      *sql.DB
	entries chan entry
	done    chan struct{}
}

// Open creates (or reuses) the decision log at dbPath and starts the writer
// goroutine.
func Open(dbPath string) (*Logger, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to decision log: %v", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	l := &Logger{
		db:      db,
		entries: make(chan entry, 256),
		done:    make(chan struct{}),
	}
	go l.writeLoop()
	return l, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS decision (
			id        INTEGER PRIMARY KEY,
			at        INTEGER NOT NULL,
			outcome   TEXT NOT NULL,
			client_ip TEXT,
			path      TEXT
		);`,
	)
	if err != nil {
		return fmt.Errorf("failed to init 'decision' table schema: %v", err)
	}
	return nil
}

// Record queues one decision. It never blocks: if the writer is behind, the
// record is dropped rather than stalling a request.
func (l *Logger) Record(outcome string, clientIP string, path string) {
	if l == nil {
		return
	}
	select {
	case l.entries <- entry{at: time.Now(), outcome: outcome, clientIP: clientIP, path: path}:
	default:
		log.Println("decision log backlog full, dropping record")
	}
}

// Close drains queued records and closes the database.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	close(l.entries)
	<-l.done
	return l.db.Close()
}

func (l *Logger) writeLoop() {
	defer close(l.done)
	for e := range l.entries {
		_, err := l.db.Exec(`
			INSERT INTO decision (at, outcome, client_ip, path)
			VALUES (?1, ?2, ?3, ?4);`,
			e.at.Unix(),
			e.outcome,
			e.clientIP,
			e.path,
		)
		if err != nil {
			log.Printf("couldn't insert into decision: %v", err)
		}
	}
}

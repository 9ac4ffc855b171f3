package decisionlog_test

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/cf-jongsik/validate-token/internal/decisionlog"
	_ "modernc.org/sqlite"
)

func TestLogger_RecordAndReadback(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), "decisions.db")

	l, err := decisionlog.Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	l.Record(decisionlog.OutcomeAccepted, "203.0.113.7", "/login")
	l.Record(decisionlog.OutcomeBadSignature, "198.51.100.9", "/login")
	l.Record(decisionlog.OutcomeBypassed, "", "/other")

	// Close drains the queue before returning
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("failed to reopen decision log: %v", err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM decision;`).Scan(&count); err != nil {
		t.Fatalf("failed to count decisions: %v", err)
	}
	if count != 3 {
		t.Errorf("decision count = %d, want 3", count)
	}

	var outcome, clientIP string
	err = db.QueryRow(`
		SELECT outcome, client_ip
		FROM decision
		WHERE outcome=?1;`,
		decisionlog.OutcomeBadSignature,
	).Scan(&outcome, &clientIP)
	if err != nil {
		t.Fatalf("failed to read decision back: %v", err)
	}
	if clientIP != "198.51.100.9" {
		t.Errorf("client_ip = %q", clientIP)
	}
}

func TestLogger_NilIsSafe(t *testing.T) {
	t.Parallel()
	var l *decisionlog.Logger

	// a disabled log is represented by a nil Logger
	l.Record(decisionlog.OutcomeAccepted, "203.0.113.7", "/login")
	if err := l.Close(); err != nil {
		t.Errorf("Close on nil = %v", err)
	}
}

package wsbus

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// directory persists bus peer registrations (classifications + tag) so
// that GetInfoForAllClients-style discovery survives a broker restart —
// a live connection is still required for IsAlive, but a peer that
// registered five minutes ago and hasn't reconnected yet is still
// listed, the way a long-lived SMQ server would remember its clients.
// sqlite keeps this simple and dependency-free to operate.
type directory struct {
	db *sql.DB
}

func openDirectory(path string) (*directory, error) {
	if path == "" {
		path = filepath.Join(os.TempDir(), "flowcontrol-bus.db")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("wsbus: create directory dir %s: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("wsbus: open directory db: %w", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS peers (
	client_name     TEXT PRIMARY KEY,
	classifications TEXT NOT NULL,
	tag             TEXT NOT NULL,
	registered_at   TIMESTAMP NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("wsbus: migrate directory db: %w", err)
	}
	return &directory{db: db}, nil
}

func (d *directory) upsert(clientName string, classifications []string, tag map[string]any) error {
	cj, err := json.Marshal(classifications)
	if err != nil {
		return err
	}
	tj, err := json.Marshal(tag)
	if err != nil {
		return err
	}
	_, err = d.db.Exec(`
INSERT INTO peers (client_name, classifications, tag, registered_at) VALUES (?, ?, ?, ?)
ON CONFLICT(client_name) DO UPDATE SET classifications = excluded.classifications, tag = excluded.tag, registered_at = excluded.registered_at`,
		clientName, string(cj), string(tj), time.Now())
	return err
}

type peerRecord struct {
	Classifications []string
	Tag             map[string]any
}

func (d *directory) all() (map[string]peerRecord, error) {
	rows, err := d.db.Query(`SELECT client_name, classifications, tag FROM peers`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]peerRecord)
	for rows.Next() {
		var name, cj, tj string
		if err := rows.Scan(&name, &cj, &tj); err != nil {
			return nil, err
		}
		var rec peerRecord
		if err := json.Unmarshal([]byte(cj), &rec.Classifications); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(tj), &rec.Tag); err != nil {
			return nil, err
		}
		out[name] = rec
	}
	return out, rows.Err()
}

func (d *directory) close() error {
	return d.db.Close()
}

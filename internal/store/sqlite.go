package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"

	"betting-wallet/internal/models"
)

// SQLite persists the cache between runs, the way the browser app kept the
// user record in localStorage. All reads are served from the in-memory
// copy; the database is written through on every mutation. A failed write
// is logged and otherwise ignored: the cache is not the source of truth,
// so losing a persisted copy only costs a re-fetch on next start.
type SQLite struct {
	Memory
	db *sql.DB
}

func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open local state db: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS local_state (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init local state db: %w", err)
	}

	s := &SQLite{db: db}
	s.Memory.subs = make(map[int]chan struct{})

	if raw, ok := s.read(KeyUser); ok {
		var user models.User
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			log.WithError(err).Warn("Discarding unreadable cached user record")
		} else {
			s.Memory.user = &user
		}
	}
	if token, ok := s.read(KeyAuthToken); ok {
		s.Memory.token = token
	}

	return s, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) SetUser(user *models.User) {
	data, err := json.Marshal(user)
	if err != nil {
		log.WithError(err).Error("Failed to encode user record for local state")
	} else {
		s.write(KeyUser, string(data))
	}
	s.Memory.SetUser(user)
}

func (s *SQLite) SetToken(token string) {
	s.write(KeyAuthToken, token)
	s.Memory.SetToken(token)
}

func (s *SQLite) Clear() {
	if _, err := s.db.Exec(`DELETE FROM local_state`); err != nil {
		log.WithError(err).Error("Failed to clear local state")
	}
	s.Memory.Clear()
}

func (s *SQLite) read(key string) (string, bool) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM local_state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false
	}
	if err != nil {
		log.WithError(err).WithField("key", key).Error("Failed to read local state")
		return "", false
	}
	return value, true
}

func (s *SQLite) write(key, value string) {
	_, err := s.db.Exec(
		`INSERT INTO local_state (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		log.WithError(err).WithField("key", key).Error("Failed to write local state")
	}
}

// Package store persists deck settings and learned timecode coefficients
// in a SQLite database.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no state has been saved under a name.
var ErrNotFound = errors.New("state not found")

// DeckState is the persisted part of a deck: the loaded file and the
// playback flags.
type DeckState struct {
	Name         string
	Path         string
	Loop         bool
	Sync         bool
	Reverse      bool
	Tune         float64
	Level        float64
	BeatsPerLoop int
	Modified     time.Time
}

// Store wraps the SQL database with deck state methods.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS decks (
	name TEXT PRIMARY KEY,
	path TEXT NOT NULL,
	loop BOOLEAN NOT NULL DEFAULT 0,
	sync BOOLEAN NOT NULL DEFAULT 0,
	reverse BOOLEAN NOT NULL DEFAULT 0,
	tune REAL NOT NULL DEFAULT 1.0,
	level REAL NOT NULL DEFAULT 1.0,
	modified INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS timecodes (
	name TEXT PRIMARY KEY,
	coefficient REAL NOT NULL,
	modified INTEGER NOT NULL
);
`

// Columns added after the first schema, applied best-effort on open.
var migrations = []string{
	"ALTER TABLE decks ADD COLUMN beats INTEGER NOT NULL DEFAULT 0",
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create state tables: %w", err)
	}
	for _, stmt := range migrations {
		// fails harmlessly when the column already exists
		db.Exec(stmt)
	}

	logrus.WithFields(logrus.Fields{"path": path}).Debug("state database opened")
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveDeck inserts or replaces the state of the deck with the same name.
func (s *Store) SaveDeck(state DeckState) error {
	if state.Modified.IsZero() {
		state.Modified = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO decks (name, path, loop, sync, reverse, tune, level, beats, modified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			path = excluded.path, loop = excluded.loop, sync = excluded.sync,
			reverse = excluded.reverse, tune = excluded.tune, level = excluded.level,
			beats = excluded.beats, modified = excluded.modified`,
		state.Name, state.Path, state.Loop, state.Sync, state.Reverse,
		state.Tune, state.Level, state.BeatsPerLoop, state.Modified.Unix())
	if err != nil {
		return fmt.Errorf("save deck %s: %w", state.Name, err)
	}

	logrus.WithFields(logrus.Fields{
		"deck": state.Name,
		"path": state.Path,
	}).Info("deck state saved")
	return nil
}

// LoadDeck returns the saved state of the named deck, or ErrNotFound.
func (s *Store) LoadDeck(name string) (DeckState, error) {
	state := DeckState{Name: name}
	var modified int64
	err := s.db.QueryRow(`
		SELECT path, loop, sync, reverse, tune, level, beats, modified
		FROM decks WHERE name = ?`, name).Scan(
		&state.Path, &state.Loop, &state.Sync, &state.Reverse,
		&state.Tune, &state.Level, &state.BeatsPerLoop, &modified)
	if errors.Is(err, sql.ErrNoRows) {
		return state, ErrNotFound
	}
	if err != nil {
		return state, fmt.Errorf("load deck %s: %w", name, err)
	}
	state.Modified = time.Unix(modified, 0)
	return state, nil
}

// SaveTimecode stores the learned timecode coefficient of a processor.
func (s *Store) SaveTimecode(name string, coefficient float64) error {
	_, err := s.db.Exec(`
		INSERT INTO timecodes (name, coefficient, modified) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			coefficient = excluded.coefficient, modified = excluded.modified`,
		name, coefficient, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save timecode %s: %w", name, err)
	}

	logrus.WithFields(logrus.Fields{
		"processor":   name,
		"coefficient": coefficient,
	}).Info("timecode saved")
	return nil
}

// LoadTimecode returns the stored timecode coefficient, or ErrNotFound.
func (s *Store) LoadTimecode(name string) (float64, error) {
	var coefficient float64
	err := s.db.QueryRow(`SELECT coefficient FROM timecodes WHERE name = ?`, name).Scan(&coefficient)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("load timecode %s: %w", name, err)
	}
	return coefficient, nil
}

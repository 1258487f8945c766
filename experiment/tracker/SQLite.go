package tracker

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	ts "flappyrl/timestep"
)

// SQLite tracks per-episode statistics and saves them to a SQLite
// database so that runs with different hyperparameters can be compared
// with plain SQL. Each experiment run is identified by a fresh UUID,
// and every finished episode becomes one row in the episodes table.
//
// Note: An episode must finish for this Tracker to save its data.
type SQLite struct {
	path  string
	runID string
	label string

	currentReturn float64
	episodes      []episodeRow
}

type episodeRow struct {
	episode int
	length  int
	ret     float64
}

// NewSQLite creates and returns a new *SQLite Tracker writing to the
// database at path. The label names the run in the runs table, for
// example the hyperparameter setting under study.
func NewSQLite(path, label string) Tracker {
	return &SQLite{
		path:  path,
		runID: uuid.NewString(),
		label: label,
	}
}

// Track accumulates the reward on each timestep and caches one episode
// row whenever an episode ends
func (s *SQLite) Track(step ts.TimeStep) {
	s.currentReturn += step.Reward
	if step.Last() {
		s.episodes = append(s.episodes, episodeRow{
			episode: len(s.episodes),
			length:  step.Number,
			ret:     s.currentReturn,
		})
		s.currentReturn = 0.0
	}
}

// Save writes every cached episode row to the database in a single
// transaction, creating the schema if needed
func (s *SQLite) Save() {
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		log.Fatalf("could not open results database: %v", err)
	}
	defer db.Close()

	if err := createTables(db); err != nil {
		log.Fatalf("could not create results schema: %v", err)
	}

	tx, err := db.Begin()
	if err != nil {
		log.Fatalf("could not begin results transaction: %v", err)
	}

	_, err = tx.Exec(`INSERT INTO runs (id, label) VALUES (?, ?)`,
		s.runID, s.label)
	if err != nil {
		tx.Rollback()
		log.Fatalf("could not insert run row: %v", err)
	}

	for _, row := range s.episodes {
		_, err = tx.Exec(`
			INSERT INTO episodes (run_id, episode, length, return)
			VALUES (?, ?, ?, ?)
		`, s.runID, row.episode, row.length, row.ret)
		if err != nil {
			tx.Rollback()
			log.Fatalf("could not insert episode row: %v", err)
		}
	}

	if err := tx.Commit(); err != nil {
		log.Fatalf("could not commit results: %v", err)
	}
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id    TEXT PRIMARY KEY,
			label TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS episodes (
			run_id  TEXT NOT NULL REFERENCES runs(id),
			episode INTEGER NOT NULL,
			length  INTEGER NOT NULL,
			return  REAL NOT NULL,
			PRIMARY KEY (run_id, episode)
		);
	`)
	if err != nil {
		return fmt.Errorf("createtables: %v", err)
	}
	return nil
}

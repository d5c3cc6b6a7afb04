package alignment

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS parameter_sets (
	set_id      TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	run_min     INTEGER NOT NULL,
	run_max     INTEGER NOT NULL,
	created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS parameters (
	set_id    TEXT NOT NULL,
	param_id  INTEGER NOT NULL,
	value     REAL NOT NULL,
	presigma  REAL NOT NULL,
	PRIMARY KEY (set_id, param_id),
	FOREIGN KEY (set_id) REFERENCES parameter_sets(set_id)
);
`

// ErrNoSet is returned when no stored set matches a query.
var ErrNoSet = errors.New("alignment: no parameter set found")

// SetInfo describes a stored parameter set.
type SetInfo struct {
	ID        string
	Name      string
	RunMin    int
	RunMax    int
	CreatedAt time.Time
	Count     int
}

// Store keeps alignment parameter sets in SQLite, keyed by run range.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the database at path and runs migrations.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Import stores params as a new set valid for runs [runMin, runMax].
// Values are stored as given, i.e. already scaled.
func (s *Store) Import(name string, runMin, runMax int, params []Parameter) (SetInfo, error) {
	if runMax < runMin {
		return SetInfo{}, fmt.Errorf("alignment: run range [%d, %d] is empty", runMin, runMax)
	}
	if _, err := NewSet(params); err != nil {
		return SetInfo{}, err
	}

	info := SetInfo{
		ID:        uuid.New().String(),
		Name:      name,
		RunMin:    runMin,
		RunMax:    runMax,
		CreatedAt: time.Now().UTC(),
		Count:     len(params),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return SetInfo{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO parameter_sets (set_id, name, run_min, run_max, created_at) VALUES (?, ?, ?, ?, ?)`,
		info.ID, info.Name, info.RunMin, info.RunMax, info.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return SetInfo{}, fmt.Errorf("insert set: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO parameters (set_id, param_id, value, presigma) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return SetInfo{}, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()
	for _, p := range params {
		if _, err := stmt.Exec(info.ID, p.ID, p.Value, p.Presigma); err != nil {
			return SetInfo{}, fmt.Errorf("insert parameter %d: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return SetInfo{}, fmt.Errorf("commit: %w", err)
	}
	return info, nil
}

// Load returns the parameters of a set ordered by id.
func (s *Store) Load(setID string) ([]Parameter, error) {
	var exists int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM parameter_sets WHERE set_id = ?`, setID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("query set: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: id %s", ErrNoSet, setID)
	}

	rows, err := s.db.Query(
		`SELECT param_id, value, presigma FROM parameters WHERE set_id = ? ORDER BY param_id`, setID)
	if err != nil {
		return nil, fmt.Errorf("query parameters: %w", err)
	}
	defer rows.Close()

	var params []Parameter
	for rows.Next() {
		var p Parameter
		if err := rows.Scan(&p.ID, &p.Value, &p.Presigma); err != nil {
			return nil, fmt.Errorf("scan parameter: %w", err)
		}
		params = append(params, p)
	}
	return params, rows.Err()
}

// ForRun returns the most recently imported set whose run range covers run.
func (s *Store) ForRun(run int) (SetInfo, []Parameter, error) {
	row := s.db.QueryRow(
		`SELECT s.set_id, s.name, s.run_min, s.run_max, s.created_at,
		        (SELECT COUNT(*) FROM parameters p WHERE p.set_id = s.set_id)
		 FROM parameter_sets s
		 WHERE s.run_min <= ? AND s.run_max >= ?
		 ORDER BY s.rowid DESC LIMIT 1`, run, run)
	info, err := scanSetInfo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SetInfo{}, nil, fmt.Errorf("%w: run %d", ErrNoSet, run)
	}
	if err != nil {
		return SetInfo{}, nil, err
	}
	params, err := s.Load(info.ID)
	if err != nil {
		return SetInfo{}, nil, err
	}
	return info, params, nil
}

// List returns every stored set, oldest first.
func (s *Store) List() ([]SetInfo, error) {
	rows, err := s.db.Query(
		`SELECT s.set_id, s.name, s.run_min, s.run_max, s.created_at,
		        (SELECT COUNT(*) FROM parameters p WHERE p.set_id = s.set_id)
		 FROM parameter_sets s ORDER BY s.rowid`)
	if err != nil {
		return nil, fmt.Errorf("query sets: %w", err)
	}
	defer rows.Close()

	var out []SetInfo
	for rows.Next() {
		info, err := scanSetInfo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSetInfo(sc scanner) (SetInfo, error) {
	var info SetInfo
	var created string
	if err := sc.Scan(&info.ID, &info.Name, &info.RunMin, &info.RunMax, &created, &info.Count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SetInfo{}, err
		}
		return SetInfo{}, fmt.Errorf("scan set: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return SetInfo{}, fmt.Errorf("parse created_at: %w", err)
	}
	info.CreatedAt = t
	return info, nil
}

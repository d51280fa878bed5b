// Package archive persists completed analyses in per-file DuckDB databases
// so that reopening a recent program does not re-parse it.
package archive

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/marcboeker/go-duckdb"

	"github.com/gcode-analyzer/backend/internal/gcode"
	"github.com/gcode-analyzer/backend/internal/models"
)

const dbPrefix = "program_"

// Store manages the archive directory. One DuckDB file per analyzed program,
// keyed by the upload's file ID.
type Store struct {
	dir   string
	mu    sync.RWMutex
	cache map[string]string // fileID -> dbPath
}

// NewStore creates a Store rooted at dir and indexes any databases already
// present from earlier runs.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}

	s := &Store{
		dir:   dir,
		cache: make(map[string]string),
	}
	s.scanExisting()
	return s, nil
}

func (s *Store) scanExisting() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, dbPrefix) || !strings.HasSuffix(name, ".duckdb") {
			continue
		}
		fileID := strings.TrimSuffix(strings.TrimPrefix(name, dbPrefix), ".duckdb")
		s.cache[fileID] = filepath.Join(s.dir, name)
	}
}

func (s *Store) dbPath(fileID string) string {
	return filepath.Join(s.dir, dbPrefix+fileID+".duckdb")
}

// Has reports whether an archived analysis exists for the file.
func (s *Store) Has(fileID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cache[fileID]
	return ok
}

// Delete removes an archived analysis, if present.
func (s *Store) Delete(fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, ok := s.cache[fileID]
	if !ok {
		return nil
	}
	delete(s.cache, fileID)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing archive database: %w", err)
	}
	return nil
}

func openDB(path string) (*sql.DB, error) {
	connector, err := duckdb.NewConnector(path, nil)
	if err != nil {
		return nil, fmt.Errorf("creating DuckDB connector: %w", err)
	}
	return sql.OpenDB(connector), nil
}

// SaveResult archives a completed analysis. An existing archive for the same
// file is replaced.
func (s *Store) SaveResult(fileID string, res *gcode.Result) error {
	path := s.dbPath(fileID)
	os.Remove(path)

	db, err := openDB(path)
	if err != nil {
		return err
	}
	defer db.Close()

	schema := []string{
		`CREATE TABLE meta (
			total_lines INTEGER NOT NULL,
			min_x DOUBLE, max_x DOUBLE,
			min_y DOUBLE, max_y DOUBLE,
			min_z DOUBLE, max_z DOUBLE
		)`,
		`CREATE TABLE commands (
			seq   INTEGER NOT NULL,
			line  INTEGER NOT NULL,
			ctype VARCHAR NOT NULL,
			raw   VARCHAR NOT NULL,
			x DOUBLE, y DOUBLE, z DOUBLE,
			i DOUBLE, j DOUBLE, k DOUBLE,
			f DOUBLE, s DOUBLE, e DOUBLE,
			end_x DOUBLE NOT NULL,
			end_y DOUBLE NOT NULL,
			end_z DOUBLE NOT NULL
		)`,
		`CREATE TABLE errors (
			seq     INTEGER NOT NULL,
			line    INTEGER NOT NULL,
			message VARCHAR NOT NULL,
			related_line INTEGER NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			os.Remove(path)
			return fmt.Errorf("creating archive schema: %w", err)
		}
	}

	tx, err := db.Begin()
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("starting archive transaction: %w", err)
	}

	if err := s.insertResult(tx, res); err != nil {
		tx.Rollback()
		os.Remove(path)
		return err
	}

	if err := tx.Commit(); err != nil {
		os.Remove(path)
		return fmt.Errorf("committing archive: %w", err)
	}

	s.mu.Lock()
	s.cache[fileID] = path
	s.mu.Unlock()
	return nil
}

func (s *Store) insertResult(tx *sql.Tx, res *gcode.Result) error {
	if _, err := tx.Exec(
		`INSERT INTO meta VALUES (?, ?, ?, ?, ?, ?, ?)`,
		res.TotalLines, res.MinX, res.MaxX, res.MinY, res.MaxY, res.MinZ, res.MaxZ,
	); err != nil {
		return fmt.Errorf("writing meta: %w", err)
	}

	cmdStmt, err := tx.Prepare(`INSERT INTO commands VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing command insert: %w", err)
	}
	defer cmdStmt.Close()

	for seq, cmd := range res.Commands {
		if _, err := cmdStmt.Exec(
			seq, cmd.Line, string(cmd.Type), cmd.Raw,
			nullable(cmd.X), nullable(cmd.Y), nullable(cmd.Z),
			nullable(cmd.I), nullable(cmd.J), nullable(cmd.K),
			nullable(cmd.F), nullable(cmd.S), nullable(cmd.E),
			cmd.EndX, cmd.EndY, cmd.EndZ,
		); err != nil {
			return fmt.Errorf("writing command %d: %w", seq, err)
		}
	}

	errStmt, err := tx.Prepare(`INSERT INTO errors VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing error insert: %w", err)
	}
	defer errStmt.Close()

	for seq, e := range res.Errors {
		if _, err := errStmt.Exec(seq, e.Line, e.Message, e.RelatedLine); err != nil {
			return fmt.Errorf("writing error %d: %w", seq, err)
		}
	}
	return nil
}

// LoadResult reconstructs an archived analysis.
func (s *Store) LoadResult(fileID string) (*gcode.Result, error) {
	s.mu.RLock()
	path, ok := s.cache[fileID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no archived analysis for file %s", fileID)
	}

	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	res := gcode.NewResult()

	row := db.QueryRow(`SELECT total_lines, min_x, max_x, min_y, max_y, min_z, max_z FROM meta`)
	if err := row.Scan(&res.TotalLines, &res.MinX, &res.MaxX, &res.MinY, &res.MaxY, &res.MinZ, &res.MaxZ); err != nil {
		return nil, fmt.Errorf("reading meta: %w", err)
	}

	rows, err := db.Query(`SELECT line, ctype, raw, x, y, z, i, j, k, f, s, e, end_x, end_y, end_z
		FROM commands ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("reading commands: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cmd models.Command
		var ctype string
		var x, y, z, i, j, k, f, sv, e sql.NullFloat64
		if err := rows.Scan(&cmd.Line, &ctype, &cmd.Raw,
			&x, &y, &z, &i, &j, &k, &f, &sv, &e,
			&cmd.EndX, &cmd.EndY, &cmd.EndZ); err != nil {
			return nil, fmt.Errorf("scanning command: %w", err)
		}
		cmd.Type = models.CommandType(ctype)
		cmd.X, cmd.Y, cmd.Z = deref(x), deref(y), deref(z)
		cmd.I, cmd.J, cmd.K = deref(i), deref(j), deref(k)
		cmd.F, cmd.S, cmd.E = deref(f), deref(sv), deref(e)
		res.Commands = append(res.Commands, cmd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating commands: %w", err)
	}

	errRows, err := db.Query(`SELECT line, message, related_line FROM errors ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("reading errors: %w", err)
	}
	defer errRows.Close()

	for errRows.Next() {
		var ge models.GCodeError
		if err := errRows.Scan(&ge.Line, &ge.Message, &ge.RelatedLine); err != nil {
			return nil, fmt.Errorf("scanning error: %w", err)
		}
		res.Errors = append(res.Errors, ge)
	}
	if err := errRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating errors: %w", err)
	}

	return res, nil
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func deref(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

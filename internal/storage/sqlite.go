package storage

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding the four persisted collections of the
// report notes core: installation rows, selected cells, selected note columns,
// and unified notes.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "plumbline.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Installation rows ---

// ReplaceRows swaps the entire installation dataset. Rows are stored as JSON
// objects in import order; the dataset is read-only to the notes core.
func (s *Store) ReplaceRows(rows []Row) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning rows transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM installation_rows"); err != nil {
		return fmt.Errorf("clearing installation rows: %w", err)
	}
	for i, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("encoding row %d: %w", i, err)
		}
		if _, err := tx.Exec("INSERT INTO installation_rows (position, data) VALUES (?, ?)", i, string(data)); err != nil {
			return fmt.Errorf("inserting row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// ListRows returns the installation dataset in import order.
func (s *Store) ListRows() ([]Row, error) {
	rows, err := s.db.Query("SELECT data FROM installation_rows ORDER BY position ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Row
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var r Row
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("decoding row: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// --- Selected cells ---

// ReplaceSelectedCells swaps the full unit -> annotations mapping.
func (s *Store) ReplaceSelectedCells(cells map[string][]string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning cells transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM selected_cells"); err != nil {
		return fmt.Errorf("clearing selected cells: %w", err)
	}
	for unit, annotations := range cells {
		for i, a := range annotations {
			if _, err := tx.Exec("INSERT INTO selected_cells (unit, position, annotation) VALUES (?, ?, ?)", unit, i, a); err != nil {
				return fmt.Errorf("inserting annotation for unit %s: %w", unit, err)
			}
		}
	}
	return tx.Commit()
}

// AppendSelectedCell adds one annotation to the end of a unit's annotation list.
func (s *Store) AppendSelectedCell(unit, annotation string) error {
	_, err := s.db.Exec(`
		INSERT INTO selected_cells (unit, position, annotation)
		VALUES (?, COALESCE((SELECT MAX(position) + 1 FROM selected_cells WHERE unit = ?), 0), ?)`,
		unit, unit, annotation,
	)
	return err
}

// ListSelectedCells returns the unit -> annotations mapping, annotations in
// selection order.
func (s *Store) ListSelectedCells() (map[string][]string, error) {
	rows, err := s.db.Query("SELECT unit, annotation FROM selected_cells ORDER BY unit ASC, position ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string][]string)
	for rows.Next() {
		var unit, annotation string
		if err := rows.Scan(&unit, &annotation); err != nil {
			return nil, err
		}
		result[unit] = append(result[unit], annotation)
	}
	return result, rows.Err()
}

// --- Selected note columns ---

// ReplaceSelectedColumns swaps the ordered list of selected note columns.
func (s *Store) ReplaceSelectedColumns(names []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning columns transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM selected_columns"); err != nil {
		return fmt.Errorf("clearing selected columns: %w", err)
	}
	for i, name := range names {
		if _, err := tx.Exec("INSERT INTO selected_columns (position, name) VALUES (?, ?)", i, name); err != nil {
			return fmt.Errorf("inserting column %q: %w", name, err)
		}
	}
	return tx.Commit()
}

// ListSelectedColumns returns the selected note columns in selection order.
func (s *Store) ListSelectedColumns() ([]string, error) {
	rows, err := s.db.Query("SELECT name FROM selected_columns ORDER BY position ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// --- Unified notes ---

// ListNotes returns all stored notes in insertion order.
func (s *Store) ListNotes() ([]Note, error) {
	rows, err := s.db.Query("SELECT id, unit, content, updated_at FROM unified_notes ORDER BY rowid ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		var n Note
		var updatedAt string
		if err := rows.Scan(&n.ID, &n.Unit, &n.Content, &updatedAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, updatedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing updated_at: %w", err)
		}
		n.UpdatedAt = t
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// ReplaceNotes swaps the full stored note collection.
func (s *Store) ReplaceNotes(notes []Note) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning notes transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM unified_notes"); err != nil {
		return fmt.Errorf("clearing unified notes: %w", err)
	}
	for _, n := range notes {
		if _, err := tx.Exec(`
			INSERT INTO unified_notes (id, unit, content, updated_at) VALUES (?, ?, ?, ?)`,
			n.ID, n.Unit, n.Content, n.UpdatedAt.UTC().Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("inserting note for unit %s: %w", n.Unit, err)
		}
	}
	return tx.Commit()
}

// GetNoteByUnit returns the stored note for a single unit.
func (s *Store) GetNoteByUnit(unit string) (Note, error) {
	var n Note
	var updatedAt string
	err := s.db.QueryRow(
		"SELECT id, unit, content, updated_at FROM unified_notes WHERE unit = ?", unit,
	).Scan(&n.ID, &n.Unit, &n.Content, &updatedAt)
	if err == sql.ErrNoRows {
		return Note{}, ErrNotFound
	}
	if err != nil {
		return Note{}, err
	}
	t, err := time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return Note{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	n.UpdatedAt = t
	return n, nil
}

// DeleteAllNotes removes the entire stored note collection.
func (s *Store) DeleteAllNotes() error {
	_, err := s.db.Exec("DELETE FROM unified_notes")
	return err
}

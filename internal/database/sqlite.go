package database

import (
	"database/sql"
	"errors"
	"fmt"

	"mm-go/internal/database/migrations"
	"mm-go/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// modelColumns is the full column list of mm_models, in the order every
// whole-row read and write uses.
const modelColumns = `id, type, name, path, size, hash, mtime, scanned_at, trigger, tags,
	name_local, name_civitai, version_civitai, type_civitai, base_model_civitai,
	creator_civitai, license_civitai, civitai_model_url, civitai_checked_at,
	trigger_local, trigger_civitai, tags_local, tags_civitai`

// SQLiteCatalog implements the mm.Database interface using SQLite.
type SQLiteCatalog struct {
	db   *sql.DB
	path string
}

// NewSQLiteCatalog opens (creating if necessary) a catalog database and
// brings its schema to the latest version.
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteCatalog(path string) (*SQLiteCatalog, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating catalog schema: %w", err)
	}

	return &SQLiteCatalog{db: db, path: path}, nil
}

// NewSQLiteCatalogFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly
// configured and its schema migrated.
func NewSQLiteCatalogFromDB(db *sql.DB) *SQLiteCatalog {
	return &SQLiteCatalog{db: db, path: ""}
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// This is exported for use in tools and tests that need a properly configured SQLite connection.
// path can be a file path or ":memory:" for an in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every pooled connection to :memory: would be its own empty database,
	// so pin the pool to a single connection.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// WAL lets catalog reads proceed while a scan writes; writers block
	// one another and wait up to a minute before giving up.
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 60000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	return db, nil
}

// Model operations

func (s *SQLiteCatalog) FindModelByID(id string) (*model.Model, error) {
	row := s.db.QueryRow(`SELECT `+modelColumns+` FROM mm_models WHERE id = ?`, id)
	m, err := scanModel(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding model by id: %w", err)
	}
	return m, nil
}

func (s *SQLiteCatalog) UpsertModel(m *model.Model) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO mm_models (`+modelColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID,
		string(m.Kind),
		m.Name.Legacy,
		m.Path,
		m.Size,
		nullString(m.Hash),
		m.MTime,
		m.ScannedAt,
		nullString(m.Trigger.Legacy),
		nullString(m.Tags.Legacy),
		nullString(m.Name.Local),
		nullString(m.Name.Remote),
		nullString(m.Remote.Version),
		nullString(m.Remote.Type),
		nullString(m.Remote.BaseModel),
		nullString(m.Remote.Creator),
		nullString(m.Remote.License),
		nullString(m.Remote.URL),
		nullInt64(m.Remote.CheckedAt),
		nullString(m.Trigger.Local),
		nullString(m.Trigger.Remote),
		nullString(m.Tags.Local),
		nullString(m.Tags.Remote),
	)
	if err != nil {
		return fmt.Errorf("upserting model: %w", err)
	}
	return nil
}

func (s *SQLiteCatalog) SetModelLocalName(id, name string) error {
	_, err := s.db.Exec(`UPDATE mm_models SET name_local = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("setting local name: %w", err)
	}
	return nil
}

func (s *SQLiteCatalog) ListModels() ([]*model.Model, error) {
	rows, err := s.db.Query(`SELECT ` + modelColumns + ` FROM mm_models ORDER BY type, name COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}
	defer rows.Close()

	var models []*model.Model
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning model row: %w", err)
		}
		models = append(models, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading model rows: %w", err)
	}
	return models, nil
}

func (s *SQLiteCatalog) DeleteModelsNotIn(observed []string) (int64, error) {
	keep := make(map[string]struct{}, len(observed))
	for _, p := range observed {
		keep[p] = struct{}{}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(`SELECT id, path FROM mm_models`)
	if err != nil {
		return 0, fmt.Errorf("reading catalog paths: %w", err)
	}

	var stale []string
	for rows.Next() {
		var id, path string
		if err := rows.Scan(&id, &path); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning catalog row: %w", err)
		}
		if _, ok := keep[path]; !ok {
			stale = append(stale, id)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("reading catalog rows: %w", err)
	}
	rows.Close()

	for _, id := range stale {
		if _, err := tx.Exec(`DELETE FROM mm_models WHERE id = ?`, id); err != nil {
			return 0, fmt.Errorf("deleting stale model: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing deletion: %w", err)
	}
	return int64(len(stale)), nil
}

func (s *SQLiteCatalog) SetModelHash(id, hash string) (bool, error) {
	res, err := s.db.Exec(`UPDATE mm_models SET hash = ? WHERE id = ?`, hash, id)
	if err != nil {
		return false, fmt.Errorf("setting model hash: %w", err)
	}
	return rowMatched(res)
}

func (s *SQLiteCatalog) UpdateModelRemote(m *model.Model) (bool, error) {
	res, err := s.db.Exec(`
		UPDATE mm_models
		SET
			name_civitai = ?,
			version_civitai = ?,
			type_civitai = ?,
			base_model_civitai = ?,
			creator_civitai = ?,
			license_civitai = ?,
			civitai_model_url = ?,
			civitai_checked_at = ?,
			trigger_civitai = ?,
			tags_civitai = ?,
			name = ?,
			trigger = ?,
			tags = ?
		WHERE id = ?`,
		nullString(m.Name.Remote),
		nullString(m.Remote.Version),
		nullString(m.Remote.Type),
		nullString(m.Remote.BaseModel),
		nullString(m.Remote.Creator),
		nullString(m.Remote.License),
		nullString(m.Remote.URL),
		nullInt64(m.Remote.CheckedAt),
		nullString(m.Trigger.Remote),
		nullString(m.Tags.Remote),
		m.Name.Legacy,
		nullString(m.Trigger.Legacy),
		nullString(m.Tags.Legacy),
		m.ID,
	)
	if err != nil {
		return false, fmt.Errorf("updating remote metadata: %w", err)
	}
	return rowMatched(res)
}

func (s *SQLiteCatalog) MarkRemoteChecked(id string, checkedAt int64) (bool, error) {
	res, err := s.db.Exec(`UPDATE mm_models SET civitai_checked_at = ? WHERE id = ?`, checkedAt, id)
	if err != nil {
		return false, fmt.Errorf("marking remote checked: %w", err)
	}
	return rowMatched(res)
}

func (s *SQLiteCatalog) CatalogEmpty() (bool, error) {
	var count int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM mm_models`).Scan(&count); err != nil {
		return false, fmt.Errorf("counting models: %w", err)
	}
	return count == 0, nil
}

func (s *SQLiteCatalog) ClearModels() error {
	if _, err := s.db.Exec(`DELETE FROM mm_models`); err != nil {
		return fmt.Errorf("clearing models: %w", err)
	}
	return nil
}

// Settings operations

func (s *SQLiteCatalog) GetSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM mm_settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil // Not saved yet
		}
		return "", fmt.Errorf("reading setting: %w", err)
	}
	return value, nil
}

func (s *SQLiteCatalog) PutSetting(key, value string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO mm_settings (key, value) VALUES (?, ?)`, key, value)
	if err != nil {
		return fmt.Errorf("writing setting: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteCatalog) Close() error {
	return s.db.Close()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanModel(row rowScanner) (*model.Model, error) {
	var (
		m    model.Model
		kind string

		hash, legacyTrigger, legacyTags sql.NullString
		nameLocal, nameRemote           sql.NullString
		version, remoteType, baseModel  sql.NullString
		creator, license, url           sql.NullString
		checkedAt                       sql.NullInt64
		triggerLocal, triggerRemote     sql.NullString
		tagsLocal, tagsRemote           sql.NullString
	)

	err := row.Scan(
		&m.ID, &kind, &m.Name.Legacy, &m.Path, &m.Size, &hash, &m.MTime, &m.ScannedAt,
		&legacyTrigger, &legacyTags,
		&nameLocal, &nameRemote, &version, &remoteType, &baseModel,
		&creator, &license, &url, &checkedAt,
		&triggerLocal, &triggerRemote, &tagsLocal, &tagsRemote,
	)
	if err != nil {
		return nil, err
	}

	m.Kind = model.Kind(kind)
	m.Hash = hash.String
	m.Trigger.Legacy = legacyTrigger.String
	m.Tags.Legacy = legacyTags.String
	m.Name.Local = nameLocal.String
	m.Name.Remote = nameRemote.String
	m.Remote.Version = version.String
	m.Remote.Type = remoteType.String
	m.Remote.BaseModel = baseModel.String
	m.Remote.Creator = creator.String
	m.Remote.License = license.String
	m.Remote.URL = url.String
	m.Remote.CheckedAt = checkedAt.Int64
	m.Trigger.Local = triggerLocal.String
	m.Trigger.Remote = triggerRemote.String
	m.Tags.Local = tagsLocal.String
	m.Tags.Remote = tagsRemote.String

	return &m, nil
}

// nullString maps the empty string to NULL so absent metadata stays absent
// in the catalog rather than degrading to empty text.
func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}

func rowMatched(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading rows affected: %w", err)
	}
	return n > 0, nil
}

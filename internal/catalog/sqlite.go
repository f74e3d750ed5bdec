package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    title            TEXT,
    year             INTEGER,
    catalogue_number TEXT,
    poster_url       TEXT,
    backdrop_url     TEXT,
    description      TEXT,
    director         TEXT,
    actors           TEXT,
    available_images TEXT,
    info_page_link   TEXT,
    external_id      TEXT
);
`

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// Open connects to the SQLite database at dbPath, applying pragmas and
// creating the schema if needed.
func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

const entryColumns = `id, title, year, catalogue_number, poster_url, backdrop_url,
    description, director, actors, available_images, info_page_link, external_id`

func scanEntry(row interface{ Scan(...any) error }) (*Entry, error) {
	var e Entry
	var title, catNum, poster, backdrop, desc, director, actors, images, link, extID sql.NullString
	var year sql.NullInt64

	err := row.Scan(&e.ID, &title, &year, &catNum, &poster, &backdrop,
		&desc, &director, &actors, &images, &link, &extID)
	if err != nil {
		return nil, err
	}

	e.Title = title.String
	e.Year = int(year.Int64)
	e.CatalogueNumber = catNum.String
	e.PosterURL = poster.String
	e.BackdropURL = backdrop.String
	e.Description = desc.String
	e.Director = director.String
	e.InfoPageLink = link.String
	e.ExternalID = extID.String

	if actors.String != "" {
		if err := json.Unmarshal([]byte(actors.String), &e.Actors); err != nil {
			return nil, fmt.Errorf("decode actors for entry %d: %w", e.ID, err)
		}
	}
	if images.String != "" {
		if err := json.Unmarshal([]byte(images.String), &e.AvailableImages); err != nil {
			return nil, fmt.Errorf("decode available_images for entry %d: %w", e.ID, err)
		}
	}

	return &e, nil
}

// GetEntry fetches one entry by id.
func (s *SQLiteStore) GetEntry(ctx context.Context, id int64) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+entryColumns+" FROM entries WHERE id = ?", id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entry %d: %w", id, err)
	}
	return e, nil
}

// ListMissing returns queryable entries missing at least one of the given
// fields, ordered by id ascending.
func (s *SQLiteStore) ListMissing(ctx context.Context, fields []string, limit int) ([]Entry, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("list missing: no target fields")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("list missing: limit must be positive")
	}

	conds := make([]string, 0, len(fields))
	for _, f := range fields {
		if !ValidField(f) {
			return nil, fmt.Errorf("list missing: %w: %q", ErrUnknownField, f)
		}
		conds = append(conds, fmt.Sprintf("(%s IS NULL OR %s = '')", f, f))
	}

	// Entries with neither a catalogue number nor a title can never be
	// resolved, so they are excluded here rather than per-worker.
	query := fmt.Sprintf(`SELECT %s FROM entries
        WHERE (%s)
        AND (COALESCE(catalogue_number, '') <> '' OR COALESCE(title, '') <> '')
        ORDER BY id ASC LIMIT ?`,
		entryColumns, strings.Join(conds, " OR "))

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list missing: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("list missing: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list missing: %w", err)
	}
	return entries, nil
}

// ApplyPatch writes only the patch fields whose stored value is still empty.
// Fields that already have a value are dropped without error.
func (s *SQLiteStore) ApplyPatch(ctx context.Context, id int64, patch map[string]any) error {
	if len(patch) == 0 {
		return nil
	}
	for f := range patch {
		if !ValidField(f) {
			return fmt.Errorf("apply patch: %w: %q", ErrUnknownField, f)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("apply patch: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := txGetEntry(ctx, tx, id)
	if err != nil {
		return err
	}

	sets := make([]string, 0, len(patch))
	args := make([]any, 0, len(patch)+1)
	for _, field := range EnrichableFields {
		value, ok := patch[field]
		if !ok || current.HasField(field) {
			continue
		}
		encoded, err := encodeFieldValue(field, value)
		if err != nil {
			return fmt.Errorf("apply patch: %w", err)
		}
		if encoded == "" {
			continue
		}
		sets = append(sets, field+" = ?")
		args = append(args, encoded)
	}

	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	res, err := tx.ExecContext(ctx,
		"UPDATE entries SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("apply patch: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("apply patch: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("apply patch: commit: %w", err)
	}
	return nil
}

func txGetEntry(ctx context.Context, tx *sql.Tx, id int64) (*Entry, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+entryColumns+" FROM entries WHERE id = ?", id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entry %d: %w", id, err)
	}
	return e, nil
}

func encodeFieldValue(field string, value any) (string, error) {
	switch field {
	case FieldActors, FieldAvailableImages:
		list, ok := value.([]string)
		if !ok {
			return "", fmt.Errorf("field %s wants []string, got %T", field, value)
		}
		if len(list) == 0 {
			return "", nil
		}
		data, err := json.Marshal(list)
		if err != nil {
			return "", fmt.Errorf("encode %s: %w", field, err)
		}
		return string(data), nil
	default:
		str, ok := value.(string)
		if !ok {
			return "", fmt.Errorf("field %s wants string, got %T", field, value)
		}
		return str, nil
	}
}

// InsertEntry adds a new entry and returns it with its assigned id.
func (s *SQLiteStore) InsertEntry(ctx context.Context, e Entry) (*Entry, error) {
	actors, err := encodeNullableList(e.Actors)
	if err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}
	images, err := encodeNullableList(e.AvailableImages)
	if err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO entries (
        title, year, catalogue_number, poster_url, backdrop_url,
        description, director, actors, available_images, info_page_link, external_id
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableString(e.Title), nullableInt(e.Year), nullableString(e.CatalogueNumber),
		nullableString(e.PosterURL), nullableString(e.BackdropURL),
		nullableString(e.Description), nullableString(e.Director),
		actors, images,
		nullableString(e.InfoPageLink), nullableString(e.ExternalID),
	)
	if err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert entry: last insert id: %w", err)
	}
	return s.GetEntry(ctx, id)
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt(i int) any {
	if i == 0 {
		return nil
	}
	return i
}

func encodeNullableList(list []string) (any, error) {
	if len(list) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(list)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

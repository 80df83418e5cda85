package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/amishk599/jobscout/internal/model"
)

// Ensure SQLiteStore implements model.ListingStore.
var _ model.ListingStore = (*SQLiteStore)(nil)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS listings (
	source       TEXT NOT NULL,
	id           TEXT NOT NULL,
	title        TEXT NOT NULL,
	company_name TEXT NOT NULL,
	seniority    TEXT NOT NULL DEFAULT '',
	location     TEXT NOT NULL DEFAULT '',
	modality     TEXT NOT NULL DEFAULT '',
	description  TEXT NOT NULL DEFAULT '',
	url          TEXT NOT NULL,
	salary       INTEGER,
	posted_date  TEXT,
	tags         TEXT NOT NULL DEFAULT '[]',
	is_notified  INTEGER NOT NULL DEFAULT 0,
	created_at   TEXT NOT NULL,
	PRIMARY KEY (source, id)
)`

const listingColumns = `source, id, title, company_name, seniority, location, modality,
	description, url, salary, posted_date, tags, is_notified, created_at`

// SQLiteStore persists listings in a SQLite database file.
type SQLiteStore struct {
	db     *sql.DB
	policy model.ConflictPolicy
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the listings table exists.
func NewSQLiteStore(dbPath string, policy model.ConflictPolicy) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating listings table: %w", err)
	}

	return &SQLiteStore{db: db, policy: policy}, nil
}

// Save inserts listings whose key is not stored yet and applies the
// conflict policy to the rest. The batch is one transaction.
func (s *SQLiteStore) Save(ctx context.Context, listings []model.Listing) (model.SaveResult, error) {
	var res model.SaveResult

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.SaveResult{}, fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	now := nowUTC()
	for _, l := range listings {
		existing, found, err := s.get(ctx, tx, l.Key())
		if err != nil {
			return model.SaveResult{}, err
		}

		if !found {
			l.IsNotified = false
			l.CreatedAt = now
			if err := s.insert(ctx, tx, l); err != nil {
				return model.SaveResult{}, err
			}
			res.Inserted++
			continue
		}

		next, changed := resolveConflict(s.policy, existing, l)
		if !changed {
			res.Skipped++
			continue
		}
		if err := s.update(ctx, tx, next); err != nil {
			return model.SaveResult{}, err
		}
		res.Updated++
	}

	if err := tx.Commit(); err != nil {
		return model.SaveResult{}, fmt.Errorf("commit save: %w", err)
	}
	return res, nil
}

// Unnotified returns every listing not yet notified, in insertion order.
func (s *SQLiteStore) Unnotified(ctx context.Context) ([]model.Listing, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+listingColumns+" FROM listings WHERE is_notified = 0 ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("querying unnotified listings: %w", err)
	}
	defer rows.Close()

	var listings []model.Listing
	for rows.Next() {
		l, err := scanSQLiteListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating unnotified listings: %w", err)
	}
	return listings, nil
}

// MarkNotified flags the given keys as notified. Keys that are not stored
// are reported in MarkResult.Missing.
func (s *SQLiteStore) MarkNotified(ctx context.Context, keys []model.ListingKey) (model.MarkResult, error) {
	var res model.MarkResult

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.MarkResult{}, fmt.Errorf("begin mark notified: %w", err)
	}
	defer tx.Rollback()

	for _, k := range keys {
		result, err := tx.ExecContext(ctx,
			"UPDATE listings SET is_notified = 1 WHERE source = ? AND id = ?", k.Source, k.ID)
		if err != nil {
			return model.MarkResult{}, fmt.Errorf("marking %s notified: %w", k, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return model.MarkResult{}, fmt.Errorf("marking %s notified: %w", k, err)
		}
		if n == 0 {
			res.Missing = append(res.Missing, k)
			continue
		}
		res.Marked++
	}

	if err := tx.Commit(); err != nil {
		return model.MarkResult{}, fmt.Errorf("commit mark notified: %w", err)
	}
	return res, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) get(ctx context.Context, tx *sql.Tx, key model.ListingKey) (model.Listing, bool, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+listingColumns+" FROM listings WHERE source = ? AND id = ?", key.Source, key.ID)
	l, err := scanSQLiteListing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Listing{}, false, nil
	}
	if err != nil {
		return model.Listing{}, false, fmt.Errorf("looking up %s: %w", key, err)
	}
	return l, true, nil
}

func (s *SQLiteStore) insert(ctx context.Context, tx *sql.Tx, l model.Listing) error {
	tags, err := encodeTags(l.Tags)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO listings ("+listingColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		l.Source, l.ID, l.Title, l.CompanyName, l.Seniority, l.Location, l.Modality,
		l.Description, l.URL, nullInt(l.Salary), nullTime(l.PostedAt), tags,
		l.IsNotified, formatTime(l.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting %s: %w", l.Key(), err)
	}
	return nil
}

func (s *SQLiteStore) update(ctx context.Context, tx *sql.Tx, l model.Listing) error {
	tags, err := encodeTags(l.Tags)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE listings SET title = ?, company_name = ?, seniority = ?, location = ?, modality = ?,
			description = ?, url = ?, salary = ?, posted_date = ?, tags = ?
		WHERE source = ? AND id = ?`,
		l.Title, l.CompanyName, l.Seniority, l.Location, l.Modality,
		l.Description, l.URL, nullInt(l.Salary), nullTime(l.PostedAt), tags,
		l.Source, l.ID,
	)
	if err != nil {
		return fmt.Errorf("updating %s: %w", l.Key(), err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteListing(row rowScanner) (model.Listing, error) {
	var (
		l         model.Listing
		salary    sql.NullInt64
		posted    sql.NullString
		tags      string
		createdAt string
	)
	err := row.Scan(
		&l.Source, &l.ID, &l.Title, &l.CompanyName, &l.Seniority, &l.Location, &l.Modality,
		&l.Description, &l.URL, &salary, &posted, &tags, &l.IsNotified, &createdAt,
	)
	if err != nil {
		return model.Listing{}, err
	}

	if salary.Valid {
		v := int(salary.Int64)
		l.Salary = &v
	}
	if posted.Valid && posted.String != "" {
		t, err := time.Parse(time.RFC3339Nano, posted.String)
		if err != nil {
			return model.Listing{}, fmt.Errorf("parsing posted_date of %s: %w", l.Key(), err)
		}
		l.PostedAt = &t
	}
	if l.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return model.Listing{}, fmt.Errorf("parsing created_at of %s: %w", l.Key(), err)
	}
	if err := json.Unmarshal([]byte(tags), &l.Tags); err != nil {
		return model.Listing{}, fmt.Errorf("decoding tags of %s: %w", l.Key(), err)
	}
	return l, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encoding tags: %w", err)
	}
	return string(b), nil
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

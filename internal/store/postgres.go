package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amishk599/jobscout/internal/model"
)

// Ensure PostgresStore implements model.ListingStore.
var _ model.ListingStore = (*PostgresStore)(nil)

const postgresSchema = `CREATE TABLE IF NOT EXISTS listings (
	seq          BIGSERIAL,
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
	posted_date  TIMESTAMPTZ,
	tags         JSONB NOT NULL DEFAULT '[]',
	is_notified  BOOLEAN NOT NULL DEFAULT FALSE,
	created_at   TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (source, id)
)`

// PostgresStore persists listings in a Postgres database through a pgx pool.
type PostgresStore struct {
	pool   *pgxpool.Pool
	policy model.ConflictPolicy
}

// NewPostgresStore connects to databaseURL and ensures the listings table exists.
func NewPostgresStore(ctx context.Context, databaseURL string, policy model.ConflictPolicy) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating listings table: %w", err)
	}

	return &PostgresStore{pool: pool, policy: policy}, nil
}

// Save inserts new listings and applies the conflict policy to known keys,
// all inside one transaction.
func (s *PostgresStore) Save(ctx context.Context, listings []model.Listing) (model.SaveResult, error) {
	var res model.SaveResult

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.SaveResult{}, fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback(ctx)

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

	if err := tx.Commit(ctx); err != nil {
		return model.SaveResult{}, fmt.Errorf("commit save: %w", err)
	}
	return res, nil
}

// Unnotified returns every listing not yet notified, in insertion order.
func (s *PostgresStore) Unnotified(ctx context.Context) ([]model.Listing, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+listingColumns+" FROM listings WHERE NOT is_notified ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("querying unnotified listings: %w", err)
	}
	defer rows.Close()

	var listings []model.Listing
	for rows.Next() {
		l, err := scanPostgresListing(rows)
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

// MarkNotified flags the given keys as notified and reports unknown keys.
func (s *PostgresStore) MarkNotified(ctx context.Context, keys []model.ListingKey) (model.MarkResult, error) {
	var res model.MarkResult

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.MarkResult{}, fmt.Errorf("begin mark notified: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, k := range keys {
		tag, err := tx.Exec(ctx,
			"UPDATE listings SET is_notified = TRUE WHERE source = $1 AND id = $2", k.Source, k.ID)
		if err != nil {
			return model.MarkResult{}, fmt.Errorf("marking %s notified: %w", k, err)
		}
		if tag.RowsAffected() == 0 {
			res.Missing = append(res.Missing, k)
			continue
		}
		res.Marked++
	}

	if err := tx.Commit(ctx); err != nil {
		return model.MarkResult{}, fmt.Errorf("commit mark notified: %w", err)
	}
	return res, nil
}

// Close releases every pooled connection.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) get(ctx context.Context, tx pgx.Tx, key model.ListingKey) (model.Listing, bool, error) {
	row := tx.QueryRow(ctx,
		"SELECT "+listingColumns+" FROM listings WHERE source = $1 AND id = $2", key.Source, key.ID)
	l, err := scanPostgresListing(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Listing{}, false, nil
	}
	if err != nil {
		return model.Listing{}, false, fmt.Errorf("looking up %s: %w", key, err)
	}
	return l, true, nil
}

func (s *PostgresStore) insert(ctx context.Context, tx pgx.Tx, l model.Listing) error {
	tags, err := encodeTags(l.Tags)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO listings (`+listingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::jsonb, $13, $14)`,
		l.Source, l.ID, l.Title, l.CompanyName, l.Seniority, l.Location, l.Modality,
		l.Description, l.URL, l.Salary, l.PostedAt, tags, l.IsNotified, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting %s: %w", l.Key(), err)
	}
	return nil
}

func (s *PostgresStore) update(ctx context.Context, tx pgx.Tx, l model.Listing) error {
	tags, err := encodeTags(l.Tags)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`UPDATE listings SET title = $3, company_name = $4, seniority = $5, location = $6, modality = $7,
			description = $8, url = $9, salary = $10, posted_date = $11, tags = $12::jsonb
		WHERE source = $1 AND id = $2`,
		l.Source, l.ID, l.Title, l.CompanyName, l.Seniority, l.Location, l.Modality,
		l.Description, l.URL, l.Salary, l.PostedAt, tags,
	)
	if err != nil {
		return fmt.Errorf("updating %s: %w", l.Key(), err)
	}
	return nil
}

func scanPostgresListing(row pgx.Row) (model.Listing, error) {
	var (
		l      model.Listing
		salary *int32
		posted *time.Time
		tags   []byte
	)
	err := row.Scan(
		&l.Source, &l.ID, &l.Title, &l.CompanyName, &l.Seniority, &l.Location, &l.Modality,
		&l.Description, &l.URL, &salary, &posted, &tags, &l.IsNotified, &l.CreatedAt,
	)
	if err != nil {
		return model.Listing{}, err
	}

	if salary != nil {
		v := int(*salary)
		l.Salary = &v
	}
	if posted != nil {
		t := posted.UTC()
		l.PostedAt = &t
	}
	l.CreatedAt = l.CreatedAt.UTC()
	if err := json.Unmarshal(tags, &l.Tags); err != nil {
		return model.Listing{}, fmt.Errorf("decoding tags of %s: %w", l.Key(), err)
	}
	return l, nil
}

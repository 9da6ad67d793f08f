package store

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/jackc/pgx/v5"
)

// Store manages the PostgreSQL connection backing the dataset ledger.
type Store struct {
	conn *pgx.Conn
}

// PersonSummary is one row of ListPeople.
type PersonSummary struct {
	Person     string
	Images     int
	Crops      int
	LastActive time.Time
}

// New establishes a connection to the database and ensures the schema is initialized.
func New(ctx context.Context, connString string) (*Store, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}

	// Initialize schema (Auto-Migration)
	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &Store{conn: conn}, nil
}

// initSchema creates the ledger tables if they don't exist (Auto-Migration).
func initSchema(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS crawled_images (
			id BIGSERIAL PRIMARY KEY,
			person TEXT NOT NULL,
			source_url TEXT NOT NULL,
			location TEXT NOT NULL UNIQUE,
			content_type TEXT NOT NULL,
			bytes INT NOT NULL,
			sha256 TEXT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS face_crops (
			id BIGSERIAL PRIMARY KEY,
			person TEXT NOT NULL,
			source_path TEXT NOT NULL,
			crop_path TEXT NOT NULL UNIQUE,
			x INT NOT NULL,
			y INT NOT NULL,
			width INT NOT NULL,
			height INT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS crawled_images_person_idx ON crawled_images (person);
		CREATE INDEX IF NOT EXISTS face_crops_person_idx ON face_crops (person);
	`
	_, err := conn.Exec(ctx, query)
	return err
}

// Close terminates the database connection.
func (s *Store) Close(ctx context.Context) {
	s.conn.Close(ctx)
}

// RecordImage registers a downloaded image. Re-crawls overwrite files in
// place, so the row for an existing location is replaced.
func (s *Store) RecordImage(ctx context.Context, person, sourceURL, location, contentType string, size int, sha string) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO crawled_images (person, source_url, location, content_type, bytes, sha256, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (location) DO UPDATE SET
			person = EXCLUDED.person,
			source_url = EXCLUDED.source_url,
			content_type = EXCLUDED.content_type,
			bytes = EXCLUDED.bytes,
			sha256 = EXCLUDED.sha256,
			created_at = NOW()
	`, person, sourceURL, location, contentType, size, sha)
	return err
}

// ResetCrops forgets earlier crops of person; extraction renumbers from 001 on every run.
func (s *Store) ResetCrops(ctx context.Context, person string) error {
	_, err := s.conn.Exec(ctx, "DELETE FROM face_crops WHERE person = $1", person)
	return err
}

// RecordCrop registers one cropped face and the box it was cut from.
func (s *Store) RecordCrop(ctx context.Context, person, sourcePath, cropPath string, box image.Rectangle) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO face_crops (person, source_path, crop_path, x, y, width, height, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (crop_path) DO UPDATE SET
			person = EXCLUDED.person,
			source_path = EXCLUDED.source_path,
			x = EXCLUDED.x, y = EXCLUDED.y,
			width = EXCLUDED.width, height = EXCLUDED.height,
			created_at = NOW()
	`, person, sourcePath, cropPath, box.Min.X, box.Min.Y, box.Dx(), box.Dy())
	return err
}

// ListPeople returns per-person image and crop counts, most recently active first.
func (s *Store) ListPeople(ctx context.Context) ([]PersonSummary, error) {
	rows, err := s.conn.Query(ctx, `
		WITH people AS (
			SELECT person, COUNT(*) AS images, 0 AS crops, MAX(created_at) AS last_active
			FROM crawled_images GROUP BY person
			UNION ALL
			SELECT person, 0, COUNT(*), MAX(created_at)
			FROM face_crops GROUP BY person
		)
		SELECT person, SUM(images)::int, SUM(crops)::int, MAX(last_active)
		FROM people
		GROUP BY person
		ORDER BY MAX(last_active) DESC, person
	`)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (PersonSummary, error) {
		var p PersonSummary
		err := row.Scan(&p.Person, &p.Images, &p.Crops, &p.LastActive)
		return p, err
	})
}

// Reset drops all application tables to clear the database state.
// This is useful for development to force a schema refresh without migrations.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, `
		DROP TABLE IF EXISTS face_crops CASCADE;
		DROP TABLE IF EXISTS crawled_images CASCADE;
	`)
	return err
}

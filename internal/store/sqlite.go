package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteStore keeps snapshots in the simulations table
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates a store over an opened and migrated database
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

// Save inserts or replaces a snapshot
func (s *SQLiteStore) Save(ctx context.Context, snap Snapshot) error {
	query := `
		INSERT INTO simulations (id, lat, lon, dist, snapshot, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			lat = excluded.lat,
			lon = excluded.lon,
			dist = excluded.dist,
			snapshot = excluded.snapshot,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		snap.ID, snap.Lat, snap.Lon, snap.Dist, string(snap.Data), s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Load reads a snapshot
func (s *SQLiteStore) Load(ctx context.Context, id string) ([]byte, error) {
	var data string
	err := s.db.QueryRowContext(ctx, "SELECT snapshot FROM simulations WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return []byte(data), nil
}

// Delete removes a snapshot
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM simulations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns the stored snapshots
func (s *SQLiteStore) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, lat, lon, dist, updated_at FROM simulations ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query simulations: %w", err)
	}
	defer rows.Close()

	summaries := []Summary{}
	for rows.Next() {
		var sum Summary
		var updatedAt int64
		if err := rows.Scan(&sum.ID, &sum.Lat, &sum.Lon, &sum.Dist, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan simulation: %w", err)
		}
		sum.UpdatedAt = time.Unix(updatedAt, 0)
		summaries = append(summaries, sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate simulations: %w", err)
	}
	return summaries, nil
}

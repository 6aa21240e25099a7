package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jengzang/charge-sim-backend/internal/models"
	"github.com/jengzang/charge-sim-backend/internal/spatial"
)

// TMJARepository reads road traffic segments
type TMJARepository struct {
	db *sql.DB
}

// NewTMJARepository creates a new TMJA repository
func NewTMJARepository(db *sql.DB) *TMJARepository {
	return &TMJARepository{db: db}
}

// SegmentsInBox returns the segments whose start and end both fall in the
// box, in table order
func (r *TMJARepository) SegmentsInBox(ctx context.Context, box spatial.BoundingBox) ([]models.RawSegment, error) {
	query := `
		SELECT route, IFNULL(cumul_start, 0),
			start_lat, start_lon, end_lat, end_lon,
			IFNULL(tmja, 0), IFNULL(ratio_pl, 0)
		FROM tmja
		WHERE (start_lat BETWEEN ? AND ? AND start_lon BETWEEN ? AND ?)
		  AND (end_lat BETWEEN ? AND ? AND end_lon BETWEEN ? AND ?)
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query,
		box.MinLat, box.MaxLat, box.MinLon, box.MaxLon,
		box.MinLat, box.MaxLat, box.MinLon, box.MaxLon,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query tmja: %w", err)
	}
	defer rows.Close()

	segments := []models.RawSegment{}
	for rows.Next() {
		var s models.RawSegment
		err := rows.Scan(
			&s.Route, &s.CumulStart,
			&s.Start.Lat, &s.Start.Lon, &s.End.Lat, &s.End.Lon,
			&s.TMJA, &s.RatioPL,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tmja segment: %w", err)
		}
		segments = append(segments, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tmja: %w", err)
	}

	return segments, nil
}

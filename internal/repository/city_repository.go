package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jengzang/charge-sim-backend/internal/models"
	"github.com/jengzang/charge-sim-backend/internal/spatial"
)

// CityRepository reads cities, vehicle registrations and commuter counts
type CityRepository struct {
	db *sql.DB
}

// NewCityRepository creates a new city repository
func NewCityRepository(db *sql.DB) *CityRepository {
	return &CityRepository{db: db}
}

// CitiesInBox returns the cities whose centroid lies in the box, joined with
// their vehicle counts. Cities without a cars record are left out.
func (r *CityRepository) CitiesInBox(ctx context.Context, box spatial.BoundingBox) ([]models.City, error) {
	query := `
		SELECT
			cities.insee, cities.name, IFNULL(cities.department, ''), IFNULL(cities.population, 0),
			cities.center_lat, cities.center_lon,
			IFNULL(cities.mairie_lat, cities.center_lat), IFNULL(cities.mairie_lon, cities.center_lon),
			IFNULL(cars.nb_vp_el, 0), IFNULL(cars.nb_vp, 0)
		FROM cities JOIN cars ON cities.insee = cars.insee
		WHERE cities.center_lat BETWEEN ? AND ?
		  AND cities.center_lon BETWEEN ? AND ?
		ORDER BY cities.insee
	`

	rows, err := r.db.QueryContext(ctx, query, box.MinLat, box.MaxLat, box.MinLon, box.MaxLon)
	if err != nil {
		return nil, fmt.Errorf("failed to query cities: %w", err)
	}
	defer rows.Close()

	cities := []models.City{}
	for rows.Next() {
		var row models.CityRow
		err := rows.Scan(
			&row.INSEE, &row.Name, &row.Department, &row.Population,
			&row.CenterLat, &row.CenterLon,
			&row.MairieLat, &row.MairieLon,
			&row.NbVpEl, &row.NbVp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan city: %w", err)
		}
		cities = append(cities, models.CityFromRow(row))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cities: %w", err)
	}

	return cities, nil
}

// CommuterCounts returns the commuter counts between the given cities, in
// both directions
func (r *CityRepository) CommuterCounts(ctx context.Context, codes []string) (models.CommuterTable, error) {
	table := models.CommuterTable{}
	if len(codes) == 0 {
		return table, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(codes)), ",")
	query := fmt.Sprintf(`
		SELECT insee_home, insee_work, IFNULL(nb_workers, 0)
		FROM workflux
		WHERE insee_home IN (%s) AND insee_work IN (%s)
	`, placeholders, placeholders)

	args := make([]interface{}, 0, 2*len(codes))
	for i := 0; i < 2; i++ {
		for _, c := range codes {
			args = append(args, c)
		}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflux: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var home, work string
		var workers float64
		if err := rows.Scan(&home, &work, &workers); err != nil {
			return nil, fmt.Errorf("failed to scan workflux: %w", err)
		}
		table.Add(home, work, workers)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate workflux: %w", err)
	}

	return table, nil
}

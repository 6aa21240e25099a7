package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/jengzang/charge-sim-backend/internal/database"
	"github.com/jengzang/charge-sim-backend/internal/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "data.sqlite"), Migrate: true}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seed(t *testing.T, db *sql.DB) {
	t.Helper()
	stmts := []string{
		`INSERT INTO cities (name, insee, population, department, center_lat, center_lon, mairie_lat, mairie_lon)
			VALUES ('Tours', '37261', 136000, '37', 47.39, 0.69, 47.391, 0.684)`,
		`INSERT INTO cities (name, insee, population, department, center_lat, center_lon, mairie_lat, mairie_lon)
			VALUES ('Joue-les-Tours', '37122', 38000, '37', 47.35, 0.66, 47.352, 0.663)`,
		`INSERT INTO cities (name, insee, population, department, center_lat, center_lon, mairie_lat, mairie_lon)
			VALUES ('Poitiers', '86194', 88000, '86', 46.58, 0.34, 46.58, 0.34)`,
		`INSERT INTO cities (name, insee, population, department, center_lat, center_lon, mairie_lat, mairie_lon)
			VALUES ('Nocars', '37999', 10, '37', 47.40, 0.70, 47.40, 0.70)`,
		`INSERT INTO cars (insee, nb_vp_el, nb_vp) VALUES ('37261', 900, 60000)`,
		`INSERT INTO cars (insee, nb_vp_el, nb_vp) VALUES ('37122', 300, 20000)`,
		`INSERT INTO cars (insee, nb_vp_el, nb_vp) VALUES ('86194', 500, 40000)`,
		`INSERT INTO workflux (insee_home, insee_work, nb_workers) VALUES ('37122', '37261', 4000)`,
		`INSERT INTO workflux (insee_home, insee_work, nb_workers) VALUES ('37261', '37122', 1500.5)`,
		`INSERT INTO workflux (insee_home, insee_work, nb_workers) VALUES ('86194', '37261', 80)`,
		`INSERT INTO tmja (route, cumul_start, start_lat, start_lon, end_lat, end_lon, tmja, ratio_pl)
			VALUES ('N10', 0, 47.30, 0.70, 47.35, 0.71, 12000, 0.1)`,
		`INSERT INTO tmja (route, cumul_start, start_lat, start_lon, end_lat, end_lon, tmja, ratio_pl)
			VALUES ('N10', 5000, 47.35, 0.71, 47.80, 0.75, 9000, 0.1)`,
		`INSERT INTO tmja (route, cumul_start, start_lat, start_lon, end_lat, end_lon, tmja, ratio_pl)
			VALUES ('D910', 0, 47.36, 0.68, 47.37, 0.69, 5000, 0.05)`,
	}
	for _, s := range stmts {
		_, err := db.Exec(s)
		require.NoError(t, err)
	}
}

func TestCitiesInBox(t *testing.T) {
	db := openTestDB(t)
	seed(t, db)
	repo := NewCityRepository(db)

	box := spatial.BoundingBoxAround(spatial.NewCoordinate(47.38, 0.68), 20)
	cities, err := repo.CitiesInBox(context.Background(), box)
	require.NoError(t, err)

	require.Len(t, cities, 2)
	assert.Equal(t, "37122", cities[0].INSEE)
	assert.Equal(t, "37261", cities[1].INSEE)
	assert.Equal(t, 900, cities[1].ElectricCars)
	assert.Equal(t, 60000, cities[1].Cars)
	assert.Equal(t, spatial.NewCoordinate(47.391, 0.684), cities[1].TownHall)
}

func TestCitiesInBoxEmpty(t *testing.T) {
	db := openTestDB(t)
	repo := NewCityRepository(db)

	cities, err := repo.CitiesInBox(context.Background(), spatial.BoundingBoxAround(spatial.NewCoordinate(47, 0), 5))
	require.NoError(t, err)
	assert.NotNil(t, cities)
	assert.Empty(t, cities)
}

func TestCommuterCounts(t *testing.T) {
	db := openTestDB(t)
	seed(t, db)
	repo := NewCityRepository(db)

	table, err := repo.CommuterCounts(context.Background(), []string{"37261", "37122"})
	require.NoError(t, err)

	v, ok := table.Lookup("37122", "37261")
	assert.True(t, ok)
	assert.Equal(t, 4000.0, v)
	v, ok = table.Lookup("37261", "37122")
	assert.True(t, ok)
	assert.Equal(t, 1500.5, v)

	// Poitiers is not part of the requested codes
	_, ok = table.Lookup("86194", "37261")
	assert.False(t, ok)

	empty, err := repo.CommuterCounts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSegmentsInBox(t *testing.T) {
	db := openTestDB(t)
	seed(t, db)
	repo := NewTMJARepository(db)

	box := spatial.BoundingBoxAround(spatial.NewCoordinate(47.35, 0.70), 10)
	segments, err := repo.SegmentsInBox(context.Background(), box)
	require.NoError(t, err)

	// The second N10 segment ends outside the box
	require.Len(t, segments, 2)
	assert.Equal(t, "N10", segments[0].Route)
	assert.Equal(t, 12000, segments[0].TMJA)
	assert.Equal(t, spatial.NewCoordinate(47.35, 0.71), segments[0].End)
	assert.Equal(t, "D910", segments[1].Route)
}

package repository_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jask/cropform/internal/database"
	"github.com/jask/cropform/internal/database/repository"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	migrations, err := filepath.Abs("../migrations")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(dbPath, migrations))
	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestLocationHierarchy(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewLocationRepo(openTestDB(t))

	_, err := repo.UpsertTaluk(ctx, "Karnataka", "Mysore", "Nanjangud")
	require.NoError(t, err)
	_, err = repo.UpsertTaluk(ctx, " Karnataka ", "Mysore", "Hunsur")
	require.NoError(t, err)
	_, err = repo.UpsertTaluk(ctx, "Karnataka", "Mysore", "Hunsur")
	require.NoError(t, err)
	_, err = repo.UpsertDistrict(ctx, "Karnataka", "Bangalore Urban")
	require.NoError(t, err)
	_, err = repo.UpsertDistrict(ctx, "Kerala", "Mysore")
	require.NoError(t, err)

	states, err := repo.States(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"Karnataka", "Kerala"}, states)

	districts, err := repo.Districts(ctx, "Karnataka")
	require.NoError(t, err)
	require.Equal(t, []string{"Bangalore Urban", "Mysore"}, districts)

	taluks, err := repo.Taluks(ctx, "Karnataka", "Mysore")
	require.NoError(t, err)
	require.Equal(t, []string{"Hunsur", "Nanjangud"}, taluks)

	// same district name in another state has its own taluks
	taluks, err = repo.Taluks(ctx, "Kerala", "Mysore")
	require.NoError(t, err)
	require.Empty(t, taluks)
	require.NotNil(t, taluks)

	unknown, err := repo.Districts(ctx, "Atlantis")
	require.NoError(t, err)
	require.Empty(t, unknown)
}

func TestLocationRejectsBlankNames(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewLocationRepo(openTestDB(t))
	_, err := repo.UpsertState(ctx, "  ")
	require.Error(t, err)
	_, err = repo.UpsertDistrict(ctx, "Goa", "")
	require.Error(t, err)
	_, err = repo.UpsertTaluk(ctx, "Goa", "North Goa", "")
	require.Error(t, err)
	_, err = repo.UpsertDistrict(ctx, "Goa", "North\x00Goa")
	require.Error(t, err)
}

func TestStableIDs(t *testing.T) {
	require.Equal(t, repository.StateID("Goa"), repository.StateID("Goa"))
	require.NotEqual(t, repository.DistrictID("Karnataka", "Mysore"), repository.DistrictID("Kerala", "Mysore"))
	require.NotEqual(t, repository.TalukID("A", "B", "C"), repository.TalukID("A", "BC", ""))
	require.NotEqual(t, repository.DistrictID("A/B", "C"), repository.DistrictID("A", "B/C"))
	require.NotEqual(t, repository.TalukID("A", "B/C", "D"), repository.TalukID("A/B", "C", "D"))
	require.NotEqual(t, repository.StateID("Goa"), repository.DistrictID("Goa", ""))
}

func TestSlashNamesDoNotCollide(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewLocationRepo(openTestDB(t))

	_, err := repo.UpsertDistrict(ctx, "Dadra/Nagar", "Haveli")
	require.NoError(t, err)
	_, err = repo.UpsertDistrict(ctx, "Dadra", "Nagar/Haveli")
	require.NoError(t, err)

	districts, err := repo.Districts(ctx, "Dadra/Nagar")
	require.NoError(t, err)
	require.Equal(t, []string{"Haveli"}, districts)
	districts, err = repo.Districts(ctx, "Dadra")
	require.NoError(t, err)
	require.Equal(t, []string{"Nagar/Haveli"}, districts)
}

func TestCropsByStateAndSeason(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewCropRepo(openTestDB(t))

	rows := []repository.CropSeason{
		{State: "Karnataka", Season: "Kharif     ", Crop: "Rice"},
		{State: "Karnataka", Season: "Kharif", Crop: "Maize"},
		{State: "Karnataka", Season: "Rabi", Crop: "Gram"},
		{State: "Kerala", Season: "Kharif", Crop: "Coconut "},
	}
	for _, r := range rows {
		inserted, err := repo.Upsert(ctx, r)
		require.NoError(t, err)
		require.True(t, inserted)
	}
	inserted, err := repo.Upsert(ctx, repository.CropSeason{State: "Karnataka", Season: "Kharif", Crop: "Rice"})
	require.NoError(t, err)
	require.False(t, inserted)

	_, err = repo.Upsert(ctx, repository.CropSeason{State: "Karnataka", Crop: "Rice"})
	require.Error(t, err)

	crops, err := repo.Crops(ctx, "Karnataka", "Kharif")
	require.NoError(t, err)
	require.Equal(t, []string{"Maize", "Rice"}, crops)

	seasons, err := repo.Seasons(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"Kharif", "Rabi"}, seasons)

	none, err := repo.Crops(ctx, "Goa", "Rabi")
	require.NoError(t, err)
	require.Empty(t, none)
}

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jask/cropform/internal/database/repository"
)

var defaultStates = []string{
	"Andhra Pradesh", "Arunachal Pradesh", "Assam", "Bihar", "Chhattisgarh",
	"Goa", "Gujarat", "Haryana", "Himachal Pradesh", "Jharkhand",
	"Karnataka", "Kerala", "Madhya Pradesh", "Maharashtra", "Manipur",
	"Meghalaya", "Mizoram", "Nagaland", "Odisha", "Punjab",
	"Rajasthan", "Sikkim", "Tamil Nadu", "Telangana", "Tripura",
	"Uttar Pradesh", "Uttarakhand", "West Bengal",
	"Andaman and Nicobar Islands", "Chandigarh", "Dadra and Nagar Haveli",
	"Daman and Diu", "Delhi", "Jammu and Kashmir", "Ladakh", "Lakshadweep",
	"Puducherry",
}

var defaultSeasons = []string{"Autumn", "Kharif", "Rabi", "Summer", "Whole Year", "Winter"}

// state -> district -> taluks
var defaultLocations = map[string]map[string][]string{
	"Karnataka": {
		"Bangalore Urban": {"Anekal", "Bangalore North", "Bangalore South"},
		"Mysore":          {"Hunsur", "Mysore", "Nanjangud", "T. Narasipur"},
		"Mandya":          {"Maddur", "Malavalli", "Mandya", "Srirangapatna"},
	},
	"Kerala": {
		"Ernakulam": {"Aluva", "Kochi", "Muvattupuzha"},
		"Kozhikode": {"Koyilandy", "Kozhikode", "Vadakara"},
	},
}

var defaultCrops = []repository.CropSeason{
	{State: "Karnataka", Season: "Kharif", Crop: "Arhar/Tur"},
	{State: "Karnataka", Season: "Kharif", Crop: "Maize"},
	{State: "Karnataka", Season: "Kharif", Crop: "Ragi"},
	{State: "Karnataka", Season: "Kharif", Crop: "Rice"},
	{State: "Karnataka", Season: "Rabi", Crop: "Gram"},
	{State: "Karnataka", Season: "Rabi", Crop: "Jowar"},
	{State: "Karnataka", Season: "Whole Year", Crop: "Arecanut"},
	{State: "Karnataka", Season: "Whole Year", Crop: "Coconut"},
	{State: "Karnataka", Season: "Whole Year", Crop: "Sugarcane"},
	{State: "Kerala", Season: "Autumn", Crop: "Rice"},
	{State: "Kerala", Season: "Whole Year", Crop: "Banana"},
	{State: "Kerala", Season: "Whole Year", Crop: "Black pepper"},
	{State: "Kerala", Season: "Whole Year", Crop: "Coconut"},
	{State: "Kerala", Season: "Winter", Crop: "Rice"},
}

// SeedDefaults ensures baseline lookup data exists for new databases.
// It is idempotent and safe to run on every startup.
func SeedDefaults(ctx context.Context, db *sql.DB) error {
	existing, err := repository.NewLocationRepo(db).States(ctx)
	if err == nil && len(existing) > 0 {
		return nil
	}
	return WithTx(ctx, db, func(tx *sql.Tx) error {
		return seed(ctx, repository.NewLocationRepo(tx), repository.NewCropRepo(tx))
	})
}

func seed(ctx context.Context, locRepo *repository.LocationRepo, cropRepo *repository.CropRepo) error {
	for _, s := range defaultStates {
		if _, err := locRepo.UpsertState(ctx, s); err != nil {
			return fmt.Errorf("seed state %q: %w", s, err)
		}
	}
	for state, districts := range defaultLocations {
		for district, taluks := range districts {
			for _, taluk := range taluks {
				if _, err := locRepo.UpsertTaluk(ctx, state, district, taluk); err != nil {
					return fmt.Errorf("seed taluk %q: %w", taluk, err)
				}
			}
		}
	}
	for _, season := range defaultSeasons {
		if err := cropRepo.UpsertSeason(ctx, season); err != nil {
			return fmt.Errorf("seed season %q: %w", season, err)
		}
	}
	for _, cs := range defaultCrops {
		if _, err := cropRepo.Upsert(ctx, cs); err != nil {
			return fmt.Errorf("seed crop %q: %w", cs.Crop, err)
		}
	}
	return nil
}

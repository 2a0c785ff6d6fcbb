// Package testdata generates crop yield CSVs shaped like the public dataset
// the importer is built for.
package testdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"strings"

	"github.com/jask/cropform/internal/database/repository"
)

var (
	crops   = []string{"Arecanut", "Banana", "Coconut", "Groundnut", "Maize", "Ragi", "Rice", "Sugarcane", "Wheat"}
	seasons = []string{"Autumn", "Kharif", "Rabi", "Summer", "Whole Year", "Winter"}
	states  = []string{"Assam", "Karnataka", "Kerala", "Punjab", "Tamil Nadu"}
)

// CropYieldHeader matches the dataset's column order.
var CropYieldHeader = []string{
	"Crop", "Crop_Year", "Season", "State", "Area", "Production",
	"Annual_Rainfall", "Fertilizer", "Pesticide", "Yield",
}

// WriteCropYield writes n rows drawn from rng and returns the distinct
// state/season/crop triples they contain, in first-seen order. Season cells
// carry the trailing padding the real dataset has.
func WriteCropYield(w io.Writer, rng *rand.Rand, n int) ([]repository.CropSeason, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(CropYieldHeader); err != nil {
		return nil, err
	}

	seen := make(map[repository.CropSeason]bool)
	var distinct []repository.CropSeason
	for i := 0; i < n; i++ {
		cs := repository.CropSeason{
			Crop:   crops[rng.Intn(len(crops))],
			Season: seasons[rng.Intn(len(seasons))],
			State:  states[rng.Intn(len(states))],
		}
		if !seen[cs] {
			seen[cs] = true
			distinct = append(distinct, cs)
		}
		area := rng.Intn(100000) + 1
		rec := []string{
			cs.Crop,
			fmt.Sprint(1997 + rng.Intn(24)),
			cs.Season + strings.Repeat(" ", rng.Intn(6)),
			cs.State,
			fmt.Sprint(area),
			fmt.Sprint(area * (rng.Intn(5) + 1)),
			fmt.Sprintf("%.1f", 500+rng.Float64()*2500),
			fmt.Sprintf("%.2f", rng.Float64()*1e7),
			fmt.Sprintf("%.2f", rng.Float64()*1e5),
			fmt.Sprintf("%.6f", rng.Float64()*5),
		}
		if err := cw.Write(rec); err != nil {
			return nil, err
		}
	}
	cw.Flush()
	return distinct, cw.Error()
}

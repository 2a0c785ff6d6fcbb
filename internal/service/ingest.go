package service

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/jask/cropform/internal/database/repository"
)

// IngestService loads lookup data from CSV exports.
type IngestService struct {
	Locations *repository.LocationRepo
	Crops     *repository.CropRepo
	Logger    *zap.Logger
}

type IngestResult struct {
	Imported int
	Skipped  int
	Errors   []error
}

// ImportCropYield ingests the crop yield dataset. It needs a header row; the
// Crop, Season and State columns are located by name and every other column
// is ignored.
func (s *IngestService) ImportCropYield(ctx context.Context, r io.Reader) (IngestResult, error) {
	res := IngestResult{}
	csvr := newReader(r)

	header, err := csvr.Read()
	if err != nil {
		return res, fmt.Errorf("read header: %w", err)
	}
	cols, err := columnIndex(header, "crop", "season", "state")
	if err != nil {
		return res, err
	}

	line := 1
	for {
		line++
		rec, err := csvr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return res, fmt.Errorf("read line %d: %w", line, err)
			}
			res.Errors = append(res.Errors, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		cs := repository.CropSeason{
			Crop:   field(rec, cols["crop"]),
			Season: field(rec, cols["season"]),
			State:  field(rec, cols["state"]),
		}.Trimmed()
		if cs.Crop == "" || cs.Season == "" || cs.State == "" {
			res.Errors = append(res.Errors, fmt.Errorf("line %d: crop, season and state are required", line))
			continue
		}
		inserted, err := s.Crops.Upsert(ctx, cs)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("line %d insert: %w", line, err))
			continue
		}
		if inserted {
			res.Imported++
		} else {
			res.Skipped++
		}
	}
	s.logger().Info("crop yield import finished",
		zap.Int("imported", res.Imported),
		zap.Int("skipped", res.Skipped),
		zap.Int("errors", len(res.Errors)))
	return res, nil
}

// ImportLocations ingests rows of state, district[, taluk]. A header row whose
// first cell is "state" is skipped.
func (s *IngestService) ImportLocations(ctx context.Context, r io.Reader) (IngestResult, error) {
	res := IngestResult{}
	csvr := newReader(r)
	seen := make(map[string]bool)

	line := 0
	for {
		line++
		rec, err := csvr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return res, fmt.Errorf("read line %d: %w", line, err)
			}
			res.Errors = append(res.Errors, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		if line == 1 && strings.EqualFold(field(rec, 0), "state") {
			continue
		}
		state, district, taluk := field(rec, 0), field(rec, 1), field(rec, 2)
		if state == "" || district == "" {
			res.Errors = append(res.Errors, fmt.Errorf("line %d: expected state, district[, taluk]", line))
			continue
		}
		key := strings.Join([]string{state, district, taluk}, "\x00")
		if seen[key] {
			res.Skipped++
			continue
		}
		seen[key] = true

		if taluk == "" {
			_, err = s.Locations.UpsertDistrict(ctx, state, district)
		} else {
			_, err = s.Locations.UpsertTaluk(ctx, state, district, taluk)
		}
		if err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("line %d insert: %w", line, err))
			continue
		}
		res.Imported++
	}
	s.logger().Info("location import finished",
		zap.Int("imported", res.Imported),
		zap.Int("skipped", res.Skipped),
		zap.Int("errors", len(res.Errors)))
	return res, nil
}

func (s *IngestService) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func newReader(r io.Reader) *csv.Reader {
	csvr := csv.NewReader(bufio.NewReader(r))
	csvr.TrimLeadingSpace = true
	csvr.FieldsPerRecord = -1
	return csvr
}

func columnIndex(header []string, names ...string) (map[string]int, error) {
	idx := make(map[string]int, len(names))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	out := make(map[string]int, len(names))
	for _, n := range names {
		i, ok := idx[n]
		if !ok {
			return nil, fmt.Errorf("missing %q column", n)
		}
		out[n] = i
	}
	return out, nil
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

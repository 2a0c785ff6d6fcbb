package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// CropRepo handles which crops are grown per state and season.
type CropRepo struct {
	db DBTX
}

func NewCropRepo(db DBTX) *CropRepo {
	return &CropRepo{db: db}
}

func (r *CropRepo) UpsertSeason(ctx context.Context, season string) error {
	season = strings.TrimSpace(season)
	if season == "" {
		return fmt.Errorf("season name is required")
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO seasons(name) VALUES (?) ON CONFLICT(name) DO NOTHING`, season)
	return err
}

// Upsert records cs, reporting whether it was new.
func (r *CropRepo) Upsert(ctx context.Context, cs CropSeason) (bool, error) {
	cs = cs.Trimmed()
	if cs.State == "" || cs.Season == "" || cs.Crop == "" {
		return false, fmt.Errorf("state, season and crop are required")
	}
	if err := r.UpsertSeason(ctx, cs.Season); err != nil {
		return false, err
	}
	res, err := r.db.ExecContext(ctx, `
	INSERT INTO crop_seasons(state, season, crop) VALUES (?, ?, ?)
	ON CONFLICT(state, season, crop) DO NOTHING;
	`, cs.State, cs.Season, cs.Crop)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *CropRepo) Seasons(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM seasons ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNames(rows)
}

// Crops lists the distinct crops grown in state during season, sorted.
func (r *CropRepo) Crops(ctx context.Context, state, season string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT DISTINCT crop FROM crop_seasons
	WHERE state = ? AND season = ?
	ORDER BY crop`, strings.TrimSpace(state), strings.TrimSpace(season))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNames(rows)
}

func scanNames(rows *sql.Rows) ([]string, error) {
	out := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

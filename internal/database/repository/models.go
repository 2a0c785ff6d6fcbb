package repository

import (
	"context"
	"database/sql"
	"strings"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// State represents a states row.
type State struct {
	ID   string
	Name string
}

// District represents a districts row.
type District struct {
	ID      string
	StateID string
	Name    string
}

// Taluk represents a taluks row.
type Taluk struct {
	ID         string
	DistrictID string
	Name       string
}

// CropSeason records that a crop is grown in a state during a season.
type CropSeason struct {
	State  string
	Season string
	Crop   string
}

// Trimmed strips the surrounding whitespace the yield dataset carries.
func (cs CropSeason) Trimmed() CropSeason {
	return CropSeason{
		State:  strings.TrimSpace(cs.State),
		Season: strings.TrimSpace(cs.Season),
		Crop:   strings.TrimSpace(cs.Crop),
	}
}

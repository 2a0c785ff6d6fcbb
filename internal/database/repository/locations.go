package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// LocationRepo handles the state > district > taluk hierarchy.
type LocationRepo struct {
	db DBTX
}

func NewLocationRepo(db DBTX) *LocationRepo {
	return &LocationRepo{db: db}
}

// StateID, DistrictID and TalukID derive stable ids from names so reseeding
// and re-importing never duplicate rows.
func StateID(state string) string {
	return nameID("state", state)
}

func DistrictID(state, district string) string {
	return nameID("district", state, district)
}

func TalukID(state, district, taluk string) string {
	return nameID("taluk", state, district, taluk)
}

// cleanName trims name and rejects blanks and NUL bytes.
func cleanName(kind, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%s name is required", kind)
	}
	if strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("%s name %q contains a NUL byte", kind, name)
	}
	return name, nil
}

// nameID joins parts with NUL, which cleanName keeps out of names, so
// ("A/B", "C") and ("A", "B/C") stay distinct.
func nameID(kind string, parts ...string) string {
	key := kind + "\x00" + strings.Join(parts, "\x00")
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

func (r *LocationRepo) UpsertState(ctx context.Context, name string) (State, error) {
	name, err := cleanName("state", name)
	if err != nil {
		return State{}, err
	}
	s := State{ID: StateID(name), Name: name}
	_, err = r.db.ExecContext(ctx, `
	INSERT INTO states(id, name) VALUES (?, ?)
	ON CONFLICT(id) DO NOTHING;
	`, s.ID, s.Name)
	return s, err
}

// UpsertDistrict ensures the district and its state exist.
func (r *LocationRepo) UpsertDistrict(ctx context.Context, state, name string) (District, error) {
	st, err := r.UpsertState(ctx, state)
	if err != nil {
		return District{}, err
	}
	name, err = cleanName("district", name)
	if err != nil {
		return District{}, err
	}
	d := District{ID: DistrictID(st.Name, name), StateID: st.ID, Name: name}
	_, err = r.db.ExecContext(ctx, `
	INSERT INTO districts(id, state_id, name) VALUES (?, ?, ?)
	ON CONFLICT(id) DO NOTHING;
	`, d.ID, d.StateID, d.Name)
	return d, err
}

// UpsertTaluk ensures the taluk, its district and its state exist.
func (r *LocationRepo) UpsertTaluk(ctx context.Context, state, district, name string) (Taluk, error) {
	d, err := r.UpsertDistrict(ctx, state, district)
	if err != nil {
		return Taluk{}, err
	}
	name, err = cleanName("taluk", name)
	if err != nil {
		return Taluk{}, err
	}
	t := Taluk{ID: TalukID(strings.TrimSpace(state), d.Name, name), DistrictID: d.ID, Name: name}
	_, err = r.db.ExecContext(ctx, `
	INSERT INTO taluks(id, district_id, name) VALUES (?, ?, ?)
	ON CONFLICT(id) DO NOTHING;
	`, t.ID, t.DistrictID, t.Name)
	return t, err
}

func (r *LocationRepo) States(ctx context.Context) ([]string, error) {
	return r.names(ctx, `SELECT name FROM states ORDER BY name`)
}

// Districts lists the districts of state; an unknown state has none.
func (r *LocationRepo) Districts(ctx context.Context, state string) ([]string, error) {
	return r.names(ctx, `
	SELECT d.name FROM districts d
	JOIN states s ON s.id = d.state_id
	WHERE s.name = ?
	ORDER BY d.name`, state)
}

func (r *LocationRepo) Taluks(ctx context.Context, state, district string) ([]string, error) {
	return r.names(ctx, `
	SELECT t.name FROM taluks t
	JOIN districts d ON d.id = t.district_id
	JOIN states s ON s.id = d.state_id
	WHERE s.name = ? AND d.name = ?
	ORDER BY t.name`, state, district)
}

func (r *LocationRepo) names(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNames(rows)
}

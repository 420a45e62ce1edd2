// internal/asset/mapper.go
package asset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"grccore/internal/domain"
	"grccore/internal/postgres"
)

const assetsSchema = `
CREATE TABLE IF NOT EXISTS assets (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	owner TEXT NOT NULL,
	confidentiality INT NOT NULL DEFAULT 0,
	integrity INT NOT NULL DEFAULT 0,
	availability INT NOT NULL DEFAULT 0,
	state TEXT NOT NULL,
	version INT NOT NULL
);
`

// Mapper moves Asset state in and out of the assets table.
type Mapper struct{}

func (Mapper) Table() string { return "assets" }

func (Mapper) EnsureSchema(ctx context.Context, q postgres.DBTX) error {
	if _, err := q.ExecContext(ctx, assetsSchema); err != nil {
		return fmt.Errorf("ensure assets schema: %w", err)
	}
	return nil
}

func (Mapper) Insert(ctx context.Context, q postgres.DBTX, a *Asset) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO assets (id, name, owner, confidentiality, integrity, availability, state, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, a.ID, a.Name, a.Owner,
		a.Classification.Confidentiality, a.Classification.Integrity, a.Classification.Availability,
		a.State, a.Version)
	return err
}

func (Mapper) Update(ctx context.Context, q postgres.DBTX, a *Asset) error {
	_, err := q.ExecContext(ctx, `
		UPDATE assets
		SET name = $2, owner = $3, confidentiality = $4, integrity = $5, availability = $6, state = $7, version = $8
		WHERE id = $1
	`, a.ID, a.Name, a.Owner,
		a.Classification.Confidentiality, a.Classification.Integrity, a.Classification.Availability,
		a.State, a.Version)
	return err
}

func (Mapper) SelectByID(ctx context.Context, q postgres.DBTX, id uuid.UUID) (*Asset, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, name, owner, confidentiality, integrity, availability, state, version
		FROM assets
		WHERE id = $1
	`, id)
	a, err := scanAsset(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select asset %s: %w", id, err)
	}
	return a, nil
}

func (Mapper) SelectAll(ctx context.Context, q postgres.DBTX) ([]*Asset, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, owner, confidentiality, integrity, availability, state, version
		FROM assets
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("select assets: %w", err)
	}
	defer rows.Close()

	var assets []*Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assets: %w", err)
	}
	return assets, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (*Asset, error) {
	a := &Asset{}
	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Owner,
		&a.Classification.Confidentiality,
		&a.Classification.Integrity,
		&a.Classification.Availability,
		&a.State,
		&a.Version,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

var _ postgres.StateMapper[*Asset] = Mapper{}

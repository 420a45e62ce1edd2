// internal/control/mapper.go
package control

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"grccore/internal/domain"
	"grccore/internal/postgres"
)

const controlsSchema = `
CREATE TABLE IF NOT EXISTS controls (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	framework_ref TEXT NOT NULL,
	effectiveness INT NOT NULL DEFAULT 0,
	state TEXT NOT NULL,
	version INT NOT NULL
);
`

// Mapper moves Control state in and out of the controls table.
type Mapper struct{}

func (Mapper) Table() string { return "controls" }

func (Mapper) EnsureSchema(ctx context.Context, q postgres.DBTX) error {
	if _, err := q.ExecContext(ctx, controlsSchema); err != nil {
		return fmt.Errorf("ensure controls schema: %w", err)
	}
	return nil
}

func (Mapper) Insert(ctx context.Context, q postgres.DBTX, c *Control) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO controls (id, name, framework_ref, effectiveness, state, version)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, c.ID, c.Name, c.FrameworkRef, c.Effectiveness.Int(), c.State, c.Version)
	return err
}

func (Mapper) Update(ctx context.Context, q postgres.DBTX, c *Control) error {
	_, err := q.ExecContext(ctx, `
		UPDATE controls
		SET name = $2, framework_ref = $3, effectiveness = $4, state = $5, version = $6
		WHERE id = $1
	`, c.ID, c.Name, c.FrameworkRef, c.Effectiveness.Int(), c.State, c.Version)
	return err
}

func (Mapper) SelectByID(ctx context.Context, q postgres.DBTX, id uuid.UUID) (*Control, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, name, framework_ref, effectiveness, state, version
		FROM controls
		WHERE id = $1
	`, id)
	c, err := scanControl(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select control %s: %w", id, err)
	}
	return c, nil
}

func (Mapper) SelectAll(ctx context.Context, q postgres.DBTX) ([]*Control, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, framework_ref, effectiveness, state, version
		FROM controls
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("select controls: %w", err)
	}
	defer rows.Close()

	var controls []*Control
	for rows.Next() {
		c, err := scanControl(rows)
		if err != nil {
			return nil, fmt.Errorf("scan control: %w", err)
		}
		controls = append(controls, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate controls: %w", err)
	}
	return controls, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanControl(row rowScanner) (*Control, error) {
	c := &Control{}
	var effectiveness int
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.FrameworkRef,
		&effectiveness,
		&c.State,
		&c.Version,
	)
	if err != nil {
		return nil, err
	}
	c.Effectiveness = domain.EffectivenessRating(effectiveness)
	return c, nil
}

var _ postgres.StateMapper[*Control] = Mapper{}

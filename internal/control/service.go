// internal/control/service.go
package control

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for the control service.
type Service interface {
	CreateControl(ctx context.Context, name, frameworkRef string) (*Control, error)
	GetControl(ctx context.Context, id uuid.UUID) (*Control, error)
	ListControls(ctx context.Context) ([]*Control, error)
	ImplementControl(ctx context.Context, id uuid.UUID, rating int) (*Control, error)
	ReassessControl(ctx context.Context, id uuid.UUID, rating int) (*Control, error)
	RetireControl(ctx context.Context, id uuid.UUID) (*Control, error)
	DeleteControl(ctx context.Context, id uuid.UUID) error
}

// internal/asset/service.go
package asset

import (
	"context"

	"github.com/google/uuid"

	"grccore/internal/domain"
)

// Service defines the interface for the asset service.
type Service interface {
	CreateAsset(ctx context.Context, name, owner string) (*Asset, error)
	GetAsset(ctx context.Context, id uuid.UUID) (*Asset, error)
	ListAssets(ctx context.Context) ([]*Asset, error)
	ClassifyAsset(ctx context.Context, id uuid.UUID, c domain.Classification) (*Asset, error)
	ActivateAsset(ctx context.Context, id uuid.UUID) (*Asset, error)
	ArchiveAsset(ctx context.Context, id uuid.UUID) (*Asset, error)
	DeleteAsset(ctx context.Context, id uuid.UUID) error
	ReplayAsset(ctx context.Context, id uuid.UUID) error
	AssetHistory(ctx context.Context, id uuid.UUID) ([]domain.Record, error)
}

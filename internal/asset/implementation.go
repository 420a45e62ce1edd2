// internal/asset/implementation.go
package asset

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"grccore/internal/domain"
)

// service implements the Service interface on top of the generic repository
// and the event bus.
type service struct {
	repo  domain.Repository[*Asset]
	store domain.EventStore
	bus   *domain.EventBus
	log   *zap.Logger
}

// NewService creates a new asset service instance.
func NewService(repo domain.Repository[*Asset], store domain.EventStore, bus *domain.EventBus, log *zap.Logger) Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &service{repo: repo, store: store, bus: bus, log: log.Named("asset")}
}

func (s *service) CreateAsset(ctx context.Context, name, owner string) (*Asset, error) {
	a, err := New(name, owner)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, a); err != nil {
		return nil, fmt.Errorf("save asset: %w", err)
	}
	s.log.Info("asset created",
		zap.String("asset_id", a.ID.String()),
		zap.String("name", a.Name),
	)
	return a, nil
}

func (s *service) GetAsset(ctx context.Context, id uuid.UUID) (*Asset, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListAssets(ctx context.Context) ([]*Asset, error) {
	return s.repo.GetAll(ctx)
}

func (s *service) ClassifyAsset(ctx context.Context, id uuid.UUID, c domain.Classification) (*Asset, error) {
	return s.mutate(ctx, id, func(a *Asset) error { return a.Classify(c) })
}

func (s *service) ActivateAsset(ctx context.Context, id uuid.UUID) (*Asset, error) {
	return s.mutate(ctx, id, func(a *Asset) error { return a.Activate() })
}

func (s *service) ArchiveAsset(ctx context.Context, id uuid.UUID) (*Asset, error) {
	return s.mutate(ctx, id, func(a *Asset) error { return a.Archive() })
}

// mutate loads, applies one domain method and saves. Concurrency conflicts
// propagate to the caller, who reloads and retries with fresh state.
func (s *service) mutate(ctx context.Context, id uuid.UUID, fn func(*Asset) error) (*Asset, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(a); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *service) DeleteAsset(ctx context.Context, id uuid.UUID) error {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, a); err != nil {
		return err
	}
	s.log.Info("asset deleted", zap.String("asset_id", id.String()))
	return nil
}

// ReplayAsset re-dispatches the asset's stored events through the currently
// registered handlers, e.g. after a projector was rebuilt.
func (s *service) ReplayAsset(ctx context.Context, id uuid.UUID) error {
	exists, err := s.repo.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return s.bus.Replay(ctx, id)
}

// AssetHistory returns the asset's event stream in wire form.
func (s *service) AssetHistory(ctx context.Context, id uuid.UUID) ([]domain.Record, error) {
	events, err := s.store.EventsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, domain.ErrNotFound
	}
	records := make([]domain.Record, len(events))
	for i, e := range events {
		records[i] = e.Record()
	}
	return records, nil
}

// internal/control/implementation.go
package control

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"grccore/internal/domain"
)

// service implements the Service interface.
type service struct {
	repo domain.Repository[*Control]
	log  *zap.Logger
}

// NewService creates a new control service instance.
func NewService(repo domain.Repository[*Control], log *zap.Logger) Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &service{repo: repo, log: log.Named("control")}
}

func (s *service) CreateControl(ctx context.Context, name, frameworkRef string) (*Control, error) {
	c, err := New(name, frameworkRef)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("save control: %w", err)
	}
	s.log.Info("control created",
		zap.String("control_id", c.ID.String()),
		zap.String("framework_ref", c.FrameworkRef),
	)
	return c, nil
}

func (s *service) GetControl(ctx context.Context, id uuid.UUID) (*Control, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListControls(ctx context.Context) ([]*Control, error) {
	return s.repo.GetAll(ctx)
}

func (s *service) ImplementControl(ctx context.Context, id uuid.UUID, rating int) (*Control, error) {
	return s.mutate(ctx, id, func(c *Control) error { return c.Implement(rating) })
}

func (s *service) ReassessControl(ctx context.Context, id uuid.UUID, rating int) (*Control, error) {
	return s.mutate(ctx, id, func(c *Control) error { return c.Reassess(rating) })
}

func (s *service) RetireControl(ctx context.Context, id uuid.UUID) (*Control, error) {
	return s.mutate(ctx, id, func(c *Control) error { return c.Retire() })
}

func (s *service) mutate(ctx context.Context, id uuid.UUID, fn func(*Control) error) (*Control, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) DeleteControl(ctx context.Context, id uuid.UUID) error {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, c)
}

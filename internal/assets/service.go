package assets

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Invalidator is notified after any write that changes asset counts or statuses.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Service handles asset catalog operations.
type Service struct {
	repo   Repository
	cache  Invalidator
	logger *slog.Logger
}

// NewService builds a Service. cache may be nil.
func NewService(repo Repository, cache Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger}
}

// List returns a page of assets and the total matching count.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Asset, int, error) {
	return s.repo.List(ctx, filters)
}

// Get returns one asset.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Asset, error) {
	return s.repo.Get(ctx, id)
}

// Create adds an asset to the catalog.
func (s *Service) Create(ctx context.Context, in Input) (Asset, error) {
	asset, err := in.ToAsset()
	if err != nil {
		return Asset{}, err
	}
	created, err := s.repo.Create(ctx, asset)
	if err != nil {
		return Asset{}, err
	}
	s.invalidate(ctx)
	return created, nil
}

// Update replaces the editable fields of an asset. The write is conditional
// on the status read here so it cannot silently undo a concurrent approval.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in Input) (Asset, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Asset{}, err
	}
	asset, err := in.ToAsset()
	if err != nil {
		return Asset{}, err
	}
	if in.Status == "" {
		asset.Status = current.Status
	}
	asset.ID = id
	updated, err := s.repo.Update(ctx, asset, current.Status)
	if err != nil {
		return Asset{}, err
	}
	if current.Status != updated.Status {
		s.logger.Info("asset status edited",
			slog.String("asset_id", id.String()),
			slog.String("from", string(current.Status)),
			slog.String("to", string(updated.Status)))
	}
	s.invalidate(ctx)
	return updated, nil
}

// Delete removes an asset that no open request references.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("invalidate report cache", slog.Any("error", err))
	}
}

package requests

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/assettrack/internal/assets"
	"github.com/odyssey-erp/assettrack/internal/rbac"
	"github.com/odyssey-erp/assettrack/internal/shared"
)

// AssetStore is the part of the asset catalog the lifecycle depends on.
type AssetStore interface {
	Get(ctx context.Context, id uuid.UUID) (assets.Asset, error)
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, expected, next assets.Status) error
}

// Metrics receives decision outcomes.
type Metrics interface {
	RecordDecision(decision, outcome string)
	RecordAssetConflict()
	RecordFinalizeRetry()
}

// Invalidator is told whenever a request or asset status changed.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Config tunes the approval write path.
type Config struct {
	// MaxDecisionRetries bounds the retries of the request write that
	// follows a successful asset assignment.
	MaxDecisionRetries int
	RetryBackoff       time.Duration
	// FinalizeTimeout bounds the post-assignment writes, which are not
	// cancelled with the caller's context.
	FinalizeTimeout time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{MaxDecisionRetries: 3, RetryBackoff: 50 * time.Millisecond, FinalizeTimeout: 5 * time.Second}
}

// Service drives the request lifecycle and keeps asset availability in step
// with approvals.
type Service struct {
	store   Store
	assets  AssetStore
	cache   Invalidator
	metrics Metrics
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

// Option customises a Service.
type Option func(*Service)

// WithMetrics records decision outcomes on m.
func WithMetrics(m Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithInvalidator bumps the report cache after every status change.
func WithInvalidator(inv Invalidator) Option { return func(s *Service) { s.cache = inv } }

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService constructs the lifecycle service.
func NewService(store Store, assetStore AssetStore, cfg Config, logger *slog.Logger, opts ...Option) *Service {
	if cfg.MaxDecisionRetries < 0 {
		cfg.MaxDecisionRetries = 0
	}
	if cfg.FinalizeTimeout <= 0 {
		cfg.FinalizeTimeout = DefaultConfig().FinalizeTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:   store,
		assets:  assetStore,
		metrics: noopMetrics{},
		cfg:     cfg,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit files a pending request for an Available asset. The asset is not
// reserved; competing requests are settled at approval time.
func (s *Service) Submit(ctx context.Context, userID, assetID uuid.UUID) (Request, error) {
	asset, err := s.assets.Get(ctx, assetID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Request{}, fmt.Errorf("requests: asset %s: %w", assetID, shared.ErrAssetUnavailable)
		}
		return Request{}, err
	}
	if asset.Status != assets.StatusAvailable {
		return Request{}, fmt.Errorf("requests: asset %s is %s: %w", assetID, asset.Status, shared.ErrAssetUnavailable)
	}
	req, err := s.store.Create(ctx, userID, assetID, s.now())
	if err != nil {
		return Request{}, err
	}
	s.invalidate(ctx)
	s.logger.Info("request submitted",
		slog.String("request_id", req.ID.String()),
		slog.String("user_id", userID.String()),
		slog.String("asset_id", assetID.String()))
	return req, nil
}

// Decide applies an administrator's decision to a pending request.
func (s *Service) Decide(ctx context.Context, requestID uuid.UUID, decision Decision, callerID uuid.UUID, callerRole rbac.Role) (Request, error) {
	if callerRole != rbac.RoleAdmin {
		return Request{}, fmt.Errorf("requests: decide as %q: %w", callerRole, shared.ErrForbidden)
	}
	if decision != DecisionApprove && decision != DecisionReject {
		return Request{}, fmt.Errorf("requests: decision %q: %w", decision, shared.ErrValidation)
	}

	req, err := s.store.Get(ctx, requestID)
	if err != nil {
		return Request{}, err
	}
	if req.Status != StatusPending {
		s.metrics.RecordDecision(string(decision), "invalid_transition")
		return Request{}, invalidTransition(req.ID, req.Status)
	}

	var out Request
	if decision == DecisionReject {
		out, err = s.reject(ctx, req, callerID)
	} else {
		out, err = s.approve(ctx, req, callerID)
	}
	s.metrics.RecordDecision(string(decision), outcome(decision, err))
	return out, err
}

func (s *Service) reject(ctx context.Context, req Request, callerID uuid.UUID) (Request, error) {
	updated, err := s.store.CompareAndSetStatus(ctx, req.ID, StatusPending, StatusRejected, callerID, s.now())
	if err != nil {
		if errors.Is(err, shared.ErrStatusConflict) {
			return Request{}, s.currentTransitionError(ctx, req.ID)
		}
		return Request{}, err
	}
	s.invalidate(ctx)
	s.logger.Info("request rejected", slog.String("request_id", req.ID.String()), slog.String("by", callerID.String()))
	return updated, nil
}

func (s *Service) approve(ctx context.Context, req Request, callerID uuid.UUID) (Request, error) {
	err := s.assets.CompareAndSetStatus(ctx, req.AssetID, assets.StatusAvailable, assets.StatusAssigned)
	if err != nil {
		if errors.Is(err, shared.ErrStatusConflict) || errors.Is(err, shared.ErrNotFound) {
			s.metrics.RecordAssetConflict()
			// A concurrent decision on this same request may have taken the
			// asset; report that as the transition it is.
			if cur, gerr := s.store.Get(ctx, req.ID); gerr == nil && cur.Status != StatusPending {
				return Request{}, invalidTransition(cur.ID, cur.Status)
			}
			return Request{}, fmt.Errorf("requests: approve %s: asset %s: %w", req.ID, req.AssetID, shared.ErrAssetNoLongerAvailable)
		}
		return Request{}, err
	}

	// The asset is ours. Finish even if the caller goes away.
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.FinalizeTimeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt <= s.cfg.MaxDecisionRetries; attempt++ {
		if attempt > 0 {
			s.metrics.RecordFinalizeRetry()
			if err := s.sleep(fctx, s.cfg.RetryBackoff*time.Duration(attempt)); err != nil {
				break
			}
		}
		updated, err := s.store.CompareAndSetStatus(fctx, req.ID, StatusPending, StatusApproved, callerID, s.now())
		if err == nil {
			s.invalidate(fctx)
			s.logger.Info("request approved",
				slog.String("request_id", req.ID.String()),
				slog.String("asset_id", req.AssetID.String()),
				slog.String("by", callerID.String()))
			return updated, nil
		}
		lastErr = err
		if errors.Is(err, shared.ErrStatusConflict) || errors.Is(err, shared.ErrNotFound) {
			s.releaseAsset(fctx, req)
			if errors.Is(err, shared.ErrNotFound) {
				return Request{}, err
			}
			return Request{}, s.currentTransitionError(fctx, req.ID)
		}
		if !errors.Is(err, shared.ErrStoreUnavailable) {
			break
		}
		s.logger.Warn("approve: request write failed, retrying",
			slog.String("request_id", req.ID.String()),
			slog.Int("attempt", attempt+1),
			slog.Any("error", err))
	}

	s.logger.Error("approve: asset assigned but request still pending",
		slog.String("request_id", req.ID.String()),
		slog.String("asset_id", req.AssetID.String()),
		slog.Any("error", lastErr))
	if errors.Is(lastErr, shared.ErrStoreUnavailable) {
		return Request{}, fmt.Errorf("requests: approve %s: %w", req.ID, lastErr)
	}
	return Request{}, fmt.Errorf("requests: approve %s: %w: %w", req.ID, shared.ErrStoreUnavailable, lastErr)
}

// releaseAsset undoes the assignment after another decision won the request.
func (s *Service) releaseAsset(ctx context.Context, req Request) {
	err := s.assets.CompareAndSetStatus(ctx, req.AssetID, assets.StatusAssigned, assets.StatusAvailable)
	if err != nil {
		s.logger.Error("approve: release asset after lost decision",
			slog.String("request_id", req.ID.String()),
			slog.String("asset_id", req.AssetID.String()),
			slog.Any("error", err))
		return
	}
	s.invalidate(ctx)
}

func (s *Service) currentTransitionError(ctx context.Context, id uuid.UUID) error {
	cur, err := s.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("requests: %s: %w", id, shared.ErrInvalidTransition)
	}
	return invalidTransition(id, cur.Status)
}

// Get returns one request. Non-admins only see their own.
func (s *Service) Get(ctx context.Context, id, callerID uuid.UUID, callerRole rbac.Role) (Request, error) {
	if !callerRole.Valid() {
		return Request{}, shared.ErrForbidden
	}
	req, err := s.store.Get(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if callerRole != rbac.RoleAdmin && req.UserID != callerID {
		return Request{}, fmt.Errorf("requests: get %s: %w", id, shared.ErrNotFound)
	}
	return req, nil
}

// List returns all requests to admins and the caller's own to everyone else.
func (s *Service) List(ctx context.Context, callerID uuid.UUID, callerRole rbac.Role) ([]ListItem, error) {
	switch callerRole {
	case rbac.RoleAdmin:
		return s.store.List(ctx, All())
	case rbac.RoleUser:
		return s.store.List(ctx, ByUser(callerID))
	default:
		return nil, fmt.Errorf("requests: list as %q: %w", callerRole, shared.ErrForbidden)
	}
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("invalidate report cache", slog.Any("error", err))
	}
}

func invalidTransition(id uuid.UUID, from Status) error {
	return fmt.Errorf("requests: %s is already %s: %w", id, from, shared.ErrInvalidTransition)
}

func outcome(d Decision, err error) string {
	switch {
	case err == nil:
		return string(d.Target())
	case errors.Is(err, shared.ErrAssetNoLongerAvailable):
		return "asset_no_longer_available"
	case errors.Is(err, shared.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, shared.ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "error"
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type noopMetrics struct{}

func (noopMetrics) RecordDecision(string, string) {}
func (noopMetrics) RecordAssetConflict()          {}
func (noopMetrics) RecordFinalizeRetry()          {}

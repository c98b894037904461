package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Service generates and lists reports.
type Service struct {
	source Source
	store  Store
	cache  *Cache
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires the report service. cache may be nil.
func NewService(source Source, store Store, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, store: store, cache: cache, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Generate computes, persists and returns a report of the given type.
func (s *Service) Generate(ctx context.Context, reportType Type, generatedBy uuid.UUID) (Report, error) {
	if _, err := ParseType(string(reportType)); err != nil {
		return Report{}, err
	}
	content, err := s.Content(ctx, reportType)
	if err != nil {
		return Report{}, err
	}
	rep, err := s.store.Save(ctx, Report{
		Type:          reportType,
		GeneratedBy:   generatedBy,
		GeneratedDate: s.now(),
		Content:       content,
	})
	if err != nil {
		return Report{}, err
	}
	s.logger.Info("report generated", slog.String("report_id", rep.ID.String()), slog.String("type", string(reportType)))
	return rep, nil
}

// Content returns the report body, served from cache when fresh.
func (s *Service) Content(ctx context.Context, reportType Type) (json.RawMessage, error) {
	key, err := s.cache.BuildKey(ctx, string(reportType))
	if err != nil {
		s.logger.Warn("report cache version unavailable", slog.Any("error", err))
		return s.compute(ctx, reportType)
	}
	raw, err := s.cache.Fetch(ctx, key, func(ctx context.Context) ([]byte, error) {
		return s.compute(ctx, reportType)
	})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}

func (s *Service) compute(ctx context.Context, reportType Type) ([]byte, error) {
	var body any
	switch reportType {
	case TypeAssetUsage:
		usage, err := s.source.AssetUsage(ctx)
		if err != nil {
			return nil, err
		}
		body = usage
	case TypeRequestHistory:
		history, err := s.source.RequestHistory(ctx)
		if err != nil {
			return nil, err
		}
		if history == nil {
			history = []HistoryEntry{}
		}
		body = history
	default:
		return nil, fmt.Errorf("reports: no generator for %q", reportType)
	}
	return json.Marshal(body)
}

// List returns persisted reports newest first.
func (s *Service) List(ctx context.Context) ([]Report, error) {
	return s.store.List(ctx)
}

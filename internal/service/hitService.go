package service

import (
	"cmp"
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/brahma/api-tracker/internal/apperrors"
	"github.com/brahma/api-tracker/internal/metrics"
	"github.com/brahma/api-tracker/internal/models"
	"github.com/brahma/api-tracker/internal/repository"
	"github.com/brahma/api-tracker/internal/tracker"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// HitLog is the append-only record store behind the tracker
type HitLog interface {
	Append(ctx context.Context, hit *models.APIHit) (uint, error)
	ListAll(ctx context.Context) ([]models.APIHit, error)
}

type HitAggregator interface {
	Count(ctx context.Context) (int64, error)
	CountBy(ctx context.Context, field repository.HitField) ([]models.GroupCount, error)
}

type HitStore interface {
	HitLog
	HitAggregator
}

// Methods accepted on the tracking endpoint
var TrackMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}

type HitService struct {
	store   HitStore
	logger  *zap.Logger
	metrics *metrics.Registry
	now     func() time.Time
}

type HitServiceOption func(*HitService)

// Overrides the capture clock
func WithClock(now func() time.Time) HitServiceOption {
	return func(s *HitService) { s.now = now }
}

func WithMetrics(m *metrics.Registry) HitServiceOption {
	return func(s *HitService) { s.metrics = m }
}

func NewHitService(store HitStore, logger *zap.Logger, opts ...HitServiceOption) *HitService {
	s := &HitService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Holds aggregate counts over the hit log
type HitStats struct {
	Total     int64               `json:"total"`
	ByMethod  []models.GroupCount `json:"by_method"`
	ByOS      []models.GroupCount `json:"by_os"`
	ByBrowser []models.GroupCount `json:"by_browser"`
	ByIP      []models.GroupCount `json:"by_ip"`
	Mobile    int64               `json:"mobile"`
	Bots      int64               `json:"bots"`
}

// Track builds a hit from the request context and appends it to the log
func (s *HitService) Track(ctx context.Context, rc tracker.RequestContext) (*models.APIHit, error) {
	if !slices.Contains(TrackMethods, rc.Method) {
		err := apperrors.NewValidation(fmt.Sprintf("method %s cannot be tracked", rc.Method), nil)
		s.RecordRejected(err)
		return nil, err
	}

	hit := &models.APIHit{
		RequestID:   models.TrackRouteID,
		RequestType: rc.Method,
		RequestTime: s.now().UTC(),
		ContentType: rc.ContentType,
		IPAddress:   rc.RemoteIP,
		OS:          tracker.Platform(rc.UserAgent),
		UserAgent:   rc.UserAgent,
	}
	if rc.Payload != nil {
		hit.Payload = datatypes.JSON(rc.Payload.Bytes())
	}

	if _, err := s.store.Append(ctx, hit); err != nil {
		appErr := apperrors.NewStorage("failed to record hit", err)
		s.RecordRejected(appErr)
		return nil, appErr
	}

	if s.metrics != nil {
		s.metrics.HitsTracked.WithLabelValues(hit.RequestType).Inc()
	}
	s.logger.Debug("hit tracked",
		zap.Uint("id", hit.ID),
		zap.String("method", hit.RequestType),
		zap.String("ip", hit.IPAddress),
		zap.Bool("payload", hit.HasPayload()),
	)

	return hit, nil
}

// RecordRejected counts a tracking request that produced no hit
func (s *HitService) RecordRejected(err error) {
	if s.metrics == nil || err == nil {
		return
	}
	s.metrics.TrackFailures.WithLabelValues(string(apperrors.Wrap(err).Type)).Inc()
}

// List returns every hit in insertion order
func (s *HitService) List(ctx context.Context) ([]models.APIHit, error) {
	hits, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, apperrors.NewStorage("failed to list hits", err)
	}
	if hits == nil {
		hits = []models.APIHit{}
	}
	return hits, nil
}

// Stats aggregates the hit log by method, platform, browser and client IP
func (s *HitService) Stats(ctx context.Context) (*HitStats, error) {
	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, apperrors.NewStorage("failed to count hits", err)
	}

	stats := &HitStats{Total: total}

	groups := []struct {
		field repository.HitField
		dest  *[]models.GroupCount
	}{
		{repository.FieldRequestType, &stats.ByMethod},
		{repository.FieldOS, &stats.ByOS},
		{repository.FieldIPAddress, &stats.ByIP},
	}
	for _, g := range groups {
		counts, err := s.store.CountBy(ctx, g.field)
		if err != nil {
			return nil, apperrors.NewStorage("failed to aggregate hits", err)
		}
		*g.dest = sortCounts(counts)
	}

	byAgent, err := s.store.CountBy(ctx, repository.FieldUserAgent)
	if err != nil {
		return nil, apperrors.NewStorage("failed to aggregate hits", err)
	}
	stats.ByBrowser, stats.Mobile, stats.Bots = agentCounts(byAgent)

	return stats, nil
}

// Folds per-user-agent counts into per-browser counts plus mobile and bot totals
func agentCounts(byAgent []models.GroupCount) (browsers []models.GroupCount, mobile, bots int64) {
	totals := make(map[string]int64)
	for _, g := range byAgent {
		info := tracker.ParseUserAgent(g.Name)
		totals[info.Browser] += g.Count
		if info.Mobile {
			mobile += g.Count
		}
		if info.Bot {
			bots += g.Count
		}
	}

	browsers = make([]models.GroupCount, 0, len(totals))
	for name, count := range totals {
		browsers = append(browsers, models.GroupCount{Name: name, Count: count})
	}
	return sortCounts(browsers), mobile, bots
}

// Highest count first, ties by name
func sortCounts(counts []models.GroupCount) []models.GroupCount {
	if counts == nil {
		return []models.GroupCount{}
	}
	slices.SortFunc(counts, func(a, b models.GroupCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return counts
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ngenohkevin/clinic-analytics/internal/models"
	"github.com/redis/go-redis/v9"
)

var (
	ErrInvalidDateRange = errors.New("invalid date range")
	ErrNoSnapshot       = errors.New("no analytics snapshot has been computed")
)

const dateLayout = "2006-01-02"

// VisitStore defines the record source backing the dashboard
type VisitStore interface {
	ListVisits(ctx context.Context, start, end time.Time, department string) ([]models.VisitRecord, error)
	ListPatients(ctx context.Context, start, end time.Time) ([]models.PatientRecord, error)
}

// DashboardService orchestrates fetching, aggregation and caching for the
// analytics dashboard. It retains the latest accepted snapshot for export;
// responses to superseded requests are never applied to that snapshot.
type DashboardService struct {
	store       VisitStore
	analytics   *AnalyticsService
	redisClient *redis.Client
	cacheTTL    time.Duration
	logger      *slog.Logger

	requestSeq atomic.Uint64

	mu       sync.Mutex
	snapshot *models.AnalyticsExport
}

// NewDashboardService creates a new dashboard service instance. redisClient
// may be nil, which disables snapshot caching.
func NewDashboardService(store VisitStore, analytics *AnalyticsService, redisClient *redis.Client, cacheTTL time.Duration, logger *slog.Logger) *DashboardService {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &DashboardService{
		store:       store,
		analytics:   analytics,
		redisClient: redisClient,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

// NextRequestID issues a monotonically increasing request sequence number
func (s *DashboardService) NextRequestID() uint64 {
	return s.requestSeq.Add(1)
}

// ResolveDateRange maps a selector to an inclusive [start, end] window.
// Custom ranges require both dates in YYYY-MM-DD form.
func (s *DashboardService) ResolveDateRange(req *models.DashboardRequest, now time.Time) (time.Time, time.Time, error) {
	end := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, now.Location())
	startDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch req.DateRange {
	case models.DateRangeLast7Days:
		return startDay.AddDate(0, 0, -7), end, nil
	case models.DateRangeLast30Days:
		return startDay.AddDate(0, 0, -30), end, nil
	case models.DateRangeLast90Days:
		return startDay.AddDate(0, 0, -90), end, nil
	case models.DateRangeLastYear:
		return startDay.AddDate(-1, 0, 0), end, nil
	case models.DateRangeCustom:
		if req.StartDate == "" || req.EndDate == "" {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: custom range requires start_date and end_date", ErrInvalidDateRange)
		}
		start, err := time.Parse(dateLayout, req.StartDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: %v", ErrInvalidDateRange, err)
		}
		endDate, err := time.Parse(dateLayout, req.EndDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: %v", ErrInvalidDateRange, err)
		}
		if start.After(endDate) {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: start date cannot be after end date", ErrInvalidDateRange)
		}
		// End of the last day keeps the range inclusive
		endDate = endDate.Add(24*time.Hour - time.Second)
		return start, endDate, nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("%w: unknown selector %q", ErrInvalidDateRange, req.DateRange)
	}
}

// GetDashboard resolves the requested window, fetches records and aggregates
// them. Results are cached in Redis keyed by range and department; cache
// failures degrade to a recompute, never to an error.
func (s *DashboardService) GetDashboard(ctx context.Context, req *models.DashboardRequest) (*models.AnalyticsModel, error) {
	if req.RequestID == 0 {
		req.RequestID = s.NextRequestID()
	}
	if req.Department == "" {
		req.Department = models.DepartmentAll
	}

	start, end, err := s.ResolveDateRange(req, time.Now())
	if err != nil {
		return nil, err
	}

	if model, ok := s.cacheGet(ctx, req); ok {
		s.applySnapshot(req, model)
		return model, nil
	}

	department := req.Department
	if department == models.DepartmentAll {
		department = ""
	}

	visits, err := s.store.ListVisits(ctx, start, end, department)
	if err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}

	patients, err := s.store.ListPatients(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}

	model := s.analytics.Aggregate(visits, patients)

	s.cacheSet(ctx, req, model)
	s.applySnapshot(req, model)

	return model, nil
}

// Snapshot returns the latest accepted analytics export envelope, or
// ErrNoSnapshot when nothing has been computed yet.
func (s *DashboardService) Snapshot() (*models.AnalyticsExport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshot == nil {
		return nil, ErrNoSnapshot
	}
	snapshot := *s.snapshot
	return &snapshot, nil
}

// applySnapshot retains the model for export unless a newer request has
// been issued since this one started (last-request-wins).
func (s *DashboardService) applySnapshot(req *models.DashboardRequest, model *models.AnalyticsModel) {
	if req.RequestID != s.requestSeq.Load() {
		if s.logger != nil {
			s.logger.Debug("Discarding stale dashboard response",
				"request_id", req.RequestID,
				"latest_request_id", s.requestSeq.Load(),
			)
		}
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = &models.AnalyticsExport{
		GeneratedAt: time.Now(),
		DateRange:   req.DateRange,
		Department:  req.Department,
		Data:        model,
	}
}

func (s *DashboardService) cacheKey(req *models.DashboardRequest) string {
	if req.DateRange == models.DateRangeCustom {
		return fmt.Sprintf("analytics:custom:%s:%s:%s", req.StartDate, req.EndDate, req.Department)
	}
	return fmt.Sprintf("analytics:%s:%s", req.DateRange, req.Department)
}

func (s *DashboardService) cacheGet(ctx context.Context, req *models.DashboardRequest) (*models.AnalyticsModel, bool) {
	if s.redisClient == nil {
		return nil, false
	}

	payload, err := s.redisClient.Get(ctx, s.cacheKey(req)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) && s.logger != nil {
			s.logger.Warn("Analytics cache lookup failed", "error", err)
		}
		return nil, false
	}

	var model models.AnalyticsModel
	if err := json.Unmarshal(payload, &model); err != nil {
		if s.logger != nil {
			s.logger.Warn("Analytics cache entry corrupt", "error", err)
		}
		return nil, false
	}

	return &model, true
}

func (s *DashboardService) cacheSet(ctx context.Context, req *models.DashboardRequest, model *models.AnalyticsModel) {
	if s.redisClient == nil {
		return
	}

	payload, err := json.Marshal(model)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("Failed to marshal analytics snapshot", "error", err)
		}
		return
	}

	if err := s.redisClient.Set(ctx, s.cacheKey(req), payload, s.cacheTTL).Err(); err != nil && s.logger != nil {
		s.logger.Warn("Failed to cache analytics snapshot", "error", err)
	}
}

package services

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/ngenohkevin/clinic-analytics/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// MockVisitStore for testing the dashboard service
type MockVisitStore struct {
	mock.Mock
}

func (m *MockVisitStore) ListVisits(ctx context.Context, start, end time.Time, department string) ([]models.VisitRecord, error) {
	args := m.Called(ctx, start, end, department)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.VisitRecord), args.Error(1)
}

func (m *MockVisitStore) ListPatients(ctx context.Context, start, end time.Time) ([]models.PatientRecord, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PatientRecord), args.Error(1)
}

// DashboardServiceTestSuite for dashboard orchestration testing. Redis is
// left nil so caching is disabled and every call hits the store.
type DashboardServiceTestSuite struct {
	suite.Suite
	service   *DashboardService
	mockStore *MockVisitStore
	ctx       context.Context
}

func (suite *DashboardServiceTestSuite) SetupTest() {
	suite.mockStore = &MockVisitStore{}
	suite.service = NewDashboardService(suite.mockStore, NewAnalyticsService(0), nil, 0, slog.Default())
	suite.ctx = context.Background()
}

func (suite *DashboardServiceTestSuite) TestResolveDateRange_Selectors() {
	now := time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		selector      string
		expectedStart time.Time
	}{
		{models.DateRangeLast7Days, time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC)},
		{models.DateRangeLast30Days, time.Date(2024, 5, 16, 0, 0, 0, 0, time.UTC)},
		{models.DateRangeLast90Days, time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC)},
		{models.DateRangeLastYear, time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		req := &models.DashboardRequest{DateRange: tt.selector}
		start, end, err := suite.service.ResolveDateRange(req, now)

		assert.NoError(suite.T(), err, tt.selector)
		assert.Equal(suite.T(), tt.expectedStart, start, tt.selector)
		assert.Equal(suite.T(), time.Date(2024, 6, 15, 23, 59, 59, 0, time.UTC), end, tt.selector)
	}
}

func (suite *DashboardServiceTestSuite) TestResolveDateRange_Custom() {
	now := time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC)
	req := &models.DashboardRequest{
		DateRange: models.DateRangeCustom,
		StartDate: "2024-01-01",
		EndDate:   "2024-01-31",
	}

	start, end, err := suite.service.ResolveDateRange(req, now)

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(suite.T(), time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC), end)
}

func (suite *DashboardServiceTestSuite) TestResolveDateRange_Invalid() {
	now := time.Now()

	tests := []struct {
		name string
		req  *models.DashboardRequest
	}{
		{"unknown selector", &models.DashboardRequest{DateRange: "last-2-days"}},
		{"custom missing dates", &models.DashboardRequest{DateRange: models.DateRangeCustom}},
		{"custom bad date", &models.DashboardRequest{DateRange: models.DateRangeCustom, StartDate: "01/02/2024", EndDate: "2024-02-01"}},
		{"custom inverted", &models.DashboardRequest{DateRange: models.DateRangeCustom, StartDate: "2024-03-01", EndDate: "2024-02-01"}},
	}

	for _, tt := range tests {
		_, _, err := suite.service.ResolveDateRange(tt.req, now)
		assert.ErrorIs(suite.T(), err, ErrInvalidDateRange, tt.name)
	}
}

func (suite *DashboardServiceTestSuite) TestGetDashboard_Success() {
	created := time.Date(2024, 6, 14, 9, 0, 0, 0, time.UTC)
	visits := []models.VisitRecord{
		{ID: 1, VisitDate: "2024-06-14", CreatedAt: created, Department: "cardiology", Status: models.VisitStatusCompleted},
	}
	patients := []models.PatientRecord{{ID: 1, CreatedAt: created}}

	// The "all" department disables store-level filtering
	suite.mockStore.On("ListVisits", suite.ctx, mock.Anything, mock.Anything, "").Return(visits, nil)
	suite.mockStore.On("ListPatients", suite.ctx, mock.Anything, mock.Anything).Return(patients, nil)

	req := &models.DashboardRequest{DateRange: models.DateRangeLast7Days, Department: models.DepartmentAll}
	model, err := suite.service.GetDashboard(suite.ctx, req)

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, model.Overview.TotalVisits)
	assert.Equal(suite.T(), 1, model.Overview.TotalPatients)
	suite.mockStore.AssertExpectations(suite.T())
}

func (suite *DashboardServiceTestSuite) TestGetDashboard_DepartmentFilter() {
	suite.mockStore.On("ListVisits", suite.ctx, mock.Anything, mock.Anything, "pediatrics").
		Return([]models.VisitRecord{}, nil)
	suite.mockStore.On("ListPatients", suite.ctx, mock.Anything, mock.Anything).
		Return([]models.PatientRecord{}, nil)

	req := &models.DashboardRequest{DateRange: models.DateRangeLast30Days, Department: "pediatrics"}
	model, err := suite.service.GetDashboard(suite.ctx, req)

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 0, model.Overview.TotalVisits)
	suite.mockStore.AssertExpectations(suite.T())
}

func (suite *DashboardServiceTestSuite) TestGetDashboard_StoreError() {
	suite.mockStore.On("ListVisits", suite.ctx, mock.Anything, mock.Anything, "").
		Return(nil, errors.New("connection refused"))

	req := &models.DashboardRequest{DateRange: models.DateRangeLast7Days}
	model, err := suite.service.GetDashboard(suite.ctx, req)

	assert.Error(suite.T(), err)
	assert.Nil(suite.T(), model)

	_, err = suite.service.Snapshot()
	assert.ErrorIs(suite.T(), err, ErrNoSnapshot)
}

func (suite *DashboardServiceTestSuite) TestGetDashboard_InvalidRange() {
	req := &models.DashboardRequest{DateRange: "yesterday"}
	_, err := suite.service.GetDashboard(suite.ctx, req)
	assert.ErrorIs(suite.T(), err, ErrInvalidDateRange)
}

func (suite *DashboardServiceTestSuite) TestSnapshot_LatestRequestWins() {
	suite.mockStore.On("ListVisits", suite.ctx, mock.Anything, mock.Anything, "").
		Return([]models.VisitRecord{}, nil)
	suite.mockStore.On("ListPatients", suite.ctx, mock.Anything, mock.Anything).
		Return([]models.PatientRecord{}, nil)

	// Two requests issued; the older one resolves after the newer was
	// issued, so its result must not become the exported snapshot.
	stale := &models.DashboardRequest{DateRange: models.DateRangeLast7Days, RequestID: suite.service.NextRequestID()}
	latest := &models.DashboardRequest{DateRange: models.DateRangeLast30Days, RequestID: suite.service.NextRequestID()}

	_, err := suite.service.GetDashboard(suite.ctx, stale)
	assert.NoError(suite.T(), err)

	_, err = suite.service.Snapshot()
	assert.ErrorIs(suite.T(), err, ErrNoSnapshot)

	_, err = suite.service.GetDashboard(suite.ctx, latest)
	assert.NoError(suite.T(), err)

	snapshot, err := suite.service.Snapshot()
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.DateRangeLast30Days, snapshot.DateRange)
}

func (suite *DashboardServiceTestSuite) TestSnapshot_AfterCompute() {
	suite.mockStore.On("ListVisits", suite.ctx, mock.Anything, mock.Anything, "").
		Return([]models.VisitRecord{}, nil)
	suite.mockStore.On("ListPatients", suite.ctx, mock.Anything, mock.Anything).
		Return([]models.PatientRecord{}, nil)

	req := &models.DashboardRequest{DateRange: models.DateRangeLast7Days}
	_, err := suite.service.GetDashboard(suite.ctx, req)
	assert.NoError(suite.T(), err)

	snapshot, err := suite.service.Snapshot()
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.DateRangeLast7Days, snapshot.DateRange)
	assert.Equal(suite.T(), models.DepartmentAll, snapshot.Department)
	assert.NotNil(suite.T(), snapshot.Data)
	assert.False(suite.T(), snapshot.GeneratedAt.IsZero())
}

func TestDashboardServiceTestSuite(t *testing.T) {
	suite.Run(t, new(DashboardServiceTestSuite))
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ngenohkevin/clinic-analytics/internal/models"
	"github.com/ngenohkevin/clinic-analytics/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDashboardProvider struct {
	mock.Mock
}

func (m *MockDashboardProvider) GetDashboard(ctx context.Context, req *models.DashboardRequest) (*models.AnalyticsModel, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AnalyticsModel), args.Error(1)
}

type MockExportProvider struct {
	mock.Mock
}

func (m *MockExportProvider) BuildExport() (*models.AnalyticsExport, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AnalyticsExport), args.Error(1)
}

func (m *MockExportProvider) Filename() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func setupAnalyticsRouter(dashboard *MockDashboardProvider, export *MockExportProvider) *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	handler := NewAnalyticsHandler(dashboard, export)
	group := router.Group("/api/v1")
	handler.RegisterRoutes(group)
	return router
}

func emptyModel() *models.AnalyticsModel {
	return services.NewAnalyticsService(0).Aggregate(nil, nil)
}

func TestGetDashboard_Success(t *testing.T) {
	dashboard := &MockDashboardProvider{}
	export := &MockExportProvider{}
	router := setupAnalyticsRouter(dashboard, export)

	dashboard.On("GetDashboard", mock.Anything, mock.MatchedBy(func(req *models.DashboardRequest) bool {
		return req.DateRange == models.DateRangeLast30Days && req.Department == "cardiology"
	})).Return(emptyModel(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/dashboard?range=last-30-days&department=cardiology", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response.Success)
	assert.NotNil(t, response.Data)
	dashboard.AssertExpectations(t)
}

func TestGetDashboard_DefaultsApplied(t *testing.T) {
	dashboard := &MockDashboardProvider{}
	export := &MockExportProvider{}
	router := setupAnalyticsRouter(dashboard, export)

	dashboard.On("GetDashboard", mock.Anything, mock.MatchedBy(func(req *models.DashboardRequest) bool {
		return req.DateRange == models.DateRangeLast7Days && req.Department == models.DepartmentAll
	})).Return(emptyModel(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/dashboard", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	dashboard.AssertExpectations(t)
}

func TestGetDashboard_InvalidRange(t *testing.T) {
	dashboard := &MockDashboardProvider{}
	export := &MockExportProvider{}
	router := setupAnalyticsRouter(dashboard, export)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/dashboard?range=yesterday", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "VALIDATION_ERROR", response.Error.Code)
	dashboard.AssertNotCalled(t, "GetDashboard")
}

func TestGetDashboard_CustomRangeValidationError(t *testing.T) {
	dashboard := &MockDashboardProvider{}
	export := &MockExportProvider{}
	router := setupAnalyticsRouter(dashboard, export)

	dashboard.On("GetDashboard", mock.Anything, mock.Anything).
		Return(nil, services.ErrInvalidDateRange)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/dashboard?range=custom", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "VALIDATION_ERROR", response.Error.Code)
}

func TestGetDashboard_FetchError(t *testing.T) {
	dashboard := &MockDashboardProvider{}
	export := &MockExportProvider{}
	router := setupAnalyticsRouter(dashboard, export)

	dashboard.On("GetDashboard", mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/dashboard", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var response ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "FETCH_ERROR", response.Error.Code)
}

func TestExportReport_Success(t *testing.T) {
	dashboard := &MockDashboardProvider{}
	export := &MockExportProvider{}
	router := setupAnalyticsRouter(dashboard, export)

	envelope := &models.AnalyticsExport{
		GeneratedAt: time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
		DateRange:   models.DateRangeLast7Days,
		Department:  models.DepartmentAll,
		Data:        emptyModel(),
	}
	export.On("BuildExport").Return(envelope, nil)
	export.On("Filename").Return("analytics-report-last-7-days-2024-06-15.json", nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/export", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "analytics-report-last-7-days-2024-06-15.json")

	var decoded models.AnalyticsExport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	assert.Equal(t, models.DateRangeLast7Days, decoded.DateRange)
	require.NotNil(t, decoded.Data)
	assert.Len(t, decoded.Data.Trends.HourlyDistribution, 24)
}

func TestExportReport_NoData(t *testing.T) {
	dashboard := &MockDashboardProvider{}
	export := &MockExportProvider{}
	router := setupAnalyticsRouter(dashboard, export)

	export.On("BuildExport").Return(nil, services.ErrNoSnapshot)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/export", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var response ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "NO_REPORT_DATA", response.Error.Code)
}

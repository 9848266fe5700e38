package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ngenohkevin/clinic-analytics/internal/models"
	"github.com/ngenohkevin/clinic-analytics/internal/services"
)

// DashboardProvider defines the dashboard operations used by the handler
type DashboardProvider interface {
	GetDashboard(ctx context.Context, req *models.DashboardRequest) (*models.AnalyticsModel, error)
}

// ExportProvider defines the export operations used by the handler
type ExportProvider interface {
	BuildExport() (*models.AnalyticsExport, error)
	Filename() (string, error)
}

// AnalyticsHandler handles dashboard and report export requests
type AnalyticsHandler struct {
	dashboard DashboardProvider
	export    ExportProvider
}

// NewAnalyticsHandler creates a new analytics handler instance
func NewAnalyticsHandler(dashboard DashboardProvider, export ExportProvider) *AnalyticsHandler {
	return &AnalyticsHandler{
		dashboard: dashboard,
		export:    export,
	}
}

// RegisterRoutes registers all analytics routes. Extra middleware applies to
// the export route only, which carries its own rate limit.
func (h *AnalyticsHandler) RegisterRoutes(router *gin.RouterGroup, exportMiddleware ...gin.HandlerFunc) {
	analytics := router.Group("/analytics")
	{
		analytics.GET("/dashboard", h.GetDashboard)
		analytics.GET("/export", append(exportMiddleware, h.ExportReport)...)
	}
}

var validDateRanges = map[string]bool{
	models.DateRangeLast7Days:  true,
	models.DateRangeLast30Days: true,
	models.DateRangeLast90Days: true,
	models.DateRangeLastYear:   true,
	models.DateRangeCustom:     true,
}

// GetDashboard computes the analytics dashboard for the requested window
func (h *AnalyticsHandler) GetDashboard(c *gin.Context) {
	var req models.DashboardRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error: ErrorDetail{
				Code:    "VALIDATION_ERROR",
				Message: "Invalid request parameters",
				Details: err.Error(),
			},
		})
		return
	}

	if req.DateRange == "" {
		req.DateRange = models.DateRangeLast7Days
	}
	if req.Department == "" {
		req.Department = models.DepartmentAll
	}

	if !validDateRanges[req.DateRange] {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error: ErrorDetail{
				Code:    "VALIDATION_ERROR",
				Message: "Invalid date range",
				Details: "Range must be one of: last-7-days, last-30-days, last-90-days, last-1-year, custom",
			},
		})
		return
	}

	model, err := h.dashboard.GetDashboard(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidDateRange) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Success: false,
				Error: ErrorDetail{
					Code:    "VALIDATION_ERROR",
					Message: "Invalid date range",
					Details: err.Error(),
				},
			})
			return
		}

		// Upstream fetch failed; the client renders its empty state
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Success: false,
			Error: ErrorDetail{
				Code:    "FETCH_ERROR",
				Message: "Failed to fetch analytics data",
				Details: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Message: "Analytics dashboard generated successfully",
		Data:    model,
	})
}

// ExportReport downloads the latest analytics snapshot as a JSON report
func (h *AnalyticsHandler) ExportReport(c *gin.Context) {
	export, err := h.export.BuildExport()
	if err != nil {
		if errors.Is(err, services.ErrNoSnapshot) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Success: false,
				Error: ErrorDetail{
					Code:    "NO_REPORT_DATA",
					Message: "No analytics report has been generated yet",
				},
			})
			return
		}

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Success: false,
			Error: ErrorDetail{
				Code:    "EXPORT_ERROR",
				Message: "Failed to export analytics report",
				Details: err.Error(),
			},
		})
		return
	}

	filename, err := h.export.Filename()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Success: false,
			Error: ErrorDetail{
				Code:    "EXPORT_ERROR",
				Message: "Failed to name analytics report",
				Details: err.Error(),
			},
		})
		return
	}

	payload, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Success: false,
			Error: ErrorDetail{
				Code:    "EXPORT_ERROR",
				Message: "Failed to serialize analytics report",
				Details: err.Error(),
			},
		})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/json", payload)
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Date range selector values accepted by the dashboard
const (
	DateRangeLast7Days  = "last-7-days"
	DateRangeLast30Days = "last-30-days"
	DateRangeLast90Days = "last-90-days"
	DateRangeLastYear   = "last-1-year"
	DateRangeCustom     = "custom"
)

// DepartmentAll disables department filtering
const DepartmentAll = "all"

// AnalyticsModel is the full aggregated dashboard snapshot. It is a value:
// recomputed whole on every filter change, never partially updated.
type AnalyticsModel struct {
	Overview    AnalyticsOverview    `json:"overview"`
	Trends      AnalyticsTrends      `json:"trends"`
	Performance AnalyticsPerformance `json:"performance"`
}

// AnalyticsOverview holds the headline metrics
type AnalyticsOverview struct {
	TotalPatients       int             `json:"total_patients"`
	TotalVisits         int             `json:"total_visits"`
	TotalRevenue        decimal.Decimal `json:"total_revenue"`
	AverageWaitTime     float64         `json:"average_wait_time"` // minutes
	CompletionRate      float64         `json:"completion_rate"`   // percentage
	PatientSatisfaction float64         `json:"patient_satisfaction"`
}

// AnalyticsTrends holds the time and category breakdowns
type AnalyticsTrends struct {
	DailyVisits        []DailyVisitStat    `json:"daily_visits"`
	DepartmentStats    []DepartmentStat    `json:"department_stats"`
	HourlyDistribution []HourlyCount       `json:"hourly_distribution"`
	PaymentMethods     []PaymentMethodStat `json:"payment_methods"`
}

// DailyVisitStat represents visit volume and revenue for one calendar date
type DailyVisitStat struct {
	Date       string          `json:"date"`
	VisitCount int             `json:"visit_count"`
	Revenue    decimal.Decimal `json:"revenue"`
}

// DepartmentStat represents per-department volume, revenue and wait time
type DepartmentStat struct {
	Department      string          `json:"department"`
	VisitCount      int             `json:"visit_count"`
	Revenue         decimal.Decimal `json:"revenue"`
	AverageWaitTime float64         `json:"average_wait_time"`
}

// HourlyCount represents visit volume for one hour of day (0-23)
type HourlyCount struct {
	Hour       int `json:"hour"`
	VisitCount int `json:"visit_count"`
}

// PaymentMethodStat represents per-method transaction volume and completed amount
type PaymentMethodStat struct {
	Method string          `json:"method"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// AnalyticsPerformance holds the ranking and scoring section
type AnalyticsPerformance struct {
	TopDoctors           []DoctorPerformance    `json:"top_doctors"`
	BusyHours            []BusyHour             `json:"busy_hours"`
	DepartmentEfficiency []DepartmentEfficiency `json:"department_efficiency"`
}

// DoctorPerformance represents a doctor's visit volume and proxy rating.
// Rating is derived from the completed-visit ratio, not a real survey score.
type DoctorPerformance struct {
	DoctorID        int32   `json:"doctor_id"`
	Name            string  `json:"name"`
	Visits          int     `json:"visits"`
	CompletedVisits int     `json:"completed_visits"`
	Rating          float64 `json:"rating"`
}

// BusyHour represents one row of the illustrative peak-load table
type BusyHour struct {
	Range string `json:"range"`
	Load  int    `json:"load"` // percentage
}

// DepartmentEfficiency is a bounded volume-derived proxy score in [0,100]
type DepartmentEfficiency struct {
	Department string  `json:"department"`
	Efficiency float64 `json:"efficiency"`
}

// DashboardRequest carries the dashboard query parameters. RequestID is
// assigned by the dashboard service for stale-response detection.
type DashboardRequest struct {
	DateRange  string `form:"range" json:"range"`
	StartDate  string `form:"start_date" json:"start_date,omitempty"`
	EndDate    string `form:"end_date" json:"end_date,omitempty"`
	Department string `form:"department" json:"department"`
	RequestID  uint64 `form:"-" json:"-"`
}

// AnalyticsExport is the downloadable report envelope
type AnalyticsExport struct {
	GeneratedAt time.Time       `json:"generated_at"`
	DateRange   string          `json:"date_range"`
	Department  string          `json:"department"`
	Data        *AnalyticsModel `json:"data"`
}

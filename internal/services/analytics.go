package services

import (
	"sort"
	"unicode"
	"unicode/utf8"

	"github.com/ngenohkevin/clinic-analytics/internal/models"
	"github.com/shopspring/decimal"
)

const (
	// DefaultEfficiencyVisitTarget is the visit count at which a department's
	// efficiency score saturates at 100.
	DefaultEfficiencyVisitTarget = 10

	// patientSatisfactionPlaceholder is a fixed value pending a real survey
	// data source.
	patientSatisfactionPlaceholder = 4.2

	topDoctorLimit = 5
	hoursPerDay    = 24
)

// busyHoursTable is illustrative peak-load data, not derived from records.
var busyHoursTable = []models.BusyHour{
	{Range: "08:00 - 10:00", Load: 85},
	{Range: "10:00 - 12:00", Load: 92},
	{Range: "14:00 - 16:00", Load: 78},
	{Range: "16:00 - 18:00", Load: 65},
	{Range: "18:00 - 20:00", Load: 45},
}

// AnalyticsService aggregates raw visit and patient records into the
// dashboard model. Aggregation is pure: no I/O, inputs are never mutated,
// and equal inputs always produce equal output.
type AnalyticsService struct {
	efficiencyVisitTarget int
}

// NewAnalyticsService creates a new analytics service instance. A
// non-positive efficiencyVisitTarget falls back to the default.
func NewAnalyticsService(efficiencyVisitTarget int) *AnalyticsService {
	if efficiencyVisitTarget <= 0 {
		efficiencyVisitTarget = DefaultEfficiencyVisitTarget
	}
	return &AnalyticsService{
		efficiencyVisitTarget: efficiencyVisitTarget,
	}
}

// Aggregate computes the full analytics model for the given records. Empty
// inputs are valid and produce a model with zero counts and empty series.
func (s *AnalyticsService) Aggregate(visits []models.VisitRecord, patients []models.PatientRecord) *models.AnalyticsModel {
	departmentStats := s.buildDepartmentStats(visits)

	return &models.AnalyticsModel{
		Overview: s.buildOverview(visits, patients),
		Trends: models.AnalyticsTrends{
			DailyVisits:        s.buildDailyVisits(visits),
			DepartmentStats:    departmentStats,
			HourlyDistribution: s.buildHourlyDistribution(visits),
			PaymentMethods:     s.buildPaymentMethods(visits),
		},
		Performance: models.AnalyticsPerformance{
			TopDoctors:           s.buildTopDoctors(visits),
			BusyHours:            s.busyHours(),
			DepartmentEfficiency: s.buildDepartmentEfficiency(departmentStats),
		},
	}
}

func (s *AnalyticsService) buildOverview(visits []models.VisitRecord, patients []models.PatientRecord) models.AnalyticsOverview {
	totalRevenue := decimal.Zero
	completedVisits := 0
	var waitMinutesSum float64

	for _, visit := range visits {
		totalRevenue = totalRevenue.Add(completedRevenue(visit))

		if visit.Status != models.VisitStatusCompleted {
			continue
		}
		completedVisits++

		// Visits without a check-in timestamp stay in the denominator but
		// add nothing to the numerator, understating the average. This
		// matches the numbers the dashboard has always reported.
		if minutes, ok := waitMinutes(visit); ok {
			waitMinutesSum += minutes
		}
	}

	var averageWaitTime float64
	if completedVisits > 0 {
		averageWaitTime = waitMinutesSum / float64(completedVisits)
	}

	var completionRate float64
	if len(visits) > 0 {
		completionRate = 100 * float64(completedVisits) / float64(len(visits))
	}

	return models.AnalyticsOverview{
		TotalPatients:       len(patients),
		TotalVisits:         len(visits),
		TotalRevenue:        totalRevenue,
		AverageWaitTime:     averageWaitTime,
		CompletionRate:      completionRate,
		PatientSatisfaction: patientSatisfactionPlaceholder,
	}
}

func (s *AnalyticsService) buildDailyVisits(visits []models.VisitRecord) []models.DailyVisitStat {
	type dailyAccumulator struct {
		visitCount int
		revenue    decimal.Decimal
	}

	groups := make(map[string]*dailyAccumulator)
	dates := make([]string, 0)

	for _, visit := range visits {
		acc, ok := groups[visit.VisitDate]
		if !ok {
			acc = &dailyAccumulator{revenue: decimal.Zero}
			groups[visit.VisitDate] = acc
			dates = append(dates, visit.VisitDate)
		}
		acc.visitCount++
		acc.revenue = acc.revenue.Add(completedRevenue(visit))
	}

	// ISO date strings sort lexicographically into chronological order
	sort.Strings(dates)

	stats := make([]models.DailyVisitStat, len(dates))
	for i, date := range dates {
		acc := groups[date]
		stats[i] = models.DailyVisitStat{
			Date:       date,
			VisitCount: acc.visitCount,
			Revenue:    acc.revenue,
		}
	}

	return stats
}

func (s *AnalyticsService) buildDepartmentStats(visits []models.VisitRecord) []models.DepartmentStat {
	type departmentAccumulator struct {
		visitCount     int
		revenue        decimal.Decimal
		waitMinutesSum float64
		timedVisits    int
	}

	groups := make(map[string]*departmentAccumulator)
	departments := make([]string, 0)

	for _, visit := range visits {
		acc, ok := groups[visit.Department]
		if !ok {
			acc = &departmentAccumulator{revenue: decimal.Zero}
			groups[visit.Department] = acc
			departments = append(departments, visit.Department)
		}
		acc.visitCount++
		acc.revenue = acc.revenue.Add(completedRevenue(visit))

		// Unlike the overview, the per-department average only divides by
		// visits that actually carry both timestamps.
		if minutes, ok := waitMinutes(visit); ok {
			acc.waitMinutesSum += minutes
			acc.timedVisits++
		}
	}

	stats := make([]models.DepartmentStat, len(departments))
	for i, department := range departments {
		acc := groups[department]

		var averageWaitTime float64
		if acc.timedVisits > 0 {
			averageWaitTime = acc.waitMinutesSum / float64(acc.timedVisits)
		}

		stats[i] = models.DepartmentStat{
			Department:      capitalize(department),
			VisitCount:      acc.visitCount,
			Revenue:         acc.revenue,
			AverageWaitTime: averageWaitTime,
		}
	}

	return stats
}

func (s *AnalyticsService) buildHourlyDistribution(visits []models.VisitRecord) []models.HourlyCount {
	distribution := make([]models.HourlyCount, hoursPerDay)
	for hour := range distribution {
		distribution[hour].Hour = hour
	}

	for _, visit := range visits {
		distribution[visit.CreatedAt.Hour()].VisitCount++
	}

	return distribution
}

func (s *AnalyticsService) buildPaymentMethods(visits []models.VisitRecord) []models.PaymentMethodStat {
	type methodAccumulator struct {
		count  int
		amount decimal.Decimal
	}

	groups := make(map[string]*methodAccumulator)
	methods := make([]string, 0)

	for _, visit := range visits {
		for _, payment := range visit.Payments {
			acc, ok := groups[payment.Method]
			if !ok {
				acc = &methodAccumulator{amount: decimal.Zero}
				groups[payment.Method] = acc
				methods = append(methods, payment.Method)
			}
			// Count covers every transaction, the amount only completed ones
			acc.count++
			if payment.Status == models.PaymentStatusCompleted {
				acc.amount = acc.amount.Add(payment.Amount)
			}
		}
	}

	stats := make([]models.PaymentMethodStat, len(methods))
	for i, method := range methods {
		acc := groups[method]
		stats[i] = models.PaymentMethodStat{
			Method: capitalize(method),
			Count:  acc.count,
			Amount: acc.amount,
		}
	}

	return stats
}

func (s *AnalyticsService) buildTopDoctors(visits []models.VisitRecord) []models.DoctorPerformance {
	type doctorAccumulator struct {
		name            string
		visits          int
		completedVisits int
	}

	groups := make(map[int32]*doctorAccumulator)
	doctorIDs := make([]int32, 0)

	for _, visit := range visits {
		if visit.Doctor == nil {
			continue
		}
		acc, ok := groups[visit.Doctor.ID]
		if !ok {
			acc = &doctorAccumulator{name: visit.Doctor.Name}
			groups[visit.Doctor.ID] = acc
			doctorIDs = append(doctorIDs, visit.Doctor.ID)
		}
		acc.visits++
		if visit.Status == models.VisitStatusCompleted {
			acc.completedVisits++
		}
	}

	doctors := make([]models.DoctorPerformance, len(doctorIDs))
	for i, id := range doctorIDs {
		acc := groups[id]

		var rating float64
		if acc.visits > 0 {
			rating = 5 * float64(acc.completedVisits) / float64(acc.visits)
		}

		doctors[i] = models.DoctorPerformance{
			DoctorID:        id,
			Name:            acc.name,
			Visits:          acc.visits,
			CompletedVisits: acc.completedVisits,
			Rating:          rating,
		}
	}

	// Stable sort keeps first-seen order between doctors with equal volume
	sort.SliceStable(doctors, func(i, j int) bool {
		return doctors[i].Visits > doctors[j].Visits
	})

	if len(doctors) > topDoctorLimit {
		doctors = doctors[:topDoctorLimit]
	}

	return doctors
}

func (s *AnalyticsService) buildDepartmentEfficiency(stats []models.DepartmentStat) []models.DepartmentEfficiency {
	efficiency := make([]models.DepartmentEfficiency, len(stats))

	for i, stat := range stats {
		score := 100 * float64(stat.VisitCount) / float64(s.efficiencyVisitTarget)
		if score > 100 {
			score = 100
		}
		efficiency[i] = models.DepartmentEfficiency{
			Department: stat.Department,
			Efficiency: score,
		}
	}

	return efficiency
}

func (s *AnalyticsService) busyHours() []models.BusyHour {
	hours := make([]models.BusyHour, len(busyHoursTable))
	copy(hours, busyHoursTable)
	return hours
}

// completedRevenue sums a visit's completed payment transactions
func completedRevenue(visit models.VisitRecord) decimal.Decimal {
	revenue := decimal.Zero
	for _, payment := range visit.Payments {
		if payment.Status == models.PaymentStatusCompleted {
			revenue = revenue.Add(payment.Amount)
		}
	}
	return revenue
}

// waitMinutes returns the elapsed minutes between creation and check-in.
// The bool reports whether the visit carries both timestamps. Negative
// deltas from clock skew are clamped to zero so they cannot corrupt sums.
func waitMinutes(visit models.VisitRecord) (float64, bool) {
	if visit.CheckedInAt == nil {
		return 0, false
	}
	delta := visit.CheckedInAt.Sub(visit.CreatedAt)
	if delta < 0 {
		return 0, true
	}
	return delta.Minutes(), true
}

// capitalize upper-cases the first rune of a label for display
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

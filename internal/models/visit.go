package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// VisitStatus represents the lifecycle state of a clinic visit
type VisitStatus string

const (
	VisitStatusScheduled VisitStatus = "scheduled"
	VisitStatusCheckedIn VisitStatus = "checked_in"
	VisitStatusCompleted VisitStatus = "completed"
	VisitStatusCancelled VisitStatus = "cancelled"
	VisitStatusNoShow    VisitStatus = "no_show"
)

// PaymentStatus represents the state of a payment transaction
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// VisitRecord represents a single patient encounter with optional nested
// doctor and payment data. CheckedInAt is nil until the patient checks in.
type VisitRecord struct {
	ID          int32                `json:"id"`
	VisitDate   string               `json:"visit_date"` // calendar date, YYYY-MM-DD
	CreatedAt   time.Time            `json:"created_at"`
	CheckedInAt *time.Time           `json:"checked_in_at,omitempty"`
	Department  string               `json:"department"`
	Status      VisitStatus          `json:"status"`
	Doctor      *DoctorRef           `json:"doctor,omitempty"`
	Payments    []PaymentTransaction `json:"payments,omitempty"`
}

// PaymentTransaction represents a single payment against a visit
type PaymentTransaction struct {
	Amount decimal.Decimal `json:"amount"`
	Status PaymentStatus   `json:"status"`
	Method string          `json:"method"`
}

// DoctorRef identifies the doctor attached to a visit
type DoctorRef struct {
	ID   int32  `json:"id"`
	Name string `json:"name"`
}

// PatientRecord represents a registered patient; only the registration
// timestamp matters for the new-patients metric
type PatientRecord struct {
	ID        int32     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ngenohkevin/clinic-analytics/internal/models"
	"github.com/shopspring/decimal"
)

// Store provides visit, patient and user record access over the pool.
// It is the record source feeding the analytics aggregator.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewStore(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	return &Store{
		pool:   pool,
		logger: logger,
	}
}

// ListVisits returns visits in the inclusive window with their doctor and
// payment transactions attached. An empty department disables filtering.
func (s *Store) ListVisits(ctx context.Context, start, end time.Time, department string) ([]models.VisitRecord, error) {
	query := `
		SELECT v.id, v.visit_date, v.created_at, v.checked_in_at, v.department, v.status,
		       d.id, d.name
		FROM visits v
		LEFT JOIN doctors d ON d.id = v.doctor_id
		WHERE v.visit_date BETWEEN $1 AND $2
	`
	args := []interface{}{start, end}

	if department != "" {
		query += ` AND v.department = $3`
		args = append(args, department)
	}
	query += ` ORDER BY v.created_at`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		s.logger.Error("Error listing visits", "error", err)
		return nil, err
	}
	defer rows.Close()

	visits := make([]models.VisitRecord, 0)
	visitIndex := make(map[int32]int)

	for rows.Next() {
		var visit models.VisitRecord
		var visitDate time.Time
		var checkedInAt sql.NullTime
		var doctorID sql.NullInt32
		var doctorName sql.NullString

		if err := rows.Scan(
			&visit.ID,
			&visitDate,
			&visit.CreatedAt,
			&checkedInAt,
			&visit.Department,
			&visit.Status,
			&doctorID,
			&doctorName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan visit: %w", err)
		}

		visit.VisitDate = visitDate.Format("2006-01-02")
		if checkedInAt.Valid {
			visit.CheckedInAt = &checkedInAt.Time
		}
		if doctorID.Valid {
			visit.Doctor = &models.DoctorRef{
				ID:   doctorID.Int32,
				Name: doctorName.String,
			}
		}

		visitIndex[visit.ID] = len(visits)
		visits = append(visits, visit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read visits: %w", err)
	}

	if len(visits) == 0 {
		return visits, nil
	}

	if err := s.attachPayments(ctx, visits, visitIndex); err != nil {
		return nil, err
	}

	return visits, nil
}

func (s *Store) attachPayments(ctx context.Context, visits []models.VisitRecord, visitIndex map[int32]int) error {
	ids := make([]int32, 0, len(visits))
	for _, visit := range visits {
		ids = append(ids, visit.ID)
	}

	query := `
		SELECT visit_id, amount, status, method
		FROM payment_transactions
		WHERE visit_id = ANY($1)
		ORDER BY id
	`

	rows, err := s.pool.Query(ctx, query, ids)
	if err != nil {
		s.logger.Error("Error listing payment transactions", "error", err)
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var visitID int32
		var amount pgtype.Numeric
		var payment models.PaymentTransaction

		if err := rows.Scan(&visitID, &amount, &payment.Status, &payment.Method); err != nil {
			return fmt.Errorf("failed to scan payment: %w", err)
		}

		payment.Amount = numericToDecimal(amount)

		if i, ok := visitIndex[visitID]; ok {
			visits[i].Payments = append(visits[i].Payments, payment)
		}
	}

	return rows.Err()
}

// ListPatients returns patients registered inside the window
func (s *Store) ListPatients(ctx context.Context, start, end time.Time) ([]models.PatientRecord, error) {
	query := `
		SELECT id, created_at
		FROM patients
		WHERE created_at BETWEEN $1 AND $2
		ORDER BY created_at
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		s.logger.Error("Error listing patients", "error", err)
		return nil, err
	}
	defer rows.Close()

	patients := make([]models.PatientRecord, 0)
	for rows.Next() {
		var patient models.PatientRecord
		if err := rows.Scan(&patient.ID, &patient.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan patient: %w", err)
		}
		patients = append(patients, patient)
	}

	return patients, rows.Err()
}

// GetUserByUsername returns an active dashboard user
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `
		SELECT id, username, email, password_hash, role, is_active, last_login, created_at, updated_at
		FROM users
		WHERE username = $1 AND is_active = true
	`

	var user models.User
	var lastLogin sql.NullTime

	err := s.pool.QueryRow(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.IsActive,
		&lastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		s.logger.Error("Error getting user by username", "error", err, "username", username)
		return nil, err
	}

	if lastLogin.Valid {
		user.LastLogin = &lastLogin.Time
	}

	return &user, nil
}

// numericToDecimal converts a pgtype.Numeric to a decimal, treating
// malformed amounts as zero contribution rather than failing the fetch.
func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.NaN || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

package repositories

import (
	"context"

	"challan-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ChallanLogRepository struct {
	DB *pgxpool.Pool
}

func NewChallanLogRepository(db *pgxpool.Pool) *ChallanLogRepository {
	return &ChallanLogRepository{DB: db}
}

// Insert records one generation attempt
func (r *ChallanLogRepository) Insert(ctx context.Context, entry *models.ChallanLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	query := `
		INSERT INTO challan_logs
			(id, fee_id, student_id, filename, uri, strategy, outcome, error_kind, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10)
	`

	_, err := r.DB.Exec(ctx, query,
		entry.ID, entry.FeeID, entry.StudentID, entry.Filename, entry.URI,
		entry.Strategy, entry.Outcome, entry.ErrorKind, entry.DurationMs, entry.CreatedAt,
	)
	return err
}

// ListByStudent returns the most recent attempts of a student, newest first
func (r *ChallanLogRepository) ListByStudent(ctx context.Context, studentID string, limit int) ([]models.ChallanLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `
		SELECT id::text, fee_id, student_id, filename, uri, strategy, outcome,
		       COALESCE(error_kind, ''), duration_ms, created_at
		FROM challan_logs
		WHERE student_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.DB.Query(ctx, query, studentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.ChallanLog
	for rows.Next() {
		var l models.ChallanLog
		if err := rows.Scan(&l.ID, &l.FeeID, &l.StudentID, &l.Filename, &l.URI, &l.Strategy,
			&l.Outcome, &l.ErrorKind, &l.DurationMs, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

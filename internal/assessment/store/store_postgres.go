package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"consentd/internal/assessment/models"
	id "consentd/pkg/domain"
	"consentd/pkg/platform/sentinel"
)

// PostgresStore persists privacy impact assessments in PostgreSQL. Activity
// IDs are not foreign keys: the catalog lives in memory.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const assessmentColumns = `id, activity_id, assessment_date, risk_level, subject_count,
	data_categories, purposes, risks, mitigations, residual_risks,
	status, approved_by, approved_at`

func (s *PostgresStore) Create(ctx context.Context, a *models.Assessment) error {
	if a == nil {
		return fmt.Errorf("assessment record is required")
	}
	lists, err := encodeLists(a)
	if err != nil {
		return err
	}
	var approvedAt sql.NullTime
	if a.ApprovedAt != nil {
		approvedAt = sql.NullTime{Time: *a.ApprovedAt, Valid: true}
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO assessments (`+assessmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING
	`,
		string(a.ID),
		string(a.ActivityID),
		a.AssessmentDate,
		string(a.RiskLevel),
		a.SubjectCount,
		lists[0], lists[1], lists[2], lists[3], lists[4],
		string(a.Status),
		a.ApprovedBy,
		approvedAt,
	)
	if err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert assessment rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, assessmentID id.AssessmentID) (*models.Assessment, error) {
	a, err := scanAssessment(s.db.QueryRowContext(ctx, `SELECT `+assessmentColumns+` FROM assessments WHERE id = $1`, string(assessmentID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find assessment: %w", err)
	}
	return a, nil
}

// Execute locks the row, applies fn and writes the decision back. Nothing is
// written when fn fails.
func (s *PostgresStore) Execute(ctx context.Context, assessmentID id.AssessmentID, fn func(*models.Assessment) error) (*models.Assessment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin assessment update tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	a, err := scanAssessment(tx.QueryRowContext(ctx, `SELECT `+assessmentColumns+` FROM assessments WHERE id = $1 FOR UPDATE`, string(assessmentID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock assessment: %w", err)
	}
	if err := fn(a); err != nil {
		return nil, err
	}
	var approvedAt sql.NullTime
	if a.ApprovedAt != nil {
		approvedAt = sql.NullTime{Time: *a.ApprovedAt, Valid: true}
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE assessments SET status = $2, approved_by = $3, approved_at = $4 WHERE id = $1
	`, string(a.ID), string(a.Status), a.ApprovedBy, approvedAt)
	if err != nil {
		return nil, fmt.Errorf("update assessment: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit assessment update: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Assessment, error) {
	return s.query(ctx, `SELECT `+assessmentColumns+` FROM assessments ORDER BY assessment_date, id`)
}

func (s *PostgresStore) ListByActivity(ctx context.Context, activityID id.ActivityID) ([]*models.Assessment, error) {
	return s.query(ctx, `SELECT `+assessmentColumns+` FROM assessments WHERE activity_id = $1 ORDER BY assessment_date, id`, string(activityID))
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]*models.Assessment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	defer rows.Close()

	out := []*models.Assessment{}
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assessment: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assessments: %w", err)
	}
	return out, nil
}

// encodeLists returns the JSON forms of data categories, purposes, risks,
// mitigations and residual risks, in column order.
func encodeLists(a *models.Assessment) ([5][]byte, error) {
	var out [5][]byte
	for i, list := range [][]string{a.DataCategories, a.Purposes, a.Risks, a.Mitigations, a.ResidualRisks} {
		if list == nil {
			list = []string{}
		}
		raw, err := json.Marshal(list)
		if err != nil {
			return out, fmt.Errorf("encode assessment lists: %w", err)
		}
		out[i] = raw
	}
	return out, nil
}

type assessmentRow interface {
	Scan(dest ...any) error
}

func scanAssessment(row assessmentRow) (*models.Assessment, error) {
	var a models.Assessment
	var assessmentID, activityID, risk, status string
	var raw [5][]byte
	var approvedAt sql.NullTime
	if err := row.Scan(
		&assessmentID, &activityID, &a.AssessmentDate, &risk, &a.SubjectCount,
		&raw[0], &raw[1], &raw[2], &raw[3], &raw[4],
		&status, &a.ApprovedBy, &approvedAt,
	); err != nil {
		return nil, err
	}
	a.ID = id.AssessmentID(assessmentID)
	a.ActivityID = id.ActivityID(activityID)
	a.RiskLevel = models.RiskLevel(risk)
	a.Status = models.Status(status)
	if approvedAt.Valid {
		t := approvedAt.Time
		a.ApprovedAt = &t
	}
	for i, dst := range []*[]string{&a.DataCategories, &a.Purposes, &a.Risks, &a.Mitigations, &a.ResidualRisks} {
		if err := json.Unmarshal(raw[i], dst); err != nil {
			return nil, fmt.Errorf("decode assessment lists: %w", err)
		}
	}
	return &a, nil
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"consentd/internal/breach/models"
	id "consentd/pkg/domain"
	"consentd/pkg/platform/sentinel"
)

// PostgresStore persists the breach register in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const breachColumns = `id, breach_date, discovery_date, notification_date, affected_subjects,
	data_categories, breach_type, severity, description, cause, remediation_measures,
	status, regulatory_notification, subject_notification, reported_to, reported_at`

func (s *PostgresStore) Create(ctx context.Context, b *models.Breach) error {
	if b == nil {
		return fmt.Errorf("breach record is required")
	}
	categories, remediation, err := encodeLists(b)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO breaches (`+breachColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO NOTHING
	`,
		string(b.ID),
		b.BreachDate,
		b.DiscoveryDate,
		nullTime(b.NotificationDate),
		b.AffectedSubjects,
		categories,
		string(b.Type),
		string(b.Severity),
		b.Description,
		b.Cause,
		remediation,
		string(b.Status),
		b.RegulatoryNotification,
		b.SubjectNotification,
		b.ReportedTo,
		nullTime(b.ReportedAt),
	)
	if err != nil {
		return fmt.Errorf("insert breach: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert breach rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, breachID id.BreachID) (*models.Breach, error) {
	b, err := scanBreach(s.db.QueryRowContext(ctx, `SELECT `+breachColumns+` FROM breaches WHERE id = $1`, string(breachID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find breach: %w", err)
	}
	return b, nil
}

// Execute locks the row, applies fn and writes the mutable columns back.
// Nothing is written when fn fails.
func (s *PostgresStore) Execute(ctx context.Context, breachID id.BreachID, fn func(*models.Breach) error) (*models.Breach, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin breach update tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	b, err := scanBreach(tx.QueryRowContext(ctx, `SELECT `+breachColumns+` FROM breaches WHERE id = $1 FOR UPDATE`, string(breachID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock breach: %w", err)
	}
	if err := fn(b); err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE breaches
		SET status = $2, notification_date = $3, reported_to = $4, reported_at = $5
		WHERE id = $1
	`,
		string(b.ID),
		string(b.Status),
		nullTime(b.NotificationDate),
		b.ReportedTo,
		nullTime(b.ReportedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("update breach: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit breach update: %w", err)
	}
	return b, nil
}

// List returns breaches by discovery date, newest first.
func (s *PostgresStore) List(ctx context.Context) ([]*models.Breach, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+breachColumns+` FROM breaches ORDER BY discovery_date DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list breaches: %w", err)
	}
	defer rows.Close()

	var out []*models.Breach
	for rows.Next() {
		b, err := scanBreach(rows)
		if err != nil {
			return nil, fmt.Errorf("scan breach: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate breaches: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM breaches`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count breaches: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) Delete(ctx context.Context, breachID id.BreachID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM breaches WHERE id = $1`, string(breachID))
	if err != nil {
		return fmt.Errorf("delete breach: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete breach rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func encodeLists(b *models.Breach) (categories, remediation []byte, err error) {
	categories, err = json.Marshal(nonNil(b.DataCategories))
	if err != nil {
		return nil, nil, fmt.Errorf("encode data categories: %w", err)
	}
	remediation, err = json.Marshal(nonNil(b.RemediationMeasures))
	if err != nil {
		return nil, nil, fmt.Errorf("encode remediation measures: %w", err)
	}
	return categories, remediation, nil
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

type breachRow interface {
	Scan(dest ...any) error
}

func scanBreach(row breachRow) (*models.Breach, error) {
	var b models.Breach
	var breachID, breachType, severity, status string
	var categories, remediation []byte
	var notified, reported sql.NullTime
	if err := row.Scan(
		&breachID, &b.BreachDate, &b.DiscoveryDate, &notified, &b.AffectedSubjects,
		&categories, &breachType, &severity, &b.Description, &b.Cause, &remediation,
		&status, &b.RegulatoryNotification, &b.SubjectNotification, &b.ReportedTo, &reported,
	); err != nil {
		return nil, err
	}
	b.ID = id.BreachID(breachID)
	b.Type = models.Type(breachType)
	b.Severity = models.Severity(severity)
	b.Status = models.Status(status)
	b.NotificationDate = timePtr(notified)
	b.ReportedAt = timePtr(reported)
	if err := json.Unmarshal(categories, &b.DataCategories); err != nil {
		return nil, fmt.Errorf("decode data categories: %w", err)
	}
	if err := json.Unmarshal(remediation, &b.RemediationMeasures); err != nil {
		return nil, fmt.Errorf("decode remediation measures: %w", err)
	}
	return &b, nil
}

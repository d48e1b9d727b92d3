package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"consentd/internal/ledger/models"
	id "consentd/pkg/domain"
)

// appendLockKey serializes appends across connections so two writers never
// seal against the same tail.
const appendLockKey = 7_240_001

// PostgresStore persists the ledger in the processing_records table. It only
// ever inserts.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const recordColumns = `sequence, id, subject_id, activity_id, data_type, purpose, legal_basis, categories,
	retention_days, recorded_at, consent_id, automated_decision, profiling, prev_hash, hash`

func (s *PostgresStore) Append(ctx context.Context, record *models.Record) (*models.Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin ledger append tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, appendLockKey); err != nil {
		return nil, fmt.Errorf("acquire ledger append lock: %w", err)
	}

	var prev *models.Record
	row := tx.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM processing_records ORDER BY sequence DESC LIMIT 1`)
	tail, err := scanRecord(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("read ledger tail: %w", err)
	default:
		prev = tail
	}

	sealed := record.Clone()
	sealed.Seal(prev)
	categories, err := json.Marshal(nonNil(sealed.Categories))
	if err != nil {
		return nil, fmt.Errorf("marshal categories: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO processing_records (`+recordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		sealed.Sequence,
		string(sealed.ID),
		sealed.SubjectID,
		string(sealed.ActivityID),
		sealed.DataType,
		sealed.Purpose,
		sealed.LegalBasis,
		categories,
		sealed.RetentionDays,
		sealed.Timestamp,
		string(sealed.ConsentID),
		sealed.AutomatedDecision,
		sealed.Profiling,
		sealed.PrevHash,
		sealed.Hash,
	)
	if err != nil {
		return nil, fmt.Errorf("insert processing record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit ledger append: %w", err)
	}
	return sealed, nil
}

func (s *PostgresStore) ListBySubject(ctx context.Context, subjectID string) ([]*models.Record, error) {
	return s.query(ctx, `SELECT `+recordColumns+` FROM processing_records WHERE subject_id = $1 ORDER BY sequence`, subjectID)
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Record, error) {
	return s.query(ctx, `SELECT `+recordColumns+` FROM processing_records ORDER BY sequence`)
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM processing_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count processing records: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]*models.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query processing records: %w", err)
	}
	defer rows.Close()

	var out []*models.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan processing record: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate processing records: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*models.Record, error) {
	var (
		r          models.Record
		recordID   string
		activityID string
		consentID  string
		categories []byte
	)
	err := row.Scan(
		&r.Sequence,
		&recordID,
		&r.SubjectID,
		&activityID,
		&r.DataType,
		&r.Purpose,
		&r.LegalBasis,
		&categories,
		&r.RetentionDays,
		&r.Timestamp,
		&consentID,
		&r.AutomatedDecision,
		&r.Profiling,
		&r.PrevHash,
		&r.Hash,
	)
	if err != nil {
		return nil, err
	}
	r.ID = id.RecordID(recordID)
	r.ActivityID = id.ActivityID(activityID)
	r.ConsentID = id.ConsentID(consentID)
	if len(categories) > 0 {
		if err := json.Unmarshal(categories, &r.Categories); err != nil {
			return nil, fmt.Errorf("unmarshal categories: %w", err)
		}
	}
	return &r, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

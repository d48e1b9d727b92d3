package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"consentd/internal/consent/models"
	id "consentd/pkg/domain"
	"consentd/pkg/platform/sentinel"
)

// PostgresStore persists consents and subject rights in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed consent store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Create inserts the consent and its rights record in one transaction.
func (s *PostgresStore) Create(ctx context.Context, consent *models.Consent, rights *models.DataSubjectRights) error {
	if consent == nil || rights == nil {
		return fmt.Errorf("consent and rights records are required")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin consent create tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	grants, purposes, err := encodeConsent(consent)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO consents (id, subject_id, version, consent_date, last_updated, grants, legal_basis,
			purposes, retention_days, withdrawal_method, contact_info)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (subject_id) DO NOTHING
		RETURNING id
	`
	var storedID string
	err = tx.QueryRowContext(ctx, query,
		string(consent.ID),
		consent.SubjectID,
		consent.Version,
		consent.ConsentDate,
		consent.LastUpdated,
		grants,
		string(consent.LegalBasis),
		purposes,
		consent.RetentionDays,
		consent.WithdrawalMethod,
		consent.ContactInfo,
	).Scan(&storedID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert consent: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO subject_rights (subject_id, access, rectification, erasure, restriction,
			portability, objection, consent_withdrawal, complaint, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		rights.SubjectID,
		rights.Access,
		rights.Rectification,
		rights.Erasure,
		rights.Restriction,
		rights.Portability,
		rights.Objection,
		rights.ConsentWithdrawal,
		rights.Complaint,
		rights.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert subject rights: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit consent create: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, consent *models.Consent) error {
	if consent == nil {
		return fmt.Errorf("consent record is required")
	}
	grants, purposes, err := encodeConsent(consent)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE consents
		SET last_updated = $3, grants = $4, legal_basis = $5, purposes = $6,
			retention_days = $7, withdrawal_method = $8, contact_info = $9
		WHERE id = $1 AND subject_id = $2
	`,
		string(consent.ID),
		consent.SubjectID,
		consent.LastUpdated,
		grants,
		string(consent.LegalBasis),
		purposes,
		consent.RetentionDays,
		consent.WithdrawalMethod,
		consent.ContactInfo,
	)
	if err != nil {
		return fmt.Errorf("update consent: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update consent rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

const selectConsent = `
	SELECT id, subject_id, version, consent_date, last_updated, grants, legal_basis,
		purposes, retention_days, withdrawal_method, contact_info
	FROM consents
`

func (s *PostgresStore) FindBySubject(ctx context.Context, subjectID string) (*models.Consent, error) {
	record, err := scanConsent(s.db.QueryRowContext(ctx, selectConsent+` WHERE subject_id = $1`, subjectID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find consent: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) FindRights(ctx context.Context, subjectID string) (*models.DataSubjectRights, error) {
	var r models.DataSubjectRights
	err := s.db.QueryRowContext(ctx, `
		SELECT subject_id, access, rectification, erasure, restriction, portability,
			objection, consent_withdrawal, complaint, created_at
		FROM subject_rights
		WHERE subject_id = $1
	`, subjectID).Scan(
		&r.SubjectID, &r.Access, &r.Rectification, &r.Erasure, &r.Restriction,
		&r.Portability, &r.Objection, &r.ConsentWithdrawal, &r.Complaint, &r.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find subject rights: %w", err)
	}
	return &r, nil
}

// DeleteBySubject removes consent and rights atomically.
func (s *PostgresStore) DeleteBySubject(ctx context.Context, subjectID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin consent delete tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM subject_rights WHERE subject_id = $1`, subjectID); err != nil {
		return fmt.Errorf("delete subject rights: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM consents WHERE subject_id = $1`, subjectID)
	if err != nil {
		return fmt.Errorf("delete consent: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete consent rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit consent delete: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Consent, error) {
	return listConsents(ctx, s.db)
}

func listConsents(ctx context.Context, exec dbExecutor) ([]*models.Consent, error) {
	rows, err := exec.QueryContext(ctx, selectConsent+` ORDER BY subject_id`)
	if err != nil {
		return nil, fmt.Errorf("list consents: %w", err)
	}
	defer rows.Close()

	var records []*models.Consent
	for rows.Next() {
		record, err := scanConsent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan consent: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consents: %w", err)
	}
	return records, nil
}

func encodeConsent(c *models.Consent) (grants, purposes []byte, err error) {
	grants, err = json.Marshal(c.Grants.Clone())
	if err != nil {
		return nil, nil, fmt.Errorf("encode grants: %w", err)
	}
	p := c.Purposes
	if p == nil {
		p = []string{}
	}
	purposes, err = json.Marshal(p)
	if err != nil {
		return nil, nil, fmt.Errorf("encode purposes: %w", err)
	}
	return grants, purposes, nil
}

type consentRow interface {
	Scan(dest ...any) error
}

func scanConsent(row consentRow) (*models.Consent, error) {
	var record models.Consent
	var consentID, legalBasis string
	var grants, purposes []byte
	if err := row.Scan(
		&consentID, &record.SubjectID, &record.Version, &record.ConsentDate, &record.LastUpdated,
		&grants, &legalBasis, &purposes, &record.RetentionDays, &record.WithdrawalMethod, &record.ContactInfo,
	); err != nil {
		return nil, err
	}
	record.ID = id.ConsentID(consentID)
	record.LegalBasis = models.LegalBasis(legalBasis)
	record.Grants = models.Grants{}
	if err := json.Unmarshal(grants, &record.Grants); err != nil {
		return nil, fmt.Errorf("decode grants: %w", err)
	}
	if err := json.Unmarshal(purposes, &record.Purposes); err != nil {
		return nil, fmt.Errorf("decode purposes: %w", err)
	}
	return &record, nil
}

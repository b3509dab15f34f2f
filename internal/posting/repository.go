package posting

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresRepo persists postings in the lca_postings table.
//
// Assumed schema constraints:
// - PRIMARY KEY (id)
// - UNIQUE (case_number)
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const postingColumns = `
id, job_title, case_number, visa_class, soc_code,
employer_name, employer_tax_id,
worksite_street, worksite_city, worksite_state, worksite_postal_code,
employment_start, employment_end,
wage_rate, wage_unit, prevailing_wage, prevailing_wage_unit, prevailing_wage_source,
full_time, total_workers,
contact_name, contact_title, contact_email, contact_phone,
job_description, requirements,
document_path, document_url,
status, created_at, updated_at, created_by, updated_by`

func (r *PostgresRepo) Insert(ctx context.Context, p Posting) error {
	const q = `
INSERT INTO lca_postings (` + postingColumns + `
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,
  $21,$22,$23,$24,$25,$26,$27,$28,$29,$30,$31,$32,$33
)
`
	_, err := r.db.ExecContext(ctx, q,
		p.ID, p.JobTitle, p.CaseNumber, p.VisaClass, p.SOCCode,
		p.EmployerName, p.EmployerTaxID,
		p.WorksiteStreet, p.WorksiteCity, p.WorksiteState, p.WorksitePostalCode,
		p.EmploymentStart, p.EmploymentEnd,
		p.WageRate, p.WageUnit, p.PrevailingWage, p.PrevailingWageUnit, p.PrevailingWageSource,
		p.FullTime, p.TotalWorkers,
		p.ContactName, p.ContactTitle, p.ContactEmail, p.ContactPhone,
		p.JobDescription, p.Requirements,
		p.DocumentPath, p.DocumentURL,
		p.Status, p.CreatedAt, p.UpdatedAt, p.CreatedBy, p.UpdatedBy,
	)
	return mapUniqueViolation(err)
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (Posting, error) {
	const q = `SELECT ` + postingColumns + ` FROM lca_postings WHERE id = $1`
	return scanPosting(r.db.QueryRowContext(ctx, q, id))
}

func (r *PostgresRepo) Update(ctx context.Context, p Posting) error {
	const q = `
UPDATE lca_postings SET
  job_title = $2, case_number = $3, visa_class = $4, soc_code = $5,
  employer_name = $6, employer_tax_id = $7,
  worksite_street = $8, worksite_city = $9, worksite_state = $10, worksite_postal_code = $11,
  employment_start = $12, employment_end = $13,
  wage_rate = $14, wage_unit = $15, prevailing_wage = $16, prevailing_wage_unit = $17, prevailing_wage_source = $18,
  full_time = $19, total_workers = $20,
  contact_name = $21, contact_title = $22, contact_email = $23, contact_phone = $24,
  job_description = $25, requirements = $26,
  document_path = $27, document_url = $28,
  status = $29, updated_at = $30, updated_by = $31
WHERE id = $1
`
	res, err := r.db.ExecContext(ctx, q,
		p.ID,
		p.JobTitle, p.CaseNumber, p.VisaClass, p.SOCCode,
		p.EmployerName, p.EmployerTaxID,
		p.WorksiteStreet, p.WorksiteCity, p.WorksiteState, p.WorksitePostalCode,
		p.EmploymentStart, p.EmploymentEnd,
		p.WageRate, p.WageUnit, p.PrevailingWage, p.PrevailingWageUnit, p.PrevailingWageSource,
		p.FullTime, p.TotalWorkers,
		p.ContactName, p.ContactTitle, p.ContactEmail, p.ContactPhone,
		p.JobDescription, p.Requirements,
		p.DocumentPath, p.DocumentURL,
		p.Status, p.UpdatedAt, p.UpdatedBy,
	)
	if err != nil {
		return mapUniqueViolation(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) (bool, error) {
	const q = `DELETE FROM lca_postings WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresRepo) List(ctx context.Context, f Filter) ([]Posting, error) {
	q := `SELECT ` + postingColumns + ` FROM lca_postings`
	var args []any
	switch {
	case f.Status != "" && f.CaseNumber != "":
		q += ` WHERE status = $1 AND case_number = $2`
		args = append(args, f.Status, f.CaseNumber)
	case f.Status != "":
		q += ` WHERE status = $1`
		args = append(args, f.Status)
	case f.CaseNumber != "":
		q += ` WHERE case_number = $1`
		args = append(args, f.CaseNumber)
	}
	q += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Posting
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosting(row rowScanner) (Posting, error) {
	var p Posting
	err := row.Scan(
		&p.ID, &p.JobTitle, &p.CaseNumber, &p.VisaClass, &p.SOCCode,
		&p.EmployerName, &p.EmployerTaxID,
		&p.WorksiteStreet, &p.WorksiteCity, &p.WorksiteState, &p.WorksitePostalCode,
		&p.EmploymentStart, &p.EmploymentEnd,
		&p.WageRate, &p.WageUnit, &p.PrevailingWage, &p.PrevailingWageUnit, &p.PrevailingWageSource,
		&p.FullTime, &p.TotalWorkers,
		&p.ContactName, &p.ContactTitle, &p.ContactEmail, &p.ContactPhone,
		&p.JobDescription, &p.Requirements,
		&p.DocumentPath, &p.DocumentURL,
		&p.Status, &p.CreatedAt, &p.UpdatedAt, &p.CreatedBy, &p.UpdatedBy,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Posting{}, ErrNotFound
		}
		return Posting{}, err
	}
	return p, nil
}

// mapUniqueViolation translates the Postgres unique_violation code into the
// domain conflict error so callers never see driver internals.
func mapUniqueViolation(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrConflict
	}
	return err
}

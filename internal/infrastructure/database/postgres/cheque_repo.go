package postgres

import (
	"context"
	stderrors "errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/turtacn/ChequeGuard/internal/domain/cheque"
	"github.com/turtacn/ChequeGuard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChequeGuard/pkg/errors"
)

// Querier is the subset of *pgxpool.Pool the repository needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Dates are rendered by the server so that no time zone conversion happens on
// the way out.
const selectCheques = `
	SELECT id, bank_name, check_amount::text,
	       to_char(check_date, 'YYYY-MM-DD'),
	       to_char(dishonor_date, 'YYYY-MM-DD'),
	       to_char(legal_notice_date, 'YYYY-MM-DD'),
	       notice_status,
	       to_char(case_filed_date, 'YYYY-MM-DD'),
	       client_id, case_id, notes, created_at
	FROM cheques`

const selectRevision = `SELECT revision FROM cheque_store_revision WHERE id = 1`

// undefinedTable is the SQLSTATE for a missing relation.
const undefinedTable = "42P01"

// ChequeRepository reads cheques from PostgreSQL. It implements
// cheque.Repository.
type ChequeRepository struct {
	db     Querier
	logger logging.Logger
}

// NewChequeRepository builds a repository over db, usually Connection.Pool().
func NewChequeRepository(db Querier, log logging.Logger) *ChequeRepository {
	return &ChequeRepository{db: db, logger: log}
}

var _ cheque.Repository = (*ChequeRepository)(nil)

// List returns every cheque ordered by id.
func (r *ChequeRepository) List(ctx context.Context) ([]*cheque.Cheque, error) {
	rows, err := r.db.Query(ctx, selectCheques+` ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list cheques")
	}
	defer rows.Close()

	var out []*cheque.Cheque
	for rows.Next() {
		c, err := scanCheque(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate cheques")
	}
	r.logger.Debug("cheques loaded", logging.Int("count", len(out)))
	return out, nil
}

// FindByID returns one cheque.
func (r *ChequeRepository) FindByID(ctx context.Context, id string) (*cheque.Cheque, error) {
	c, err := scanCheque(r.db.QueryRow(ctx, selectCheques+` WHERE id = $1`, id))
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New(errors.ErrCodeChequeNotFound, "cheque not found").
				WithDetail("cheque_id=" + id)
		}
		return nil, err
	}
	return c, nil
}

// Version returns "r<revision>" from the revision counter the cheques
// trigger maintains.
func (r *ChequeRepository) Version(ctx context.Context) (string, error) {
	var rev int64
	err := r.db.QueryRow(ctx, selectRevision).Scan(&rev)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return "r0", nil
		}
		var pgErr *pgconn.PgError
		if stderrors.As(err, &pgErr) && pgErr.Code == undefinedTable {
			return "", errors.Wrap(err, errors.ErrCodeDatabaseError, "schema not migrated")
		}
		return "", errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read store revision")
	}
	return "r" + strconv.FormatInt(rev, 10), nil
}

// scanCheque reads one row into a Record and converts it, so rows are held to
// the same input contract as imported files.
func scanCheque(row pgx.Row) (*cheque.Cheque, error) {
	var (
		rec    cheque.Record
		amount *string
	)
	err := row.Scan(
		&rec.ID, &rec.BankName, &amount,
		&rec.CheckDate, &rec.DishonorDate, &rec.LegalNoticeDate,
		&rec.NoticeStatus, &rec.CaseFiledDate,
		&rec.ClientID, &rec.CaseID, &rec.Notes, &rec.CreatedAt,
	)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan cheque row")
	}
	if amount != nil && strings.TrimSpace(*amount) != "" {
		d, err := decimal.NewFromString(*amount)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeChequeInvalidAmount, "invalid cheque record").
				WithDetail("cheque_id=" + rec.ID + " value=" + *amount)
		}
		rec.CheckAmount = &d
	}
	return rec.ToCheque()
}

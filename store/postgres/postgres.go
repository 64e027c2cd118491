/*
Package postgres provides a PostgreSQL-backed implementation of leave.TxStore.

PURPOSE:
  Multi-node production storage. Same tables as store/sqlite with native
  types: DATE for leave ranges, NUMERIC(7,1) for day quantities, JSONB for
  the policy catalogue and request documents.

CONCURRENCY:
  Every unit of work is a SERIALIZABLE transaction. LockEmployee takes
  pg_advisory_xact_lock on company+employee, so applications of one
  employee queue behind each other while other employees proceed in
  parallel. Serialization failures (40001) and deadlocks (40P01) are
  reported as generic.ErrConcurrentModification and retried by the caller.

USAGE:
  store, err := postgres.New(ctx, os.Getenv("DATABASE_URL"))
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - store/sqlite: Single-node implementation
  - store/records: JSON column encodings
*/
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/records"
)

const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
)

// Store implements leave.TxStore using a pgx connection pool.
type Store struct {
	conn
	pool *pgxpool.Pool
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// New connects, pings and migrates.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{conn: conn{q: pool}, pool: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS leave_policies (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL UNIQUE,
		year_start_month SMALLINT NOT NULL CHECK (year_start_month BETWEEN 1 AND 12),
		week_off JSONB NOT NULL,
		holidays JSONB NOT NULL,
		leave_types JSONB NOT NULL,
		version INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		company_id TEXT NOT NULL,
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		total_days NUMERIC(7,1) NOT NULL,
		reason TEXT NOT NULL,
		is_half_day BOOLEAN NOT NULL DEFAULT FALSE,
		half_day_type TEXT NOT NULL DEFAULT 'none',
		documents JSONB NOT NULL DEFAULT '[]',
		status TEXT NOT NULL,
		approved_by TEXT,
		rejected_by TEXT,
		cancelled_by TEXT,
		approved_at TIMESTAMPTZ,
		rejected_at TIMESTAMPTZ,
		cancelled_at TIMESTAMPTZ,
		rejection_reason TEXT,
		approval_comment TEXT,
		policy_version INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leave_requests_employee_dates
		ON leave_requests(company_id, employee_id, start_date, end_date);
	CREATE INDEX IF NOT EXISTS idx_leave_requests_company_status
		ON leave_requests(company_id, status);

	CREATE TABLE IF NOT EXISTS leave_breakups (
		request_id TEXT NOT NULL REFERENCES leave_requests(id),
		position INTEGER NOT NULL,
		leave_type TEXT NOT NULL,
		short_code TEXT NOT NULL,
		days NUMERIC(7,1) NOT NULL,
		PRIMARY KEY (request_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_leave_breakups_short_code
		ON leave_breakups(short_code);
	`)
	return err
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx runs fn in a SERIALIZABLE transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store leave.Store) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return mapError(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(&conn{q: tx, inTx: true}); err != nil {
		return mapError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return mapError(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

type conn struct {
	q    querier
	inTx bool
}

// LockEmployee takes a transaction-scoped advisory lock.
func (c *conn) LockEmployee(ctx context.Context, companyID, employeeID string) error {
	if !c.inTx {
		return nil
	}
	_, err := c.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, companyID+"/"+employeeID)
	return mapError(err)
}

// =============================================================================
// POLICY STORE
// =============================================================================

const policyColumns = `id, company_id, year_start_month, week_off, holidays, leave_types,
	version, created_at, updated_at`

func (c *conn) FindPolicyByCompany(ctx context.Context, companyID string) (*leave.Policy, error) {
	p, err := scanPolicy(c.q.QueryRow(ctx, `SELECT `+policyColumns+` FROM leave_policies WHERE company_id = $1`, companyID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, leave.PolicyNotFound(companyID)
	}
	return p, mapError(err)
}

func (c *conn) GetPolicy(ctx context.Context, policyID string) (*leave.Policy, error) {
	p, err := scanPolicy(c.q.QueryRow(ctx, `SELECT `+policyColumns+` FROM leave_policies WHERE id = $1`, policyID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, leave.PolicyIDNotFound(policyID)
	}
	return p, mapError(err)
}

func (c *conn) CreatePolicy(ctx context.Context, p *leave.Policy) error {
	cols, err := records.EncodePolicy(p)
	if err != nil {
		return err
	}
	if p.Version == 0 {
		p.Version = 1
	}
	_, err = c.q.Exec(ctx, `
		INSERT INTO leave_policies (`+policyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, p.ID, p.CompanyID, int(p.YearStartMonth), cols.WeekOff, cols.Holidays, cols.LeaveTypes,
		p.Version, p.CreatedAt, p.UpdatedAt)
	if isCode(err, codeUniqueViolation) {
		return &leave.PolicyConflictError{Reason: "company " + p.CompanyID + " already has a leave policy"}
	}
	return mapError(err)
}

func (c *conn) SavePolicy(ctx context.Context, p *leave.Policy, expectedVersion int) error {
	cols, err := records.EncodePolicy(p)
	if err != nil {
		return err
	}
	tag, err := c.q.Exec(ctx, `
		UPDATE leave_policies
		SET year_start_month = $1, week_off = $2, holidays = $3, leave_types = $4,
			version = $5, updated_at = $6
		WHERE id = $7 AND version = $8
	`, int(p.YearStartMonth), cols.WeekOff, cols.Holidays, cols.LeaveTypes,
		expectedVersion+1, p.UpdatedAt, p.ID, expectedVersion)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := c.GetPolicy(ctx, p.ID); err != nil {
			return err
		}
		return generic.ErrConcurrentModification
	}
	p.Version = expectedVersion + 1
	return nil
}

func scanPolicy(row pgx.Row) (*leave.Policy, error) {
	var (
		p                   leave.Policy
		month               int
		weekOff, hol, types []byte
	)
	if err := row.Scan(&p.ID, &p.CompanyID, &month, &weekOff, &hol, &types, &p.Version, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.YearStartMonth = time.Month(month)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	if err := records.DecodePolicy(&p, records.PolicyColumns{WeekOff: weekOff, Holidays: hol, LeaveTypes: types}); err != nil {
		return nil, err
	}
	return &p, nil
}

// =============================================================================
// REQUEST STORE
// =============================================================================

const requestColumns = `id, employee_id, company_id, start_date, end_date, total_days::text, reason,
	is_half_day, half_day_type, documents, status, approved_by, rejected_by, cancelled_by,
	approved_at, rejected_at, cancelled_at, rejection_reason, approval_comment, policy_version,
	created_at, updated_at`

const insertColumns = `id, employee_id, company_id, start_date, end_date, total_days, reason,
	is_half_day, half_day_type, documents, status, approved_by, rejected_by, cancelled_by,
	approved_at, rejected_at, cancelled_at, rejection_reason, approval_comment, policy_version,
	created_at, updated_at`

func (c *conn) CreateRequest(ctx context.Context, r *leave.Request) error {
	docs, err := records.EncodeDocuments(r.Documents)
	if err != nil {
		return err
	}
	_, err = c.q.Exec(ctx, `
		INSERT INTO leave_requests (`+insertColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`, r.ID, r.EmployeeID, r.CompanyID, r.StartDate.Time(), r.EndDate.Time(), r.TotalDays.String(), r.Reason,
		r.IsHalfDay, string(r.HalfDayType), docs, string(r.Status),
		nullString(r.ApprovedBy), nullString(r.RejectedBy), nullString(r.CancelledBy),
		r.ApprovedAt, r.RejectedAt, r.CancelledAt,
		nullString(r.RejectionReason), nullString(r.ApprovalComment), r.PolicyVersion,
		r.CreatedAt, r.UpdatedAt)
	if isCode(err, codeUniqueViolation) {
		return generic.ErrConcurrentModification
	}
	if err != nil {
		return mapError(err)
	}

	for i, entry := range r.LeaveBreakup {
		if _, err := c.q.Exec(ctx, `
			INSERT INTO leave_breakups (request_id, position, leave_type, short_code, days)
			VALUES ($1, $2, $3, $4, $5::numeric)
		`, r.ID, i, entry.LeaveType, entry.ShortCode, entry.Days.String()); err != nil {
			return mapError(err)
		}
	}
	return nil
}

// UpdateRequest writes status and audit columns only.
func (c *conn) UpdateRequest(ctx context.Context, r *leave.Request) error {
	tag, err := c.q.Exec(ctx, `
		UPDATE leave_requests
		SET status = $1, approved_by = $2, rejected_by = $3, cancelled_by = $4,
			approved_at = $5, rejected_at = $6, cancelled_at = $7,
			rejection_reason = $8, approval_comment = $9, updated_at = $10
		WHERE id = $11
	`, string(r.Status), nullString(r.ApprovedBy), nullString(r.RejectedBy), nullString(r.CancelledBy),
		r.ApprovedAt, r.RejectedAt, r.CancelledAt,
		nullString(r.RejectionReason), nullString(r.ApprovalComment), r.UpdatedAt, r.ID)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return leave.RequestNotFound(r.ID)
	}
	return nil
}

func (c *conn) GetRequest(ctx context.Context, id string) (*leave.Request, error) {
	reqs, err := c.queryRequests(ctx, `SELECT `+requestColumns+` FROM leave_requests WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return nil, leave.RequestNotFound(id)
	}
	return reqs[0], nil
}

func (c *conn) FindRequests(ctx context.Context, filter leave.RequestFilter) ([]*leave.Request, error) {
	where, args := requestWhere(filter, 1)
	return c.queryRequests(ctx, `SELECT `+requestColumns+` FROM leave_requests`+where+
		` ORDER BY start_date DESC, created_at DESC, id`, args...)
}

func (c *conn) SumBreakupDays(ctx context.Context, filter leave.BreakupFilter) (decimal.Decimal, error) {
	where, args := requestWhere(leave.RequestFilter{
		EmployeeID:  filter.EmployeeID,
		CompanyID:   filter.CompanyID,
		Statuses:    filter.Statuses,
		StartWithin: &filter.StartWithin,
	}, 2)
	args = append([]any{filter.ShortCode}, args...)

	var total string
	err := c.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(b.days), 0)::text FROM leave_breakups b
		JOIN leave_requests ON leave_requests.id = b.request_id`+where+` AND b.short_code = $1`, args...).Scan(&total)
	if err != nil {
		return decimal.Zero, mapError(err)
	}
	return decimal.NewFromString(total)
}

// requestWhere numbers placeholders from first and always returns a
// clause starting with " WHERE ".
func requestWhere(f leave.RequestFilter, first int) (string, []any) {
	clauses := []string{"TRUE"}
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(first+len(args)-1)
	}
	if f.EmployeeID != "" {
		clauses = append(clauses, "leave_requests.employee_id = "+next(f.EmployeeID))
	}
	if f.CompanyID != "" {
		clauses = append(clauses, "leave_requests.company_id = "+next(f.CompanyID))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			statuses[i] = string(st)
		}
		clauses = append(clauses, "leave_requests.status = ANY("+next(statuses)+")")
	}
	if f.StartWithin != nil {
		clauses = append(clauses, "leave_requests.start_date BETWEEN "+next(f.StartWithin.Start.Time())+" AND "+next(f.StartWithin.End.Time()))
	}
	if f.Overlapping != nil {
		clauses = append(clauses, "leave_requests.start_date <= "+next(f.Overlapping.End.Time())+
			" AND leave_requests.end_date >= "+next(f.Overlapping.Start.Time()))
	}
	if f.ExcludeID != "" {
		clauses = append(clauses, "leave_requests.id <> "+next(f.ExcludeID))
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (c *conn) queryRequests(ctx context.Context, query string, args ...any) ([]*leave.Request, error) {
	rows, err := c.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}

	var (
		result []*leave.Request
		ids    []string
		byID   = make(map[string]*leave.Request)
	)
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		result = append(result, r)
		ids = append(ids, r.ID)
		byID[r.ID] = r
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	if len(result) == 0 {
		return nil, nil
	}

	rows, err = c.q.Query(ctx, `
		SELECT request_id, leave_type, short_code, days::text FROM leave_breakups
		WHERE request_id = ANY($1)
		ORDER BY request_id, position
	`, ids)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	for rows.Next() {
		var requestID, leaveType, shortCode, days string
		if err := rows.Scan(&requestID, &leaveType, &shortCode, &days); err != nil {
			return nil, err
		}
		d, err := decimal.NewFromString(days)
		if err != nil {
			return nil, fmt.Errorf("invalid breakup days %q: %w", days, err)
		}
		r := byID[requestID]
		r.LeaveBreakup = append(r.LeaveBreakup, leave.BreakupEntry{LeaveType: leaveType, ShortCode: shortCode, Days: d})
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

func scanRequest(row pgx.Row) (*leave.Request, error) {
	var (
		r                                   leave.Request
		start, end                          time.Time
		total, halfDay, status              string
		docs                                []byte
		approvedBy, rejectedBy, cancelledBy *string
		rejectionReason, approvalComment    *string
	)
	if err := row.Scan(&r.ID, &r.EmployeeID, &r.CompanyID, &start, &end, &total, &r.Reason,
		&r.IsHalfDay, &halfDay, &docs, &status, &approvedBy, &rejectedBy, &cancelledBy,
		&r.ApprovedAt, &r.RejectedAt, &r.CancelledAt, &rejectionReason, &approvalComment, &r.PolicyVersion,
		&r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}

	var err error
	if r.TotalDays, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("invalid total days %q: %w", total, err)
	}
	if r.Documents, err = records.DecodeDocuments(docs); err != nil {
		return nil, err
	}
	r.StartDate = generic.DateOf(start)
	r.EndDate = generic.DateOf(end)
	r.HalfDayType = leave.HalfDayType(halfDay)
	r.Status = leave.Status(status)
	r.ApprovedBy = deref(approvedBy)
	r.RejectedBy = deref(rejectedBy)
	r.CancelledBy = deref(cancelledBy)
	r.RejectionReason = deref(rejectionReason)
	r.ApprovalComment = deref(approvalComment)
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return &r, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func isCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// mapError reports lost serialization races as a retryable conflict.
func mapError(err error) error {
	if isCode(err, codeSerializationFailure) || isCode(err, codeDeadlockDetected) {
		return fmt.Errorf("%w: %v", generic.ErrConcurrentModification, err)
	}
	return err
}

var _ leave.TxStore = (*Store)(nil)

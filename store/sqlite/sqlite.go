/*
Package sqlite provides a SQLite-backed implementation of leave.TxStore.

PURPOSE:
  Durable single-node storage for policies and leave requests. The same
  contract is implemented for PostgreSQL in store/postgres.

KEY TABLES:
  leave_policies:  One row per company (UNIQUE company_id), catalogue,
                   week off and holidays as JSON, optimistic version
  leave_requests:  One row per application, status and audit columns
  leave_breakups:  One row per breakup entry (request_id, position)

INDEXES:
  - idx_leave_requests_employee_dates: Overlap checks (hot path)
  - idx_leave_requests_company_status: Company listings
  - idx_leave_breakups_short_code:     Used-days aggregation

CONCURRENCY:
  The pool is limited to one connection and transactions are opened with
  BEGIN IMMEDIATE (_txlock=immediate), so units of work are serialized and
  the overlap check and the insert of ApplyLeave see the same state.
  Inside WithTx every statement runs on the *sql.Tx; touching the pool
  from inside fn would wait for the connection fn already holds.

  SQLITE_BUSY is reported as generic.ErrConcurrentModification.

WAL MODE:
  File databases are opened with WAL (Write-Ahead Logging) for better
  crash recovery.

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - leave/store.go: Interface definitions
  - store/records: JSON column encodings
  - store/memory: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/records"
)

// Store implements leave.TxStore using SQLite.
type Store struct {
	conn
	db *sql.DB
	mu sync.Mutex
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: serializes writers and keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)

	store := &Store{conn: conn{q: db}, db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS leave_policies (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL UNIQUE,
		year_start_month INTEGER NOT NULL,
		week_off_json TEXT NOT NULL,
		holidays_json TEXT NOT NULL,
		leave_types_json TEXT NOT NULL,
		version INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		company_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		total_days TEXT NOT NULL,
		reason TEXT NOT NULL,
		is_half_day INTEGER NOT NULL DEFAULT 0,
		half_day_type TEXT NOT NULL DEFAULT 'none',
		documents_json TEXT NOT NULL DEFAULT '[]',
		status TEXT NOT NULL,
		approved_by TEXT,
		rejected_by TEXT,
		cancelled_by TEXT,
		approved_at TEXT,
		rejected_at TEXT,
		cancelled_at TEXT,
		rejection_reason TEXT,
		approval_comment TEXT,
		policy_version INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
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
		days TEXT NOT NULL,
		PRIMARY KEY (request_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_leave_breakups_short_code
		ON leave_breakups(short_code);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONAL STORE (leave.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store leave.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer sqlTx.Rollback()

	if err := fn(&conn{q: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return mapError(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// conn runs every statement on one querier.
type conn struct {
	q querier
}

// LockEmployee is covered by BEGIN IMMEDIATE, which already holds the
// database write lock for the whole transaction.
func (c *conn) LockEmployee(context.Context, string, string) error { return nil }

// =============================================================================
// POLICY STORE
// =============================================================================

const policyColumns = `id, company_id, year_start_month, week_off_json, holidays_json,
	leave_types_json, version, created_at, updated_at`

func (c *conn) FindPolicyByCompany(ctx context.Context, companyID string) (*leave.Policy, error) {
	row := c.q.QueryRowContext(ctx, `SELECT `+policyColumns+` FROM leave_policies WHERE company_id = ?`, companyID)
	p, err := scanPolicy(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, leave.PolicyNotFound(companyID)
	}
	return p, err
}

func (c *conn) GetPolicy(ctx context.Context, policyID string) (*leave.Policy, error) {
	row := c.q.QueryRowContext(ctx, `SELECT `+policyColumns+` FROM leave_policies WHERE id = ?`, policyID)
	p, err := scanPolicy(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, leave.PolicyIDNotFound(policyID)
	}
	return p, err
}

func (c *conn) CreatePolicy(ctx context.Context, p *leave.Policy) error {
	cols, err := records.EncodePolicy(p)
	if err != nil {
		return err
	}
	if p.Version == 0 {
		p.Version = 1
	}
	_, err = c.q.ExecContext(ctx, `
		INSERT INTO leave_policies (`+policyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.CompanyID, int(p.YearStartMonth), string(cols.WeekOff), string(cols.Holidays),
		string(cols.LeaveTypes), p.Version, formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	if isUniqueConstraintError(err) {
		return &leave.PolicyConflictError{Reason: "company " + p.CompanyID + " already has a leave policy"}
	}
	return mapError(err)
}

func (c *conn) SavePolicy(ctx context.Context, p *leave.Policy, expectedVersion int) error {
	cols, err := records.EncodePolicy(p)
	if err != nil {
		return err
	}
	res, err := c.q.ExecContext(ctx, `
		UPDATE leave_policies
		SET year_start_month = ?, week_off_json = ?, holidays_json = ?, leave_types_json = ?,
			version = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`, int(p.YearStartMonth), string(cols.WeekOff), string(cols.Holidays), string(cols.LeaveTypes),
		expectedVersion+1, formatTime(p.UpdatedAt), p.ID, expectedVersion)
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := c.GetPolicy(ctx, p.ID); err != nil {
			return err
		}
		return generic.ErrConcurrentModification
	}
	p.Version = expectedVersion + 1
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPolicy(row rowScanner) (*leave.Policy, error) {
	var (
		p                    leave.Policy
		month                int
		weekOff, hol, types  string
		createdAt, updatedAt string
	)
	if err := row.Scan(&p.ID, &p.CompanyID, &month, &weekOff, &hol, &types, &p.Version, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.YearStartMonth = time.Month(month)
	if err := records.DecodePolicy(&p, records.PolicyColumns{
		WeekOff: []byte(weekOff), Holidays: []byte(hol), LeaveTypes: []byte(types),
	}); err != nil {
		return nil, err
	}
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

// =============================================================================
// REQUEST STORE
// =============================================================================

const requestColumns = `id, employee_id, company_id, start_date, end_date, total_days, reason,
	is_half_day, half_day_type, documents_json, status, approved_by, rejected_by, cancelled_by,
	approved_at, rejected_at, cancelled_at, rejection_reason, approval_comment, policy_version,
	created_at, updated_at`

func (c *conn) CreateRequest(ctx context.Context, r *leave.Request) error {
	docs, err := records.EncodeDocuments(r.Documents)
	if err != nil {
		return err
	}
	_, err = c.q.ExecContext(ctx, `
		INSERT INTO leave_requests (`+requestColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.EmployeeID, r.CompanyID, r.StartDate.String(), r.EndDate.String(), r.TotalDays.String(), r.Reason,
		r.IsHalfDay, string(r.HalfDayType), string(docs), string(r.Status),
		nullString(r.ApprovedBy), nullString(r.RejectedBy), nullString(r.CancelledBy),
		nullTime(r.ApprovedAt), nullTime(r.RejectedAt), nullTime(r.CancelledAt),
		nullString(r.RejectionReason), nullString(r.ApprovalComment), r.PolicyVersion,
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt))
	if isUniqueConstraintError(err) {
		return generic.ErrConcurrentModification
	}
	if err != nil {
		return mapError(err)
	}

	for i, entry := range r.LeaveBreakup {
		if _, err := c.q.ExecContext(ctx, `
			INSERT INTO leave_breakups (request_id, position, leave_type, short_code, days)
			VALUES (?, ?, ?, ?, ?)
		`, r.ID, i, entry.LeaveType, entry.ShortCode, entry.Days.String()); err != nil {
			return mapError(err)
		}
	}
	return nil
}

// UpdateRequest writes status and audit columns only.
func (c *conn) UpdateRequest(ctx context.Context, r *leave.Request) error {
	res, err := c.q.ExecContext(ctx, `
		UPDATE leave_requests
		SET status = ?, approved_by = ?, rejected_by = ?, cancelled_by = ?,
			approved_at = ?, rejected_at = ?, cancelled_at = ?,
			rejection_reason = ?, approval_comment = ?, updated_at = ?
		WHERE id = ?
	`, string(r.Status), nullString(r.ApprovedBy), nullString(r.RejectedBy), nullString(r.CancelledBy),
		nullTime(r.ApprovedAt), nullTime(r.RejectedAt), nullTime(r.CancelledAt),
		nullString(r.RejectionReason), nullString(r.ApprovalComment), formatTime(r.UpdatedAt), r.ID)
	if err != nil {
		return mapError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return leave.RequestNotFound(r.ID)
	}
	return nil
}

func (c *conn) GetRequest(ctx context.Context, id string) (*leave.Request, error) {
	reqs, err := c.queryRequests(ctx, `SELECT `+requestColumns+` FROM leave_requests WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return nil, leave.RequestNotFound(id)
	}
	return reqs[0], nil
}

func (c *conn) FindRequests(ctx context.Context, filter leave.RequestFilter) ([]*leave.Request, error) {
	where, args := requestWhere(filter)
	query := `SELECT ` + requestColumns + ` FROM leave_requests` + where +
		` ORDER BY start_date DESC, created_at DESC, id`
	return c.queryRequests(ctx, query, args...)
}

func (c *conn) SumBreakupDays(ctx context.Context, filter leave.BreakupFilter) (decimal.Decimal, error) {
	where, args := requestWhere(leave.RequestFilter{
		EmployeeID:  filter.EmployeeID,
		CompanyID:   filter.CompanyID,
		Statuses:    filter.Statuses,
		StartWithin: &filter.StartWithin,
	})
	where = strings.Replace(where, " WHERE ", " WHERE b.short_code = ? AND ", 1)
	args = append([]any{filter.ShortCode}, args...)

	// Decimal text columns are summed in Go to keep exact half days.
	rows, err := c.q.QueryContext(ctx, `
		SELECT b.days FROM leave_breakups b
		JOIN leave_requests ON leave_requests.id = b.request_id`+where, args...)
	if err != nil {
		return decimal.Zero, mapError(err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var days string
		if err := rows.Scan(&days); err != nil {
			return decimal.Zero, err
		}
		d, err := decimal.NewFromString(days)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid breakup days %q: %w", days, err)
		}
		total = total.Add(d)
	}
	return total, rows.Err()
}

// requestWhere always returns a clause starting with " WHERE ".
func requestWhere(f leave.RequestFilter) (string, []any) {
	clauses := []string{"1 = 1"}
	var args []any
	if f.EmployeeID != "" {
		clauses = append(clauses, "leave_requests.employee_id = ?")
		args = append(args, f.EmployeeID)
	}
	if f.CompanyID != "" {
		clauses = append(clauses, "leave_requests.company_id = ?")
		args = append(args, f.CompanyID)
	}
	if len(f.Statuses) > 0 {
		marks := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			marks[i] = "?"
			args = append(args, string(st))
		}
		clauses = append(clauses, "leave_requests.status IN ("+strings.Join(marks, ", ")+")")
	}
	if f.StartWithin != nil {
		clauses = append(clauses, "leave_requests.start_date >= ? AND leave_requests.start_date <= ?")
		args = append(args, f.StartWithin.Start.String(), f.StartWithin.End.String())
	}
	if f.Overlapping != nil {
		clauses = append(clauses, "leave_requests.start_date <= ? AND leave_requests.end_date >= ?")
		args = append(args, f.Overlapping.End.String(), f.Overlapping.Start.String())
	}
	if f.ExcludeID != "" {
		clauses = append(clauses, "leave_requests.id <> ?")
		args = append(args, f.ExcludeID)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (c *conn) queryRequests(ctx context.Context, query string, args ...any) ([]*leave.Request, error) {
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}

	var (
		result []*leave.Request
		byID   = make(map[string]*leave.Request)
	)
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		result = append(result, r)
		byID[r.ID] = r
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(result) == 0 {
		return nil, nil
	}
	if err := c.loadBreakups(ctx, byID); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *conn) loadBreakups(ctx context.Context, byID map[string]*leave.Request) error {
	marks := make([]string, 0, len(byID))
	args := make([]any, 0, len(byID))
	for id := range byID {
		marks = append(marks, "?")
		args = append(args, id)
	}
	rows, err := c.q.QueryContext(ctx, `
		SELECT request_id, leave_type, short_code, days FROM leave_breakups
		WHERE request_id IN (`+strings.Join(marks, ", ")+`)
		ORDER BY request_id, position
	`, args...)
	if err != nil {
		return mapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var requestID, leaveType, shortCode, days string
		if err := rows.Scan(&requestID, &leaveType, &shortCode, &days); err != nil {
			return err
		}
		d, err := decimal.NewFromString(days)
		if err != nil {
			return fmt.Errorf("invalid breakup days %q: %w", days, err)
		}
		r := byID[requestID]
		r.LeaveBreakup = append(r.LeaveBreakup, leave.BreakupEntry{LeaveType: leaveType, ShortCode: shortCode, Days: d})
	}
	return rows.Err()
}

func scanRequest(row rowScanner) (*leave.Request, error) {
	var (
		r                                    leave.Request
		start, end, total, halfDay, docs, st string
		approvedBy, rejectedBy, cancelledBy  sql.NullString
		approvedAt, rejectedAt, cancelledAt  sql.NullString
		rejectionReason, approvalComment     sql.NullString
		createdAt, updatedAt                 string
	)
	if err := row.Scan(&r.ID, &r.EmployeeID, &r.CompanyID, &start, &end, &total, &r.Reason,
		&r.IsHalfDay, &halfDay, &docs, &st, &approvedBy, &rejectedBy, &cancelledBy,
		&approvedAt, &rejectedAt, &cancelledAt, &rejectionReason, &approvalComment, &r.PolicyVersion,
		&createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if r.StartDate, err = generic.ParseDate(start); err != nil {
		return nil, err
	}
	if r.EndDate, err = generic.ParseDate(end); err != nil {
		return nil, err
	}
	if r.TotalDays, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("invalid total days %q: %w", total, err)
	}
	if r.Documents, err = records.DecodeDocuments([]byte(docs)); err != nil {
		return nil, err
	}
	r.HalfDayType = leave.HalfDayType(halfDay)
	r.Status = leave.Status(st)
	r.ApprovedBy = approvedBy.String
	r.RejectedBy = rejectedBy.String
	r.CancelledBy = cancelledBy.String
	r.ApprovedAt = parseNullTime(approvedAt)
	r.RejectedAt = parseNullTime(rejectedAt)
	r.CancelledAt = parseNullTime(cancelledAt)
	r.RejectionReason = rejectionReason.String
	r.ApprovalComment = approvalComment.String
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return &r, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func formatTime(t time.Time) string { return t.UTC().Format(records.TimestampLayout) }

func parseTime(s string) time.Time {
	t, _ := time.Parse(records.TimestampLayout, s)
	return t
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) &&
		(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey)
}

// mapError reports lock contention as a retryable conflict.
func mapError(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && (sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked) {
		return fmt.Errorf("%w: %v", generic.ErrConcurrentModification, err)
	}
	return err
}

var _ leave.TxStore = (*Store)(nil)

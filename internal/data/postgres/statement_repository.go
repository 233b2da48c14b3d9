// Package postgres provides PostgreSQL implementations of the domain
// repositories. It handles all database operations while maintaining
// transaction safety and proper error handling for the statement engine.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fincore-statement-engine/internal/domain/shared"
	"github.com/fincore-statement-engine/internal/domain/statement"
	"github.com/fincore-statement-engine/internal/platform/persistence"
)

// statementDocument is the JSONB projection of everything that does not get
// its own column: entries, totals, ratios, analyses, workflow and history.
type statementDocument struct {
	Entries           []statement.Entry              `json:"entries"`
	Totals            statement.Totals               `json:"totals"`
	Ratios            statement.Ratios               `json:"ratios"`
	Comparative       *statement.ComparativeAnalysis `json:"comparative,omitempty"`
	Variance          *statement.VarianceAnalysis    `json:"variance,omitempty"`
	ComplianceChecks  []statement.ComplianceCheck    `json:"compliance_checks,omitempty"`
	ValidationReports []statement.ValidationReport   `json:"validation_reports,omitempty"`
	Workflow          json.RawMessage                `json:"workflow,omitempty"`
	AuditTrail        []statement.AuditEntry         `json:"audit_trail"`
}

// StatementRepository implements the statement.Repository interface for PostgreSQL
type StatementRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewStatementRepository creates a new PostgreSQL statement repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewStatementRepository(logger *slog.Logger, db *persistence.PostgresDB) statement.Repository {
	return &StatementRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing atomic operations
// across multiple repository calls.
func (r *StatementRepository) WithTx(tx pgx.Tx) statement.Repository {
	return &StatementRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Insert stores a new statement
func (r *StatementRepository) Insert(ctx context.Context, st *statement.Statement) error {
	doc, err := marshalDocument(st)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO statements (
			id, organization_id, fiscal_year_id, period_end_date, format,
			classification_method, framework, base_currency, reporting_currency,
			status, document, version, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = r.querier.Exec(ctx, query,
		st.ID,
		st.OrganizationID,
		st.FiscalYearID,
		st.PeriodEndDate,
		string(st.Format),
		string(st.ClassificationMethod),
		string(st.Framework),
		st.BaseCurrency,
		st.ReportingCurrency,
		string(st.Status),
		doc,
		st.Version,
		st.CreatedAt,
		st.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert statement", "id", st.ID.String(), "error", err)
		return fmt.Errorf("failed to insert statement: %w", err)
	}

	return nil
}

// Update persists the full statement using optimistic locking on Version.
// Returns ErrConcurrentModification if the stored version moved on.
func (r *StatementRepository) Update(ctx context.Context, st *statement.Statement) error {
	doc, err := marshalDocument(st)
	if err != nil {
		return err
	}

	query := `
		UPDATE statements
		SET format = $1, classification_method = $2, framework = $3,
		    base_currency = $4, reporting_currency = $5, status = $6,
		    document = $7, version = $8, updated_at = $9
		WHERE id = $10 AND version < $8
	`

	result, err := r.querier.Exec(ctx, query,
		string(st.Format),
		string(st.ClassificationMethod),
		string(st.Framework),
		st.BaseCurrency,
		st.ReportingCurrency,
		string(st.Status),
		doc,
		st.Version,
		st.UpdatedAt,
		st.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update statement", "id", st.ID.String(), "error", err)
		return fmt.Errorf("failed to update statement: %w", err)
	}

	if result.RowsAffected() == 0 {
		return statement.ErrConcurrentModification{StatementID: st.ID}
	}

	return nil
}

// Get retrieves a statement by its ID
func (r *StatementRepository) Get(ctx context.Context, id uuid.UUID) (*statement.Statement, error) {
	query := selectColumns + ` WHERE id = $1`

	st, err := r.scanStatement(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, statement.ErrStatementNotFound{StatementID: id}
		}
		r.logger.Error("Failed to get statement", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get statement: %w", err)
	}

	return st, nil
}

// Query retrieves a filtered, sorted, paginated statement page and the
// total match count.
func (r *StatementRepository) Query(ctx context.Context, q shared.ListStatementsQuery) ([]*statement.Statement, int64, error) {
	where, args := buildFilter(q)

	var total int64
	countQuery := `SELECT COUNT(*) FROM statements` + where
	if err := r.querier.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		r.logger.Error("Failed to count statements", "error", err)
		return nil, 0, fmt.Errorf("failed to count statements: %w", err)
	}

	offset := (q.Page - 1) * q.PerPage
	listQuery := fmt.Sprintf("%s%s ORDER BY %s %s LIMIT $%d OFFSET $%d",
		selectColumns, where, sortColumn(q.SortBy), sortDirection(q.SortDesc), len(args)+1, len(args)+2)
	args = append(args, q.PerPage, offset)

	rows, err := r.querier.Query(ctx, listQuery, args...)
	if err != nil {
		r.logger.Error("Failed to query statements", "error", err)
		return nil, 0, fmt.Errorf("failed to query statements: %w", err)
	}
	defer rows.Close()

	var items []*statement.Statement
	for rows.Next() {
		st, err := r.scanStatement(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan statement row: %w", err)
		}
		items = append(items, st)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate statement rows: %w", err)
	}

	return items, total, nil
}

// Delete removes a statement. Returns ErrStatementNotFound when no row
// matched.
func (r *StatementRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.querier.Exec(ctx, `DELETE FROM statements WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete statement", "id", id.String(), "error", err)
		return fmt.Errorf("failed to delete statement: %w", err)
	}
	if result.RowsAffected() == 0 {
		return statement.ErrStatementNotFound{StatementID: id}
	}
	return nil
}

const selectColumns = `
	SELECT id, organization_id, fiscal_year_id, period_end_date, format,
	       classification_method, framework, base_currency, reporting_currency,
	       status, document, version, created_at, updated_at
	FROM statements`

func (r *StatementRepository) scanStatement(row pgx.Row) (*statement.Statement, error) {
	var st statement.Statement
	var format, method, framework, status string
	var doc []byte

	err := row.Scan(
		&st.ID,
		&st.OrganizationID,
		&st.FiscalYearID,
		&st.PeriodEndDate,
		&format,
		&method,
		&framework,
		&st.BaseCurrency,
		&st.ReportingCurrency,
		&status,
		&doc,
		&st.Version,
		&st.CreatedAt,
		&st.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	st.Format = shared.StatementFormat(format)
	st.ClassificationMethod = shared.ClassificationMethod(method)
	st.Framework = shared.ComplianceFramework(framework)
	st.Status = shared.StatementStatus(status)

	if err := unmarshalDocument(doc, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func buildFilter(q shared.ListStatementsQuery) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	add := func(clause string, value interface{}) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	add("organization_id = $%d", q.OrganizationID)
	if q.FiscalYearID != uuid.Nil {
		add("fiscal_year_id = $%d", q.FiscalYearID)
	}
	if q.Status != "" {
		add("status = $%d", string(q.Status))
	}
	if !q.PeriodFrom.IsZero() {
		add("period_end_date >= $%d", q.PeriodFrom)
	}
	if !q.PeriodTo.IsZero() {
		add("period_end_date <= $%d", q.PeriodTo)
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

// sortColumn whitelists sortable columns so the query never interpolates
// caller input.
func sortColumn(sortBy string) string {
	switch sortBy {
	case "created_at":
		return "created_at"
	case "status":
		return "status"
	default:
		return "period_end_date"
	}
}

func sortDirection(desc bool) string {
	if desc {
		return "DESC"
	}
	return "ASC"
}

func marshalDocument(st *statement.Statement) ([]byte, error) {
	doc := statementDocument{
		Entries:           st.Entries,
		Totals:            st.Totals,
		Ratios:            st.Ratios,
		Comparative:       st.Comparative,
		Variance:          st.Variance,
		ComplianceChecks:  st.ComplianceChecks,
		ValidationReports: st.ValidationReports,
		AuditTrail:        st.AuditTrail,
	}
	if st.Workflow != nil {
		raw, err := json.Marshal(st.Workflow)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal workflow: %w", err)
		}
		doc.Workflow = raw
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal statement document: %w", err)
	}
	return raw, nil
}

func unmarshalDocument(raw []byte, st *statement.Statement) error {
	var doc statementDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to unmarshal statement document: %w", err)
	}
	st.Entries = doc.Entries
	st.Totals = doc.Totals
	st.Ratios = doc.Ratios
	st.Comparative = doc.Comparative
	st.Variance = doc.Variance
	st.ComplianceChecks = doc.ComplianceChecks
	st.ValidationReports = doc.ValidationReports
	st.AuditTrail = doc.AuditTrail
	if len(doc.Workflow) > 0 {
		if err := json.Unmarshal(doc.Workflow, &st.Workflow); err != nil {
			return fmt.Errorf("failed to unmarshal workflow: %w", err)
		}
	}
	return nil
}

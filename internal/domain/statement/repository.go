package statement

import (
	"context"

	"github.com/google/uuid"

	"github.com/fincore-statement-engine/internal/domain/shared"
)

// Repository defines statement persistence operations
type Repository interface {
	Insert(ctx context.Context, st *Statement) error

	// Update persists the full statement using optimistic locking on Version.
	// Returns ErrConcurrentModification if the stored version moved on.
	Update(ctx context.Context, st *Statement) error

	// Get retrieves a statement by id.
	// Returns ErrStatementNotFound if no statement exists.
	Get(ctx context.Context, id uuid.UUID) (*Statement, error)

	// Query retrieves a filtered, sorted, paginated statement page and the
	// total match count.
	Query(ctx context.Context, q shared.ListStatementsQuery) ([]*Statement, int64, error)

	Delete(ctx context.Context, id uuid.UUID) error
}

// AuditArchive stores the append-only audit and validation history outside
// the statement row, mirroring how heavy append-only data is kept apart from
// the relational model.
type AuditArchive interface {
	AppendAudit(ctx context.Context, entry *AuditEntry) error
	AppendValidationReport(ctx context.Context, report *ValidationReport) error
	GetAuditTrail(ctx context.Context, statementID uuid.UUID, limit, offset int) ([]*AuditEntry, error)
	GetValidationReports(ctx context.Context, statementID uuid.UUID, limit, offset int) ([]*ValidationReport, error)
}

// ErrStatementNotFound indicates a missing statement
type ErrStatementNotFound struct {
	StatementID uuid.UUID
}

func (e ErrStatementNotFound) Error() string {
	return "statement not found: " + e.StatementID.String()
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	StatementID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for statement: " + e.StatementID.String()
}

// ErrStatementImmutable indicates an entry mutation on a published statement
type ErrStatementImmutable struct {
	StatementID uuid.UUID
}

func (e ErrStatementImmutable) Error() string {
	return "statement is published and immutable: " + e.StatementID.String()
}

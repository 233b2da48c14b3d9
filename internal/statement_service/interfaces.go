package statement_service

import (
	"context"

	"github.com/google/uuid"

	"github.com/fincore-statement-engine/internal/domain/shared"
	"github.com/fincore-statement-engine/internal/domain/statement"
)

// Service defines the statement orchestration operations
type Service interface {
	// Create assembles a new statement from external account and balance
	// data, validates it and persists it.
	Create(ctx context.Context, req *shared.CreateStatementRequest) (*statement.Statement, error)

	// Get retrieves a statement, cache-first with storage fallback.
	// Returns ErrStatementNotFound if no statement exists.
	Get(ctx context.Context, id uuid.UUID) (*statement.Statement, error)

	// List retrieves a filtered, sorted, paginated page of statements and
	// the total match count. Listings bypass the cache.
	List(ctx context.Context, q shared.ListStatementsQuery) ([]*statement.Statement, int64, error)

	// Update applies entry patches, recomputes totals and ratios,
	// re-validates, and appends one audit trail entry.
	Update(ctx context.Context, req *shared.UpdateStatementRequest) (*statement.Statement, error)

	// Approve and Reject advance the approval workflow with the given
	// decision.
	Approve(ctx context.Context, req *shared.ApprovalRequest) (*statement.Statement, error)
	Reject(ctx context.Context, req *shared.ApprovalRequest) (*statement.Statement, error)

	// Publish freezes the statement and fans out to the distribution list,
	// continuing past individual recipient failures.
	Publish(ctx context.Context, req *shared.PublishRequest) (*statement.Statement, error)

	// Delete removes the statement from storage and drops its cache entries
	Delete(ctx context.Context, id uuid.UUID, deletedBy string) error
}

// Notifier delivers a statement to one recipient. Callers must continue on
// individual delivery failure.
type Notifier interface {
	Deliver(ctx context.Context, recipient string, st *statement.Statement) error
}

// ExportResult describes one rendered statement artifact
type ExportResult struct {
	URL       string `json:"url"`
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
}

// Exporter renders a statement into an export format
type Exporter interface {
	Render(ctx context.Context, st *statement.Statement, format string, options map[string]string) (*ExportResult, error)
}

package shared

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common request validation errors
var (
	ErrMissingOrganization   = errors.New("organization id is required")
	ErrMissingPeriodEnd      = errors.New("period end date is required")
	ErrInvalidClassification = errors.New("unknown classification method")
	ErrInvalidFormat         = errors.New("unknown statement format")
	ErrInvalidCurrency       = errors.New("currency must be a 3-letter code")
)

// CreateStatementRequest carries everything needed to assemble a new statement.
// Zero values fall back to the documented defaults in ApplyDefaults.
type CreateStatementRequest struct {
	OrganizationID       uuid.UUID
	FiscalYearID         uuid.UUID
	PeriodEndDate        time.Time
	Format               StatementFormat      // default CLASSIFIED
	ClassificationMethod ClassificationMethod // default TRADITIONAL
	Framework            ComplianceFramework  // default IFRS
	BaseCurrency         string               // default USD
	ReportingCurrency    string               // optional, empty means same as base
	AutoApprove          bool                 // skip workflow creation, statement starts APPROVED
	ApprovalStages       []StageRequest       // ignored when AutoApprove is set
	RequestedBy          string
	CorrelationID        string
}

// StageRequest describes one approval stage to create for a statement
type StageRequest struct {
	Name         string
	ApproverID   string
	ApproverType string
	Required     bool
}

// ApplyDefaults fills unset optional fields with their documented defaults
func (r *CreateStatementRequest) ApplyDefaults() {
	if r.Format == "" {
		r.Format = FormatClassified
	}
	if r.ClassificationMethod == "" {
		r.ClassificationMethod = ClassificationTraditional
	}
	if r.Framework == "" {
		r.Framework = FrameworkIFRS
	}
	if r.BaseCurrency == "" {
		r.BaseCurrency = "USD"
	}
}

// Validate checks the request after defaults have been applied
func (r *CreateStatementRequest) Validate() error {
	if r.OrganizationID == uuid.Nil {
		return ErrMissingOrganization
	}
	if r.PeriodEndDate.IsZero() {
		return ErrMissingPeriodEnd
	}
	switch r.ClassificationMethod {
	case ClassificationTraditional, ClassificationLiquidity, ClassificationIFRS, ClassificationGAAP, ClassificationCustom:
	default:
		return ErrInvalidClassification
	}
	switch r.Format {
	case FormatClassified, FormatReport, FormatAccount:
	default:
		return ErrInvalidFormat
	}
	if len(r.BaseCurrency) != 3 {
		return ErrInvalidCurrency
	}
	if r.ReportingCurrency != "" && len(r.ReportingCurrency) != 3 {
		return ErrInvalidCurrency
	}
	return nil
}

// UpdateStatementRequest carries a partial statement mutation.
// Nil fields are left untouched; any entry change re-triggers recomputation.
type UpdateStatementRequest struct {
	StatementID   uuid.UUID
	Entries       []EntryPatch
	Format        *StatementFormat
	Framework     *ComplianceFramework
	Reason        string
	UpdatedBy     string
	CorrelationID string
}

// EntryPatch mutates a single entry's classification or amount
type EntryPatch struct {
	EntryID        uuid.UUID
	Amount         *string // decimal string, nil leaves amount unchanged
	Subtype        *AccountSubtype
	Classification *string
}

// ApprovalRequest carries an approve/reject decision against a statement
type ApprovalRequest struct {
	StatementID   uuid.UUID
	ApproverID    string
	Decision      ApprovalDecision
	Comment       string
	CorrelationID string
}

// PublishRequest carries statement publication and its distribution list
type PublishRequest struct {
	StatementID   uuid.UUID
	PublishedBy   string
	Recipients    []string
	CorrelationID string
}

// ListStatementsQuery filters, sorts and paginates statement listings
type ListStatementsQuery struct {
	OrganizationID uuid.UUID
	FiscalYearID   uuid.UUID       // optional, Nil means all fiscal years
	Status         StatementStatus // optional, empty means all statuses
	PeriodFrom     time.Time
	PeriodTo       time.Time
	SortBy         string // period_end_date|created_at|status, default period_end_date
	SortDesc       bool
	Page           int // 1-based, default 1
	PerPage        int // default 20, max 100
}

// ApplyDefaults normalizes pagination and sorting
func (q *ListStatementsQuery) ApplyDefaults() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = 20
	}
	if q.PerPage > 100 {
		q.PerPage = 100
	}
	if q.SortBy == "" {
		q.SortBy = "period_end_date"
	}
}

package shared

// AccountType defines the three balance sheet account categories
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
)

// AccountSubtype refines an account type for current/non-current presentation
type AccountSubtype string

const (
	SubtypeCurrentAsset        AccountSubtype = "CURRENT_ASSET"
	SubtypeNonCurrentAsset     AccountSubtype = "NON_CURRENT_ASSET"
	SubtypeCurrentLiability    AccountSubtype = "CURRENT_LIABILITY"
	SubtypeNonCurrentLiability AccountSubtype = "NON_CURRENT_LIABILITY"
	SubtypeEquity              AccountSubtype = "EQUITY"
)

// SubtypesForType returns the valid subtypes for an account type.
// Used by the classification validation check.
func SubtypesForType(t AccountType) []AccountSubtype {
	switch t {
	case AccountTypeAsset:
		return []AccountSubtype{SubtypeCurrentAsset, SubtypeNonCurrentAsset}
	case AccountTypeLiability:
		return []AccountSubtype{SubtypeCurrentLiability, SubtypeNonCurrentLiability}
	case AccountTypeEquity:
		return []AccountSubtype{SubtypeEquity}
	default:
		return nil
	}
}

// ClassificationMethod defines how accounts are mapped to balance sheet lines
type ClassificationMethod string

const (
	ClassificationTraditional ClassificationMethod = "TRADITIONAL"
	ClassificationLiquidity   ClassificationMethod = "LIQUIDITY_ORDER"
	ClassificationIFRS        ClassificationMethod = "IFRS"
	ClassificationGAAP        ClassificationMethod = "GAAP"
	ClassificationCustom      ClassificationMethod = "CUSTOM"
)

// StatementStatus defines statement lifecycle states
type StatementStatus string

const (
	StatementStatusDraft     StatementStatus = "DRAFT"
	StatementStatusPending   StatementStatus = "PENDING_APPROVAL"
	StatementStatusApproved  StatementStatus = "APPROVED"
	StatementStatusRejected  StatementStatus = "REJECTED"
	StatementStatusPublished StatementStatus = "PUBLISHED"
)

// StatementFormat defines the presentation format of a statement
type StatementFormat string

const (
	FormatClassified StatementFormat = "CLASSIFIED"
	FormatReport     StatementFormat = "REPORT"
	FormatAccount    StatementFormat = "ACCOUNT"
)

// ComplianceFramework identifies the reporting framework a statement targets
type ComplianceFramework string

const (
	FrameworkIFRS  ComplianceFramework = "IFRS"
	FrameworkGAAP  ComplianceFramework = "GAAP"
	FrameworkLocal ComplianceFramework = "LOCAL"
)

// CheckStatus defines validation check outcomes
type CheckStatus string

const (
	CheckStatusPassed  CheckStatus = "PASSED"
	CheckStatusFailed  CheckStatus = "FAILED"
	CheckStatusWarning CheckStatus = "WARNING"
)

// StageStatus defines per-stage approval states
type StageStatus string

const (
	StageStatusPending  StageStatus = "PENDING"
	StageStatusApproved StageStatus = "APPROVED"
	StageStatusRejected StageStatus = "REJECTED"
	StageStatusSkipped  StageStatus = "SKIPPED"
)

// WorkflowStatus defines overall approval workflow states
type WorkflowStatus string

const (
	WorkflowStatusPending   WorkflowStatus = "PENDING"
	WorkflowStatusApproved  WorkflowStatus = "APPROVED"
	WorkflowStatusRejected  WorkflowStatus = "REJECTED"
	WorkflowStatusCancelled WorkflowStatus = "CANCELLED"
)

// ApprovalDecision defines the decisions an approver can make on a stage
type ApprovalDecision string

const (
	DecisionApprove ApprovalDecision = "APPROVE"
	DecisionReject  ApprovalDecision = "REJECT"
	DecisionSkip    ApprovalDecision = "SKIP"
)

// ErrorSeverity classifies recorded operational errors
type ErrorSeverity string

const (
	SeverityLow      ErrorSeverity = "LOW"
	SeverityMedium   ErrorSeverity = "MEDIUM"
	SeverityHigh     ErrorSeverity = "HIGH"
	SeverityCritical ErrorSeverity = "CRITICAL"
)

// ErrorCategory maps a failure to its handling policy
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "VALIDATION_FAILURE" // surfaced, never retried
	CategoryNotFound   ErrorCategory = "NOT_FOUND"          // surfaced
	CategoryTransient  ErrorCategory = "TRANSIENT_IO"       // eligible for retry
	CategoryInvariant  ErrorCategory = "CRITICAL_INVARIANT" // escalated immediately
	CategoryUnknown    ErrorCategory = "UNKNOWN"
)

package statement

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fincore-statement-engine/internal/domain/shared"
	"github.com/fincore-statement-engine/internal/domain/workflow"
)

// BalanceTolerance is the maximum absolute balance difference, in currency
// units, at which a statement is still considered balanced.
var BalanceTolerance = decimal.NewFromFloat(0.01)

// Statement is the balance sheet aggregate. It is created by the statement
// service and mutated only through service operations; every mutation appends
// one audit trail entry.
type Statement struct {
	ID                   uuid.UUID                   `json:"id" bson:"id"`
	OrganizationID       uuid.UUID                   `json:"organization_id" bson:"organization_id"`
	FiscalYearID         uuid.UUID                   `json:"fiscal_year_id" bson:"fiscal_year_id"`
	PeriodEndDate        time.Time                   `json:"period_end_date" bson:"period_end_date"`
	Format               shared.StatementFormat      `json:"format" bson:"format"`
	ClassificationMethod shared.ClassificationMethod `json:"classification_method" bson:"classification_method"`
	Framework            shared.ComplianceFramework  `json:"framework" bson:"framework"`
	BaseCurrency         string                      `json:"base_currency" bson:"base_currency"`
	ReportingCurrency    string                      `json:"reporting_currency,omitempty" bson:"reporting_currency,omitempty"`
	Status               shared.StatementStatus      `json:"status" bson:"status"`

	Entries           []Entry              `json:"entries" bson:"entries"`
	Totals            Totals               `json:"totals" bson:"totals"`
	Ratios            Ratios               `json:"ratios" bson:"ratios"`
	Comparative       *ComparativeAnalysis `json:"comparative,omitempty" bson:"comparative,omitempty"`
	Variance          *VarianceAnalysis    `json:"variance,omitempty" bson:"variance,omitempty"`
	ComplianceChecks  []ComplianceCheck    `json:"compliance_checks,omitempty" bson:"compliance_checks,omitempty"`
	ValidationReports []ValidationReport   `json:"validation_reports,omitempty" bson:"validation_reports,omitempty"`
	Workflow          *workflow.Workflow   `json:"workflow,omitempty" bson:"workflow,omitempty"`
	AuditTrail        []AuditEntry         `json:"audit_trail" bson:"audit_trail"`

	Version   int       `json:"version" bson:"version"` // For optimistic locking
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Entry is one account's contribution to a statement
type Entry struct {
	ID                uuid.UUID                  `json:"id" bson:"id"`
	AccountID         uuid.UUID                  `json:"account_id" bson:"account_id"`
	AccountCode       string                     `json:"account_code" bson:"account_code"`
	AccountName       string                     `json:"account_name" bson:"account_name"`
	AccountType       shared.AccountType         `json:"account_type" bson:"account_type"`
	Subtype           shared.AccountSubtype      `json:"subtype" bson:"subtype"`
	Classification    string                     `json:"classification" bson:"classification"`
	PresentationOrder int                        `json:"presentation_order" bson:"presentation_order"`
	Amount            decimal.Decimal            `json:"amount" bson:"amount"`
	PriorAmounts      map[string]decimal.Decimal `json:"prior_amounts,omitempty" bson:"prior_amounts,omitempty"`
	Currency          string                     `json:"currency" bson:"currency"`
	Reclassifications []Reclassification         `json:"reclassifications,omitempty" bson:"reclassifications,omitempty"`
	AuditTrail        []AuditEntry               `json:"audit_trail,omitempty" bson:"audit_trail,omitempty"`
}

// Reclassification records one historical classification move for an entry
type Reclassification struct {
	FromSubtype shared.AccountSubtype `json:"from_subtype" bson:"from_subtype"`
	ToSubtype   shared.AccountSubtype `json:"to_subtype" bson:"to_subtype"`
	Reason      string                `json:"reason" bson:"reason"`
	MovedBy     string                `json:"moved_by" bson:"moved_by"`
	MovedAt     time.Time             `json:"moved_at" bson:"moved_at"`
}

// Totals holds the derived statement aggregates. Totals are never set
// independently; they are recomputed whenever entries change.
type Totals struct {
	TotalAssets           decimal.Decimal `json:"total_assets" bson:"total_assets"`
	CurrentAssets         decimal.Decimal `json:"current_assets" bson:"current_assets"`
	NonCurrentAssets      decimal.Decimal `json:"non_current_assets" bson:"non_current_assets"`
	TotalLiabilities      decimal.Decimal `json:"total_liabilities" bson:"total_liabilities"`
	CurrentLiabilities    decimal.Decimal `json:"current_liabilities" bson:"current_liabilities"`
	NonCurrentLiabilities decimal.Decimal `json:"non_current_liabilities" bson:"non_current_liabilities"`
	TotalEquity           decimal.Decimal `json:"total_equity" bson:"total_equity"`
	LiabilitiesAndEquity  decimal.Decimal `json:"liabilities_and_equity" bson:"liabilities_and_equity"`
	BalanceDifference     decimal.Decimal `json:"balance_difference" bson:"balance_difference"`
	WorkingCapital        decimal.Decimal `json:"working_capital" bson:"working_capital"`
	NetWorth              decimal.Decimal `json:"net_worth" bson:"net_worth"`
	IsBalanced            bool            `json:"is_balanced" bson:"is_balanced"`
}

// Ratios holds derived solvency and liquidity ratios, rounded to 2 decimal
// places. A ratio whose denominator is zero is reported as 0.
type Ratios struct {
	CurrentRatio        decimal.Decimal `json:"current_ratio" bson:"current_ratio"`
	QuickRatio          decimal.Decimal `json:"quick_ratio" bson:"quick_ratio"`
	DebtToEquity        decimal.Decimal `json:"debt_to_equity" bson:"debt_to_equity"`
	DebtToAssets        decimal.Decimal `json:"debt_to_assets" bson:"debt_to_assets"`
	EquityRatio         decimal.Decimal `json:"equity_ratio" bson:"equity_ratio"`
	WorkingCapitalRatio decimal.Decimal `json:"working_capital_ratio" bson:"working_capital_ratio"`
	CashRatio           decimal.Decimal `json:"cash_ratio" bson:"cash_ratio"`
}

// ComparativeAnalysis compares the statement against a prior period.
// An empty analysis (no historical source wired) is structurally valid.
type ComparativeAnalysis struct {
	PriorPeriodLabel string           `json:"prior_period_label,omitempty" bson:"prior_period_label,omitempty"`
	Lines            []ComparisonLine `json:"lines" bson:"lines"`
	GeneratedAt      time.Time        `json:"generated_at" bson:"generated_at"`
}

// ComparisonLine is one account compared across two periods
type ComparisonLine struct {
	AccountCode   string          `json:"account_code" bson:"account_code"`
	CurrentAmount decimal.Decimal `json:"current_amount" bson:"current_amount"`
	PriorAmount   decimal.Decimal `json:"prior_amount" bson:"prior_amount"`
	Change        decimal.Decimal `json:"change" bson:"change"`
	ChangePercent decimal.Decimal `json:"change_percent" bson:"change_percent"`
}

// VarianceAnalysis reports budget-vs-actual variances.
// An empty analysis is structurally valid, same as ComparativeAnalysis.
type VarianceAnalysis struct {
	Lines       []VarianceLine `json:"lines" bson:"lines"`
	GeneratedAt time.Time      `json:"generated_at" bson:"generated_at"`
}

// VarianceLine is one account's variance against its budgeted amount
type VarianceLine struct {
	AccountCode     string          `json:"account_code" bson:"account_code"`
	ActualAmount    decimal.Decimal `json:"actual_amount" bson:"actual_amount"`
	BudgetedAmount  decimal.Decimal `json:"budgeted_amount" bson:"budgeted_amount"`
	Variance        decimal.Decimal `json:"variance" bson:"variance"`
	VariancePercent decimal.Decimal `json:"variance_percent" bson:"variance_percent"`
}

// ComplianceCheck is one framework rule evaluated against the statement
type ComplianceCheck struct {
	Rule      string                     `json:"rule" bson:"rule"`
	Framework shared.ComplianceFramework `json:"framework" bson:"framework"`
	Status    shared.CheckStatus         `json:"status" bson:"status"`
	Detail    string                     `json:"detail,omitempty" bson:"detail,omitempty"`
	CheckedAt time.Time                  `json:"checked_at" bson:"checked_at"`
}

// ValidationReport is the outcome of one validation engine run
type ValidationReport struct {
	ID               uuid.UUID          `json:"id" bson:"id"`
	StatementID      uuid.UUID          `json:"statement_id" bson:"statement_id"`
	Checks           []Check            `json:"checks" bson:"checks"`
	Errors           []string           `json:"errors,omitempty" bson:"errors,omitempty"`
	Warnings         []string           `json:"warnings,omitempty" bson:"warnings,omitempty"`
	PerformanceScore float64            `json:"performance_score" bson:"performance_score"`
	DataQualityScore float64            `json:"data_quality_score" bson:"data_quality_score"`
	ComplianceScore  float64            `json:"compliance_score" bson:"compliance_score"`
	Status           shared.CheckStatus `json:"status" bson:"status"`
	ValidatedBy      string             `json:"validated_by" bson:"validated_by"`
	ValidatedAt      time.Time          `json:"validated_at" bson:"validated_at"`
}

// Check is one named validation check within a report
type Check struct {
	Name     string             `json:"name" bson:"name"`
	Type     string             `json:"type" bson:"type"`
	Status   shared.CheckStatus `json:"status" bson:"status"`
	Detail   string             `json:"detail,omitempty" bson:"detail,omitempty"`
	Duration time.Duration      `json:"duration" bson:"duration"`
}

// AuditEntry records one mutation of the statement or an entry
type AuditEntry struct {
	ID            uuid.UUID `json:"id" bson:"id"`
	StatementID   uuid.UUID `json:"statement_id" bson:"statement_id"`
	Action        string    `json:"action" bson:"action"`
	PreviousValue string    `json:"previous_value,omitempty" bson:"previous_value,omitempty"`
	NewValue      string    `json:"new_value,omitempty" bson:"new_value,omitempty"`
	Actor         string    `json:"actor" bson:"actor"`
	Reason        string    `json:"reason,omitempty" bson:"reason,omitempty"`
	Timestamp     time.Time `json:"timestamp" bson:"timestamp"`
}

// AppendAudit appends one audit trail entry and bumps the statement version.
// Entries are append-only; callers must hold the statement's mutation lock.
func (s *Statement) AppendAudit(action, previous, next, actor, reason string) {
	s.AuditTrail = append(s.AuditTrail, AuditEntry{
		ID:            uuid.New(),
		StatementID:   s.ID,
		Action:        action,
		PreviousValue: previous,
		NewValue:      next,
		Actor:         actor,
		Reason:        reason,
		Timestamp:     time.Now().UTC(),
	})
	s.Version++
	s.UpdatedAt = time.Now().UTC()
}

// IsMutable reports whether entries may still change. Entries are immutable
// once a statement reaches PUBLISHED.
func (s *Statement) IsMutable() bool {
	return s.Status != shared.StatementStatusPublished
}

// Clone returns a deep copy of the statement. The cache stores and returns
// clones so callers never alias cache-owned memory.
func (s *Statement) Clone() *Statement {
	cp := *s

	cp.Entries = make([]Entry, len(s.Entries))
	for i, e := range s.Entries {
		cp.Entries[i] = e.clone()
	}
	cp.ComplianceChecks = append([]ComplianceCheck(nil), s.ComplianceChecks...)
	cp.AuditTrail = append([]AuditEntry(nil), s.AuditTrail...)

	cp.ValidationReports = make([]ValidationReport, len(s.ValidationReports))
	for i, r := range s.ValidationReports {
		rc := r
		rc.Checks = append([]Check(nil), r.Checks...)
		rc.Errors = append([]string(nil), r.Errors...)
		rc.Warnings = append([]string(nil), r.Warnings...)
		cp.ValidationReports[i] = rc
	}

	if s.Comparative != nil {
		cc := *s.Comparative
		cc.Lines = append([]ComparisonLine(nil), s.Comparative.Lines...)
		cp.Comparative = &cc
	}
	if s.Variance != nil {
		vc := *s.Variance
		vc.Lines = append([]VarianceLine(nil), s.Variance.Lines...)
		cp.Variance = &vc
	}
	if s.Workflow != nil {
		wc := s.Workflow.Clone()
		cp.Workflow = &wc
	}
	return &cp
}

func (e Entry) clone() Entry {
	cp := e
	if e.PriorAmounts != nil {
		cp.PriorAmounts = make(map[string]decimal.Decimal, len(e.PriorAmounts))
		for k, v := range e.PriorAmounts {
			cp.PriorAmounts[k] = v
		}
	}
	cp.Reclassifications = append([]Reclassification(nil), e.Reclassifications...)
	cp.AuditTrail = append([]AuditEntry(nil), e.AuditTrail...)
	return cp
}

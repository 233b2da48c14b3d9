// Package validation runs the fixed pipeline of structural, balance,
// classification and consistency checks against a statement and scores the
// result.
package validation

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fincore-statement-engine/internal/domain/shared"
	"github.com/fincore-statement-engine/internal/domain/statement"
)

// slowRunThreshold is the cumulative check time past which the performance
// score's speed component starts to degrade.
const slowRunThreshold = 10 * time.Second

// Engine validates statements and produces scored reports
type Engine struct {
	logger *slog.Logger
}

// NewEngine creates a validation engine
func NewEngine(logger *slog.Logger) *Engine {
	return &Engine{logger: logger}
}

// Validate runs all checks in fixed order and aggregates one report.
// The overall status is FAILED if any check failed, WARNING if any check
// warned, and PASSED otherwise.
func (e *Engine) Validate(st *statement.Statement, actor string) statement.ValidationReport {
	report := statement.ValidationReport{
		ID:          uuid.New(),
		StatementID: st.ID,
		ValidatedBy: actor,
		ValidatedAt: time.Now().UTC(),
	}

	checks := []func(*statement.Statement) statement.Check{
		e.checkBalance,
		e.checkClassification,
		e.checkCompleteness,
		e.checkConsistency,
	}

	var total time.Duration
	for _, run := range checks {
		started := time.Now()
		check := run(st)
		check.Duration = time.Since(started)
		total += check.Duration

		report.Checks = append(report.Checks, check)
		switch check.Status {
		case shared.CheckStatusFailed:
			report.Errors = append(report.Errors, check.Detail)
		case shared.CheckStatusWarning:
			report.Warnings = append(report.Warnings, check.Detail)
		}
	}

	report.Status = overallStatus(report)
	report.PerformanceScore = performanceScore(report, total)
	report.DataQualityScore = dataQualityScore(len(report.Errors), len(report.Warnings))
	report.ComplianceScore = complianceScore(st.ComplianceChecks)

	e.logger.Info("statement validated",
		"statement_id", st.ID.String(),
		"status", string(report.Status),
		"errors", len(report.Errors),
		"warnings", len(report.Warnings),
	)
	return report
}

// checkBalance fails when the accounting equation is off by more than the
// balance tolerance.
func (e *Engine) checkBalance(st *statement.Statement) statement.Check {
	check := statement.Check{
		Name:   "balance_equation",
		Type:   "balance",
		Status: shared.CheckStatusPassed,
	}
	diff := st.Totals.BalanceDifference.Abs()
	if diff.GreaterThan(statement.BalanceTolerance) {
		check.Status = shared.CheckStatusFailed
		check.Detail = fmt.Sprintf("assets do not equal liabilities plus equity, difference %s %s", diff.String(), st.BaseCurrency)
	}
	return check
}

// checkClassification warns, never fails, when an entry's subtype is not a
// member of the enumeration for its account type.
func (e *Engine) checkClassification(st *statement.Statement) statement.Check {
	check := statement.Check{
		Name:   "entry_classification",
		Type:   "classification",
		Status: shared.CheckStatusPassed,
	}
	var mismatched int
	for _, entry := range st.Entries {
		valid := shared.SubtypesForType(entry.AccountType)
		if !slices.Contains(valid, entry.Subtype) {
			mismatched++
		}
	}
	if mismatched > 0 {
		check.Status = shared.CheckStatusWarning
		check.Detail = fmt.Sprintf("%d entries carry a subtype outside their account type", mismatched)
	}
	return check
}

// checkCompleteness fails when the totals are structurally missing, meaning
// the statement has entries of a type but a zero-initialized total that the
// aggregation step could not have produced. A genuinely zero-valued total on
// a statement without entries of that type passes.
func (e *Engine) checkCompleteness(st *statement.Statement) statement.Check {
	check := statement.Check{
		Name:   "totals_completeness",
		Type:   "completeness",
		Status: shared.CheckStatusPassed,
	}

	var missing []string
	if hasType(st.Entries, shared.AccountTypeAsset) && st.Totals.TotalAssets.IsZero() && !typeSum(st.Entries, shared.AccountTypeAsset).IsZero() {
		missing = append(missing, "total_assets")
	}
	if hasType(st.Entries, shared.AccountTypeLiability) && st.Totals.TotalLiabilities.IsZero() && !typeSum(st.Entries, shared.AccountTypeLiability).IsZero() {
		missing = append(missing, "total_liabilities")
	}
	if hasType(st.Entries, shared.AccountTypeEquity) && st.Totals.TotalEquity.IsZero() && !typeSum(st.Entries, shared.AccountTypeEquity).IsZero() {
		missing = append(missing, "total_equity")
	}
	if len(missing) > 0 {
		check.Status = shared.CheckStatusFailed
		check.Detail = fmt.Sprintf("totals missing for populated sections: %v", missing)
	}
	return check
}

// checkConsistency warns when any entry's currency differs from the
// statement's base currency.
func (e *Engine) checkConsistency(st *statement.Statement) statement.Check {
	check := statement.Check{
		Name:   "currency_consistency",
		Type:   "consistency",
		Status: shared.CheckStatusPassed,
	}
	var foreign int
	for _, entry := range st.Entries {
		if entry.Currency != "" && entry.Currency != st.BaseCurrency {
			foreign++
		}
	}
	if foreign > 0 {
		check.Status = shared.CheckStatusWarning
		check.Detail = fmt.Sprintf("%d entries are denominated in a currency other than %s", foreign, st.BaseCurrency)
	}
	return check
}

func overallStatus(report statement.ValidationReport) shared.CheckStatus {
	if len(report.Errors) > 0 {
		return shared.CheckStatusFailed
	}
	if len(report.Warnings) > 0 {
		return shared.CheckStatusWarning
	}
	return shared.CheckStatusPassed
}

// performanceScore averages a speed component, which penalizes cumulative
// check time beyond slowRunThreshold, with the check pass rate.
func performanceScore(report statement.ValidationReport, total time.Duration) float64 {
	speed := 100.0
	if total > slowRunThreshold {
		speed = 100.0 * float64(slowRunThreshold) / float64(total)
	}

	passed := 0
	for _, c := range report.Checks {
		if c.Status == shared.CheckStatusPassed {
			passed++
		}
	}
	passRate := 100.0
	if len(report.Checks) > 0 {
		passRate = 100.0 * float64(passed) / float64(len(report.Checks))
	}
	return (speed + passRate) / 2
}

// dataQualityScore is 100 - 20 per error - 5 per warning, floored at 0
func dataQualityScore(errorCount, warningCount int) float64 {
	score := 100.0 - 20.0*float64(errorCount) - 5.0*float64(warningCount)
	if score < 0 {
		return 0
	}
	return score
}

// complianceScore is the percentage of passed compliance checks, or 100 when
// none are defined.
func complianceScore(checks []statement.ComplianceCheck) float64 {
	if len(checks) == 0 {
		return 100
	}
	passed := 0
	for _, c := range checks {
		if c.Status == shared.CheckStatusPassed {
			passed++
		}
	}
	return 100.0 * float64(passed) / float64(len(checks))
}

func hasType(entries []statement.Entry, t shared.AccountType) bool {
	for _, e := range entries {
		if e.AccountType == t {
			return true
		}
	}
	return false
}

func typeSum(entries []statement.Entry, t shared.AccountType) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range entries {
		if e.AccountType == t {
			sum = sum.Add(e.Amount)
		}
	}
	return sum
}

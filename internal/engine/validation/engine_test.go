package validation

import (
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fincore-statement-engine/internal/domain/shared"
	"github.com/fincore-statement-engine/internal/domain/statement"
)

func newTestEngine() *Engine {
	return NewEngine(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})))
}

func balancedStatement() *statement.Statement {
	return &statement.Statement{
		ID:           uuid.New(),
		BaseCurrency: "USD",
		Entries: []statement.Entry{
			{AccountName: "Cash", AccountType: shared.AccountTypeAsset, Subtype: shared.SubtypeCurrentAsset, Amount: decimal.NewFromInt(150), Currency: "USD"},
			{AccountName: "Accounts Payable", AccountType: shared.AccountTypeLiability, Subtype: shared.SubtypeCurrentLiability, Amount: decimal.NewFromInt(100), Currency: "USD"},
			{AccountName: "Share Capital", AccountType: shared.AccountTypeEquity, Subtype: shared.SubtypeEquity, Amount: decimal.NewFromInt(50), Currency: "USD"},
		},
		Totals: statement.Totals{
			TotalAssets:          decimal.NewFromInt(150),
			CurrentAssets:        decimal.NewFromInt(150),
			TotalLiabilities:     decimal.NewFromInt(100),
			CurrentLiabilities:   decimal.NewFromInt(100),
			TotalEquity:          decimal.NewFromInt(50),
			LiabilitiesAndEquity: decimal.NewFromInt(150),
			BalanceDifference:    decimal.Zero,
			IsBalanced:           true,
		},
	}
}

func TestValidate(t *testing.T) {
	e := newTestEngine()

	t.Run("CleanStatementPasses", func(t *testing.T) {
		report := e.Validate(balancedStatement(), "validator")

		assert.Equal(t, shared.CheckStatusPassed, report.Status)
		assert.Empty(t, report.Errors)
		assert.Empty(t, report.Warnings)
		require.Len(t, report.Checks, 4)
		assert.Equal(t, "validator", report.ValidatedBy)
		assert.InDelta(t, 100.0, report.DataQualityScore, 0.001)
		assert.InDelta(t, 100.0, report.ComplianceScore, 0.001)
		assert.InDelta(t, 100.0, report.PerformanceScore, 0.001)
	})

	t.Run("UnbalancedStatementFails", func(t *testing.T) {
		st := balancedStatement()
		st.Totals.BalanceDifference = decimal.NewFromInt(25)

		report := e.Validate(st, "validator")

		assert.Equal(t, shared.CheckStatusFailed, report.Status)
		require.Len(t, report.Errors, 1)
		assert.Contains(t, report.Errors[0], "difference 25")
		assert.InDelta(t, 80.0, report.DataQualityScore, 0.001)
	})

	t.Run("ToleranceIsNotABreach", func(t *testing.T) {
		st := balancedStatement()
		st.Totals.BalanceDifference = decimal.NewFromFloat(0.01)

		report := e.Validate(st, "validator")

		assert.Equal(t, shared.CheckStatusPassed, report.Status)
	})

	t.Run("SubtypeMismatchWarns", func(t *testing.T) {
		st := balancedStatement()
		st.Entries[0].Subtype = shared.SubtypeCurrentLiability // asset entry

		report := e.Validate(st, "validator")

		assert.Equal(t, shared.CheckStatusWarning, report.Status)
		require.Len(t, report.Warnings, 1)
		assert.Contains(t, report.Warnings[0], "1 entries")
		assert.InDelta(t, 95.0, report.DataQualityScore, 0.001)
	})

	t.Run("MissingTotalsFail", func(t *testing.T) {
		st := balancedStatement()
		st.Totals.TotalAssets = decimal.Zero

		report := e.Validate(st, "validator")

		assert.Equal(t, shared.CheckStatusFailed, report.Status)
		require.NotEmpty(t, report.Errors)
		assert.Contains(t, report.Errors[len(report.Errors)-1], "total_assets")
	})

	t.Run("ZeroTotalsWithoutEntriesPass", func(t *testing.T) {
		st := &statement.Statement{ID: uuid.New(), BaseCurrency: "USD"}

		report := e.Validate(st, "validator")

		assert.Equal(t, shared.CheckStatusPassed, report.Status)
	})

	t.Run("ForeignCurrencyWarns", func(t *testing.T) {
		st := balancedStatement()
		st.Entries[1].Currency = "EUR"

		report := e.Validate(st, "validator")

		assert.Equal(t, shared.CheckStatusWarning, report.Status)
		require.Len(t, report.Warnings, 1)
		assert.Contains(t, report.Warnings[0], "other than USD")
	})

	t.Run("ComplianceScoreFromChecks", func(t *testing.T) {
		st := balancedStatement()
		st.ComplianceChecks = []statement.ComplianceCheck{
			{Status: shared.CheckStatusPassed},
			{Status: shared.CheckStatusPassed},
			{Status: shared.CheckStatusFailed},
			{Status: shared.CheckStatusPassed},
		}

		report := e.Validate(st, "validator")

		assert.InDelta(t, 75.0, report.ComplianceScore, 0.001)
	})
}

func TestDataQualityScoreFloor(t *testing.T) {
	assert.InDelta(t, 0.0, dataQualityScore(6, 0), 0.001)
	assert.InDelta(t, 55.0, dataQualityScore(2, 1), 0.001)
}

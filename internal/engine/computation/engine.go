// Package computation turns raw accounts and period balances into statement
// entries, totals and derived ratios.
package computation

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fincore-statement-engine/internal/domain/account"
	"github.com/fincore-statement-engine/internal/domain/shared"
	"github.com/fincore-statement-engine/internal/domain/statement"
)

var (
	hundred    = decimal.NewFromInt(100)
	ratioScale = int32(2)
)

// Engine classifies accounts, aggregates totals and derives ratios
type Engine struct {
	logger *slog.Logger
}

// NewEngine creates a computation engine
func NewEngine(logger *slog.Logger) *Engine {
	return &Engine{logger: logger}
}

// Classify maps an account to its balance sheet subtype using the selected
// classification method.
//
// Only the traditional matcher is implemented; LIQUIDITY_ORDER, IFRS, GAAP
// and CUSTOM currently delegate to it. The pass-through is a documented
// limitation of the engine, kept explicit rather than replaced with
// divergent rules.
func (e *Engine) Classify(acc account.Account, method shared.ClassificationMethod) shared.AccountSubtype {
	switch method {
	case shared.ClassificationTraditional:
		return classifyTraditional(acc)
	case shared.ClassificationLiquidity, shared.ClassificationIFRS, shared.ClassificationGAAP, shared.ClassificationCustom:
		return classifyTraditional(acc)
	default:
		return classifyTraditional(acc)
	}
}

// classifyTraditional keys off substring matches on the account name plus
// the account type: current/cash/receivable names are current assets,
// payable names are current liabilities, everything else defaults by type to
// non-current or equity.
func classifyTraditional(acc account.Account) shared.AccountSubtype {
	name := strings.ToLower(acc.Name)

	switch acc.Type {
	case shared.AccountTypeAsset:
		if strings.Contains(name, "current") || strings.Contains(name, "cash") || strings.Contains(name, "receivable") {
			return shared.SubtypeCurrentAsset
		}
		return shared.SubtypeNonCurrentAsset
	case shared.AccountTypeLiability:
		if strings.Contains(name, "current") || strings.Contains(name, "payable") {
			return shared.SubtypeCurrentLiability
		}
		return shared.SubtypeNonCurrentLiability
	default:
		return shared.SubtypeEquity
	}
}

// BuildEntries joins accounts with their balances into statement entries,
// classifying each account and preserving presentation order.
func (e *Engine) BuildEntries(accounts []account.Account, balances []account.Balance, method shared.ClassificationMethod) []statement.Entry {
	byAccount := make(map[uuid.UUID]account.Balance, len(balances))
	for _, b := range balances {
		byAccount[b.AccountID] = b
	}

	entries := make([]statement.Entry, 0, len(accounts))
	for _, acc := range accounts {
		if !acc.Active {
			continue
		}
		subtype := acc.Subtype
		if subtype == "" {
			subtype = e.Classify(acc, method)
		}

		entry := statement.Entry{
			ID:                uuid.New(),
			AccountID:         acc.ID,
			AccountCode:       acc.Code,
			AccountName:       acc.Name,
			AccountType:       acc.Type,
			Subtype:           subtype,
			Classification:    classificationLabel(subtype),
			PresentationOrder: acc.PresentationOrder,
			Currency:          acc.Currency,
		}
		if bal, ok := byAccount[acc.ID]; ok {
			entry.Amount = bal.Amount
			if bal.Currency != "" {
				entry.Currency = bal.Currency
			}
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].PresentationOrder < entries[j].PresentationOrder
	})
	return entries
}

func classificationLabel(subtype shared.AccountSubtype) string {
	switch subtype {
	case shared.SubtypeCurrentAsset:
		return "Current Assets"
	case shared.SubtypeNonCurrentAsset:
		return "Non-Current Assets"
	case shared.SubtypeCurrentLiability:
		return "Current Liabilities"
	case shared.SubtypeNonCurrentLiability:
		return "Non-Current Liabilities"
	default:
		return "Equity"
	}
}

// Aggregate partitions entries by account type, splits assets and
// liabilities into current/non-current, and sums current-period amounts.
func (e *Engine) Aggregate(entries []statement.Entry) statement.Totals {
	var t statement.Totals

	for _, entry := range entries {
		switch entry.AccountType {
		case shared.AccountTypeAsset:
			t.TotalAssets = t.TotalAssets.Add(entry.Amount)
			if isCurrent(entry) {
				t.CurrentAssets = t.CurrentAssets.Add(entry.Amount)
			} else {
				t.NonCurrentAssets = t.NonCurrentAssets.Add(entry.Amount)
			}
		case shared.AccountTypeLiability:
			t.TotalLiabilities = t.TotalLiabilities.Add(entry.Amount)
			if isCurrent(entry) {
				t.CurrentLiabilities = t.CurrentLiabilities.Add(entry.Amount)
			} else {
				t.NonCurrentLiabilities = t.NonCurrentLiabilities.Add(entry.Amount)
			}
		case shared.AccountTypeEquity:
			t.TotalEquity = t.TotalEquity.Add(entry.Amount)
		}
	}

	t.LiabilitiesAndEquity = t.TotalLiabilities.Add(t.TotalEquity)
	t.BalanceDifference = t.TotalAssets.Sub(t.LiabilitiesAndEquity)
	t.WorkingCapital = t.CurrentAssets.Sub(t.CurrentLiabilities)
	t.NetWorth = t.TotalAssets.Sub(t.TotalLiabilities)
	t.IsBalanced = t.BalanceDifference.Abs().LessThanOrEqual(statement.BalanceTolerance)
	return t
}

// isCurrent checks the subtype tag first, then falls back to a "current"
// substring in the classification label.
func isCurrent(entry statement.Entry) bool {
	switch entry.Subtype {
	case shared.SubtypeCurrentAsset, shared.SubtypeCurrentLiability:
		return true
	case shared.SubtypeNonCurrentAsset, shared.SubtypeNonCurrentLiability:
		return false
	}
	label := strings.ToLower(entry.Classification)
	return strings.Contains(label, "current") && !strings.Contains(label, "non-current")
}

// DeriveRatios computes solvency and liquidity ratios from totals. Every
// denominator is guarded: a zero denominator yields a 0 ratio, never an
// error. All ratios are rounded to 2 decimal places.
func (e *Engine) DeriveRatios(totals statement.Totals, entries []statement.Entry) statement.Ratios {
	inventory := decimal.Zero
	cash := decimal.Zero
	for _, entry := range entries {
		name := strings.ToLower(entry.AccountName)
		if entry.AccountType == shared.AccountTypeAsset && (strings.Contains(name, "inventory") || strings.Contains(name, "stock")) {
			inventory = inventory.Add(entry.Amount)
		}
		if entry.AccountType == shared.AccountTypeAsset && strings.Contains(name, "cash") {
			cash = cash.Add(entry.Amount)
		}
	}

	return statement.Ratios{
		CurrentRatio:        safeDiv(totals.CurrentAssets, totals.CurrentLiabilities),
		QuickRatio:          safeDiv(totals.CurrentAssets.Sub(inventory), totals.CurrentLiabilities),
		DebtToEquity:        safeDiv(totals.TotalLiabilities, totals.TotalEquity),
		DebtToAssets:        safeDiv(totals.TotalLiabilities, totals.TotalAssets),
		EquityRatio:         safeDiv(totals.TotalEquity, totals.TotalAssets),
		WorkingCapitalRatio: safeDiv(totals.WorkingCapital, totals.TotalAssets),
		CashRatio:           safeDiv(cash, totals.CurrentLiabilities),
	}
}

func safeDiv(numerator, denominator decimal.Decimal) decimal.Decimal {
	if denominator.IsZero() {
		return decimal.Zero
	}
	return numerator.DivRound(denominator, ratioScale)
}

// Comparative returns a structurally valid comparative analysis. Without a
// historical source wired it contains prior amounts already carried on the
// entries, which may be none; callers must not treat an empty analysis as an
// error.
func (e *Engine) Comparative(entries []statement.Entry, priorLabel string) *statement.ComparativeAnalysis {
	analysis := &statement.ComparativeAnalysis{
		PriorPeriodLabel: priorLabel,
		Lines:            []statement.ComparisonLine{},
		GeneratedAt:      time.Now().UTC(),
	}
	if priorLabel == "" {
		return analysis
	}
	for _, entry := range entries {
		prior, ok := entry.PriorAmounts[priorLabel]
		if !ok {
			continue
		}
		change := entry.Amount.Sub(prior)
		analysis.Lines = append(analysis.Lines, statement.ComparisonLine{
			AccountCode:   entry.AccountCode,
			CurrentAmount: entry.Amount,
			PriorAmount:   prior,
			Change:        change,
			ChangePercent: safeDiv(change.Mul(hundred), prior.Abs()),
		})
	}
	return analysis
}

// Variance returns a structurally valid, empty variance analysis. No budget
// source is wired; callers must not treat the empty analysis as an error.
func (e *Engine) Variance() *statement.VarianceAnalysis {
	return &statement.VarianceAnalysis{
		Lines:       []statement.VarianceLine{},
		GeneratedAt: time.Now().UTC(),
	}
}

package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fincore-statement-engine/internal/domain/account"
	"github.com/fincore-statement-engine/internal/domain/shared"
	"github.com/fincore-statement-engine/internal/platform/persistence"
)

// AccountReader implements the account.DataAccess interface for PostgreSQL
type AccountReader struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewAccountReader creates a new PostgreSQL chart-of-accounts reader
func NewAccountReader(logger *slog.Logger, db *persistence.PostgresDB) account.DataAccess {
	return &AccountReader{
		querier: db.Pool(),
		logger:  logger,
	}
}

// FetchAccounts retrieves the organization's chart of accounts in
// presentation order.
func (r *AccountReader) FetchAccounts(ctx context.Context, orgID uuid.UUID) ([]account.Account, error) {
	query := `
		SELECT id, organization_id, code, name, type, subtype, currency, presentation_order, active
		FROM accounts
		WHERE organization_id = $1
		ORDER BY presentation_order ASC
	`

	rows, err := r.querier.Query(ctx, query, orgID)
	if err != nil {
		r.logger.Error("Failed to fetch accounts", "organization_id", orgID.String(), "error", err)
		return nil, fmt.Errorf("failed to fetch accounts: %w", err)
	}
	defer rows.Close()

	var accounts []account.Account
	for rows.Next() {
		var acc account.Account
		var accType, subtype string
		err := rows.Scan(
			&acc.ID,
			&acc.OrganizationID,
			&acc.Code,
			&acc.Name,
			&accType,
			&subtype,
			&acc.Currency,
			&acc.PresentationOrder,
			&acc.Active,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		acc.Type = shared.AccountType(accType)
		acc.Subtype = shared.AccountSubtype(subtype)
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate account rows: %w", err)
	}

	return accounts, nil
}

// FetchBalances retrieves the latest balance per account at or before the
// reporting date.
func (r *AccountReader) FetchBalances(ctx context.Context, orgID uuid.UUID, asOfDate time.Time) ([]account.Balance, error) {
	query := `
		SELECT DISTINCT ON (b.account_id)
		       b.account_id, b.as_of_date, b.amount, b.currency
		FROM balances b
		JOIN accounts a ON a.id = b.account_id
		WHERE a.organization_id = $1 AND b.as_of_date <= $2
		ORDER BY b.account_id, b.as_of_date DESC
	`

	rows, err := r.querier.Query(ctx, query, orgID, asOfDate)
	if err != nil {
		r.logger.Error("Failed to fetch balances", "organization_id", orgID.String(), "error", err)
		return nil, fmt.Errorf("failed to fetch balances: %w", err)
	}
	defer rows.Close()

	var balances []account.Balance
	for rows.Next() {
		var b account.Balance
		var amount string
		err := rows.Scan(&b.AccountID, &b.AsOfDate, &amount, &b.Currency)
		if err != nil {
			return nil, fmt.Errorf("failed to scan balance row: %w", err)
		}
		b.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("invalid balance amount for account %s: %w", b.AccountID, err)
		}
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balance rows: %w", err)
	}

	return balances, nil
}

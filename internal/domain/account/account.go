package account

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fincore-statement-engine/internal/domain/shared"
)

// Account is one chart-of-accounts definition as provided by the external
// data-access collaborator.
type Account struct {
	ID                uuid.UUID             `json:"id"`
	OrganizationID    uuid.UUID             `json:"organization_id"`
	Code              string                `json:"code"`
	Name              string                `json:"name"`
	Type              shared.AccountType    `json:"type"`
	Subtype           shared.AccountSubtype `json:"subtype,omitempty"`
	Currency          string                `json:"currency"`
	PresentationOrder int                   `json:"presentation_order"`
	Active            bool                  `json:"active"`
}

// Balance is one account's period balance as of a reporting date
type Balance struct {
	AccountID uuid.UUID       `json:"account_id"`
	AsOfDate  time.Time       `json:"as_of_date"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
}

// DataAccess fetches raw chart-of-accounts data and period balances.
// Implementations live behind this contract; the engine never depends on
// their internals.
type DataAccess interface {
	FetchAccounts(ctx context.Context, orgID uuid.UUID) ([]Account, error)
	FetchBalances(ctx context.Context, orgID uuid.UUID, asOfDate time.Time) ([]Balance, error)
}

// ErrNoAccounts indicates an organization without chart-of-accounts data
type ErrNoAccounts struct {
	OrganizationID uuid.UUID
}

func (e ErrNoAccounts) Error() string {
	return "no accounts found for organization: " + e.OrganizationID.String()
}

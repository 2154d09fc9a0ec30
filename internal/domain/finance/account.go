package finance

import (
	"strings"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType classifies a money account
type AccountType string

const (
	AccountTypeBank       AccountType = "bank"
	AccountTypeCash       AccountType = "cash"
	AccountTypeCreditCard AccountType = "credit_card"
)

// IsValid checks if the account type is known
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeBank, AccountTypeCash, AccountTypeCreditCard:
		return true
	}
	return false
}

// Account is a money account that payments are drawn from
type Account struct {
	shared.TenantAggregateRoot
	Name     string
	Type     AccountType
	Currency string
	Balance  decimal.Decimal
}

// NewAccount creates a new account with an opening balance
func NewAccount(tenantID, createdBy uuid.UUID, name string, accountType AccountType, currency string, opening decimal.Decimal) (*Account, error) {
	acc := &Account{
		TenantAggregateRoot: shared.NewTenantAggregateRootWithCreator(tenantID, createdBy),
		Balance:             opening,
	}
	if err := acc.Update(name, accountType, currency); err != nil {
		return nil, err
	}
	return acc, nil
}

// Update changes the descriptive fields. The balance only moves through payments.
func (a *Account) Update(name string, accountType AccountType, currency string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Account name cannot be empty")
	}
	if !accountType.IsValid() {
		return shared.NewDomainError("INVALID_ACCOUNT_TYPE", "Account type is not valid")
	}
	if currency == "" {
		currency = "USD"
	}
	a.Name = name
	a.Type = accountType
	a.Currency = strings.ToUpper(currency)
	a.Touch()
	return nil
}

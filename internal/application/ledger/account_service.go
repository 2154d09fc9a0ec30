package ledger

import (
	"context"

	"github.com/erp/backoffice/internal/application/unitofwork"
	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountService manages money accounts. Balances only move through postings.
type AccountService struct {
	scope unitofwork.TransactionScope
}

// NewAccountService creates a new AccountService
func NewAccountService(scope unitofwork.TransactionScope) *AccountService {
	return &AccountService{scope: scope}
}

// CreateAccountInput holds the fields of a new account
type CreateAccountInput struct {
	TenantID       uuid.UUID
	ActorID        uuid.UUID
	Name           string
	Type           finance.AccountType
	Currency       string
	OpeningBalance decimal.Decimal
}

// UpdateAccountInput holds the editable fields and the version the caller last saw
type UpdateAccountInput struct {
	TenantID uuid.UUID
	ID       uuid.UUID
	Version  *int
	Name     string
	Type     finance.AccountType
	Currency string
}

// CreateAccount creates an account at version 1
func (s *AccountService) CreateAccount(ctx context.Context, in CreateAccountInput) (*finance.Account, error) {
	acc, err := finance.NewAccount(in.TenantID, in.ActorID, in.Name, in.Type, in.Currency, in.OpeningBalance)
	if err != nil {
		return nil, err
	}
	if err := s.scope.Repositories().Accounts().Create(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// GetAccount returns a live account
func (s *AccountService) GetAccount(ctx context.Context, tenantID, id uuid.UUID) (*finance.Account, error) {
	return s.scope.Repositories().Accounts().FindByIDForTenant(ctx, tenantID, id)
}

// UpdateAccount changes the descriptive fields with a version check when Version is set
func (s *AccountService) UpdateAccount(ctx context.Context, in UpdateAccountInput) (*finance.Account, error) {
	repos := s.scope.Repositories()
	acc, err := repos.Accounts().FindByIDForTenant(ctx, in.TenantID, in.ID)
	if err != nil {
		return nil, err
	}
	if err := checkVersion("Account", acc.ID, acc.Version, in.Version); err != nil {
		return nil, err
	}
	if err := acc.Update(in.Name, in.Type, in.Currency); err != nil {
		return nil, err
	}
	if err := repos.Accounts().Save(ctx, acc, shared.ExpectFromPtr(in.Version)); err != nil {
		return nil, err
	}
	return acc, nil
}

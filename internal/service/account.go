package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/dberezin/bank-core/internal/models"
	"github.com/dberezin/bank-core/internal/utils"
)

// CreateAccount opens a new account of the given type for the authenticated
// user. The account number is generated and checked against the registry
// until a free candidate is found; an insert-time collision (two creations
// racing on the same candidate) is retried transparently, never surfaced.
func (s *Service) CreateAccount(ctx context.Context, accountType string) (*models.Account, error) {
	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if !models.ValidAccountType(accountType) {
		return nil, models.ErrInvalidAccountType
	}

	if _, err := s.store.FindAccountByUserAndType(userID, accountType); err == nil {
		return nil, models.ErrDuplicateAccount
	} else if !errors.Is(err, models.ErrAccountNotFound) {
		return nil, err
	}

	for {
		number, err := utils.GenerateAccountNumber(s.config.BankBIN)
		if err != nil {
			return nil, err
		}

		if _, err := s.store.FindAccountByNumber(number); err == nil {
			continue // candidate taken, draw again
		} else if !errors.Is(err, models.ErrAccountNotFound) {
			return nil, err
		}

		account := &models.Account{
			UserID:        userID,
			AccountNumber: number,
			AccountType:   accountType,
			Balance:       decimal.Zero,
			Status:        models.AccountStatusActive,
		}
		err = s.store.CreateAccount(account)
		if errors.Is(err, models.ErrAccountNumberTaken) {
			continue // lost the race to a concurrent creation, draw again
		}
		if err != nil {
			return nil, err
		}

		s.log.Infof("Account created for user %d: %s %s", userID, account.AccountType, account.AccountNumber)
		return account, nil
	}
}

// ListAccounts returns all accounts owned by the authenticated user.
func (s *Service) ListAccounts(ctx context.Context) ([]models.Account, error) {
	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.AccountsByUser(userID)
}

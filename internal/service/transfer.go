package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dberezin/bank-core/internal/models"
	"github.com/dberezin/bank-core/internal/utils"
)

// Transfer moves amount from the caller's account identified by its number
// to the destination account identified by internal id. Preconditions are
// checked in a fixed order with no side effects; the mutation itself runs as
// one atomic unit in the store, which re-validates status and balance under
// row locks.
func (s *Service) Transfer(ctx context.Context, fromAccountNumber string, toAccountID int64, amount decimal.Decimal) error {
	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		return err
	}

	if amount.Sign() <= 0 {
		return models.ErrInvalidAmount
	}

	from, err := s.store.FindAccountByNumberAndUser(fromAccountNumber, userID)
	if err != nil {
		return err
	}
	if from.Status != models.AccountStatusActive {
		return models.ErrAccountNotActive
	}
	if from.Balance.LessThan(amount) {
		return models.ErrInsufficientFunds
	}

	var to *models.Account
	if s.config.SameOwnerTransfersOnly {
		to, err = s.store.FindAccountByIDAndUser(toAccountID, userID)
	} else {
		to, err = s.store.FindAccountByID(toAccountID)
	}
	if err != nil {
		return err
	}
	if to.Status != models.AccountStatusActive {
		return models.ErrAccountNotActive
	}

	ref := uuid.NewString()
	fromDesc := fmt.Sprintf("Transfer %s to account %s", ref, to.AccountNumber)
	toDesc := fmt.Sprintf("Transfer %s from account %s", ref, from.AccountNumber)
	if err := s.store.Transfer(from.ID, to.ID, amount, fromDesc, toDesc); err != nil {
		return err
	}

	s.log.Infof("Transfer %s completed: %s -> account %d, amount %s", ref, from.AccountNumber, to.ID, amount.StringFixed(2))
	s.notify(userID, from.AccountNumber, models.TransactionTypeWithdrawal, amount, from.Balance.Sub(amount))
	return nil
}

// FundAccount credits the caller's account from an external card. The card
// number is checksum-screened up front and only its last four digits are
// retained in the ledger description. The returned balance comes from a
// single exact decimal addition in the store.
func (s *Service) FundAccount(ctx context.Context, accountID int64, amount decimal.Decimal, cardNumber string) (decimal.Decimal, *models.Transaction, error) {
	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		return decimal.Zero, nil, err
	}

	if amount.Sign() <= 0 {
		return decimal.Zero, nil, models.ErrInvalidAmount
	}
	if !utils.ValidateLuhn(cardNumber) {
		return decimal.Zero, nil, models.ErrInvalidCardNumber
	}

	account, err := s.store.FindAccountByIDAndUser(accountID, userID)
	if err != nil {
		return decimal.Zero, nil, err
	}
	if account.Status != models.AccountStatusActive {
		return decimal.Zero, nil, models.ErrAccountNotActive
	}

	description := fmt.Sprintf("Card funding from ****%s", lastFourDigits(cardNumber))
	balance, entry, err := s.store.Deposit(account.ID, amount, description)
	if err != nil {
		return decimal.Zero, nil, err
	}

	s.log.Infof("Account %d funded: amount %s, balance %s", account.ID, amount.StringFixed(2), balance.StringFixed(2))
	s.notify(userID, account.AccountNumber, models.TransactionTypeDeposit, amount, balance)
	return balance, entry, nil
}

// Transactions returns the ledger history of the caller's account, newest
// first with ascending id breaking timestamp ties. Each entry carries the
// account's current type.
func (s *Service) Transactions(ctx context.Context, accountID int64) ([]models.Transaction, error) {
	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	account, err := s.store.FindAccountByIDAndUser(accountID, userID)
	if err != nil {
		return nil, err
	}
	return s.store.TransactionsByAccount(account.ID)
}

// lastFourDigits returns the final four digits of a card number, ignoring
// space and dash separators.
func lastFourDigits(cardNumber string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, cardNumber)
	if len(digits) <= 4 {
		return digits
	}
	return digits[len(digits)-4:]
}

// notify sends a movement email in the background; failures only get logged.
func (s *Service) notify(userID int64, accountNumber, kind string, amount, balance decimal.Decimal) {
	if s.notifier == nil {
		return
	}
	user, err := s.store.FindUserByID(userID)
	if err != nil {
		s.log.Warnf("Skipping notification, user %d lookup failed: %v", userID, err)
		return
	}
	go func() {
		if err := s.notifier.SendMovementNotification(user.Email, user.FirstName, accountNumber, kind, amount, balance); err != nil {
			s.log.Warnf("Failed to send %s notification to %s: %v", kind, user.Email, err)
		}
	}()
}

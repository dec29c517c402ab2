package service

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dberezin/bank-core/internal/models"
	"github.com/dberezin/bank-core/internal/repository"
)

// fakeStore is an in-memory repository.Store. It mirrors the database
// semantics the service relies on: unique constraints, row-level atomicity of
// Transfer and Deposit, and the ledger ordering contract.
type fakeStore struct {
	mu sync.Mutex

	users    map[int64]*models.User
	accounts map[int64]*models.Account
	entries  []*models.Transaction

	nextUserID    int64
	nextAccountID int64
	nextEntryID   int64

	// numberConflicts makes the next N CreateAccount calls fail as if the
	// candidate number lost an insert race.
	numberConflicts int
	createAttempts  int

	clock time.Time
}

var _ repository.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[int64]*models.User),
		accounts: make(map[int64]*models.Account),
		clock:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick returns a strictly increasing timestamp. Callers hold mu.
func (f *fakeStore) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeStore) CreateUser(user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return models.ErrEmailTaken
		}
	}
	f.nextUserID++
	user.ID = f.nextUserID
	user.CreatedAt = f.tick()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	f.users[cp.ID] = &cp
	return nil
}

func (f *fakeStore) FindUserByEmail(email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user not found")
}

func (f *fakeStore) FindUserByID(id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, fmt.Errorf("user not found")
}

func (f *fakeStore) CreateAccount(account *models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createAttempts++
	if f.numberConflicts > 0 {
		f.numberConflicts--
		return models.ErrAccountNumberTaken
	}
	for _, a := range f.accounts {
		if a.AccountNumber == account.AccountNumber {
			return models.ErrAccountNumberTaken
		}
		if a.UserID == account.UserID && a.AccountType == account.AccountType {
			return models.ErrDuplicateAccount
		}
	}
	f.nextAccountID++
	account.ID = f.nextAccountID
	account.CreatedAt = f.tick()
	account.UpdatedAt = account.CreatedAt
	cp := *account
	f.accounts[cp.ID] = &cp
	return nil
}

func (f *fakeStore) findAccount(match func(*models.Account) bool) (*models.Account, error) {
	for _, a := range f.accounts {
		if match(a) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, models.ErrAccountNotFound
}

func (f *fakeStore) FindAccountByNumber(number string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.findAccount(func(a *models.Account) bool { return a.AccountNumber == number })
}

func (f *fakeStore) FindAccountByNumberAndUser(number string, userID int64) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.findAccount(func(a *models.Account) bool { return a.AccountNumber == number && a.UserID == userID })
}

func (f *fakeStore) FindAccountByID(id int64) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.findAccount(func(a *models.Account) bool { return a.ID == id })
}

func (f *fakeStore) FindAccountByIDAndUser(id, userID int64) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.findAccount(func(a *models.Account) bool { return a.ID == id && a.UserID == userID })
}

func (f *fakeStore) FindAccountByUserAndType(userID int64, accountType string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.findAccount(func(a *models.Account) bool { return a.UserID == userID && a.AccountType == accountType })
}

func (f *fakeStore) AccountsByUser(userID int64) ([]models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var accounts []models.Account
	for _, a := range f.accounts {
		if a.UserID == userID {
			accounts = append(accounts, *a)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, nil
}

func (f *fakeStore) Transfer(fromID, toID int64, amount decimal.Decimal, fromDesc, toDesc string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	from, ok := f.accounts[fromID]
	if !ok {
		return models.ErrAccountNotFound
	}
	to, ok := f.accounts[toID]
	if !ok {
		return models.ErrAccountNotFound
	}
	if from.Status != models.AccountStatusActive || to.Status != models.AccountStatusActive {
		return models.ErrAccountNotActive
	}
	if from.Balance.LessThan(amount) {
		return models.ErrInsufficientFunds
	}
	f.appendEntry(fromID, models.TransactionTypeWithdrawal, amount, fromDesc)
	f.appendEntry(toID, models.TransactionTypeDeposit, amount, toDesc)
	from.Balance = from.Balance.Sub(amount)
	to.Balance = to.Balance.Add(amount)
	return nil
}

func (f *fakeStore) Deposit(accountID int64, amount decimal.Decimal, description string) (decimal.Decimal, *models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[accountID]
	if !ok {
		return decimal.Zero, nil, models.ErrAccountNotFound
	}
	if a.Status != models.AccountStatusActive {
		return decimal.Zero, nil, models.ErrAccountNotActive
	}
	entry := f.appendEntry(accountID, models.TransactionTypeDeposit, amount, description)
	a.Balance = a.Balance.Add(amount)
	cp := *entry
	return a.Balance, &cp, nil
}

func (f *fakeStore) TransactionsByAccount(accountID int64) ([]models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Transaction
	for _, e := range f.entries {
		if e.AccountID != accountID {
			continue
		}
		t := *e
		if a, ok := f.accounts[accountID]; ok {
			t.AccountType = a.AccountType
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeStore) ReconcileBalances() ([]repository.BalanceDrift, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var drifts []repository.BalanceDrift
	for _, a := range f.accounts {
		total := decimal.Zero
		for _, e := range f.entries {
			if e.AccountID != a.ID || e.Status != models.TransactionStatusCompleted {
				continue
			}
			if e.Type == models.TransactionTypeDeposit {
				total = total.Add(e.Amount)
			} else {
				total = total.Sub(e.Amount)
			}
		}
		if !a.Balance.Equal(total) {
			drifts = append(drifts, repository.BalanceDrift{
				AccountID:     a.ID,
				AccountNumber: a.AccountNumber,
				Balance:       a.Balance,
				LedgerTotal:   total,
			})
		}
	}
	return drifts, nil
}

// appendEntry records a completed ledger entry. Callers hold mu.
func (f *fakeStore) appendEntry(accountID int64, typ string, amount decimal.Decimal, description string) *models.Transaction {
	f.nextEntryID++
	now := f.tick()
	e := &models.Transaction{
		ID:          f.nextEntryID,
		AccountID:   accountID,
		Type:        typ,
		Amount:      amount,
		Description: description,
		Status:      models.TransactionStatusCompleted,
		CreatedAt:   now,
		ProcessedAt: &now,
	}
	f.entries = append(f.entries, e)
	return e
}

// Test seeding helpers.

func (f *fakeStore) seedUser(email string) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextUserID++
	u := &models.User{ID: f.nextUserID, Email: email, FirstName: "Test", LastName: "User"}
	f.users[u.ID] = u
	return u
}

func (f *fakeStore) seedAccount(userID int64, number, accountType, status, balance string) *models.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextAccountID++
	a := &models.Account{
		ID:            f.nextAccountID,
		UserID:        userID,
		AccountNumber: number,
		AccountType:   accountType,
		Balance:       decimal.RequireFromString(balance),
		Status:        status,
		CreatedAt:     f.tick(),
		UpdatedAt:     f.clock,
	}
	f.accounts[a.ID] = a
	return a
}

// addEntry inserts a completed ledger entry with an explicit timestamp.
func (f *fakeStore) addEntry(accountID int64, typ, amount string, createdAt time.Time) *models.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextEntryID++
	e := &models.Transaction{
		ID:          f.nextEntryID,
		AccountID:   accountID,
		Type:        typ,
		Amount:      decimal.RequireFromString(amount),
		Status:      models.TransactionStatusCompleted,
		CreatedAt:   createdAt,
		ProcessedAt: &createdAt,
	}
	f.entries = append(f.entries, e)
	return e
}

func (f *fakeStore) balanceOf(id int64) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accounts[id].Balance
}

func (f *fakeStore) entryCount(accountID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.entries {
		if e.AccountID == accountID {
			n++
		}
	}
	return n
}

package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/dberezin/bank-core/internal/models"
)

// Store is the persistence contract consumed by the service layer. The
// production implementation is Repository; tests substitute an in-memory
// fake.
type Store interface {
	CreateUser(user *models.User) error
	FindUserByEmail(email string) (*models.User, error)
	FindUserByID(id int64) (*models.User, error)

	CreateAccount(account *models.Account) error
	FindAccountByNumber(number string) (*models.Account, error)
	FindAccountByNumberAndUser(number string, userID int64) (*models.Account, error)
	FindAccountByID(id int64) (*models.Account, error)
	FindAccountByIDAndUser(id, userID int64) (*models.Account, error)
	FindAccountByUserAndType(userID int64, accountType string) (*models.Account, error)
	AccountsByUser(userID int64) ([]models.Account, error)

	Transfer(fromID, toID int64, amount decimal.Decimal, fromDesc, toDesc string) error
	Deposit(accountID int64, amount decimal.Decimal, description string) (decimal.Decimal, *models.Transaction, error)
	TransactionsByAccount(accountID int64) ([]models.Transaction, error)

	ReconcileBalances() ([]BalanceDrift, error)
}

// BalanceDrift reports an account whose stored balance disagrees with the
// net sum of its completed ledger entries.
type BalanceDrift struct {
	AccountID     int64
	AccountNumber string
	Balance       decimal.Decimal
	LedgerTotal   decimal.Decimal
}

// Repository provides database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const uniqueViolation = "23505"

// CreateUser creates a new user in the database
func (r *Repository) CreateUser(user *models.User) error {
	query := `
		INSERT INTO bank.users (email, password_hash, first_name, last_name, phone_number,
			date_of_birth, ssn, address, city, state, zip_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(query, user.Email, user.PasswordHash, user.FirstName, user.LastName,
		user.PhoneNumber, user.DateOfBirth, user.SSN, user.Address, user.City, user.State, user.ZipCode).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
		return models.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

const userColumns = `id, email, password_hash, first_name, last_name, phone_number,
	date_of_birth, ssn, address, city, state, zip_code, created_at, updated_at`

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName,
		&user.PhoneNumber, &user.DateOfBirth, &user.SSN, &user.Address, &user.City, &user.State,
		&user.ZipCode, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// FindUserByEmail retrieves a user by email
func (r *Repository) FindUserByEmail(email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM bank.users WHERE email = $1`
	return scanUser(r.db.QueryRow(query, email))
}

// FindUserByID retrieves a user by id
func (r *Repository) FindUserByID(id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM bank.users WHERE id = $1`
	return scanUser(r.db.QueryRow(query, id))
}

// CreateAccount inserts a new account. The account_number unique constraint
// arbitrates generator collisions: a violation on it comes back as
// models.ErrAccountNumberTaken so the caller can retry with a fresh
// candidate, while a violation on the (user_id, account_type) constraint is
// a caller-visible conflict.
func (r *Repository) CreateAccount(account *models.Account) error {
	query := `
		INSERT INTO bank.accounts (user_id, account_number, account_type, balance, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(query, account.UserID, account.AccountNumber, account.AccountType,
		account.Balance, account.Status).
		Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
		if strings.Contains(pqErr.Constraint, "account_number") {
			return models.ErrAccountNumberTaken
		}
		return models.ErrDuplicateAccount
	}
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

const accountColumns = `id, user_id, account_number, account_type, balance, status, created_at, updated_at`

func scanAccount(row *sql.Row) (*models.Account, error) {
	account := &models.Account{}
	err := row.Scan(&account.ID, &account.UserID, &account.AccountNumber, &account.AccountType,
		&account.Balance, &account.Status, &account.CreatedAt, &account.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return account, nil
}

// FindAccountByNumber retrieves an account by its external number
func (r *Repository) FindAccountByNumber(number string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM bank.accounts WHERE account_number = $1`
	return scanAccount(r.db.QueryRow(query, number))
}

// FindAccountByNumberAndUser retrieves an account by number, scoped to its owner
func (r *Repository) FindAccountByNumberAndUser(number string, userID int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM bank.accounts WHERE account_number = $1 AND user_id = $2`
	return scanAccount(r.db.QueryRow(query, number, userID))
}

// FindAccountByID retrieves an account by internal id
func (r *Repository) FindAccountByID(id int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM bank.accounts WHERE id = $1`
	return scanAccount(r.db.QueryRow(query, id))
}

// FindAccountByIDAndUser retrieves an account by internal id, scoped to its owner
func (r *Repository) FindAccountByIDAndUser(id, userID int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM bank.accounts WHERE id = $1 AND user_id = $2`
	return scanAccount(r.db.QueryRow(query, id, userID))
}

// FindAccountByUserAndType retrieves the user's account of the given type
func (r *Repository) FindAccountByUserAndType(userID int64, accountType string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM bank.accounts WHERE user_id = $1 AND account_type = $2`
	return scanAccount(r.db.QueryRow(query, userID, accountType))
}

// AccountsByUser lists all accounts owned by the user
func (r *Repository) AccountsByUser(userID int64) ([]models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM bank.accounts WHERE user_id = $1 ORDER BY id`
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.UserID, &a.AccountNumber, &a.AccountType,
			&a.Balance, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// Transfer moves amount between two accounts as one transaction: both rows
// are locked, status and balance are re-validated under the lock, two ledger
// entries are written and both balances updated. Any failure rolls the whole
// unit back.
func (r *Repository) Transfer(fromID, toID int64, amount decimal.Decimal, fromDesc, toDesc string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transfer: %w", err)
	}
	defer tx.Rollback()

	// Lock rows in ascending id order so two concurrent transfers on the
	// same pair cannot deadlock.
	ids := []int64{fromID, toID}
	if toID < fromID {
		ids[0], ids[1] = toID, fromID
	}
	locked := make(map[int64]*models.Account, 2)
	for _, id := range ids {
		if _, ok := locked[id]; ok {
			continue // source == destination
		}
		a := &models.Account{ID: id}
		err := tx.QueryRow(`SELECT status, balance FROM bank.accounts WHERE id = $1 FOR UPDATE`, id).
			Scan(&a.Status, &a.Balance)
		if err == sql.ErrNoRows {
			return models.ErrAccountNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock account %d: %w", id, err)
		}
		locked[id] = a
	}

	for _, a := range locked {
		if a.Status != models.AccountStatusActive {
			return models.ErrAccountNotActive
		}
	}
	if locked[fromID].Balance.LessThan(amount) {
		return models.ErrInsufficientFunds
	}

	insertEntry := `
		INSERT INTO bank.transactions (account_id, type, amount, description, status, created_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`
	if _, err := tx.Exec(insertEntry, fromID, models.TransactionTypeWithdrawal, amount, fromDesc,
		models.TransactionStatusCompleted); err != nil {
		return fmt.Errorf("failed to record withdrawal: %w", err)
	}
	if _, err := tx.Exec(insertEntry, toID, models.TransactionTypeDeposit, amount, toDesc,
		models.TransactionStatusCompleted); err != nil {
		return fmt.Errorf("failed to record deposit: %w", err)
	}

	updateBalance := `UPDATE bank.accounts SET balance = balance + $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	if _, err := tx.Exec(updateBalance, amount.Neg(), fromID); err != nil {
		return fmt.Errorf("failed to debit account %d: %w", fromID, err)
	}
	if _, err := tx.Exec(updateBalance, amount, toID); err != nil {
		return fmt.Errorf("failed to credit account %d: %w", toID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transfer: %w", err)
	}
	return nil
}

// Deposit credits an account with a single exact addition and records the
// matching ledger entry in the same transaction. The returned balance is the
// post-update value from the database, not a recomputation.
func (r *Repository) Deposit(accountID int64, amount decimal.Decimal, description string) (decimal.Decimal, *models.Transaction, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return decimal.Zero, nil, fmt.Errorf("failed to begin deposit: %w", err)
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRow(`SELECT status FROM bank.accounts WHERE id = $1 FOR UPDATE`, accountID).Scan(&status)
	if err == sql.ErrNoRows {
		return decimal.Zero, nil, models.ErrAccountNotFound
	}
	if err != nil {
		return decimal.Zero, nil, fmt.Errorf("failed to lock account %d: %w", accountID, err)
	}
	if status != models.AccountStatusActive {
		return decimal.Zero, nil, models.ErrAccountNotActive
	}

	entry := &models.Transaction{
		AccountID:   accountID,
		Type:        models.TransactionTypeDeposit,
		Amount:      amount,
		Description: description,
		Status:      models.TransactionStatusCompleted,
	}
	err = tx.QueryRow(`
		INSERT INTO bank.transactions (account_id, type, amount, description, status, created_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, processed_at`,
		entry.AccountID, entry.Type, entry.Amount, entry.Description, entry.Status).
		Scan(&entry.ID, &entry.CreatedAt, &entry.ProcessedAt)
	if err != nil {
		return decimal.Zero, nil, fmt.Errorf("failed to record deposit: %w", err)
	}

	var balance decimal.Decimal
	err = tx.QueryRow(`
		UPDATE bank.accounts SET balance = balance + $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
		RETURNING balance`, amount, accountID).Scan(&balance)
	if err != nil {
		return decimal.Zero, nil, fmt.Errorf("failed to credit account %d: %w", accountID, err)
	}

	if err := tx.Commit(); err != nil {
		return decimal.Zero, nil, fmt.Errorf("failed to commit deposit: %w", err)
	}
	return balance, entry, nil
}

// TransactionsByAccount returns the account's ledger entries, newest first
// with ascending id as the tie-break, each annotated with the owning
// account's current type.
func (r *Repository) TransactionsByAccount(accountID int64) ([]models.Transaction, error) {
	query := `
		SELECT t.id, t.account_id, t.type, t.amount, t.description, t.status,
			t.created_at, t.processed_at, a.account_type
		FROM bank.transactions t
		JOIN bank.accounts a ON a.id = t.account_id
		WHERE t.account_id = $1
		ORDER BY t.created_at DESC, t.id ASC`
	rows, err := r.db.Query(query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var entries []models.Transaction
	for rows.Next() {
		var t models.Transaction
		var description sql.NullString
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Type, &t.Amount, &description, &t.Status,
			&t.CreatedAt, &t.ProcessedAt, &t.AccountType); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		t.Description = description.String
		entries = append(entries, t)
	}
	return entries, rows.Err()
}

// ReconcileBalances returns every account whose balance differs from the net
// sum of its completed ledger entries.
func (r *Repository) ReconcileBalances() ([]BalanceDrift, error) {
	query := `
		SELECT a.id, a.account_number, a.balance,
			COALESCE(SUM(CASE WHEN t.type = 'deposit' THEN t.amount ELSE -t.amount END), 0) AS ledger_total
		FROM bank.accounts a
		LEFT JOIN bank.transactions t ON t.account_id = a.id AND t.status = 'completed'
		GROUP BY a.id, a.account_number, a.balance
		HAVING a.balance <> COALESCE(SUM(CASE WHEN t.type = 'deposit' THEN t.amount ELSE -t.amount END), 0)`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile balances: %w", err)
	}
	defer rows.Close()

	var drifts []BalanceDrift
	for rows.Next() {
		var d BalanceDrift
		if err := rows.Scan(&d.AccountID, &d.AccountNumber, &d.Balance, &d.LedgerTotal); err != nil {
			return nil, fmt.Errorf("failed to scan drift row: %w", err)
		}
		drifts = append(drifts, d)
	}
	return drifts, rows.Err()
}

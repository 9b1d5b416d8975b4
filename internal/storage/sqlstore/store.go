package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	interfaces "github.com/sheikh-saqib/personal-banking-ledger/internal/interfaces"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/ledgererror"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/models"
)

const accountColumns = `id, user_id, name, type, balance, created_at, updated_at`

const transactionColumns = `seq, id, user_id, initiated_by, account_id, related_account_id,
	amount, type, description, category, category_confidence, created_at`

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db      *sql.DB
	dialect Dialect
}

func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) CreateAccount(ctx context.Context, account models.Account) error {
	if account.ID == "" || account.UserID == "" {
		return ledgererror.InvalidOperation("account id and owner are required")
	}
	if account.Balance.IsNegative() {
		return ledgererror.InvalidAmount("initial balance cannot be negative")
	}
	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	if account.UpdatedAt.IsZero() {
		account.UpdatedAt = account.CreatedAt
	}

	const existsQuery = `SELECT
		COALESCE(SUM(CASE WHEN id = ? THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN user_id = ? AND name = ? THEN 1 ELSE 0 END), 0)
	FROM accounts WHERE id = ? OR (user_id = ? AND name = ?)`

	var sameID, sameName int
	err := s.db.QueryRowContext(ctx, s.dialect.Rebind(existsQuery),
		account.ID, account.UserID, account.Name,
		account.ID, account.UserID, account.Name,
	).Scan(&sameID, &sameName)
	if err != nil {
		return ledgererror.Internal(err, "check account %s", account.ID)
	}
	if sameID > 0 {
		return ledgererror.InvalidOperation("account %s already exists", account.ID)
	}
	if sameName > 0 {
		return ledgererror.InvalidOperation("user %s already has an account named %q", account.UserID, account.Name)
	}

	const query = `INSERT INTO accounts (id, user_id, name, type, balance, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, s.dialect.Rebind(query),
		account.ID, account.UserID, account.Name, account.Type,
		models.NormalizeAmount(account.Balance).StringFixed(models.AmountScale),
		account.CreatedAt.UTC(), account.UpdatedAt.UTC())
	return ledgererror.Internal(err, "create account %s", account.ID)
}

func (s *Store) GetAccount(ctx context.Context, accountID string) (models.Account, error) {
	return getAccount(ctx, s.db, s.dialect, accountID, "")
}

func (s *Store) GetTransaction(ctx context.Context, transactionID string) (models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

	t, err := scanTransaction(s.db.QueryRowContext(ctx, s.dialect.Rebind(query), transactionID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Transaction{}, ledgererror.NotFound("transaction %s not found", transactionID)
	}
	if err != nil {
		return models.Transaction{}, ledgererror.Internal(err, "load transaction %s", transactionID)
	}
	return t, nil
}

// QueryTransactions narrows by user and account in SQL and applies the
// remaining predicates in Go.
func (s *Store) QueryTransactions(ctx context.Context, userID string, filter models.Filter) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = ?`
	args := []any{userID}
	if filter.AccountID != "" {
		query += ` AND account_id = ?`
		args = append(args, filter.AccountID)
	}
	query += ` ORDER BY seq DESC`

	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return nil, ledgererror.Internal(err, "query transactions")
	}
	defer rows.Close()

	result := []models.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, ledgererror.Internal(err, "scan transaction")
		}
		if filter.Matches(t) {
			result = append(result, t)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, ledgererror.Internal(err, "iterate transactions")
	}
	return result, nil
}

func (s *Store) UpdateCategory(ctx context.Context, transactionID, category string, confidence float64) error {
	const query = `UPDATE transactions SET category = ?, category_confidence = ? WHERE id = ?`

	res, err := s.db.ExecContext(ctx, s.dialect.Rebind(query), category, confidence, transactionID)
	if err != nil {
		return ledgererror.Internal(err, "update category of %s", transactionID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return ledgererror.Internal(err, "update category of %s", transactionID)
	}
	if n == 0 {
		return ledgererror.NotFound("transaction %s not found", transactionID)
	}
	return nil
}

// WithinTx runs fn inside a database transaction, committing on success and
// rolling back on error or panic.
func (s *Store) WithinTx(ctx context.Context, fn func(tx interfaces.LedgerTx) error) (err error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ledgererror.Internal(err, "begin transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = dbTx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = dbTx.Rollback()
		}
	}()

	if err = fn(&sqlTx{tx: dbTx, dialect: s.dialect}); err != nil {
		return err
	}
	if err = dbTx.Commit(); err != nil {
		return ledgererror.Internal(err, "commit transaction")
	}
	return nil
}

type sqlTx struct {
	tx      *sql.Tx
	dialect Dialect
}

func (t *sqlTx) GetAccountForUpdate(ctx context.Context, accountID string) (models.Account, error) {
	return getAccount(ctx, t.tx, t.dialect, accountID, t.dialect.LockClause)
}

func (t *sqlTx) SaveAccount(ctx context.Context, account models.Account) error {
	if account.Balance.IsNegative() {
		return ledgererror.InsufficientFunds("balance of account %s cannot go below zero", account.ID)
	}
	const query = `UPDATE accounts SET balance = ?, updated_at = ? WHERE id = ?`

	res, err := t.tx.ExecContext(ctx, t.dialect.Rebind(query),
		models.NormalizeAmount(account.Balance).StringFixed(models.AmountScale),
		account.UpdatedAt.UTC(), account.ID)
	if err != nil {
		return ledgererror.Internal(err, "save account %s", account.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return ledgererror.Internal(err, "save account %s", account.ID)
	}
	if n == 0 {
		return ledgererror.NotFound("account %s not found", account.ID)
	}
	return nil
}

func (t *sqlTx) AppendTransaction(ctx context.Context, tx *models.Transaction) error {
	if tx.ID == "" {
		return ledgererror.InvalidOperation("transaction id is required")
	}
	const query = `INSERT INTO transactions (id, user_id, initiated_by, account_id, related_account_id,
		amount, type, description, category, category_confidence, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING seq`

	var related sql.NullString
	if tx.RelatedAccountID != "" {
		related = sql.NullString{String: tx.RelatedAccountID, Valid: true}
	}
	var category sql.NullString
	if tx.Category != nil {
		category = sql.NullString{String: *tx.Category, Valid: true}
	}
	var confidence sql.NullFloat64
	if tx.Confidence != nil {
		confidence = sql.NullFloat64{Float64: *tx.Confidence, Valid: true}
	}

	err := t.tx.QueryRowContext(ctx, t.dialect.Rebind(query),
		tx.ID, tx.UserID, tx.InitiatedBy, tx.AccountID, related,
		models.NormalizeAmount(tx.Amount).StringFixed(models.AmountScale),
		string(tx.Type), tx.Description, category, confidence, tx.CreatedAt.UTC(),
	).Scan(&tx.Seq)
	return ledgererror.Internal(err, "append transaction %s", tx.ID)
}

func getAccount(ctx context.Context, q queryer, d Dialect, accountID, lockClause string) (models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?` + lockClause

	var a models.Account
	err := q.QueryRowContext(ctx, d.Rebind(query), accountID).Scan(
		&a.ID, &a.UserID, &a.Name, &a.Type, &a.Balance, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, ledgererror.NotFound("account %s not found", accountID)
	}
	if err != nil {
		return models.Account{}, ledgererror.Internal(err, "load account %s", accountID)
	}
	return a, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (models.Transaction, error) {
	var (
		t          models.Transaction
		related    sql.NullString
		txType     string
		category   sql.NullString
		confidence sql.NullFloat64
	)
	err := row.Scan(
		&t.Seq, &t.ID, &t.UserID, &t.InitiatedBy, &t.AccountID, &related,
		&t.Amount, &txType, &t.Description, &category, &confidence, &t.CreatedAt,
	)
	if err != nil {
		return models.Transaction{}, err
	}
	t.Type = models.TransactionType(txType)
	t.RelatedAccountID = related.String
	if category.Valid {
		c := category.String
		t.Category = &c
	}
	if confidence.Valid {
		c := confidence.Float64
		t.Confidence = &c
	}
	return t, nil
}

var (
	_ interfaces.LedgerStore    = (*Store)(nil)
	_ interfaces.AccountCreator = (*Store)(nil)
)

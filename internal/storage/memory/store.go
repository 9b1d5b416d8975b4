package memory

import (
	"context"
	"sync"
	"time"

	interfaces "github.com/sheikh-saqib/personal-banking-ledger/internal/interfaces"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/ledgererror"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/models"
)

// MemoryLedgerStore is an in-memory LedgerStore. Writes made inside WithinTx
// are staged and applied in one step on commit, so a failed unit leaves no
// trace. Accounts read for update are row-locked until the unit ends.
type MemoryLedgerStore struct {
	mu           sync.RWMutex
	accounts     map[string]models.Account
	transactions []models.Transaction // commit order
	index        map[string]int       // transaction id -> position
	seq          int64

	rowMu    sync.Mutex
	rowLocks map[string]*sync.Mutex
}

// NewMemoryLedgerStore creates an empty store.
func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{
		accounts: make(map[string]models.Account),
		index:    make(map[string]int),
		rowLocks: make(map[string]*sync.Mutex),
	}
}

// CreateAccount registers an account shell.
func (m *MemoryLedgerStore) CreateAccount(ctx context.Context, account models.Account) error {
	if account.ID == "" || account.UserID == "" {
		return ledgererror.InvalidOperation("account id and owner are required")
	}
	if account.Balance.IsNegative() {
		return ledgererror.InvalidAmount("initial balance cannot be negative")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.accounts[account.ID]; exists {
		return ledgererror.InvalidOperation("account %s already exists", account.ID)
	}
	for _, a := range m.accounts {
		if a.UserID == account.UserID && a.Name == account.Name {
			return ledgererror.InvalidOperation("user %s already has an account named %q", account.UserID, account.Name)
		}
	}
	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	if account.UpdatedAt.IsZero() {
		account.UpdatedAt = account.CreatedAt
	}
	account.Balance = models.NormalizeAmount(account.Balance)
	m.accounts[account.ID] = account
	return nil
}

func (m *MemoryLedgerStore) GetAccount(ctx context.Context, accountID string) (models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.accounts[accountID]
	if !ok {
		return models.Account{}, ledgererror.NotFound("account %s not found", accountID)
	}
	return a, nil
}

func (m *MemoryLedgerStore) GetTransaction(ctx context.Context, transactionID string) (models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.index[transactionID]
	if !ok {
		return models.Transaction{}, ledgererror.NotFound("transaction %s not found", transactionID)
	}
	return m.transactions[i], nil
}

func (m *MemoryLedgerStore) QueryTransactions(ctx context.Context, userID string, filter models.Filter) ([]models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []models.Transaction{}
	for i := len(m.transactions) - 1; i >= 0; i-- {
		t := m.transactions[i]
		if t.UserID == userID && filter.Matches(t) {
			result = append(result, t)
		}
	}
	return result, nil
}

func (m *MemoryLedgerStore) UpdateCategory(ctx context.Context, transactionID, category string, confidence float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.index[transactionID]
	if !ok {
		return ledgererror.NotFound("transaction %s not found", transactionID)
	}
	// fresh pointers so copies handed out earlier are never mutated
	c, conf := category, confidence
	m.transactions[i].Category = &c
	m.transactions[i].Confidence = &conf
	return nil
}

// WithinTx stages every write made by fn and applies them together when fn
// returns nil. On error or panic the staged writes are dropped.
func (m *MemoryLedgerStore) WithinTx(ctx context.Context, fn func(tx interfaces.LedgerTx) error) error {
	tx := &memoryTx{
		store:    m,
		accounts: make(map[string]models.Account),
	}
	defer tx.release()

	if err := ctx.Err(); err != nil {
		return ledgererror.Internal(err, "begin transaction")
	}
	if err := fn(tx); err != nil {
		return err
	}
	m.commit(tx)
	return nil
}

func (m *MemoryLedgerStore) commit(tx *memoryTx) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, a := range tx.accounts {
		m.accounts[id] = a
	}
	for _, t := range tx.appended {
		m.seq++
		t.Seq = m.seq
		m.index[t.ID] = len(m.transactions)
		m.transactions = append(m.transactions, *t)
	}
}

func (m *MemoryLedgerStore) rowLock(accountID string) *sync.Mutex {
	m.rowMu.Lock()
	defer m.rowMu.Unlock()

	if _, exists := m.rowLocks[accountID]; !exists {
		m.rowLocks[accountID] = &sync.Mutex{}
	}
	return m.rowLocks[accountID]
}

type memoryTx struct {
	store    *MemoryLedgerStore
	accounts map[string]models.Account
	appended []*models.Transaction
	held     []*sync.Mutex
	locked   map[string]bool
}

func (t *memoryTx) GetAccountForUpdate(ctx context.Context, accountID string) (models.Account, error) {
	if a, ok := t.accounts[accountID]; ok {
		return a, nil
	}
	if !t.locked[accountID] {
		l := t.store.rowLock(accountID)
		l.Lock()
		t.held = append(t.held, l)
		if t.locked == nil {
			t.locked = make(map[string]bool)
		}
		t.locked[accountID] = true
	}
	return t.store.GetAccount(ctx, accountID)
}

func (t *memoryTx) SaveAccount(ctx context.Context, account models.Account) error {
	if account.Balance.IsNegative() {
		return ledgererror.InsufficientFunds("balance of account %s cannot go below zero", account.ID)
	}
	if _, ok := t.accounts[account.ID]; !ok {
		if _, err := t.store.GetAccount(ctx, account.ID); err != nil {
			return err
		}
	}
	t.accounts[account.ID] = account
	return nil
}

func (t *memoryTx) AppendTransaction(ctx context.Context, tx *models.Transaction) error {
	if tx.ID == "" {
		return ledgererror.InvalidOperation("transaction id is required")
	}
	t.appended = append(t.appended, tx)
	return nil
}

func (t *memoryTx) release() {
	for i := len(t.held) - 1; i >= 0; i-- {
		t.held[i].Unlock()
	}
	t.held = nil
}

// Compile-time check: ensure MemoryLedgerStore implements LedgerStore interface
var (
	_ interfaces.LedgerStore    = (*MemoryLedgerStore)(nil)
	_ interfaces.AccountCreator = (*MemoryLedgerStore)(nil)
)

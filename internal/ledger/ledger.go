// Package ledger moves money between accounts. Every balance change and the
// transaction record that justifies it are committed as one atomic unit.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	interfaces "github.com/sheikh-saqib/personal-banking-ledger/internal/interfaces"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/ledgererror"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/logging"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/models"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/models/events"
)

// DefaultPublishTimeout bounds each post-commit event publish.
const DefaultPublishTimeout = 500 * time.Millisecond

// Ledger is the engine. It holds the store, the optional collaborators used
// after commit, and one mutex per account it has touched.
type Ledger struct {
	store       interfaces.LedgerStore
	users       interfaces.UserDirectory
	categorizer interfaces.Categorizer
	dispatcher  interfaces.CategorizationDispatcher
	publisher   interfaces.EventPublisher
	publishWait time.Duration
	logger      logging.Logger
	now         func() time.Time
	newID       func() string

	muMap map[string]*sync.Mutex // stores the *sync.Mutex for each account
	mapMu sync.Mutex             // protects muMap itself
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithUserDirectory resolves counterparty names in transaction details.
func WithUserDirectory(users interfaces.UserDirectory) Option {
	return func(l *Ledger) { l.users = users }
}

// WithCategorizer runs categorization inline after commit, and backs
// CategorizeTransaction and Predict.
func WithCategorizer(c interfaces.Categorizer) Option {
	return func(l *Ledger) { l.categorizer = c }
}

// WithDispatcher hands committed legs to an asynchronous categorization queue
// instead of categorizing inline.
func WithDispatcher(d interfaces.CategorizationDispatcher) Option {
	return func(l *Ledger) { l.dispatcher = d }
}

// WithPublisher emits a TransactionCommitted event per committed leg.
func WithPublisher(p interfaces.EventPublisher) Option {
	return func(l *Ledger) { l.publisher = p }
}

// WithPublishTimeout bounds each event publish after commit.
func WithPublishTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.publishWait = d
		}
	}
}

func WithLogger(logger logging.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithClock overrides the commit timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// NewLedger creates a Ledger on top of store.
func NewLedger(store interfaces.LedgerStore, opts ...Option) *Ledger {
	l := &Ledger{
		store:       store,
		publishWait: DefaultPublishTimeout,
		logger:      logging.NewNop(),
		now:         time.Now,
		newID:       func() string { return uuid.New().String() },
		muMap:       make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Deposit credits amount to an account owned by userID.
func (l *Ledger) Deposit(ctx context.Context, userID, accountID string, amount decimal.Decimal, description string) (models.Transaction, error) {
	log := l.logger.WithFields(
		logging.F(logging.FieldOperation, "deposit"),
		logging.F(logging.FieldUserID, userID),
		logging.F(logging.FieldAccountID, accountID),
		logging.F(logging.FieldAmount, amount.String()),
	)
	log.Info("Processing deposit")

	legs, err := l.execute(ctx, []string{accountID}, func(ctx context.Context, tx interfaces.LedgerTx, accounts map[string]models.Account) ([]*models.Transaction, error) {
		acc := accounts[accountID]
		if !acc.OwnedBy(userID) {
			return nil, ledgererror.Forbidden("account %s does not belong to user %s", accountID, userID)
		}
		if err := validateAmount(amount); err != nil {
			return nil, err
		}

		t := l.newLeg(userID, acc, "", amount, models.TypeDeposit, description, l.now())
		if err := post(ctx, tx, acc, t); err != nil {
			return nil, err
		}
		return []*models.Transaction{t}, nil
	})
	if err != nil {
		logRejection(log, err, "Deposit rejected")
		return models.Transaction{}, err
	}

	log.Info("Deposit completed", logging.F(logging.FieldTransactionID, legs[0].ID))
	return legs[0], nil
}

// Withdraw debits amount from an account owned by userID.
func (l *Ledger) Withdraw(ctx context.Context, userID, accountID string, amount decimal.Decimal, description string) (models.Transaction, error) {
	log := l.logger.WithFields(
		logging.F(logging.FieldOperation, "withdraw"),
		logging.F(logging.FieldUserID, userID),
		logging.F(logging.FieldAccountID, accountID),
		logging.F(logging.FieldAmount, amount.String()),
	)
	log.Info("Processing withdrawal")

	legs, err := l.execute(ctx, []string{accountID}, func(ctx context.Context, tx interfaces.LedgerTx, accounts map[string]models.Account) ([]*models.Transaction, error) {
		acc := accounts[accountID]
		if !acc.OwnedBy(userID) {
			return nil, ledgererror.Forbidden("account %s does not belong to user %s", accountID, userID)
		}
		if err := validateAmount(amount); err != nil {
			return nil, err
		}
		if acc.Balance.LessThan(amount) {
			return nil, ledgererror.InsufficientFunds("insufficient balance in account %s", accountID)
		}

		t := l.newLeg(userID, acc, "", amount.Neg(), models.TypeWithdraw, description, l.now())
		if err := post(ctx, tx, acc, t); err != nil {
			return nil, err
		}
		return []*models.Transaction{t}, nil
	})
	if err != nil {
		logRejection(log, err, "Withdrawal rejected")
		return models.Transaction{}, err
	}

	log.Info("Withdrawal completed", logging.F(logging.FieldTransactionID, legs[0].ID))
	return legs[0], nil
}

// Transfer moves amount from an account owned by userID to any existing
// account, and returns the outgoing leg. The destination may belong to
// another user; its incoming leg is owned by that user.
func (l *Ledger) Transfer(ctx context.Context, userID, fromAccountID, toAccountID string, amount decimal.Decimal, description string) (models.Transaction, error) {
	log := l.logger.WithFields(
		logging.F(logging.FieldOperation, "transfer"),
		logging.F(logging.FieldUserID, userID),
		logging.F(logging.FieldAccountID, fromAccountID),
		logging.F(logging.FieldToAccountID, toAccountID),
		logging.F(logging.FieldAmount, amount.String()),
	)
	log.Info("Processing transfer")

	if strings.TrimSpace(toAccountID) == "" {
		err := ledgererror.InvalidOperation("destination account is required for transfer")
		logRejection(log, err, "Transfer rejected")
		return models.Transaction{}, err
	}
	if fromAccountID == toAccountID {
		err := ledgererror.InvalidOperation("cannot transfer to the same account")
		logRejection(log, err, "Transfer rejected")
		return models.Transaction{}, err
	}

	legs, err := l.execute(ctx, []string{fromAccountID, toAccountID}, func(ctx context.Context, tx interfaces.LedgerTx, accounts map[string]models.Account) ([]*models.Transaction, error) {
		from, to := accounts[fromAccountID], accounts[toAccountID]
		if !from.OwnedBy(userID) {
			return nil, ledgererror.Forbidden("account %s does not belong to user %s", fromAccountID, userID)
		}
		if err := validateAmount(amount); err != nil {
			return nil, err
		}
		if from.Balance.LessThan(amount) {
			return nil, ledgererror.InsufficientFunds("insufficient balance in account %s", fromAccountID)
		}

		now := l.now()
		out := l.newLeg(userID, from, to.ID, amount.Neg(), models.TypeTransferOut, description, now)
		in := l.newLeg(userID, to, from.ID, amount, models.TypeTransferIn, description, now)
		if err := post(ctx, tx, from, out); err != nil {
			return nil, err
		}
		if err := post(ctx, tx, to, in); err != nil {
			return nil, err
		}
		return []*models.Transaction{out, in}, nil
	})
	if err != nil {
		logRejection(log, err, "Transfer rejected")
		return models.Transaction{}, err
	}

	log.Info("Transfer completed",
		logging.F(logging.FieldTransactionID, legs[0].ID),
	)
	return legs[0], nil
}

type unitFunc func(ctx context.Context, tx interfaces.LedgerTx, accounts map[string]models.Account) ([]*models.Transaction, error)

// execute runs fn as one atomic unit over accountIDs. Accounts are locked and
// read for update in ascending id order before fn sees them. Once the unit
// starts, caller cancellation no longer applies: it commits or fails whole.
// Post-commit work runs after every lock is released.
func (l *Ledger) execute(ctx context.Context, accountIDs []string, fn unitFunc) ([]models.Transaction, error) {
	unlock := l.lockAccounts(accountIDs...)
	ctx = context.WithoutCancel(ctx)

	var legs []*models.Transaction
	err := l.store.WithinTx(ctx, func(tx interfaces.LedgerTx) error {
		accounts := make(map[string]models.Account, len(accountIDs))
		for _, id := range sortedUnique(accountIDs) {
			acc, err := tx.GetAccountForUpdate(ctx, id)
			if err != nil {
				return err
			}
			accounts[id] = acc
		}

		var err error
		legs, err = fn(ctx, tx, accounts)
		return err
	})
	unlock()
	if err != nil {
		return nil, ledgererror.Internal(err, "commit ledger unit")
	}

	committed := make([]models.Transaction, len(legs))
	for i, t := range legs {
		committed[i] = *t
	}
	l.afterCommit(ctx, committed)
	return committed, nil
}

func (l *Ledger) newLeg(initiator string, acc models.Account, relatedAccountID string, amount decimal.Decimal, typ models.TransactionType, description string, at time.Time) *models.Transaction {
	return &models.Transaction{
		ID:               l.newID(),
		UserID:           acc.UserID,
		InitiatedBy:      initiator,
		AccountID:        acc.ID,
		RelatedAccountID: relatedAccountID,
		Amount:           models.NormalizeAmount(amount),
		Type:             typ,
		Description:      strings.TrimSpace(description),
		CreatedAt:        at.UTC(),
	}
}

// post applies t to acc and records it.
func post(ctx context.Context, tx interfaces.LedgerTx, acc models.Account, t *models.Transaction) error {
	acc.Balance = models.NormalizeAmount(acc.Balance.Add(t.Amount))
	if acc.Balance.IsNegative() {
		return ledgererror.InsufficientFunds("insufficient balance in account %s", acc.ID)
	}
	acc.UpdatedAt = t.CreatedAt
	if err := tx.SaveAccount(ctx, acc); err != nil {
		return err
	}
	return tx.AppendTransaction(ctx, t)
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ledgererror.InvalidAmount("amount must be positive")
	}
	if !models.ValidAmount(amount) {
		return ledgererror.InvalidAmount("amount must have at most %d decimal places", models.AmountScale)
	}
	return nil
}

func logRejection(log logging.Logger, err error, msg string) {
	if ledgererror.KindOf(err) == ledgererror.KindInternal {
		log.WithError(err).Error(msg)
		return
	}
	log.Warn(msg,
		logging.F(logging.FieldStatus, string(ledgererror.KindOf(err))),
		logging.F("reason", ledgererror.MessageOf(err)),
	)
}

// afterCommit publishes and categorizes committed legs. Failures here are
// logged and never reach the caller.
func (l *Ledger) afterCommit(ctx context.Context, legs []models.Transaction) {
	for i := range legs {
		if l.publisher != nil {
			l.publish(ctx, legs[i])
		}

		switch {
		case l.dispatcher != nil:
			l.dispatcher.Submit(legs[i])
		case l.categorizer != nil:
			result := l.categorize(ctx, &legs[i])
			legs[i].Category = &result.Category
			legs[i].Confidence = &result.Confidence
		}
	}
}

func (l *Ledger) publish(ctx context.Context, t models.Transaction) {
	ctx, cancel := context.WithTimeout(ctx, l.publishWait)
	defer cancel()

	if err := l.publisher.Publish(ctx, t.AccountID, events.FromTransaction(t)); err != nil {
		l.logger.WithError(err).Warn("Failed to publish committed transaction",
			logging.F(logging.FieldTransactionID, t.ID))
	}
}

// categorize never panics.
func (l *Ledger) categorize(ctx context.Context, t *models.Transaction) (result models.CategoryResult) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.WithError(fmt.Errorf("panic: %v", r)).Warn("Categorization failed",
				logging.F(logging.FieldTransactionID, t.ID))
			result = models.Uncategorized()
		}
	}()
	return l.categorizer.Categorize(ctx, t)
}

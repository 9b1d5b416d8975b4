// Package storetest holds the behaviour every LedgerStore implementation must
// share. Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	interfaces "github.com/sheikh-saqib/personal-banking-ledger/internal/interfaces"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/ledgererror"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/models"
)

// Store is what the contract exercises.
type Store interface {
	interfaces.LedgerStore
	interfaces.AccountCreator
}

// Run executes the shared contract against stores produced by newStore.
func Run(t *testing.T, newStore func(t *testing.T) Store) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s Store)
	}{
		{"CreateAndGetAccount", testCreateAndGetAccount},
		{"MissingRecordsAreNotFound", testMissingRecordsAreNotFound},
		{"CommitAppliesAllWrites", testCommitAppliesAllWrites},
		{"FailedUnitLeavesNoTrace", testFailedUnitLeavesNoTrace},
		{"QueryScopesByUserNewestFirst", testQueryScopesByUserNewestFirst},
		{"QueryAppliesFilter", testQueryAppliesFilter},
		{"UpdateCategory", testUpdateCategory},
		{"NegativeBalanceRejected", testNegativeBalanceRejected},
		{"AccountNameUniquePerOwner", testAccountNameUniquePerOwner},
		{"LongDescriptionRoundTrips", testLongDescriptionRoundTrips},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

var base = time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC)

func seedAccount(t *testing.T, s Store, id, userID, name, balance string) {
	t.Helper()
	require.NoError(t, s.CreateAccount(context.Background(), models.Account{
		ID:      id,
		UserID:  userID,
		Name:    name,
		Type:    "CHECKING",
		Balance: decimal.RequireFromString(balance),
	}))
}

func post(t *testing.T, s Store, legs ...models.Transaction) {
	t.Helper()
	ctx := context.Background()
	err := s.WithinTx(ctx, func(tx interfaces.LedgerTx) error {
		for i := range legs {
			acc, err := tx.GetAccountForUpdate(ctx, legs[i].AccountID)
			if err != nil {
				return err
			}
			acc.Balance = acc.Balance.Add(legs[i].Amount)
			acc.UpdatedAt = legs[i].CreatedAt
			if err := tx.SaveAccount(ctx, acc); err != nil {
				return err
			}
			if err := tx.AppendTransaction(ctx, &legs[i]); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func leg(id, userID, accountID, amount string, typ models.TransactionType, desc string, at time.Time) models.Transaction {
	return models.Transaction{
		ID:          id,
		UserID:      userID,
		InitiatedBy: userID,
		AccountID:   accountID,
		Amount:      decimal.RequireFromString(amount),
		Type:        typ,
		Description: desc,
		CreatedAt:   at,
	}
}

func testCreateAndGetAccount(t *testing.T, s Store) {
	seedAccount(t, s, "acc-1", "user-1", "Main", "100.00")

	acc, err := s.GetAccount(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", acc.UserID)
	assert.Equal(t, "Main", acc.Name)
	assert.True(t, acc.Balance.Equal(decimal.RequireFromString("100")))
	assert.False(t, acc.CreatedAt.IsZero())
}

func testMissingRecordsAreNotFound(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := s.GetAccount(ctx, "nope")
	assert.True(t, ledgererror.Is(err, ledgererror.KindNotFound))

	_, err = s.GetTransaction(ctx, "nope")
	assert.True(t, ledgererror.Is(err, ledgererror.KindNotFound))

	err = s.UpdateCategory(ctx, "nope", "FOOD", 0.75)
	assert.True(t, ledgererror.Is(err, ledgererror.KindNotFound))
}

func testCommitAppliesAllWrites(t *testing.T, s Store) {
	ctx := context.Background()
	seedAccount(t, s, "acc-a", "user-1", "A", "200.00")
	seedAccount(t, s, "acc-b", "user-1", "B", "0.00")

	out := leg("tx-out", "user-1", "acc-a", "-75.00", models.TypeTransferOut, "rent", base)
	out.RelatedAccountID = "acc-b"
	in := leg("tx-in", "user-1", "acc-b", "75.00", models.TypeTransferIn, "rent", base)
	in.RelatedAccountID = "acc-a"
	post(t, s, out, in)

	a, err := s.GetAccount(ctx, "acc-a")
	require.NoError(t, err)
	b, err := s.GetAccount(ctx, "acc-b")
	require.NoError(t, err)
	assert.True(t, a.Balance.Equal(decimal.RequireFromString("125.00")), a.Balance.String())
	assert.True(t, b.Balance.Equal(decimal.RequireFromString("75.00")), b.Balance.String())

	got, err := s.GetTransaction(ctx, "tx-in")
	require.NoError(t, err)
	assert.Equal(t, "acc-a", got.RelatedAccountID)
	assert.Equal(t, models.TypeTransferIn, got.Type)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("75")))
	assert.True(t, got.CreatedAt.Equal(base))
	assert.Nil(t, got.Category)
	assert.Positive(t, got.Seq)
}

func testFailedUnitLeavesNoTrace(t *testing.T, s Store) {
	ctx := context.Background()
	seedAccount(t, s, "acc-a", "user-1", "A", "200.00")
	seedAccount(t, s, "acc-b", "user-1", "B", "0.00")
	boom := errors.New("injected failure")

	err := s.WithinTx(ctx, func(tx interfaces.LedgerTx) error {
		a, err := tx.GetAccountForUpdate(ctx, "acc-a")
		if err != nil {
			return err
		}
		a.Balance = a.Balance.Sub(decimal.NewFromInt(75))
		if err := tx.SaveAccount(ctx, a); err != nil {
			return err
		}
		out := leg("tx-out", "user-1", "acc-a", "-75.00", models.TypeTransferOut, "", base)
		if err := tx.AppendTransaction(ctx, &out); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	a, err := s.GetAccount(ctx, "acc-a")
	require.NoError(t, err)
	assert.True(t, a.Balance.Equal(decimal.RequireFromString("200")))

	_, err = s.GetTransaction(ctx, "tx-out")
	assert.True(t, ledgererror.Is(err, ledgererror.KindNotFound))

	txs, err := s.QueryTransactions(ctx, "user-1", models.Filter{})
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func testQueryScopesByUserNewestFirst(t *testing.T, s Store) {
	ctx := context.Background()
	seedAccount(t, s, "acc-1", "user-1", "Main", "0.00")
	seedAccount(t, s, "acc-2", "user-2", "Main", "0.00")

	post(t, s, leg("t1", "user-1", "acc-1", "10.00", models.TypeDeposit, "first", base))
	post(t, s, leg("t2", "user-2", "acc-2", "20.00", models.TypeDeposit, "other", base))
	post(t, s, leg("t3", "user-1", "acc-1", "30.00", models.TypeDeposit, "second", base))

	txs, err := s.QueryTransactions(ctx, "user-1", models.Filter{})
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "t3", txs[0].ID)
	assert.Equal(t, "t1", txs[1].ID)

	none, err := s.QueryTransactions(ctx, "user-3", models.Filter{})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func testQueryAppliesFilter(t *testing.T, s Store) {
	ctx := context.Background()
	seedAccount(t, s, "acc-1", "user-1", "Main", "0.00")
	seedAccount(t, s, "acc-2", "user-1", "Savings", "0.00")

	post(t, s, leg("t1", "user-1", "acc-1", "100.00", models.TypeDeposit, "Salary", base))
	post(t, s, leg("t2", "user-1", "acc-1", "-12.50", models.TypeWithdraw, "Pizza night", base.Add(time.Hour)))
	post(t, s, leg("t3", "user-1", "acc-2", "40.00", models.TypeDeposit, "Gift", base.Add(2*time.Hour)))

	byAccount, err := s.QueryTransactions(ctx, "user-1", models.Filter{AccountID: "acc-2"})
	require.NoError(t, err)
	require.Len(t, byAccount, 1)
	assert.Equal(t, "t3", byAccount[0].ID)

	byType, err := s.QueryTransactions(ctx, "user-1", models.Filter{Type: models.TypeWithdraw})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, "t2", byType[0].ID)

	min := decimal.NewFromInt(12)
	max := decimal.NewFromInt(50)
	byAmount, err := s.QueryTransactions(ctx, "user-1", models.Filter{MinAmount: &min, MaxAmount: &max})
	require.NoError(t, err)
	assert.Len(t, byAmount, 2)

	byText, err := s.QueryTransactions(ctx, "user-1", models.Filter{Description: "PIZZA"})
	require.NoError(t, err)
	require.Len(t, byText, 1)
	assert.Equal(t, "t2", byText[0].ID)
}

func testUpdateCategory(t *testing.T, s Store) {
	ctx := context.Background()
	seedAccount(t, s, "acc-1", "user-1", "Main", "10.00")
	post(t, s, leg("t1", "user-1", "acc-1", "-4.50", models.TypeWithdraw, "Starbucks", base))

	require.NoError(t, s.UpdateCategory(ctx, "t1", "RESTAURANT", 0.75))
	require.NoError(t, s.UpdateCategory(ctx, "t1", "FOOD", 0.9))

	got, err := s.GetTransaction(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, got.Category)
	require.NotNil(t, got.Confidence)
	assert.Equal(t, "FOOD", *got.Category)
	assert.InDelta(t, 0.9, *got.Confidence, 1e-9)

	byCategory, err := s.QueryTransactions(ctx, "user-1", models.Filter{Category: "FOOD"})
	require.NoError(t, err)
	assert.Len(t, byCategory, 1)
}

func testNegativeBalanceRejected(t *testing.T, s Store) {
	ctx := context.Background()
	seedAccount(t, s, "acc-1", "user-1", "Main", "3.00")

	err := s.WithinTx(ctx, func(tx interfaces.LedgerTx) error {
		acc, err := tx.GetAccountForUpdate(ctx, "acc-1")
		if err != nil {
			return err
		}
		acc.Balance = acc.Balance.Sub(decimal.RequireFromString("4.50"))
		return tx.SaveAccount(ctx, acc)
	})
	assert.True(t, ledgererror.Is(err, ledgererror.KindInsufficientFunds), "got %v", err)

	acc, err := s.GetAccount(ctx, "acc-1")
	require.NoError(t, err)
	assert.True(t, acc.Balance.Equal(decimal.RequireFromString("3")), acc.Balance.String())
}

func testAccountNameUniquePerOwner(t *testing.T, s Store) {
	ctx := context.Background()
	seedAccount(t, s, "acc-1", "user-1", "Main", "0.00")
	seedAccount(t, s, "acc-2", "user-2", "Main", "0.00")

	err := s.CreateAccount(ctx, models.Account{ID: "acc-3", UserID: "user-1", Name: "Main", Type: "SAVINGS"})
	assert.True(t, ledgererror.Is(err, ledgererror.KindInvalidOperation), "got %v", err)

	err = s.CreateAccount(ctx, models.Account{ID: "acc-1", UserID: "user-3", Name: "Other", Type: "SAVINGS"})
	assert.True(t, ledgererror.Is(err, ledgererror.KindInvalidOperation), "got %v", err)

	_, err = s.GetAccount(ctx, "acc-3")
	assert.True(t, ledgererror.Is(err, ledgererror.KindNotFound))
}

func testLongDescriptionRoundTrips(t *testing.T, s Store) {
	ctx := context.Background()
	seedAccount(t, s, "acc-1", "user-1", "Main", "0.00")
	desc := strings.Repeat("Grocery run ", 100)

	post(t, s, leg("t1", "user-1", "acc-1", "25.00", models.TypeDeposit, desc, base))

	got, err := s.GetTransaction(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, desc, got.Description)
}

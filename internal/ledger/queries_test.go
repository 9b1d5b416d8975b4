package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/personal-banking-ledger/internal/ledgererror"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/models"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/storage/memory"
)

// steppingClock advances one hour per call.
func steppingClock(start time.Time) func() time.Time {
	next := start
	return func() time.Time {
		now := next
		next = next.Add(time.Hour)
		return now
	}
}

func newHistoryLedger(t *testing.T, opts ...Option) (*Ledger, *memory.MemoryLedgerStore) {
	t.Helper()
	store := memory.NewMemoryLedgerStore()
	seed(t, store, "acc-a", "user-1", "0.00")
	seed(t, store, "acc-b", "user-1", "0.00")
	seed(t, store, "acc-x", "user-2", "0.00")

	opts = append(opts, WithClock(steppingClock(time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC))))
	l := NewLedger(store, opts...)
	ctx := context.Background()

	_, err := l.Deposit(ctx, "user-1", "acc-a", dec("1000.00"), "Monthly salary")
	require.NoError(t, err)
	_, err = l.Withdraw(ctx, "user-1", "acc-a", dec("4.50"), "Starbucks Coffee #221")
	require.NoError(t, err)
	_, err = l.Transfer(ctx, "user-1", "acc-a", "acc-b", dec("200.00"), "Rainy day fund")
	require.NoError(t, err)
	_, err = l.Withdraw(ctx, "user-1", "acc-a", dec("60.00"), "Shell fuel station")
	require.NoError(t, err)
	return l, store
}

func TestGetTransactionDetail(t *testing.T) {
	users := memory.NewUserDirectory(map[string]string{"user-1": "Ada", "user-2": "Grace"})
	l, _ := newHistoryLedger(t, WithUserDirectory(users))
	ctx := context.Background()

	outs, err := l.ByType(ctx, "user-1", models.TypeTransferOut)
	require.NoError(t, err)
	require.Len(t, outs, 1)

	detail, err := l.GetTransactionDetail(ctx, "user-1", outs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "acc-a", detail.Account.ID)
	require.NotNil(t, detail.RelatedAccount)
	assert.Equal(t, "acc-b", detail.RelatedAccount.ID)
	assert.True(t, detail.RelatedAccount.Balance.Equal(dec("200.00")))
	assert.Equal(t, "Ada", detail.CounterpartyName)
	assert.Equal(t, "Rainy", detail.Merchant)
}

func TestGetTransactionDetail_NonTransfer(t *testing.T) {
	l, _ := newHistoryLedger(t)
	ctx := context.Background()

	withdrawals, err := l.ByType(ctx, "user-1", models.TypeWithdraw)
	require.NoError(t, err)
	require.Len(t, withdrawals, 2)

	detail, err := l.GetTransactionDetail(ctx, "user-1", withdrawals[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "Starbucks", detail.Merchant)
	assert.Nil(t, detail.RelatedAccount)
	assert.Empty(t, detail.CounterpartyName)
	assert.True(t, detail.Account.Balance.Equal(dec("735.50")))
}

func TestGetTransactionDetail_UnknownCounterparty(t *testing.T) {
	users := memory.NewUserDirectory(nil)
	l, _ := newHistoryLedger(t, WithUserDirectory(users))
	ctx := context.Background()

	ins, err := l.ByType(ctx, "user-1", models.TypeTransferIn)
	require.NoError(t, err)
	require.Len(t, ins, 1)

	detail, err := l.GetTransactionDetail(ctx, "user-1", ins[0].ID)
	require.NoError(t, err)
	assert.Equal(t, UnknownUser, detail.CounterpartyName)
}

func TestGetTransactionDetail_Errors(t *testing.T) {
	l, _ := newHistoryLedger(t)
	ctx := context.Background()

	_, err := l.GetTransactionDetail(ctx, "user-1", "missing")
	assert.True(t, ledgererror.Is(err, ledgererror.KindNotFound))

	txs, err := l.List(ctx, "user-1")
	require.NoError(t, err)
	_, err = l.GetTransactionDetail(ctx, "user-2", txs[0].ID)
	assert.True(t, ledgererror.Is(err, ledgererror.KindForbidden))
}

func TestListPaginated(t *testing.T) {
	l, _ := newHistoryLedger(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		page      int
		size      int
		wantItems int
		wantSize  int
		wantPages int
		wantNext  bool
		wantPrev  bool
	}{
		{"first page", 0, 2, 2, 2, 3, true, false},
		{"middle page", 1, 2, 2, 2, 3, true, true},
		{"last page", 2, 2, 1, 2, 3, false, true},
		{"past the end", 5, 2, 0, 2, 3, false, true},
		{"default size", 0, 0, 5, DefaultPageSize, 1, false, false},
		{"negative page", -1, 10, 5, 10, 1, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := l.ListPaginated(ctx, "user-1", tt.page, tt.size)
			require.NoError(t, err)
			assert.Len(t, page.Items, tt.wantItems)
			assert.Equal(t, tt.wantSize, page.Size)
			assert.Equal(t, 5, page.TotalElements)
			assert.Equal(t, tt.wantPages, page.TotalPages)
			assert.Equal(t, tt.wantNext, page.HasNext)
			assert.Equal(t, tt.wantPrev, page.HasPrevious)
		})
	}

	first, err := l.ListPaginated(ctx, "user-1", 0, 1)
	require.NoError(t, err)
	assert.Equal(t, "Shell fuel station", first.Items[0].Description)
}

func TestListPaginated_EmptyHistory(t *testing.T) {
	l := NewLedger(memory.NewMemoryLedgerStore())

	page, err := l.ListPaginated(context.Background(), "nobody", 0, 10)
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.Zero(t, page.TotalPages)
	assert.False(t, page.HasNext)
}

func TestSearch(t *testing.T) {
	l, _ := newHistoryLedger(t)
	ctx := context.Background()

	hits, err := l.Search(ctx, "user-1", "coffee")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Starbucks Coffee #221", hits[0].Description)

	none, err := l.Search(ctx, "user-1", "   ")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	other, err := l.Search(ctx, "user-2", "coffee")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestByCategory(t *testing.T) {
	l, store := newHistoryLedger(t)
	ctx := context.Background()

	hits, err := l.Search(ctx, "user-1", "starbucks")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.NoError(t, store.UpdateCategory(ctx, hits[0].ID, "RESTAURANT", 0.75))

	got, err := l.ByCategory(ctx, "user-1", "RESTAURANT")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, hits[0].ID, got[0].ID)

	blank, err := l.ByCategory(ctx, "user-1", "")
	require.NoError(t, err)
	assert.Empty(t, blank)
}

func TestByType_Blank(t *testing.T) {
	l, _ := newHistoryLedger(t)

	got, err := l.ByType(context.Background(), "user-1", "")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestByDateRange(t *testing.T) {
	l, _ := newHistoryLedger(t)
	ctx := context.Background()
	day := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	// deposit 08:00, withdraw 09:00, transfer legs 10:00, withdraw 11:00
	inclusive, err := l.ByDateRange(ctx, "user-1", day.Add(9*time.Hour), day.Add(10*time.Hour))
	require.NoError(t, err)
	assert.Len(t, inclusive, 3)

	zero, err := l.ByDateRange(ctx, "user-1", time.Time{}, day.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, zero)
}

func TestFilter(t *testing.T) {
	l, _ := newHistoryLedger(t)
	ctx := context.Background()
	day := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	start := day.Add(8 * time.Hour)
	end := day.Add(11 * time.Hour)
	min := dec("5.00")
	max := dec("100.00")

	got, err := l.Filter(ctx, "user-1", models.Filter{
		StartDate: &start,
		EndDate:   &end,
		MinAmount: &min,
		MaxAmount: &max,
	})
	require.NoError(t, err)
	assert.Empty(t, got, "exclusive bounds drop the 08:00 and 11:00 rows, amounts drop the rest")

	got, err = l.Filter(ctx, "user-1", models.Filter{MinAmount: &min, MaxAmount: &max})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Shell fuel station", got[0].Description)

	got, err = l.Filter(ctx, "user-1", models.Filter{AccountID: "acc-b"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.TypeTransferIn, got[0].Type)
}

func TestAccountHistory_Forbidden(t *testing.T) {
	l, _ := newHistoryLedger(t)

	_, err := l.AccountHistory(context.Background(), "user-2", "acc-a")
	assert.True(t, ledgererror.Is(err, ledgererror.KindForbidden))

	_, err = l.AccountHistory(context.Background(), "user-1", "missing")
	assert.True(t, ledgererror.Is(err, ledgererror.KindNotFound))
}

func TestReconcile(t *testing.T) {
	l, _ := newHistoryLedger(t)

	rec, err := l.Reconcile(context.Background(), "user-1", "acc-a")
	require.NoError(t, err)
	assert.True(t, rec.Balanced)
	assert.Equal(t, 4, rec.Entries)
	assert.True(t, rec.Balance.Equal(dec("735.50")))
}

func TestMerchant(t *testing.T) {
	assert.Equal(t, "", merchant(""))
	assert.Equal(t, "Uber", merchant("Uber"))
	assert.Equal(t, "Uber", merchant("Uber trip home"))
	assert.Equal(t, "Uber", merchant("Uber\ttrip"))
	assert.Equal(t, "Uber", merchant("  Uber\ntrip"))
	assert.Equal(t, "", merchant(" \t "))
}

package ledger

import (
	"slices"
	"sync"
)

func (l *Ledger) getAccountLock(accountID string) *sync.Mutex {
	l.mapMu.Lock()
	defer l.mapMu.Unlock()

	if _, exists := l.muMap[accountID]; !exists {
		l.muMap[accountID] = &sync.Mutex{}
	}
	return l.muMap[accountID]
}

// lockAccounts locks every distinct account in ascending id order, so two
// opposite transfers between the same pair can never wait on each other.
// The returned func releases them in reverse order.
func (l *Ledger) lockAccounts(accountIDs ...string) func() {
	ids := sortedUnique(accountIDs)

	held := make([]*sync.Mutex, 0, len(ids))
	for _, id := range ids {
		mu := l.getAccountLock(id)
		mu.Lock()
		held = append(held, mu)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

func sortedUnique(ids []string) []string {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

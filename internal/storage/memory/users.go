package memory

import (
	"context"
	"sync"

	interfaces "github.com/sheikh-saqib/personal-banking-ledger/internal/interfaces"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/ledgererror"
)

// UserDirectory is an in-memory user id -> display name lookup.
type UserDirectory struct {
	mu    sync.RWMutex
	names map[string]string
}

func NewUserDirectory(names map[string]string) *UserDirectory {
	d := &UserDirectory{names: make(map[string]string, len(names))}
	for id, name := range names {
		d.names[id] = name
	}
	return d
}

// Put registers or renames a user.
func (d *UserDirectory) Put(userID, displayName string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.names[userID] = displayName
}

func (d *UserDirectory) DisplayName(ctx context.Context, userID string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	name, ok := d.names[userID]
	if !ok {
		return "", ledgererror.NotFound("user %s not found", userID)
	}
	return name, nil
}

var _ interfaces.UserDirectory = (*UserDirectory)(nil)

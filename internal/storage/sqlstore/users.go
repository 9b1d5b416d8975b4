package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	interfaces "github.com/sheikh-saqib/personal-banking-ledger/internal/interfaces"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/ledgererror"
)

// Users reads display names from the users table maintained by the
// authentication collaborator.
type Users struct {
	db      *sql.DB
	dialect Dialect
}

// Users returns a directory backed by the same database.
func (s *Store) Users() *Users {
	return &Users{db: s.db, dialect: s.dialect}
}

func (u *Users) DisplayName(ctx context.Context, userID string) (string, error) {
	const query = `SELECT display_name FROM users WHERE id = ?`

	var name string
	err := u.db.QueryRowContext(ctx, u.dialect.Rebind(query), userID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ledgererror.NotFound("user %s not found", userID)
	}
	if err != nil {
		return "", ledgererror.Internal(err, "load user %s", userID)
	}
	return name, nil
}

// Put inserts or renames a user.
func (u *Users) Put(ctx context.Context, userID, displayName string) error {
	const query = `INSERT INTO users (id, display_name) VALUES (?, ?)
	ON CONFLICT (id) DO UPDATE SET display_name = excluded.display_name`

	_, err := u.db.ExecContext(ctx, u.dialect.Rebind(query), userID, displayName)
	return ledgererror.Internal(err, "save user %s", userID)
}

var _ interfaces.UserDirectory = (*Users)(nil)

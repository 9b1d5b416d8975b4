package interfaces

import (
	"context"

	"github.com/sheikh-saqib/personal-banking-ledger/internal/models"
)

// Categorizer assigns a category to a transaction. It never fails; a nil
// transaction or any internal error degrades to models.Uncategorized().
type Categorizer interface {
	Categorize(ctx context.Context, t *models.Transaction) models.CategoryResult
}

// CategorizationDispatcher schedules categorization of committed legs off the
// commit path.
type CategorizationDispatcher interface {
	Submit(t models.Transaction)
}

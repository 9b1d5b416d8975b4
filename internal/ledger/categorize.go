package ledger

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/personal-banking-ledger/internal/ledgererror"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/logging"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/models"
)

// CategorizeTransaction re-runs categorization on one of userID's committed
// transactions and overwrites its stored category.
func (l *Ledger) CategorizeTransaction(ctx context.Context, userID, transactionID string) (models.CategoryResult, error) {
	if l.categorizer == nil {
		return models.CategoryResult{}, ledgererror.InvalidOperation("categorization is not configured")
	}
	t, err := l.ownedTransaction(ctx, userID, transactionID)
	if err != nil {
		return models.CategoryResult{}, err
	}

	result := l.categorize(ctx, &t)
	l.logger.Info("Transaction categorized",
		logging.F(logging.FieldTransactionID, transactionID),
		logging.F(logging.FieldCategory, result.Category),
		logging.F(logging.FieldConfidence, result.Confidence))
	return result, nil
}

// Predict categorizes a description that has not been committed. Nothing is
// written to the store.
func (l *Ledger) Predict(ctx context.Context, description string, amount decimal.Decimal) (models.CategoryResult, error) {
	if l.categorizer == nil {
		return models.CategoryResult{}, ledgererror.InvalidOperation("categorization is not configured")
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return models.CategoryResult{}, ledgererror.InvalidOperation("description is required")
	}

	preview := models.Transaction{Description: description, Amount: amount}
	return l.categorize(ctx, &preview), nil
}

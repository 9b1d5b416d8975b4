// Package export writes transaction history as CSV statements.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/sheikh-saqib/personal-banking-ledger/internal/models"
)

// DefaultDelimiter separates statement columns unless overridden.
const DefaultDelimiter = ','

// StatementRow is one CSV line of a statement.
type StatementRow struct {
	Date             string `csv:"date"`
	TransactionID    string `csv:"transaction_id"`
	AccountID        string `csv:"account_id"`
	RelatedAccountID string `csv:"related_account_id"`
	Type             string `csv:"type"`
	Description      string `csv:"description"`
	Amount           string `csv:"amount"`
	Category         string `csv:"category"`
	Confidence       string `csv:"confidence"`
	InitiatedBy      string `csv:"initiated_by"`
}

// Rows converts transactions into statement rows, keeping their order.
func Rows(txs []models.Transaction) []StatementRow {
	rows := make([]StatementRow, 0, len(txs))
	for _, t := range txs {
		row := StatementRow{
			Date:             t.CreatedAt.UTC().Format(time.RFC3339),
			TransactionID:    t.ID,
			AccountID:        t.AccountID,
			RelatedAccountID: t.RelatedAccountID,
			Type:             string(t.Type),
			Description:      t.Description,
			Amount:           t.Amount.StringFixed(models.AmountScale),
			Category:         t.CategoryName(),
			InitiatedBy:      t.InitiatedBy,
		}
		if t.Confidence != nil {
			row.Confidence = strconv.FormatFloat(*t.Confidence, 'f', 2, 64)
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteCSV writes txs to w with a header line.
func WriteCSV(w io.Writer, txs []models.Transaction, delimiter rune) error {
	if delimiter == 0 {
		delimiter = DefaultDelimiter
	}
	csvWriter := csv.NewWriter(w)
	csvWriter.Comma = delimiter

	rows := Rows(txs)
	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(csvWriter)); err != nil {
		return fmt.Errorf("error writing CSV data: %w", err)
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

// WriteFile writes txs to path, creating or truncating it.
func WriteFile(path string, txs []models.Transaction, delimiter rune) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating CSV file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("error closing CSV file: %w", cerr)
		}
	}()
	return WriteCSV(file, txs, delimiter)
}

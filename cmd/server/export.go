package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sheikh-saqib/personal-banking-ledger/internal/export"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/logging"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/models"
)

var (
	exportUser      string
	exportAccount   string
	exportOutput    string
	exportDelimiter string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a user's transaction history as a CSV statement",
	RunE:  exportFunc,
}

func init() {
	exportCmd.Flags().StringVarP(&exportUser, "user", "u", "", "User whose history is exported (required)")
	exportCmd.Flags().StringVarP(&exportAccount, "account", "A", "", "Restrict the statement to one account")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output CSV file (default: stdout)")
	exportCmd.Flags().StringVar(&exportDelimiter, "delimiter", ",", "CSV delimiter")
	_ = exportCmd.MarkFlagRequired("user")
}

func exportFunc(cmd *cobra.Command, args []string) error {
	delimiter := []rune(exportDelimiter)
	if len(delimiter) != 1 {
		return fmt.Errorf("delimiter must be a single character, got %q", exportDelimiter)
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	var txs []models.Transaction
	if exportAccount != "" {
		txs, err = a.ledger.AccountHistory(ctx, exportUser, exportAccount)
	} else {
		txs, err = a.ledger.List(ctx, exportUser)
	}
	if err != nil {
		return err
	}

	if exportOutput == "" {
		return export.WriteCSV(cmd.OutOrStdout(), txs, delimiter[0])
	}
	if err := export.WriteFile(exportOutput, txs, delimiter[0]); err != nil {
		return err
	}
	a.logger.Info("Statement exported",
		logging.F(logging.FieldUserID, exportUser),
		logging.F(logging.FieldCount, len(txs)),
		logging.F(logging.FieldPath, exportOutput))
	return nil
}

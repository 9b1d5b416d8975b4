package main

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/sheikh-saqib/personal-banking-ledger/internal/models"
)

var (
	predictDescription string
	predictAmount      string
)

var categorizeCmd = &cobra.Command{
	Use:   "categorize",
	Short: "Predict the category of a transaction description",
	Long: `Predict the category of a transaction description without recording
anything. Configured remote classifiers are consulted first, then the keyword
rules.`,
	RunE: categorizeFunc,
}

func init() {
	categorizeCmd.Flags().StringVarP(&predictDescription, "description", "d", "", "Transaction description (required)")
	categorizeCmd.Flags().StringVarP(&predictAmount, "amount", "a", "0.00", "Transaction amount")
	_ = categorizeCmd.MarkFlagRequired("description")
}

func categorizeFunc(cmd *cobra.Command, args []string) error {
	amount, err := decimal.NewFromString(predictAmount)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", predictAmount, err)
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := newCategorizer(cmd.Context(), cfg, nil, logger)
	if err != nil {
		return err
	}

	result := svc.Categorize(cmd.Context(), &models.Transaction{Description: predictDescription, Amount: amount})

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

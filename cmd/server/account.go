package main

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/sheikh-saqib/personal-banking-ledger/internal/models"
)

var (
	accountUser string
	accountName string
	accountType string
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage accounts",
}

var accountCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Open a zero-balance account for a user",
	RunE:  accountCreateFunc,
}

func init() {
	accountCreateCmd.Flags().StringVarP(&accountUser, "user", "u", "", "Owner user ID (required)")
	accountCreateCmd.Flags().StringVarP(&accountName, "name", "n", "", "Account name (required)")
	accountCreateCmd.Flags().StringVarP(&accountType, "type", "t", "CHECKING", "Account type")
	_ = accountCreateCmd.MarkFlagRequired("user")
	_ = accountCreateCmd.MarkFlagRequired("name")

	accountCmd.AddCommand(accountCreateCmd)
}

func accountCreateFunc(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	now := time.Now().UTC()
	acc := models.Account{
		ID:        uuid.New().String(),
		UserID:    accountUser,
		Name:      accountName,
		Type:      accountType,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.store.CreateAccount(ctx, acc); err != nil {
		return err
	}

	return json.NewEncoder(cmd.OutOrStdout()).Encode(acc)
}

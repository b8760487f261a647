package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"scrapegate/internal/accountstore"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Inspect the accounts flat file",
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the accounts the gateway would load",
	RunE:  runAccountsList,
}

func init() {
	rootCmd.AddCommand(accountsCmd)
	accountsCmd.AddCommand(accountsListCmd)
}

func runAccountsList(cmd *cobra.Command, args []string) error {
	store := accountstore.New(cfg.Paths.CookiesJSON, nil)
	if err := store.Load(cfg.Paths.AccountsTxt); err != nil {
		return err
	}

	accounts := store.ListAccounts()
	fmt.Printf("%d account(s) in %s\n\n", len(accounts), cfg.Paths.AccountsTxt)
	for _, a := range accounts {
		hasToken := "no"
		if a.HasToken() {
			hasToken = "yes"
		}
		fmt.Printf("  %-20s token=%-3s 2fa=%v\n", a.ScreenName, hasToken, a.TwoFactorSecret != "")
	}
	return nil
}

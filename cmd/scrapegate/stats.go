package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Load the account/proxy populations and print a one-shot health snapshot",
	Long: `stats builds the dispatcher's collaborators, runs a single health sweep,
and prints the same JSON payload the /api/v3/stats endpoint returns, without
starting the scheduler or listening for requests.`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	st, err := buildStack(cfg)
	if err != nil {
		return err
	}

	for _, a := range st.accounts.ListAccounts() {
		st.health.Get(a.ScreenName)
	}
	st.health.Sweep()

	out, err := json.MarshalIndent(st.disp.Stats(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"scrapegate/internal/dispatch"
	"scrapegate/internal/model"
	"scrapegate/internal/upstream"
)

var (
	dispatchUsername string
	dispatchCount    int
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Run a single operation through the dispatcher and print the result",
	Long: `dispatch builds the full stack, starts the scheduler just long enough to
run one operation at HIGH priority, and prints the outcome. Useful for
exercising the auth ladder and retry policy against a small account pool
without standing up the HTTP surface.`,
	RunE: runDispatch,
}

func init() {
	rootCmd.AddCommand(dispatchCmd)
	dispatchCmd.Flags().StringVar(&dispatchUsername, "username", "example", "subject username for the demo tweets fetch")
	dispatchCmd.Flags().IntVar(&dispatchCount, "count", 5, "tweet count for the demo fetch")
}

func runDispatch(cmd *cobra.Command, args []string) error {
	st, err := buildStack(cfg)
	if err != nil {
		return err
	}
	st.disp.Start()
	defer st.disp.Stop()

	backend := newReferenceBackend()
	username, count := dispatchUsername, dispatchCount

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	out, err := dispatch.Execute(st.disp, ctx, "cli-demo-tweets", model.PriorityHigh, "tweet",
		func(ctx context.Context, client upstream.Client, account model.Account) (any, error) {
			return backend.Tweets(ctx, client, account, username, count)
		})
	if err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}

	select {
	case res := <-out:
		if res.Err != nil {
			return fmt.Errorf("operation failed: %w", res.Err)
		}
		encoded, err := json.MarshalIndent(res.Value, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/prepforge/internal/question"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show question inventory per exam and topic",
	RunE: func(cmd *cobra.Command, args []string) error {
		replenish, _ := cmd.Flags().GetBool("replenish")
		wait, _ := cmd.Flags().GetDuration("wait")

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		if err := e.st.Ping(ctx); err != nil {
			return fmt.Errorf("database unreachable: %w", err)
		}
		rt, err := e.runtime(ctx)
		if err != nil {
			return err
		}

		if replenish {
			rt.Pipeline.Check(ctx)
			fmt.Printf("Replenishment scheduled, waiting up to %s...\n\n", wait)
		}
		sctx, cancel := context.WithTimeout(context.Background(), wait)
		defer cancel()
		if err := rt.Close(sctx); err != nil {
			fmt.Println("Some replenishment jobs did not finish:", err)
		}

		st := rt.Status()
		if len(st.Keys) == 0 {
			fmt.Println("No questions stored. Load a bank with: prepforge seed <file>")
			return nil
		}

		fmt.Printf("%-32s  %-9s  %8s  %8s  %9s  %9s  %7s\n",
			"Exam/Topic", "State", "Authored", "Cached", "On-demand", "Emergency", "Pending")
		fmt.Println(strings.Repeat("─", 96))
		for _, k := range st.Keys {
			fmt.Printf("%-32s  %-9s  %8d  %8d  %9d  %9d  %7d\n",
				truncate(k.Key.String(), 32), k.State,
				k.Counts[question.TierAuthored], k.Counts[question.TierCached],
				k.Counts[question.TierOnDemand], k.Counts[question.TierEmergency], k.PendingJobs)
		}
		fmt.Println(strings.Repeat("─", 96))
		fmt.Printf("Health: %s   Jobs completed: %d   failed: %d\n",
			st.Health, st.Workers.Completed, st.Workers.Failed)
		return nil
	},
}

func init() {
	statusCmd.Flags().Bool("replenish", false, "Schedule replenishment for low inventories before reporting")
	statusCmd.Flags().Duration("wait", 30*time.Second, "How long to wait for replenishment jobs")
}

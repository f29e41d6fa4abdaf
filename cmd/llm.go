package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/abhisek/prepforge/internal/llm"
	"github.com/abhisek/prepforge/internal/store"
	"github.com/spf13/cobra"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect recorded question generation calls",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent generation calls",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")
		since, _ := cmd.Flags().GetDuration("since")

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		opts := store.QueryOpts{Limit: limit}
		if purpose != "" {
			// Filtering happens after the query, so fetch everything in range.
			opts.Limit = 0
		}
		if since > 0 {
			opts.From = time.Now().Add(-since)
		}
		events, err := e.st.EventRepo().QueryLLMEvents(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}

		shown := 0
		for _, ev := range events {
			if purpose != "" && ev.Purpose != purpose {
				continue
			}
			if limit > 0 && shown == limit {
				break
			}
			if shown == 0 {
				fmt.Printf("%-5s  %-19s  %-22s  %-26s  %6s  %6s  %7s  %s\n",
					"ID", "Time", "Purpose", "Model", "In", "Out", "Ms", "OK")
				fmt.Println(strings.Repeat("─", 108))
			}
			ok := "✓"
			if !ev.Success {
				ok = "✗"
			}
			fmt.Printf("%-5d  %-19s  %-22s  %-26s  %6d  %6d  %7d  %s\n",
				ev.ID, ev.Timestamp.Local().Format(time.DateTime), truncate(ev.Purpose, 22),
				truncate(ev.Model, 26), ev.InputTokens, ev.OutputTokens, ev.LatencyMs, ok)
			shown++
		}
		if shown == 0 {
			fmt.Println("No generation calls recorded.")
		}
		return nil
	},
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Show the full prompt and response of one call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid ID %q: %w", args[0], err)
		}

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		ev, err := e.st.EventRepo().GetLLMEvent(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		if ev == nil {
			return fmt.Errorf("event %d not found", id)
		}

		fmt.Printf("ID:        %d\n", ev.ID)
		fmt.Printf("Time:      %s\n", ev.Timestamp.Local().Format(time.DateTime))
		fmt.Printf("Provider:  %s\n", ev.Provider)
		fmt.Printf("Model:     %s\n", ev.Model)
		fmt.Printf("Purpose:   %s\n", ev.Purpose)
		fmt.Printf("Tokens:    %d in / %d out\n", ev.InputTokens, ev.OutputTokens)
		fmt.Printf("Latency:   %dms\n", ev.LatencyMs)
		if p, ok := llm.LookupPrice(ev.Model); ok {
			fmt.Printf("Cost:      %s\n", formatCost(p.Cost(ev.InputTokens, ev.OutputTokens)))
		}
		if ev.ErrorMessage != "" {
			fmt.Printf("Error:     %s\n", ev.ErrorMessage)
		}

		section("REQUEST", ev.RequestBody)
		section("RESPONSE", ev.ResponseBody)
		return nil
	},
}

func section(title, body string) {
	sep := strings.Repeat("─", 60)
	fmt.Println()
	fmt.Println(sep)
	fmt.Println(title)
	fmt.Println(sep)
	if body == "" {
		body = "(not captured)"
	}
	fmt.Println(body)
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show token usage and estimated cost of generation",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		ctx := cmd.Context()

		byPurpose, err := e.st.EventRepo().LLMUsageByPurpose(ctx)
		if err != nil {
			return fmt.Errorf("usage by purpose: %w", err)
		}
		if len(byPurpose) == 0 {
			fmt.Println("No generation calls recorded.")
			return nil
		}

		rule := strings.Repeat("─", 78)
		fmt.Printf("%-24s  %6s  %10s  %10s  %8s\n", "Purpose", "Calls", "Input", "Output", "Avg Ms")
		fmt.Println(rule)
		var calls, in, out int
		for _, u := range byPurpose {
			fmt.Printf("%-24s  %6d  %10d  %10d  %8d\n", u.Purpose, u.Calls, u.InputTokens, u.OutputTokens, u.AvgLatencyMs)
			calls += u.Calls
			in += u.InputTokens
			out += u.OutputTokens
		}
		fmt.Println(rule)
		fmt.Printf("%-24s  %6d  %10d  %10d\n", "TOTAL", calls, in, out)

		byModel, err := e.st.EventRepo().LLMUsageByModel(ctx)
		if err != nil {
			return fmt.Errorf("usage by model: %w", err)
		}
		fmt.Printf("\n%-32s  %6s  %10s  %10s  %10s\n", "Model", "Calls", "Input", "Output", "Cost")
		fmt.Println(rule)
		var total float64
		var unpriced []string
		for _, u := range byModel {
			cost := "?"
			if p, ok := llm.LookupPrice(u.Model); ok {
				c := p.Cost(u.InputTokens, u.OutputTokens)
				total += c
				cost = formatCost(c)
			} else {
				unpriced = append(unpriced, u.Model)
			}
			fmt.Printf("%-32s  %6d  %10d  %10d  %10s\n", truncate(u.Model, 32), u.Calls, u.InputTokens, u.OutputTokens, cost)
		}
		fmt.Println(rule)
		label := "TOTAL"
		if len(unpriced) > 0 {
			label = "TOTAL (partial)"
		}
		fmt.Printf("%-32s  %6s  %10s  %10s  %10s\n", label, "", "", "", formatCost(total))
		if len(unpriced) > 0 {
			fmt.Printf("\nNo pricing for: %s\n", strings.Join(unpriced, ", "))
		}
		return nil
	},
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of calls to show")
	llmListCmd.Flags().StringP("purpose", "p", "",
		fmt.Sprintf("Filter by purpose (%s or %s)", llm.PurposeCached, llm.PurposeOnDemand))
	llmListCmd.Flags().Duration("since", 0, "Only calls within this long ago, e.g. 24h")

	llmCmd.AddCommand(llmListCmd, llmViewCmd, llmStatsCmd)
}

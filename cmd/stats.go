package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/abhisek/prepforge/internal/ability"
	"github.com/abhisek/prepforge/internal/metrics"
	"github.com/abhisek/prepforge/internal/question"
	"github.com/abhisek/prepforge/internal/store"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show question metrics, or a learner's readiness with --user",
	RunE: func(cmd *cobra.Command, args []string) error {
		exam, _ := cmd.Flags().GetString("exam")
		topic, _ := cmd.Flags().GetString("topic")
		user, _ := cmd.Flags().GetString("user")
		limit, _ := cmd.Flags().GetInt("limit")
		exam = strings.ToUpper(exam)

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		ctx := cmd.Context()

		if user != "" {
			if exam == "" {
				return fmt.Errorf("--user requires --exam")
			}
			est := ability.NewEstimator(e.st.ResponseRepo(), ability.Params{
				Window: e.cfg.AbilityWindow, Decay: e.cfg.AbilityDecay, MinHistory: e.cfg.MinHistory,
			})
			r, err := est.Readiness(ctx, user, exam)
			if err != nil {
				return fmt.Errorf("readiness: %w", err)
			}
			fmt.Printf("Readiness for %s on %s: %d/100 (%s confidence)\n", user, exam, r.Score, r.Confidence)
			fmt.Printf("  %d answers this week, %.0f%% correct, %.1fs average\n", r.Answered, r.Accuracy*100, r.AvgResponseTime)
			fmt.Printf("  %s\n", r.Recommendation)

			weak, err := est.WeakTopics(ctx, user, exam)
			if err != nil {
				return fmt.Errorf("weak topics: %w", err)
			}
			if len(weak) > 0 {
				fmt.Println("\nWeak topics")
				for _, w := range weak {
					fmt.Printf("  %-28s %3.0f%% of %d\n", w.Topic, w.Accuracy*100, w.Answered)
				}
			}
			return nil
		}

		var keys []question.Key
		if exam != "" && topic != "" {
			keys = []question.Key{{ExamType: exam, Topic: topic}}
		} else {
			all, err := e.st.PoolRepo().Keys(ctx)
			if err != nil {
				return fmt.Errorf("list keys: %w", err)
			}
			for _, k := range all {
				if exam == "" || k.ExamType == exam {
					keys = append(keys, k)
				}
			}
		}

		var rows []store.QuestionMetrics
		for _, k := range keys {
			ms, err := e.st.MetricsRepo().ListByKey(ctx, k)
			if err != nil {
				return fmt.Errorf("metrics for %s: %w", k, err)
			}
			rows = append(rows, ms...)
		}
		if len(rows) == 0 {
			fmt.Println("No answers recorded yet.")
			return nil
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].TimesAnswered > rows[j].TimesAnswered })
		if limit > 0 && len(rows) > limit {
			rows = rows[:limit]
		}

		fmt.Printf("%-38s  %-20s  %7s  %6s  %6s  %6s  %6s  %6s\n",
			"Question", "Topic", "Answers", "Acc", "Avg s", "SD s", "Diff", "Disc")
		fmt.Println(strings.Repeat("─", 106))
		for _, m := range rows {
			fmt.Printf("%-38s  %-20s  %7d  %5.0f%%  %6.1f  %6.1f  %+6.2f  %6.2f\n",
				truncate(m.QuestionID, 38), truncate(m.Topic, 20), m.TimesAnswered,
				metrics.Accuracy(m)*100, m.MeanResponseTime, metrics.ResponseTimeStdDev(m),
				m.DifficultyEstimate, m.DiscriminationEstimate)
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().String("exam", "", "Exam type filter")
	statsCmd.Flags().String("topic", "", "Topic (with --exam)")
	statsCmd.Flags().String("user", "", "Show readiness and weak topics for this learner")
	statsCmd.Flags().IntP("limit", "n", 50, "Maximum rows")
}

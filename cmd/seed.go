package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/prepforge/internal/bank"
	"github.com/abhisek/prepforge/internal/engine"
	"github.com/abhisek/prepforge/internal/question"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed <file>...",
	Short: "Load question bank files (JSON or YAML) into the inventory",
	Long: `Load pre-authored question banks into the inventory.

Items may use any of the field spellings found in bank exports
(question_text/question/prompt, options/choices/option_a.., correct_answer
as a letter, index or choice text, difficulty as a word or 1-5). Items that
fail validation are skipped and reported.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().String("exam", "", "Exam type for items that do not name one")
	seedCmd.Flags().String("topic", "", "Topic for items that do not name one")
	seedCmd.Flags().String("tier", "authored", "Tier to load into: authored or cached")
	seedCmd.Flags().BoolP("verbose", "v", false, "List every skipped item")
}

func runSeed(cmd *cobra.Command, args []string) error {
	exam, _ := cmd.Flags().GetString("exam")
	topic, _ := cmd.Flags().GetString("topic")
	tierVal, _ := cmd.Flags().GetString("tier")
	verbose, _ := cmd.Flags().GetBool("verbose")

	var tier question.Tier
	switch strings.ToLower(tierVal) {
	case "authored":
		tier = question.TierAuthored
	case "cached":
		tier = question.TierCached
	default:
		return fmt.Errorf("invalid tier %q: must be authored or cached", tierVal)
	}

	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := cmd.Context()
	rt, err := engine.Open(ctx, e.cfg, e.st, nil, e.log)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = rt.Close(sctx)
	}()

	defaults := bank.Defaults{ExamType: strings.ToUpper(exam), Topic: topic, Tier: tier}
	var loaded, skipped int
	for _, path := range args {
		res, err := bank.LoadFile(path, defaults)
		if err != nil {
			return err
		}
		if err := rt.Pipeline.Add(ctx, res.Questions...); err != nil {
			return fmt.Errorf("seed %s: %w", path, err)
		}
		loaded += len(res.Questions)
		skipped += len(res.Skipped)
		fmt.Printf("%-40s  %5d loaded  %5d skipped\n", truncate(path, 40), len(res.Questions), len(res.Skipped))
		if verbose {
			for _, s := range res.Skipped {
				fmt.Printf("    item %d: %s\n", s.Index, s.Reason)
			}
		}
	}
	fmt.Printf("\n%d questions loaded into the %s tier, %d skipped\n", loaded, tier, skipped)
	return nil
}

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/abhisek/prepforge/internal/llm"
	"github.com/abhisek/prepforge/internal/logger"
	"github.com/abhisek/prepforge/internal/question"
	"github.com/abhisek/prepforge/internal/questiongen"
	"github.com/spf13/cobra"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Preview LLM-generated questions for a topic (no database)",
	Long: `Generate and interactively answer questions for an exam topic.

This is a stateless developer tool: no database, no metrics, no events.
Useful for evaluating question quality and prompt changes.`,
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().String("exam", "", "Exam type, e.g. GMAT (required)")
	previewCmd.Flags().String("topic", "", "Topic (required)")
	previewCmd.Flags().String("band", "medium", "Difficulty band: easy, medium, hard or expert")
	previewCmd.Flags().Int("count", 5, "Number of questions to generate")
	_ = previewCmd.MarkFlagRequired("exam")
	_ = previewCmd.MarkFlagRequired("topic")
}

func runPreview(cmd *cobra.Command, args []string) error {
	exam, _ := cmd.Flags().GetString("exam")
	topic, _ := cmd.Flags().GetString("topic")
	bandVal, _ := cmd.Flags().GetString("band")
	count, _ := cmd.Flags().GetInt("count")

	band := question.Band(strings.ToLower(bandVal))
	if !band.Valid() {
		return fmt.Errorf("invalid band %q: must be easy, medium, hard or expert", bandVal)
	}

	lcfg, ok := llm.ConfigFromEnv()
	if !ok {
		return fmt.Errorf("LLM provider: %w", lcfg.Validate())
	}
	// No EventRepo: events are not recorded.
	ctx := context.Background()
	provider, err := llm.New(ctx, lcfg, nil, logger.Nop())
	if err != nil {
		return fmt.Errorf("LLM provider: %w", err)
	}

	gen := questiongen.New(provider, questiongen.DefaultConfig(), nil)
	scanner := bufio.NewScanner(os.Stdin)
	key := question.Key{ExamType: strings.ToUpper(exam), Topic: topic}

	fmt.Printf("%s, %s band, model %s\n", key, band, provider.ModelID())
	fmt.Printf("Generating %d questions...\n\n", count)

	var correct int
	var prior []string

	for i := 1; i <= count; i++ {
		q, err := gen.GenerateInput(ctx, questiongen.Input{Key: key, Band: band, Avoid: prior})
		if err != nil {
			fmt.Printf("Question %d: generation failed: %v\n\n", i, err)
			continue
		}
		prior = append(prior, q.Prompt)

		fmt.Printf("── Question %d/%d ──\n", i, count)
		fmt.Println(q.Prompt)
		for j, c := range q.Choices {
			fmt.Printf("  %s) %s\n", question.Letter(j), c)
		}

		fmt.Print("\nYour answer: ")
		if !scanner.Scan() {
			fmt.Println("\n(input closed)")
			break
		}
		answer := strings.TrimSpace(scanner.Text())
		if answer == "" {
			fmt.Println("(skipped)")
			fmt.Println()
			continue
		}

		if q.Check(answer) {
			correct++
			fmt.Println("\033[32m✓ Correct!\033[0m")
		} else {
			fmt.Printf("\033[31m✗ Wrong.\033[0m Answer: %s) %s\n", q.CorrectLetter(), q.CorrectAnswer())
		}
		if q.Explanation != "" {
			fmt.Printf("Explanation: %s\n", q.Explanation)
		}
		fmt.Println()
	}

	fmt.Printf("── Summary: %d/%d correct ──\n", correct, count)
	return nil
}

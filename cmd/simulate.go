package cmd

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/abhisek/prepforge/internal/engine"
	"github.com/abhisek/prepforge/internal/question"
	"github.com/abhisek/prepforge/internal/scale"
	"github.com/abhisek/prepforge/internal/session"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a synthetic learner against the engine",
	Long: `Run a synthetic learner of fixed ability through a practice session.

Each answer is correct with the one-parameter logistic probability for the
learner's true ability and the served question's difficulty estimate. The
report compares observed accuracy with the target accuracy and shows how
the ability estimate moved. Responses are recorded under a fresh "sim-"
learner ID.`,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().String("exam", "", "Exam type (required)")
	simulateCmd.Flags().String("topic", "", "Topic (required)")
	simulateCmd.Flags().Float64("ability", 0, "True ability of the synthetic learner, in [-3,3]")
	simulateCmd.Flags().IntP("count", "n", 50, "Number of questions")
	simulateCmd.Flags().Uint64("seed", 0, "Random seed (0 picks one)")
	_ = simulateCmd.MarkFlagRequired("exam")
	_ = simulateCmd.MarkFlagRequired("topic")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	exam, _ := cmd.Flags().GetString("exam")
	topic, _ := cmd.Flags().GetString("topic")
	theta, _ := cmd.Flags().GetFloat64("ability")
	count, _ := cmd.Flags().GetInt("count")
	seed, _ := cmd.Flags().GetUint64("seed")
	if count <= 0 {
		return fmt.Errorf("--count must be positive")
	}
	if seed == 0 {
		seed = rand.Uint64()
	}
	theta = scale.Clamp(theta)

	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := cmd.Context()
	rt, err := e.runtime(ctx)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = rt.Close(sctx)
	}()

	rng := rand.New(rand.NewPCG(seed, seed>>1))
	user := "sim-" + uuid.NewString()[:8]
	key := question.Key{ExamType: strings.ToUpper(exam), Topic: topic}
	sess := session.New(user, key.ExamType, e.cfg.RecentWindow)

	tiers := make(map[question.Tier]int)
	var sumDiff float64
	for range count {
		served, err := rt.GetNextQuestion(ctx, sess, engine.NextRequest{Topic: topic, Allowed: true})
		if err != nil {
			return err
		}
		tiers[served.Tier]++
		sumDiff += served.Difficulty

		q := served.Question
		choice := question.Letter((q.CorrectIndex + 1) % len(q.Choices))
		if rng.Float64() < scale.ProbabilityCorrect(theta, served.Difficulty) {
			choice = q.CorrectLetter()
		}
		if _, err := rt.SubmitAnswer(ctx, sess, engine.Answer{QuestionID: q.ID, Choice: choice}); err != nil {
			return err
		}
	}

	est, err := rt.Ability(ctx, user, key)
	if err != nil {
		return err
	}
	sum := sess.Summary()

	fmt.Printf("Learner %s, true ability %+.2f, seed %d\n", user, theta, seed)
	fmt.Println(strings.Repeat("─", 48))
	fmt.Printf("%-28s %8.1f%%\n", "Observed accuracy", sum.Accuracy*100)
	fmt.Printf("%-28s %8.1f%%\n", "Target accuracy", e.cfg.TargetAccuracy*100)
	fmt.Printf("%-28s %+9.2f\n", "Estimated ability", est.Ability)
	fmt.Printf("%-28s %+9.2f\n", "Mean served difficulty", sumDiff/float64(count))
	for _, t := range question.Tiers {
		if n := tiers[t]; n > 0 {
			fmt.Printf("%-28s %9d\n", "Served from "+t.String(), n)
		}
	}
	return nil
}

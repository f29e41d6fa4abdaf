package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/abhisek/prepforge/internal/ability"
	"github.com/abhisek/prepforge/internal/question"
	"github.com/abhisek/prepforge/internal/session"
	"github.com/abhisek/prepforge/internal/tui"
	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Start a practice session in the terminal",
	RunE:  runPlay,
}

func init() {
	playCmd.Flags().String("exam", "", "Exam type, e.g. GRE (required)")
	playCmd.Flags().String("topic", "", "Topic to practice (required)")
	playCmd.Flags().String("user", "local", "Learner ID")
	playCmd.Flags().IntP("count", "n", 10, "Number of questions")
	playCmd.Flags().String("log-file", filepath.Join(os.TempDir(), "prepforge-play.log"), "Where to write logs while the session owns the terminal")
	_ = playCmd.MarkFlagRequired("exam")
	_ = playCmd.MarkFlagRequired("topic")
}

func runPlay(cmd *cobra.Command, args []string) error {
	exam, _ := cmd.Flags().GetString("exam")
	topic, _ := cmd.Flags().GetString("topic")
	user, _ := cmd.Flags().GetString("user")
	count, _ := cmd.Flags().GetInt("count")
	logFile, _ := cmd.Flags().GetString("log-file")
	exam = strings.ToUpper(exam)
	if count <= 0 {
		return fmt.Errorf("--count must be positive")
	}

	e, err := openEnv(cmd, logFile)
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
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = rt.Close(sctx)
	}()

	sess := session.New(user, exam, e.cfg.RecentWindow)
	if err := tui.Run(ctx, rt, sess, topic, count); err != nil {
		return fmt.Errorf("practice session: %w", err)
	}

	if est, err := rt.Ability(ctx, user, question.Key{ExamType: exam, Topic: topic}); err == nil && est.SampleSize > 0 {
		mix := ability.Progression(est.Ability)
		fmt.Printf("Suggested next mix for %s: %v\n", topic, mix)
	}
	return nil
}

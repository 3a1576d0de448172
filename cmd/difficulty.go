package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tirgul/tirgul/internal/difficulty"
	"github.com/tirgul/tirgul/internal/ui/theme"
)

var difficultyCmd = &cobra.Command{
	Use:   "difficulty",
	Short: "Evaluate answers and recommend difficulty levels",
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Record a graded answer and decide whether the level should change",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		level, _ := f.GetString("difficulty")
		current, err := difficulty.Parse(level)
		if err != nil {
			return err
		}
		a := difficulty.Answer{Difficulty: current}
		a.UserKey, _ = f.GetString("user")
		a.TopicID, _ = f.GetString("topic")
		a.SubtopicID, _ = f.GetString("subtopic")
		a.IsCorrect, _ = f.GetBool("correct")
		a.TimeTakenSec, _ = f.GetInt("time")
		a.HintsUsed, _ = f.GetInt("hints")
		a.AttemptIndex, _ = f.GetInt("attempt")

		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		engine, err := e.engine()
		if err != nil {
			return err
		}

		d := engine.EvaluateAnswer(cmd.Context(), a)
		printDecision(cmd.OutOrStdout(), current, d)
		return d.Err
	},
}

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Suggest a starting level from recent answers",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		topic, _ := cmd.Flags().GetString("topic")

		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		engine, err := e.engine()
		if err != nil {
			return err
		}

		r := engine.Recommend(cmd.Context(), user, topic)
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, theme.Label.Render("recommended"), theme.Status(r.Difficulty.String()).Render(r.Difficulty.String()))
		fmt.Fprintln(out, theme.Label.Render("reason"), theme.Body.Render(r.Reason))
		fmt.Fprintln(out, theme.Label.Render("confidence"), theme.Body.Render(fmt.Sprintf("%.2f", r.Confidence)))
		if r.Message != "" {
			fmt.Fprintln(out, theme.Hint.Render(r.Message))
		}
		return r.Err
	},
}

func printDecision(out io.Writer, current difficulty.Difficulty, d difficulty.Decision) {
	verdict := theme.Hint.Render("stay")
	if d.ShouldAdjust {
		verdict = theme.Warning.Render(fmt.Sprintf("%s -> ", current)) +
			theme.Status(d.NewDifficulty.String()).Render(d.NewDifficulty.String())
	}
	fmt.Fprintln(out, theme.Label.Render("decision"), verdict)
	fmt.Fprintln(out, theme.Label.Render("reason"), theme.Body.Render(d.Reason))
	fmt.Fprintln(out, theme.Label.Render("confidence"), theme.Body.Render(fmt.Sprintf("%.2f", d.Confidence)))
	if s := d.Stats; s != nil {
		fmt.Fprintln(out, theme.Label.Render("accuracy"),
			theme.Body.Render(fmt.Sprintf("%.0f%% (%d/%d)", s.Accuracy, s.CorrectCount, s.TotalCount)))
		style := theme.Correct
		if s.Streak.Type == difficulty.Incorrect {
			style = theme.Incorrect
		}
		fmt.Fprintln(out, theme.Label.Render("streak"), style.Render(fmt.Sprintf("%d %s", s.Streak.Count, s.Streak.Type)))
	}
}

func init() {
	f := evaluateCmd.Flags()
	f.String("user", "", "User key")
	f.String("topic", "", "Topic ID")
	f.String("subtopic", "", "Subtopic ID")
	f.String("difficulty", "medium", "Difficulty the question was served at (easy, medium, hard)")
	f.Bool("correct", false, "Whether the answer was correct")
	f.Int("time", 0, "Seconds taken to answer")
	f.Int("hints", 0, "Hints used")
	f.Int("attempt", 1, "Attempt number for this question")
	_ = evaluateCmd.MarkFlagRequired("user")
	_ = evaluateCmd.MarkFlagRequired("topic")

	recommendCmd.Flags().String("user", "", "User key")
	recommendCmd.Flags().String("topic", "", "Topic ID (empty considers every topic)")
	_ = recommendCmd.MarkFlagRequired("user")

	difficultyCmd.AddCommand(evaluateCmd)
	difficultyCmd.AddCommand(recommendCmd)
}

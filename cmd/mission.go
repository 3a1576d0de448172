package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tirgul/tirgul/internal/mission"
	"github.com/tirgul/tirgul/internal/ui/theme"
)

var missionCmd = &cobra.Command{
	Use:   "mission",
	Short: "Assign missions and record progress on them",
}

var missionAssignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Assign a practice or lecture mission to a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		nm := mission.NewMission{}
		nm.UserKey, _ = f.GetString("user")
		nm.Title, _ = f.GetString("title")
		typ, _ := f.GetString("type")
		nm.Type = mission.Type(typ)
		cfg, _ := f.GetString("config")
		nm.Config = json.RawMessage(cfg)
		nm.Points, _ = f.GetInt("points")
		if dl, _ := f.GetString("deadline"); dl != "" {
			t, err := parseDeadline(dl)
			if err != nil {
				return err
			}
			nm.Deadline = &t
		}

		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		m, err := e.tracker().AssignMission(cmd.Context(), nm)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), theme.Correct.Render("assigned"), theme.Body.Render(m.ID),
			theme.Hint.Render(fmt.Sprintf("(%d required)", m.Progress.RequiredCount)))
		return nil
	},
}

var missionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's missions",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		t := e.tracker()
		ms, err := t.ListMissions(cmd.Context(), user)
		if err != nil {
			return err
		}
		points, err := t.UserPoints(cmd.Context(), user)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(ms) == 0 {
			fmt.Fprintln(out, theme.Hint.Render("no missions"))
			return nil
		}
		fmt.Fprintln(out, missionTable(ms, time.Now()))
		fmt.Fprintln(out, theme.Label.Render("points"), theme.Correct.Render(fmt.Sprint(points)))
		return nil
	},
}

var missionShowCmd = &cobra.Command{
	Use:   "show <mission-id>",
	Short: "Show a mission with its attempt or section history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		d, err := e.tracker().GetMissionDetails(cmd.Context(), args[0], user)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), detailView(d, time.Now()))
		return nil
	},
}

var missionAttemptCmd = &cobra.Command{
	Use:   "attempt <mission-id>",
	Short: "Record an answer to a practice mission question",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		user, _ := f.GetString("user")
		question, _ := f.GetString("question")
		text, _ := f.GetString("text")
		correct, _ := f.GetBool("correct")

		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		r := e.tracker().RecordPracticeAttempt(cmd.Context(), args[0], user, question, text, correct)
		printResult(cmd, r.Success, r.Completed, r.Message)
		return r.Err
	},
}

var missionSectionCmd = &cobra.Command{
	Use:   "section <mission-id>",
	Short: "Record a completed lecture section",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		user, _ := f.GetString("user")
		lecture, _ := f.GetString("lecture")
		section, _ := f.GetString("section")
		spent, _ := f.GetInt("time")

		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		r := e.tracker().RecordLectureSection(cmd.Context(), args[0], user, lecture, section, spent)
		printResult(cmd, r.Success, r.Completed, r.Message)
		return r.Err
	},
}

func printResult(cmd *cobra.Command, success, completed bool, msg string) {
	style := theme.Body
	switch {
	case !success:
		style = theme.Incorrect
	case completed:
		style = theme.Correct
	}
	fmt.Fprintln(cmd.OutOrStdout(), style.Render(msg))
}

// parseDeadline accepts RFC 3339 timestamps or plain dates, which mean the
// end of that day in UTC.
func parseDeadline(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid deadline %q: use YYYY-MM-DD or RFC 3339", s)
	}
	return d.Add(24*time.Hour - time.Second), nil
}

func init() {
	f := missionAssignCmd.Flags()
	f.String("user", "", "User key")
	f.String("title", "", "Mission title")
	f.String("type", string(mission.TypePractice), "Mission type (practice, lecture)")
	f.String("config", "", `Mission config JSON, e.g. {"questionCount": 10}`)
	f.Int("points", 0, "Points awarded on completion")
	f.String("deadline", "", "Optional deadline (YYYY-MM-DD or RFC 3339)")
	for _, name := range []string{"user", "title", "config"} {
		_ = missionAssignCmd.MarkFlagRequired(name)
	}

	for _, c := range []*cobra.Command{missionListCmd, missionShowCmd, missionAttemptCmd, missionSectionCmd} {
		c.Flags().String("user", "", "User key")
		_ = c.MarkFlagRequired("user")
	}

	f = missionAttemptCmd.Flags()
	f.String("question", "", "Question ID")
	f.String("text", "", "Question text")
	f.Bool("correct", false, "Whether the answer was correct")
	_ = missionAttemptCmd.MarkFlagRequired("question")

	f = missionSectionCmd.Flags()
	f.String("lecture", "", "Lecture ID")
	f.String("section", "", "Section ID")
	f.Int("time", 0, "Seconds spent on the section")
	_ = missionSectionCmd.MarkFlagRequired("lecture")
	_ = missionSectionCmd.MarkFlagRequired("section")

	missionCmd.AddCommand(missionAssignCmd)
	missionCmd.AddCommand(missionListCmd)
	missionCmd.AddCommand(missionShowCmd)
	missionCmd.AddCommand(missionAttemptCmd)
	missionCmd.AddCommand(missionSectionCmd)
}

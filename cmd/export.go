package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tirgul/tirgul/internal/report"
	"github.com/tirgul/tirgul/internal/ui/theme"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a user's missions and progress to an Excel workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		path, _ := cmd.Flags().GetString("out")

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

		wb := report.Workbook{UserKey: user, Points: points, Missions: ms, Now: time.Now()}
		if err := report.WriteFile(path, wb); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), theme.Correct.Render("exported"),
			theme.Body.Render(fmt.Sprintf("%d missions to %s", len(ms), path)))
		return nil
	},
}

func init() {
	exportCmd.Flags().String("user", "", "User key")
	exportCmd.Flags().String("out", "report.xlsx", "Output file")
	_ = exportCmd.MarkFlagRequired("user")
}

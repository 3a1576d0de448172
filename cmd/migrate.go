package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tirgul/tirgul/internal/store"
	"github.com/tirgul/tirgul/internal/ui/theme"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		// Open already migrated; run again so the command is explicit.
		if err := e.store.Migrate(cmd.Context()); err != nil {
			return err
		}
		tables, err := store.Tables()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, theme.Title.Render("schema up to date"), theme.Hint.Render("("+e.store.Dialect()+")"))
		for _, t := range tables {
			fmt.Fprintln(out, "  "+theme.Body.Render(t.Name))
		}
		return nil
	},
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eringen/shire/scaffold"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Write a starter config, .env and public directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		data, err := scaffold.NewData(dir)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Creating shire site in %s\n\n", dir)
		if err := scaffold.Generate(dir, data, out); err != nil {
			return err
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Done! Next steps:")
		fmt.Fprintf(out, "  cd %s\n", dir)
		fmt.Fprintln(out, "  edit .env and set SHIRE_ADMIN_PASSWORD")
		fmt.Fprintln(out, "  shire serve")
		return nil
	},
}

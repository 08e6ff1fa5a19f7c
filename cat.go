package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newCatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cat PATH",
		Short: "Print the head content of a file in the repository",
		Long: `Fetch the file at PATH, relative to --url, and write it to stdout. With
--verbose its properties are listed too.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := requireURL()
			if err != nil {
				return err
			}

			props, err := newSession(url).GetFile(cmd.Context(), args[0], os.Stdout)
			if err != nil {
				return err
			}
			for _, name := range props.Names() {
				Log("%s = %s", name, props[name])
			}
			return nil
		},
	}
}

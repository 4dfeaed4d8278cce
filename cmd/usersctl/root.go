package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "usersctl",
		Short:        "Call the user service procedures from the command line",
		SilenceUsage: true,
	}
	root.AddCommand(newUsersCmd())
	return root
}

package core

import (
	"fmt"

	"github.com/bkdbm/dbmeta/src/common/output"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			return output.PrintFormatted(w, format(), VersionInfo.Map(), func() error {
				fmt.Fprintln(w, VersionInfo.Full())
				return nil
			})
		},
	}
}

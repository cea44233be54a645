package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/launchpad/internal/runtime/procdir"
)

func newPsCmd(ctx *context) *cobra.Command {
	return &cobra.Command{
		Use:   "ps <image>",
		Short: "List process IDs running under an image name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pids, err := ctx.directory().ListPIDs(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, pid := range pids {
				fmt.Fprintln(out, pid)
			}
			return nil
		},
	}
}

func newKillCmd(ctx *context) *cobra.Command {
	return &cobra.Command{
		Use:   "kill <image>",
		Short: "Terminate every process running under an image name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := ctx.log(cmd.ErrOrStderr(), false)
			n, err := procdir.TerminateByName(cmd.Context(), ctx.directory(), args[0], log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "terminated %d process(es) named %s\n", n, args[0])
			return nil
		},
	}
}

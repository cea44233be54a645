package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newValidateCmd(ctx *context) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the service list and print the start order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := ctx.loadManifest()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Service list %s (version %s)\n", manifest.Source, manifest.Version)
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "#\tSERVICE\tEXECUTABLE\tWORKDIR\tARGS\tHEALTH")
			for i, svc := range manifest.Services {
				health := "-"
				if svc.HealthCheck.Active() {
					health = fmt.Sprintf("%s (%dx%dms)", svc.HealthCheck.URL(), svc.HealthCheck.MaxAttempts, svc.HealthCheck.RetryIntervalMs)
				}
				args := "-"
				if len(svc.Arguments) > 0 {
					args = strings.Join(svc.Arguments, " ")
				}
				workdir := svc.WorkingDirectory
				if workdir == "" {
					workdir = "."
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", i+1, svc.Name, svc.Executable, workdir, args, health)
			}
			return w.Flush()
		},
	}
}

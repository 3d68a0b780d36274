package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"yoink/internal/deps"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check external tool availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			statuses := deps.CheckBinaries(deps.Requirements(cfg))
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, status := range statuses {
				kind := statusOK
				detail := status.Command
				if !status.Available {
					detail = status.Detail
					if status.Optional {
						kind = statusWarn
					} else {
						kind = statusError
					}
				}
				fmt.Fprintln(out, renderStatusLine(status.Name, kind, detail, colorize))
			}
			return deps.Require(statuses)
		},
	}
}

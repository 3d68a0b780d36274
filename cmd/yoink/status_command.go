package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("daemon not reachable: %w (is yoinkd running?)", err)
			}
			if asJSON {
				return writeJSON(cmd, status)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(out, line)
			}
			runningKind := statusError
			if status.Running {
				runningKind = statusOK
			}
			fmt.Fprintln(out, renderStatusLine("Running", runningKind, yesNo(status.Running), colorize))
			fmt.Fprintln(out, renderStatusLine("PID", statusInfo, strconv.Itoa(status.PID), colorize))
			fmt.Fprintln(out, renderStatusLine("Queue database", statusInfo, status.QueueDBPath, colorize))
			fmt.Fprintln(out, renderStatusLine("Lock file", statusInfo, status.LockFilePath, colorize))
			if status.WebhookPath != "" {
				fmt.Fprintln(out, renderStatusLine("Webhook path", statusInfo, status.WebhookPath, colorize))
			}

			for _, line := range renderSectionHeader("Stages", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, stage := range status.Workflow.StageHealth {
				kind := statusOK
				detail := ""
				if !stage.Ready {
					kind = statusError
					detail = stage.Detail
				}
				fmt.Fprintln(out, renderStatusLine(stage.Name, kind, detail, colorize))
			}
			if status.Workflow.LastError != "" {
				fmt.Fprintln(out, renderStatusLine("Last error", statusWarn, status.Workflow.LastError, colorize))
			}

			for _, line := range renderSectionHeader("Queue", colorize) {
				fmt.Fprintln(out, line)
			}
			rows := buildQueueStatusRows(status.Workflow.QueueStats)
			if len(rows) == 0 {
				fmt.Fprintln(out, statusIndent+"Queue is empty")
			} else {
				for _, row := range rows {
					fmt.Fprintln(out, renderStatusLine(row[0], statusInfo, row[1], colorize))
				}
			}

			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, dep := range status.Dependencies {
				kind := statusOK
				detail := dep.Command
				if !dep.Available {
					if dep.Optional {
						kind = statusWarn
					} else {
						kind = statusError
					}
					detail = dep.Detail
				}
				fmt.Fprintln(out, renderStatusLine(dep.Name, kind, detail, colorize))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of formatted output")
	return cmd
}

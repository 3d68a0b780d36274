package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"yoink/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test push notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
				return errors.New("ntfy topic not configured; set notifications.ntfy_topic")
			}

			callCtx, cancel := commandTimeout(cmd)
			defer cancel()
			if err := notifications.NewService(cfg).TestNotification(callCtx); err != nil {
				return fmt.Errorf("send test notification: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
			return nil
		},
	}
}

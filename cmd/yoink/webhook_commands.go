package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"yoink/internal/telegram"
)

func newWebhookCommand(ctx *commandContext) *cobra.Command {
	webhookCmd := &cobra.Command{
		Use:   "webhook",
		Short: "Manage the Telegram webhook registration",
	}

	webhookCmd.AddCommand(newWebhookSetCommand(ctx))
	webhookCmd.AddCommand(newWebhookInfoCommand(ctx))
	webhookCmd.AddCommand(newWebhookDeleteCommand(ctx))

	return webhookCmd
}

func (c *commandContext) botClient() (*telegram.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return telegram.New(cfg.Telegram.Token, telegram.WithBaseURL(cfg.Telegram.APIBaseURL))
}

func newWebhookSetCommand(ctx *commandContext) *cobra.Command {
	var baseURL string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Register the webhook with the Bot API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			url := cfg.WebhookURL()
			if trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/"); trimmed != "" {
				url = trimmed + cfg.WebhookPath()
			}
			if url == "" {
				return errors.New("no webhook base url; set telegram.webhook_base_url or pass --base-url")
			}

			bot, err := ctx.botClient()
			if err != nil {
				return err
			}
			callCtx, cancel := commandTimeout(cmd)
			defer cancel()
			if err := bot.SetWebhook(callCtx, url); err != nil {
				return fmt.Errorf("set webhook: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Webhook registered: %s\n", url)
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "", "Override the configured public base URL")
	return cmd
}

func newWebhookInfoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the current webhook registration",
		RunE: func(cmd *cobra.Command, args []string) error {
			bot, err := ctx.botClient()
			if err != nil {
				return err
			}
			callCtx, cancel := commandTimeout(cmd)
			defer cancel()
			me, err := bot.GetMe(callCtx)
			if err != nil {
				return fmt.Errorf("get bot identity: %w", err)
			}
			info, err := bot.GetWebhookInfo(callCtx)
			if err != nil {
				return fmt.Errorf("get webhook info: %w", err)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintln(out, renderStatusLine("Bot", statusInfo, "@"+me.Username, colorize))
			if info.URL == "" {
				fmt.Fprintln(out, renderStatusLine("Webhook", statusWarn, "not registered", colorize))
				return nil
			}
			fmt.Fprintln(out, renderStatusLine("URL", statusOK, info.URL, colorize))
			fmt.Fprintln(out, renderStatusLine("Pending updates", statusInfo, fmt.Sprintf("%d", info.PendingUpdateCount), colorize))
			if info.LastErrorMessage != "" {
				detail := info.LastErrorMessage
				if info.LastErrorDate > 0 {
					detail = fmt.Sprintf("%s (%s)", detail, time.Unix(info.LastErrorDate, 0).Format(time.RFC3339))
				}
				fmt.Fprintln(out, renderStatusLine("Last error", statusError, detail, colorize))
			}
			return nil
		},
	}
}

func newWebhookDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Remove the webhook registration",
		RunE: func(cmd *cobra.Command, args []string) error {
			bot, err := ctx.botClient()
			if err != nil {
				return err
			}
			callCtx, cancel := commandTimeout(cmd)
			defer cancel()
			if err := bot.DeleteWebhook(callCtx); err != nil {
				return fmt.Errorf("delete webhook: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Webhook removed")
			return nil
		},
	}
}

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(c context.Context, s *session) error {
				if strings.TrimSpace(s.cfg.Notifications.NtfyTopic) == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "Notification not sent: notifications.ntfy_topic is not set")
					return nil
				}
				if err := s.notify.TestNotification(c); err != nil {
					return fmt.Errorf("send test notification: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
				return nil
			})
		},
	}
}

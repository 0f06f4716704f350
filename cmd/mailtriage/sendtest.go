package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mailtriage/internal/config"
	"mailtriage/internal/sender"
	"mailtriage/pkg/logger"
	"mailtriage/pkg/trace"
)

const testMailBody = `Hello,

This is a test message from mailtriage.

Features:
1. Model-based mail analysis
2. Automatic priority assessment
3. Automatic reply drafting
4. SMTP delivery

If you received this message, outbound mail is working.
`

func sendTestCmd() *cobra.Command {
	var to string
	var subject string

	cmd := &cobra.Command{
		Use:   "send-test",
		Short: "Send a test message through the configured SMTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if to == "" {
				return errors.New("--to is required")
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.ValidateSMTP(); err != nil {
				return err
			}

			log := logger.NewLogger()
			defer log.Sync()

			ctx := trace.WithContext(cmd.Context(), trace.GenerateTraceID())
			d := sender.NewDispatcher(cfg.SMTP.From, sender.NewSMTPTransport(cfg.SMTP, log), log)
			if !d.Send(ctx, to, subject, testMailBody, nil, nil) {
				fmt.Fprintln(cmd.ErrOrStderr(), "Test message failed.")
				return errors.New("test message was not delivered")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Test message sent.")
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "recipient address")
	cmd.Flags().StringVar(&subject, "subject", "mailtriage test message", "subject line")
	return cmd
}

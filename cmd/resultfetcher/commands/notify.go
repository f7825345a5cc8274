package commands

import (
	"fmt"
	"resultfetcher/internal/notify"

	"github.com/spf13/cobra"
)

var notifyTestAddress *string

func init() {
	notifyTestAddress = notifyCmd.Flags().String("test", "", "Send a test email to this address with the configured SMTP settings.")
	notifyCmd.MarkFlagRequired("test")
	rootCmd.AddCommand(notifyCmd)
}

var notifyCmd = &cobra.Command{
	Use:   "notify --test <address>",
	Short: "Checks the e-mail settings by sending a test email.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := current.cfg.Email
		if !cfg.Enabled {
			return fmt.Errorf("email notifications are disabled, set email.enabled first")
		}

		notifier := notify.NewNotifier(notify.NewSmtpSender(cfg.Smtp), cfg.Options(), current.tel)
		err := notifier.SendCheck(cmd.Context(), *notifyTestAddress, cfg.Smtp)
		if err != nil {
			return fmt.Errorf("send test email: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Test email sent to %s.\n", *notifyTestAddress)
		return nil
	},
}

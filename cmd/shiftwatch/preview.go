package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pauljones0/shift-code-watcher/internal/config"
	"github.com/pauljones0/shift-code-watcher/internal/models"
	"github.com/pauljones0/shift-code-watcher/internal/notifier"
)

var sampleCodes = []models.CodeRecord{
	{Code: "T9RBB-WT3F3-W6KHZ-9BSHT-9FT5Z", Reward: "3 Golden Keys", Added: "Nov 20, 2025", Expiry: "Nov 27, 2025"},
	{Code: "K9JBB-XXTBT-W6KHZ-3BJTB-9KZC5", Reward: "1 Golden Key", Added: "Nov 21, 2025", Expiry: "Unknown"},
}

func previewCommand() *cobra.Command {
	var (
		format    string
		recipient string
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Print the notification e-mail rendered for sample codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			msg, err := notifier.RenderEmail(recipient, config.DefaultCodesURL, sampleCodes)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "To: %s\nSubject: %s\n\n", msg.To, msg.Subject)
			switch format {
			case "html":
				fmt.Fprint(out, msg.HTMLBody)
			case "text":
				fmt.Fprint(out, msg.TextBody)
			default:
				return fmt.Errorf("unknown format %q: must be text or html", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "body to print: text or html")
	cmd.Flags().StringVar(&recipient, "to", "you@example.com", "recipient shown in the preview")
	return cmd
}

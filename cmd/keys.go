package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"pgpgate/internal/pgp"
)

var KeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Shows which keystore keys are bound to the configured identities",
	RunE: func(cmd *cobra.Command, args []string) error {
		initLogger()
		spinner, cleanup := startSpinner("Inspecting keystore...")
		defer cleanup()

		ctx := cmd.Context()
		session, _, err := loadSession(ctx)
		if err != nil {
			return Logger.ErrorfAndReturn("failed to initialize: %v", err)
		}

		msg := roleLine("Sender   ", session.SenderEmail(), session.SenderKey) + "\n" +
			roleLine("Recipient", session.RecipientEmail(), session.RecipientKey)
		spinner.FinalMSG = msg
		return nil
	},
}

func roleLine(label, email string, lookup func() (pgp.KeyRecord, error)) string {
	key, err := lookup()
	if err != nil {
		return color.RedString("✗") + " " + label + " " + color.YellowString(email) + ": no key bound"
	}

	line := color.GreenString("✓") + " " + label + " " + color.YellowString(email)
	for i, fp := range key.Fingerprints {
		prefix := "\n    subkey  "
		if i == 0 {
			prefix = "\n    primary "
		}
		line += prefix + fp
	}
	return line
}

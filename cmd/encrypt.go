package cmd

import (
	"errors"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	gerrors "pgpgate/internal/errors"
	"pgpgate/internal/workflows"
)

var encryptArchivePath string

var EncryptCmd = &cobra.Command{
	Use:   "encrypt <source> <destination>",
	Short: "Encrypts a file for the configured recipient and signs it as the sender",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		initLogger()
		spinner, cleanup := startSpinner("Encrypting and signing...")
		defer cleanup()

		ctx := cmd.Context()
		session, _, err := loadSession(ctx)
		if err != nil {
			return Logger.ErrorfAndReturn("failed to initialize: %v", err)
		}

		result, err := workflows.EncryptAndSign(ctx, session, workflows.EncryptOptions{
			SourcePath:      args[0],
			DestinationPath: args[1],
			ArchivePath:     encryptArchivePath,
		})
		if errors.Is(err, gerrors.ErrEncryptionRecipient) {
			spinner.FinalMSG = color.RedString("✗") + " The recipient key was rejected; nothing was written\n" +
				color.CyanString("→") + " Check the recipient key in the keystore"
			return err
		}
		if err != nil {
			return Logger.ErrorfAndReturn("encryption failed: %v", err)
		}

		msg := color.GreenString("✓") + " Encrypted and signed " + color.YellowString(args[0])
		if result.Archived {
			msg += "\n" + color.CyanString("→") + " Source archived to " + color.YellowString(encryptArchivePath)
		} else if result.ArchiveWarning != "" {
			msg += "\n" + color.YellowString("!") + " Source left in place: " + result.ArchiveWarning
		}
		spinner.FinalMSG = msg
		return nil
	},
}

func init() {
	EncryptCmd.Flags().StringVarP(&encryptArchivePath, "archive", "a", "", "move the source file here after success")
}

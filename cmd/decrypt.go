package cmd

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	gerrors "pgpgate/internal/errors"
	"pgpgate/internal/workflows"
)

var decryptArchivePath string

var DecryptCmd = &cobra.Command{
	Use:   "decrypt <source> <destination>",
	Short: "Decrypts a file and releases it only if the sender authenticates",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		initLogger()
		spinner, cleanup := startSpinner("Decrypting and verifying...")
		defer cleanup()

		ctx := cmd.Context()
		session, _, err := loadSession(ctx)
		if err != nil {
			return Logger.ErrorfAndReturn("failed to initialize: %v", err)
		}

		result, err := workflows.DecryptAndVerify(ctx, session, workflows.DecryptOptions{
			SourcePath:      args[0],
			DestinationPath: args[1],
			ArchivePath:     decryptArchivePath,
		})
		if errors.Is(err, gerrors.ErrSenderAuthentication) {
			spinner.FinalMSG = color.RedString("✗") + " Sender authentication failed - decrypted output destroyed\n" +
				color.CyanString("→") + " No signature matched the key of " + color.YellowString(session.SenderEmail())
			return err
		}
		if err != nil {
			return Logger.ErrorfAndReturn("decryption failed: %v", err)
		}

		msg := color.GreenString("✓") + " Decrypted " + color.YellowString(args[0]) +
			fmt.Sprintf(" (%d matching signature(s))", result.MatchCount)
		if result.Archived {
			msg += "\n" + color.CyanString("→") + " Source archived to " + color.YellowString(decryptArchivePath)
		} else if result.ArchiveWarning != "" {
			msg += "\n" + color.YellowString("!") + " Source left in place: " + result.ArchiveWarning
		}
		spinner.FinalMSG = msg
		return nil
	},
}

func init() {
	DecryptCmd.Flags().StringVarP(&decryptArchivePath, "archive", "a", "", "move the source file here after processing")
}

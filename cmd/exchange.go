package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"pgpgate/internal/configs"
	"pgpgate/internal/workflows"
)

var (
	exchangeDirection string
	exchangeSource    string
	exchangeDest      string
	exchangeArchive   string
)

var ExchangeCmd = &cobra.Command{
	Use:   "exchange",
	Short: "Processes every eligible file in a folder, continuing past per-file failures",
	Long: `Sweeps a folder and processes each eligible file once.

With --direction in, encrypted files (.pgp/.asc/.gpg) are decrypted and
authenticated. With --direction out, plaintext files are encrypted and
signed. Folder defaults come from the settings file: InboundFolderPath or
OutboundFolderPath for the source, ArchiveFolderPath for the archive.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		initLogger()
		spinner, cleanup := startSpinner("Processing folder...")
		defer cleanup()

		direction := workflows.DirectionInbound
		switch exchangeDirection {
		case "in":
		case "out":
			direction = workflows.DirectionOutbound
		default:
			return Logger.ErrorfAndReturn("invalid --direction %q: want \"in\" or \"out\"", exchangeDirection)
		}

		ctx := cmd.Context()
		session, settings, err := loadSession(ctx)
		if err != nil {
			return Logger.ErrorfAndReturn("failed to initialize: %v", err)
		}

		source := exchangeSource
		if source == "" {
			if direction == workflows.DirectionInbound {
				source = settings.Trimmed(configs.KeyInboundFolder)
			} else {
				source = settings.Trimmed(configs.KeyOutboundFolder)
			}
		}
		archive := exchangeArchive
		if archive == "" {
			archive = settings.Trimmed(configs.KeyArchiveFolder)
		}
		if source == "" || exchangeDest == "" {
			return Logger.ErrorfAndReturn("a source folder (flag or settings) and --dest are required")
		}

		result, err := workflows.RunBatch(ctx, session, workflows.BatchOptions{
			Direction:         direction,
			SourceFolder:      source,
			DestinationFolder: exchangeDest,
			ArchiveFolder:     archive,
		})
		if err != nil {
			return Logger.ErrorfAndReturn("batch aborted: %v", err)
		}

		msg := color.GreenString("✓") + fmt.Sprintf(" Processed %d file(s)", result.Succeeded)
		if result.Failed > 0 {
			msg = color.YellowString("!") + fmt.Sprintf(" Processed %d file(s), %d failed:", result.Succeeded, result.Failed)
			for _, outcome := range result.Outcomes {
				if outcome.Err != nil {
					msg += "\n" + color.RedString("✗") + " " + outcome.Source + ": " + outcome.Err.Error()
				}
			}
		}
		spinner.FinalMSG = msg
		return nil
	},
}

func init() {
	ExchangeCmd.Flags().StringVar(&exchangeDirection, "direction", "in", "\"in\" to decrypt received files, \"out\" to encrypt outgoing files")
	ExchangeCmd.Flags().StringVar(&exchangeSource, "source", "", "folder to sweep (defaults to the settings folder for the direction)")
	ExchangeCmd.Flags().StringVar(&exchangeDest, "dest", "", "folder receiving the processed files")
	ExchangeCmd.Flags().StringVar(&exchangeArchive, "archive", "", "folder receiving processed source files (defaults to ArchiveFolderPath)")
}

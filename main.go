package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pgpgate/cmd"
)

var rootCmd = &cobra.Command{
	Use:   "pgpgate",
	Short: "pgpgate - secure PGP file exchange with sender authentication.",
	Long: `pgpgate encrypts and signs outbound files, decrypts and verifies inbound
files, and only releases decrypted plaintext when the signature is traceable
to the configured sender key.

Usage:
  pgpgate <command> [flags]

Available Commands:
  encrypt    Encrypt and sign a single file
  decrypt    Decrypt and authenticate a single file
  exchange   Process every eligible file in a folder
  keys       Show which keys are bound to the configured identities

Run 'pgpgate help <command>' for more details on a specific command.
`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Run 'pgpgate --help' to see available commands.")
	},
}

func main() {
	rootCmd.AddCommand(cmd.EncryptCmd)
	rootCmd.AddCommand(cmd.DecryptCmd)
	rootCmd.AddCommand(cmd.ExchangeCmd)
	rootCmd.AddCommand(cmd.KeysCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

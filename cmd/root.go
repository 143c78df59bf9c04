package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the inboxreader application
var rootCmd = &cobra.Command{
	Use:   "inboxreader",
	Short: "Read-only MCP server for a JMAP mailbox",
	Long: `inboxreader exposes a JMAP mailbox (Fastmail by default) to AI assistants
as three read-only MCP tools: list the inbox, search by keyword and read a
message.

Every call carries two credentials: the server-wide bearer token and the
caller's own mail provider token.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "inboxreader version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}

// Package jlsitecmder
package jlsitecmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/jlsoftware/jlsite/cmd/jlsite/chat"
	configcmder "github.com/jlsoftware/jlsite/cmd/jlsite/config"
	quotescmder "github.com/jlsoftware/jlsite/cmd/jlsite/quotes"
	servecmder "github.com/jlsoftware/jlsite/cmd/jlsite/serve"
	versioncmder "github.com/jlsoftware/jlsite/cmd/version"
)

const jlsiteLongDesc string = `jlsite runs the JL Software site backend and talks to it from the terminal.

Run services using:
  jlsite serve          Run the API server with the chat relay

Use the site from the terminal:
  jlsite chat           Chat with the site assistant
  jlsite quotes list    Work the quotation requests`

const jlsiteShortDesc string = "jlsite - JL Software site backend"

func NewJlsiteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "jlsite",
		Short:        jlsiteShortDesc,
		Long:         jlsiteLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .jlsite config directory")

	// Add subcommands
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(quotescmder.NewQuotesCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}

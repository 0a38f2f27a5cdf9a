// Package quotescmder provides the quotes command for working the quotation
// requests stored by the API server.
package quotescmder

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/jlsoftware/jlsite/pkg/config"
)

const quotesLongDesc string = `Work the quotation requests submitted from the site.

Subcommands talk to a running jlsite API server. Admin routes need the
server's admin key, taken from --admin-key, JLSITE_SERVER_ADMIN_KEY or
server.admin_key in config.toml.

Examples:
  jlsite quotes list --status pending
  jlsite quotes summary
  jlsite quotes show 3f6c2a9e-...
  jlsite quotes status 3f6c2a9e-... contacted
  jlsite quotes submit --name "Ana Lima" --email ana@example.com --phone 555-0100 \
    --service-id pos --service-name "POS Systems"`

const quotesShortDesc string = "Manage quotation requests"

// quotesCommander holds the API connection settings shared by every
// subcommand.
type quotesCommander struct {
	apiTarget string
	adminKey  string

	httpClient *http.Client
}

var clientFlags = []string{
	config.FlagAPITarget,
	config.FlagAdminKey,
}

func NewQuotesCmd() *cobra.Command {
	cmder := &quotesCommander{
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}

	cmd := &cobra.Command{
		Use:   "quotes",
		Short: quotesShortDesc,
		Long:  quotesLongDesc,
	}

	cmd.AddCommand(newListCmd(cmder))
	cmd.AddCommand(newSummaryCmd(cmder))
	cmd.AddCommand(newShowCmd(cmder))
	cmd.AddCommand(newStatusCmd(cmder))
	cmd.AddCommand(newDeleteCmd(cmder))
	cmd.AddCommand(newSubmitCmd(cmder))

	return cmd
}

// addClientFlags registers the connection flags on a subcommand.
func (c *quotesCommander) addClientFlags(cmd *cobra.Command) {
	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &c.apiTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagAdminKey, &c.adminKey)
}

// resolve fills the connection settings from flags, env and config.toml.
func (c *quotesCommander) resolve(cmd *cobra.Command, _ []string) error {
	configDir, _ := cmd.Flags().GetString("config-dir")
	v, err := config.InitViper(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	config.BindRegisteredFlags(v, cmd, config.Flags, clientFlags)

	c.apiTarget = v.GetString("client.api_target")
	c.adminKey = v.GetString("server.admin_key")
	return nil
}

func (c *quotesCommander) client() *apiClient {
	return &apiClient{
		target:     c.apiTarget,
		adminKey:   c.adminKey,
		httpClient: c.httpClient,
	}
}

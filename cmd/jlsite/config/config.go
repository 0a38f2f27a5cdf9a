// Package configcmder provides the config command for managing persistent
// jlsite configuration stored in the .jlsite/ directory.
package configcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jlsoftware/jlsite/pkg/cliui"
	"github.com/jlsoftware/jlsite/pkg/config"
)

const configLongDesc string = `Manage persistent jlsite configuration.

Configuration is stored as config.toml in the .jlsite/ directory and provides
default values for command flags. Environment variables prefixed with JLSITE_
(e.g. JLSITE_RELAY_API_KEY) override the file, and CLI flags override both.

Keys use dotted notation matching the TOML section structure:
  chat.endpoint, chat.publishable_key, chat.timeout,
  server.listen, server.admin_key,
  relay.upstream, relay.api_key, relay.model, relay.system_prompt_file,
  storage.sqlite_path, storage.postgres_dsn,
  events.brokers, events.topic,
  client.api_target

Use subcommands to get, set, or list configuration values:
  jlsite config set <key> <value>    Set a configuration value
  jlsite config get <key>            Get a configuration value
  jlsite config list                 List all configuration values
  jlsite config preset <name>        Point the relay at a known provider

Examples:
  jlsite config set relay.model gpt-4o-mini
  jlsite config get server.listen
  jlsite config preset openrouter
  jlsite config list`

const configShortDesc string = "Manage persistent jlsite configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newPresetCmd())

	return cmd
}

func validateKey(key string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}
	return nil
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func printTarget(cmd *cobra.Command, cfger *config.Configer) {
	out := cmd.OutOrStdout()
	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(out, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	fmt.Fprintf(out, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}

// displayValue masks secrets so list and get can be shared on screen.
func displayValue(key, value string) string {
	if value == "" || !config.IsSecretKey(key) {
		return value
	}
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}

package configcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jlsoftware/jlsite/pkg/cliui"
	"github.com/jlsoftware/jlsite/pkg/config"
)

const presetLongDesc string = `Point the chat relay at a known OpenAI-compatible provider.

Sets relay.upstream and relay.model for the named provider and keeps
every other value. The provider's API key still has to be set with
"jlsite config set relay.api_key" or JLSITE_RELAY_API_KEY.

Presets: openai, openrouter, ollama

Examples:
  jlsite config preset openrouter`

const presetShortDesc string = "Configure the relay for a known provider"

func newPresetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "preset <name>",
		Short:     presetShortDesc,
		Long:      presetLongDesc,
		Args:      cobra.ExactArgs(1),
		ValidArgs: config.ValidPresetNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runPreset(cmd, args[0], configDir)
		},
	}

	return cmd
}

func runPreset(cmd *cobra.Command, name, configDir string) error {
	preset, err := config.PresetConfig(name)
	if err != nil {
		return err
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	printTarget(cmd, cfger)

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return err
	}
	cfg.Relay.Upstream = preset.Relay.Upstream
	cfg.Relay.Model = preset.Relay.Model

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "  %s Relay set to %s (%s %s)\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(strings.ToLower(name)),
		cliui.ValueStyle.Render(cfg.Relay.Upstream),
		cliui.DimStyle.Render(cfg.Relay.Model),
	)
	return nil
}

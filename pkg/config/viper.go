package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/jlsoftware/jlsite/pkg/dotdir"
)

// EnvPrefix prefixes every environment override, e.g.
// JLSITE_CHAT_PUBLISHABLE_KEY.
const EnvPrefix = "JLSITE"

// InitViper creates a *viper.Viper with defaults from NewDefaultConfig(),
// values from config.toml (if found via dotdir resolution) and environment
// variables with the JLSITE_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (JLSITE_SERVER_LISTEN, JLSITE_RELAY_API_KEY, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers NewDefaultConfig() values under dotted keys.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("chat.endpoint", d.Chat.Endpoint)
	v.SetDefault("chat.publishable_key", d.Chat.PublishableKey)
	v.SetDefault("chat.timeout", d.Chat.Timeout)

	v.SetDefault("server.listen", d.Server.Listen)
	v.SetDefault("server.admin_key", d.Server.AdminKey)

	v.SetDefault("relay.upstream", d.Relay.Upstream)
	v.SetDefault("relay.api_key", d.Relay.APIKey)
	v.SetDefault("relay.model", d.Relay.Model)
	v.SetDefault("relay.system_prompt_file", d.Relay.SystemPromptFile)

	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)

	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)
	v.SetDefault("events.redis_url", d.Events.RedisURL)
	v.SetDefault("events.redis_stream", d.Events.RedisStream)

	v.SetDefault("client.api_target", d.Client.APITarget)
}

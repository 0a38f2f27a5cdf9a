package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag. Commands reference
// flags by registry key so the same logical flag (e.g. --api-target on every
// "jlsite quotes" subcommand) cannot drift.
type Flag struct {
	// Name is the long flag name (e.g. "listen").
	Name string

	// Shorthand is the one-letter short flag. Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "server.listen").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of registry keys to flag definitions.
type FlagSet map[string]Flag

// Flag registry keys.
const (
	FlagChatEndpoint     = "endpoint"
	FlagPublishableKey   = "publishable-key"
	FlagChatTimeout      = "timeout"
	FlagListen           = "listen"
	FlagAdminKey         = "admin-key"
	FlagUpstream         = "upstream"
	FlagRelayAPIKey      = "relay-api-key"
	FlagModel            = "model"
	FlagSystemPromptFile = "system-prompt-file"
	FlagSQLite           = "sqlite"
	FlagPostgres         = "postgres"
	FlagBrokers          = "kafka-brokers"
	FlagTopic            = "kafka-topic"
	FlagRedisURL         = "redis-url"
	FlagRedisStream      = "redis-stream"
	FlagAPITarget        = "api-target"
)

// Flags is the registry shared by all jlsite commands.
var Flags = FlagSet{
	FlagChatEndpoint:     {Name: "endpoint", Shorthand: "e", ViperKey: "chat.endpoint", Description: "Chat function URL"},
	FlagPublishableKey:   {Name: "publishable-key", ViperKey: "chat.publishable_key", Description: "Bearer key sent with chat requests"},
	FlagChatTimeout:      {Name: "timeout", ViperKey: "chat.timeout", Description: "Maximum duration of one streamed reply"},
	FlagListen:           {Name: "listen", Shorthand: "l", ViperKey: "server.listen", Description: "Address for the API server to listen on"},
	FlagAdminKey:         {Name: "admin-key", ViperKey: "server.admin_key", Description: "Bearer key required by /admin routes"},
	FlagUpstream:         {Name: "upstream", Shorthand: "u", ViperKey: "relay.upstream", Description: "OpenAI-compatible upstream base URL"},
	FlagRelayAPIKey:      {Name: "relay-api-key", ViperKey: "relay.api_key", Description: "API key for the upstream provider"},
	FlagModel:            {Name: "model", Shorthand: "m", ViperKey: "relay.model", Description: "Model requested from the upstream"},
	FlagSystemPromptFile: {Name: "system-prompt-file", ViperKey: "relay.system_prompt_file", Description: "File holding the assistant system prompt (reloaded on change)"},
	FlagSQLite:           {Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path", Description: "Path to SQLite database"},
	FlagPostgres:         {Name: "postgres", ViperKey: "storage.postgres_dsn", Description: "PostgreSQL connection string"},
	FlagBrokers:          {Name: "kafka-brokers", ViperKey: "events.brokers", Description: "Comma separated Kafka brokers for quotation events"},
	FlagTopic:            {Name: "kafka-topic", ViperKey: "events.topic", Description: "Kafka topic for quotation events"},
	FlagRedisURL:         {Name: "redis-url", ViperKey: "events.redis_url", Description: "Redis URL for publishing events to a stream"},
	FlagRedisStream:      {Name: "redis-stream", ViperKey: "events.redis_stream", Description: "Redis stream that receives events"},
	FlagAPITarget:        {Name: "api-target", Shorthand: "a", ViperKey: "client.api_target", Description: "jlsite API server URL"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper. Call this in
// PreRunE after InitViper to get the precedence flag > env > config file >
// default.
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

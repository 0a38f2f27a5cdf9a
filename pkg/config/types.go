package config

// Config is the persistent jlsite configuration stored as config.toml in the
// .jlsite/ directory.
type Config struct {
	Version int           `toml:"version"`
	Chat    ChatConfig    `toml:"chat"`
	Server  ServerConfig  `toml:"server"`
	Relay   RelayConfig   `toml:"relay"`
	Storage StorageConfig `toml:"storage"`
	Events  EventsConfig  `toml:"events"`
	Client  ClientConfig  `toml:"client"`
}

// ChatConfig holds settings for the terminal chat client.
type ChatConfig struct {
	// Endpoint is the full URL of the chat function.
	Endpoint string `toml:"endpoint,omitempty"`

	// PublishableKey is sent as the bearer token on chat requests.
	PublishableKey string `toml:"publishable_key,omitempty"`

	// Timeout is a Go duration string bounding one streamed reply.
	Timeout string `toml:"timeout,omitempty"`
}

// ServerConfig holds API server settings.
type ServerConfig struct {
	Listen   string `toml:"listen,omitempty"`
	AdminKey string `toml:"admin_key,omitempty"`
}

// RelayConfig holds settings for the upstream completion provider behind the
// chat function.
type RelayConfig struct {
	Upstream         string `toml:"upstream,omitempty"`
	APIKey           string `toml:"api_key,omitempty"`
	Model            string `toml:"model,omitempty"`
	SystemPromptFile string `toml:"system_prompt_file,omitempty"`
}

// StorageConfig selects the storage backend. Postgres wins over SQLite when
// both are set; neither means in-memory.
type StorageConfig struct {
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// EventsConfig holds event publishing settings. Kafka wins over Redis when
// both are set; neither disables publishing.
type EventsConfig struct {
	// Brokers is a comma separated list of host:port addresses.
	Brokers string `toml:"brokers,omitempty"`
	Topic   string `toml:"topic,omitempty"`

	// RedisURL is a redis:// URL, e.g. "redis://:password@localhost:6379/0".
	RedisURL    string `toml:"redis_url,omitempty"`
	RedisStream string `toml:"redis_stream,omitempty"`
}

// ClientConfig holds settings for CLI commands that talk to a running API
// server (e.g. jlsite quotes). Values are full URLs.
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
var configKeys = map[string]configKeyInfo{
	"chat.endpoint": {
		get: func(c *Config) string { return c.Chat.Endpoint },
		set: func(c *Config, v string) error { c.Chat.Endpoint = v; return nil },
	},
	"chat.publishable_key": {
		get: func(c *Config) string { return c.Chat.PublishableKey },
		set: func(c *Config, v string) error { c.Chat.PublishableKey = v; return nil },
	},
	"chat.timeout": {
		get: func(c *Config) string { return c.Chat.Timeout },
		set: func(c *Config, v string) error {
			if _, err := parseDuration("chat.timeout", v); err != nil {
				return err
			}
			c.Chat.Timeout = v
			return nil
		},
	},
	"server.listen": {
		get: func(c *Config) string { return c.Server.Listen },
		set: func(c *Config, v string) error { c.Server.Listen = v; return nil },
	},
	"server.admin_key": {
		get: func(c *Config) string { return c.Server.AdminKey },
		set: func(c *Config, v string) error { c.Server.AdminKey = v; return nil },
	},
	"relay.upstream": {
		get: func(c *Config) string { return c.Relay.Upstream },
		set: func(c *Config, v string) error { c.Relay.Upstream = v; return nil },
	},
	"relay.api_key": {
		get: func(c *Config) string { return c.Relay.APIKey },
		set: func(c *Config, v string) error { c.Relay.APIKey = v; return nil },
	},
	"relay.model": {
		get: func(c *Config) string { return c.Relay.Model },
		set: func(c *Config, v string) error { c.Relay.Model = v; return nil },
	},
	"relay.system_prompt_file": {
		get: func(c *Config) string { return c.Relay.SystemPromptFile },
		set: func(c *Config, v string) error { c.Relay.SystemPromptFile = v; return nil },
	},
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"storage.postgres_dsn": {
		get: func(c *Config) string { return c.Storage.PostgresDSN },
		set: func(c *Config, v string) error { c.Storage.PostgresDSN = v; return nil },
	},
	"events.brokers": {
		get: func(c *Config) string { return c.Events.Brokers },
		set: func(c *Config, v string) error { c.Events.Brokers = v; return nil },
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
	"events.redis_url": {
		get: func(c *Config) string { return c.Events.RedisURL },
		set: func(c *Config, v string) error { c.Events.RedisURL = v; return nil },
	},
	"events.redis_stream": {
		get: func(c *Config) string { return c.Events.RedisStream },
		set: func(c *Config, v string) error { c.Events.RedisStream = v; return nil },
	},
	"client.api_target": {
		get: func(c *Config) string { return c.Client.APITarget },
		set: func(c *Config, v string) error { c.Client.APITarget = v; return nil },
	},
}
